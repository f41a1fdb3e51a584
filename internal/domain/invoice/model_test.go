package invoice

import (
	"context"
	"testing"
	"time"

	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInvoice(t *testing.T) {
	issue := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	inv := New(context.Background(), "subs_1", "cust_1", types.BillingPeriod("2024-06"), issue, 15, decimal.NewFromInt(100))

	assert.Equal(t, types.InvoiceStatusPending, inv.Status)
	assert.True(t, inv.BaseAmount.Equal(decimal.NewFromInt(100)))
	assert.True(t, inv.TotalAmount.Equal(decimal.NewFromInt(100)))
	assert.True(t, inv.LateFee.IsZero())
	assert.Equal(t, time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC), inv.DueDate)
	require.NoError(t, inv.Validate())
}

func TestInvoiceValidateTotal(t *testing.T) {
	inv := New(context.Background(), "subs_1", "cust_1", types.BillingPeriod("2024-06"), time.Now(), 15, decimal.NewFromInt(100))
	inv.TotalAmount = decimal.NewFromInt(105)

	err := inv.Validate()
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestInvoiceOverdue(t *testing.T) {
	issue := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	inv := New(context.Background(), "subs_1", "cust_1", types.BillingPeriod("2024-06"), issue, 15, decimal.NewFromInt(100))

	assert.False(t, inv.IsOverdue(time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)))
	assert.True(t, inv.IsOverdue(time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, inv.DaysOverdue(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 30, inv.DaysOverdue(time.Date(2024, 7, 16, 0, 0, 0, 0, time.UTC)))
}

func TestReceiptNumber(t *testing.T) {
	assert.Equal(t, "F2024-007", ReceiptNumber(7, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "F2025-1234", ReceiptNumber(1234, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)))
}
