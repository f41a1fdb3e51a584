package errors

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusFromErr(t *testing.T) {
	notFound := NewError("invoice not found").Mark(ErrNotFound)
	assert.Equal(t, http.StatusNotFound, HTTPStatusFromErr(notFound))
	assert.Equal(t, ErrCodeNotFound, CodeFromErr(notFound))

	// the billing mark wins over the generic one it wraps
	receipt := WithError(NewError("upload failed").Mark(ErrSystem)).Mark(ErrReceiptGeneration)
	assert.Equal(t, http.StatusBadGateway, HTTPStatusFromErr(receipt))
	assert.Equal(t, ErrCodeReceiptGeneration, CodeFromErr(receipt))

	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromErr(assert.AnError))
}

func TestAmountMismatch(t *testing.T) {
	err := NewAmountMismatch("inv_1", decimal.RequireFromString("30.00"), decimal.RequireFromString("25.00"))

	assert.True(t, IsAmountMismatch(err))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatusFromErr(err))

	var mismatch *AmountMismatchError
	if assert.True(t, As(err, &mismatch)) {
		assert.True(t, mismatch.Required.Equal(decimal.RequireFromString("30")))
		assert.True(t, mismatch.Received.Equal(decimal.RequireFromString("25")))
	}
}
