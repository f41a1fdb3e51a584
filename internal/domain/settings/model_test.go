package settings

import (
	"testing"

	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromValues(t *testing.T) {
	tests := []struct {
		name     string
		values   map[types.SettingKey]string
		required []types.SettingKey
		wantErr  bool
		check    func(t *testing.T, bs *BusinessSettings)
	}{
		{
			name: "all settings present",
			values: map[types.SettingKey]string{
				types.SettingKeyPaymentWindowDays:    "15",
				types.SettingKeyLateFeeAmount:        "10.50",
				types.SettingKeyDaysForSuspension:    "30",
				types.SettingKeyAutoInvoicingEnabled: "false",
			},
			required: append(GenerationKeys, OverdueKeys...),
			check: func(t *testing.T, bs *BusinessSettings) {
				assert.Equal(t, 15, bs.PaymentWindowDays)
				assert.True(t, bs.LateFeeAmount.Equal(decimal.RequireFromString("10.5")))
				assert.Equal(t, 30, bs.SuspensionGraceDays)
				assert.False(t, bs.AutoInvoicingEnabled)
			},
		},
		{
			name: "auto invoicing defaults to enabled",
			values: map[types.SettingKey]string{
				types.SettingKeyPaymentWindowDays: "10",
			},
			required: GenerationKeys,
			check: func(t *testing.T, bs *BusinessSettings) {
				assert.True(t, bs.AutoInvoicingEnabled)
			},
		},
		{
			name:     "missing payment window",
			values:   map[types.SettingKey]string{},
			required: GenerationKeys,
			wantErr:  true,
		},
		{
			name: "missing late fee for overdue",
			values: map[types.SettingKey]string{
				types.SettingKeyDaysForSuspension: "30",
			},
			required: OverdueKeys,
			wantErr:  true,
		},
		{
			name: "negative late fee",
			values: map[types.SettingKey]string{
				types.SettingKeyLateFeeAmount:     "-1",
				types.SettingKeyDaysForSuspension: "30",
			},
			required: OverdueKeys,
			wantErr:  true,
		},
		{
			name: "non numeric window",
			values: map[types.SettingKey]string{
				types.SettingKeyPaymentWindowDays: "fifteen",
			},
			required: GenerationKeys,
			wantErr:  true,
		},
		{
			name: "unknown keys are ignored",
			values: map[types.SettingKey]string{
				types.SettingKeyPaymentWindowDays: "15",
				"company_motto":                   "fast internet",
			},
			required: GenerationKeys,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bs, err := FromValues(tt.values, tt.required...)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, ierr.IsConfiguration(err))
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, bs)
			}
		})
	}
}

func TestValidateValue(t *testing.T) {
	assert.NoError(t, ValidateValue(types.SettingKeyAutoInvoicingEnabled, "TRUE"))
	assert.NoError(t, ValidateValue(types.SettingKeyLateFeeAmount, "0"))
	assert.Error(t, ValidateValue(types.SettingKeyDaysForSuspension, "-3"))
	assert.Error(t, ValidateValue(types.SettingKeyAutoInvoicingEnabled, "maybe"))
}
