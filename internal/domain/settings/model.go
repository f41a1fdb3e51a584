package settings

import (
	"strconv"
	"strings"

	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

// Setting is one stored business parameter
type Setting struct {
	ID          string           `db:"id" json:"id"`
	Key         types.SettingKey `db:"key" json:"key"`
	Value       string           `db:"value" json:"value"`
	Description string           `db:"description" json:"description"`

	types.BaseModel
}

// BusinessSettings is the parsed set of parameters the billing operations run with.
// It is passed explicitly into each operation.
type BusinessSettings struct {
	PaymentWindowDays    int
	LateFeeAmount        decimal.Decimal
	SuspensionGraceDays  int
	AutoInvoicingEnabled bool
}

// GenerationKeys are the settings invoice generation cannot run without
var GenerationKeys = []types.SettingKey{
	types.SettingKeyPaymentWindowDays,
}

// OverdueKeys are the settings overdue processing cannot run without
var OverdueKeys = []types.SettingKey{
	types.SettingKeyLateFeeAmount,
	types.SettingKeyDaysForSuspension,
}

// FromValues parses raw setting values. Every present known key must parse and
// every key in required must be present, otherwise a configuration error is returned.
// auto_invoicing_enabled defaults to true when absent.
func FromValues(values map[types.SettingKey]string, required ...types.SettingKey) (*BusinessSettings, error) {
	for _, key := range required {
		if _, ok := values[key]; !ok {
			return nil, ierr.NewErrorf("missing business setting %s", key).
				WithHintf("Business setting %s must be configured", key).
				WithReportableDetails(map[string]any{
					"key": key,
				}).
				Mark(ierr.ErrConfiguration)
		}
	}

	bs := &BusinessSettings{
		LateFeeAmount:        decimal.Zero,
		AutoInvoicingEnabled: true,
	}

	for key, raw := range values {
		if err := bs.set(key, raw); err != nil {
			return nil, err
		}
	}
	return bs, nil
}

// ValidateValue checks raw is an acceptable value for key
func ValidateValue(key types.SettingKey, raw string) error {
	var bs BusinessSettings
	if err := bs.set(key, raw); err != nil {
		return err
	}
	return nil
}

func (bs *BusinessSettings) set(key types.SettingKey, raw string) error {
	raw = strings.TrimSpace(raw)
	switch key {
	case types.SettingKeyPaymentWindowDays:
		v, err := parseDays(key, raw)
		if err != nil {
			return err
		}
		bs.PaymentWindowDays = v
	case types.SettingKeyDaysForSuspension:
		v, err := parseDays(key, raw)
		if err != nil {
			return err
		}
		bs.SuspensionGraceDays = v
	case types.SettingKeyLateFeeAmount:
		v, err := decimal.NewFromString(raw)
		if err != nil || v.IsNegative() {
			return invalidValue(key, raw, err)
		}
		bs.LateFeeAmount = v
	case types.SettingKeyAutoInvoicingEnabled:
		v, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			return invalidValue(key, raw, err)
		}
		bs.AutoInvoicingEnabled = v
	}
	return nil
}

func parseDays(key types.SettingKey, raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, invalidValue(key, raw, err)
	}
	return v, nil
}

func invalidValue(key types.SettingKey, raw string, cause error) error {
	b := ierr.NewErrorf("invalid value for business setting %s", key)
	if cause != nil {
		b = ierr.WithError(cause).WithMessagef("invalid value for business setting %s", key)
	}
	return b.WithHintf("Business setting %s has an invalid value %q", key, raw).
		WithReportableDetails(map[string]any{
			"key":   key,
			"value": raw,
		}).
		Mark(ierr.ErrConfiguration)
}
