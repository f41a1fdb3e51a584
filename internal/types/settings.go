package types

// SettingKey names a business setting stored in the settings table
type SettingKey string

const (
	SettingKeyPaymentWindowDays    SettingKey = "payment_window_days"
	SettingKeyLateFeeAmount        SettingKey = "late_fee_amount"
	SettingKeyDaysForSuspension    SettingKey = "days_for_suspension"
	SettingKeyAutoInvoicingEnabled SettingKey = "auto_invoicing_enabled"
)

func (s SettingKey) String() string {
	return string(s)
}

// KnownSettingKeys lists every key the billing core reads
var KnownSettingKeys = []SettingKey{
	SettingKeyPaymentWindowDays,
	SettingKeyLateFeeAmount,
	SettingKeyDaysForSuspension,
	SettingKeyAutoInvoicingEnabled,
}

// DefaultSettingDescriptions documents each key for operators listing settings
var DefaultSettingDescriptions = map[SettingKey]string{
	SettingKeyPaymentWindowDays:    "Days between invoice issue and due date",
	SettingKeyLateFeeAmount:        "Fixed surcharge applied once to an invoice unpaid past its due date",
	SettingKeyDaysForSuspension:    "Days past due after which the subscription is suspended",
	SettingKeyAutoInvoicingEnabled: "Whether the monthly invoice run creates invoices",
}
