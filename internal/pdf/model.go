package pdf

// ReceiptData is the JSON document handed to the receipt template.
// Amounts and dates are preformatted strings.
type ReceiptData struct {
	CompanyName     string `json:"company_name"`
	ReceiptNumber   string `json:"receipt_number"`
	CustomerName    string `json:"customer_name"`
	CustomerDNI     string `json:"customer_dni"`
	CustomerAddress string `json:"customer_address"`
	InvoiceID       string `json:"invoice_id"`
	BillingPeriod   string `json:"billing_period"`
	IssueDate       string `json:"issue_date"`
	DueDate         string `json:"due_date"`
	PaidAt          string `json:"paid_at"`
	PaymentMethod   string `json:"payment_method"`
	BaseAmount      string `json:"base_amount"`
	LateFee         string `json:"late_fee"`
	TotalAmount     string `json:"total_amount"`
}
