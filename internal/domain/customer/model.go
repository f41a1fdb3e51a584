package customer

import (
	"strings"

	"github.com/netbill/netbill/internal/types"
)

// Customer is the billing identity printed on invoices and receipts
type Customer struct {
	ID        string `db:"id" json:"id"`
	DNI       string `db:"dni" json:"dni"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Email     string `db:"email" json:"email"`
	Address   string `db:"address" json:"address"`
	City      string `db:"city" json:"city"`
	Phone     string `db:"phone" json:"phone"`

	types.BaseModel
}

// FullName returns "first last" with empty parts dropped
func (c *Customer) FullName() string {
	return strings.TrimSpace(strings.Join([]string{c.FirstName, c.LastName}, " "))
}
