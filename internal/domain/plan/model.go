package plan

import (
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
)

// Plan is immutable pricing reference data for a subscription
type Plan struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Price     decimal.Decimal `db:"price" json:"price"`
	SpeedMbps int             `db:"speed_mbps" json:"speed_mbps"`

	types.BaseModel
}
