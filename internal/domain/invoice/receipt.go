package invoice

import (
	"fmt"
	"time"
)

// ReceiptNumber formats the human facing receipt number F{year}-{sequence}
func ReceiptNumber(sequence int64, paidAt time.Time) string {
	return fmt.Sprintf("F%d-%03d", paidAt.Year(), sequence)
}
