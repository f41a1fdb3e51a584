package types

import (
	"time"

	ierr "github.com/netbill/netbill/internal/errors"
)

// Calendar days are represented as time.Time values at midnight UTC carrying
// the civil date. The billing time zone only matters when a wall clock
// instant is turned into a day, which happens in CalendarDay.

const (
	billingPeriodLayout = "2006-01"
	DateLayout          = "2006-01-02"
)

// CalendarDay returns the civil date of t as observed in loc
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NormalizeDay drops the clock and zone of a value that already is a civil date,
// for example a DATE column scanned by the postgres driver
func NormalizeDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays moves a calendar day by n days
func AddDays(day time.Time, n int) time.Time {
	return NormalizeDay(day).AddDate(0, 0, n)
}

// DaysBetween returns the number of whole days from -> to, negative when to is earlier
func DaysBetween(from, to time.Time) int {
	return int(NormalizeDay(to).Sub(NormalizeDay(from)).Hours() / 24)
}

// ParseDate parses a YYYY-MM-DD string into a calendar day
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ierr.WithError(err).
			WithHintf("Date %q must be formatted as YYYY-MM-DD", s).
			Mark(ierr.ErrValidation)
	}
	return t, nil
}

// BillingPeriod identifies a monthly billing cycle, formatted as YYYY-MM
type BillingPeriod string

// BillingPeriodOf returns the billing period containing the given calendar day
func BillingPeriodOf(day time.Time) BillingPeriod {
	return BillingPeriod(NormalizeDay(day).Format(billingPeriodLayout))
}

// ParseBillingPeriod validates and returns a billing period
func ParseBillingPeriod(s string) (BillingPeriod, error) {
	p := BillingPeriod(s)
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

func (p BillingPeriod) String() string {
	return string(p)
}

func (p BillingPeriod) Validate() error {
	if _, err := time.Parse(billingPeriodLayout, string(p)); err != nil {
		return ierr.NewErrorf("invalid billing period %q", string(p)).
			WithHint("Billing period must be formatted as YYYY-MM").
			Mark(ierr.ErrValidation)
	}
	return nil
}
