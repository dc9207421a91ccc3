// README: Common value objects (IDs, money, points, civil dates) used across modules.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type ID string

type Money struct {
	Amount   decimal.Decimal
	Currency string
}

type Point struct {
	Lat float64
	Lng float64
}

const DateLayout = "2006-01-02"

// Day truncates t to its civil date at midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses YYYY-MM-DD into a civil date.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

func FormatDay(t time.Time) string {
	return Day(t).Format(DateLayout)
}

// DaysBetween returns the whole days from a to b (negative when b is before a).
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
