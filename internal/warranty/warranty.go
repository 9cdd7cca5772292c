// Package warranty derives warranty status from a sale date and a duration.
// Nothing here is stored; call Compute on every read because "now" moves.
package warranty

import (
	"math"
	"time"

	"github.com/tair/stock-ledger/internal/domain"
)

// Status is the derived warranty classification
type Status string

// Warranty statuses
const (
	StatusActive   Status = "active"
	StatusSoon     Status = "soon"
	StatusExpired  Status = "expired"
	StatusReturned Status = "returned"
)

// Thresholds configure the "soon" window. Views disagree on it (the sold-items
// list and forecast use 7 days, the report view 30), so each caller passes its own.
type Thresholds struct {
	SoonDays int
}

var (
	// DefaultThresholds is used by the sold-items list and the forecast
	DefaultThresholds = Thresholds{SoonDays: 7}
	// ReportThresholds is used by the warranty report
	ReportThresholds = Thresholds{SoonDays: 30}
)

// Within is a configured window of days. Zero flags only sales that expire today.
func Within(days int) *Thresholds {
	return &Thresholds{SoonDays: days}
}

// Or returns t, or def when t is not configured
func (t *Thresholds) Or(def Thresholds) Thresholds {
	if t == nil {
		return def
	}
	return *t
}

// Result is the computed warranty state of one sale
type Result struct {
	Status       Status    `json:"status"`
	DaysLeft     int       `json:"daysLeft"`
	ExpiryDate   time.Time `json:"expiryDate"`
	ExpiresToday bool      `json:"expiresToday"`
}

const day = 24 * time.Hour

// ExpiryDate adds months to saleDate with ordinary calendar overflow, so
// Jan 31 + 1 month lands in early March
func ExpiryDate(saleDate time.Time, months int) time.Time {
	return saleDate.AddDate(0, months, 0)
}

// DaysLeft is ceil((expiry - now) / 24h)
func DaysLeft(expiry, now time.Time) int {
	return int(math.Ceil(float64(expiry.Sub(now)) / float64(day)))
}

// Compute classifies a sale. A returned record is StatusReturned whatever its
// dates; DaysLeft and ExpiryDate are still filled in.
func Compute(saleDate time.Time, months int, recordStatus domain.SaleStatus, now time.Time, th Thresholds) Result {
	expiry := ExpiryDate(saleDate, months)
	left := DaysLeft(expiry, now)

	res := Result{
		DaysLeft:     left,
		ExpiryDate:   expiry,
		ExpiresToday: left == 0,
	}

	switch {
	case recordStatus == domain.SaleReturned:
		res.Status = StatusReturned
	case left < 0:
		res.Status = StatusExpired
	case left <= th.SoonDays:
		res.Status = StatusSoon
	default:
		res.Status = StatusActive
	}
	return res
}

// ForItem computes the status of a stored sale
func ForItem(item domain.SoldItem, now time.Time, th Thresholds) Result {
	return Compute(item.DateSold.Time, item.WarrantyMonths, item.Status, now, th)
}

// ParseStatus maps a filter string to a Status
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusActive, StatusSoon, StatusExpired, StatusReturned:
		return st, true
	}
	return "", false
}
