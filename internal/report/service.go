package report

import (
	"context"
	"time"

	"github.com/tair/stock-ledger/internal/domain"
	"github.com/tair/stock-ledger/internal/inventory"
	"github.com/tair/stock-ledger/internal/session"
	"github.com/tair/stock-ledger/internal/sold"
	"github.com/tair/stock-ledger/internal/warranty"
)

// Options hold the thresholds the views use. A zero LowStockThreshold and nil
// warranty windows take the defaults.
type Options struct {
	LowStockThreshold int
	// Thresholds drive the dashboard and the forecast
	Thresholds *warranty.Thresholds
	// ReportThresholds drive the warranty report
	ReportThresholds *warranty.Thresholds
}

func (o Options) withDefaults() Options {
	if o.LowStockThreshold <= 0 {
		o.LowStockThreshold = inventory.DefaultLowStockThreshold
	}
	o.Thresholds = warranty.Within(o.Thresholds.Or(warranty.DefaultThresholds).SoonDays)
	o.ReportThresholds = warranty.Within(o.ReportThresholds.Or(warranty.ReportThresholds).SoonDays)
	return o
}

// Service builds read-only views over stock and sales
type Service struct {
	inventory *inventory.Ledger
	sold      *sold.Ledger
	opts      Options
}

// NewService creates a report service
func NewService(inv *inventory.Ledger, s *sold.Ledger, opts Options) *Service {
	return &Service{inventory: inv, sold: s, opts: opts.withDefaults()}
}

// Dashboard is the overview page
type Dashboard struct {
	TotalProducts    int              `json:"total_products"`
	TotalSoldItems   int              `json:"total_sold_items"`
	ActiveWarranties int              `json:"active_warranties"`
	ExpiringSoon     int              `json:"expiring_soon"`
	LowStock         []domain.Product `json:"low_stock"`
	Expiring         []sold.Record    `json:"expiring"`
	Stock            inventory.Stats  `json:"stock"`
}

// Dashboard counts products, sales and warranties. Returned sales count towards
// the total but not towards warranty figures.
func (s *Service) Dashboard(ctx context.Context, sess *session.Session) (Dashboard, error) {
	stats, err := s.inventory.Stats(ctx, sess, s.opts.LowStockThreshold)
	if err != nil {
		return Dashboard{}, err
	}
	low, err := s.inventory.LowStock(ctx, sess, s.opts.LowStockThreshold)
	if err != nil {
		return Dashboard{}, err
	}
	records, err := s.sold.List(ctx, sess, sold.Filter{Thresholds: s.opts.Thresholds})
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		TotalProducts:  stats.TotalProducts,
		TotalSoldItems: len(records),
		LowStock:       low,
		Expiring:       []sold.Record{},
		Stock:          stats,
	}
	for _, r := range records {
		switch r.Warranty.Status {
		case warranty.StatusActive:
			d.ActiveWarranties++
		case warranty.StatusSoon:
			d.ExpiringSoon++
			d.Expiring = append(d.Expiring, r)
		}
	}
	return d, nil
}

// Sales is a list of sales over a period
type Sales struct {
	Period string            `json:"period"`
	From   domain.Date       `json:"from"`
	To     domain.Date       `json:"to"`
	Count  int               `json:"count"`
	Units  int               `json:"units"`
	Items  []domain.SoldItem `json:"items"`
}

func (s *Service) salesBetween(ctx context.Context, sess *session.Session, period string, from, to time.Time) (Sales, error) {
	items, err := s.sold.All(ctx, sess)
	if err != nil {
		return Sales{}, err
	}

	report := Sales{Period: period, From: domain.NewDate(from), To: domain.NewDate(to), Items: []domain.SoldItem{}}
	for _, item := range items {
		if item.DateSold.IsZero() {
			continue
		}
		if item.DateSold.Before(from) || !item.DateSold.Before(to) {
			continue
		}
		report.Items = append(report.Items, item)
		report.Count++
		report.Units += item.Units()
	}
	return report, nil
}

// Daily lists sales dated today
func (s *Service) Daily(ctx context.Context, sess *session.Session) (Sales, error) {
	from := sess.Today().Time
	return s.salesBetween(ctx, sess, "daily", from, from.AddDate(0, 0, 1))
}

// Monthly lists sales in the current calendar month
func (s *Service) Monthly(ctx context.Context, sess *session.Session) (Sales, error) {
	today := sess.Today().Time
	from := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	return s.salesBetween(ctx, sess, "monthly", from, from.AddDate(0, 1, 0))
}

// Forecast groups non-returned sales by warranty state. Today is the subset of
// Expiring whose warranty ends today.
type Forecast struct {
	SoonDays int           `json:"soon_days"`
	Active   []sold.Record `json:"active"`
	Expiring []sold.Record `json:"expiring"`
	Expired  []sold.Record `json:"expired"`
	Today    []sold.Record `json:"today"`
}

func (s *Service) forecast(ctx context.Context, sess *session.Session, th *warranty.Thresholds) (Forecast, error) {
	records, err := s.sold.List(ctx, sess, sold.Filter{Thresholds: th})
	if err != nil {
		return Forecast{}, err
	}

	f := Forecast{
		SoonDays: th.SoonDays,
		Active:   []sold.Record{},
		Expiring: []sold.Record{},
		Expired:  []sold.Record{},
		Today:    []sold.Record{},
	}
	for _, r := range records {
		switch r.Warranty.Status {
		case warranty.StatusActive:
			f.Active = append(f.Active, r)
		case warranty.StatusSoon:
			f.Expiring = append(f.Expiring, r)
			if r.Warranty.ExpiresToday {
				f.Today = append(f.Today, r)
			}
		case warranty.StatusExpired:
			f.Expired = append(f.Expired, r)
		}
	}
	return f, nil
}

// Forecast uses the short window
func (s *Service) Forecast(ctx context.Context, sess *session.Session) (Forecast, error) {
	return s.forecast(ctx, sess, s.opts.Thresholds)
}

// Warranty is the forecast over the longer report window
func (s *Service) Warranty(ctx context.Context, sess *session.Session) (Forecast, error) {
	return s.forecast(ctx, sess, s.opts.ReportThresholds)
}
