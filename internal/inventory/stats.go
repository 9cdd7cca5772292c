package inventory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tair/stock-ledger/internal/session"
)

// Stats summarises a user's stock
type Stats struct {
	TotalProducts   int             `json:"total_products"`
	TotalUnits      int             `json:"total_units"`
	StockValue      decimal.Decimal `json:"stock_value"`
	AveragePrice    decimal.Decimal `json:"average_price"`
	LowStockCount   int             `json:"low_stock_count"`
	OutOfStockCount int             `json:"out_of_stock_count"`
	TotalCategories int             `json:"total_categories"`
}

// Stats computes stock statistics using threshold for the low-stock count
func (l *Ledger) Stats(ctx context.Context, sess *session.Session, threshold int) (Stats, error) {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	products, err := l.load(ctx, sess)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{TotalProducts: len(products)}
	totalPrice := decimal.Zero
	categories := make(map[string]bool)

	for _, p := range products {
		price := decimal.NewFromFloat(p.Price)
		stats.TotalUnits += p.Quantity
		stats.StockValue = stats.StockValue.Add(price.Mul(decimal.NewFromInt(int64(p.Quantity))))
		totalPrice = totalPrice.Add(price)
		if p.IsLowStock(threshold) {
			stats.LowStockCount++
		}
		if !p.InStock() {
			stats.OutOfStockCount++
		}
		if p.Category != "" {
			categories[p.Category] = true
		}
	}

	if len(products) > 0 {
		stats.AveragePrice = totalPrice.Div(decimal.NewFromInt(int64(len(products)))).Round(2)
	}
	stats.TotalCategories = len(categories)
	return stats, nil
}
