package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tair/stock-ledger/internal/domain"
	"github.com/tair/stock-ledger/internal/inventory"
	"github.com/tair/stock-ledger/internal/session"
	"github.com/tair/stock-ledger/internal/sold"
	"github.com/tair/stock-ledger/internal/storage"
	"github.com/tair/stock-ledger/internal/warranty"
)

// 2024-12-28 noon; dates below are relative to it
var fixedNow = time.Date(2024, time.December, 28, 12, 0, 0, 0, time.UTC)

func date(t *testing.T, s string) domain.Date {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

func newService(t *testing.T) (*Service, *session.Session) {
	t.Helper()
	ctx := context.Background()
	sess := session.New("alice", storage.NewMemoryStore(), nil, session.WithClock(func() time.Time { return fixedNow }))
	inv := inventory.NewLedger(nil)
	sales := sold.NewLedger(inv, nil)

	for _, p := range []domain.Product{
		{ID: "p1", Name: "Pixel", Category: "phones", Price: 500, Quantity: 3},
		{ID: "p2", Name: "Case", Category: "accessories", Price: 10, Quantity: 40},
		{ID: "p3", Name: "Charger", Category: "accessories", Price: 20, Quantity: 0},
	} {
		_, err := inv.Upsert(ctx, sess, p)
		require.NoError(t, err)
	}

	require.NoError(t, sales.Append(ctx, sess, []domain.SoldItem{
		// ends 2025-01-01, 4 days left
		{ID: "soon", ProductName: "Pixel", DateSold: date(t, "2024-01-01"), WarrantyMonths: 12, Quantity: 1, Status: domain.SaleActive},
		// ends today
		{ID: "today", ProductName: "Pixel", DateSold: date(t, "2024-11-28"), WarrantyMonths: 1, Quantity: 1, Status: domain.SaleActive},
		// ends 2025-01-20, 23 days left
		{ID: "month", ProductName: "Case", DateSold: date(t, "2024-12-20"), WarrantyMonths: 1, Quantity: 2, Status: domain.SaleActive},
		// ends 2025-12-28
		{ID: "active", ProductName: "Case", InvoiceNumber: "CART-1", DateSold: date(t, "2024-12-28"), WarrantyMonths: 12, Quantity: 3, Status: domain.SaleActive},
		{ID: "expired", ProductName: "Charger", DateSold: date(t, "2023-05-01"), WarrantyMonths: 6, Quantity: 1, Status: domain.SaleActive},
		{ID: "returned", ProductName: "Pixel", DateSold: date(t, "2024-12-28"), WarrantyMonths: 12, Quantity: 1, Status: domain.SaleReturned},
	}))

	return NewService(inv, sales, Options{}), sess
}

func ids(records []sold.Record) []string {
	out := []string{}
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestDashboard(t *testing.T) {
	svc, sess := newService(t)

	d, err := svc.Dashboard(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, 3, d.TotalProducts)
	assert.Equal(t, 6, d.TotalSoldItems)
	assert.Equal(t, 2, d.ActiveWarranties)
	assert.Equal(t, 2, d.ExpiringSoon)
	assert.Equal(t, []string{"soon", "today"}, ids(d.Expiring))
	require.Len(t, d.LowStock, 2)
	assert.Equal(t, "Pixel", d.LowStock[0].Name)
	assert.Equal(t, "Charger", d.LowStock[1].Name)
	assert.Equal(t, 1, d.Stock.OutOfStockCount)
}

func TestDailyAndMonthly(t *testing.T) {
	svc, sess := newService(t)
	ctx := context.Background()

	daily, err := svc.Daily(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, "2024-12-28", daily.From.String())
	assert.Equal(t, 2, daily.Count)
	assert.Equal(t, 4, daily.Units)

	monthly, err := svc.Monthly(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, "2024-12-01", monthly.From.String())
	assert.Equal(t, "2025-01-01", monthly.To.String())
	assert.Equal(t, 3, monthly.Count)
	assert.Equal(t, 6, monthly.Units)
}

func TestForecastWindows(t *testing.T) {
	svc, sess := newService(t)
	ctx := context.Background()

	f, err := svc.Forecast(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 7, f.SoonDays)
	assert.Equal(t, []string{"month", "active"}, ids(f.Active))
	assert.Equal(t, []string{"soon", "today"}, ids(f.Expiring))
	assert.Equal(t, []string{"expired"}, ids(f.Expired))
	assert.Equal(t, []string{"today"}, ids(f.Today))

	w, err := svc.Warranty(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 30, w.SoonDays)
	assert.Equal(t, []string{"active"}, ids(w.Active))
	assert.Equal(t, []string{"soon", "today", "month"}, ids(w.Expiring))
	assert.Equal(t, []string{"expired"}, ids(w.Expired))
}

func TestForecastZeroDayWindow(t *testing.T) {
	svc, sess := newService(t)
	svc = NewService(svc.inventory, svc.sold, Options{Thresholds: warranty.Within(0)})

	f, err := svc.Forecast(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, 0, f.SoonDays)
	assert.Equal(t, []string{"today"}, ids(f.Expiring))
	assert.Equal(t, []string{"today"}, ids(f.Today))
	assert.Equal(t, []string{"soon", "month", "active"}, ids(f.Active))
}

func TestExportXLSX(t *testing.T) {
	svc, sess := newService(t)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportXLSX(context.Background(), sess, &buf))

	file, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer file.Close()

	assert.Equal(t, []string{SoldItemsSheet, ProductsSheet}, file.GetSheetList())

	rows, err := file.GetRows(SoldItemsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 7)
	assert.Equal(t, "Warranty Status", rows[0][9])
	assert.Equal(t, []string{"2024-01-01", "Pixel", "", "", "", "1", "12", "2025-01-01", "4", "soon"}, rows[1])
	assert.Equal(t, "returned", rows[6][9])

	products, err := file.GetRows(ProductsSheet)
	require.NoError(t, err)
	require.Len(t, products, 4)
	assert.Equal(t, "Pixel", products[1][1])
	assert.Equal(t, "500", products[1][3])
}
