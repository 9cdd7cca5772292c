package sold

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/stock-ledger/internal/domain"
	"github.com/tair/stock-ledger/internal/inventory"
	"github.com/tair/stock-ledger/internal/session"
	"github.com/tair/stock-ledger/internal/storage"
	"github.com/tair/stock-ledger/internal/warranty"
)

var fixedNow = time.Date(2024, time.December, 28, 10, 0, 0, 0, time.UTC)

var errWriteFailed = errors.New("write failed")

// flakyStore fails writes to the keys in failSet. After failAfter successful writes
// to a products key, product writes fail too.
type flakyStore struct {
	*storage.MemoryStore
	failSet           map[string]bool
	productWrites     int
	failProductsAfter int
}

func (s *flakyStore) Set(ctx context.Context, key, value string) error {
	if s.failSet[key] {
		return errWriteFailed
	}
	if key == storage.ProductsKey("alice") {
		s.productWrites++
		if s.failProductsAfter > 0 && s.productWrites > s.failProductsAfter {
			return errWriteFailed
		}
	}
	return s.MemoryStore.Set(ctx, key, value)
}

type fixture struct {
	ctx   context.Context
	store *flakyStore
	sess  *session.Session
	inv   *inventory.Ledger
	sold  *Ledger
}

func newFixture(t *testing.T, products ...domain.Product) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		store: &flakyStore{MemoryStore: storage.NewMemoryStore(), failSet: map[string]bool{}},
		inv:   inventory.NewLedger(nil),
	}
	f.sess = session.New("alice", f.store, nil, session.WithClock(func() time.Time { return fixedNow }))
	f.sold = NewLedger(f.inv, nil)
	for _, p := range products {
		_, err := f.inv.Upsert(f.ctx, f.sess, p)
		require.NoError(t, err)
	}
	return f
}

func (f *fixture) quantity(t *testing.T, id string) int {
	t.Helper()
	p, err := f.inv.Get(f.ctx, f.sess, id)
	require.NoError(t, err)
	return p.Quantity
}

func (f *fixture) sales(t *testing.T) []domain.SoldItem {
	t.Helper()
	items, err := f.sold.All(f.ctx, f.sess)
	require.NoError(t, err)
	return items
}

func TestCreateDecrementsMatchingProduct(t *testing.T) {
	f := newFixture(t, domain.Product{ID: "p1", Name: "Galaxy S9", Quantity: 2})

	item, err := f.sold.Create(f.ctx, f.sess, SaleCommand{
		ProductName:    "galaxy s9",
		CustomerName:   "Bob",
		InvoiceNumber:  "INV-1",
		IMEI:           "3569",
		WarrantyMonths: 12,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, item.ID)
	assert.Equal(t, "p1", item.ProductID)
	assert.Equal(t, "galaxy s9", item.ProductName)
	assert.Equal(t, domain.SaleActive, item.Status)
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, "2024-12-28", item.DateSold.String())
	assert.Equal(t, 1, f.quantity(t, "p1"))
	assert.Len(t, f.sales(t), 1)
}

func TestCreateFailuresLeaveEverythingUnchanged(t *testing.T) {
	f := newFixture(t,
		domain.Product{ID: "p1", Name: "Empty", Quantity: 0},
		domain.Product{ID: "d1", Name: "Twin", Quantity: 1},
		domain.Product{ID: "d2", Name: "twin", Quantity: 1},
	)

	tests := []struct {
		name string
		cmd  SaleCommand
		want error
	}{
		{"unknown product", SaleCommand{ProductName: "Nope"}, domain.ErrProductNotFound},
		{"out of stock", SaleCommand{ProductName: "empty"}, domain.ErrOutOfStock},
		{"ambiguous name", SaleCommand{ProductName: "TWIN"}, domain.ErrAmbiguousProduct},
		{"missing name", SaleCommand{ProductName: "  "}, domain.ErrInvalidInput},
		{"negative warranty", SaleCommand{ProductName: "Empty", WarrantyMonths: -1}, domain.ErrInvalidInput},
		{"bad status", SaleCommand{ProductName: "Empty", Status: "lost"}, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.sold.Create(f.ctx, f.sess, tt.cmd)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Empty(t, f.sales(t))
	assert.Equal(t, 0, f.quantity(t, "p1"))
	assert.Equal(t, 1, f.quantity(t, "d1"))
	assert.Equal(t, 1, f.quantity(t, "d2"))
}

func TestCreateRevertsStockWhenRecordWriteFails(t *testing.T) {
	f := newFixture(t, domain.Product{ID: "p1", Name: "Phone", Quantity: 3})
	f.store.failSet[storage.SoldItemsKey] = true

	_, err := f.sold.Create(f.ctx, f.sess, SaleCommand{ProductName: "Phone"})
	assert.ErrorIs(t, err, errWriteFailed)
	assert.NotErrorIs(t, err, domain.ErrPartialFailure)
	assert.Equal(t, 3, f.quantity(t, "p1"))
}

func TestCreateReportsPartialFailureWhenRevertFails(t *testing.T) {
	f := newFixture(t, domain.Product{ID: "p1", Name: "Phone", Quantity: 3})
	f.store.failSet[storage.SoldItemsKey] = true
	// the seeding upsert and the sale's decrement succeed, the revert fails
	f.store.failProductsAfter = f.store.productWrites + 1

	_, err := f.sold.Create(f.ctx, f.sess, SaleCommand{ProductName: "Phone"})
	assert.ErrorIs(t, err, domain.ErrPartialFailure)
	assert.Equal(t, 2, f.quantity(t, "p1"))
}

func TestDeleteRestoresOneUnit(t *testing.T) {
	f := newFixture(t, domain.Product{ID: "p1", Name: "Phone", Quantity: 1})

	item, err := f.sold.Create(f.ctx, f.sess, SaleCommand{ProductName: "Phone"})
	require.NoError(t, err)
	require.Equal(t, 0, f.quantity(t, "p1"))

	require.NoError(t, f.sold.Delete(f.ctx, f.sess, item.ID))
	assert.Equal(t, 1, f.quantity(t, "p1"))
	assert.Empty(t, f.sales(t))

	assert.ErrorIs(t, f.sold.Delete(f.ctx, f.sess, item.ID), domain.ErrNotFound)
}

func TestDeleteWithoutMatchingProductOnlyRemovesRecord(t *testing.T) {
	f := newFixture(t, domain.Product{ID: "p1", Name: "Phone", Quantity: 5})
	require.NoError(t, f.sold.Append(f.ctx, f.sess, []domain.SoldItem{
		{ID: "s1", ProductName: "Discontinued", Quantity: 1, Status: domain.SaleActive},
	}))

	require.NoError(t, f.sold.Delete(f.ctx, f.sess, "s1"))
	assert.Empty(t, f.sales(t))
	assert.Equal(t, 5, f.quantity(t, "p1"))
}

func TestDeleteRestoresRecordUnits(t *testing.T) {
	f := newFixture(t, domain.Product{ID: "p1", Name: "Cable", Quantity: 0})
	require.NoError(t, f.sold.Append(f.ctx, f.sess, []domain.SoldItem{
		{ID: "s1", ProductName: "cable", Quantity: 3, Status: domain.SaleActive},
	}))

	require.NoError(t, f.sold.Delete(f.ctx, f.sess, "s1"))
	assert.Equal(t, 3, f.quantity(t, "p1"))
}

func TestUpdateRenameMovesOneUnit(t *testing.T) {
	f := newFixture(t,
		domain.Product{ID: "a", Name: "Phone A", Quantity: 2},
		domain.Product{ID: "b", Name: "Phone B", Quantity: 2},
	)
	item, err := f.sold.Create(f.ctx, f.sess, SaleCommand{ProductName: "Phone A", CustomerName: "Bob"})
	require.NoError(t, err)
	require.Equal(t, 1, f.quantity(t, "a"))

	updated, err := f.sold.Update(f.ctx, f.sess, item.ID, SaleCommand{ProductName: "Phone B", CustomerName: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "b", updated.ProductID)
	assert.Equal(t, item.DateSold, updated.DateSold)
	assert.Equal(t, 2, f.quantity(t, "a"))
	assert.Equal(t, 1, f.quantity(t, "b"))
}

func TestUpdateRenameToOutOfStockIsRejected(t *testing.T) {
	f := newFixture(t,
		domain.Product{ID: "a", Name: "Phone A", Quantity: 2},
		domain.Product{ID: "b", Name: "Phone B", Quantity: 0},
	)
	item, err := f.sold.Create(f.ctx, f.sess, SaleCommand{ProductName: "Phone A"})
	require.NoError(t, err)

	_, err = f.sold.Update(f.ctx, f.sess, item.ID, SaleCommand{ProductName: "Phone B"})
	assert.ErrorIs(t, err, domain.ErrOutOfStock)
	assert.Equal(t, 1, f.quantity(t, "a"))
	assert.Equal(t, 0, f.quantity(t, "b"))

	_, err = f.sold.Update(f.ctx, f.sess, item.ID, SaleCommand{ProductName: "Phone C"})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Equal(t, 1, f.quantity(t, "a"))

	got, err := f.sold.Get(f.ctx, f.sess, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Phone A", got.ProductName)
}

func TestUpdateSameNameHasNoStockEffect(t *testing.T) {
	f := newFixture(t, domain.Product{ID: "a", Name: "Phone", Quantity: 2})
	item, err := f.sold.Create(f.ctx, f.sess, SaleCommand{ProductName: "Phone", CustomerName: "Bob"})
	require.NoError(t, err)

	updated, err := f.sold.Update(f.ctx, f.sess, item.ID, SaleCommand{
		ProductName:    "Phone",
		CustomerName:   "Carol",
		InvoiceNumber:  "INV-9",
		WarrantyMonths: 6,
		Status:         domain.SaleReturned,
	})
	require.NoError(t, err)
	assert.Equal(t, "Carol", updated.CustomerName)
	assert.Equal(t, 6, updated.WarrantyMonths)
	assert.Equal(t, domain.SaleReturned, updated.Status)
	assert.Equal(t, 1, f.quantity(t, "a"))

	_, err = f.sold.Update(f.ctx, f.sess, "missing", SaleCommand{ProductName: "Phone"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateRevertsStockWhenRecordWriteFails(t *testing.T) {
	f := newFixture(t,
		domain.Product{ID: "a", Name: "Phone A", Quantity: 2},
		domain.Product{ID: "b", Name: "Phone B", Quantity: 2},
	)
	item, err := f.sold.Create(f.ctx, f.sess, SaleCommand{ProductName: "Phone A"})
	require.NoError(t, err)

	f.store.failSet[storage.SoldItemsKey] = true
	_, err = f.sold.Update(f.ctx, f.sess, item.ID, SaleCommand{ProductName: "Phone B"})
	assert.ErrorIs(t, err, errWriteFailed)
	assert.Equal(t, 1, f.quantity(t, "a"))
	assert.Equal(t, 2, f.quantity(t, "b"))
}

func TestMarkReturnedKeepsStock(t *testing.T) {
	f := newFixture(t, domain.Product{ID: "a", Name: "Phone", Quantity: 2})
	item, err := f.sold.Create(f.ctx, f.sess, SaleCommand{ProductName: "Phone"})
	require.NoError(t, err)

	returned, err := f.sold.MarkReturned(f.ctx, f.sess, item.ID)
	require.NoError(t, err)
	assert.True(t, returned.IsReturned())
	assert.Equal(t, 1, f.quantity(t, "a"))

	_, err = f.sold.MarkReturned(f.ctx, f.sess, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListFiltersByTextAndWarranty(t *testing.T) {
	f := newFixture(t)
	day := func(s string) domain.Date {
		d, err := domain.ParseDate(s)
		require.NoError(t, err)
		return d
	}
	require.NoError(t, f.sold.Append(f.ctx, f.sess, []domain.SoldItem{
		{ID: "1", ProductName: "Pixel", CustomerName: "Ann", InvoiceNumber: "INV-1", DateSold: day("2024-01-01"), WarrantyMonths: 12, Quantity: 1, Status: domain.SaleActive},
		{ID: "2", ProductName: "iPhone", CustomerName: "Ben", IMEI: "99887766", DateSold: day("2024-06-01"), WarrantyMonths: 12, Quantity: 1, Status: domain.SaleActive},
		{ID: "3", ProductName: "Nokia", CustomerName: "Cat", DateSold: day("2023-01-01"), WarrantyMonths: 6, Quantity: 1, Status: domain.SaleActive},
		{ID: "4", ProductName: "Pixel", CustomerName: "Dan", DateSold: day("2024-12-01"), WarrantyMonths: 12, Quantity: 1, Status: domain.SaleReturned},
	}))

	ids := func(records []Record) []string {
		out := []string{}
		for _, r := range records {
			out = append(out, r.ID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter", Filter{}, []string{"1", "2", "3", "4"}},
		{"product text", Filter{Query: "pixel"}, []string{"1", "4"}},
		{"customer text", Filter{Query: "BEN"}, []string{"2"}},
		{"imei text", Filter{Query: "8877"}, []string{"2"}},
		{"invoice text", Filter{Query: "inv-1"}, []string{"1"}},
		{"soon", Filter{Status: warranty.StatusSoon}, []string{"1"}},
		{"active", Filter{Status: warranty.StatusActive}, []string{"2"}},
		{"expired", Filter{Status: warranty.StatusExpired}, []string{"3"}},
		{"returned", Filter{Status: warranty.StatusReturned}, []string{"4"}},
		{"report window", Filter{Status: warranty.StatusSoon, Thresholds: warranty.Within(200)}, []string{"1", "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := f.sold.List(f.ctx, f.sess, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(records))
		})
	}

	records, err := f.sold.List(f.ctx, f.sess, Filter{Query: "INV-1"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 4, records[0].Warranty.DaysLeft)
}

func TestListReadsLegacyRecords(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.MemoryStore.Set(f.ctx, storage.SoldItemsKey,
		`[{"id":"1700000000000","productName":"Old","customerName":"X","invoiceNumber":"1","imei":"","dateSold":"2024-12-20","warrantyMonths":"1"}]`))

	records, err := f.sold.List(f.ctx, f.sess, Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].WarrantyMonths)
	assert.Equal(t, 1, records[0].Quantity)
	assert.Equal(t, domain.SaleActive, records[0].Status)
	assert.Equal(t, warranty.StatusActive, records[0].Warranty.Status)
}

func TestCreateInEveningWestOfUTCExpiresToday(t *testing.T) {
	newYork := time.FixedZone("EST", -5*60*60)
	evening := time.Date(2024, time.December, 28, 22, 0, 0, 0, newYork)

	f := newFixture(t, domain.Product{ID: "p1", Name: "Pixel", Quantity: 1})
	f.sess = session.New("alice", f.store, nil, session.WithClock(func() time.Time { return evening }))

	item, err := f.sold.Create(f.ctx, f.sess, SaleCommand{ProductName: "Pixel", WarrantyMonths: 0})
	require.NoError(t, err)
	assert.Equal(t, "2024-12-29", item.DateSold.String())

	records, err := f.sold.List(f.ctx, f.sess, Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, warranty.StatusSoon, records[0].Warranty.Status)
	assert.Equal(t, 0, records[0].Warranty.DaysLeft)
	assert.True(t, records[0].Warranty.ExpiresToday)
}

func TestListWithZeroDayWindow(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sold.Append(f.ctx, f.sess, []domain.SoldItem{
		// ends 2024-12-28, today
		{ID: "today", ProductName: "Pixel", DateSold: domain.NewDate(time.Date(2024, time.November, 28, 0, 0, 0, 0, time.UTC)), WarrantyMonths: 1, Status: domain.SaleActive},
		// ends 2024-12-30
		{ID: "later", ProductName: "Pixel", DateSold: domain.NewDate(time.Date(2024, time.November, 30, 0, 0, 0, 0, time.UTC)), WarrantyMonths: 1, Status: domain.SaleActive},
	}))

	records, err := f.sold.List(f.ctx, f.sess, Filter{Thresholds: warranty.Within(0)})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, warranty.StatusSoon, records[0].Warranty.Status)
	assert.Equal(t, warranty.StatusActive, records[1].Warranty.Status)

	records, err = f.sold.List(f.ctx, f.sess, Filter{})
	require.NoError(t, err)
	assert.Equal(t, warranty.StatusSoon, records[1].Warranty.Status)
}
