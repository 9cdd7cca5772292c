package sold

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tair/stock-ledger/internal/domain"
	"github.com/tair/stock-ledger/internal/inventory"
	"github.com/tair/stock-ledger/internal/metrics"
	"github.com/tair/stock-ledger/internal/session"
	"github.com/tair/stock-ledger/internal/storage"
	"github.com/tair/stock-ledger/pkg/logger"
)

// SaleCommand carries the editable fields of a sale
type SaleCommand struct {
	ProductName    string
	CustomerName   string
	InvoiceNumber  string
	IMEI           string
	DateSold       domain.Date
	WarrantyMonths int
	Status         domain.SaleStatus
}

func (cmd *SaleCommand) validate(op string) error {
	cmd.ProductName = strings.TrimSpace(cmd.ProductName)
	if cmd.ProductName == "" {
		return domain.NewLedgerError(op, "productName", domain.ErrInvalidInput)
	}
	if cmd.WarrantyMonths < 0 {
		return domain.NewLedgerError(op, "warrantyMonths", domain.ErrInvalidInput)
	}
	if cmd.Status != "" && !domain.ValidStatus(cmd.Status) {
		return domain.NewLedgerError(op, string(cmd.Status), domain.ErrInvalidInput)
	}
	return nil
}

// Ledger owns the sold-item records. Every sale that takes stock is paired with an
// inventory change; when the second of the two writes fails the first is undone.
type Ledger struct {
	inventory *inventory.Ledger
	metrics   *metrics.Collector
}

// NewLedger creates a sold-item ledger. m may be nil.
func NewLedger(inv *inventory.Ledger, m *metrics.Collector) *Ledger {
	return &Ledger{inventory: inv, metrics: m}
}

func (l *Ledger) load(ctx context.Context, sess *session.Session) ([]domain.SoldItem, error) {
	items, err := storage.LoadList[domain.SoldItem](ctx, sess.Store, storage.SoldItemsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load sold items: %w", err)
	}
	return items, nil
}

func (l *Ledger) save(ctx context.Context, sess *session.Session, items []domain.SoldItem) error {
	if err := storage.SaveList(ctx, sess.Store, storage.SoldItemsKey, items); err != nil {
		return fmt.Errorf("failed to save sold items: %w", err)
	}
	sess.Touch(ctx, storage.SoldItemsKey, "")
	return nil
}

// saveOrRevert writes items and, when that fails, puts the products back to the
// snapshot taken before the paired inventory change
func (l *Ledger) saveOrRevert(ctx context.Context, sess *session.Session, op string, items []domain.SoldItem, previous []domain.Product) error {
	err := l.save(ctx, sess, items)
	if err == nil {
		return nil
	}
	if previous == nil {
		return err
	}
	if revertErr := l.inventory.Revert(ctx, sess, previous); revertErr != nil {
		logger.Error(ctx).
			Err(revertErr).
			AnErr("cause", err).
			Str("user", sess.User).
			Msg("Stock revert failed, products and sold items may disagree")
		return domain.NewLedgerError(op, "", fmt.Errorf("%w: %w", domain.ErrPartialFailure, errors.Join(err, revertErr)))
	}
	return err
}

func indexOf(items []domain.SoldItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns the sale with id
func (l *Ledger) Get(ctx context.Context, sess *session.Session, id string) (domain.SoldItem, error) {
	items, err := l.load(ctx, sess)
	if err != nil {
		return domain.SoldItem{}, err
	}
	i := indexOf(items, id)
	if i < 0 {
		return domain.SoldItem{}, domain.NewLedgerError("get sale", id, domain.ErrNotFound)
	}
	return items[i], nil
}

// All returns every stored sale, returned ones included
func (l *Ledger) All(ctx context.Context, sess *session.Session) ([]domain.SoldItem, error) {
	return l.load(ctx, sess)
}

// Create records a manual sale of one unit. The product is found by name and must
// be in stock; on any failure nothing is written.
func (l *Ledger) Create(ctx context.Context, sess *session.Session, cmd SaleCommand) (domain.SoldItem, error) {
	if err := cmd.validate("record sale"); err != nil {
		return domain.SoldItem{}, err
	}

	items, err := l.load(ctx, sess)
	if err != nil {
		return domain.SoldItem{}, err
	}

	var productID string
	previous, err := l.inventory.Edit(ctx, sess, func(s *inventory.Stock) error {
		p, err := s.ResolveByName(cmd.ProductName)
		if err != nil {
			return err
		}
		if !p.InStock() {
			return domain.NewLedgerError("record sale", p.Name, domain.ErrOutOfStock)
		}
		productID = p.ID
		return s.Adjust(p.ID, -1)
	})
	if err != nil {
		return domain.SoldItem{}, err
	}

	item := domain.SoldItem{
		ID:             uuid.New().String(),
		ProductName:    cmd.ProductName,
		ProductID:      productID,
		CustomerName:   cmd.CustomerName,
		InvoiceNumber:  cmd.InvoiceNumber,
		IMEI:           cmd.IMEI,
		DateSold:       cmd.DateSold,
		WarrantyMonths: cmd.WarrantyMonths,
		Quantity:       1,
		Status:         cmd.Status,
	}
	if item.DateSold.IsZero() {
		item.DateSold = sess.Today()
	}
	if item.Status == "" {
		item.Status = domain.SaleActive
	}

	if err := l.saveOrRevert(ctx, sess, "record sale", append(items, item), previous); err != nil {
		return domain.SoldItem{}, err
	}

	l.metrics.Sale("manual", 1)
	logger.Info(ctx).
		Str("user", sess.User).
		Str("sale_id", item.ID).
		Str("product_id", productID).
		Str("invoice", item.InvoiceNumber).
		Msg("Sale recorded")
	return item, nil
}

// Append stores already-committed sales. Stock must have been taken by the caller.
func (l *Ledger) Append(ctx context.Context, sess *session.Session, sales []domain.SoldItem) error {
	items, err := l.load(ctx, sess)
	if err != nil {
		return err
	}
	return l.save(ctx, sess, append(items, sales...))
}

// Update replaces the fields of a sale. Changing the product name moves the sold
// units from the old product back into stock and takes them from the new one; if
// the new product cannot supply them the edit is rejected and stock is untouched.
func (l *Ledger) Update(ctx context.Context, sess *session.Session, id string, cmd SaleCommand) (domain.SoldItem, error) {
	if err := cmd.validate("update sale"); err != nil {
		return domain.SoldItem{}, err
	}

	items, err := l.load(ctx, sess)
	if err != nil {
		return domain.SoldItem{}, err
	}
	i := indexOf(items, id)
	if i < 0 {
		return domain.SoldItem{}, domain.NewLedgerError("update sale", id, domain.ErrNotFound)
	}

	old := items[i]
	updated := old
	updated.ProductName = cmd.ProductName
	updated.CustomerName = cmd.CustomerName
	updated.InvoiceNumber = cmd.InvoiceNumber
	updated.IMEI = cmd.IMEI
	updated.WarrantyMonths = cmd.WarrantyMonths
	if !cmd.DateSold.IsZero() {
		updated.DateSold = cmd.DateSold
	}
	if cmd.Status != "" {
		updated.Status = cmd.Status
	}

	var previous []domain.Product
	if updated.ProductName != old.ProductName {
		units := old.Units()
		previous, err = l.inventory.Edit(ctx, sess, func(s *inventory.Stock) error {
			if p, ok := s.FindByName(old.ProductName); ok {
				if _, err := s.Restore(p.ID, units); err != nil {
					return err
				}
			}
			p, err := s.ResolveByName(updated.ProductName)
			if err != nil {
				return err
			}
			if !p.InStock() {
				return domain.NewLedgerError("update sale", p.Name, domain.ErrOutOfStock)
			}
			if p.Quantity < units {
				return domain.NewLedgerError("update sale", p.Name, domain.ErrInsufficientStock)
			}
			updated.ProductID = p.ID
			return s.Adjust(p.ID, -units)
		})
		if err != nil {
			return domain.SoldItem{}, err
		}
	}

	items[i] = updated
	if err := l.saveOrRevert(ctx, sess, "update sale", items, previous); err != nil {
		return domain.SoldItem{}, err
	}

	logger.Info(ctx).
		Str("user", sess.User).
		Str("sale_id", id).
		Str("old_product", old.ProductName).
		Str("new_product", updated.ProductName).
		Msg("Sale updated")
	return updated, nil
}

// MarkReturned flags a sale as returned. Stock is not touched.
func (l *Ledger) MarkReturned(ctx context.Context, sess *session.Session, id string) (domain.SoldItem, error) {
	items, err := l.load(ctx, sess)
	if err != nil {
		return domain.SoldItem{}, err
	}
	i := indexOf(items, id)
	if i < 0 {
		return domain.SoldItem{}, domain.NewLedgerError("return sale", id, domain.ErrNotFound)
	}

	items[i].Status = domain.SaleReturned
	if err := l.save(ctx, sess, items); err != nil {
		return domain.SoldItem{}, err
	}
	logger.Info(ctx).Str("user", sess.User).Str("sale_id", id).Msg("Sale marked returned")
	return items[i], nil
}

// Delete removes a sale and puts its units back on the product with the same name.
// A sale whose product no longer exists is removed without any stock change.
func (l *Ledger) Delete(ctx context.Context, sess *session.Session, id string) error {
	items, err := l.load(ctx, sess)
	if err != nil {
		return err
	}
	i := indexOf(items, id)
	if i < 0 {
		return domain.NewLedgerError("delete sale", id, domain.ErrNotFound)
	}
	item := items[i]

	restored := false
	previous, err := l.inventory.Edit(ctx, sess, func(s *inventory.Stock) error {
		p, ok := s.FindByName(item.ProductName)
		if !ok {
			return domain.NewLedgerError("delete sale", item.ProductName, domain.ErrProductNotFound)
		}
		restored = true
		_, err := s.Restore(p.ID, item.Units())
		return err
	})
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		previous = nil
	case err != nil:
		return err
	}

	items = append(items[:i], items[i+1:]...)
	if err := l.saveOrRevert(ctx, sess, "delete sale", items, previous); err != nil {
		return err
	}

	if restored {
		l.metrics.Adjustment("restore", item.Units())
	}
	logger.Info(ctx).
		Str("user", sess.User).
		Str("sale_id", id).
		Bool("stock_restored", restored).
		Msg("Sale deleted")
	return nil
}
