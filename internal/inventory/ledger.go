package inventory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/tair/stock-ledger/internal/domain"
	"github.com/tair/stock-ledger/internal/metrics"
	"github.com/tair/stock-ledger/internal/session"
	"github.com/tair/stock-ledger/internal/storage"
	"github.com/tair/stock-ledger/pkg/logger"
)

// DefaultLowStockThreshold flags products with fewer units than this
const DefaultLowStockThreshold = 10

// Delta is a signed quantity change for one product
type Delta struct {
	ProductID string
	Change    int
}

// Ledger owns product stock in a user's namespace. It holds no per-user state;
// every call names its session.
type Ledger struct {
	metrics *metrics.Collector
}

// NewLedger creates an inventory ledger. m may be nil.
func NewLedger(m *metrics.Collector) *Ledger {
	return &Ledger{metrics: m}
}

// load reads the user's products. Until the user's key has been written once,
// the legacy shared products key is copied into the user's namespace. After that
// the user's key is authoritative, even when it holds an empty list.
func (l *Ledger) load(ctx context.Context, sess *session.Session) ([]domain.Product, error) {
	raw, found, err := sess.Store.Get(ctx, sess.ProductsKey())
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	products := storage.DecodeList[domain.Product](ctx, sess.ProductsKey(), raw)
	if found && raw != "" {
		return products, nil
	}

	legacy, err := storage.LoadList[domain.Product](ctx, sess.Store, storage.LegacyProductsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load legacy products: %w", err)
	}
	if len(legacy) == 0 {
		return products, nil
	}

	if err := storage.SaveList(ctx, sess.Store, sess.ProductsKey(), legacy); err != nil {
		return nil, fmt.Errorf("failed to migrate legacy products: %w", err)
	}
	logger.Info(ctx).
		Str("user", sess.User).
		Int("count", len(legacy)).
		Msg("Migrated legacy products into user namespace")
	return legacy, nil
}

func (l *Ledger) save(ctx context.Context, sess *session.Session, products []domain.Product) error {
	if err := storage.SaveList(ctx, sess.Store, sess.ProductsKey(), products); err != nil {
		return fmt.Errorf("failed to save products: %w", err)
	}
	sess.Touch(ctx, sess.ProductsKey(), storage.LastProductsUpdateKey)
	return nil
}

// List returns every product in stored order
func (l *Ledger) List(ctx context.Context, sess *session.Session) ([]domain.Product, error) {
	return l.load(ctx, sess)
}

// Get returns the product with id
func (l *Ledger) Get(ctx context.Context, sess *session.Session, id string) (domain.Product, error) {
	products, err := l.load(ctx, sess)
	if err != nil {
		return domain.Product{}, err
	}
	stock := Stock{products: products}
	p, ok := stock.Get(id)
	if !ok {
		return domain.Product{}, domain.NewLedgerError("get product", id, domain.ErrProductNotFound)
	}
	return *p, nil
}

// FindByName returns the first product whose name matches case-insensitively
func (l *Ledger) FindByName(ctx context.Context, sess *session.Session, name string) (domain.Product, error) {
	products, err := l.load(ctx, sess)
	if err != nil {
		return domain.Product{}, err
	}
	stock := Stock{products: products}
	p, ok := stock.FindByName(name)
	if !ok {
		return domain.Product{}, domain.NewLedgerError("find product", name, domain.ErrProductNotFound)
	}
	return *p, nil
}

// ResolveByName is FindByName but fails with ErrAmbiguousProduct on duplicates
func (l *Ledger) ResolveByName(ctx context.Context, sess *session.Session, name string) (domain.Product, error) {
	products, err := l.load(ctx, sess)
	if err != nil {
		return domain.Product{}, err
	}
	stock := Stock{products: products}
	p, err := stock.ResolveByName(name)
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

// Edit loads the products, applies fn to a working copy and writes the result
// back in one write. Nothing is written when fn fails. The products as they were
// before the edit are returned so callers can Revert.
func (l *Ledger) Edit(ctx context.Context, sess *session.Session, fn func(*Stock) error) ([]domain.Product, error) {
	products, err := l.load(ctx, sess)
	if err != nil {
		return nil, err
	}

	previous := slices.Clone(products)
	stock := &Stock{products: products}
	if err := fn(stock); err != nil {
		return nil, err
	}
	if err := l.save(ctx, sess, stock.Products()); err != nil {
		return nil, err
	}
	return previous, nil
}

// Revert writes back a snapshot returned by Edit
func (l *Ledger) Revert(ctx context.Context, sess *session.Session, previous []domain.Product) error {
	if err := l.save(ctx, sess, previous); err != nil {
		return fmt.Errorf("failed to revert products: %w", err)
	}
	logger.Warn(ctx).Str("user", sess.User).Msg("Reverted product stock after failed write")
	return nil
}

// Upsert inserts product, or fully replaces the stored product with the same id.
// An empty id gets a generated one.
func (l *Ledger) Upsert(ctx context.Context, sess *session.Session, product domain.Product) (domain.Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	if err := product.Validate(); err != nil {
		return domain.Product{}, err
	}
	if product.ID == "" {
		product.ID = uuid.New().String()
	}

	if _, err := l.Edit(ctx, sess, func(s *Stock) error {
		s.Put(product)
		return nil
	}); err != nil {
		return domain.Product{}, err
	}

	logger.Info(ctx).
		Str("user", sess.User).
		Str("product_id", product.ID).
		Str("name", product.Name).
		Int("quantity", product.Quantity).
		Msg("Product saved")
	return product, nil
}

// Delete removes the product with id
func (l *Ledger) Delete(ctx context.Context, sess *session.Session, id string) error {
	_, err := l.Edit(ctx, sess, func(s *Stock) error {
		if !s.Remove(id) {
			return domain.NewLedgerError("delete product", id, domain.ErrProductNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx).Str("user", sess.User).Str("product_id", id).Msg("Product deleted")
	return nil
}

// AdjustQuantity adds delta to a product's quantity. A change that would leave
// the quantity negative is rejected with ErrWouldGoNegative and nothing is written.
func (l *Ledger) AdjustQuantity(ctx context.Context, sess *session.Session, id string, delta int) (domain.Product, error) {
	var updated domain.Product
	_, err := l.Edit(ctx, sess, func(s *Stock) error {
		if err := s.Adjust(id, delta); err != nil {
			return err
		}
		p, _ := s.Get(id)
		updated = *p
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}

	l.metrics.Adjustment("manual", delta)
	logger.Info(ctx).
		Str("user", sess.User).
		Str("product_id", id).
		Int("delta", delta).
		Int("quantity", updated.Quantity).
		Msg("Product quantity adjusted")
	return updated, nil
}

// ApplyDeltas applies every delta or none. It returns the pre-change snapshot.
func (l *Ledger) ApplyDeltas(ctx context.Context, sess *session.Session, reason string, deltas []Delta) ([]domain.Product, error) {
	previous, err := l.Edit(ctx, sess, func(s *Stock) error {
		for _, d := range deltas {
			if err := s.Adjust(d.ProductID, d.Change); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, d := range deltas {
		l.metrics.Adjustment(reason, d.Change)
	}
	return previous, nil
}

// Restore adds units back to a product, clamping at zero. This is the policy for
// undoing a sale; commits use the rejecting AdjustQuantity/ApplyDeltas instead.
func (l *Ledger) Restore(ctx context.Context, sess *session.Session, id string, units int) (domain.Product, error) {
	var updated domain.Product
	_, err := l.Edit(ctx, sess, func(s *Stock) error {
		if _, err := s.Restore(id, units); err != nil {
			return err
		}
		p, _ := s.Get(id)
		updated = *p
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}

	l.metrics.Adjustment("restore", units)
	return updated, nil
}

// LowStock lists products with quantity below threshold. A threshold of zero or
// less uses DefaultLowStockThreshold.
func (l *Ledger) LowStock(ctx context.Context, sess *session.Session, threshold int) ([]domain.Product, error) {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	products, err := l.load(ctx, sess)
	if err != nil {
		return nil, err
	}

	low := []domain.Product{}
	for _, p := range products {
		if p.IsLowStock(threshold) {
			low = append(low, p)
		}
	}
	l.metrics.LowStock(sess.User, len(low))
	return low, nil
}
