package cart

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tair/stock-ledger/internal/domain"
	"github.com/tair/stock-ledger/internal/inventory"
	"github.com/tair/stock-ledger/internal/session"
	"github.com/tair/stock-ledger/internal/storage"
	"github.com/tair/stock-ledger/pkg/logger"
)

// Manager owns a user's pending purchase list. Lines are checked against stock
// when added and never again; adding does not reserve anything in inventory.
type Manager struct {
	inventory *inventory.Ledger
}

// NewManager creates a cart manager validating against inv
func NewManager(inv *inventory.Ledger) *Manager {
	return &Manager{inventory: inv}
}

// Lines returns the cart in insertion order
func (m *Manager) Lines(ctx context.Context, sess *session.Session) ([]domain.CartLine, error) {
	lines, err := storage.LoadList[domain.CartLine](ctx, sess.Store, sess.CartKey())
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return lines, nil
}

func (m *Manager) save(ctx context.Context, sess *session.Session, lines []domain.CartLine) error {
	if err := storage.SaveList(ctx, sess.Store, sess.CartKey(), lines); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	sess.Touch(ctx, sess.CartKey(), storage.LastCartUpdateKey)
	return nil
}

// AddLine puts qty units of a product in the cart, merging with an existing line.
// The cart may never knowingly hold more units of a product than are in stock.
func (m *Manager) AddLine(ctx context.Context, sess *session.Session, productID string, qty int) (domain.CartLine, error) {
	if qty < 1 {
		return domain.CartLine{}, domain.NewLedgerError("add to cart", productID, domain.ErrInvalidInput)
	}

	product, err := m.inventory.Get(ctx, sess, productID)
	if err != nil {
		return domain.CartLine{}, err
	}
	if !product.InStock() {
		return domain.CartLine{}, domain.NewLedgerError("add to cart", product.Name, domain.ErrOutOfStock)
	}

	lines, err := m.Lines(ctx, sess)
	if err != nil {
		return domain.CartLine{}, err
	}

	idx := -1
	inCart := 0
	for i, line := range lines {
		if line.ProductID != productID {
			continue
		}
		if idx < 0 {
			idx = i
		}
		inCart += line.Quantity
	}

	if inCart+qty > product.Quantity {
		return domain.CartLine{}, domain.NewLedgerError("add to cart", product.Name, domain.ErrInsufficientStock)
	}

	var line domain.CartLine
	if idx >= 0 {
		lines[idx].Quantity += qty
		line = lines[idx]
	} else {
		line = domain.NewCartLine(product, qty)
		lines = append(lines, line)
	}

	if err := m.save(ctx, sess, lines); err != nil {
		return domain.CartLine{}, err
	}

	logger.Info(ctx).
		Str("user", sess.User).
		Str("product_id", productID).
		Int("added", qty).
		Int("line_quantity", line.Quantity).
		Msg("Product added to cart")
	return line, nil
}

// RemoveLine drops every line for productID. Removing an absent line is not an
// error.
func (m *Manager) RemoveLine(ctx context.Context, sess *session.Session, productID string) error {
	lines, err := m.Lines(ctx, sess)
	if err != nil {
		return err
	}

	kept := lines[:0]
	for _, line := range lines {
		if line.ProductID != productID {
			kept = append(kept, line)
		}
	}
	return m.save(ctx, sess, kept)
}

// Clear empties the cart
func (m *Manager) Clear(ctx context.Context, sess *session.Session) error {
	if err := sess.Store.Remove(ctx, sess.CartKey()); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	sess.Touch(ctx, sess.CartKey(), storage.LastCartUpdateKey)
	return nil
}

// Total is the sum of snapshot price times quantity over all lines
func (m *Manager) Total(ctx context.Context, sess *session.Session) (decimal.Decimal, error) {
	lines, err := m.Lines(ctx, sess)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(decimal.NewFromFloat(line.Price).Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total, nil
}
