// Package checkout moves a cart into committed sales. It runs in two phases:
// Validate checks every line without writing anything, Commit takes the stock,
// records the sales and clears the cart.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tair/stock-ledger/internal/cart"
	"github.com/tair/stock-ledger/internal/domain"
	"github.com/tair/stock-ledger/internal/inventory"
	"github.com/tair/stock-ledger/internal/metrics"
	"github.com/tair/stock-ledger/internal/session"
	"github.com/tair/stock-ledger/internal/sold"
	"github.com/tair/stock-ledger/pkg/logger"
)

// State of a checkout
type State string

// Checkout states
const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateCommitted  State = "committed"
	StateAborted    State = "aborted"
)

// Plan is a validated cart, ready to commit
type Plan struct {
	User  string            `json:"user"`
	Lines []domain.CartLine `json:"lines"`
}

// Units is the number of units the plan takes from stock
func (p Plan) Units() int {
	n := 0
	for _, l := range p.Lines {
		n += l.Quantity
	}
	return n
}

// Result describes a finished checkout
type Result struct {
	State   State             `json:"state"`
	Invoice string            `json:"invoice,omitempty"`
	Sales   []domain.SoldItem `json:"sales,omitempty"`
}

// Announcer is told about committed checkouts. Announcing is best effort and
// never undoes a commit.
type Announcer interface {
	SaleCommitted(ctx context.Context, user, invoice string, sales []domain.SoldItem) error
}

// Service runs checkouts
type Service struct {
	cart      *cart.Manager
	inventory *inventory.Ledger
	sold      *sold.Ledger
	metrics   *metrics.Collector
	announcer Announcer
}

// Option configures a Service
type Option func(*Service)

// WithAnnouncer sets the announcer for committed checkouts
func WithAnnouncer(a Announcer) Option {
	return func(s *Service) {
		s.announcer = a
	}
}

// NewService creates a checkout service. m may be nil.
func NewService(c *cart.Manager, inv *inventory.Ledger, s *sold.Ledger, m *metrics.Collector, opts ...Option) *Service {
	svc := &Service{cart: c, inventory: inv, sold: s, metrics: m}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// NewInvoiceNumber generates the invoice shared by all sales of one checkout
func NewInvoiceNumber() string {
	return fmt.Sprintf("CART-%s", uuid.New().String()[:8])
}

// Validate checks that every cart line still resolves to a product with enough
// stock. It never writes.
func (s *Service) Validate(ctx context.Context, sess *session.Session) (Plan, error) {
	lines, err := s.cart.Lines(ctx, sess)
	if err != nil {
		return Plan{}, err
	}
	if len(lines) == 0 {
		return Plan{}, domain.NewLedgerError("checkout", "", domain.ErrEmptyCart)
	}

	products, err := s.inventory.List(ctx, sess)
	if err != nil {
		return Plan{}, err
	}
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, line := range lines {
		p, ok := byID[line.ProductID]
		if !ok {
			return Plan{}, domain.NewLedgerError("checkout", line.Name, domain.ErrProductNotFound)
		}
		if p.Quantity < line.Quantity {
			return Plan{}, domain.NewLedgerError("checkout", line.Name, domain.ErrInsufficientStock)
		}
	}

	return Plan{User: sess.User, Lines: lines}, nil
}

// Commit applies a validated plan: all stock decrements in one write, then one
// sale per line, then the cart is cleared. Stock that changed since Validate makes
// the decrement fail with ErrWouldGoNegative before anything is written.
func (s *Service) Commit(ctx context.Context, sess *session.Session, plan Plan) (Result, error) {
	if len(plan.Lines) == 0 {
		return Result{State: StateAborted}, domain.NewLedgerError("checkout", "", domain.ErrEmptyCart)
	}

	deltas := make([]inventory.Delta, 0, len(plan.Lines))
	for _, line := range plan.Lines {
		deltas = append(deltas, inventory.Delta{ProductID: line.ProductID, Change: -line.Quantity})
	}
	previous, err := s.inventory.ApplyDeltas(ctx, sess, "checkout", deltas)
	if err != nil {
		return Result{State: StateAborted}, err
	}

	invoice := NewInvoiceNumber()
	today := sess.Today()
	sales := make([]domain.SoldItem, 0, len(plan.Lines))
	for _, line := range plan.Lines {
		sales = append(sales, domain.SoldItem{
			ID:             uuid.New().String(),
			ProductName:    line.Name,
			ProductID:      line.ProductID,
			CustomerName:   domain.WalkInCustomer,
			InvoiceNumber:  invoice,
			DateSold:       today,
			WarrantyMonths: 0,
			Quantity:       line.Quantity,
			Status:         domain.SaleActive,
		})
	}

	if err := s.sold.Append(ctx, sess, sales); err != nil {
		if revertErr := s.inventory.Revert(ctx, sess, previous); revertErr != nil {
			logger.Error(ctx).
				Err(revertErr).
				AnErr("cause", err).
				Str("user", sess.User).
				Str("invoice", invoice).
				Msg("Checkout stock revert failed")
			return Result{State: StateAborted}, domain.NewLedgerError("checkout", invoice,
				fmt.Errorf("%w: %w", domain.ErrPartialFailure, errors.Join(err, revertErr)))
		}
		return Result{State: StateAborted}, err
	}

	result := Result{State: StateCommitted, Invoice: invoice, Sales: sales}
	if err := s.cart.Clear(ctx, sess); err != nil {
		// stock and sales are consistent, only the cart is stale
		return result, domain.NewLedgerError("checkout", invoice, fmt.Errorf("%w: %w", domain.ErrPartialFailure, err))
	}
	return result, nil
}

// Checkout validates and commits the session's cart
func (s *Service) Checkout(ctx context.Context, sess *session.Session) (Result, error) {
	state := StateIdle
	logger.Debug(ctx).Str("user", sess.User).Str("state", string(state)).Msg("Checkout started")

	state = StateValidating
	plan, err := s.Validate(ctx, sess)
	if err != nil {
		s.metrics.Checkout("rejected")
		logger.Warn(ctx).Err(err).Str("user", sess.User).Str("state", string(state)).Msg("Checkout rejected")
		return Result{State: StateAborted}, err
	}

	result, err := s.Commit(ctx, sess, plan)
	if err != nil {
		outcome := "failed"
		if errors.Is(err, domain.ErrPartialFailure) {
			outcome = "partial"
		}
		s.metrics.Checkout(outcome)
		logger.Error(ctx).Err(err).Str("user", sess.User).Msg("Checkout commit failed")
		return result, err
	}

	s.metrics.Checkout("committed")
	s.metrics.Sale("checkout", plan.Units())
	if s.announcer != nil {
		if err := s.announcer.SaleCommitted(ctx, sess.User, result.Invoice, result.Sales); err != nil {
			logger.Warn(ctx).Err(err).Str("invoice", result.Invoice).Msg("Failed to announce checkout")
		}
	}
	logger.Info(ctx).
		Str("user", sess.User).
		Str("invoice", result.Invoice).
		Int("lines", len(plan.Lines)).
		Int("units", plan.Units()).
		Msg("Checkout committed")
	return result, nil
}
