package domain

import (
	"errors"
	"fmt"
)

// Error kinds returned by the ledgers. Callers match them with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrProductNotFound   = fmt.Errorf("product %w", ErrNotFound)
	ErrOutOfStock        = errors.New("product is out of stock")
	ErrInsufficientStock = errors.New("not enough stock")
	ErrInvalidInput      = errors.New("invalid input")
	ErrWouldGoNegative   = errors.New("quantity would go negative")
	ErrAmbiguousProduct  = errors.New("product name matches more than one product")
	ErrEmptyCart         = errors.New("cart is empty")

	// ErrPartialFailure means a multi-key mutation was applied in part and the
	// compensating write did not go through. Stored data may be inconsistent.
	ErrPartialFailure = errors.New("partial failure")
)

// LedgerError names the record an operation failed on
type LedgerError struct {
	Op   string
	Item string
	Err  error
}

func (e *LedgerError) Error() string {
	if e.Item == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Item, e.Err)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// NewLedgerError wraps err with the failing operation and item
func NewLedgerError(op, item string, err error) error {
	return &LedgerError{Op: op, Item: item, Err: err}
}

// IsStockConflict reports whether err is one of the quantity constraint kinds
func IsStockConflict(err error) bool {
	return errors.Is(err, ErrOutOfStock) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrWouldGoNegative)
}
