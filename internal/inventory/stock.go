package inventory

import (
	"github.com/tair/stock-ledger/internal/domain"
)

// Stock is a loaded working copy of a user's products. Changes made through it
// are written back in one store write by Ledger.Edit.
type Stock struct {
	products []domain.Product
}

func (s *Stock) index(id string) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns the product with id
func (s *Stock) Get(id string) (*domain.Product, bool) {
	i := s.index(id)
	if i < 0 {
		return nil, false
	}
	return &s.products[i], true
}

// FindByName returns the first product whose name matches case-insensitively
func (s *Stock) FindByName(name string) (*domain.Product, bool) {
	for i := range s.products {
		if s.products[i].NameMatches(name) {
			return &s.products[i], true
		}
	}
	return nil, false
}

// ResolveByName is FindByName but refuses to guess between duplicates
func (s *Stock) ResolveByName(name string) (*domain.Product, error) {
	var found *domain.Product
	for i := range s.products {
		if !s.products[i].NameMatches(name) {
			continue
		}
		if found != nil {
			return nil, domain.NewLedgerError("resolve product", name, domain.ErrAmbiguousProduct)
		}
		found = &s.products[i]
	}
	if found == nil {
		return nil, domain.NewLedgerError("resolve product", name, domain.ErrProductNotFound)
	}
	return found, nil
}

// Adjust adds delta to a product's quantity, rejecting a negative result
func (s *Stock) Adjust(id string, delta int) error {
	p, ok := s.Get(id)
	if !ok {
		return domain.NewLedgerError("adjust quantity", id, domain.ErrProductNotFound)
	}
	if p.Quantity+delta < 0 {
		return domain.NewLedgerError("adjust quantity", p.Name, domain.ErrWouldGoNegative)
	}
	p.Quantity += delta
	return nil
}

// Restore adds units back to a product, clamping the result at zero. It returns
// the new quantity.
func (s *Stock) Restore(id string, units int) (int, error) {
	p, ok := s.Get(id)
	if !ok {
		return 0, domain.NewLedgerError("restore quantity", id, domain.ErrProductNotFound)
	}
	p.Quantity = max(0, p.Quantity+units)
	return p.Quantity, nil
}

// Put inserts product or replaces the product with the same id
func (s *Stock) Put(product domain.Product) {
	if i := s.index(product.ID); i >= 0 {
		s.products[i] = product
		return
	}
	s.products = append(s.products, product)
}

// Remove deletes the product with id and reports whether it existed
func (s *Stock) Remove(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.products = append(s.products[:i], s.products[i+1:]...)
	return true
}

// Products returns the working copy
func (s *Stock) Products() []domain.Product {
	return s.products
}
