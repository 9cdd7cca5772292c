package domain

import (
	"encoding/json"
	"strings"
)

// Product is a stocked item. Quantity is the only source of truth for availability.
type Product struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	Supplier   string  `json:"supplier,omitempty"`
	ExpiryDate Date    `json:"expiryDate"`
}

// UnmarshalJSON accepts price and quantity as numbers or numeric strings
func (p *Product) UnmarshalJSON(data []byte) error {
	type alias Product
	aux := struct {
		*alias
		Price    looseFloat `json:"price"`
		Quantity looseInt   `json:"quantity"`
	}{alias: (*alias)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.Price = float64(aux.Price)
	p.Quantity = int(aux.Quantity)
	return nil
}

// Validate checks the fields every stored product must satisfy
func (p *Product) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return NewLedgerError("validate product", p.ID, ErrInvalidInput)
	case p.Price < 0:
		return NewLedgerError("validate product", p.Name, ErrInvalidInput)
	case p.Quantity < 0:
		return NewLedgerError("validate product", p.Name, ErrInvalidInput)
	}
	return nil
}

// InStock reports whether at least one unit is available
func (p *Product) InStock() bool {
	return p.Quantity > 0
}

// IsLowStock reports whether quantity is below threshold
func (p *Product) IsLowStock(threshold int) bool {
	return p.Quantity < threshold
}

// NameMatches is the case-insensitive exact comparison sold items link by
func (p *Product) NameMatches(name string) bool {
	return strings.EqualFold(strings.TrimSpace(p.Name), strings.TrimSpace(name))
}
