package domain

import (
	"encoding/json"
	"strings"
)

// SaleStatus is the lifecycle state stored on a sold item
type SaleStatus string

// Sold item statuses
const (
	SaleActive   SaleStatus = "active"
	SaleReturned SaleStatus = "returned"
)

// WalkInCustomer is the customer name recorded for cart checkouts
const WalkInCustomer = "Walk-in"

// SoldItem is a historical sale. It references its product by name; ProductID is
// resolved when the sale is recorded and kept alongside for diagnostics.
type SoldItem struct {
	ID             string     `json:"id"`
	ProductName    string     `json:"productName"`
	ProductID      string     `json:"productId,omitempty"`
	CustomerName   string     `json:"customerName"`
	InvoiceNumber  string     `json:"invoiceNumber"`
	IMEI           string     `json:"imei"`
	DateSold       Date       `json:"dateSold"`
	WarrantyMonths int        `json:"warrantyMonths"`
	Quantity       int        `json:"quantity,omitempty"`
	Status         SaleStatus `json:"status"`
}

// UnmarshalJSON accepts numeric fields as numbers or strings and fills defaults
// for records written before quantity and status were always set.
func (s *SoldItem) UnmarshalJSON(data []byte) error {
	type alias SoldItem
	aux := struct {
		*alias
		WarrantyMonths looseInt `json:"warrantyMonths"`
		Quantity       looseInt `json:"quantity"`
	}{alias: (*alias)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.WarrantyMonths = int(aux.WarrantyMonths)
	s.Quantity = int(aux.Quantity)
	if s.Quantity < 1 {
		s.Quantity = 1
	}
	if s.Status == "" {
		s.Status = SaleActive
	}
	return nil
}

// Units is the number of stock units the record accounts for
func (s *SoldItem) Units() int {
	if s.Quantity < 1 {
		return 1
	}
	return s.Quantity
}

// IsReturned reports whether the sale was returned
func (s *SoldItem) IsReturned() bool {
	return s.Status == SaleReturned
}

// Matches is the free-text search over product, customer, invoice and IMEI
func (s *SoldItem) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, field := range []string{s.ProductName, s.CustomerName, s.InvoiceNumber, s.IMEI} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// ValidStatus reports whether st is a known sale status
func ValidStatus(st SaleStatus) bool {
	return st == SaleActive || st == SaleReturned
}
