package domain

import "encoding/json"

// CartLine is a reservation intent for one product. Name, price and expiry are
// snapshots taken when the line was created and are not re-synced.
type CartLine struct {
	ProductID  string  `json:"id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	ExpiryDate Date    `json:"expiryDate"`
	Quantity   int     `json:"quantity"`
}

// UnmarshalJSON accepts price and quantity as numbers or numeric strings
func (l *CartLine) UnmarshalJSON(data []byte) error {
	type alias CartLine
	aux := struct {
		*alias
		Price    looseFloat `json:"price"`
		Quantity looseInt   `json:"quantity"`
	}{alias: (*alias)(l)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	l.Price = float64(aux.Price)
	l.Quantity = int(aux.Quantity)
	return nil
}

// NewCartLine snapshots product into a line of qty units
func NewCartLine(product Product, qty int) CartLine {
	return CartLine{
		ProductID:  product.ID,
		Name:       product.Name,
		Price:      product.Price,
		ExpiryDate: product.ExpiryDate,
		Quantity:   qty,
	}
}
