package kafka

import "time"

// LedgerChangedEvent mirrors a local change notification onto Kafka
type LedgerChangedEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Key       string    `json:"key"`
	User      string    `json:"user"`
	Marker    string    `json:"marker,omitempty"`
	Origin    string    `json:"origin"`
	ChangedAt time.Time `json:"changed_at"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleLine is one product taken by a committed sale
type SaleLine struct {
	SaleID      string `json:"sale_id"`
	ProductID   string `json:"product_id,omitempty"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

// SaleCommittedEvent announces a committed checkout
type SaleCommittedEvent struct {
	EventID   string     `json:"event_id"`
	EventType string     `json:"event_type"`
	User      string     `json:"user"`
	Invoice   string     `json:"invoice"`
	Lines     []SaleLine `json:"lines"`
	Units     int        `json:"units"`
	Timestamp time.Time  `json:"timestamp"`
}

// Event types
const (
	EventTypeLedgerChanged = "ledger.changed"
	EventTypeSaleCommitted = "sale.committed"
)

// Kafka topics
const (
	TopicLedgerChanges  = "ledger-changes"
	TopicSalesCommitted = "sales-committed"
)
