package app

import (
	"github.com/google/wire"

	"github.com/tair/stock-ledger/internal/cart"
	"github.com/tair/stock-ledger/internal/checkout"
	"github.com/tair/stock-ledger/internal/inventory"
	"github.com/tair/stock-ledger/internal/metrics"
	"github.com/tair/stock-ledger/internal/sold"
)

// ProvideCheckoutService builds the checkout service. announcer may be nil.
func ProvideCheckoutService(c *cart.Manager, inv *inventory.Ledger, s *sold.Ledger, m *metrics.Collector, announcer checkout.Announcer) *checkout.Service {
	if announcer == nil {
		return checkout.NewService(c, inv, s, m)
	}
	return checkout.NewService(c, inv, s, m, checkout.WithAnnouncer(announcer))
}

// Wire sets
var LedgerSet = wire.NewSet(
	inventory.NewLedger,
	cart.NewManager,
	sold.NewLedger,
	ProvideCheckoutService,
)
