//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	"github.com/tair/stock-ledger/internal/checkout"
	"github.com/tair/stock-ledger/internal/delivery/http"
	"github.com/tair/stock-ledger/internal/metrics"
	"github.com/tair/stock-ledger/internal/notify"
	"github.com/tair/stock-ledger/internal/report"
	"github.com/tair/stock-ledger/internal/session"
	"github.com/tair/stock-ledger/internal/storage"
)

// InitializeHTTPHandler initializes the HTTP handler with all dependencies
func InitializeHTTPHandler(
	store storage.Store,
	notifier notify.Notifier,
	identity session.Identity,
	m *metrics.Collector,
	announcer checkout.Announcer,
	opts report.Options,
) (*http.LedgerHandler, error) {
	wire.Build(
		LedgerSet,
		session.NewManager,
		report.NewService,
		http.NewLedgerHandler,
	)
	return nil, nil
}
