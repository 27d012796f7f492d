// Package connectors fetches day-ahead electricity prices from market APIs
// and turns them into price schedules.
package connectors

import (
	"context"
	"time"

	"github.com/kilianp07/ecas/auth"
)

// ErrIncompatibleOption is the format of the error returned when an option
// does not apply to a source.
const ErrIncompatibleOption = "option %s is not compatible with %s"

// Option configures a PriceSource before a fetch.
type Option func(PriceSource) error

// PriceSource fetches market prices for a time range.
type PriceSource interface {
	Fetch(ctx context.Context, authClient *auth.ClientCred, opts ...Option) (PriceResponse, error)
}

// PricePoint is a market price over [Start, End).
type PricePoint struct {
	Start time.Time
	End   time.Time
	Price float64
}

// PriceResponse exposes fetched prices.
type PriceResponse interface {
	Points() ([]PricePoint, error)
	PriceChartHTML() (string, error)
}
