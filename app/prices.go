package app

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/ecas/auth"
	"github.com/kilianp07/ecas/config"
	"github.com/kilianp07/ecas/connectors"
	"github.com/kilianp07/ecas/connectors/factory"
	"github.com/kilianp07/ecas/connectors/wholesalemarket"
	"github.com/kilianp07/ecas/core/model"
)

// FetchPrices downloads the day-ahead prices of day and resamples them to the
// given resolution. The day is taken at midnight in the configured market
// time zone. Credentials are only used when a client id is configured.
func FetchPrices(ctx context.Context, cfg config.PricesConfig, day time.Time, resolution int) (model.PriceSchedule, connectors.PriceResponse, error) {
	src, err := factory.NewPriceSource(cfg.Source)
	if err != nil {
		return nil, nil, err
	}
	var cred *auth.ClientCred
	if cfg.Auth.ClientID != "" {
		if err := cfg.Auth.Validate(); err != nil {
			return nil, nil, fmt.Errorf("prices auth: %w", err)
		}
		cred = auth.NewClientCred(cfg.Auth)
	}
	loc := cfg.Location()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	opts := []connectors.Option{wholesalemarket.WithDay(start)}
	if cfg.BaseURL != "" {
		opts = append(opts, wholesalemarket.WithBaseURL(cfg.BaseURL))
	}
	resp, err := src.Fetch(ctx, cred, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch prices: %w", err)
	}
	pts, err := resp.Points()
	if err != nil {
		return nil, nil, err
	}
	ps, err := connectors.Resample(pts, start, resolution, cfg.Scale)
	if err != nil {
		return nil, nil, fmt.Errorf("resample prices: %w", err)
	}
	return ps, resp, nil
}
