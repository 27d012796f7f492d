package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/kilianp07/ecas/auth"
)

// PricesConfig configures the day-ahead price connector.
type PricesConfig struct {
	// Source is the connector id, e.g. "wholesale_market".
	Source  string    `json:"source"`
	BaseURL string    `json:"base_url"`
	Auth    auth.Conf `json:"auth"`
	// Scale converts market prices to instance units; 0.001 turns EUR/MWh
	// into EUR/kWh.
	Scale float64 `json:"scale"`
	// Timezone anchors the market day.
	Timezone string `json:"timezone"`
}

func (c *PricesConfig) SetDefaults() {
	if c.Source == "" {
		c.Source = "wholesale_market"
	}
	if c.Scale == 0 {
		c.Scale = 0.001
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Paris"
	}
}

func (c PricesConfig) Validate() error {
	if c.Scale < 0 {
		return fmt.Errorf("scale must be >= 0")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	return nil
}

// Location returns the market time zone.
func (c PricesConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
