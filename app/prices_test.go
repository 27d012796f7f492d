package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ecas/config"
)

type value struct {
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Price     float64 `json:"price"`
}

func TestFetchPrices(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, loc)
	var values []value
	for h := 0; h < 24; h++ {
		s := day.Add(time.Duration(h) * time.Hour)
		values = append(values, value{s.Format(time.RFC3339), s.Add(time.Hour).Format(time.RFC3339), float64(100 * h)})
	}
	body, err := json.Marshal(map[string]any{"france_power_exchanges": []any{map[string]any{"values": values}}})
	require.NoError(t, err)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer api.Close()

	// Etc/GMT-1 is UTC+1, matching the fixture
	cfg := config.PricesConfig{BaseURL: api.URL, Timezone: "Etc/GMT-1"}
	cfg.SetDefaults()
	ps, resp, err := FetchPrices(context.Background(), cfg, day, 360)
	require.NoError(t, err)
	require.Len(t, ps, 4)
	// mean of 0..500 EUR/MWh scaled to EUR/kWh
	assert.InDelta(t, 0.25, ps[0], 1e-12)
	assert.InDelta(t, 2.05, ps[3], 1e-12)
	html, err := resp.PriceChartHTML()
	require.NoError(t, err)
	assert.NotEmpty(t, html)
}
