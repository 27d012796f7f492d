package wholesalemarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kilianp07/ecas/auth"
	"github.com/kilianp07/ecas/connectors"
)

// DefaultBaseURL is the wholesale market endpoint of the RTE open API.
const DefaultBaseURL = "https://digital.iservices.rte-france.com/open_api/wholesale_market/v2/france_power_exchanges"

type Client struct {
	baseURL    string
	httpClient *http.Client
	startDate  time.Time
	endDate    time.Time
}

// Fetch retrieves the day-ahead exchange prices between the start and end
// dates, which must both be set through options.
func (w *Client) Fetch(ctx context.Context, authClient *auth.ClientCred, opts ...connectors.Option) (connectors.PriceResponse, error) {
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	if w.startDate.IsZero() || w.endDate.IsZero() {
		return nil, fmt.Errorf("start and end dates are required")
	}
	if !w.endDate.After(w.startDate) {
		return nil, fmt.Errorf("end date %s is not after start date %s",
			w.endDate.Format(time.RFC3339), w.startDate.Format(time.RFC3339))
	}
	base := w.baseURL
	if base == "" {
		base = DefaultBaseURL
	}
	client := w.httpClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	q := url.Values{}
	q.Set("start_date", w.startDate.Format(time.RFC3339))
	q.Set("end_date", w.endDate.Format(time.RFC3339))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if authClient != nil {
		if err := authClient.SetAuthHeader(req); err != nil {
			return nil, fmt.Errorf("failed to set auth header: %w", err)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}

	var marketResponse Response
	if err := json.NewDecoder(resp.Body).Decode(&marketResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &marketResponse, nil
}
