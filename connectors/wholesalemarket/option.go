package wholesalemarket

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/ecas/connectors"
)

func WithStartDate(startDate time.Time) connectors.Option {
	return func(c connectors.PriceSource) error {
		if w, ok := c.(*Client); ok {
			w.startDate = startDate
			return nil
		}
		return fmt.Errorf(connectors.ErrIncompatibleOption, "WithStartDate", "wholesale_market")
	}
}

func WithEndDate(endDate time.Time) connectors.Option {
	return func(c connectors.PriceSource) error {
		if w, ok := c.(*Client); ok {
			w.endDate = endDate
			return nil
		}
		return fmt.Errorf(connectors.ErrIncompatibleOption, "WithEndDate", "wholesale_market")
	}
}

// WithDay sets the range to the 24 hours starting at day.
func WithDay(day time.Time) connectors.Option {
	return func(c connectors.PriceSource) error {
		if err := WithStartDate(day)(c); err != nil {
			return err
		}
		return WithEndDate(day.Add(24 * time.Hour))(c)
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) connectors.Option {
	return func(c connectors.PriceSource) error {
		if w, ok := c.(*Client); ok {
			w.baseURL = u
			return nil
		}
		return fmt.Errorf(connectors.ErrIncompatibleOption, "WithBaseURL", "wholesale_market")
	}
}

// WithHTTPClient sets the client used for API calls.
func WithHTTPClient(h *http.Client) connectors.Option {
	return func(c connectors.PriceSource) error {
		if w, ok := c.(*Client); ok {
			w.httpClient = h
			return nil
		}
		return fmt.Errorf(connectors.ErrIncompatibleOption, "WithHTTPClient", "wholesale_market")
	}
}
