// Package factory creates price sources from their configured id.
package factory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kilianp07/ecas/connectors"
	"github.com/kilianp07/ecas/connectors/wholesalemarket"
)

const (
	IDWholesaleMarket = "wholesale_market"
)

var sources = map[string]func() connectors.PriceSource{
	IDWholesaleMarket: func() connectors.PriceSource { return &wholesalemarket.Client{} },
}

// NewPriceSource returns a fresh price source for id. Ids are case
// insensitive and an empty id selects the wholesale market.
func NewPriceSource(id string) (connectors.PriceSource, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		id = IDWholesaleMarket
	}
	mk, ok := sources[id]
	if !ok {
		return nil, fmt.Errorf("unknown price source %q (known: %s)", id, strings.Join(Sources(), ", "))
	}
	return mk(), nil
}

// Sources lists the known price source ids.
func Sources() []string {
	ids := make([]string, 0, len(sources))
	for id := range sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
