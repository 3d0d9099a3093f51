// ABOUTME: Registry of charts extracted from agent replies, bound to /charts/{id} download links.
// ABOUTME: Bounded by an LRU so long-running consoles do not pin every chart ever produced.
package web

import (
	"net/url"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/2389-research/agentdeck/format"
)

// DefaultChartCacheSize bounds the registry when no size is configured.
const DefaultChartCacheSize = 256

// ChartRegistry maps chart ids to the charts they were extracted as.
type ChartRegistry struct {
	cache *lru.Cache[string, format.ChartAction]
}

// NewChartRegistry returns a registry holding up to size charts.
func NewChartRegistry(size int) (*ChartRegistry, error) {
	if size <= 0 {
		size = DefaultChartCacheSize
	}
	cache, err := lru.New[string, format.ChartAction](size)
	if err != nil {
		return nil, err
	}
	return &ChartRegistry{cache: cache}, nil
}

// Bind registers c and returns its download URL. It satisfies format.ActionBinder.
func (r *ChartRegistry) Bind(c format.ChartAction) string {
	r.cache.Add(c.ID, c)
	return "/charts/" + url.PathEscape(c.ID)
}

// Lookup returns the chart registered under id.
func (r *ChartRegistry) Lookup(id string) (format.ChartAction, bool) {
	return r.cache.Get(id)
}

// Len reports how many charts are registered.
func (r *ChartRegistry) Len() int {
	return r.cache.Len()
}
