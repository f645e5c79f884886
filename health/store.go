package health

import (
	"context"
	"fmt"

	"github.com/ontomarket/searchcache/cache"
	"github.com/ontomarket/searchcache/resilience"
)

// DefaultOccupancyThreshold is the size/capacity ratio above which a bounded
// store reports degraded.
const DefaultOccupancyThreshold = 0.9

// Pinger is implemented by stores with a networked backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// breakerReporter is implemented by stores guarded by a circuit breaker.
type breakerReporter interface {
	BreakerState() resilience.State
}

// StoreCheckerConfig configures a StoreChecker.
type StoreCheckerConfig struct {
	// Capacity enables occupancy reporting for bounded stores. Zero
	// disables it.
	Capacity int

	// OccupancyThreshold is the size/capacity ratio that flips the result
	// to degraded. Default: DefaultOccupancyThreshold.
	OccupancyThreshold float64
}

// StoreChecker probes a cache store: backend reachability when the store is
// networked, circuit breaker state, and occupancy for bounded stores. The
// cache fails open, so a broken backend reports degraded rather than
// unhealthy; requests still succeed, just slower.
type StoreChecker struct {
	name   string
	store  cache.Store
	config StoreCheckerConfig
}

// NewStoreChecker creates a checker for store.
func NewStoreChecker(name string, store cache.Store, config ...StoreCheckerConfig) *StoreChecker {
	cfg := StoreCheckerConfig{OccupancyThreshold: DefaultOccupancyThreshold}
	if len(config) > 0 {
		cfg = config[0]
		if cfg.OccupancyThreshold <= 0 {
			cfg.OccupancyThreshold = DefaultOccupancyThreshold
		}
	}
	return &StoreChecker{name: name, store: store, config: cfg}
}

// Name identifies the component in health output.
func (c *StoreChecker) Name() string { return c.name }

// Check probes the store.
func (c *StoreChecker) Check(ctx context.Context) Result {
	stats := c.store.Stats(ctx)
	details := map[string]any{
		"hits":   stats.Hits,
		"misses": stats.Misses,
		"size":   stats.Size,
	}

	if br, ok := c.store.(breakerReporter); ok {
		state := br.BreakerState()
		details["breaker"] = state.String()
		if state != resilience.StateClosed {
			return Degraded("cache backend circuit is " + state.String()).WithDetails(details)
		}
	}

	if p, ok := c.store.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return Degraded("cache backend unreachable: " + err.Error()).WithDetails(details)
		}
	}

	if c.config.Capacity > 0 {
		details["capacity"] = c.config.Capacity
		occupancy := float64(stats.Size) / float64(c.config.Capacity)
		if occupancy >= c.config.OccupancyThreshold {
			return Degraded(fmt.Sprintf("cache at %.0f%% of capacity", occupancy*100)).WithDetails(details)
		}
	}

	return Healthy("cache operational").WithDetails(details)
}

// Ensure StoreChecker implements Checker
var _ Checker = (*StoreChecker)(nil)
