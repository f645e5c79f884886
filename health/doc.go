// Package health reports the liveness of the cache and its backend.
//
// A Checker probes one component and returns a Result with a three-level
// Status: healthy, degraded, or unhealthy. StoreChecker is the cache-specific
// checker: it verifies the backend is reachable and surfaces hit/miss and
// occupancy detail. Serving the results over HTTP is left to the embedding
// process.
//
//	checker := health.NewStoreChecker("search-cache", manager, store)
//	result := checker.Check(ctx)
//	if result.Status != health.StatusHealthy {
//	    log.Printf("cache %s: %s", result.Status, result.Message)
//	}
package health
