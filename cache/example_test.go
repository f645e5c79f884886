package cache_test

import (
	"context"
	"fmt"
	"time"

	"github.com/ontomarket/searchcache/cache"
)

func ExampleManager_ReadThrough() {
	store := cache.NewMemoryStore(cache.DefaultMaxSize)
	keyer := cache.NewKeyer("search")
	m, _ := cache.NewManager(store, keyer, cache.ManagerConfig{TTL: 5 * time.Minute}, nil)

	ctx := context.Background()
	params := cache.Params{SearchTerm: "gene ontology", Limit: 20, CallerID: "u1"}

	computations := 0
	compute := func(ctx context.Context) ([]byte, error) {
		computations++
		return []byte(`{"results":["GO:0008150"]}`), nil
	}

	// First call misses and computes.
	result, _ := m.ReadThrough(ctx, params, compute)
	fmt.Println("Result:", string(result))

	// Second call is served from the cache.
	_, _ = m.ReadThrough(ctx, params, compute)
	fmt.Println("Computations:", computations)
	// Output:
	// Result: {"results":["GO:0008150"]}
	// Computations: 1
}

func ExampleManager_InvalidateAll() {
	store := cache.NewMemoryStore(cache.DefaultMaxSize)
	m, _ := cache.NewManager(store, cache.NewKeyer("search"), cache.ManagerConfig{}, nil)

	ctx := context.Background()
	compute := func(ctx context.Context) ([]byte, error) { return []byte("r"), nil }

	_, _ = m.ReadThrough(ctx, cache.Params{SearchTerm: "a", Limit: 10}, compute)
	_, _ = m.ReadThrough(ctx, cache.Params{SearchTerm: "b", Limit: 10}, compute)

	// A mutation to the underlying data clears everything.
	removed := m.InvalidateAll(ctx)
	fmt.Println("Removed:", removed)
	// Output:
	// Removed: 2
}

func ExampleSHA256Keyer_Key() {
	keyer := cache.NewKeyer("search")

	// Deterministic: equal parameters produce equal keys.
	k1, _ := keyer.Key(cache.Params{SearchTerm: "ontology", Limit: 10, CallerID: "u1"})
	k2, _ := keyer.Key(cache.Params{SearchTerm: "ontology", Limit: 10, CallerID: "u1"})
	fmt.Println("Keys match:", k1 == k2)

	// The search term is normalized before hashing.
	k3, _ := keyer.Key(cache.Params{SearchTerm: "  ONTOLOGY  ", Limit: 10, CallerID: "u1"})
	fmt.Println("Normalized match:", k1 == k3)

	// Different callers never share a key.
	k4, _ := keyer.Key(cache.Params{SearchTerm: "ontology", Limit: 10, CallerID: "u2"})
	fmt.Println("Callers isolated:", k1 != k4)
	// Output:
	// Keys match: true
	// Normalized match: true
	// Callers isolated: true
}

func ExampleNewMemoryStore() {
	store := cache.NewMemoryStore(128)
	ctx := context.Background()

	_ = store.Set(ctx, "search:abc", []byte("hello"), 5*time.Minute)

	value, ok, _ := store.Get(ctx, "search:abc")
	if ok {
		fmt.Println("Value:", string(value))
	}

	// Zero TTL is a no-op.
	_ = store.Set(ctx, "search:skip", []byte("x"), 0)
	_, ok, _ = store.Get(ctx, "search:skip")
	fmt.Println("Zero TTL cached:", ok)
	// Output:
	// Value: hello
	// Zero TTL cached: false
}
