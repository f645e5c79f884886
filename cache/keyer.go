package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultNamespace is the key namespace used when none is configured.
const DefaultNamespace = "search"

// Params are the query parameters a cache key is derived from. CallerID is
// an opaque, already-resolved user identifier; it scopes cached results to
// the permissions of the caller who computed them.
type Params struct {
	SearchTerm string
	Limit      int
	Offset     int
	CallerID   string
}

// canonicalParams is the canonical payload digested into a key. Field order
// is fixed and load-bearing: changing it changes every key. Absent search
// terms and anonymous callers serialize as JSON null so they can never
// collide with a literal string value.
type canonicalParams struct {
	SearchTerm *string `json:"search_term"`
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
	CallerID   *string `json:"caller_id"`
}

// normalize applies the equivalence rules: the search term is trimmed and
// lower-cased, with empty or whitespace-only input treated as absent; limit
// and offset pass through verbatim; an empty caller ID means anonymous.
func (p Params) normalize() canonicalParams {
	c := canonicalParams{Limit: p.Limit, Offset: p.Offset}
	if term := strings.ToLower(strings.TrimSpace(p.SearchTerm)); term != "" {
		c.SearchTerm = &term
	}
	if p.CallerID != "" {
		caller := p.CallerID
		c.CallerID = &caller
	}
	return c
}

// Keyer derives deterministic cache keys from query parameters.
//
// Contract:
// - Determinism: equal params (after normalization) must produce equal keys.
// - Purity: no I/O, safe for concurrent use.
type Keyer interface {
	// Key derives the cache key for params. A non-nil error is a bypass
	// signal: the caller computes without caching, it never fails the
	// request.
	Key(params Params) (string, error)
}

// SHA256Keyer derives fixed-length keys of the form
// "<namespace>:<64-hex-sha256>".
type SHA256Keyer struct {
	namespace string
}

// NewKeyer creates a keyer for the given namespace. An empty namespace
// falls back to DefaultNamespace.
func NewKeyer(namespace string) *SHA256Keyer {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &SHA256Keyer{namespace: namespace}
}

// Namespace returns the key namespace.
func (k *SHA256Keyer) Namespace() string {
	return k.namespace
}

// Key derives the cache key: the normalized params are serialized into
// canonical JSON (fixed field order, so the bytes are stable across
// processes) and digested with SHA-256.
func (k *SHA256Keyer) Key(params Params) (string, error) {
	payload, err := json.Marshal(params.normalize())
	if err != nil {
		return "", fmt.Errorf("cache: failed to serialize params: %w", err)
	}
	sum := sha256.Sum256(payload)
	return k.namespace + ":" + hex.EncodeToString(sum[:]), nil
}

// Ensure SHA256Keyer implements Keyer
var _ Keyer = (*SHA256Keyer)(nil)
