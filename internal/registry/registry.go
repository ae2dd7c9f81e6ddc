// Package registry implements the consistent token registry: a bijective
// mapping between real PII values and stable placeholder tokens of the form
// <Type_N>. Upstream detectors hand out fresh token IDs on every call; the
// registry pins one canonical token per distinct value so that the same
// person carries the same token across every document and query in a session.
package registry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Registry owns the real value <-> token bijection for one logical session.
// All methods are safe for concurrent use. The zero value is not usable;
// construct with New.
type Registry struct {
	mu       sync.RWMutex
	forward  map[string]string // real value -> token
	reverse  map[string]string // token -> real value
	counters map[string]int    // entity type -> last issued count
}

// New returns an empty in-memory registry.
func New() *Registry {
	return &Registry{
		forward:  make(map[string]string),
		reverse:  make(map[string]string),
		counters: make(map[string]int),
	}
}

// ParseToken splits a detector token like "<Email_Address_3>" into its entity
// type and numeric discriminator. The suffix after the last underscore counts
// as the discriminator only when it is entirely numeric; otherwise the whole
// inner string is the type (type names may themselves contain underscores).
// Tokens without enclosing angle brackets are handled the same way on the raw
// string, so a malformed detector token still yields a usable type.
func ParseToken(token string) (entityType string, count int) {
	inner := strings.TrimSuffix(strings.TrimPrefix(token, "<"), ">")
	idx := strings.LastIndex(inner, "_")
	if idx < 0 {
		return inner, 0
	}
	suffix := inner[idx+1:]
	if suffix == "" || strings.IndexFunc(suffix, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return inner, 0
	}
	n, _ := strconv.Atoi(suffix)
	return inner[:idx], n
}

// GetOrCreate returns the canonical token for realValue, minting one if this
// is the first time the value is seen. The detector token is only consulted
// for its entity type, and only on first registration; on repeat calls it is
// ignored entirely, which is what makes tokens stable across detector calls.
//
// If realValue was previously registered under a different entity type, the
// original token is kept. Type conflicts are never reconciled.
func (r *Registry) GetOrCreate(realValue, detectorToken string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tok, ok := r.forward[realValue]; ok {
		return tok
	}

	entityType, _ := ParseToken(detectorToken)
	count := r.counters[entityType] + 1
	r.counters[entityType] = count

	tok := fmt.Sprintf("<%s_%d>", entityType, count)
	r.forward[realValue] = tok
	r.reverse[tok] = realValue
	return tok
}

// ReplaceInText substitutes every occurrence of every known real value with
// its canonical token. Candidates are applied longest-first so that a value
// that is a substring of another ("Marie" inside "Marie Dupont") never
// corrupts the longer match. Substitution is literal, not regex-based, so
// values containing regex metacharacters are safe. Values not present in the
// registry pass through untouched.
func (r *Registry) ReplaceInText(text string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return substitute(text, r.forward)
}

// RestoreText is the inverse of ReplaceInText: every known token is replaced
// with its real value, longest token first. Unknown tokens pass through.
func (r *Registry) RestoreText(text string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return substitute(text, r.reverse)
}

// substitute applies every mapping entry to text, longest key first.
func substitute(text string, mapping map[string]string) string {
	if len(mapping) == 0 {
		return text
	}
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		text = strings.ReplaceAll(text, k, mapping[k])
	}
	return text
}

// Len reports the number of registered values.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.forward)
}

// Token returns the canonical token for realValue, if registered.
func (r *Registry) Token(realValue string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tok, ok := r.forward[realValue]
	return tok, ok
}

// Value returns the real value behind a canonical token, if registered.
func (r *Registry) Value(token string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.reverse[token]
	return v, ok
}

// Snapshot returns a copy of the forward mapping (real value -> token),
// suitable for dumps and persistence.
func (r *Registry) Snapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.forward))
	for k, v := range r.forward {
		out[k] = v
	}
	return out
}

// restore loads a previously persisted pair without minting a new counter
// value. Counters are advanced so later mints never collide with a restored
// token. Used by the SQLite-backed store on open.
func (r *Registry) restore(realValue, token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.forward[realValue] = token
	r.reverse[token] = realValue

	entityType, count := ParseToken(token)
	if count > r.counters[entityType] {
		r.counters[entityType] = count
	}
}
