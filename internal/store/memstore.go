package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory Storage with lexical term-overlap ranking. It is
// the local-mode and test backend; ranking quality is deliberately crude,
// but it is deterministic and exact-matches tokens, which is all the
// pipeline tests need.
type MemStore struct {
	mu    sync.RWMutex
	order []string
	docs  map[string]memDoc
}

type memDoc struct {
	text  string
	meta  map[string]string
	terms map[string]int
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{docs: make(map[string]memDoc)}
}

// Put stores or replaces a document.
func (s *MemStore) Put(ctx context.Context, id, text string, meta map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[id]; !exists {
		s.order = append(s.order, id)
	}
	s.docs[id] = memDoc{text: text, meta: meta, terms: terms(text)}
	return nil
}

// Meta returns the metadata stored with a document.
func (s *MemStore) Meta(id string) (map[string]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, false
	}
	return doc.meta, true
}

// Search ranks documents by the number of query terms they share with the
// document, normalized by document length. Ties keep insertion order.
func (s *MemStore) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 {
		k = 2
	}

	queryTerms := terms(query)
	hits := make([]Hit, 0, len(s.order))
	for _, id := range s.order {
		doc := s.docs[id]
		overlap := 0
		for term, n := range queryTerms {
			if doc.terms[term] > 0 {
				overlap += n
			}
		}
		if overlap == 0 {
			continue
		}
		hits = append(hits, Hit{
			ID:    id,
			Text:  doc.text,
			Score: float64(overlap) / float64(1+len(doc.terms)),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// terms lowercases and splits on non-alphanumeric runes. Tokens like
// "<Person_1>" survive as "person_1", so canonical tokens in a query match
// canonical tokens in stored documents.
func terms(text string) map[string]int {
	out := make(map[string]int)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_')
	}) {
		if len(w) < 2 {
			continue
		}
		out[w]++
	}
	return out
}
