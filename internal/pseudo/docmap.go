package pseudo

import (
	"sync"

	"github.com/veil-ai/veil/internal/detect"
)

// DocumentMapper keeps the detector's per-call tokens as-is and stores one
// mapping per document. Reversible, but the same value gets a different
// token in every document it appears in, so query rewriting has to pick one
// of them and search quality degrades accordingly. This is the trade-off the
// registry strategy exists to remove.
type DocumentMapper struct {
	mu       sync.RWMutex
	mappings map[string]map[string]string // doc ID -> (token -> real value)
	docOrder []string
}

// NewDocumentMapper builds the per-document mapping strategy.
func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{mappings: make(map[string]map[string]string)}
}

func (m *DocumentMapper) Name() string { return "per-document" }

// Pseudonymize rewrites text with the detector's own tokens and records the
// document's mapping for later query rewriting and restoration.
func (m *DocumentMapper) Pseudonymize(docID, text string, entities []detect.Entity) MappedDocument {
	byValue := make(map[string]string, len(entities)) // real value -> token
	mapping := make(map[string]string, len(entities)) // token -> real value
	for _, e := range entities {
		if e.Token == "" {
			continue
		}
		byValue[e.Value] = e.Token
		mapping[e.Token] = e.Value
	}

	m.mu.Lock()
	if _, exists := m.mappings[docID]; !exists {
		m.docOrder = append(m.docOrder, docID)
	}
	m.mappings[docID] = mapping
	m.mu.Unlock()

	return MappedDocument{
		ID:      docID,
		Text:    replaceAll(text, byValue),
		Mapping: mapping,
	}
}

// RewriteQuery replaces known real values with the token from the first
// ingested document that contains them. If the value appears in other
// documents under different tokens, those stored texts simply will not match
// the rewritten query. That inconsistency is inherent to this strategy.
func (m *DocumentMapper) RewriteQuery(question string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byValue := make(map[string]string)
	for _, docID := range m.docOrder {
		for token, value := range m.mappings[docID] {
			if _, seen := byValue[value]; !seen {
				byValue[value] = token
			}
		}
	}
	return replaceAll(question, byValue)
}

// Restore merges the mappings of the retrieved documents, then substitutes
// tokens back to real values. Tokens from documents that were not retrieved
// stay tokens; the strategy has no global view to resolve them with.
func (m *DocumentMapper) Restore(answer string, retrievedIDs []string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	merged := make(map[string]string)
	for _, docID := range retrievedIDs {
		for token, value := range m.mappings[docID] {
			merged[token] = value
		}
	}
	return replaceAll(answer, merged)
}

// Mapping returns the stored mapping for one document.
func (m *DocumentMapper) Mapping(docID string) (map[string]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mapping, ok := m.mappings[docID]
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(mapping))
	for k, v := range mapping {
		out[k] = v
	}
	return out, true
}
