package pseudo

import "github.com/veil-ai/veil/internal/detect"

// Consistent is the registry-backed strategy: every detected value is
// registered once and carries the same canonical token in every document,
// query and answer. Detector tokens are only consulted for their entity
// type on first sight.
type Consistent struct {
	registry TokenRegistry
}

// NewConsistent builds the registry-backed strategy.
func NewConsistent(registry TokenRegistry) *Consistent {
	return &Consistent{registry: registry}
}

func (c *Consistent) Name() string { return "registry" }

// Pseudonymize registers each entity and rewrites the ORIGINAL text with
// canonical tokens. The detector's own rewriting, if any, is ignored: its
// per-call tokens are exactly what must not end up in storage.
func (c *Consistent) Pseudonymize(docID, text string, entities []detect.Entity) MappedDocument {
	mapping := make(map[string]string, len(entities))
	for _, e := range entities {
		tok := c.registry.GetOrCreate(e.Value, e.Token)
		mapping[tok] = e.Value
	}
	return MappedDocument{
		ID:      docID,
		Text:    c.registry.ReplaceInText(text),
		Mapping: mapping,
	}
}

// RewriteQuery substitutes registered values with their canonical tokens.
// Unregistered values stay literal, so retrieval still works on content for
// net-new entities.
func (c *Consistent) RewriteQuery(question string) string {
	return c.registry.ReplaceInText(question)
}

// Restore resolves canonical tokens through the registry. The retrieved IDs
// are irrelevant: the registry is global to the session.
func (c *Consistent) Restore(answer string, retrievedIDs []string) string {
	return c.registry.RestoreText(answer)
}
