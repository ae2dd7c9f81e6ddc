package pseudo

import (
	"fmt"
	"strings"

	"github.com/veil-ai/veil/internal/detect"
)

// Redactor permanently removes detected entities. No mapping is kept, so
// restoration is impossible and queries go out unchanged. Entity types
// listed in keep are preserved verbatim, which supports the classic "redact
// contact info, keep names" trade-off: names remain searchable at the cost
// of storing them.
type Redactor struct {
	keep map[string]bool
}

// NewRedactor builds the redact-only strategy. keep lists entity types to
// leave in the text (e.g. "Person").
func NewRedactor(keep ...string) *Redactor {
	kept := make(map[string]bool, len(keep))
	for _, k := range keep {
		kept[k] = true
	}
	return &Redactor{keep: kept}
}

func (r *Redactor) Name() string { return "redact" }

// Pseudonymize replaces every non-kept entity with a [REDACTED_TYPE] marker.
func (r *Redactor) Pseudonymize(docID, text string, entities []detect.Entity) MappedDocument {
	markers := make(map[string]string, len(entities))
	for _, e := range entities {
		if r.keep[e.Type] {
			continue
		}
		markers[e.Value] = fmt.Sprintf("[REDACTED_%s]", strings.ToUpper(e.Type))
	}
	return MappedDocument{
		ID:   docID,
		Text: replaceAll(text, markers),
	}
}

// RewriteQuery is the identity: kept values match the store directly, and
// redacted values are gone from the corpus anyway.
func (r *Redactor) RewriteQuery(question string) string { return question }

// Restore is a no-op; redaction is not reversible.
func (r *Redactor) Restore(answer string, retrievedIDs []string) string { return answer }
