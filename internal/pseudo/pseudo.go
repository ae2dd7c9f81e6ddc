// Package pseudo models the three PII consistency strategies as
// interchangeable implementations of one Pseudonymizer interface:
//
//   - Redactor: irreversible redaction, nothing to restore.
//   - DocumentMapper: per-document detector tokens with stored mappings;
//     the same person gets a different token in every document.
//   - Consistent: one canonical token per value, everywhere, backed by a
//     token registry.
//
// The strategies are alternatives, never mixed: a corpus ingested with one
// strategy must be queried with the same one.
package pseudo

import (
	"sort"
	"strings"

	"github.com/veil-ai/veil/internal/detect"
)

// MappedDocument is a pseudonymized document plus the token -> real value
// pairs its rewritten text depends on. Strategies without reversible tokens
// leave Mapping empty.
type MappedDocument struct {
	ID      string
	Text    string
	Mapping map[string]string
}

// Pseudonymizer rewrites documents and queries so PII stays out of storage
// and prompts, and restores generated answers afterwards.
type Pseudonymizer interface {
	// Name identifies the strategy in logs and stored metadata.
	Name() string

	// Pseudonymize rewrites one document using the entities detected in it.
	Pseudonymize(docID, text string, entities []detect.Entity) MappedDocument

	// RewriteQuery rewrites a question before retrieval. Values the strategy
	// has never seen are left literal.
	RewriteQuery(question string) string

	// Restore maps tokens in a generated answer back to real values.
	// retrievedIDs are the documents the answer was grounded on; strategies
	// with per-document tokens need them to pick the right mappings.
	Restore(answer string, retrievedIDs []string) string
}

// TokenRegistry is the registry capability the registry-backed strategy
// needs. Satisfied by both the in-memory and the SQLite-backed registries.
type TokenRegistry interface {
	GetOrCreate(realValue, detectorToken string) string
	ReplaceInText(text string) string
	RestoreText(text string) string
}

// replaceAll applies every mapping entry to text as a literal substitution,
// longest key first, so a key that is a substring of another key never
// clobbers the longer match.
func replaceAll(text string, mapping map[string]string) string {
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
