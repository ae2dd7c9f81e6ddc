// Package store defines the text retrieval contract the pipelines depend on,
// plus two implementations: an in-memory lexical store and a SQLite-backed
// vector store. Documents go in and come back as opaque text; the store
// neither knows nor cares that the text has been pseudonymized.
package store

import "context"

// Hit is one ranked search result.
type Hit struct {
	ID    string
	Text  string
	Score float64
}

// Storage is the retrieval collaborator: put text in by ID, search it back
// by free-text query.
type Storage interface {
	Put(ctx context.Context, id, text string, meta map[string]string) error
	Search(ctx context.Context, query string, k int) ([]Hit, error)
}
