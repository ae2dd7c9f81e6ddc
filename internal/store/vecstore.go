package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"sync"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/veil-ai/veil/internal/embed"
)

// registerVecOnce makes the sqlite-vec functions available on every
// subsequently opened sqlite3 connection. Auto registers a process-wide
// auto-extension, so it must run exactly once.
var registerVecOnce sync.Once

// VecStore is a Storage backed by SQLite with sqlite-vec distance functions.
// Document text and metadata live in a normal table next to a FLOAT32_BLOB
// embedding column; Search embeds the query and ranks by L2 distance.
type VecStore struct {
	db       *sql.DB
	embedder embed.Embedder
	logger   *zap.Logger
}

const vecSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	meta TEXT,
	embedding BLOB NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// OpenVecStore opens (creating if necessary) the document database at path.
func OpenVecStore(path string, embedder embed.Embedder, logger *zap.Logger) (*VecStore, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	registerVecOnce.Do(sqlite_vec.Auto)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open document db %s", path)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enable WAL mode")
	}
	if _, err := db.Exec(vecSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "init document schema")
	}

	return &VecStore{db: db, embedder: embedder, logger: logger}, nil
}

// Close closes the underlying database.
func (s *VecStore) Close() error {
	return s.db.Close()
}

// Put embeds text and upserts the document.
func (s *VecStore) Put(ctx context.Context, id, text string, meta map[string]string) error {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return errors.Wrapf(err, "embed document %s", id)
	}
	blob, err := sqlite_vec.SerializeFloat32(vec)
	if err != nil {
		return errors.Wrapf(err, "serialize embedding for %s", id)
	}

	var metaJSON []byte
	if len(meta) > 0 {
		metaJSON, err = json.Marshal(meta)
		if err != nil {
			return errors.Wrapf(err, "marshal metadata for %s", id)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, text, meta, embedding, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			meta = excluded.meta,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at`,
		id, text, string(metaJSON), blob, now, now,
	)
	if err != nil {
		return errors.Wrapf(err, "save document %s", id)
	}

	s.logger.Debug("saved document",
		zap.String("id", id),
		zap.Int("dimensions", len(vec)))
	return nil
}

// Meta returns the metadata stored with a document.
func (s *VecStore) Meta(id string) (map[string]string, bool) {
	var metaJSON sql.NullString
	err := s.db.QueryRow(`SELECT meta FROM documents WHERE id = ?`, id).Scan(&metaJSON)
	if err != nil || !metaJSON.Valid || metaJSON.String == "" {
		return nil, err == nil
	}
	meta := make(map[string]string)
	if json.Unmarshal([]byte(metaJSON.String), &meta) != nil {
		return nil, true
	}
	return meta, true
}

// Search embeds the query and returns the k nearest documents by L2
// distance. Score is a similarity in [0,1] derived from the distance.
func (s *VecStore) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 {
		k = 2
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "embed query")
	}
	blob, err := sqlite_vec.SerializeFloat32(vec)
	if err != nil {
		return nil, errors.Wrap(err, "serialize query embedding")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, vec_distance_L2(embedding, ?) AS distance
		FROM documents
		ORDER BY distance
		LIMIT ?`,
		blob, k,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "vector search (k=%d)", k)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var hit Hit
		var distance float64
		if err := rows.Scan(&hit.ID, &hit.Text, &distance); err != nil {
			return nil, errors.Wrap(err, "scan search result")
		}
		// Normalized embeddings keep L2 distance in [0,2].
		hit.Score = math.Max(0, 1-distance/2)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate search results")
	}

	s.logger.Debug("vector search completed",
		zap.Int("results", len(hits)),
		zap.Int("k", k))
	return hits, nil
}
