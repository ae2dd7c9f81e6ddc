package registry

import (
	"database/sql"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Persistent is a Registry backed by a SQLite table, keyed by session, so
// ingestion and query can run in different processes against the same
// mapping. Every new assignment is written through; reads are served from
// memory. Write failures do not fail GetOrCreate (the in-memory mapping
// stays authoritative for the process) but are surfaced by Flush, so batch
// callers can detect a registry that will not survive a restart.
type Persistent struct {
	*Registry
	db      *sql.DB
	session string
	logger  *zap.Logger

	errMu   sync.Mutex
	saveErr error // first write-through failure, sticky
}

const registrySchema = `
CREATE TABLE IF NOT EXISTS registry_tokens (
	session TEXT NOT NULL,
	real_value TEXT NOT NULL,
	token TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (session, real_value),
	UNIQUE (session, token)
);`

// OpenSQLite opens (creating if necessary) the registry database at path and
// loads all pairs previously persisted for session.
func OpenSQLite(path, session string, logger *zap.Logger) (*Persistent, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open registry db %s", path)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enable WAL mode")
	}
	if _, err := db.Exec(registrySchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "init registry schema")
	}

	p := &Persistent{
		Registry: New(),
		db:       db,
		session:  session,
		logger:   logger,
	}

	rows, err := db.Query(
		`SELECT real_value, token FROM registry_tokens WHERE session = ?`, session)
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "load registry session %s", session)
	}
	defer rows.Close()

	loaded := 0
	for rows.Next() {
		var value, token string
		if err := rows.Scan(&value, &token); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "scan registry row")
		}
		p.restore(value, token)
		loaded++
	}
	if err := rows.Err(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "iterate registry rows")
	}

	logger.Debug("opened persistent registry",
		zap.String("session", session),
		zap.Int("pairs", loaded))

	return p, nil
}

// GetOrCreate behaves like Registry.GetOrCreate and additionally writes any
// newly minted pair through to SQLite.
func (p *Persistent) GetOrCreate(realValue, detectorToken string) string {
	if tok, ok := p.Registry.Token(realValue); ok {
		return tok
	}

	tok := p.Registry.GetOrCreate(realValue, detectorToken)

	_, err := p.db.Exec(
		`INSERT OR IGNORE INTO registry_tokens (session, real_value, token, created_at)
		 VALUES (?, ?, ?, ?)`,
		p.session, realValue, tok, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		p.errMu.Lock()
		if p.saveErr == nil {
			p.saveErr = errors.Wrapf(err, "persist token %s", tok)
		}
		p.errMu.Unlock()
		p.logger.Warn("registry write-through failed",
			zap.String("token", tok),
			zap.Error(err))
	}
	return tok
}

// Flush reports the first write-through failure since the registry was
// opened, if any. SQLite writes are synchronous, so there is nothing to
// actually flush; the name mirrors the batch contract.
func (p *Persistent) Flush() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.saveErr
}

// Close closes the underlying database. The in-memory mapping remains
// usable afterwards, but nothing further is persisted.
func (p *Persistent) Close() error {
	return p.db.Close()
}
