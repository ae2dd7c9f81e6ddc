// Package pipeline wires the detection, pseudonymization, storage and
// generation collaborators into the two flows the system exists for:
// ingesting documents into a pseudonymized corpus, and answering questions
// against it without letting PII reach the generation step.
package pipeline

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/veil-ai/veil/internal/detect"
	"github.com/veil-ai/veil/internal/pseudo"
	"github.com/veil-ai/veil/internal/store"
)

// Document is one raw source document handed to ingestion. ID may be empty,
// in which case one is generated.
type Document struct {
	ID   string
	Text string
}

// Ingestor converts raw documents into stored, pseudonymized documents.
type Ingestor struct {
	detector detect.Detector
	strategy pseudo.Pseudonymizer
	storage  store.Storage
	logger   *zap.Logger
}

// NewIngestor wires an ingestion pipeline.
func NewIngestor(detector detect.Detector, strategy pseudo.Pseudonymizer, storage store.Storage, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		detector: detector,
		strategy: strategy,
		storage:  storage,
		logger:   logger,
	}
}

// Ingest processes one document: detect entities on the original text,
// pseudonymize per the configured strategy, persist. The stored metadata
// carries the strategy name and, for strategies with reversible tokens, the
// document's token mapping.
func (i *Ingestor) Ingest(ctx context.Context, doc Document) (pseudo.MappedDocument, error) {
	if doc.ID == "" {
		doc.ID = newDocID()
	}

	entities, err := i.detector.Detect(ctx, doc.Text)
	if err != nil {
		return pseudo.MappedDocument{}, errors.Wrapf(err, "detect entities in %s", doc.ID)
	}

	mapped := i.strategy.Pseudonymize(doc.ID, doc.Text, entities)

	meta := map[string]string{"strategy": i.strategy.Name()}
	if len(mapped.Mapping) > 0 {
		mappingJSON, err := json.Marshal(mapped.Mapping)
		if err != nil {
			return pseudo.MappedDocument{}, errors.Wrapf(err, "marshal mapping for %s", doc.ID)
		}
		meta["mapping"] = string(mappingJSON)
	}

	if err := i.storage.Put(ctx, mapped.ID, mapped.Text, meta); err != nil {
		return pseudo.MappedDocument{}, errors.Wrapf(err, "store document %s", doc.ID)
	}

	i.logger.Debug("ingested document",
		zap.String("id", mapped.ID),
		zap.String("strategy", i.strategy.Name()),
		zap.Int("entities", len(entities)))

	return mapped, nil
}

// BatchResult reports a batch ingest. A failed document never rolls back
// registrations or documents that preceded it; it stays in Failed for the
// caller to retry independently.
type BatchResult struct {
	Documents []pseudo.MappedDocument
	Failed    map[string]error
}

// IngestAll processes documents in order, continuing past failures.
func (i *Ingestor) IngestAll(ctx context.Context, docs []Document) BatchResult {
	result := BatchResult{Failed: make(map[string]error)}
	for idx, doc := range docs {
		if doc.ID == "" {
			doc.ID = newDocID()
		}
		mapped, err := i.Ingest(ctx, doc)
		if err != nil {
			i.logger.Warn("document failed, continuing batch",
				zap.String("id", doc.ID),
				zap.Int("index", idx),
				zap.Error(err))
			result.Failed[doc.ID] = err
			continue
		}
		result.Documents = append(result.Documents, mapped)
	}
	return result
}

func newDocID() string {
	return "doc-" + ulid.Make().String()
}
