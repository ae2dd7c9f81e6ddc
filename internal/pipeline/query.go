package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/veil-ai/veil/internal/provider"
	"github.com/veil-ai/veil/internal/pseudo"
	"github.com/veil-ai/veil/internal/store"
)

// Querier answers questions against a pseudonymized corpus. The prompt that
// leaves for the generator contains only canonical tokens for every value
// the strategy knows about; real values reappear only in the final answer.
type Querier struct {
	strategy  pseudo.Pseudonymizer
	storage   store.Storage
	generator provider.Generator
	topK      int
	logger    *zap.Logger
}

// NewQuerier wires a query pipeline. topK defaults to 2.
func NewQuerier(strategy pseudo.Pseudonymizer, storage store.Storage, generator provider.Generator, topK int, logger *zap.Logger) *Querier {
	if topK <= 0 {
		topK = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Querier{
		strategy:  strategy,
		storage:   storage,
		generator: generator,
		topK:      topK,
		logger:    logger,
	}
}

// Answer is the full trace of one query, from raw question to restored
// answer. Intermediate fields are exposed so callers can display or assert
// what actually crossed each boundary.
type Answer struct {
	Question       string
	RewrittenQuery string
	Retrieved      []store.Hit
	Prompt         string
	RawAnswer      string
	Final          string
}

// Ask runs the four query steps: rewrite, retrieve, generate, restore.
func (q *Querier) Ask(ctx context.Context, question string) (*Answer, error) {
	ans := &Answer{Question: question}

	ans.RewrittenQuery = q.strategy.RewriteQuery(question)

	hits, err := q.storage.Search(ctx, ans.RewrittenQuery, q.topK)
	if err != nil {
		return nil, errors.Wrap(err, "search")
	}
	ans.Retrieved = hits

	ans.Prompt = buildPrompt(hits, ans.RewrittenQuery)

	raw, err := q.generator.Complete(ctx, ans.Prompt)
	if err != nil {
		return nil, errors.Wrap(err, "generate")
	}
	ans.RawAnswer = raw

	retrievedIDs := make([]string, 0, len(hits))
	for _, h := range hits {
		retrievedIDs = append(retrievedIDs, h.ID)
	}
	ans.Final = q.strategy.Restore(raw, retrievedIDs)

	q.logger.Debug("answered query",
		zap.String("strategy", q.strategy.Name()),
		zap.Int("retrieved", len(hits)))

	return ans, nil
}

// buildPrompt concatenates retrieved context with the rewritten question.
// Both sides are already pseudonymized; nothing is re-detected here.
func buildPrompt(hits []store.Hit, question string) string {
	chunks := make([]string, 0, len(hits))
	for _, h := range hits {
		chunks = append(chunks, h.Text)
	}
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s",
		strings.Join(chunks, "\n\n"), question)
}
