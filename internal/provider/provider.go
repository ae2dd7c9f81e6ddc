// Package provider holds the generation collaborator: prompt text in,
// answer text out. The pipeline pseudonymizes prompts before they reach a
// provider; providers themselves are PII-oblivious.
package provider

import "context"

// Generator is the interface for all upstream LLM providers.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
