package provider

import "context"

// FakeGenerator is a deterministic Generator for tests and offline demos.
// When Echo is set it returns the prompt itself, which makes it easy to
// assert exactly what the pipeline would have sent upstream.
type FakeGenerator struct {
	ResponseText string
	Echo         bool
	Error        error

	// Prompts records every prompt received, in order.
	Prompts []string
}

// NewFake returns a generator that always answers with response.
func NewFake(response string) *FakeGenerator {
	return &FakeGenerator{ResponseText: response}
}

func (f *FakeGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	f.Prompts = append(f.Prompts, prompt)
	if f.Error != nil {
		return "", f.Error
	}
	if f.Echo {
		return prompt, nil
	}
	return f.ResponseText, nil
}
