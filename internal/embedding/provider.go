// Package embedding turns CodeNode content into fixed-dimension vectors
// through an external provider, token-budgeted chunking, and bounded
// concurrent requests. Retry idiom is grounded on the teacher pack's
// internal/adapters/resilience/retry.go (cenkalti/backoff/v4 wrapped in a
// RetryConfig); token counting is grounded on the tiktoken.Encode/Decode
// call shape used elsewhere in the pack — see DESIGN.md.
package embedding

import "context"

// Provider is the embedding backend contract consumed from outside the
// core (spec §4.6 — concrete providers are an external collaborator, never
// shipped here).
type Provider interface {
	// Generate embeds each of texts, returning one vector per input in the
	// same order.
	Generate(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension returns the vector length this provider produces. Checked
	// for drift once cached (see Pipeline.embedDimension).
	Dimension() int
	// MaxBatchSize bounds how many texts a single Generate call accepts.
	MaxBatchSize() int
	// IsAvailable reports whether the provider is currently reachable,
	// without making a billable call.
	IsAvailable(ctx context.Context) bool
}
