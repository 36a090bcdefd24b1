package llm

import "context"

// Provider is the reasoning backend used by the intent classifier.
type Provider interface {
	// Complete runs one chat completion and must honor ctx cancellation.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name identifies the backend, for logs and status output.
	Name() string
}
