package llm

import "context"

// CompletionRequest is one instruction payload for a text-understanding service.
type CompletionRequest struct {
	System string
	Prompt string
	// JSONSchema, when set, describes the object the reply must contain.
	// Providers that support structured output may forward it.
	JSONSchema map[string]any
}

// Completion is the raw reply of a completion service.
type Completion struct {
	Text  string
	Model string
	Raw   []byte
}

// Completer is the collaborator the semantic strategy depends on.
//
// Implementations wrap transport failures, timeouts and non-2xx replies with
// common.ErrUnavailable, and undecodable reply envelopes with
// common.ErrInvalidUpstream.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	Name() string
}
