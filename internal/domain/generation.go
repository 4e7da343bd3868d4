package domain

import "context"

// StreamChunk is one incremental fragment of a streamed generation.
// The terminal chunk has Done=true and empty Content.
type StreamChunk struct {
	Content string
	Done    bool
	Err     error
}

// Generator is the language-model completion contract. The model itself is an
// opaque external service; timeouts and cancellation come from ctx.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStream(ctx context.Context, prompt string) (<-chan StreamChunk, error)
}
