package rewrite

import "context"

// Generator produces a completion for a prompt. Used for LLM-backed rewrites;
// failures fall back to rule-based expansion.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
