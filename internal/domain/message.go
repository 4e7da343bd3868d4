package domain

// Message roles as supplied by the caller.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn. The pipeline treats history as
// read-only context.
type Message struct {
	Role    string
	Content string
}

// LastN returns the trailing n messages of history. Call sites truncate
// history before building prompts to bound prompt size.
func LastN(history []Message, n int) []Message {
	if n <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// LastUserMessage returns the most recent user turn before the current one,
// or "" if there is none. Used by clarification handling.
func LastUserMessage(history []Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			return history[i].Content
		}
	}
	return ""
}
