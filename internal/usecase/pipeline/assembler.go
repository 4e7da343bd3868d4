package pipeline

import (
	"fmt"
	"strings"

	"github.com/medevs/local-smart-portfolio/internal/domain"
)

const chunkSeparator = "\n\n---\n\n"

// assembleContext formats re-ranked candidates into the context block handed
// to the generator, plus the deduplicated source list in first-seen order.
// Each chunk is prefixed with a source header so the model can attribute
// facts to files.
func assembleContext(candidates []domain.Candidate) (string, []string) {
	if len(candidates) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(candidates))
	seen := make(map[string]struct{})
	var sources []string

	for _, c := range candidates {
		source := c.Chunk.Source
		if source == "" {
			source = "Unknown"
		}
		if _, ok := seen[source]; !ok {
			seen[source] = struct{}{}
			sources = append(sources, source)
		}
		header := fmt.Sprintf("[Source: %s, Part %d]", source, c.Chunk.Position+1)
		parts = append(parts, header+"\n"+c.Chunk.Text)
	}

	return strings.Join(parts, chunkSeparator), sources
}

// buildPrompt assembles the generation prompt: system instructions, optional
// routing hint, retrieved context, recent history, and the user's question.
func buildPrompt(systemPrompt, hint, context, query string, history []domain.Message, historyTurns int) string {
	var b strings.Builder

	b.WriteString("System: ")
	b.WriteString(systemPrompt)
	if hint != "" {
		b.WriteString("\n")
		b.WriteString(hint)
	}
	b.WriteString("\n\n")

	if context != "" {
		b.WriteString("Context from knowledge base:\n")
		b.WriteString(context)
		b.WriteString("\n\n")
	}

	if recent := domain.LastN(history, historyTurns); len(recent) > 0 {
		b.WriteString("Previous conversation:\n")
		for _, msg := range recent {
			role := "Assistant"
			if msg.Role == domain.RoleUser {
				role = "User"
			}
			b.WriteString(role)
			b.WriteString(": ")
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("User: ")
	b.WriteString(query)
	b.WriteString("\nAssistant:")

	return b.String()
}
