package rewrite

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/medevs/local-smart-portfolio/internal/domain"
)

const maxRewriteLen = 200

// complexCues disqualify a query from rule-based expansion.
var complexCues = []string{"how", "why", "compare", "difference", "explain", "describe"}

// entry is an ordered table row; first match wins, so order is part of the
// table's meaning.
type entry struct {
	term string
	text string
}

// Config holds the rewriting tables. Subject names the portfolio owner and
// seeds the pronoun resolution map; Pronouns and Expansions override or
// extend the built-in tables.
type Config struct {
	Subject    string
	Pronouns   map[string]string
	Expansions map[string]string
}

// Service reformulates queries before retrieval. Simple queries get static
// keyword expansion; complex ones go through the language model with the
// static path as fallback. Rewriting never fails: every error path degrades
// to a usable query.
type Service struct {
	gen        Generator
	subject    string
	firstName  string
	pronouns   []entry
	expansions []entry
	logger     *zap.Logger
}

// New creates a query rewriter.
func New(gen Generator, cfg Config, logger *zap.Logger) *Service {
	subject := cfg.Subject
	if subject == "" {
		subject = "the portfolio owner"
	}
	firstName := strings.ToLower(strings.Fields(subject)[0])

	return &Service{
		gen:        gen,
		subject:    subject,
		firstName:  firstName,
		pronouns:   mergeTable(buildPronounTable(subject), cfg.Pronouns),
		expansions: mergeTable(buildExpansionTable(subject, firstName), cfg.Expansions),
		logger:     logger,
	}
}

// Rewrite reformulates a query for retrieval. References are resolved first,
// then short queries are expanded statically and longer ones rewritten by the
// model. The result is always non-empty for a non-empty input.
func (s *Service) Rewrite(ctx context.Context, query string, history []domain.Message) string {
	resolved := s.resolveReferences(query, history)

	if s.isSimple(resolved) {
		return s.expand(resolved)
	}
	return s.llmRewrite(ctx, resolved)
}

// resolveReferences substitutes subject-relative pronouns and re-derives
// clarification turns ("i mean ahmed") from the previous user question.
func (s *Service) resolveReferences(query string, history []domain.Message) string {
	q := strings.ToLower(strings.TrimSpace(query))

	resolved := query
	for _, p := range s.pronouns {
		if strings.Contains(q, p.term) {
			resolved = strings.Replace(q, p.term, p.text, 1)
			break
		}
	}

	if len(history) == 0 {
		return resolved
	}
	if !strings.HasPrefix(q, "i mean") && !strings.HasPrefix(q, "no,") && !strings.HasPrefix(q, "no ") {
		return resolved
	}

	prev := domain.LastUserMessage(history[:len(history)-1])
	if prev == "" {
		return resolved
	}

	clarification := strings.TrimSpace(strings.NewReplacer(
		"i mean", "", "no,", "", "no ", "",
	).Replace(q))

	switch clarification {
	case s.firstName, s.firstName + "'s", "his", "him", "her", "them":
	default:
		return resolved
	}

	prevLower := strings.ToLower(prev)
	switch {
	case strings.Contains(prevLower, "skills"):
		return fmt.Sprintf("What are %s's skills and technologies?", s.subject)
	case strings.Contains(prevLower, "experience"), strings.Contains(prevLower, "work"):
		return fmt.Sprintf("Tell me about %s's work experience", s.subject)
	case strings.Contains(prevLower, "projects"):
		return fmt.Sprintf("What projects has %s worked on?", s.subject)
	case strings.Contains(prevLower, "education"):
		return fmt.Sprintf("What is %s's educational background?", s.subject)
	default:
		return fmt.Sprintf("Tell me about %s: %s", s.subject, prev)
	}
}

// isSimple reports whether a query is short and flat enough for rule-based
// expansion instead of a model round-trip.
func (s *Service) isSimple(query string) bool {
	if len(strings.Fields(query)) > 6 {
		return false
	}
	q := strings.ToLower(query)
	for _, cue := range complexCues {
		if strings.Contains(q, cue) {
			return false
		}
	}
	return true
}

// expand appends related terms for the first matching expansion key.
func (s *Service) expand(query string) string {
	q := strings.ToLower(query)
	for _, e := range s.expansions {
		if strings.Contains(q, e.term) {
			expanded := query + " " + e.text
			s.logger.Debug("query expanded",
				zap.String("query", query), zap.String("expanded", expanded))
			return expanded
		}
	}
	return query
}

func (s *Service) llmRewrite(ctx context.Context, query string) string {
	prompt := fmt.Sprintf(`Rewrite this query to be more specific for searching a portfolio/resume database about %s, a software engineer.

Original query: %s

Rules:
1. Keep it concise (under 20 words)
2. Include relevant keywords
3. Make implicit references explicit
4. Focus on searchable terms
5. Always refer to "%s" instead of pronouns

Rewritten query:`, s.subject, query, s.subject)

	rewritten, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("llm query rewrite failed", zap.Error(err))
		return s.expand(query)
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" || len(rewritten) >= maxRewriteLen {
		s.logger.Warn("llm query rewrite rejected", zap.Int("length", len(rewritten)))
		return s.expand(query)
	}

	s.logger.Debug("llm query rewrite",
		zap.String("query", query), zap.String("rewritten", rewritten))
	return rewritten
}

// SubQueries decomposes a multi-faceted question into up to three focused
// search queries. Queries without conjunction cues pass through unchanged,
// as does any query on model failure.
func (s *Service) SubQueries(ctx context.Context, query string) []string {
	triggers := []string{"and", "also", "as well as", "both", "multiple"}
	q := strings.ToLower(query)
	triggered := false
	for _, t := range triggers {
		if strings.Contains(q, t) {
			triggered = true
			break
		}
	}
	if !triggered {
		return []string{query}
	}

	prompt := fmt.Sprintf(`Break down this complex question into 2-3 simpler search queries.

Question: %s

Rules:
1. Each sub-query should focus on one aspect
2. Keep queries short and specific
3. Include relevant keywords

Sub-queries (one per line):`, query)

	resp, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("query decomposition failed", zap.Error(err))
		return []string{query}
	}

	var subs []string
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "0123456789.-) ")
		if len(line) > 5 {
			subs = append(subs, line)
		}
	}
	if len(subs) == 0 {
		return []string{query}
	}
	if len(subs) > 3 {
		subs = subs[:3]
	}
	return subs
}

// HydeDocument generates a hypothetical ideal answer to embed in place of
// the raw query. Falls back to static expansion on model failure.
func (s *Service) HydeDocument(ctx context.Context, query string) string {
	prompt := fmt.Sprintf(`Write a brief, factual paragraph that would be a perfect answer to this question about %s's portfolio:

Question: %s

Write as if this is from the resume or portfolio. Be specific and professional. Keep it under 100 words.

Answer:`, s.subject, query)

	doc, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("hyde generation failed", zap.Error(err))
		return s.expand(query)
	}
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return s.expand(query)
	}
	return doc
}

// ExpansionTable exposes the merged term-to-expansion mapping so other
// components (the lexical synonym expander) can share the same vocabulary.
func (s *Service) ExpansionTable() map[string]string {
	table := make(map[string]string, len(s.expansions))
	for _, e := range s.expansions {
		table[e.term] = e.text
	}
	return table
}

// mergeTable applies config overrides to a built-in table: matching terms are
// replaced in place, new terms are appended in sorted order so the result is
// deterministic.
func mergeTable(base []entry, overrides map[string]string) []entry {
	if len(overrides) == 0 {
		return base
	}
	merged := append([]entry(nil), base...)
	extra := make([]string, 0, len(overrides))
	for term, text := range overrides {
		term = strings.ToLower(term)
		replaced := false
		for i := range merged {
			if merged[i].term == term {
				merged[i].text = text
				replaced = true
				break
			}
		}
		if !replaced {
			extra = append(extra, term)
		}
	}
	sort.Strings(extra)
	for _, term := range extra {
		merged = append(merged, entry{term: term, text: overrides[term]})
	}
	return merged
}

func buildPronounTable(subject string) []entry {
	return []entry{
		{"your skills", subject + "'s skills"},
		{"your experience", subject + "'s experience"},
		{"your projects", subject + "'s projects"},
		{"your education", subject + "'s education"},
		{"your background", subject + "'s background"},
		{"what can you do", "what can " + subject + " do as a developer"},
		{"tell me about yourself", "tell me about " + subject},
		{"who are you", "who is " + subject},
		{"his skills", subject + "'s skills"},
		{"his experience", subject + "'s experience"},
		{"his projects", subject + "'s projects"},
	}
}

func buildExpansionTable(subject, firstName string) []entry {
	return []entry{
		{"skills", "skills technologies programming languages frameworks tools expertise"},
		{"experience", "experience work job employment career professional history company"},
		{"projects", "projects portfolio applications apps software built created developed"},
		{"education", "education degree university school training certification academic"},
		{"contact", "contact email phone location address reach"},
		{"about", "about bio background summary profile introduction"},
		{firstName, subject + " developer engineer software"},
		{"frontend", "frontend React Next.js TypeScript JavaScript UI"},
		{"backend", "backend Python FastAPI Node.js API server"},
		{"ai", "AI artificial intelligence LLM RAG machine learning Ollama"},
		{"devops", "DevOps Docker CI/CD Git Linux deployment"},
	}
}
