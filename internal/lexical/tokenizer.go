package lexical

import (
	"regexp"
	"strings"
)

// minTokenLen drops very short tokens that carry little signal.
const minTokenLen = 3

var wordRegex = regexp.MustCompile(`[a-z0-9_]+`)

// stopwords filtered out of both corpus and query tokens.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "being": {}, "have": {}, "has": {}, "had": {},
	"do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "may": {}, "might": {}, "must": {}, "can": {},
	"of": {}, "in": {}, "to": {}, "for": {}, "with": {}, "on": {}, "at": {},
	"by": {}, "from": {}, "as": {}, "into": {}, "through": {}, "during": {},
	"before": {}, "after": {}, "and": {}, "or": {}, "but": {}, "if": {},
	"then": {}, "else": {}, "when": {}, "where": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "it": {}, "its": {},
}

// Tokenize lowercases text, extracts word tokens, and drops stopwords and
// tokens shorter than three characters.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	words := wordRegex.FindAllString(lower, -1)

	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < minTokenLen {
			continue
		}
		if _, ok := stopwords[w]; ok {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// SynonymsFromExpansions converts a term-to-phrase expansion table into the
// token synonym table used at query time. Each phrase is tokenized and the
// term itself is excluded from its own synonym list.
func SynonymsFromExpansions(expansions map[string]string) map[string][]string {
	if len(expansions) == 0 {
		return nil
	}
	synonyms := make(map[string][]string, len(expansions))
	for term, phrase := range expansions {
		term = strings.ToLower(term)
		var related []string
		for _, tok := range Tokenize(phrase) {
			if tok != term {
				related = append(related, tok)
			}
		}
		if len(related) > 0 {
			synonyms[term] = related
		}
	}
	return synonyms
}

// expandTokens appends synonyms for any token present in the synonym table.
// Used at query time only, to widen recall without bloating the index.
func expandTokens(tokens []string, synonyms map[string][]string) []string {
	if len(synonyms) == 0 {
		return tokens
	}

	expanded := tokens
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		seen[t] = struct{}{}
	}
	for _, t := range tokens {
		for _, syn := range synonyms[t] {
			syn = strings.ToLower(syn)
			if _, ok := seen[syn]; ok {
				continue
			}
			seen[syn] = struct{}{}
			expanded = append(expanded, syn)
		}
	}
	return expanded
}
