package ingest

import "strings"

// separators are tried in order: paragraph breaks first, then lines,
// sentences, words, and finally a hard cut.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker splits text into overlapping chunks bounded by a character size.
// Splitting is recursive: it prefers the coarsest separator that keeps
// pieces under the limit and falls back to finer ones.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker. overlap must be smaller than size, which is
// enforced at config load.
func NewChunker(size, overlap int) *Chunker {
	return &Chunker{size: size, overlap: overlap}
}

// Split chunks text. Empty or whitespace-only input yields no chunks; every
// returned chunk is non-empty and trimmed.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return c.splitRecursive(text, separators)
}

func (c *Chunker) splitRecursive(text string, seps []string) []string {
	if len(text) <= c.size {
		if t := strings.TrimSpace(text); t != "" {
			return []string{t}
		}
		return nil
	}

	sep := ""
	var rest []string
	for i, s := range seps {
		if s == "" {
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = seps[i+1:]
			break
		}
	}
	if sep == "" {
		return c.hardSplit(text)
	}

	var units []string
	for _, piece := range strings.SplitAfter(text, sep) {
		if piece == "" {
			continue
		}
		if len(piece) > c.size {
			units = append(units, c.splitRecursive(piece, rest)...)
			continue
		}
		units = append(units, piece)
	}
	return c.merge(units)
}

// merge packs units into chunks up to the size limit, seeding each new chunk
// with the tail of the previous one for overlap.
func (c *Chunker) merge(units []string) []string {
	var chunks []string
	var cur strings.Builder

	for _, u := range units {
		if cur.Len() > 0 && cur.Len()+len(u) > c.size {
			if chunk := strings.TrimSpace(cur.String()); chunk != "" {
				chunks = append(chunks, chunk)
			}
			tail := overlapTail(cur.String(), c.overlap)
			cur.Reset()
			cur.WriteString(tail)
		}
		cur.WriteString(u)
	}
	if chunk := strings.TrimSpace(cur.String()); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// hardSplit cuts text with no usable separator into fixed windows stepped by
// size minus overlap, respecting rune boundaries.
func (c *Chunker) hardSplit(text string) []string {
	runes := []rune(text)
	step := c.size - c.overlap
	if step <= 0 {
		step = c.size
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// overlapTail returns the last n characters of s, extended left to the
// nearest word boundary so chunks do not start mid-word.
func overlapTail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	tail := runes[len(runes)-n:]
	if idx := strings.IndexAny(string(tail), " \n"); idx >= 0 {
		return strings.TrimLeft(string(tail)[idx:], " \n")
	}
	return string(tail)
}

// extractHeadings collects markdown headings present in a chunk, used as
// retrieval metadata.
func extractHeadings(chunk string) []string {
	var headings []string
	for _, line := range strings.Split(chunk, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			if h := strings.TrimSpace(strings.TrimLeft(line, "#")); h != "" {
				headings = append(headings, h)
			}
		}
	}
	return headings
}
