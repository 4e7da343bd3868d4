package ingest

import (
	"strings"
	"testing"
)

func TestSplit_ShortTextIsSingleChunk(t *testing.T) {
	c := NewChunker(100, 20)

	got := c.Split("a short note about skills")
	if len(got) != 1 {
		t.Fatalf("got %d chunks, want 1", len(got))
	}
	if got[0] != "a short note about skills" {
		t.Errorf("chunk = %q", got[0])
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	c := NewChunker(100, 20)

	if got := c.Split(""); got != nil {
		t.Errorf("got %v, want nil", got)
	}
	if got := c.Split("   \n\n  "); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestSplit_PrefersParagraphBreaks(t *testing.T) {
	para1 := strings.Repeat("alpha ", 10)
	para2 := strings.Repeat("bravo ", 10)
	c := NewChunker(70, 10)

	got := c.Split(para1 + "\n\n" + para2)
	if len(got) != 2 {
		t.Fatalf("got %d chunks, want 2: %v", len(got), got)
	}
	if !strings.Contains(got[0], "alpha") || strings.Contains(got[0], "bravo") {
		t.Errorf("first chunk mixed paragraphs: %q", got[0])
	}
}

func TestSplit_RespectsSizeBound(t *testing.T) {
	text := strings.Repeat("some sentence about work experience. ", 50)
	c := NewChunker(200, 40)

	got := c.Split(text)
	if len(got) < 2 {
		t.Fatalf("got %d chunks, want several", len(got))
	}
	// Overlap seeding can push a chunk slightly past size; it stays bounded
	// by size plus overlap.
	for i, chunk := range got {
		if len(chunk) > 200+40 {
			t.Errorf("chunk %d length %d exceeds bound", i, len(chunk))
		}
		if strings.TrimSpace(chunk) == "" {
			t.Errorf("chunk %d is blank", i)
		}
	}
}

func TestSplit_ConsecutiveChunksOverlap(t *testing.T) {
	text := strings.Repeat("word ", 200)
	c := NewChunker(100, 30)

	got := c.Split(text)
	if len(got) < 2 {
		t.Fatalf("got %d chunks, want several", len(got))
	}
	// The seeded tail means adjacent chunks share text.
	tail := got[0][len(got[0])-10:]
	if !strings.Contains(got[1], strings.TrimSpace(tail)) {
		t.Errorf("chunk 1 does not overlap chunk 0 tail %q", tail)
	}
}

func TestSplit_HardSplitWithoutSeparators(t *testing.T) {
	text := strings.Repeat("x", 250)
	c := NewChunker(100, 20)

	got := c.Split(text)
	if len(got) < 3 {
		t.Fatalf("got %d chunks, want at least 3", len(got))
	}
	for i, chunk := range got {
		if len(chunk) > 100 {
			t.Errorf("chunk %d length %d exceeds size", i, len(chunk))
		}
	}
}

func TestSplit_HardSplitIsRuneSafe(t *testing.T) {
	text := strings.Repeat("日本語テキスト", 60)
	c := NewChunker(50, 10)

	for _, chunk := range c.Split(text) {
		if !strings.Contains(text, chunk) {
			t.Errorf("chunk %q not a substring of input", chunk)
		}
		for _, r := range chunk {
			if r == '�' {
				t.Fatal("chunk contains replacement rune, split mid-character")
			}
		}
	}
}

func TestOverlapTail_WordBoundary(t *testing.T) {
	got := overlapTail("the quick brown fox jumps", 9)
	// The 9-char tail is "fox jumps"; the cut lands on the space so the
	// returned overlap starts at a whole word.
	if got != "jumps" {
		t.Errorf("tail = %q, want %q", got, "jumps")
	}
}

func TestOverlapTail_ShortInput(t *testing.T) {
	if got := overlapTail("abc", 10); got != "abc" {
		t.Errorf("tail = %q, want whole string", got)
	}
	if got := overlapTail("whatever", 0); got != "" {
		t.Errorf("tail = %q, want empty", got)
	}
}

func TestExtractHeadings(t *testing.T) {
	chunk := "# Projects\n\nSome intro.\n\n## Homelab\n\ndetails\n\nnot # a heading"
	got := extractHeadings(chunk)
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 headings", got)
	}
	if got[0] != "Projects" || got[1] != "Homelab" {
		t.Errorf("headings = %v", got)
	}
}

func TestExtractHeadings_None(t *testing.T) {
	if got := extractHeadings("plain text only"); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}
