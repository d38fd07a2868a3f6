package rag

import (
	"strings"
	"testing"
)

func TestSplitMarkdownByHeaders(t *testing.T) {
	t.Parallel()

	content := `Intro paragraph before any header.

# Setup

Install the CLI and export your keys.

## Redis

Point REDIS_URL at your instance.

# Usage

Run the binary.`

	sections := SplitMarkdown(content)
	if len(sections) != 4 {
		t.Fatalf("Expected 4 sections, got %d: %+v", len(sections), sections)
	}

	if sections[0].Title != "(Introduction)" || sections[0].Level != 0 {
		t.Errorf("First section should be the implicit intro: %+v", sections[0])
	}
	if sections[1].Title != "Setup" || sections[1].Level != 1 {
		t.Errorf("Unexpected section: %+v", sections[1])
	}
	if sections[2].Title != "Redis" || sections[2].Level != 2 {
		t.Errorf("Unexpected section: %+v", sections[2])
	}
	if !strings.Contains(sections[2].Content, "REDIS_URL") {
		t.Errorf("Section content lost: %q", sections[2].Content)
	}
}

func TestSplitMarkdownNoHeaders(t *testing.T) {
	t.Parallel()

	sections := SplitMarkdown("just a plain paragraph")
	if len(sections) != 1 {
		t.Fatalf("Expected 1 section, got %d", len(sections))
	}
	if sections[0].Title != "(Introduction)" {
		t.Errorf("Unexpected title: %s", sections[0].Title)
	}
}

func TestSplitMarkdownEmpty(t *testing.T) {
	t.Parallel()

	if sections := SplitMarkdown("   \n\n  "); len(sections) != 0 {
		t.Errorf("Expected no sections for whitespace, got %+v", sections)
	}
}

func TestSplitMarkdownSkipsEmptySections(t *testing.T) {
	t.Parallel()

	sections := SplitMarkdown("# Empty\n\n# Full\n\ncontent here")
	if len(sections) != 1 {
		t.Fatalf("Expected 1 section, got %d: %+v", len(sections), sections)
	}
	if sections[0].Title != "Full" {
		t.Errorf("Expected Full, got %s", sections[0].Title)
	}
}

func TestChunkMarkdownSplitsLargeSections(t *testing.T) {
	t.Parallel()

	para := strings.Repeat("word ", 30)
	content := "# Big\n\n" + para + "\n\n" + para + "\n\n" + para

	chunks := ChunkMarkdown(content, 200)
	if len(chunks) < 2 {
		t.Fatalf("Expected large section to split, got %d chunks", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Title != "Big" {
			t.Errorf("Chunk %d lost its title: %s", i, ch.Title)
		}
		if len(ch.Content) > 200 {
			t.Errorf("Chunk %d exceeds limit: %d chars", i, len(ch.Content))
		}
	}
}

func TestChunkMarkdownNoLimit(t *testing.T) {
	t.Parallel()

	content := "# One\n\n" + strings.Repeat("x", 5000)
	chunks := ChunkMarkdown(content, 0)
	if len(chunks) != 1 {
		t.Errorf("Limit 0 should keep sections whole, got %d chunks", len(chunks))
	}
}
