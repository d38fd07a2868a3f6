package rag

import (
	"regexp"
	"strings"
)

var headerRegex = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// Section is one header-delimited chunk of a markdown document.
type Section struct {
	Title   string
	Level   int
	Content string
}

// SplitMarkdown splits markdown into sections at headers. Content before
// the first header becomes an implicit introduction section.
func SplitMarkdown(content string) []Section {
	lines := strings.Split(content, "\n")

	var sections []Section
	var current *Section
	var buf []string

	flush := func() {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(strings.Join(buf, "\n"))
		if current.Content != "" {
			sections = append(sections, *current)
		}
	}

	for _, line := range lines {
		if m := headerRegex.FindStringSubmatch(line); m != nil {
			flush()
			current = &Section{Title: m[2], Level: len(m[1])}
			buf = nil
			continue
		}
		if current == nil {
			if strings.TrimSpace(line) == "" {
				continue
			}
			current = &Section{Title: "(Introduction)", Level: 0}
			buf = nil
		}
		buf = append(buf, line)
	}
	flush()

	if len(sections) == 0 && strings.TrimSpace(content) != "" {
		sections = append(sections, Section{Title: "(Document)", Content: strings.TrimSpace(content)})
	}
	return sections
}

// ChunkMarkdown splits markdown into sections, further dividing sections
// larger than maxChunkSize at paragraph boundaries. maxChunkSize <= 0
// disables the size limit.
func ChunkMarkdown(content string, maxChunkSize int) []Section {
	sections := SplitMarkdown(content)
	if maxChunkSize <= 0 {
		return sections
	}

	var out []Section
	for _, sec := range sections {
		if len(sec.Content) <= maxChunkSize {
			out = append(out, sec)
			continue
		}
		for _, chunk := range splitByParagraphs(sec.Content, maxChunkSize) {
			out = append(out, Section{Title: sec.Title, Level: sec.Level, Content: chunk})
		}
	}
	return out
}

func splitByParagraphs(content string, maxSize int) []string {
	paragraphs := strings.Split(content, "\n\n")

	var chunks []string
	var current strings.Builder

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(para)+2 > maxSize {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
