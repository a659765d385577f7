package services

import (
	"strings"
	"unicode/utf8"

	"alfredoptarigan/cv-parser/internal/models"
)

// Chunk is one indexable piece of a résumé, tagged with its section.
type Chunk struct {
	Section string
	Text    string
}

const wholeDocumentSection = "document"

// SectionChunker packs section bodies into chunks of roughly size runes.
// Each chunk after the first starts with the last overlap runes of the
// previous one.
type SectionChunker struct {
	size    int
	overlap int
}

func NewSectionChunker(size, overlap int) *SectionChunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &SectionChunker{size: size, overlap: overlap}
}

// Chunks splits each section separately. An unsegmented document is
// chunked as a whole.
func (c *SectionChunker) Chunks(sections *models.SectionMap, fullText string) []Chunk {
	var out []Chunk
	for _, name := range sections.Names() {
		body, _ := sections.Get(name)
		for _, text := range c.split(body) {
			out = append(out, Chunk{Section: string(name), Text: text})
		}
	}
	if len(out) > 0 {
		return out
	}

	for _, text := range c.split(fullText) {
		out = append(out, Chunk{Section: wholeDocumentSection, Text: text})
	}
	return out
}

func (c *SectionChunker) split(text string) []string {
	var chunks []string
	var current strings.Builder
	pending := false

	emit := func() {
		if !pending {
			return
		}
		chunks = append(chunks, current.String())
		current.Reset()
		pending = false
		if tail := lastRunes(chunks[len(chunks)-1], c.overlap); tail != "" {
			current.WriteString(tail)
		}
	}
	add := func(piece, sep string) {
		if pending && utf8.RuneCountInString(current.String())+utf8.RuneCountInString(piece)+len(sep) > c.size {
			emit()
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(piece)
		pending = true
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if utf8.RuneCountInString(para) <= c.size {
			add(para, "\n\n")
			continue
		}
		// résumé paragraphs are line oriented; split on lines, then runes
		for _, line := range strings.Split(para, "\n") {
			for _, piece := range splitRunes(strings.TrimSpace(line), c.size-c.overlap-1) {
				add(piece, "\n")
			}
		}
	}

	emit()
	return chunks
}

func splitRunes(s string, n int) []string {
	if s == "" {
		return nil
	}
	if n <= 0 {
		n = 1
	}
	runes := []rune(s)
	var out []string
	for len(runes) > n {
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return append(out, string(runes))
}

func lastRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}
