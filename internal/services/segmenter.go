package services

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"alfredoptarigan/cv-parser/internal/models"
)

type headerStyle int

// Lower values are heavier markup and win near-coincident matches.
const (
	headerHeavy headerStyle = iota // "## Experience"
	headerLight                    // "# Experience"
	headerBare                     // "Experience" or "Experience:"
)

const (
	headerDedupWindow = 50
	minSectionBody    = 5
)

type sectionPattern struct {
	name  models.SectionName
	style headerStyle
	re    *regexp.Regexp
}

type headerMatch struct {
	name     models.SectionName
	style    headerStyle
	priority int
	start    int
	end      int
}

// SectionSegmenter splits normalized text into named sections by header
// lines. It is a single greedy pass; text before the first header is not
// part of any section.
type SectionSegmenter struct {
	patterns []sectionPattern
	priority map[models.SectionName]int
	logger   *slog.Logger
}

func NewSectionSegmenter(vocab *Vocabulary, logger *slog.Logger) *SectionSegmenter {
	if logger == nil {
		logger = slog.Default()
	}

	s := &SectionSegmenter{
		priority: make(map[models.SectionName]int, len(vocab.SectionPriority)),
		logger:   logger,
	}
	for rank, name := range vocab.SectionPriority {
		s.priority[name] = rank
		alt := synonymAlternation(vocab.SectionSynonyms[name])
		s.patterns = append(s.patterns,
			sectionPattern{name, headerHeavy, regexp.MustCompile(`(?im)^[ \t]*#{2,}[ \t]*(?:` + alt + `)[ \t]*:?[ \t]*$`)},
			sectionPattern{name, headerLight, regexp.MustCompile(`(?im)^[ \t]*#[ \t]*(?:` + alt + `)[ \t]*:?[ \t]*$`)},
			sectionPattern{name, headerBare, regexp.MustCompile(`(?im)^[ \t]*(?:` + alt + `)[ \t]*:?[ \t]*$`)},
		)
	}
	return s
}

// synonymAlternation builds a longest-first regexp alternation that allows
// any run of blanks between words.
func synonymAlternation(synonyms []string) string {
	sorted := append([]string(nil), synonyms...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	parts := make([]string, 0, len(sorted))
	for _, syn := range sorted {
		words := strings.Fields(syn)
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		parts = append(parts, strings.Join(words, `[ \t]+`))
	}
	return strings.Join(parts, "|")
}

// Segment returns sections in document order. A document without any
// recognizable header yields an empty map.
func (s *SectionSegmenter) Segment(text string) *models.SectionMap {
	sections := models.NewSectionMap()
	matches := s.headerMatches(text)
	if len(matches) == 0 {
		s.logger.Debug("no section headers found")
		return sections
	}

	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1].start
		}
		body := strings.TrimSpace(text[m.end:end])
		if utf8.RuneCountInString(body) > minSectionBody {
			sections.Set(m.name, body)
		}
	}
	return sections
}

func (s *SectionSegmenter) headerMatches(text string) []headerMatch {
	var all []headerMatch
	for _, p := range s.patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			all = append(all, headerMatch{
				name:     p.name,
				style:    p.style,
				priority: s.priority[p.name],
				start:    loc[0],
				end:      loc[1],
			})
		}
	}

	// heavier markup first so it survives deduplication
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].style != all[j].style {
			return all[i].style < all[j].style
		}
		return all[i].start < all[j].start
	})

	var kept []headerMatch
	for _, m := range all {
		if !nearDuplicate(kept, m) {
			kept = append(kept, m)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].start != kept[j].start {
			return kept[i].start < kept[j].start
		}
		return kept[i].priority < kept[j].priority
	})

	// one header per line; priority already ordered ties
	out := kept[:0]
	for _, m := range kept {
		if len(out) > 0 && m.start < out[len(out)-1].end {
			continue
		}
		out = append(out, m)
	}
	return out
}

func nearDuplicate(kept []headerMatch, m headerMatch) bool {
	for _, k := range kept {
		if k.name != m.name {
			continue
		}
		d := k.start - m.start
		if d < 0 {
			d = -d
		}
		if d < headerDedupWindow {
			return true
		}
	}
	return false
}
