package services

import (
	"strings"

	"alfredoptarigan/cv-parser/internal/models"
)

// HeaderClassifier maps a single line to a section name by keyword. A line
// matches when, after stripping markdown hashes and a trailing colon, it
// equals one of the section's keywords. Sections are checked in priority
// order.
type HeaderClassifier struct {
	priority []models.SectionName
	keywords map[models.SectionName]map[string]bool
}

func NewHeaderClassifier(table map[models.SectionName][]string, priority []models.SectionName) *HeaderClassifier {
	c := &HeaderClassifier{
		priority: priority,
		keywords: make(map[models.SectionName]map[string]bool, len(table)),
	}
	for name, words := range table {
		set := make(map[string]bool, len(words))
		for _, w := range words {
			set[canonicalHeader(w)] = true
		}
		c.keywords[name] = set
	}
	return c
}

func (c *HeaderClassifier) Classify(line string) (models.SectionName, bool) {
	key := canonicalHeader(line)
	if key == "" {
		return "", false
	}
	for _, name := range c.priority {
		if c.keywords[name][key] {
			return name, true
		}
	}
	return "", false
}

func canonicalHeader(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "#")
	line = strings.TrimSpace(line)
	line = strings.TrimSuffix(line, ":")
	return strings.ToLower(strings.Join(strings.Fields(line), " "))
}
