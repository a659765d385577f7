package services

import (
	"fmt"
	"strings"
)

// maxPromptCVChars bounds the résumé text sent for enrichment.
const maxPromptCVChars = 12000

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildEnrichmentPrompt asks the model for only the fields the parser could
// not find, in the record's JSON shape.
func (pb *PromptBuilder) BuildEnrichmentPrompt(missingFields []string, cvText string) string {
	if len(cvText) > maxPromptCVChars {
		cvText = cvText[:maxPromptCVChars]
	}

	return fmt.Sprintf(`You are an expert résumé parser. An automated parser has already read the CV below but could not find these fields: %s.

CANDIDATE CV:
%s

Extract ONLY what is explicitly written in the CV. Never invent values. Use an empty string or an empty list when a field is not present.

Return your response in the following JSON format:
{
  "name": "<full name>",
  "email": "<email address>",
  "phone": "<phone number in international format>",
  "location": "<city, region or country>",
  "summary": "<professional summary, 1-3 sentences>",
  "skills": ["<skill>", ...],
  "experience": [{"title": "<job title>", "company": "<employer>", "dates": "<Mon yyyy – Mon yyyy|Present>", "description": "<responsibilities>"}],
  "education": [{"degree": "<degree>", "institution": "<school>", "year": "<yyyy>"}],
  "certifications": ["<certification>", ...]
}

Focus on the missing fields; other fields may be left empty.`,
		strings.Join(missingFields, ", "), cvText)
}

// FormatSearchContext renders index hits for logging and debugging.
func FormatSearchContext(results []SearchResult) string {
	if len(results) == 0 {
		return "No relevant context found."
	}

	var parts []string
	for i, result := range results {
		parts = append(parts, fmt.Sprintf("--- Hit %d (Score: %.2f, %s) ---\n%s",
			i+1, result.Score, result.Section, strings.TrimSpace(result.Text)))
	}

	return strings.Join(parts, "\n\n")
}
