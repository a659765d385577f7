package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"alfredoptarigan/cv-parser/internal/models"
)

// Enricher supplies a partial record for fields the parser missed. Any
// failure is reported as ErrEnrichmentUnavailable; callers keep the
// original record in that case.
type Enricher interface {
	Complete(ctx context.Context, missingFields []string, cvText string) (*models.Resume, error)
}

const enrichmentSchema = `{
  "type": "object",
  "properties": {
    "name":     {"type": ["string", "null"]},
    "email":    {"type": ["string", "null"]},
    "phone":    {"type": ["string", "null"]},
    "location": {"type": ["string", "null"]},
    "summary":  {"type": ["string", "null"]},
    "skills":   {"type": ["array", "null"], "items": {"type": "string"}},
    "experience": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "title":       {"type": ["string", "null"]},
          "company":     {"type": ["string", "null"]},
          "dates":       {"type": ["string", "null"]},
          "description": {"type": ["string", "null"]}
        }
      }
    },
    "education": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "degree":      {"type": ["string", "null"]},
          "institution": {"type": ["string", "null"]},
          "year":        {"type": ["string", "integer", "null"]}
        }
      }
    },
    "certifications": {"type": ["array", "null"], "items": {"type": "string"}}
  }
}`

type geminiEnricher struct {
	gemini        GeminiService
	promptBuilder *PromptBuilder
	schema        *jsonschema.Schema
	temperature   float32
	maxRetries    int
	logger        *slog.Logger
}

func NewGeminiEnricher(gemini GeminiService, temperature float32, maxRetries int, logger *slog.Logger) (Enricher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("enrichment.json", strings.NewReader(enrichmentSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("enrichment.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &geminiEnricher{
		gemini:        gemini,
		promptBuilder: NewPromptBuilder(),
		schema:        schema,
		temperature:   temperature,
		maxRetries:    maxRetries,
		logger:        logger,
	}, nil
}

func (e *geminiEnricher) Complete(ctx context.Context, missingFields []string, cvText string) (*models.Resume, error) {
	if e.gemini == nil {
		return nil, ErrEnrichmentUnavailable
	}

	prompt := e.promptBuilder.BuildEnrichmentPrompt(missingFields, cvText)
	e.logger.Debug("📝 Enrichment prompt built", "chars", len(prompt), "missing", missingFields)

	response, err := e.gemini.GenerateTextWithRetry(ctx, prompt, e.temperature, e.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnrichmentUnavailable, err)
	}

	record, err := e.decode(response)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnrichmentUnavailable, err)
	}
	return record, nil
}

func (e *geminiEnricher) decode(response string) (*models.Resume, error) {
	raw := extractJSON(response)

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	if err := e.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("json does not match schema: %w", err)
	}

	var payload enrichmentPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return payload.toResume(), nil
}

type enrichmentPayload struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone"`
	Location   string   `json:"location"`
	Summary    string   `json:"summary"`
	Skills     []string `json:"skills"`
	Experience []struct {
		Title       string `json:"title"`
		Company     string `json:"company"`
		Dates       string `json:"dates"`
		Description string `json:"description"`
	} `json:"experience"`
	Education []struct {
		Degree      string          `json:"degree"`
		Institution string          `json:"institution"`
		Year        json.RawMessage `json:"year"`
	} `json:"education"`
	Certifications []string `json:"certifications"`
}

func (p *enrichmentPayload) toResume() *models.Resume {
	r := &models.Resume{
		Name:           strings.TrimSpace(p.Name),
		Email:          strings.TrimSpace(p.Email),
		Phone:          strings.TrimSpace(p.Phone),
		Location:       strings.TrimSpace(p.Location),
		Summary:        strings.TrimSpace(p.Summary),
		Skills:         p.Skills,
		Certifications: p.Certifications,
	}
	for _, x := range p.Experience {
		r.Experience = append(r.Experience, models.Experience{
			Title:       x.Title,
			Company:     x.Company,
			Dates:       x.Dates,
			Description: x.Description,
		})
	}
	for _, x := range p.Education {
		r.Education = append(r.Education, models.Education{
			Degree:      x.Degree,
			Institution: x.Institution,
			Year:        rawYear(x.Year),
		})
	}
	return r
}

// rawYear accepts a year sent either as a string or as a number.
func rawYear(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	return strings.Trim(s, `"`)
}

// extractJSON pulls the JSON object out of a reply that may be wrapped in
// markdown fences or prose.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}
