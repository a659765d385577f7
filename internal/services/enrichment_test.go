package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-parser/internal/config"
	"alfredoptarigan/cv-parser/internal/models"
)

type fakeGemini struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeGemini) GenerateEmbedding(context.Context, string) ([]float32, error) {
	return make([]float32, 768), nil
}

func (f *fakeGemini) GenerateText(_ context.Context, prompt string, _ float32) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeGemini) GenerateTextWithRetry(ctx context.Context, prompt string, temperature float32, _ int) (string, error) {
	return f.GenerateText(ctx, prompt, temperature)
}

func newTestEnricher(t *testing.T, gemini GeminiService) Enricher {
	enricher, err := NewGeminiEnricher(gemini, 0.2, 1, nil)
	require.NoError(t, err)
	return enricher
}

func TestEnricherDecodesFencedReply(t *testing.T) {
	gemini := &fakeGemini{response: "Here you go:\n```json\n" + `{
		"name": "Jane Doe",
		"phone": "+1 415 555 2671",
		"email": null,
		"skills": ["Go", "SQL"],
		"education": [{"degree": "BSc", "institution": "MIT", "year": 2015}],
		"experience": [{"title": "Engineer", "company": "Acme", "dates": "2020 – Present"}]
	}` + "\n```"}

	record, err := newTestEnricher(t, gemini).Complete(context.Background(), []string{"phone"}, "Jane Doe\njane@example.com")
	require.NoError(t, err)

	require.Equal(t, "+1 415 555 2671", record.Phone)
	require.Empty(t, record.Email)
	require.Equal(t, []string{"Go", "SQL"}, record.Skills)
	require.Equal(t, []models.Education{{Degree: "BSc", Institution: "MIT", Year: "2015"}}, record.Education)
	require.Equal(t, "Acme", record.Experience[0].Company)

	require.Len(t, gemini.prompts, 1)
	require.Contains(t, gemini.prompts[0], "could not find these fields: phone")
	require.Contains(t, gemini.prompts[0], "jane@example.com")
}

func TestEnricherRejectsSchemaViolations(t *testing.T) {
	gemini := &fakeGemini{response: `{"name": "Jane", "skills": "Go, SQL"}`}

	_, err := newTestEnricher(t, gemini).Complete(context.Background(), []string{"skills"}, "cv")
	require.ErrorIs(t, err, ErrEnrichmentUnavailable)
	require.Contains(t, err.Error(), "schema")
}

func TestEnricherWrapsUpstreamErrors(t *testing.T) {
	gemini := &fakeGemini{err: errors.New("429 quota exceeded")}

	_, err := newTestEnricher(t, gemini).Complete(context.Background(), []string{"name"}, "cv")
	require.ErrorIs(t, err, ErrEnrichmentUnavailable)
	require.Contains(t, err.Error(), "quota")

	_, err = newTestEnricher(t, &fakeGemini{response: "I cannot help with that."}).Complete(context.Background(), nil, "cv")
	require.ErrorIs(t, err, ErrEnrichmentUnavailable)
}

func TestEnricherWithoutClient(t *testing.T) {
	_, err := newTestEnricher(t, nil).Complete(context.Background(), []string{"name"}, "cv")
	require.ErrorIs(t, err, ErrEnrichmentUnavailable)
}

func TestExtractJSON(t *testing.T) {
	require.Equal(t, `{"a": 1}`, extractJSON("```json\n{\"a\": 1}\n```"))
	require.Equal(t, `{"a": {"b": 2}}`, extractJSON(`Sure! {"a": {"b": 2}} Hope this helps.`))
	require.Equal(t, "no json", extractJSON("  no json  "))
}

func TestRawYear(t *testing.T) {
	require.Equal(t, "2015", rawYear([]byte(`2015`)))
	require.Equal(t, "2015", rawYear([]byte(`"2015"`)))
	require.Equal(t, "", rawYear([]byte(`null`)))
	require.Equal(t, "", rawYear(nil))
}

func TestBuildEnrichmentPromptTruncates(t *testing.T) {
	long := make([]byte, maxPromptCVChars+500)
	for i := range long {
		long[i] = 'x'
	}

	prompt := NewPromptBuilder().BuildEnrichmentPrompt([]string{"name", "email"}, string(long))

	require.Contains(t, prompt, "name, email")
	require.NotContains(t, prompt, string(long))
}

func TestGenerationBreakerOpensOnFailures(t *testing.T) {
	breaker := newGenerationBreaker(config.EnrichmentConfig{
		BreakerMinRequests:  2,
		BreakerFailureRatio: 0.5,
		BreakerOpenTimeout:  time.Minute,
	}, slog.Default())

	fail := func() (string, error) { return "", errors.New("503 unavailable") }

	_, err := breaker.Execute(fail)
	require.Error(t, err)
	_, err = breaker.Execute(fail)
	require.Error(t, err)

	_, err = breaker.Execute(func() (string, error) { return "ok", nil })
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestGenerationBreakerIgnoresCancellation(t *testing.T) {
	breaker := newGenerationBreaker(config.EnrichmentConfig{
		BreakerMinRequests:  1,
		BreakerFailureRatio: 0.5,
		BreakerOpenTimeout:  time.Minute,
	}, slog.Default())

	for i := 0; i < 3; i++ {
		_, err := breaker.Execute(func() (string, error) { return "", context.Canceled })
		require.ErrorIs(t, err, context.Canceled)
	}
	require.Equal(t, gobreaker.StateClosed, breaker.State())
}

func TestNewGeminiServiceRequiresKey(t *testing.T) {
	_, err := NewGeminiService(config.GeminiConfig{}, config.EnrichmentConfig{}, time.Second, nil)
	require.Error(t, err)
}
