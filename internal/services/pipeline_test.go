package services

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-parser/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPipelineConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Extraction: config.ExtractionConfig{
			MinTextLength: 50,
			PdftotextPath: filepath.Join(t.TempDir(), "no-pdftotext"),
			OCREnabled:    false,
		},
		NLP: config.NLPConfig{
			NEREnabled:             false,
			PhoneValidationEnabled: true,
			PhoneDefaultRegion:     "US",
		},
	}
}

func TestBuildCapabilitiesDisabled(t *testing.T) {
	caps := BuildCapabilities(config.NLPConfig{}, testLogger())

	require.False(t, caps.NER.Available())
	require.False(t, caps.Phone.Available())
}

func TestBuildCapabilitiesPhoneValidation(t *testing.T) {
	caps := BuildCapabilities(config.NLPConfig{PhoneValidationEnabled: true, PhoneDefaultRegion: "GB"}, testLogger())

	require.True(t, caps.Phone.Available())
	formatted, ok := caps.Phone.Validate("020 7031 3000")
	require.True(t, ok)
	require.Equal(t, "+44 20 7031 3000", formatted)
}

func TestBuildResumeParserOffline(t *testing.T) {
	parser, err := BuildResumeParser(testPipelineConfig(t), nil, testLogger())
	require.NoError(t, err)

	result := parser.ParseText(sampleResume)
	require.Equal(t, "Jane Doe", result.Record.Name)
	require.Contains(t, result.Record.Phone, "415")
	require.True(t, result.Validation.IsComplete)
}

func TestBuildResumeParserVocabulary(t *testing.T) {
	cfg := testPipelineConfig(t)
	cfg.NLP.VocabularyPath = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := BuildResumeParser(cfg, nil, testLogger())
	require.ErrorContains(t, err, "failed to load vocabulary")

	path := filepath.Join(t.TempDir(), "vocabulary.yaml")
	require.NoError(t, os.WriteFile(path, []byte("section_synonyms:\n  experience: [\"career history\"]\n"), 0o644))
	cfg.NLP.VocabularyPath = path

	parser, err := BuildResumeParser(cfg, nil, testLogger())
	require.NoError(t, err)

	result := parser.ParseText("Jane Doe\n\nCareer History\nStaff Engineer at Acme Corp\n")
	_, ok := result.Sections.Get("experience")
	require.True(t, ok)
}
