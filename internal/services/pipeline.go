package services

import (
	"fmt"
	"log/slog"

	"alfredoptarigan/cv-parser/internal/config"
	"alfredoptarigan/cv-parser/internal/metrics"
)

// BuildCapabilities checks the optional NLP capabilities once. Missing
// capabilities are logged and replaced by their no-op versions.
func BuildCapabilities(cfg config.NLPConfig, logger *slog.Logger) Capabilities {
	caps := Capabilities{NER: NoNER{}, Phone: NoPhoneValidator{}}

	if cfg.NEREnabled {
		ner := NewProseNER(NewProseModel(logger), logger)
		if ner.Available() {
			caps.NER = ner
		}
	} else {
		logger.Warn("⚠️ Named-entity recognition disabled by configuration")
	}

	if cfg.PhoneValidationEnabled {
		caps.Phone = NewPhoneValidator(cfg.PhoneDefaultRegion)
	} else {
		logger.Warn("⚠️ Phone validation disabled by configuration")
	}

	return caps
}

// BuildResumeParser wires the extraction chains, vocabulary and
// capabilities described by cfg into a ResumeParser.
func BuildResumeParser(cfg *config.Config, pipelineMetrics *metrics.PipelineMetrics, logger *slog.Logger) (ResumeParser, error) {
	if logger == nil {
		logger = slog.Default()
	}

	vocab := DefaultVocabulary()
	if cfg.NLP.VocabularyPath != "" {
		loaded, err := LoadVocabulary(cfg.NLP.VocabularyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load vocabulary: %w", err)
		}
		vocab = loaded
	}

	runner := NewExecRunner(logger)

	var pdfBackends []ExtractionBackend
	pdftotext := NewPdftotextBackend(cfg.Extraction.PdftotextPath, runner)
	if pdftotext.Available() {
		pdfBackends = append(pdfBackends, pdftotext)
	} else {
		logger.Warn("⚠️ pdftotext not found, skipping layout extraction", "binary", cfg.Extraction.PdftotextPath)
	}
	pdfcpuBackend := NewPdfcpuBackend()
	pdfBackends = append(pdfBackends, pdfcpuBackend, NewPlainPDFBackend())

	var ocr OCREngine = noopOCR{}
	if cfg.Extraction.OCREnabled {
		ocr = NewTesseractOCR(cfg.Extraction, runner, logger)
		if !ocr.Available() {
			logger.Warn("⚠️ OCR tools not found, scanned PDFs will fail",
				"pdftoppm", cfg.Extraction.PdftoppmPath,
				"tesseract", cfg.Extraction.TesseractPath,
			)
		}
	}

	orchestrator := NewExtractionOrchestrator(OrchestratorConfig{
		PDFBackends:   pdfBackends,
		WordBackends:  []ExtractionBackend{NewDocxBackend()},
		OCR:           ocr,
		ImageDetector: pdfcpuBackend,
		MinTextLength: cfg.Extraction.MinTextLength,
		Metrics:       pipelineMetrics,
		Logger:        logger,
	})

	caps := BuildCapabilities(cfg.NLP, logger)
	logger.Info("✅ Parser capabilities",
		"ner", caps.NER.Available(),
		"phone_validation", caps.Phone.Available(),
		"ocr", ocr.Available(),
	)

	return NewResumeParser(orchestrator, vocab, caps, pipelineMetrics, logger), nil
}
