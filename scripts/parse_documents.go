package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/cv-parser/internal/config"
	"alfredoptarigan/cv-parser/internal/logging"
	"alfredoptarigan/cv-parser/internal/models"
	"alfredoptarigan/cv-parser/internal/services"
)

type parsedDocument struct {
	File       string                   `json:"file"`
	Backend    models.BackendID         `json:"backend,omitempty"`
	Confidence float64                  `json:"confidence,omitempty"`
	Record     *models.Resume           `json:"record,omitempty"`
	Validation *models.ValidationReport `json:"validation,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

func main() {
	indexFlag := flag.Bool("index", false, "index parsed résumés into Qdrant")
	searchFlag := flag.String("search", "", "run a candidate search after parsing")
	flag.Parse()

	cfg := config.Load()
	log := logging.NewJSONLogger("cv-parser-cli", cfg.Server.LogLevel)
	slog.SetDefault(log)

	if flag.NArg() == 0 && *searchFlag == "" {
		fmt.Fprintln(os.Stderr, "usage: parse_documents [-index] [-search query] file.pdf|file.docx ...")
		os.Exit(2)
	}

	log.Info("🚀 Starting batch parse", "files", flag.NArg())

	parser, err := services.BuildResumeParser(cfg, nil, log)
	if err != nil {
		log.Error("❌ Failed to build parser", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var index services.CandidateIndex
	if *indexFlag || *searchFlag != "" {
		geminiService, err := services.NewGeminiService(cfg.Gemini, cfg.Enrichment, cfg.Worker.RetryInitialDelay, log)
		if err != nil {
			log.Error("❌ Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
		index, err = services.NewCandidateIndex(cfg.Qdrant, geminiService, log)
		if err != nil {
			log.Error("❌ Failed to initialize Qdrant", "error", err)
			os.Exit(1)
		}
		if err := index.InitCollection(ctx); err != nil {
			log.Error("❌ Failed to initialize collection", "error", err)
			os.Exit(1)
		}
	}

	chunker := services.NewSectionChunker(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	failed := 0
	for _, path := range flag.Args() {
		out := parsedDocument{File: path}

		data, err := os.ReadFile(path)
		if err != nil {
			out.Error = err.Error()
			failed++
			_ = encoder.Encode(out)
			continue
		}

		start := time.Now()
		result, err := parser.Parse(ctx, data, filepath.Base(path))
		if err != nil {
			out.Error = err.Error()
			failed++
			_ = encoder.Encode(out)
			continue
		}

		out.Backend = result.Extraction.BackendUsed
		out.Confidence = result.Extraction.Confidence
		out.Record = result.Record
		out.Validation = result.Validation
		_ = encoder.Encode(out)

		log.Info("✅ Parsed", "file", path, "duration", time.Since(start), "completeness", result.Validation.CompletenessScore)

		if *indexFlag {
			// Stable ids let repeated runs replace earlier points.
			docID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(path))
			if err := index.IndexResume(ctx, docID, result.Record, chunker.Chunks(result.Sections, result.Text)); err != nil {
				log.Warn("⚠️ Failed to index", "file", path, "error", err)
			}
		}
	}

	if *searchFlag != "" {
		results, err := index.Search(ctx, *searchFlag, "", 5)
		if err != nil {
			log.Error("❌ Search failed", "error", err)
			os.Exit(1)
		}
		fmt.Println(services.FormatSearchContext(results))
	}

	if failed > 0 {
		log.Warn("⚠️ Some documents failed", "failed", failed)
		os.Exit(1)
	}
	log.Info("🎉 Batch parse completed")
}
