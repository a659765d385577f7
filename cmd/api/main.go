package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"alfredoptarigan/cv-parser/internal/config"
	"alfredoptarigan/cv-parser/internal/handlers"
	"alfredoptarigan/cv-parser/internal/logging"
	"alfredoptarigan/cv-parser/internal/metrics"
	"alfredoptarigan/cv-parser/internal/repositories"
	"alfredoptarigan/cv-parser/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log := logging.NewJSONLogger("cv-parser", cfg.Server.LogLevel)
	slog.SetDefault(log)
	log.Info("✅ Config loaded successfully", "env", cfg.Server.Env)

	// Initialize database
	db, err := config.InitDatabase(cfg)
	if err != nil {
		fatal(log, "❌ Failed to initialize database", err)
	}

	docRepo := repositories.NewDocumentRepository(db)
	jobRepo := repositories.NewParseJobRepository(db)
	log.Info("✅ Repositories initialized successfully")

	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		fatal(log, "❌ Failed to create upload directory", err)
	}

	pipelineMetrics := metrics.NewPipelineMetrics()

	parser, err := services.BuildResumeParser(cfg, pipelineMetrics, log)
	if err != nil {
		fatal(log, "❌ Failed to build résumé parser", err)
	}
	log.Info("✅ Parser initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Gemini backs both enrichment and the candidate index; without a key
	// the pipeline runs fully offline.
	var (
		enricher services.Enricher
		index    services.CandidateIndex
	)
	if cfg.Gemini.APIKey != "" {
		geminiService, err := services.NewGeminiService(cfg.Gemini, cfg.Enrichment, cfg.Worker.RetryInitialDelay, log)
		if err != nil {
			fatal(log, "❌ Failed to initialize Gemini AI", err)
		}
		log.Info("✅ Gemini AI initialized successfully")

		if cfg.Enrichment.Enabled {
			enricher, err = services.NewGeminiEnricher(geminiService, cfg.Enrichment.Temperature, cfg.Worker.RetryMaxAttempts, log)
			if err != nil {
				fatal(log, "❌ Failed to initialize enrichment", err)
			}
		}

		if cfg.Index.Enabled {
			index, err = services.NewCandidateIndex(cfg.Qdrant, geminiService, log)
			if err != nil {
				fatal(log, "❌ Failed to initialize Qdrant", err)
			}
			if err := index.InitCollection(ctx); err != nil {
				fatal(log, "❌ Failed to initialize Qdrant collection", err)
			}
			log.Info("✅ Qdrant initialized successfully")
		}
	} else {
		log.Warn("⚠️ GEMINI_API_KEY not set, enrichment and candidate index disabled")
	}

	parseService := services.NewParseService(services.ParseServiceDeps{
		JobRepo:  jobRepo,
		DocRepo:  docRepo,
		Storage:  storageService,
		Parser:   parser,
		Enricher: enricher,
		Index:    index,
		Chunker:  services.NewSectionChunker(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap),
		Metrics:  pipelineMetrics,
		Logger:   log,
	})

	worker := services.NewWorker(jobRepo, parseService, cfg.Worker.Concurrency, log)
	worker.Start(ctx)

	// Initialize Handlers
	uploadHandler := handlers.NewUploadHandler(docRepo, storageService, cfg.Storage.MaxFileSize, log)
	parseHandler := handlers.NewParseHandler(jobRepo, docRepo, worker)
	resultHandler := handlers.NewResultHandler(jobRepo, log)
	searchHandler := handlers.NewSearchHandler(index, docRepo, log)
	log.Info("✅ Handlers initialized")

	app := fiber.New(fiber.Config{
		AppName:      "CV Parser API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize),
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Get("/metrics", adaptor.HTTPHandler(pipelineMetrics.Handler()))

	// Routes
	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":     "healthy",
			"time":       time.Now(),
			"enrichment": enricher != nil,
			"index":      index != nil,
		})
	})

	api.Post("/upload", uploadHandler.HandleUpload)
	api.Post("/parse", parseHandler.HandleParse)
	api.Get("/result/:id", resultHandler.HandleGetResult)
	api.Get("/candidates/search", searchHandler.HandleSearch)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "CV Parser API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/upload",
				"POST /api/v1/parse",
				"GET /api/v1/result/:id",
				"GET /api/v1/candidates/search",
				"GET /metrics",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("🛑 Shutting down server...")
		worker.Stop()
		cancel()
		if err := app.Shutdown(); err != nil {
			log.Error("❌ Server forced to shutdown", "error", err)
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("🚀 Server starting", "addr", addr)

	if err := app.Listen(addr); err != nil {
		fatal(log, "❌ Failed to start server", err)
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
