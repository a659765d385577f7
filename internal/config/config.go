package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Qdrant     QdrantConfig
	Gemini     GeminiConfig
	Storage    StorageConfig
	Worker     WorkerConfig
	Extraction ExtractionConfig
	NLP        NLPConfig
	Enrichment EnrichmentConfig
	Index      IndexConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
}

type GeminiConfig struct {
	APIKey     string
	Model      string
	EmbedModel string
}

type StorageConfig struct {
	UploadPath  string
	MaxFileSize int64
}

type WorkerConfig struct {
	Concurrency       int
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
}

type ExtractionConfig struct {
	MinTextLength  int
	PdftotextPath  string
	PdftoppmPath   string
	TesseractPath  string
	TesseractLang  string
	OCREnabled     bool
	OCRDPI         int
	OCRMaxPages    int
	OCRConcurrency int
}

type NLPConfig struct {
	NEREnabled             bool
	PhoneValidationEnabled bool
	PhoneDefaultRegion     string
	VocabularyPath         string
}

type EnrichmentConfig struct {
	Enabled             bool
	Temperature         float32
	BreakerMinRequests  uint32
	BreakerFailureRatio float64
	BreakerOpenTimeout  time.Duration
}

type IndexConfig struct {
	Enabled      bool
	ChunkSize    int
	ChunkOverlap int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port:     getEnv("PORT", "3000"),
			Env:      getEnv("ENV", "development"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "cv_parser"),
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", "http://localhost:6333"),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "cv_parser_candidates"),
		},
		Gemini: GeminiConfig{
			APIKey:     getEnv("GEMINI_API_KEY", ""),
			Model:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			EmbedModel: getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
		},
		Storage: StorageConfig{
			UploadPath:  getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10485760),
		},
		Worker: WorkerConfig{
			Concurrency:       getEnvAsInt("WORKER_CONCURRENCY", 3),
			RetryMaxAttempts:  getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			RetryInitialDelay: getEnvAsDuration("RETRY_INITIAL_DELAY", "2s"),
		},
		Extraction: ExtractionConfig{
			MinTextLength:  getEnvAsInt("MIN_TEXT_LENGTH", 50),
			PdftotextPath:  getEnv("PDFTOTEXT_PATH", "pdftotext"),
			PdftoppmPath:   getEnv("PDFTOPPM_PATH", "pdftoppm"),
			TesseractPath:  getEnv("TESSERACT_PATH", "tesseract"),
			TesseractLang:  getEnv("TESSERACT_LANG", "eng"),
			OCREnabled:     getEnvAsBool("OCR_ENABLED", true),
			OCRDPI:         getEnvAsInt("OCR_DPI", 300),
			OCRMaxPages:    getEnvAsInt("OCR_MAX_PAGES", 10),
			OCRConcurrency: getEnvAsInt("OCR_CONCURRENCY", 2),
		},
		NLP: NLPConfig{
			NEREnabled:             getEnvAsBool("NER_ENABLED", true),
			PhoneValidationEnabled: getEnvAsBool("PHONE_VALIDATION_ENABLED", true),
			PhoneDefaultRegion:     getEnv("PHONE_DEFAULT_REGION", "US"),
			VocabularyPath:         getEnv("VOCABULARY_PATH", ""),
		},
		Enrichment: EnrichmentConfig{
			Enabled:             getEnvAsBool("ENRICHMENT_ENABLED", true),
			Temperature:         float32(getEnvAsFloat("ENRICHMENT_TEMPERATURE", 0.2)),
			BreakerMinRequests:  uint32(getEnvAsInt("BREAKER_MIN_REQUESTS", 5)),
			BreakerFailureRatio: getEnvAsFloat("BREAKER_FAILURE_RATIO", 0.5),
			BreakerOpenTimeout:  getEnvAsDuration("BREAKER_OPEN_TIMEOUT", "30s"),
		},
		Index: IndexConfig{
			Enabled:      getEnvAsBool("INDEX_ENABLED", false),
			ChunkSize:    getEnvAsInt("INDEX_CHUNK_SIZE", 1000),
			ChunkOverlap: getEnvAsInt("INDEX_CHUNK_OVERLAP", 150),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
