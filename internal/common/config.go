package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Pipeline    PipelineConfig `toml:"pipeline"`
	Logging     LoggingConfig  `toml:"logging"`
	Storage     StorageConfig  `toml:"storage"`
	Gemini      GeminiConfig   `toml:"gemini"`
	OCRQueue    OCRQueueConfig `toml:"ocr_queue"`
}

// PipelineConfig carries every limit and knob of the ingestion pipeline.
// Defaults match NewDefaultConfig; all durations are cooperative context
// deadlines, never timer races.
type PipelineConfig struct {
	MaxSizeBytes int64 `toml:"max_size_bytes" validate:"gt=0"` // Guardrail: reject larger uploads outright

	// Classification
	ClassificationPages   int           `toml:"classification_pages" validate:"gt=0"` // Pages sampled for classification
	ClassificationTimeout time.Duration `toml:"classification_timeout"`
	MixedTextRatio        float64       `toml:"mixed_text_ratio" validate:"gt=0,lte=1"` // Below this density a document is MIXED
	MinTextThreshold      int           `toml:"min_text_threshold"`                     // Below this total length a document is SCANNED
	NoiseFloor            int           `toml:"noise_floor"`                            // Chars for a sampled page to count as "with text"

	// Native text extraction
	MaxPagesTextBased int           `toml:"max_pages_text_based" validate:"gt=0"`
	ExtractBatchSize  int           `toml:"extract_batch_size" validate:"gt=0"` // Progress-reporting batches, not correctness
	ExtractTimeout    time.Duration `toml:"extract_timeout"`

	// OCR
	MaxPagesScannedSync  int           `toml:"max_pages_scanned_sync" validate:"gt=0"`
	MaxPagesScannedAsync int           `toml:"max_pages_scanned_async" validate:"gt=0"`
	OCRPageTimeout       time.Duration `toml:"ocr_page_timeout"`
	OCRTotalTimeout      time.Duration `toml:"ocr_total_timeout"`
	OCRSecondsPerPage    int           `toml:"ocr_seconds_per_page"` // Estimate only

	// Page splitting
	PseudoPageSize int `toml:"pseudo_page_size" validate:"gt=0"` // Target chars per synthesized page
	MinPageChars   int `toml:"min_page_chars"`                   // Pages trimmed below this are dropped

	// Chunking
	ChunkSize            int `toml:"chunk_size" validate:"gt=0"`
	ChunkOverlap         int `toml:"chunk_overlap" validate:"gte=0"`
	MaxChunksPerDocument int `toml:"max_chunks_per_document" validate:"gt=0"`

	// Embedding
	EmbedBatchSize  int           `toml:"embed_batch_size" validate:"gt=0"`
	EmbedBatchDelay time.Duration `toml:"embed_batch_delay"` // Inter-sub-batch rate-limit delay

	// Admission control
	ExtractionConcurrency int `toml:"extraction_concurrency" validate:"gt=0"`
	OCRConcurrency        int `toml:"ocr_concurrency" validate:"gt=0"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// GeminiConfig configures the reference embedding/recognition provider.
type GeminiConfig struct {
	APIKey         string  `toml:"api_key"`
	EmbedModel     string  `toml:"embed_model"`
	EmbedDimension int     `toml:"embed_dimension" validate:"gt=0"`
	VisionModel    string  `toml:"vision_model"`
	Temperature    float32 `toml:"temperature"`
}

// OCRQueueConfig configures the deferred (async-tier) OCR queue.
type OCRQueueConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule (with seconds field)
}

// NewDefaultConfig returns the documented defaults for every knob.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Pipeline: PipelineConfig{
			MaxSizeBytes:          50 * 1024 * 1024, // 50MB
			ClassificationPages:   5,
			ClassificationTimeout: 10 * time.Second,
			MixedTextRatio:        0.3,
			MinTextThreshold:      100,
			NoiseFloor:            20,
			MaxPagesTextBased:     200,
			ExtractBatchSize:      10,
			ExtractTimeout:        30 * time.Second,
			MaxPagesScannedSync:   30,
			MaxPagesScannedAsync:  100,
			OCRPageTimeout:        30 * time.Second,
			OCRTotalTimeout:       300 * time.Second,
			OCRSecondsPerPage:     10,
			PseudoPageSize:        3000,
			MinPageChars:          10,
			ChunkSize:             500,
			ChunkOverlap:          50,
			MaxChunksPerDocument:  500,
			EmbedBatchSize:        20,
			EmbedBatchDelay:       100 * time.Millisecond,
			ExtractionConcurrency: 2,
			OCRConcurrency:        1,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05.000",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/corpus",
			},
		},
		Gemini: GeminiConfig{
			APIKey:         "", // User must provide API key (no fallback)
			EmbedModel:     "gemini-embedding-001",
			EmbedDimension: 768,
			VisionModel:    "gemini-3-flash-preview",
			Temperature:    0.0, // Deterministic transcription
		},
		OCRQueue: OCRQueueConfig{
			Enabled:  false,
			Schedule: "0 * * * * *", // Every minute
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2
// -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration using go-playground/validator plus the
// cross-field rules the struct tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	p := &c.Pipeline
	if p.ChunkOverlap >= p.ChunkSize {
		return fmt.Errorf("invalid configuration: chunk_overlap (%d) must be smaller than chunk_size (%d)", p.ChunkOverlap, p.ChunkSize)
	}
	if p.MaxPagesScannedSync > p.MaxPagesScannedAsync {
		return fmt.Errorf("invalid configuration: max_pages_scanned_sync (%d) cannot exceed max_pages_scanned_async (%d)", p.MaxPagesScannedSync, p.MaxPagesScannedAsync)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("CORPUS_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("CORPUS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("CORPUS_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}

	if size := os.Getenv("CORPUS_MAX_SIZE_BYTES"); size != "" {
		if n, err := strconv.ParseInt(size, 10, 64); err == nil {
			config.Pipeline.MaxSizeBytes = n
		}
	}

	if schedule := os.Getenv("CORPUS_OCR_QUEUE_SCHEDULE"); schedule != "" {
		config.OCRQueue.Schedule = schedule
	}
}
