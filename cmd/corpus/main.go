// -----------------------------------------------------------------------
// Corpus - Document ingestion CLI
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/corpus/internal/common"
	"github.com/ternarybob/corpus/internal/governor"
	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
	"github.com/ternarybob/corpus/internal/services/chunker"
	"github.com/ternarybob/corpus/internal/services/embeddings"
	"github.com/ternarybob/corpus/internal/services/html"
	"github.com/ternarybob/corpus/internal/services/llm"
	"github.com/ternarybob/corpus/internal/services/ocr"
	"github.com/ternarybob/corpus/internal/services/pdf"
	"github.com/ternarybob/corpus/internal/services/pipeline"
	"github.com/ternarybob/corpus/internal/storage/badger"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths
	enableOCR    = flag.Bool("enable-ocr", false, "Recognize text in scanned documents")
	asyncOCR     = flag.Bool("async-ocr", false, "Defer large scanned documents to the background OCR queue")
	docName      = flag.String("name", "", "Document name stored with the chunks (defaults to the file name)")
	mimeType     = flag.String("mime", "", "MIME type of the input (defaults from the file extension)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Corpus version %s\n", common.GetVersion())
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: corpus [flags] <document>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	inputPath := flag.Arg(0)

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> files -> env)
	// 2. Initialize logger
	// 3. Print banner
	var err error

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, statErr := os.Stat("corpus.toml"); statErr == nil {
			configFiles = append(configFiles, "corpus.toml")
		}
	}

	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetFullVersion())

	content, err := os.ReadFile(inputPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", inputPath).Msg("Failed to read input document")
	}

	raw := &models.RawDocument{
		Content:  content,
		MimeType: resolveMimeType(*mimeType, inputPath),
		Filename: resolveName(*docName, inputPath),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := buildPipeline(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build pipeline")
	}
	defer cleanup()

	// Deferred OCR queue re-enters the pipeline with OCR forced on and the
	// async page cap in effect.
	queue := ocr.NewQueue(func(jobCtx context.Context, id string, job *models.RawDocument) {
		deferred := svc.Ingest(jobCtx, job, interfaces.IngestOptions{EnableOCR: true, AsyncOCR: true})
		printResult(deferred)
	}, logger)
	if config.OCRQueue.Enabled {
		if err := queue.Start(config.OCRQueue.Schedule); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start deferred OCR queue")
		}
		defer queue.Stop()
	}

	result := svc.Ingest(ctx, raw, interfaces.IngestOptions{
		EnableOCR: *enableOCR,
		AsyncOCR:  *asyncOCR,
		Progress: func(p models.Progress) {
			logger.Debug().
				Str("phase", string(p.Phase)).
				Int("current", p.Current).
				Int("total", p.Total).
				Msg("Progress")
		},
	})

	printResult(result)

	// A one-shot process cannot leave work to the cron schedule: drain the
	// deferred job before exiting, and treat a queued document as handled
	// rather than failed.
	if result.Extraction.RequiresOCR && config.OCRQueue.Enabled {
		jobID := queue.Enqueue(raw)
		fmt.Printf("Queued for background OCR as %s\n", jobID)
		queue.DrainNow()
		return
	}

	if !result.Extraction.Success {
		os.Exit(1)
	}
}

// buildPipeline wires every service behind the ingestion facade.
func buildPipeline(config *common.Config, logger arbor.ILogger) (*pipeline.Service, func(), error) {
	db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}

	gemini, err := llm.NewGeminiService(&config.Gemini, logger)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("init Gemini service: %w", err)
	}

	extractGov := governor.New("extraction", config.Pipeline.ExtractionConcurrency)
	ocrGov := governor.New("ocr", config.Pipeline.OCRConcurrency)

	svc := pipeline.NewService(
		&config.Pipeline,
		pdf.NewValidator(config.Pipeline.MaxSizeBytes),
		pdf.NewClassifier(&config.Pipeline, logger),
		pdf.NewExtractor(&config.Pipeline, extractGov, logger),
		html.NewExtractor(logger),
		ocr.NewEngine(&config.Pipeline, gemini, ocrGov, logger),
		chunker.NewChunker(&config.Pipeline, logger),
		embeddings.NewOrchestrator(gemini, badger.NewChunkStorage(db, logger), &config.Pipeline, logger),
		logger,
	)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}
	return svc, cleanup, nil
}

// printResult writes the user-facing outcome to stdout.
func printResult(result *models.IngestResult) {
	ext := result.Extraction

	fmt.Printf("Document:    %s\n", result.DocumentID)
	if ext.Classification != nil {
		fmt.Printf("Classified:  %s (%d pages)\n", ext.Classification.Type, ext.Classification.PageCount)
	}

	if !ext.Success {
		fmt.Printf("Failed:      %s\n", ext.UserMessage)
		if ext.RequiresOCR && ext.OCREstimate != nil {
			fmt.Printf("OCR:         estimated %ds for %d pages\n",
				ext.OCREstimate.EstimatedTimeSeconds, ext.OCREstimate.PageCount)
		}
		return
	}

	fmt.Printf("Extracted:   %d characters via %s (%s)\n", len(ext.Text), ext.Source, ext.Status)
	for _, warning := range ext.Warnings {
		fmt.Printf("Warning:     %s\n", warning)
	}

	if vec := result.Vectorization; vec != nil {
		if vec.Success {
			fmt.Printf("Indexed:     %d chunks across %d pages\n", vec.TotalChunks, vec.TotalPages)
		} else {
			fmt.Printf("Indexing:    %s\n", vec.UserMessage)
		}
	}
}

// resolveMimeType prefers the explicit flag, then maps known extensions, and
// falls back to PDF.
func resolveMimeType(explicit, path string) string {
	if explicit != "" {
		return explicit
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return "text/html"
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	default:
		return "application/pdf"
	}
}

func resolveName(explicit, path string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Base(path)
}
