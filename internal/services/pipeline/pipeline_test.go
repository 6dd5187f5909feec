package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/corpus/internal/common"
	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
	"github.com/ternarybob/corpus/internal/services/chunker"
	"github.com/ternarybob/corpus/internal/services/html"
)

// fakeValidator passes unless reason is set.
type fakeValidator struct {
	reason models.FailureReason
}

func (f *fakeValidator) Validate(raw *models.RawDocument) error {
	if f.reason != "" {
		return models.NewPipelineError(f.reason, fmt.Errorf("rejected"))
	}
	return nil
}

// fakeClassifier returns a fixed classification.
type fakeClassifier struct {
	result *models.ClassificationResult
}

func (f *fakeClassifier) Classify(ctx context.Context, content []byte) *models.ClassificationResult {
	return f.result
}

// fakeExtractor returns fixed text or an error.
type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(ctx context.Context, content []byte, classification *models.ClassificationResult, progress models.ProgressFunc) (*models.ExtractedDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ExtractedDocument{
		Success:        true,
		Text:           f.text,
		PageCount:      classification.PageCount,
		Source:         models.SourceNative,
		Classification: classification,
		Status:         models.StatusComplete,
	}, nil
}

// fakeOCR estimates like the real engine and returns a canned run result.
type fakeOCR struct {
	cfg    *common.PipelineConfig
	result *models.OCRResult
	err    error
	runs   int
}

func (f *fakeOCR) Estimate(pageCount int) *models.OCREstimate {
	return &models.OCREstimate{
		PageCount:            pageCount,
		EstimatedTimeSeconds: pageCount * f.cfg.OCRSecondsPerPage,
		CanRunSync:           pageCount <= f.cfg.MaxPagesScannedSync,
	}
}

func (f *fakeOCR) Run(ctx context.Context, content []byte, maxPages int, progress models.ProgressFunc) (*models.OCRResult, error) {
	f.runs++
	return f.result, f.err
}

// fakeSink counts chunks as stored without embedding anything.
type fakeSink struct {
	chunks []models.ChunkRecord
	err    error
}

func (f *fakeSink) EmbedAndStore(ctx context.Context, chunks []models.ChunkRecord, progress models.ProgressFunc) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.chunks = append(f.chunks, chunks...)
	return len(chunks), nil
}

type fixture struct {
	cfg        *common.Config
	validator  *fakeValidator
	classifier *fakeClassifier
	extractor  *fakeExtractor
	ocr        *fakeOCR
	sink       *fakeSink
	svc        *Service
}

func newFixture(t *testing.T, classification *models.ClassificationResult) *fixture {
	t.Helper()
	cfg := common.NewDefaultConfig()
	logger := common.GetLogger()

	f := &fixture{
		cfg:        cfg,
		validator:  &fakeValidator{},
		classifier: &fakeClassifier{result: classification},
		extractor:  &fakeExtractor{text: strings.Repeat("native page text ", 20) + "\f" + strings.Repeat("second page text ", 20)},
		ocr: &fakeOCR{
			cfg: &cfg.Pipeline,
			result: &models.OCRResult{
				Success:        true,
				Text:           strings.Repeat("recognized text ", 20) + "\f" + strings.Repeat("more recognized ", 20),
				PageCount:      2,
				PagesProcessed: 2,
				PagesWithText:  2,
			},
		},
		sink: &fakeSink{},
	}

	f.svc = NewService(
		&cfg.Pipeline,
		f.validator,
		f.classifier,
		f.extractor,
		html.NewExtractor(logger),
		f.ocr,
		chunker.NewChunker(&cfg.Pipeline, logger),
		f.sink,
		logger,
	)
	return f
}

func pdfUpload() *models.RawDocument {
	return &models.RawDocument{
		Content:  []byte("%PDF-1.7 fixture"),
		MimeType: "application/pdf",
		Filename: "fixture.pdf",
	}
}

func TestIngestTextBasedDocument(t *testing.T) {
	f := newFixture(t, &models.ClassificationResult{Type: models.ClassificationTextBased, PageCount: 2})

	result := f.svc.Ingest(context.Background(), pdfUpload(), interfaces.IngestOptions{})

	require.NotNil(t, result.Extraction)
	assert.True(t, result.Extraction.Success)
	assert.Equal(t, models.SourceNative, result.Extraction.Source)

	require.NotNil(t, result.Vectorization)
	assert.True(t, result.Vectorization.Success)
	assert.Equal(t, 2, result.Vectorization.TotalPages)
	assert.NotEmpty(t, f.sink.chunks)
	assert.True(t, strings.HasPrefix(result.DocumentID, "doc_"))
	assert.Equal(t, 0, f.ocr.runs)
}

func TestIngestValidationFailureIsTerminal(t *testing.T) {
	f := newFixture(t, &models.ClassificationResult{Type: models.ClassificationTextBased, PageCount: 2})
	f.validator.reason = models.FailureTooLarge

	result := f.svc.Ingest(context.Background(), pdfUpload(), interfaces.IngestOptions{})

	assert.False(t, result.Extraction.Success)
	assert.Equal(t, models.FailureTooLarge, result.Extraction.FailureReason)
	assert.NotEmpty(t, result.Extraction.UserMessage)
	assert.Nil(t, result.Vectorization)
}

func TestIngestEncryptedIsTerminal(t *testing.T) {
	f := newFixture(t, &models.ClassificationResult{Type: models.ClassificationEncrypted})

	result := f.svc.Ingest(context.Background(), pdfUpload(), interfaces.IngestOptions{})

	assert.False(t, result.Extraction.Success)
	assert.Equal(t, models.FailureEncrypted, result.Extraction.FailureReason)
	assert.False(t, result.Extraction.RequiresOCR)
	assert.Nil(t, result.Vectorization)
}

func TestIngestScannedWithoutOCRReturnsEstimate(t *testing.T) {
	f := newFixture(t, &models.ClassificationResult{Type: models.ClassificationScanned, PageCount: 10})

	result := f.svc.Ingest(context.Background(), pdfUpload(), interfaces.IngestOptions{EnableOCR: false})

	ext := result.Extraction
	assert.False(t, ext.Success)
	assert.True(t, ext.RequiresOCR)
	assert.Equal(t, models.StatusRequiresOCR, ext.Status)
	require.NotNil(t, ext.OCREstimate)
	assert.Equal(t, 10, ext.OCREstimate.PageCount)
	assert.Equal(t, 100, ext.OCREstimate.EstimatedTimeSeconds)
	assert.True(t, ext.OCREstimate.CanRunSync)
	assert.Equal(t, 0, f.ocr.runs, "no expensive work without opt-in")
	assert.Nil(t, result.Vectorization)
}

func TestIngestScannedWithOCR(t *testing.T) {
	f := newFixture(t, &models.ClassificationResult{Type: models.ClassificationScanned, PageCount: 2})

	result := f.svc.Ingest(context.Background(), pdfUpload(), interfaces.IngestOptions{EnableOCR: true})

	ext := result.Extraction
	assert.True(t, ext.Success)
	assert.Equal(t, models.SourceOCR, ext.Source)
	assert.Equal(t, 1, f.ocr.runs)

	require.NotNil(t, result.Vectorization)
	assert.True(t, result.Vectorization.Success)
	for _, c := range f.sink.chunks {
		assert.Equal(t, models.SourceOCR, c.Source)
	}
}

func TestIngestScannedAboveAsyncCapIsRejected(t *testing.T) {
	f := newFixture(t, &models.ClassificationResult{Type: models.ClassificationScanned, PageCount: 150})

	// The async cap binds even when OCR is enabled.
	result := f.svc.Ingest(context.Background(), pdfUpload(), interfaces.IngestOptions{EnableOCR: true, AsyncOCR: true})

	ext := result.Extraction
	assert.False(t, ext.Success)
	assert.Equal(t, models.FailureTooManyPages, ext.FailureReason)
	assert.True(t, ext.RequiresOCR)
	assert.Equal(t, 0, f.ocr.runs)
}

func TestIngestScannedAboveSyncTierDefersToAsync(t *testing.T) {
	f := newFixture(t, &models.ClassificationResult{Type: models.ClassificationScanned, PageCount: 50})

	result := f.svc.Ingest(context.Background(), pdfUpload(), interfaces.IngestOptions{EnableOCR: true})

	ext := result.Extraction
	assert.False(t, ext.Success)
	assert.True(t, ext.RequiresOCR)
	require.NotNil(t, ext.OCREstimate)
	assert.False(t, ext.OCREstimate.CanRunSync)
	assert.Equal(t, 0, f.ocr.runs, "sync tier must not run a 50 page job")

	// The same document under the async tier runs.
	result = f.svc.Ingest(context.Background(), pdfUpload(), interfaces.IngestOptions{EnableOCR: true, AsyncOCR: true})
	assert.True(t, result.Extraction.Success)
	assert.Equal(t, 1, f.ocr.runs)
}

func TestIngestMixedInsufficientFallsBackToPartial(t *testing.T) {
	f := newFixture(t, &models.ClassificationResult{Type: models.ClassificationMixed, PageCount: 2})
	f.extractor.text = "thin native text" // below the sufficiency threshold
	f.ocr.result = &models.OCRResult{Success: false, FailureReason: models.FailureOCRFailed}

	result := f.svc.Ingest(context.Background(), pdfUpload(), interfaces.IngestOptions{EnableOCR: true})

	ext := result.Extraction
	assert.True(t, ext.Success, "partial native text still counts")
	assert.Equal(t, models.StatusPartial, ext.Status)
	assert.Equal(t, "thin native text", ext.Text)
	assert.NotEmpty(t, ext.Warnings)
}

func TestIngestMixedWithOCRIsHybrid(t *testing.T) {
	f := newFixture(t, &models.ClassificationResult{Type: models.ClassificationMixed, PageCount: 2})
	f.extractor.text = "thin native text\f"
	f.ocr.result = &models.OCRResult{
		Success:        true,
		Text:           "page one recognized\fpage two recognized",
		PageCount:      2,
		PagesProcessed: 2,
		PagesWithText:  2,
	}

	result := f.svc.Ingest(context.Background(), pdfUpload(), interfaces.IngestOptions{EnableOCR: true})

	ext := result.Extraction
	assert.True(t, ext.Success)
	assert.Equal(t, models.SourceHybrid, ext.Source)
	assert.Equal(t, 1, f.ocr.runs)

	// The hybrid text carries the native page and fills the blank page from
	// recognition; the recognized version of the native page is discarded.
	pages := strings.Split(ext.Text, "\f")
	require.Len(t, pages, 2)
	assert.Equal(t, "thin native text", pages[0])
	assert.Equal(t, "page two recognized", pages[1])
}

func TestMergePageTexts(t *testing.T) {
	tests := []struct {
		name       string
		native     string
		recognized string
		want       string
	}{
		{"native page wins", "native one\fnative two", "ocr one\focr two", "native one\fnative two"},
		{"recognition fills blank pages", "native one\f", "ocr one\focr two", "native one\focr two"},
		{"recognition covers extra pages", "native one", "ocr one\focr two\focr three", "native one\focr two\focr three"},
		{"all native blank", "\f", "ocr one\focr two", "ocr one\focr two"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mergePageTexts(tt.native, tt.recognized))
		})
	}
}

func TestIngestHTMLSkipsClassification(t *testing.T) {
	f := newFixture(t, nil) // classifier must never be consulted

	raw := &models.RawDocument{
		Content:  []byte("<html><body><p>" + strings.Repeat("web page content ", 30) + "</p></body></html>"),
		MimeType: "text/html",
		Filename: "page.html",
	}

	result := f.svc.Ingest(context.Background(), raw, interfaces.IngestOptions{})

	assert.True(t, result.Extraction.Success)
	require.NotNil(t, result.Vectorization)
	assert.True(t, result.Vectorization.Success)
	assert.Equal(t, 0, f.ocr.runs)
}

func TestIngestEmptyChunksIsEmptyFailure(t *testing.T) {
	f := newFixture(t, &models.ClassificationResult{Type: models.ClassificationTextBased, PageCount: 1})
	f.extractor.text = "tiny" // below MinPageChars after splitting

	result := f.svc.Ingest(context.Background(), pdfUpload(), interfaces.IngestOptions{})

	require.NotNil(t, result.Vectorization)
	assert.False(t, result.Vectorization.Success)
	assert.Equal(t, models.FailureEmpty, result.Vectorization.FailureReason)
}

func TestIngestSinkFailureReportsNoChunks(t *testing.T) {
	f := newFixture(t, &models.ClassificationResult{Type: models.ClassificationTextBased, PageCount: 2})
	f.sink.err = fmt.Errorf("provider exploded")

	result := f.svc.Ingest(context.Background(), pdfUpload(), interfaces.IngestOptions{})

	require.NotNil(t, result.Vectorization)
	assert.False(t, result.Vectorization.Success)
	assert.Equal(t, 0, result.Vectorization.TotalChunks)
}
