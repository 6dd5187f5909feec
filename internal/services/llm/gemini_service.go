// -----------------------------------------------------------------------
// Gemini Service - Reference embedding and page-recognition provider
// -----------------------------------------------------------------------

package llm

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/corpus/internal/common"
	"github.com/ternarybob/corpus/internal/interfaces"
)

const transcriptionPrompt = "Transcribe all text visible in this scanned document page. " +
	"Preserve the reading order and paragraph breaks. " +
	"Return only the transcribed text with no commentary. " +
	"If the page contains no readable text, return an empty response."

// GeminiService backs both the embedding provider and the page recognizer
// ports with the Gemini API. Rate-limited calls retry with backoff; any other
// failure surfaces to the caller, which drops the chunk or page.
type GeminiService struct {
	config *common.GeminiConfig
	logger arbor.ILogger
	client *genai.Client
	retry  retryPolicy
}

// Compile-time interface assertions
var (
	_ interfaces.EmbeddingProvider = (*GeminiService)(nil)
	_ interfaces.PageRecognizer    = (*GeminiService)(nil)
)

// NewGeminiService creates the Gemini-backed provider.
func NewGeminiService(config *common.GeminiConfig, logger arbor.ILogger) (*GeminiService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or gemini.api_key in config)")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	logger.Info().
		Str("embed_model", config.EmbedModel).
		Str("vision_model", config.VisionModel).
		Int("embed_dimension", config.EmbedDimension).
		Msg("Gemini service initialized")

	return &GeminiService{
		config: config,
		logger: logger,
		client: client,
		retry:  defaultRetryPolicy,
	}, nil
}

// Embed generates an embedding vector with the configured dimensionality.
func (s *GeminiService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty for embedding generation")
	}

	var embedding []float32
	err := s.withRetry(ctx, "embed", func() error {
		var callErr error
		embedding, callErr = s.generateEmbedding(ctx, text)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return embedding, nil
}

// Recognize transcribes a rendered page image with the vision model.
func (s *GeminiService) Recognize(ctx context.Context, img image.Image, pageNumber int) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode page %d: %w", pageNumber, err)
	}

	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			genai.NewPartFromBytes(buf.Bytes(), "image/png"),
			genai.NewPartFromText(transcriptionPrompt),
		},
	}}

	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.config.Temperature),
	}

	var text string
	err := s.withRetry(ctx, "recognize", func() error {
		resp, callErr := s.client.Models.GenerateContent(ctx, s.config.VisionModel, contents, genConfig)
		if callErr != nil {
			return fmt.Errorf("page recognition failed: %w", callErr)
		}
		text = responseText(resp)
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Debug().
		Int("page", pageNumber).
		Int("text_length", len(text)).
		Msg("Page recognized")

	return text, nil
}

// generateEmbedding calls the embedding model and validates the dimension.
func (s *GeminiService) generateEmbedding(ctx context.Context, text string) ([]float32, error) {
	outputDim := int32(s.config.EmbedDimension)
	embeddingConfig := &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	}

	result, err := s.client.Models.EmbedContent(ctx, s.config.EmbedModel, []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, embeddingConfig)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	var embedding []float32
	if result != nil && len(result.Embeddings) > 0 {
		embedding = result.Embeddings[0].Values
	}
	if embedding == nil {
		return nil, fmt.Errorf("no embedding returned from API")
	}
	if len(embedding) != s.config.EmbedDimension {
		return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", s.config.EmbedDimension, len(embedding))
	}

	return embedding, nil
}

// withRetry runs an API call, retrying on rate limit errors with backoff.
// Non-rate-limit errors return immediately.
func (s *GeminiService) withRetry(ctx context.Context, operation string, call func() error) error {
	var lastErr error

	for attempt := 0; attempt <= s.retry.maxAttempts; attempt++ {
		lastErr = call()
		if lastErr == nil {
			return nil
		}
		if !rateLimited(lastErr) {
			return lastErr
		}

		backoff := s.retry.delay(attempt, lastErr)
		s.logger.Warn().
			Str("operation", operation).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("Rate limited by Gemini API, backing off")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("%s failed after %d retries: %w", operation, s.retry.maxAttempts, lastErr)
}

// responseText concatenates the text parts of the first candidate that has
// any.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var out bytes.Buffer
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				out.WriteString(part.Text)
			}
		}
		if out.Len() > 0 {
			break
		}
	}
	return out.String()
}
