package pdf

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/corpus/internal/models"
)

func failureOf(t *testing.T, err error) models.FailureReason {
	t.Helper()
	var perr *models.PipelineError
	require.True(t, errors.As(err, &perr), "expected a pipeline error, got %v", err)
	return perr.Reason
}

func TestValidateSizeLimitBeforeAnythingElse(t *testing.T) {
	v := NewValidator(100)

	// Oversized garbage must report TOO_LARGE, not CORRUPTED.
	raw := &models.RawDocument{
		Content:  bytes.Repeat([]byte{0xFF}, 101),
		MimeType: "application/pdf",
	}

	err := v.Validate(raw)
	require.Error(t, err)
	assert.Equal(t, models.FailureTooLarge, failureOf(t, err))
}

func TestValidateEmptyBuffer(t *testing.T) {
	v := NewValidator(100)

	err := v.Validate(&models.RawDocument{MimeType: "application/pdf"})
	require.Error(t, err)
	assert.Equal(t, models.FailureEmpty, failureOf(t, err))
}

func TestValidatePDFMagic(t *testing.T) {
	v := NewValidator(1 << 20)

	tests := []struct {
		name    string
		content []byte
		wantErr bool
	}{
		{"valid signature", []byte("%PDF-1.7 rest of file"), false},
		{"missing signature", []byte("not a pdf at all"), true},
		{"signature mid-buffer", []byte("junk%PDF-1.7"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&models.RawDocument{Content: tt.content, MimeType: "application/pdf"})
			if tt.wantErr {
				assert.Equal(t, models.FailureCorrupted, failureOf(t, err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTextUploads(t *testing.T) {
	v := NewValidator(1 << 20)

	err := v.Validate(&models.RawDocument{Content: []byte("<html><body>hi</body></html>"), MimeType: "text/html"})
	assert.NoError(t, err)

	err = v.Validate(&models.RawDocument{Content: []byte("plain notes"), MimeType: "text/plain"})
	assert.NoError(t, err)

	// Binary bytes declared as text are rejected.
	err = v.Validate(&models.RawDocument{Content: []byte{'h', 'i', 0x00, 0x01}, MimeType: "text/plain"})
	assert.Equal(t, models.FailureCorrupted, failureOf(t, err))
}
