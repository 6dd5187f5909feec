package html

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/corpus/internal/common"
	"github.com/ternarybob/corpus/internal/models"
)

func TestExtractHTMLStripsBoilerplate(t *testing.T) {
	e := NewExtractor(common.GetLogger())

	page := `<html><head><title>t</title><script>var x = 1;</script></head>
<body>
<nav>site navigation</nav>
<h1>Quarterly Report</h1>
<p>Revenue grew in the second quarter.</p>
<footer>copyright notice</footer>
</body></html>`

	doc, err := e.Extract(context.Background(), &models.RawDocument{
		Content:  []byte(page),
		MimeType: "text/html",
		Filename: "report.html",
	})

	require.NoError(t, err)
	assert.True(t, doc.Success)
	assert.Equal(t, models.SourceNative, doc.Source)
	assert.Contains(t, doc.Text, "Quarterly Report")
	assert.Contains(t, doc.Text, "Revenue grew")
	assert.NotContains(t, doc.Text, "var x = 1")
	assert.NotContains(t, doc.Text, "site navigation")
	assert.NotContains(t, doc.Text, "copyright notice")
}

func TestExtractPlainTextPassesThrough(t *testing.T) {
	e := NewExtractor(common.GetLogger())

	doc, err := e.Extract(context.Background(), &models.RawDocument{
		Content:  []byte("plain notes about nothing in particular"),
		MimeType: "text/plain",
	})

	require.NoError(t, err)
	assert.Equal(t, "plain notes about nothing in particular", doc.Text)
	assert.Equal(t, models.ClassificationTextBased, doc.Classification.Type)
}

func TestExtractEmptyUploadFails(t *testing.T) {
	e := NewExtractor(common.GetLogger())

	_, err := e.Extract(context.Background(), &models.RawDocument{
		Content:  []byte("   \n  "),
		MimeType: "text/plain",
	})

	require.Error(t, err)
	var perr *models.PipelineError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, models.FailureEmpty, perr.Reason)
}

func TestExtractEmptyHTMLBodyFails(t *testing.T) {
	e := NewExtractor(common.GetLogger())

	_, err := e.Extract(context.Background(), &models.RawDocument{
		Content:  []byte("<html><body><script>only()</script></body></html>"),
		MimeType: "text/html",
	})

	require.Error(t, err)
	var perr *models.PipelineError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, models.FailureEmpty, perr.Reason)
}
