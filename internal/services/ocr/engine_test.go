package ocr

import (
	"context"
	"fmt"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/corpus/internal/common"
	"github.com/ternarybob/corpus/internal/governor"
	"github.com/ternarybob/corpus/internal/interfaces"
)

// fakeRenderer serves a fixed page count and fails the pages listed in
// failPages.
type fakeRenderer struct {
	pages     int
	failPages map[int]bool
	closed    bool
}

func (r *fakeRenderer) PageCount() int { return r.pages }

func (r *fakeRenderer) Render(ctx context.Context, pageNumber int) (image.Image, error) {
	if r.failPages[pageNumber] {
		return nil, fmt.Errorf("render error on page %d", pageNumber)
	}
	return image.NewGray(image.Rect(0, 0, 8, 8)), nil
}

func (r *fakeRenderer) Close() error {
	r.closed = true
	return nil
}

// fakeRecognizer returns canned text per page and fails the pages listed in
// failPages.
type fakeRecognizer struct {
	failPages map[int]bool
	blank     map[int]bool
}

func (f *fakeRecognizer) Recognize(ctx context.Context, img image.Image, pageNumber int) (string, error) {
	if f.failPages[pageNumber] {
		return "", fmt.Errorf("recognition error on page %d", pageNumber)
	}
	if f.blank[pageNumber] {
		return "", nil
	}
	return fmt.Sprintf("recognized text of page %d", pageNumber), nil
}

func newTestEngine(t *testing.T, recognizer interfaces.PageRecognizer, renderer *fakeRenderer) *Engine {
	t.Helper()
	cfg := common.NewDefaultConfig()
	e := NewEngine(&cfg.Pipeline, recognizer, governor.New("ocr", 1), common.GetLogger())
	e.newRenderer = func(content []byte) (interfaces.PageRenderer, error) {
		return renderer, nil
	}
	return e
}

func TestEstimate(t *testing.T) {
	cfg := common.NewDefaultConfig()
	e := NewEngine(&cfg.Pipeline, &fakeRecognizer{}, governor.New("ocr", 1), common.GetLogger())

	est := e.Estimate(10)
	assert.Equal(t, 10, est.PageCount)
	assert.Equal(t, 100, est.EstimatedTimeSeconds)
	assert.True(t, est.CanRunSync)
	assert.NotEmpty(t, est.Warning)

	est = e.Estimate(50)
	assert.False(t, est.CanRunSync, "50 pages exceeds the synchronous tier")
}

func TestRunRecognizesEveryPage(t *testing.T) {
	renderer := &fakeRenderer{pages: 3}
	e := newTestEngine(t, &fakeRecognizer{}, renderer)

	result, err := e.Run(context.Background(), nil, 30, nil)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.PageCount)
	assert.Equal(t, 3, result.PagesProcessed)
	assert.Equal(t, 3, result.PagesWithText)
	assert.Contains(t, result.Text, "recognized text of page 1")
	assert.Contains(t, result.Text, "\f")
	assert.True(t, renderer.closed)
}

func TestRunPageFailureLeavesPlaceholder(t *testing.T) {
	renderer := &fakeRenderer{pages: 3}
	recognizer := &fakeRecognizer{failPages: map[int]bool{2: true}}
	e := newTestEngine(t, recognizer, renderer)

	result, err := e.Run(context.Background(), nil, 30, nil)

	require.NoError(t, err)
	assert.True(t, result.Success, "partial output beats total failure")
	assert.Equal(t, 3, result.PagesProcessed)
	assert.Equal(t, 2, result.PagesWithText)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "page 2")
}

func TestRunRenderFailureLeavesPlaceholder(t *testing.T) {
	renderer := &fakeRenderer{pages: 2, failPages: map[int]bool{1: true}}
	e := newTestEngine(t, &fakeRecognizer{}, renderer)

	result, err := e.Run(context.Background(), nil, 30, nil)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.PagesWithText)
}

func TestRunAllPagesBlankIsFailure(t *testing.T) {
	renderer := &fakeRenderer{pages: 2}
	recognizer := &fakeRecognizer{blank: map[int]bool{1: true, 2: true}}
	e := newTestEngine(t, recognizer, renderer)

	result, err := e.Run(context.Background(), nil, 30, nil)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 2, result.PagesProcessed)
	assert.Equal(t, 0, result.PagesWithText)
}

func TestRunHonorsPageCap(t *testing.T) {
	renderer := &fakeRenderer{pages: 10}
	e := newTestEngine(t, &fakeRecognizer{}, renderer)

	result, err := e.Run(context.Background(), nil, 4, nil)

	require.NoError(t, err)
	assert.Equal(t, 4, result.PageCount)
	assert.Equal(t, 4, result.PagesProcessed)
}
