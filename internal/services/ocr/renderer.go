package ocr

import (
	"context"
	"image"

	"github.com/gen2brain/go-fitz"

	"github.com/ternarybob/corpus/internal/interfaces"
)

// fitzRenderer rasterizes PDF pages one at a time, bounding peak memory to a
// single page image.
type fitzRenderer struct {
	doc *fitz.Document
}

// Compile-time interface assertion
var _ interfaces.PageRenderer = (*fitzRenderer)(nil)

// newFitzRenderer opens a document from memory for page rendering.
func newFitzRenderer(content []byte) (interfaces.PageRenderer, error) {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return nil, err
	}
	return &fitzRenderer{doc: doc}, nil
}

func (r *fitzRenderer) PageCount() int {
	return r.doc.NumPage()
}

func (r *fitzRenderer) Render(ctx context.Context, pageNumber int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.doc.Image(pageNumber - 1)
}

func (r *fitzRenderer) Close() error {
	return r.doc.Close()
}
