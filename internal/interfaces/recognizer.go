package interfaces

import (
	"context"
	"image"
)

// PageRecognizer turns a rendered page image into text. Implementations may
// call a vision model or a local OCR engine; the OCR engine treats any error
// as a per-page failure and continues with the next page.
type PageRecognizer interface {
	Recognize(ctx context.Context, img image.Image, pageNumber int) (string, error)
}

// PageRenderer rasterizes a single page of a document for recognition.
// Pages are 1-indexed.
type PageRenderer interface {
	PageCount() int
	Render(ctx context.Context, pageNumber int) (image.Image, error)
	Close() error
}
