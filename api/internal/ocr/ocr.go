// Package ocr turns a photographed page into plain text.
package ocr

import "context"

// Recognizer extracts the text printed on an image.
type Recognizer interface {
	Name() string
	ExtractText(ctx context.Context, image []byte) (string, error)
}

type Options struct {
	// Langs are BCP-47 hints, e.g. ["ko", "en"].
	Langs []string
	// Model is provider specific ("page", "handwritten", ...).
	Model string
}

// Nop recognizes nothing. Used when OCR is switched off: generation then relies
// on the image alone and retrieval is skipped.
type Nop struct{}

func (Nop) Name() string { return "none" }

func (Nop) ExtractText(context.Context, []byte) (string, error) { return "", nil }
