//go:build !tesseract

package ocr

import (
	"fmt"

	"go.uber.org/zap"
)

// NewTesseractExtractor reports that the binary was built without libtesseract.
func NewTesseractExtractor(language string, logger *zap.Logger) (Extractor, error) {
	return nil, fmt.Errorf("tesseract backend not compiled in; rebuild with -tags tesseract")
}
