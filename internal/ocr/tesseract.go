//go:build tesseract

package ocr

import (
	"context"

	"github.com/kapu/baselink-bot/internal/domain"
	apperrors "github.com/kapu/baselink-bot/pkg/errors"
	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"
)

const tesseractBackend = "tesseract"

// TesseractExtractor runs recognition in-process through libtesseract.
type TesseractExtractor struct {
	language string
	logger   *zap.Logger
}

func NewTesseractExtractor(language string, logger *zap.Logger) (Extractor, error) {
	if language == "" {
		language = "eng"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := gosseract.NewClient()
	version := client.Version()
	client.Close()

	logger.Info("Tesseract OCR available",
		zap.String("version", version),
		zap.String("language", language),
	)

	return &TesseractExtractor{language: language, logger: logger}, nil
}

func (t *TesseractExtractor) Name() string {
	return tesseractBackend
}

type tesseractResult struct {
	text string
	err  error
}

func (t *TesseractExtractor) ExtractText(ctx context.Context, att *domain.ImageAttachment) (string, error) {
	format, cfg, err := decodeImage(att.Data)
	if err != nil {
		return "", apperrors.NewExtractionError(tesseractBackend, "failed to decode screenshot", err)
	}

	t.logger.Debug("Running tesseract",
		zap.String("format", format),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
	)

	// gosseract is not context aware; the recognition goroutine is left to
	// finish on its own when ctx expires first.
	resultCh := make(chan tesseractResult, 1)
	go func() {
		client := gosseract.NewClient()
		defer client.Close()

		if err := client.SetLanguage(t.language); err != nil {
			resultCh <- tesseractResult{err: err}
			return
		}
		if err := client.SetImageFromBytes(att.Data); err != nil {
			resultCh <- tesseractResult{err: err}
			return
		}
		text, err := client.Text()
		resultCh <- tesseractResult{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", apperrors.NewExtractionError(tesseractBackend, "recognition timed out", ctx.Err())
	case res := <-resultCh:
		if res.err != nil {
			return "", apperrors.NewExtractionError(tesseractBackend, "recognition failed", res.err)
		}
		return res.text, nil
	}
}
