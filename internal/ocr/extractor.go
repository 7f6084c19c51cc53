// Package ocr turns screenshot bytes into plain text. Four interchangeable
// backends implement Extractor; New picks one from configuration at start-up.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kapu/baselink-bot/internal/config"
	"github.com/kapu/baselink-bot/internal/constants"
	"github.com/kapu/baselink-bot/internal/domain"
	"github.com/kapu/baselink-bot/internal/metrics"
	"github.com/kapu/baselink-bot/internal/util"
	apperrors "github.com/kapu/baselink-bot/pkg/errors"
	"go.uber.org/zap"
)

// Extractor produces the text content of an image. An image without text
// yields "" and a nil error.
type Extractor interface {
	Name() string
	ExtractText(ctx context.Context, att *domain.ImageAttachment) (string, error)
}

// New builds the backend named by cfg.OCR.Backend, wrapped with the per-call
// timeout, metrics and error normalisation shared by all backends.
func New(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) (Extractor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		backend Extractor
		err     error
	)

	switch cfg.OCR.Backend {
	case config.OCRBackendOCRSpace:
		backend, err = NewOCRSpaceClient(OCRSpaceConfig{
			APIKey:   cfg.OCR.APIKey,
			Endpoint: cfg.OCR.Endpoint,
			Language: cfg.OCR.Language,
			Timeout:  cfg.OCR.Timeout,
			TempDir:  cfg.OCR.TempDir,
		}, logger)
	case config.OCRBackendTesseract:
		backend, err = NewTesseractExtractor(cfg.OCR.Language, logger)
	case config.OCRBackendOpenAI:
		backend, err = NewOpenAIVisionExtractor(cfg.OpenAI, logger)
	case config.OCRBackendGemini:
		backend, err = NewGeminiVisionExtractor(ctx, cfg.Gemini, logger)
	default:
		err = fmt.Errorf("unknown OCR backend %q", cfg.OCR.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s OCR backend: %w", cfg.OCR.Backend, err)
	}

	logger.Info("OCR backend initialized",
		zap.String("backend", backend.Name()),
		zap.Duration("timeout", cfg.OCR.Timeout),
	)

	return Instrument(backend, cfg.OCR.Timeout, m, logger), nil
}

type instrumented struct {
	next    Extractor
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// Instrument applies timeout, metrics and logging around next. Every failure
// leaving the returned Extractor is an *errors.ExtractionError.
func Instrument(next Extractor, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &instrumented{next: next, timeout: timeout, metrics: m, logger: logger}
}

func (i *instrumented) Name() string {
	return i.next.Name()
}

func (i *instrumented) ExtractText(ctx context.Context, att *domain.ImageAttachment) (string, error) {
	name := i.next.Name()
	if att == nil || len(att.Data) == 0 {
		return "", apperrors.NewExtractionError(name, "attachment is empty", nil)
	}

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := i.next.ExtractText(ctx, att)
	i.metrics.ObserveCall("ocr_"+name, start, err)

	if err != nil {
		var extErr *apperrors.ExtractionError
		if !errors.As(err, &extErr) {
			err = apperrors.NewExtractionError(name, "text extraction failed", err)
		}
		i.logger.Warn("Text extraction failed",
			zap.String("backend", name),
			zap.String("filename", att.Filename),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return "", err
	}

	i.logger.Debug("Text extracted",
		zap.String("backend", name),
		zap.String("filename", att.Filename),
		zap.Int("bytes", att.Size()),
		zap.Int("text_length", len(text)),
		zap.String("text", util.TruncateString(text, constants.LogLimits.ExtractedText)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return text, nil
}
