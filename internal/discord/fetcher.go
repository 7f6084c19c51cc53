package discord

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kapu/baselink-bot/internal/domain"
	"github.com/kapu/baselink-bot/internal/metrics"
	"github.com/kapu/baselink-bot/pkg/errors"
	"go.uber.org/zap"
)

// AttachmentFetcher downloads interaction attachments from the Discord CDN.
type AttachmentFetcher struct {
	httpClient *http.Client
	maxBytes   int64
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewAttachmentFetcher(timeout time.Duration, maxBytes int64, m *metrics.Metrics, logger *zap.Logger) *AttachmentFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentFetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxBytes: maxBytes,
		metrics:  m,
		logger:   logger,
	}
}

// Fetch downloads ref. Attachments larger than the configured cap are refused
// before and during the download.
func (f *AttachmentFetcher) Fetch(ctx context.Context, ref AttachmentRef) (*domain.ImageAttachment, error) {
	if ref.URL == "" {
		return nil, errors.NewValidationError("attachment has no URL", "url", ref.ID)
	}
	if f.maxBytes > 0 && ref.Size > f.maxBytes {
		return nil, f.tooLarge(ref)
	}

	start := time.Now()
	data, contentType, err := f.doRequest(ctx, ref)
	f.metrics.ObserveCall("discord_attachment", start, err)
	if err != nil {
		f.logger.Warn("Failed to download attachment",
			zap.String("attachment_id", ref.ID),
			zap.Error(err),
		)
		return nil, err
	}

	if ref.ContentType == "" {
		ref.ContentType = contentType
	}

	return &domain.ImageAttachment{
		Filename:    ref.Filename,
		ContentType: ref.ContentType,
		Data:        data,
	}, nil
}

func (f *AttachmentFetcher) doRequest(ctx context.Context, ref AttachmentRef) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return nil, "", errors.NewAPIError("failed to create request", 500, map[string]any{
			"url": ref.URL,
		}).WithCause(err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", errors.NewAPIError("attachment download failed", 500, map[string]any{
			"url": ref.URL,
		}).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", errors.NewAPIError(
			fmt.Sprintf("attachment download failed: %s", resp.Status),
			resp.StatusCode,
			map[string]any{"url": ref.URL},
		)
	}

	reader := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", errors.NewAPIError("failed to read attachment", 500, map[string]any{
			"url": ref.URL,
		}).WithCause(err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, "", f.tooLarge(ref)
	}

	contentType := resp.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return data, contentType, nil
}

func (f *AttachmentFetcher) tooLarge(ref AttachmentRef) error {
	return errors.NewAPIError(
		fmt.Sprintf("attachment exceeds %d bytes", f.maxBytes),
		http.StatusRequestEntityTooLarge,
		map[string]any{"url": ref.URL, "size": ref.Size},
	)
}
