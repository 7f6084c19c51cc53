package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kapu/baselink-bot/internal/config"
	"github.com/kapu/baselink-bot/internal/constants"
	"github.com/kapu/baselink-bot/internal/domain"
	"github.com/kapu/baselink-bot/internal/metrics"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubeService wraps the Data API v3 calls the link resolver needs and keeps
// a local estimate of the daily quota.
type YouTubeService struct {
	service    *youtube.Service
	timeout    time.Duration
	metrics    *metrics.Metrics
	logger     *zap.Logger
	quotaUsed  int
	quotaMu    sync.Mutex
	quotaReset time.Time
	now        func() time.Time
}

// NewYouTubeService authenticates with the API key or, in oauth mode, with the
// stored installed-app token.
func NewYouTubeService(ctx context.Context, cfg config.YouTubeConfig, m *metrics.Metrics, logger *zap.Logger) (*YouTubeService, error) {
	var opts []option.ClientOption

	switch cfg.AuthMode {
	case config.YouTubeAuthOAuth:
		client, err := NewOAuthHTTPClient(ctx, cfg.CredentialsFile, cfg.TokenFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithHTTPClient(client))
	default:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("YouTube API key is required")
		}
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	return NewYouTubeServiceWithOptions(ctx, cfg.Timeout, m, logger, opts...)
}

// NewYouTubeServiceWithOptions builds the service from raw client options.
func NewYouTubeServiceWithOptions(ctx context.Context, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger, opts ...option.ClientOption) (*YouTubeService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	ys := &YouTubeService{
		service: service,
		timeout: timeout,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
	ys.quotaReset = ys.nextQuotaReset()

	logger.Info("YouTube service initialized",
		zap.Duration("timeout", timeout),
		zap.Time("quotaReset", ys.quotaReset))

	return ys, nil
}

// nextQuotaReset returns the next midnight Pacific Time, when the Data API
// quota resets.
func (ys *YouTubeService) nextQuotaReset() time.Time {
	pt, err := time.LoadLocation(constants.YouTubeQuota.ResetLocation)
	if err != nil {
		pt = time.FixedZone("PT", -8*60*60)
	}
	now := ys.now().In(pt)
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, pt)
}

func (ys *YouTubeService) checkQuota(cost int) error {
	ys.quotaMu.Lock()
	defer ys.quotaMu.Unlock()

	if ys.now().After(ys.quotaReset) {
		ys.quotaUsed = 0
		ys.quotaReset = ys.nextQuotaReset()
		ys.logger.Info("YouTube API quota auto-reset",
			zap.Time("nextReset", ys.quotaReset))
	}

	limit := constants.YouTubeQuota.DailyLimit - constants.YouTubeQuota.SafetyMargin
	if ys.quotaUsed+cost > limit {
		return &QuotaExceededError{
			Used:      ys.quotaUsed,
			Limit:     constants.YouTubeQuota.DailyLimit,
			Requested: cost,
			ResetTime: ys.quotaReset,
		}
	}

	return nil
}

func (ys *YouTubeService) consumeQuota(cost int) {
	ys.quotaMu.Lock()
	defer ys.quotaMu.Unlock()

	ys.quotaUsed += cost
	remaining := constants.YouTubeQuota.DailyLimit - ys.quotaUsed

	ys.logger.Debug("YouTube API quota consumed",
		zap.Int("cost", cost),
		zap.Int("used", ys.quotaUsed),
		zap.Int("remaining", remaining))

	if remaining < constants.YouTubeQuota.SafetyMargin*2 {
		ys.logger.Warn("YouTube API quota running low",
			zap.Int("remaining", remaining),
			zap.Time("resetTime", ys.quotaReset))
	}
}

// SearchVideos runs search.list for query and returns the hits in API order.
func (ys *YouTubeService) SearchVideos(ctx context.Context, query string, maxResults int64) ([]domain.SearchResultItem, error) {
	cost := constants.YouTubeQuota.SearchCost
	if err := ys.checkQuota(cost); err != nil {
		return nil, err
	}

	ctx, cancel := ys.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	response, err := ys.service.Search.List(constants.SearchConfig.SearchParts).
		Q(query).
		Type("video").
		MaxResults(maxResults).
		Context(ctx).
		Do()
	ys.metrics.ObserveCall("youtube_search", start, err)
	if err != nil {
		return nil, ys.translateError(err, cost)
	}
	ys.consumeQuota(cost)

	items := make([]domain.SearchResultItem, 0, len(response.Items))
	for _, item := range response.Items {
		if item == nil || item.Id == nil {
			continue
		}
		items = append(items, domain.SearchResultItem{
			Kind:    item.Id.Kind,
			VideoID: item.Id.VideoId,
		})
	}

	ys.logger.Debug("YouTube search completed",
		zap.Int("results", len(items)),
		zap.Duration("elapsed", time.Since(start)))

	return items, nil
}

// VideoDescription fetches the full description of one video. found is false
// when the API returns no item for the id.
func (ys *YouTubeService) VideoDescription(ctx context.Context, videoID string) (string, bool, error) {
	cost := constants.YouTubeQuota.VideosCost
	if err := ys.checkQuota(cost); err != nil {
		return "", false, err
	}

	ctx, cancel := ys.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	response, err := ys.service.Videos.List(constants.SearchConfig.VideoParts).
		Id(videoID).
		Context(ctx).
		Do()
	ys.metrics.ObserveCall("youtube_videos", start, err)
	if err != nil {
		return "", false, ys.translateError(err, cost)
	}
	ys.consumeQuota(cost)

	if len(response.Items) == 0 || response.Items[0].Snippet == nil {
		return "", false, nil
	}
	return response.Items[0].Snippet.Description, true, nil
}

func (ys *YouTubeService) GetQuotaStatus() (used int, remaining int, resetTime time.Time) {
	ys.quotaMu.Lock()
	defer ys.quotaMu.Unlock()

	if ys.now().After(ys.quotaReset) {
		return 0, constants.YouTubeQuota.DailyLimit, ys.nextQuotaReset()
	}

	return ys.quotaUsed, constants.YouTubeQuota.DailyLimit - ys.quotaUsed, ys.quotaReset
}

func (ys *YouTubeService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ys.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, ys.timeout)
}

// translateError maps a 403 quotaExceeded response to QuotaExceededError and
// wraps everything else.
func (ys *YouTubeService) translateError(err error, cost int) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden && isQuotaReason(apiErr) {
		ys.quotaMu.Lock()
		defer ys.quotaMu.Unlock()
		return &QuotaExceededError{
			Used:      ys.quotaUsed,
			Limit:     constants.YouTubeQuota.DailyLimit,
			Requested: cost,
			ResetTime: ys.quotaReset,
		}
	}
	return fmt.Errorf("YouTube API error: %w", err)
}

func isQuotaReason(apiErr *googleapi.Error) bool {
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded":
			return true
		}
	}
	return false
}

type QuotaExceededError struct {
	Used      int
	Limit     int
	Requested int
	ResetTime time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("YouTube API quota exceeded: used %d/%d (requested %d more), resets at %s",
		e.Used, e.Limit, e.Requested, e.ResetTime.Format(time.RFC3339))
}
