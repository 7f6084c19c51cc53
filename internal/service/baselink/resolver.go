// Package baselink finds a Clash of Clans base link in the descriptions of the
// videos a YouTube search returns for some OCR text.
package baselink

import (
	"context"
	"fmt"
	"regexp"

	"github.com/kapu/baselink-bot/internal/constants"
	"github.com/kapu/baselink-bot/internal/domain"
	"github.com/kapu/baselink-bot/internal/util"
	apperrors "github.com/kapu/baselink-bot/pkg/errors"
	"go.uber.org/zap"
)

var baseLinkRegex = regexp.MustCompile(constants.BaseLinkPattern)

// VideoAPI is the subset of the YouTube service the resolver calls.
type VideoAPI interface {
	SearchVideos(ctx context.Context, query string, maxResults int64) ([]domain.SearchResultItem, error)
	VideoDescription(ctx context.Context, videoID string) (string, bool, error)
}

// DescriptionCache stores descriptions by video id. Implementations may fail;
// the resolver treats every failure as a miss.
type DescriptionCache interface {
	GetDescription(ctx context.Context, videoID string) (string, bool, error)
	SetDescription(ctx context.Context, videoID, description string) error
}

type Resolver struct {
	videos     VideoAPI
	cache      DescriptionCache
	maxResults int64
	logger     *zap.Logger
}

// NewResolver builds a resolver. cache may be nil.
func NewResolver(videos VideoAPI, cache DescriptionCache, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		videos:     videos,
		cache:      cache,
		maxResults: constants.SearchConfig.MaxResults,
		logger:     logger,
	}
}

// FindLink returns the first base link in description, or "" and false.
func FindLink(description string) (string, bool) {
	link := baseLinkRegex.FindString(description)
	return link, link != ""
}

// NormalizeQuery collapses whitespace and caps the length of the search text.
func NormalizeQuery(text string) string {
	return util.LimitRunes(util.CollapseWhitespace(text), constants.SearchConfig.MaxQueryLength)
}

// Resolve searches YouTube for query and scans the returned videos in order,
// stopping at the first description that contains a base link. A search or
// lookup failure is returned as *errors.SearchError; no match is ("", false, nil).
func (r *Resolver) Resolve(ctx context.Context, query string) (string, bool, error) {
	q := NormalizeQuery(query)
	if q == "" {
		return "", false, nil
	}

	items, err := r.videos.SearchVideos(ctx, q, r.maxResults)
	if err != nil {
		return "", false, apperrors.NewSearchError("search.list", err)
	}

	r.logger.Debug("Scanning search results",
		zap.String("query", util.TruncateString(q, constants.LogLimits.ExtractedText)),
		zap.Int("results", len(items)))

	for _, item := range items {
		if !item.IsVideo() {
			continue
		}

		description, ok, err := r.description(ctx, item.VideoID)
		if err != nil {
			return "", false, apperrors.NewSearchError("videos.list", fmt.Errorf("video %s: %w", item.VideoID, err))
		}
		if !ok {
			continue
		}

		if link, found := FindLink(description); found {
			r.logger.Info("Base link found", zap.String("video_id", item.VideoID))
			return link, true, nil
		}
	}

	return "", false, nil
}

func (r *Resolver) description(ctx context.Context, videoID string) (string, bool, error) {
	if r.cache != nil {
		cached, ok, err := r.cache.GetDescription(ctx, videoID)
		if err != nil {
			r.logger.Warn("Description cache read failed", zap.String("video_id", videoID), zap.Error(err))
		} else if ok {
			return cached, true, nil
		}
	}

	description, ok, err := r.videos.VideoDescription(ctx, videoID)
	if err != nil || !ok {
		return "", ok, err
	}

	if r.cache != nil {
		if err := r.cache.SetDescription(ctx, videoID, description); err != nil {
			r.logger.Warn("Description cache write failed", zap.String("video_id", videoID), zap.Error(err))
		}
	}
	return description, true, nil
}
