package command

import (
	"context"

	"github.com/kapu/baselink-bot/internal/adapter"
	"github.com/kapu/baselink-bot/internal/domain"
	"github.com/kapu/baselink-bot/internal/metrics"
	"go.uber.org/zap"
)

type Command interface {
	Name() string
	Description() string
	Execute(ctx context.Context, cmdCtx *domain.CommandContext, params map[string]any) error
}

// TextExtractor is satisfied by every OCR backend.
type TextExtractor interface {
	ExtractText(ctx context.Context, att *domain.ImageAttachment) (string, error)
}

// LinkResolver is satisfied by baselink.Resolver.
type LinkResolver interface {
	Resolve(ctx context.Context, query string) (string, bool, error)
}

type Dependencies struct {
	Extractor TextExtractor
	Resolver  LinkResolver
	Formatter *adapter.ResponseFormatter
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}
