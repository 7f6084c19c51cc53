package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/kapu/baselink-bot/internal/constants"
	"github.com/kapu/baselink-bot/internal/domain"
	"github.com/kapu/baselink-bot/internal/util"
	apperrors "github.com/kapu/baselink-bot/pkg/errors"
	"go.uber.org/zap"
)

// BaselinkCommand answers /baselink: screenshot -> OCR -> YouTube -> link.
// It sends exactly one reply per invocation.
type BaselinkCommand struct {
	deps *Dependencies
}

func NewBaselinkCommand(deps *Dependencies) *BaselinkCommand {
	return &BaselinkCommand{deps: deps}
}

func (c *BaselinkCommand) Name() string {
	return domain.CommandBaselink.String()
}

func (c *BaselinkCommand) Description() string {
	return "Find the base link for a Clash of Clans base screenshot"
}

func (c *BaselinkCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext, params map[string]any) error {
	if cmdCtx == nil || cmdCtx.Responder == nil {
		return fmt.Errorf("command context has no responder")
	}
	if c.deps == nil || c.deps.Formatter == nil {
		return fmt.Errorf("baselink command not configured")
	}

	logger := c.logger().With(
		zap.String("interaction_id", cmdCtx.InteractionID),
		zap.String("user_id", cmdCtx.UserID),
	)

	var res domain.Resolution
	if fetchErr, ok := params[domain.AttachmentErrorParam].(error); ok && fetchErr != nil {
		res = domain.Resolution{Outcome: domain.OutcomeExtractionError, Err: fetchErr}
	} else {
		att, _ := params[domain.ScreenshotParam].(*domain.ImageAttachment)
		res = c.Resolve(ctx, att)
	}

	c.deps.Metrics.RecordOutcome(res.Outcome.String())
	logResolution(logger, res)

	return cmdCtx.Responder.Reply(ctx, c.deps.Formatter.FormatResolution(res))
}

// Resolve runs the pipeline for one attachment and reports the terminal
// outcome without replying.
func (c *BaselinkCommand) Resolve(ctx context.Context, att *domain.ImageAttachment) domain.Resolution {
	if c.deps == nil || c.deps.Extractor == nil || c.deps.Resolver == nil {
		return domain.Resolution{
			Outcome: domain.OutcomeInvalidInput,
			Err:     errors.New("The bot is not ready yet. Please try again later."),
		}
	}

	if att != nil && !att.IsImage() {
		return domain.Resolution{
			Outcome: domain.OutcomeInvalidInput,
			Err:     apperrors.NewValidationError("The attachment must be an image.", domain.ScreenshotParam, att.ContentType),
		}
	}
	if att.Size() == 0 {
		return domain.Resolution{
			Outcome: domain.OutcomeInvalidInput,
			Err:     apperrors.NewValidationError("Please attach a screenshot of the base.", domain.ScreenshotParam, nil),
		}
	}

	text, err := c.deps.Extractor.ExtractText(ctx, att)
	if err != nil {
		return domain.Resolution{Outcome: domain.OutcomeExtractionError, Err: err}
	}
	if util.IsBlank(text) {
		return domain.Resolution{Outcome: domain.OutcomeNoText}
	}

	c.logger().Debug("Text extracted",
		zap.String("text", util.TruncateString(util.CollapseWhitespace(text), constants.LogLimits.ExtractedText)))

	link, found, err := c.deps.Resolver.Resolve(ctx, text)
	switch {
	case err != nil:
		return domain.Resolution{Outcome: domain.OutcomeSearchError, Query: text, Err: err}
	case found:
		return domain.Resolution{Outcome: domain.OutcomeFound, Query: text, Link: link}
	default:
		return domain.Resolution{Outcome: domain.OutcomeNoLink, Query: text}
	}
}

func (c *BaselinkCommand) logger() *zap.Logger {
	if c.deps == nil || c.deps.Logger == nil {
		return zap.NewNop()
	}
	return c.deps.Logger
}

func logResolution(logger *zap.Logger, res domain.Resolution) {
	fields := []zap.Field{zap.String("outcome", res.Outcome.String())}

	switch res.Outcome {
	case domain.OutcomeFound:
		logger.Info("Base link resolved", append(fields, zap.String("link", res.Link))...)
	case domain.OutcomeExtractionError, domain.OutcomeSearchError:
		var searchErr *apperrors.SearchError
		if errors.As(res.Err, &searchErr) {
			fields = append(fields, zap.String("operation", searchErr.Operation))
		}
		logger.Warn("Base link lookup failed", append(fields, zap.Error(res.Err))...)
	default:
		logger.Info("Base link lookup finished", fields...)
	}
}
