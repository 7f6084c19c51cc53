package app

import (
	"context"
	"fmt"

	"github.com/kapu/baselink-bot/internal/adapter"
	"github.com/kapu/baselink-bot/internal/bot"
	"github.com/kapu/baselink-bot/internal/command"
	"github.com/kapu/baselink-bot/internal/config"
	"github.com/kapu/baselink-bot/internal/discord"
	"github.com/kapu/baselink-bot/internal/metrics"
	"github.com/kapu/baselink-bot/internal/ocr"
	"github.com/kapu/baselink-bot/internal/server"
	"github.com/kapu/baselink-bot/internal/service/baselink"
	"github.com/kapu/baselink-bot/internal/service/cache"
	"github.com/kapu/baselink-bot/internal/service/youtube"
	"go.uber.org/zap"
)

// Container bundles assembled services. The CLI subcommands use the services
// directly; NewBot adds the Discord gateway and keep-alive server on top.
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Extractor ocr.Extractor
	YouTube   *youtube.YouTubeService
	Resolver  *baselink.Resolver
	Baselink  *command.BaselinkCommand
	Formatter *adapter.ResponseFormatter
	Registry  *command.Registry

	closers []func() error
}

// Build assembles everything except the Discord connection, which needs a
// token the offline commands do not have.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func() error
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i]()
			}
		}
	}()

	m := metrics.New()

	extractor, err := ocr.New(ctx, cfg, m, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create OCR backend: %w", err)
	}

	youtubeSvc, err := youtube.NewYouTubeService(ctx, cfg.YouTube, m, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	// The description cache is optional; without Redis every lookup goes to the API.
	var descriptions baselink.DescriptionCache
	if cfg.Redis.Enabled() {
		cacheSvc, cacheErr := cache.NewCacheService(cache.CacheConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		}, logger)
		if cacheErr != nil {
			logger.Warn("Description cache unavailable, continuing without it", zap.Error(cacheErr))
		} else {
			descriptions = cacheSvc
			closers = append(closers, cacheSvc.Close)
		}
	}

	resolver := baselink.NewResolver(youtubeSvc, descriptions, logger)
	formatter := adapter.NewResponseFormatter()

	deps := &command.Dependencies{
		Extractor: extractor,
		Resolver:  resolver,
		Formatter: formatter,
		Metrics:   m,
		Logger:    logger,
	}

	registry := command.NewRegistry()
	baselinkCmd := command.NewBaselinkCommand(deps)
	registry.Register(baselinkCmd)
	registry.Register(command.NewHelpCommand(deps, registry))

	logger.Info("Services assembled",
		zap.String("ocr_backend", extractor.Name()),
		zap.String("youtube_auth", cfg.YouTube.AuthMode),
		zap.Bool("description_cache", descriptions != nil),
		zap.Int("commands", registry.Count()))

	return &Container{
		Config:    cfg,
		Logger:    logger,
		Metrics:   m,
		Extractor: extractor,
		YouTube:   youtubeSvc,
		Resolver:  resolver,
		Baselink:  baselinkCmd,
		Formatter: formatter,
		Registry:  registry,
		closers:   closers,
	}, nil
}

// NewBot wires the Discord gateway and keep-alive server around the services.
// The bot takes ownership of the container's closers.
func (c *Container) NewBot() (*bot.Bot, error) {
	if c == nil || c.Registry == nil {
		return nil, fmt.Errorf("bot dependencies not initialized")
	}
	if err := c.Config.ValidateGateway(); err != nil {
		return nil, err
	}

	fetcher := discord.NewAttachmentFetcher(
		c.Config.Discord.DownloadTimeout,
		c.Config.Discord.MaxAttachmentBytes,
		c.Metrics,
		c.Logger,
	)

	gateway, err := discord.NewGateway(
		c.Config.Discord.Token,
		c.Config.Discord.GuildID,
		c.Config.Discord.InteractionTimeout,
		c.Registry,
		fetcher,
		c.Logger,
	)
	if err != nil {
		return nil, err
	}

	status := func() (string, bool) {
		return gateway.State().String(), gateway.IsConnected()
	}
	keepAlive := server.New(c.Config.Server.Port, status, c.Metrics, c.Logger)

	closers := c.closers
	c.closers = nil

	return bot.NewBot(&bot.Dependencies{
		Gateway: gateway,
		Server:  keepAlive,
		Logger:  c.Logger,
		Closers: closers,
	})
}

// Close releases infrastructure not handed to a bot.
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}
