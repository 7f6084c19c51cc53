// Package discord connects the command registry to the Discord gateway.
package discord

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kapu/baselink-bot/internal/domain"
	"github.com/kapu/baselink-bot/internal/util"
	"go.uber.org/zap"
)

// maxMessageRunes is Discord's content limit for one message.
const maxMessageRunes = 2000

// CommandExecutor dispatches a slash command by name.
type CommandExecutor interface {
	Execute(ctx context.Context, cmdCtx *domain.CommandContext, key string, params map[string]any) error
}

// Fetcher downloads an attachment.
type Fetcher interface {
	Fetch(ctx context.Context, ref AttachmentRef) (*domain.ImageAttachment, error)
}

// interactionAPI is the part of *discordgo.Session the gateway calls over REST.
type interactionAPI interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

type Gateway struct {
	session  *discordgo.Session
	api      interactionAPI
	commands CommandExecutor
	fetcher  Fetcher
	guildID  string
	timeout  time.Duration
	logger   *zap.Logger

	state   ConnectionState
	stateMu sync.RWMutex

	baseCtx    context.Context
	cancelBase context.CancelFunc
	removers   []func()

	// closing is set under handlersMu before handlers.Wait, so no Add can
	// race the Wait.
	handlersMu sync.Mutex
	closing    bool
	handlers   sync.WaitGroup
}

// NewGateway prepares a bot session. Nothing connects until Open.
// interactionTimeout bounds one whole interaction, download to reply.
func NewGateway(token, guildID string, interactionTimeout time.Duration, commands CommandExecutor, fetcher Fetcher, logger *zap.Logger) (*Gateway, error) {
	if token == "" {
		return nil, fmt.Errorf("discord token is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	g := newGateway(session, guildID, interactionTimeout, commands, fetcher, logger)
	g.session = session
	return g, nil
}

func newGateway(api interactionAPI, guildID string, interactionTimeout time.Duration, commands CommandExecutor, fetcher Fetcher, logger *zap.Logger) *Gateway {
	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		api:        api,
		commands:   commands,
		fetcher:    fetcher,
		guildID:    guildID,
		timeout:    interactionTimeout,
		logger:     logger,
		state:      StateDisconnected,
		baseCtx:    ctx,
		cancelBase: cancel,
	}
}

// Open registers the event handlers and connects to the gateway.
func (g *Gateway) Open() error {
	if g.session == nil {
		return fmt.Errorf("gateway has no session")
	}

	g.removers = append(g.removers,
		g.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) { g.onReady(r) }),
		g.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Connect) { g.setState(StateConnected) }),
		g.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) { g.setState(StateDisconnected) }),
		g.session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) { g.HandleInteraction(i) }),
	)

	g.setState(StateConnecting)
	if err := g.session.Open(); err != nil {
		g.setState(StateDisconnected)
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	return nil
}

// Close disconnects and waits for in-flight interactions to finish.
func (g *Gateway) Close(ctx context.Context) error {
	g.handlersMu.Lock()
	g.closing = true
	g.handlersMu.Unlock()

	for _, remove := range g.removers {
		remove()
	}
	g.removers = nil

	var closeErr error
	if g.session != nil {
		closeErr = g.session.Close()
	}
	g.setState(StateDisconnected)

	done := make(chan struct{})
	go func() {
		g.handlers.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		g.cancelBase()
		g.logger.Warn("Interactions still running at shutdown")
	}
	g.cancelBase()

	return closeErr
}

func (g *Gateway) State() ConnectionState {
	g.stateMu.RLock()
	defer g.stateMu.RUnlock()
	return g.state
}

func (g *Gateway) IsConnected() bool {
	return g.State() == StateConnected
}

func (g *Gateway) setState(state ConnectionState) {
	g.stateMu.Lock()
	old := g.state
	g.state = state
	g.stateMu.Unlock()

	if old != state {
		g.logger.Info("Discord gateway state changed",
			zap.String("from", old.String()),
			zap.String("to", state.String()))
	}
}

func (g *Gateway) onReady(r *discordgo.Ready) {
	g.setState(StateConnected)
	if r == nil || r.User == nil {
		return
	}

	created, err := g.api.ApplicationCommandBulkOverwrite(r.User.ID, g.guildID, ApplicationCommands())
	if err != nil {
		g.logger.Error("Failed to register slash commands", zap.Error(err))
		return
	}

	g.logger.Info("Slash commands registered",
		zap.String("user", r.User.Username),
		zap.String("guild_id", g.guildID),
		zap.Int("count", len(created)))
}

// ApplicationCommands is the slash command set the bot registers.
func ApplicationCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        domain.CommandBaselink.String(),
			Description: "Find the base link for a Clash of Clans base screenshot",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionAttachment,
					Name:        domain.ScreenshotParam,
					Description: "Screenshot of the base",
					Required:    true,
				},
			},
		},
		{
			Name:        domain.CommandHelp.String(),
			Description: "Show what the bot can do",
		},
	}
}

// HandleInteraction acknowledges an application command, runs it and makes
// sure exactly one follow-up reaches the user.
func (g *Gateway) HandleInteraction(i *discordgo.InteractionCreate) {
	if i == nil || i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	if !g.beginInteraction() {
		g.logger.Debug("Dropping interaction received during shutdown", zap.String("interaction_id", i.ID))
		return
	}
	defer g.handlers.Done()

	ctx := g.baseCtx
	var cancel context.CancelFunc = func() {}
	if g.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
	}
	defer cancel()

	data := i.ApplicationCommandData()
	logger := g.logger.With(
		zap.String("interaction_id", i.ID),
		zap.String("command", data.Name),
	)

	err := g.api.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		logger.Error("Failed to defer interaction", zap.Error(err))
		return
	}

	responder := &followupResponder{api: g.api, interaction: i.Interaction}
	userID, username := interactionUser(i.Interaction)
	cmdCtx := domain.NewCommandContext(i.ID, i.GuildID, i.ChannelID, userID, username, responder)

	params := g.buildParams(ctx, data, logger)

	if err := g.commands.Execute(ctx, cmdCtx, data.Name, params); err != nil {
		logger.Error("Command failed", zap.Error(err))
	}

	if !responder.replied() {
		if err := responder.Reply(ctx, "⚠️ Something went wrong. Please try again."); err != nil {
			logger.Error("Failed to send fallback reply", zap.Error(err))
		}
	}
}

// beginInteraction registers an in-flight interaction unless Close has started.
func (g *Gateway) beginInteraction() bool {
	g.handlersMu.Lock()
	defer g.handlersMu.Unlock()
	if g.closing {
		return false
	}
	g.handlers.Add(1)
	return true
}

// buildParams resolves and downloads the screenshot option, if any. A failed
// download is handed to the command as AttachmentErrorParam.
func (g *Gateway) buildParams(ctx context.Context, data discordgo.ApplicationCommandInteractionData, logger *zap.Logger) map[string]any {
	params := make(map[string]any)

	ref, ok := resolveAttachment(data, domain.ScreenshotParam)
	if !ok {
		return params
	}

	if ref.ContentType != "" && !strings.HasPrefix(strings.ToLower(ref.ContentType), "image/") {
		// No download; the command rejects it by content type.
		params[domain.ScreenshotParam] = &domain.ImageAttachment{Filename: ref.Filename, ContentType: ref.ContentType}
		return params
	}

	att, err := g.fetcher.Fetch(ctx, ref)
	if err != nil {
		params[domain.AttachmentErrorParam] = err
		return params
	}

	logger.Debug("Attachment downloaded",
		zap.String("filename", att.Filename),
		zap.Int("bytes", att.Size()))
	params[domain.ScreenshotParam] = att
	return params
}

func resolveAttachment(data discordgo.ApplicationCommandInteractionData, option string) (AttachmentRef, bool) {
	if data.Resolved == nil || len(data.Resolved.Attachments) == 0 {
		return AttachmentRef{}, false
	}

	for _, opt := range data.Options {
		if opt == nil || opt.Name != option || opt.Type != discordgo.ApplicationCommandOptionAttachment {
			continue
		}
		id, _ := opt.Value.(string)
		if att, ok := data.Resolved.Attachments[id]; ok && att != nil {
			return AttachmentRef{
				ID:          att.ID,
				URL:         att.URL,
				Filename:    att.Filename,
				ContentType: att.ContentType,
				Size:        int64(att.Size),
			}, true
		}
	}
	return AttachmentRef{}, false
}

func interactionUser(i *discordgo.Interaction) (string, string) {
	switch {
	case i.Member != nil && i.Member.User != nil:
		return i.Member.User.ID, i.Member.User.Username
	case i.User != nil:
		return i.User.ID, i.User.Username
	default:
		return "", ""
	}
}

// followupResponder sends at most one follow-up message.
type followupResponder struct {
	api         interactionAPI
	interaction *discordgo.Interaction

	mu   sync.Mutex
	sent bool
}

func (r *followupResponder) Reply(_ context.Context, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent {
		return fmt.Errorf("interaction already answered")
	}

	content := message
	if len([]rune(content)) > maxMessageRunes {
		content = util.TruncateString(content, maxMessageRunes-3)
	}

	if _, err := r.api.FollowupMessageCreate(r.interaction, true, &discordgo.WebhookParams{Content: content}); err != nil {
		return fmt.Errorf("failed to send follow-up: %w", err)
	}
	r.sent = true
	return nil
}

func (r *followupResponder) replied() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent
}
