package discord

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kapu/baselink-bot/internal/domain"
	apperrors "github.com/kapu/baselink-bot/pkg/errors"
	"go.uber.org/zap"
)

type fakeAPI struct {
	mu         sync.Mutex
	responses  []*discordgo.InteractionResponse
	followups  []string
	registered []*discordgo.ApplicationCommand
	appID      string
	guildID    string
}

func (f *fakeAPI) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeAPI) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followups = append(f.followups, data.Content)
	return &discordgo.Message{Content: data.Content}, nil
}

func (f *fakeAPI) ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.appID = appID
	f.guildID = guildID
	f.registered = commands
	return commands, nil
}

type fakeExecutor struct {
	key    string
	params map[string]any
	reply  string
	err    error
}

func (f *fakeExecutor) Execute(ctx context.Context, cmdCtx *domain.CommandContext, key string, params map[string]any) error {
	f.key = key
	f.params = params
	if f.reply != "" {
		if err := cmdCtx.Responder.Reply(ctx, f.reply); err != nil {
			return err
		}
	}
	return f.err
}

func commandInteraction(name string, attachment *discordgo.MessageAttachment) *discordgo.InteractionCreate {
	data := discordgo.ApplicationCommandInteractionData{Name: name}
	if attachment != nil {
		data.Options = []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: domain.ScreenshotParam, Type: discordgo.ApplicationCommandOptionAttachment, Value: attachment.ID},
		}
		data.Resolved = &discordgo.ApplicationCommandInteractionDataResolved{
			Attachments: map[string]*discordgo.MessageAttachment{attachment.ID: attachment},
		}
	}
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "interaction-1",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "guild-1",
		ChannelID: "channel-1",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "user-1", Username: "chief"}},
		Data:      data,
	}}
}

func newImageServer(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHandleInteractionDownloadsAndReplies(t *testing.T) {
	srv := newImageServer(t, []byte("png-bytes"))
	api := &fakeAPI{}
	exec := &fakeExecutor{reply: "✅ Found base link: https://link.clashofclans.com/x"}
	g := newGateway(api, "", time.Second, exec, NewAttachmentFetcher(time.Second, 1<<20, nil, zap.NewNop()), zap.NewNop())

	g.HandleInteraction(commandInteraction("baselink", &discordgo.MessageAttachment{
		ID: "att-1", URL: srv.URL + "/base.png", Filename: "base.png", ContentType: "image/png", Size: 9,
	}))

	if len(api.responses) != 1 || api.responses[0].Type != discordgo.InteractionResponseDeferredChannelMessageWithSource {
		t.Fatalf("expected one deferred response, got %+v", api.responses)
	}
	if exec.key != "baselink" {
		t.Fatalf("unexpected command %q", exec.key)
	}
	att, ok := exec.params[domain.ScreenshotParam].(*domain.ImageAttachment)
	if !ok || string(att.Data) != "png-bytes" || att.Filename != "base.png" {
		t.Fatalf("unexpected attachment %+v", exec.params)
	}
	if len(api.followups) != 1 || api.followups[0] != exec.reply {
		t.Fatalf("expected exactly one follow-up, got %v", api.followups)
	}
}

func TestHandleInteractionPassesDownloadFailure(t *testing.T) {
	srv := newImageServer(t, []byte(strings.Repeat("x", 64)))
	api := &fakeAPI{}
	exec := &fakeExecutor{reply: "handled"}
	g := newGateway(api, "", time.Second, exec, NewAttachmentFetcher(time.Second, 16, nil, zap.NewNop()), zap.NewNop())

	g.HandleInteraction(commandInteraction("baselink", &discordgo.MessageAttachment{
		ID: "att-1", URL: srv.URL, Filename: "base.png", ContentType: "image/png", Size: 8,
	}))

	fetchErr, ok := exec.params[domain.AttachmentErrorParam].(error)
	if !ok || !strings.Contains(fetchErr.Error(), "exceeds 16 bytes") {
		t.Fatalf("expected size error param, got %+v", exec.params)
	}
	if _, ok := exec.params[domain.ScreenshotParam]; ok {
		t.Fatalf("screenshot param must be absent after a failed download")
	}
}

func TestHandleInteractionSkipsDownloadForNonImage(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { hits++ }))
	defer srv.Close()

	exec := &fakeExecutor{reply: "handled"}
	g := newGateway(&fakeAPI{}, "", time.Second, exec, NewAttachmentFetcher(time.Second, 1<<20, nil, zap.NewNop()), zap.NewNop())

	g.HandleInteraction(commandInteraction("baselink", &discordgo.MessageAttachment{
		ID: "att-1", URL: srv.URL, Filename: "notes.txt", ContentType: "text/plain", Size: 3,
	}))

	att, ok := exec.params[domain.ScreenshotParam].(*domain.ImageAttachment)
	if !ok || att.ContentType != "text/plain" || att.Size() != 0 {
		t.Fatalf("expected metadata-only attachment, got %+v", exec.params)
	}
	if hits != 0 {
		t.Fatalf("non-image attachment must not be downloaded")
	}
}

func TestHandleInteractionSendsFallbackWhenCommandDidNotReply(t *testing.T) {
	api := &fakeAPI{}
	exec := &fakeExecutor{err: errors.New("unknown command")}
	g := newGateway(api, "", time.Second, exec, nil, zap.NewNop())

	g.HandleInteraction(commandInteraction("raid", nil))

	if len(api.followups) != 1 || !strings.Contains(api.followups[0], "Something went wrong") {
		t.Fatalf("expected fallback follow-up, got %v", api.followups)
	}
}

func TestHandleInteractionIgnoresOtherTypes(t *testing.T) {
	api := &fakeAPI{}
	exec := &fakeExecutor{}
	g := newGateway(api, "", time.Second, exec, nil, zap.NewNop())

	g.HandleInteraction(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{Type: discordgo.InteractionPing}})

	if len(api.responses) != 0 || exec.key != "" {
		t.Fatalf("non-command interactions must be ignored")
	}
}

func TestFollowupResponderRepliesOnce(t *testing.T) {
	api := &fakeAPI{}
	r := &followupResponder{api: api, interaction: &discordgo.Interaction{}}

	if err := r.Reply(context.Background(), strings.Repeat("a", 2500)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Reply(context.Background(), "second"); err == nil {
		t.Fatalf("second reply must fail")
	}
	if len(api.followups) != 1 || len([]rune(api.followups[0])) != maxMessageRunes {
		t.Fatalf("expected one truncated follow-up, got %d messages", len(api.followups))
	}
}

func TestOnReadyRegistersCommands(t *testing.T) {
	api := &fakeAPI{}
	g := newGateway(api, "guild-9", time.Second, &fakeExecutor{}, nil, zap.NewNop())

	g.onReady(&discordgo.Ready{User: &discordgo.User{ID: "app-1", Username: "baselink"}})

	if api.appID != "app-1" || api.guildID != "guild-9" {
		t.Fatalf("unexpected registration target %q/%q", api.appID, api.guildID)
	}
	if len(api.registered) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(api.registered))
	}
	opt := api.registered[0].Options[0]
	if opt.Name != domain.ScreenshotParam || opt.Type != discordgo.ApplicationCommandOptionAttachment || !opt.Required {
		t.Fatalf("unexpected screenshot option %+v", opt)
	}
	if !g.IsConnected() {
		t.Fatalf("ready must mark the gateway connected")
	}
}

func TestFetcherErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewAttachmentFetcher(time.Second, 1<<20, nil, zap.NewNop())

	_, err := f.Fetch(context.Background(), AttachmentRef{ID: "a", URL: srv.URL})
	var apiErr *apperrors.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 APIError, got %v", err)
	}

	_, err = f.Fetch(context.Background(), AttachmentRef{ID: "a", URL: srv.URL, Size: 2 << 20})
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 APIError before download, got %v", err)
	}

	var valErr *apperrors.ValidationError
	if _, err := f.Fetch(context.Background(), AttachmentRef{ID: "a"}); !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError for missing URL, got %v", err)
	}
}

func TestFetcherFillsContentTypeFromResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg; charset=binary")
		_, _ = w.Write([]byte("jpeg"))
	}))
	defer srv.Close()

	att, err := NewAttachmentFetcher(time.Second, 0, nil, zap.NewNop()).Fetch(context.Background(), AttachmentRef{URL: srv.URL, Filename: "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if att.ContentType != "image/jpeg" {
		t.Fatalf("unexpected content type %q", att.ContentType)
	}
}

type blockingExecutor struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingExecutor) Execute(ctx context.Context, cmdCtx *domain.CommandContext, _ string, _ map[string]any) error {
	close(b.started)
	<-b.release
	return cmdCtx.Responder.Reply(ctx, "done")
}

func TestCloseWaitsForInFlightInteraction(t *testing.T) {
	api := &fakeAPI{}
	exec := &blockingExecutor{started: make(chan struct{}), release: make(chan struct{})}
	g := newGateway(api, "", time.Second, exec, nil, zap.NewNop())

	go g.HandleInteraction(commandInteraction("help", nil))
	<-exec.started

	closed := make(chan error, 1)
	go func() { closed <- g.Close(context.Background()) }()

	select {
	case <-closed:
		t.Fatalf("Close returned while an interaction was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(exec.release)
	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("unexpected close error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Close did not return after the interaction finished")
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.followups) != 1 || api.followups[0] != "done" {
		t.Fatalf("expected the in-flight reply to be sent, got %v", api.followups)
	}
}

func TestInteractionAfterCloseIsDropped(t *testing.T) {
	api := &fakeAPI{}
	exec := &fakeExecutor{reply: "late"}
	g := newGateway(api, "", time.Second, exec, nil, zap.NewNop())

	if err := g.Close(context.Background()); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	g.HandleInteraction(commandInteraction("help", nil))

	if len(api.responses) != 0 || exec.key != "" {
		t.Fatalf("interaction after Close must be dropped, got responses %v", api.responses)
	}
}
