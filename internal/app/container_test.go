package app

import (
	"context"
	"strings"
	"testing"

	"github.com/kapu/baselink-bot/internal/config"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("YOUTUBE_API_KEY", "yt-key")
	t.Setenv("OCR_API_KEY", "ocr-key")
	t.Setenv("OCR_BACKEND", "ocrspace")
	t.Setenv("YOUTUBE_AUTH_MODE", "")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("DISCORD_BOT_TOKEN", "")
	t.Setenv("OCR_TEMP_DIR", t.TempDir())

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	return cfg
}

func TestBuildWiresCommands(t *testing.T) {
	c, err := Build(context.Background(), testConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer c.Close()

	if c.Registry.Count() != 2 {
		t.Fatalf("expected baselink and help, got %d commands", c.Registry.Count())
	}
	if c.Extractor.Name() != "ocrspace" {
		t.Fatalf("unexpected backend %q", c.Extractor.Name())
	}
}

func TestNewBotRequiresToken(t *testing.T) {
	c, err := Build(context.Background(), testConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer c.Close()

	if _, err := c.NewBot(); err == nil || !strings.Contains(err.Error(), "DISCORD_BOT_TOKEN") {
		t.Fatalf("expected missing token error, got %v", err)
	}
}

func TestBuildRejectsNilConfig(t *testing.T) {
	if _, err := Build(context.Background(), nil, zap.NewNop()); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
