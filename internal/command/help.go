package command

import (
	"context"
	"fmt"

	"github.com/kapu/baselink-bot/internal/adapter"
	"github.com/kapu/baselink-bot/internal/domain"
)

type HelpCommand struct {
	deps     *Dependencies
	registry *Registry
}

func NewHelpCommand(deps *Dependencies, registry *Registry) *HelpCommand {
	return &HelpCommand{deps: deps, registry: registry}
}

func (c *HelpCommand) Name() string {
	return domain.CommandHelp.String()
}

func (c *HelpCommand) Description() string {
	return "Show what the bot can do"
}

func (c *HelpCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext, params map[string]any) error {
	if cmdCtx == nil || cmdCtx.Responder == nil {
		return fmt.Errorf("command context has no responder")
	}

	commands := c.registry.List()
	entries := make([]adapter.HelpEntry, 0, len(commands))
	for _, cmd := range commands {
		entries = append(entries, adapter.HelpEntry{Name: cmd.Name(), Description: cmd.Description()})
	}

	return cmdCtx.Responder.Reply(ctx, c.deps.Formatter.FormatHelp(entries))
}
