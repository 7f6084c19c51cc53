package domain

import (
	"context"
	"time"
)

// Responder sends the single user-visible reply of an interaction.
type Responder interface {
	Reply(ctx context.Context, message string) error
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, message string) error

func (f ResponderFunc) Reply(ctx context.Context, message string) error {
	return f(ctx, message)
}

type CommandContext struct {
	InteractionID string
	GuildID       string
	ChannelID     string
	UserID        string
	Username      string
	Responder     Responder
	Timestamp     time.Time
}

func NewCommandContext(interactionID, guildID, channelID, userID, username string, responder Responder) *CommandContext {
	return &CommandContext{
		InteractionID: interactionID,
		GuildID:       guildID,
		ChannelID:     channelID,
		UserID:        userID,
		Username:      username,
		Responder:     responder,
		Timestamp:     time.Now(),
	}
}
