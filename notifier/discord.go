package notifier

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// DiscordNotifier sends channel messages through a Discord session
type DiscordNotifier struct {
	session *discordgo.Session
}

// NewDiscordNotifier creates a notifier backed by an established session
func NewDiscordNotifier(session *discordgo.Session) *DiscordNotifier {
	return &DiscordNotifier{session: session}
}

// Send posts a message to the given channel
func (n *DiscordNotifier) Send(ctx context.Context, channelID, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := n.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}

	log.WithField("channel_id", channelID).Debug("Message sent")
	return nil
}
