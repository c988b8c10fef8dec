package notifier

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// NoopNotifier logs messages instead of delivering them. Used in
// development so local runs never post to real channels.
type NoopNotifier struct{}

// NewNoopNotifier creates a no-op notifier
func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{}
}

// Send logs the message and discards it
func (n *NoopNotifier) Send(ctx context.Context, channelID, content string) error {
	log.WithFields(log.Fields{
		"channel_id": channelID,
		"length":     len(content),
	}).Info("Notification suppressed (noop notifier)")
	return nil
}
