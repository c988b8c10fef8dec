package models

import (
	"time"
)

// Guild represents a registered game guild being tracked for daily
// ticket compliance
type Guild struct {
	GuildID             string    `db:"guild_id"`
	Name                *string   `db:"name"`                  // Nullable - display name from the game API
	CollectionChannelID *string   `db:"collection_channel_id"` // Nullable - channel for check reports and summaries
	ReminderChannelID   *string   `db:"reminder_channel_id"`   // Nullable - channel for pre-reset reminders
	NextResetAt         time.Time `db:"next_reset_at"`
}

// HasCollectionChannel checks if a collection channel is configured
func (g *Guild) HasCollectionChannel() bool {
	return g.CollectionChannelID != nil && *g.CollectionChannelID != ""
}

// HasReminderChannel checks if a reminder channel is configured
func (g *Guild) HasReminderChannel() bool {
	return g.ReminderChannelID != nil && *g.ReminderChannelID != ""
}

// DisplayName returns the guild name, falling back to the guild ID
func (g *Guild) DisplayName() string {
	if g.Name != nil && *g.Name != "" {
		return *g.Name
	}
	return g.GuildID
}
