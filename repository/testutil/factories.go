package testutil

import (
	"time"

	"guildwatch/models"
)

// CreateTestGuild creates a test guild registration with default values
func CreateTestGuild(guildID string) *models.Guild {
	name := "Test Guild"
	collection := "collection-channel"
	reminder := "reminder-channel"
	return &models.Guild{
		GuildID:             guildID,
		Name:                &name,
		CollectionChannelID: &collection,
		ReminderChannelID:   &reminder,
		NextResetAt:         time.Now().UTC().Add(12 * time.Hour).Truncate(time.Second),
	}
}

// CreateTestPlayer creates a test player with default values
func CreateTestPlayer(allyCode int64, name string) *models.Player {
	return &models.Player{
		AllyCode: allyCode,
		Name:     name,
	}
}

// CreateTestMembership creates an active test membership
func CreateTestMembership(guildID string, allyCode int64) *models.Membership {
	joined := time.Now().UTC().Add(-30 * 24 * time.Hour).Truncate(time.Second)
	level := 2
	return &models.Membership{
		GuildID:     guildID,
		AllyCode:    allyCode,
		JoinedAt:    &joined,
		Active:      true,
		MemberLevel: &level,
	}
}

// CreateTestViolation creates a test violation for the given date
func CreateTestViolation(guildID string, allyCode int64, date time.Time, tickets int64) *models.Violation {
	return &models.Violation{
		GuildID:       guildID,
		AllyCode:      allyCode,
		ViolationDate: date,
		Tickets:       tickets,
	}
}
