package service

import (
	"context"
	"time"

	"guildwatch/events"
	"guildwatch/gameapi"
	"guildwatch/models"
)

// GuildRepository defines the interface for guild registration data access
type GuildRepository interface {
	// Upsert creates or updates a guild registration
	Upsert(ctx context.Context, guild *models.Guild) error

	// GetByID retrieves a guild registration, nil when not registered
	GetByID(ctx context.Context, guildID string) (*models.Guild, error)

	// GetAll returns every registered guild
	GetAll(ctx context.Context) ([]*models.Guild, error)

	// UpdateNextReset advances a guild's next reset timestamp
	UpdateNextReset(ctx context.Context, guildID string, nextResetAt time.Time) error

	// Delete removes a guild registration
	Delete(ctx context.Context, guildID string) error
}

// PlayerRepository defines the interface for player data access
type PlayerRepository interface {
	// Upsert creates or refreshes a player record
	Upsert(ctx context.Context, player *models.Player) error

	// GetByAllyCode retrieves a player, nil when unknown
	GetByAllyCode(ctx context.Context, allyCode int64) (*models.Player, error)
}

// MembershipRepository defines the interface for membership history access
type MembershipRepository interface {
	// Create inserts a new active membership record
	Create(ctx context.Context, membership *models.Membership) error

	// GetByGuild returns all membership records for a guild, active and inactive
	GetByGuild(ctx context.Context, guildID string) ([]*models.Membership, error)

	// GetActiveByGuild returns only active membership records for a guild
	GetActiveByGuild(ctx context.Context, guildID string) ([]*models.Membership, error)

	// GetByPlayer returns a player's membership records across all guilds
	GetByPlayer(ctx context.Context, allyCode int64) ([]*models.Membership, error)

	// Reactivate re-activates a soft-deleted record with a fresh join timestamp
	Reactivate(ctx context.Context, guildID string, allyCode int64, joinedAt time.Time) error

	// Deactivate soft-deletes an active record, stamping leftAt
	Deactivate(ctx context.Context, guildID string, allyCode int64, leftAt time.Time) error

	// UpdateJoinedAt backfills the join timestamp without touching active state
	UpdateJoinedAt(ctx context.Context, guildID string, allyCode int64, joinedAt time.Time) error
}

// ViolationRepository defines the interface for violation record access
type ViolationRepository interface {
	// Record inserts a violation row, a no-op when the cycle is already recorded
	Record(ctx context.Context, violation *models.Violation) error

	// GetByGuildDateRange returns violations with dates in [from, to)
	GetByGuildDateRange(ctx context.Context, guildID string, from, to time.Time) ([]*models.Violation, error)

	// GetGuildSummary aggregates violations per player over [from, to)
	GetGuildSummary(ctx context.Context, guildID string, from, to time.Time) ([]*models.ViolationSummary, error)
}

// EventPublisher publishes domain events, deferred until commit when
// obtained from a UnitOfWork
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork provides transactional access to all repositories
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events
	Rollback() error

	GuildRepository() GuildRepository
	PlayerRepository() PlayerRepository
	MembershipRepository() MembershipRepository
	ViolationRepository() ViolationRepository

	// EventBus returns the transactional event publisher
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// GameClient is the remote game-state API surface consumed by services.
// Implemented by gameapi.CachedClient.
type GameClient interface {
	// FetchPlayer retrieves a single player profile by ally code
	FetchPlayer(ctx context.Context, allyCode int64) (*gameapi.Player, error)

	// FetchGuildRoster retrieves a guild's roster, optionally with
	// per-member daily activity metrics
	FetchGuildRoster(ctx context.Context, guildID string, includeActivity bool) (*gameapi.GuildRoster, error)
}

// Notifier sends a message to a named channel. Sends are best-effort:
// failures are logged by callers and never retried here.
type Notifier interface {
	Send(ctx context.Context, channelID, content string) error
}

// SummaryReporter produces aggregate violation reports from persisted
// records. Implemented by SummaryService.
type SummaryReporter interface {
	// WeeklyReport covers the 7 days ending at asOf; empty when nothing to report
	WeeklyReport(ctx context.Context, guildID string, asOf time.Time) (string, error)

	// MonthlyReport covers asOf's calendar month; empty when nothing to report
	MonthlyReport(ctx context.Context, guildID string, asOf time.Time) (string, error)
}
