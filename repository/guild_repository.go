package repository

import (
	"context"
	"fmt"
	"time"

	"guildwatch/database"
	"guildwatch/models"

	"github.com/jackc/pgx/v5"
)

// GuildRepository implements the service.GuildRepository interface
type GuildRepository struct {
	q Queryable
}

// NewGuildRepository creates a new guild repository
func NewGuildRepository(db *database.DB) *GuildRepository {
	return &GuildRepository{q: db.Pool}
}

// NewGuildRepositoryWithTx creates a new guild repository bound to a transaction
func NewGuildRepositoryWithTx(tx Queryable) *GuildRepository {
	return &GuildRepository{q: tx}
}

// Upsert creates or updates a guild registration
func (r *GuildRepository) Upsert(ctx context.Context, guild *models.Guild) error {
	query := `
		INSERT INTO guilds (guild_id, name, collection_channel_id, reminder_channel_id, next_reset_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (guild_id)
		DO UPDATE SET name = EXCLUDED.name,
		              collection_channel_id = EXCLUDED.collection_channel_id,
		              reminder_channel_id = EXCLUDED.reminder_channel_id,
		              next_reset_at = EXCLUDED.next_reset_at`

	_, err := r.q.Exec(ctx, query,
		guild.GuildID,
		guild.Name,
		guild.CollectionChannelID,
		guild.ReminderChannelID,
		guild.NextResetAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert guild %s: %w", guild.GuildID, err)
	}

	return nil
}

// GetByID retrieves a guild registration, returning nil when not registered
func (r *GuildRepository) GetByID(ctx context.Context, guildID string) (*models.Guild, error) {
	query := `
		SELECT guild_id, name, collection_channel_id, reminder_channel_id, next_reset_at
		FROM guilds
		WHERE guild_id = $1`

	var guild models.Guild
	err := r.q.QueryRow(ctx, query, guildID).Scan(
		&guild.GuildID,
		&guild.Name,
		&guild.CollectionChannelID,
		&guild.ReminderChannelID,
		&guild.NextResetAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guild %s: %w", guildID, err)
	}

	return &guild, nil
}

// GetAll returns every registered guild
func (r *GuildRepository) GetAll(ctx context.Context) ([]*models.Guild, error) {
	query := `
		SELECT guild_id, name, collection_channel_id, reminder_channel_id, next_reset_at
		FROM guilds
		ORDER BY guild_id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get guilds: %w", err)
	}
	defer rows.Close()

	var guilds []*models.Guild
	for rows.Next() {
		var guild models.Guild
		err := rows.Scan(
			&guild.GuildID,
			&guild.Name,
			&guild.CollectionChannelID,
			&guild.ReminderChannelID,
			&guild.NextResetAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guild: %w", err)
		}
		guilds = append(guilds, &guild)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over guild rows: %w", err)
	}

	return guilds, nil
}

// UpdateNextReset advances a guild's next reset timestamp
func (r *GuildRepository) UpdateNextReset(ctx context.Context, guildID string, nextResetAt time.Time) error {
	query := `UPDATE guilds SET next_reset_at = $2 WHERE guild_id = $1`

	result, err := r.q.Exec(ctx, query, guildID, nextResetAt)
	if err != nil {
		return fmt.Errorf("failed to update next reset for guild %s: %w", guildID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("guild %s not found", guildID)
	}

	return nil
}

// Delete removes a guild registration
func (r *GuildRepository) Delete(ctx context.Context, guildID string) error {
	result, err := r.q.Exec(ctx, `DELETE FROM guilds WHERE guild_id = $1`, guildID)
	if err != nil {
		return fmt.Errorf("failed to delete guild %s: %w", guildID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("guild %s not found", guildID)
	}

	return nil
}
