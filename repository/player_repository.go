package repository

import (
	"context"
	"fmt"

	"guildwatch/database"
	"guildwatch/models"

	"github.com/jackc/pgx/v5"
)

// PlayerRepository implements the service.PlayerRepository interface
type PlayerRepository struct {
	q Queryable
}

// NewPlayerRepository creates a new player repository
func NewPlayerRepository(db *database.DB) *PlayerRepository {
	return &PlayerRepository{q: db.Pool}
}

// NewPlayerRepositoryWithTx creates a new player repository bound to a transaction
func NewPlayerRepositoryWithTx(tx Queryable) *PlayerRepository {
	return &PlayerRepository{q: tx}
}

// Upsert creates or refreshes a player record. The Discord linkage is only
// overwritten when the new record carries one.
func (r *PlayerRepository) Upsert(ctx context.Context, player *models.Player) error {
	query := `
		INSERT INTO players (ally_code, name, discord_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (ally_code)
		DO UPDATE SET name = EXCLUDED.name,
		              discord_id = COALESCE(EXCLUDED.discord_id, players.discord_id)`

	_, err := r.q.Exec(ctx, query, player.AllyCode, player.Name, player.DiscordID)
	if err != nil {
		return fmt.Errorf("failed to upsert player %d: %w", player.AllyCode, err)
	}

	return nil
}

// GetByAllyCode retrieves a player, returning nil when unknown
func (r *PlayerRepository) GetByAllyCode(ctx context.Context, allyCode int64) (*models.Player, error) {
	query := `SELECT ally_code, name, discord_id FROM players WHERE ally_code = $1`

	var player models.Player
	err := r.q.QueryRow(ctx, query, allyCode).Scan(&player.AllyCode, &player.Name, &player.DiscordID)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %d: %w", allyCode, err)
	}

	return &player, nil
}
