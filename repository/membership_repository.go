package repository

import (
	"context"
	"fmt"
	"time"

	"guildwatch/database"
	"guildwatch/models"
)

// MembershipRepository implements the service.MembershipRepository interface
type MembershipRepository struct {
	q Queryable
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *database.DB) *MembershipRepository {
	return &MembershipRepository{q: db.Pool}
}

// NewMembershipRepositoryWithTx creates a new membership repository bound to a transaction
func NewMembershipRepositoryWithTx(tx Queryable) *MembershipRepository {
	return &MembershipRepository{q: tx}
}

// Create inserts a new active membership record
func (r *MembershipRepository) Create(ctx context.Context, membership *models.Membership) error {
	query := `
		INSERT INTO memberships (guild_id, ally_code, joined_at, left_at, active, member_level)
		VALUES ($1, $2, $3, NULL, TRUE, $4)`

	_, err := r.q.Exec(ctx, query,
		membership.GuildID,
		membership.AllyCode,
		membership.JoinedAt,
		membership.MemberLevel,
	)
	if err != nil {
		return fmt.Errorf("failed to create membership for guild %s, player %d: %w",
			membership.GuildID, membership.AllyCode, err)
	}

	return nil
}

// GetByGuild returns every membership record for a guild, active and inactive
func (r *MembershipRepository) GetByGuild(ctx context.Context, guildID string) ([]*models.Membership, error) {
	query := `
		SELECT guild_id, ally_code, joined_at, left_at, active, member_level
		FROM memberships
		WHERE guild_id = $1`

	return r.queryMemberships(ctx, query, guildID)
}

// GetActiveByGuild returns only the active membership records for a guild
func (r *MembershipRepository) GetActiveByGuild(ctx context.Context, guildID string) ([]*models.Membership, error) {
	query := `
		SELECT guild_id, ally_code, joined_at, left_at, active, member_level
		FROM memberships
		WHERE guild_id = $1 AND active`

	return r.queryMemberships(ctx, query, guildID)
}

// GetByPlayer returns a player's membership records across all guilds
func (r *MembershipRepository) GetByPlayer(ctx context.Context, allyCode int64) ([]*models.Membership, error) {
	query := `
		SELECT guild_id, ally_code, joined_at, left_at, active, member_level
		FROM memberships
		WHERE ally_code = $1`

	return r.queryMemberships(ctx, query, allyCode)
}

// Reactivate flips an inactive record back to active, clearing leftAt and
// overwriting joinedAt with the freshly reported value
func (r *MembershipRepository) Reactivate(ctx context.Context, guildID string, allyCode int64, joinedAt time.Time) error {
	query := `
		UPDATE memberships
		SET active = TRUE, left_at = NULL, joined_at = $3
		WHERE guild_id = $1 AND ally_code = $2`

	result, err := r.q.Exec(ctx, query, guildID, allyCode, joinedAt)
	if err != nil {
		return fmt.Errorf("failed to reactivate membership for guild %s, player %d: %w", guildID, allyCode, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("membership for guild %s, player %d not found", guildID, allyCode)
	}

	return nil
}

// Deactivate soft-deletes an active record, stamping leftAt
func (r *MembershipRepository) Deactivate(ctx context.Context, guildID string, allyCode int64, leftAt time.Time) error {
	query := `
		UPDATE memberships
		SET active = FALSE, left_at = $3
		WHERE guild_id = $1 AND ally_code = $2`

	result, err := r.q.Exec(ctx, query, guildID, allyCode, leftAt)
	if err != nil {
		return fmt.Errorf("failed to deactivate membership for guild %s, player %d: %w", guildID, allyCode, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("membership for guild %s, player %d not found", guildID, allyCode)
	}

	return nil
}

// UpdateJoinedAt backfills the join timestamp without touching active state
func (r *MembershipRepository) UpdateJoinedAt(ctx context.Context, guildID string, allyCode int64, joinedAt time.Time) error {
	query := `
		UPDATE memberships
		SET joined_at = $3
		WHERE guild_id = $1 AND ally_code = $2`

	result, err := r.q.Exec(ctx, query, guildID, allyCode, joinedAt)
	if err != nil {
		return fmt.Errorf("failed to update joined_at for guild %s, player %d: %w", guildID, allyCode, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("membership for guild %s, player %d not found", guildID, allyCode)
	}

	return nil
}

func (r *MembershipRepository) queryMemberships(ctx context.Context, query string, args ...any) ([]*models.Membership, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*models.Membership
	for rows.Next() {
		var m models.Membership
		err := rows.Scan(&m.GuildID, &m.AllyCode, &m.JoinedAt, &m.LeftAt, &m.Active, &m.MemberLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, &m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over membership rows: %w", err)
	}

	return memberships, nil
}
