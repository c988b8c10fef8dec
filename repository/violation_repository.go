package repository

import (
	"context"
	"fmt"
	"time"

	"guildwatch/database"
	"guildwatch/models"
)

// ViolationRepository implements the service.ViolationRepository interface
type ViolationRepository struct {
	q Queryable
}

// NewViolationRepository creates a new violation repository
func NewViolationRepository(db *database.DB) *ViolationRepository {
	return &ViolationRepository{q: db.Pool}
}

// NewViolationRepositoryWithTx creates a new violation repository bound to a transaction
func NewViolationRepositoryWithTx(tx Queryable) *ViolationRepository {
	return &ViolationRepository{q: tx}
}

// Record inserts a violation row. A retried check for the same cycle hits
// the primary key and is a no-op, keeping the table one-row-per-day.
func (r *ViolationRepository) Record(ctx context.Context, violation *models.Violation) error {
	query := `
		INSERT INTO violations (guild_id, ally_code, violation_date, tickets)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (guild_id, ally_code, violation_date) DO NOTHING`

	_, err := r.q.Exec(ctx, query,
		violation.GuildID,
		violation.AllyCode,
		violation.ViolationDate,
		violation.Tickets,
	)
	if err != nil {
		return fmt.Errorf("failed to record violation for guild %s, player %d: %w",
			violation.GuildID, violation.AllyCode, err)
	}

	return nil
}

// GetByGuildDateRange returns violations for a guild with dates in [from, to)
func (r *ViolationRepository) GetByGuildDateRange(ctx context.Context, guildID string, from, to time.Time) ([]*models.Violation, error) {
	query := `
		SELECT guild_id, ally_code, violation_date, tickets
		FROM violations
		WHERE guild_id = $1 AND violation_date >= $2 AND violation_date < $3
		ORDER BY violation_date, ally_code`

	rows, err := r.q.Query(ctx, query, guildID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query violations for guild %s: %w", guildID, err)
	}
	defer rows.Close()

	var violations []*models.Violation
	for rows.Next() {
		var v models.Violation
		err := rows.Scan(&v.GuildID, &v.AllyCode, &v.ViolationDate, &v.Tickets)
		if err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		violations = append(violations, &v)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over violation rows: %w", err)
	}

	return violations, nil
}

// GetGuildSummary aggregates violations per player over [from, to),
// worst offenders first
func (r *ViolationRepository) GetGuildSummary(ctx context.Context, guildID string, from, to time.Time) ([]*models.ViolationSummary, error) {
	query := `
		SELECT v.ally_code, p.name, COUNT(*) AS misses, COALESCE(SUM(v.tickets), 0) AS tickets
		FROM violations v
		JOIN players p ON v.ally_code = p.ally_code
		WHERE v.guild_id = $1 AND v.violation_date >= $2 AND v.violation_date < $3
		GROUP BY v.ally_code, p.name
		ORDER BY misses DESC, v.ally_code`

	rows, err := r.q.Query(ctx, query, guildID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query violation summary for guild %s: %w", guildID, err)
	}
	defer rows.Close()

	var summaries []*models.ViolationSummary
	for rows.Next() {
		var s models.ViolationSummary
		err := rows.Scan(&s.AllyCode, &s.PlayerName, &s.Misses, &s.Tickets)
		if err != nil {
			return nil, fmt.Errorf("failed to scan violation summary: %w", err)
		}
		summaries = append(summaries, &s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over summary rows: %w", err)
	}

	return summaries, nil
}
