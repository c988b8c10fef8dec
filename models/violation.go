package models

import (
	"time"
)

// Violation records a player falling short of the daily ticket threshold
// at check time. Append-only, one row per player per guild per day.
type Violation struct {
	GuildID       string    `db:"guild_id"`
	AllyCode      int64     `db:"ally_code"`
	ViolationDate time.Time `db:"violation_date"` // Date of the reset cycle, UTC
	Tickets       int64     `db:"tickets"`        // Contribution observed at check time
}

// ViolationSummary is an aggregate of a player's violations over a date
// range, used for weekly and monthly reports.
type ViolationSummary struct {
	AllyCode   int64
	PlayerName string
	Misses     int
	Tickets    int64 // Total tickets across the missed days
}
