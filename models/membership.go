package models

import (
	"time"
)

// Membership represents a player's tenure in a guild. At most one record
// exists per (guild, player) pair; leaving is a soft delete and rejoining
// reactivates the same record, so leftAt is set iff active is false.
type Membership struct {
	GuildID     string     `db:"guild_id"`
	AllyCode    int64      `db:"ally_code"`
	JoinedAt    *time.Time `db:"joined_at"` // Nullable - unknown for bootstrapped records
	LeftAt      *time.Time `db:"left_at"`
	Active      bool       `db:"active"`
	MemberLevel *int       `db:"member_level"` // Nullable - rank within the guild
}
