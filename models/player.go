package models

// Player represents a game account observed on any tracked roster.
// Upserted opportunistically whenever a roster is fetched.
type Player struct {
	AllyCode  int64   `db:"ally_code"`
	Name      string  `db:"name"`
	DiscordID *string `db:"discord_id"` // Nullable - linked Discord account, if any
}
