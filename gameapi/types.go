package gameapi

import (
	"time"
)

// Contribution type ids reported by the game API for daily guild activity
const (
	ContributionTypeTickets = 2
)

// Contribution is a single daily activity metric for a roster member
type Contribution struct {
	Type  int   `json:"type"`
	Value int64 `json:"value"`
}

// GuildMember is one entry of a guild's remote roster
type GuildMember struct {
	AllyCode      int64          `json:"allyCode"`
	Name          string         `json:"name"`
	JoinedAt      int64          `json:"joinedAt"` // Unix seconds
	MemberLevel   int            `json:"memberLevel"`
	Contributions []Contribution `json:"contributions"`
}

// TicketCount returns the member's daily ticket contribution. A missing
// ticket entry counts as zero, not as unknown.
func (m *GuildMember) TicketCount() int64 {
	for _, c := range m.Contributions {
		if c.Type == ContributionTypeTickets {
			return c.Value
		}
	}
	return 0
}

// JoinedTime converts the reported join timestamp to a time.Time
func (m *GuildMember) JoinedTime() time.Time {
	return time.Unix(m.JoinedAt, 0).UTC()
}

// GuildRoster is the remote API's view of a guild and its member list
type GuildRoster struct {
	GuildID     string        `json:"id"`
	Name        string        `json:"name"`
	Members     []GuildMember `json:"members"`
	NextResetAt int64         `json:"nextChallengesRefresh"` // Unix seconds
}

// NextResetTime converts the reported reset timestamp to a time.Time
func (r *GuildRoster) NextResetTime() time.Time {
	return time.Unix(r.NextResetAt, 0).UTC()
}

// Player is the remote API's view of a single player account
type Player struct {
	AllyCode int64  `json:"allyCode"`
	Name     string `json:"name"`
	GuildID  string `json:"guildId"`
}
