package service

import (
	"context"
	"fmt"
	"time"

	"guildwatch/events"
	"guildwatch/models"

	log "github.com/sirupsen/logrus"
)

// SyncResult counts the membership changes applied by one reconciliation
type SyncResult struct {
	Added       int
	Removed     int
	Reactivated int
}

func (r *SyncResult) changed() bool {
	return r.Added > 0 || r.Removed > 0 || r.Reactivated > 0
}

// ReconcileService aligns persisted membership history with the remote
// roster. All mutations for one guild happen in a single transaction.
type ReconcileService struct {
	uowFactory UnitOfWorkFactory
	client     GameClient
	now        func() time.Time
}

// NewReconcileService creates a new roster reconcile service
func NewReconcileService(uowFactory UnitOfWorkFactory, client GameClient) *ReconcileService {
	return &ReconcileService{
		uowFactory: uowFactory,
		client:     client,
		now:        time.Now,
	}
}

// SyncGuild reconciles one guild against its remote roster and returns the
// applied delta. Running it again with an unchanged roster is a no-op.
func (s *ReconcileService) SyncGuild(ctx context.Context, guildID string) (*SyncResult, error) {
	roster, err := s.client.FetchGuildRoster(ctx, guildID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster for guild %s: %w", guildID, err)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Player identity upkeep happens regardless of membership changes
	for i := range roster.Members {
		member := &roster.Members[i]
		player := &models.Player{
			AllyCode: member.AllyCode,
			Name:     member.Name,
		}
		if err := uow.PlayerRepository().Upsert(ctx, player); err != nil {
			return nil, fmt.Errorf("failed to upsert player %d: %w", member.AllyCode, err)
		}
	}

	existing, err := uow.MembershipRepository().GetByGuild(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load memberships for guild %s: %w", guildID, err)
	}

	byAllyCode := make(map[int64]*models.Membership, len(existing))
	for _, m := range existing {
		byAllyCode[m.AllyCode] = m
	}

	result := &SyncResult{}
	remoteSet := make(map[int64]bool, len(roster.Members))

	for i := range roster.Members {
		member := &roster.Members[i]
		remoteSet[member.AllyCode] = true
		joinedAt := member.JoinedTime()

		local, known := byAllyCode[member.AllyCode]
		switch {
		case !known:
			level := member.MemberLevel
			membership := &models.Membership{
				GuildID:     guildID,
				AllyCode:    member.AllyCode,
				JoinedAt:    &joinedAt,
				Active:      true,
				MemberLevel: &level,
			}
			if err := uow.MembershipRepository().Create(ctx, membership); err != nil {
				return nil, fmt.Errorf("failed to create membership for player %d: %w", member.AllyCode, err)
			}
			result.Added++

		case !local.Active:
			if err := uow.MembershipRepository().Reactivate(ctx, guildID, member.AllyCode, joinedAt); err != nil {
				return nil, fmt.Errorf("failed to reactivate membership for player %d: %w", member.AllyCode, err)
			}
			result.Reactivated++

		case local.JoinedAt == nil:
			// Bootstrap gap: record exists but the join time was never known
			if err := uow.MembershipRepository().UpdateJoinedAt(ctx, guildID, member.AllyCode, joinedAt); err != nil {
				return nil, fmt.Errorf("failed to backfill joined_at for player %d: %w", member.AllyCode, err)
			}
		}
	}

	leftAt := s.now().UTC()
	for _, local := range existing {
		if local.Active && !remoteSet[local.AllyCode] {
			if err := uow.MembershipRepository().Deactivate(ctx, guildID, local.AllyCode, leftAt); err != nil {
				return nil, fmt.Errorf("failed to deactivate membership for player %d: %w", local.AllyCode, err)
			}
			result.Removed++
		}
	}

	if result.changed() {
		uow.EventBus().Publish(events.RosterSyncedEvent{
			GuildID:     guildID,
			Added:       result.Added,
			Removed:     result.Removed,
			Reactivated: result.Reactivated,
		})
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reconciliation for guild %s: %w", guildID, err)
	}

	log.WithFields(log.Fields{
		"guild_id":    guildID,
		"added":       result.Added,
		"removed":     result.Removed,
		"reactivated": result.Reactivated,
		"roster_size": len(roster.Members),
	}).Info("Roster reconciliation completed")

	return result, nil
}
