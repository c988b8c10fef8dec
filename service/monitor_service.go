package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"guildwatch/events"
	"guildwatch/gameapi"
	"guildwatch/models"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultTicketThreshold is the daily ticket count below which a
	// member counts as a violator
	DefaultTicketThreshold int64 = 600

	// reminderWindow is how far before a reset the reminder fires
	reminderWindow = time.Hour

	// checkWindow is how close to a reset the final ticket check runs
	checkWindow = 2 * time.Minute

	// postResetDelay is how long after a reset passes before we trust the
	// remote API to report the next cycle's timestamp
	postResetDelay = 5 * time.Minute
)

// Violator is a member below the ticket threshold for the current cycle
type Violator struct {
	AllyCode int64
	Name     string
	Tickets  int64
}

// Violators filters a roster down to members below threshold
func Violators(roster *gameapi.GuildRoster, threshold int64) []Violator {
	var violators []Violator
	for i := range roster.Members {
		member := &roster.Members[i]
		if tickets := member.TicketCount(); tickets < threshold {
			violators = append(violators, Violator{
				AllyCode: member.AllyCode,
				Name:     member.Name,
				Tickets:  tickets,
			})
		}
	}
	return violators
}

// markerKey identifies one guild reset cycle
type markerKey struct {
	guildID string
	resetAt int64
}

// MonitorService drives the per-cycle reminder, final check and reset
// rollover for every registered guild. One Tick evaluates all guilds.
//
// Reminder and check markers are keyed by the cycle's reset timestamp, so
// advancing next_reset_at naturally re-arms both for the next cycle.
type MonitorService struct {
	uowFactory UnitOfWorkFactory
	client     GameClient
	notifier   Notifier
	summaries  SummaryReporter

	threshold   int64
	development bool
	now         func() time.Time

	mu           sync.Mutex
	reminderSent map[markerKey]struct{}
	checkDone    map[markerKey]struct{}
	weeklySent   map[string]string
	monthlySent  map[string]string
}

// NewMonitorService creates a new reset cycle monitor service
func NewMonitorService(uowFactory UnitOfWorkFactory, client GameClient, notifier Notifier, summaries SummaryReporter, threshold int64, development bool) *MonitorService {
	if threshold <= 0 {
		threshold = DefaultTicketThreshold
	}
	return &MonitorService{
		uowFactory:   uowFactory,
		client:       client,
		notifier:     notifier,
		summaries:    summaries,
		threshold:    threshold,
		development:  development,
		now:          time.Now,
		reminderSent: make(map[markerKey]struct{}),
		checkDone:    make(map[markerKey]struct{}),
		weeklySent:   make(map[string]string),
		monthlySent:  make(map[string]string),
	}
}

// Tick evaluates every registered guild against its reset cycle. A failure
// in one guild never blocks the others.
func (s *MonitorService) Tick(ctx context.Context) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	guilds, err := uow.GuildRepository().GetAll(ctx)
	uow.Rollback()
	if err != nil {
		return fmt.Errorf("failed to list guilds: %w", err)
	}

	for _, guild := range guilds {
		if err := s.processGuild(ctx, guild); err != nil {
			log.WithError(err).WithField("guild_id", guild.GuildID).
				Error("Failed to process guild reset cycle")
		}
	}

	return nil
}

func (s *MonitorService) processGuild(ctx context.Context, guild *models.Guild) error {
	now := s.now()
	until := guild.NextResetAt.Sub(now)

	switch {
	case until > checkWindow && until <= reminderWindow:
		return s.handleReminder(ctx, guild)
	case until > 0 && until <= checkWindow:
		return s.handleCheck(ctx, guild)
	case until <= -postResetDelay:
		return s.handlePostReset(ctx, guild)
	}

	return nil
}

// handleReminder sends at most one pre-reset warning per cycle
func (s *MonitorService) handleReminder(ctx context.Context, guild *models.Guild) error {
	key := markerKey{guildID: guild.GuildID, resetAt: guild.NextResetAt.Unix()}

	s.mu.Lock()
	_, sent := s.reminderSent[key]
	s.mu.Unlock()
	if sent {
		return nil
	}

	if s.development {
		log.WithField("guild_id", guild.GuildID).Info("Development mode, skipping reminder send")
		s.markReminderSent(key)
		return nil
	}

	roster, err := s.client.FetchGuildRoster(ctx, guild.GuildID, true)
	if err != nil {
		return fmt.Errorf("failed to fetch roster for reminder: %w", err)
	}

	violators := Violators(roster, s.threshold)
	if len(violators) > 0 && guild.HasReminderChannel() {
		content := formatReminder(guild, violators, s.threshold)
		if err := s.notifier.Send(ctx, *guild.ReminderChannelID, content); err != nil {
			return fmt.Errorf("failed to send reminder for guild %s: %w", guild.GuildID, err)
		}
	}

	// Marked even with nothing to send, the cycle's reminder phase is done
	s.markReminderSent(key)

	log.WithFields(log.Fields{
		"guild_id":  guild.GuildID,
		"violators": len(violators),
	}).Info("Reminder phase completed")

	return nil
}

// handleCheck records violations exactly once per cycle and reports them
func (s *MonitorService) handleCheck(ctx context.Context, guild *models.Guild) error {
	key := markerKey{guildID: guild.GuildID, resetAt: guild.NextResetAt.Unix()}

	s.mu.Lock()
	_, done := s.checkDone[key]
	s.mu.Unlock()
	if done {
		return nil
	}

	if s.development {
		log.WithField("guild_id", guild.GuildID).Info("Development mode, skipping ticket check")
		s.markCheckDone(key)
		return nil
	}

	roster, err := s.client.FetchGuildRoster(ctx, guild.GuildID, true)
	if err != nil {
		return fmt.Errorf("failed to fetch roster for check: %w", err)
	}

	violators := Violators(roster, s.threshold)
	violationDate := dateOf(guild.NextResetAt.UTC())

	// Persist first. Recording uses insert-or-ignore, so a retry after a
	// failed send never doubles rows.
	if len(violators) > 0 {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		for _, v := range violators {
			violation := &models.Violation{
				GuildID:       guild.GuildID,
				AllyCode:      v.AllyCode,
				ViolationDate: violationDate,
				Tickets:       v.Tickets,
			}
			if err := uow.ViolationRepository().Record(ctx, violation); err != nil {
				return fmt.Errorf("failed to record violation for player %d: %w", v.AllyCode, err)
			}
		}

		uow.EventBus().Publish(events.ViolationsRecordedEvent{
			GuildID:   guild.GuildID,
			ResetAt:   guild.NextResetAt,
			Violators: len(violators),
		})

		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit violations for guild %s: %w", guild.GuildID, err)
		}
	}

	if guild.HasCollectionChannel() {
		content := formatCheckReport(guild, violators)
		if err := s.notifier.Send(ctx, *guild.CollectionChannelID, content); err != nil {
			// Not marked done, the next tick inside the window retries the
			// send and the recorded rows deduplicate themselves
			return fmt.Errorf("failed to send check report for guild %s: %w", guild.GuildID, err)
		}
	}

	s.markCheckDone(key)

	log.WithFields(log.Fields{
		"guild_id":  guild.GuildID,
		"violators": len(violators),
		"date":      violationDate.Format("2006-01-02"),
	}).Info("Ticket check completed")

	return nil
}

// handlePostReset advances the guild to the next cycle once the remote API
// reports a fresh reset timestamp
func (s *MonitorService) handlePostReset(ctx context.Context, guild *models.Guild) error {
	if s.development {
		return nil
	}

	roster, err := s.client.FetchGuildRoster(ctx, guild.GuildID, false)
	if err != nil {
		return fmt.Errorf("failed to fetch roster for reset rollover: %w", err)
	}

	newReset := roster.NextResetTime()
	if !newReset.After(guild.NextResetAt) {
		// Remote still reports the stale cycle, try again next tick
		return nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.GuildRepository().UpdateNextReset(ctx, guild.GuildID, newReset); err != nil {
		return fmt.Errorf("failed to advance reset for guild %s: %w", guild.GuildID, err)
	}

	uow.EventBus().Publish(events.ResetAdvancedEvent{
		GuildID:    guild.GuildID,
		OldResetAt: guild.NextResetAt,
		NewResetAt: newReset,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset advance for guild %s: %w", guild.GuildID, err)
	}

	oldReset := guild.NextResetAt
	guild.NextResetAt = newReset

	key := markerKey{guildID: guild.GuildID, resetAt: oldReset.Unix()}
	s.mu.Lock()
	delete(s.reminderSent, key)
	delete(s.checkDone, key)
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"guild_id":  guild.GuildID,
		"old_reset": oldReset,
		"new_reset": newReset,
	}).Info("Reset cycle advanced")

	// Periodic summaries ride on the rollover. Failures here are logged
	// only, the cycle advance already committed.
	if err := s.maybeSendWeeklySummary(ctx, guild, oldReset); err != nil {
		log.WithError(err).WithField("guild_id", guild.GuildID).Error("Failed to send weekly summary")
	}
	if err := s.maybeSendMonthlySummary(ctx, guild, oldReset); err != nil {
		log.WithError(err).WithField("guild_id", guild.GuildID).Error("Failed to send monthly summary")
	}

	return nil
}

// maybeSendWeeklySummary posts the weekly violation recap when the cycle
// that just closed fell on a Sunday
func (s *MonitorService) maybeSendWeeklySummary(ctx context.Context, guild *models.Guild, closedReset time.Time) error {
	closed := closedReset.UTC()
	if closed.Weekday() != time.Sunday {
		return nil
	}

	year, week := closed.ISOWeek()
	weekKey := fmt.Sprintf("%d-W%02d", year, week)

	s.mu.Lock()
	alreadySent := s.weeklySent[guild.GuildID] == weekKey
	s.mu.Unlock()
	if alreadySent || !guild.HasCollectionChannel() {
		return nil
	}

	report, err := s.summaries.WeeklyReport(ctx, guild.GuildID, closed)
	if err != nil {
		return fmt.Errorf("failed to build weekly report: %w", err)
	}
	if report == "" {
		return nil
	}

	if err := s.notifier.Send(ctx, *guild.CollectionChannelID, report); err != nil {
		return fmt.Errorf("failed to send weekly report: %w", err)
	}

	s.mu.Lock()
	s.weeklySent[guild.GuildID] = weekKey
	s.mu.Unlock()

	return nil
}

// maybeSendMonthlySummary posts the monthly recap when the cycle that just
// closed fell on the last day of its month
func (s *MonitorService) maybeSendMonthlySummary(ctx context.Context, guild *models.Guild, closedReset time.Time) error {
	closed := closedReset.UTC()
	if closed.AddDate(0, 0, 1).Month() == closed.Month() {
		return nil
	}

	monthKey := closed.Format("2006-01")

	s.mu.Lock()
	alreadySent := s.monthlySent[guild.GuildID] == monthKey
	s.mu.Unlock()
	if alreadySent || !guild.HasCollectionChannel() {
		return nil
	}

	report, err := s.summaries.MonthlyReport(ctx, guild.GuildID, closed)
	if err != nil {
		return fmt.Errorf("failed to build monthly report: %w", err)
	}
	if report == "" {
		return nil
	}

	if err := s.notifier.Send(ctx, *guild.CollectionChannelID, report); err != nil {
		return fmt.Errorf("failed to send monthly report: %w", err)
	}

	s.mu.Lock()
	s.monthlySent[guild.GuildID] = monthKey
	s.mu.Unlock()

	return nil
}

func (s *MonitorService) markReminderSent(key markerKey) {
	s.mu.Lock()
	s.reminderSent[key] = struct{}{}
	s.mu.Unlock()
}

func (s *MonitorService) markCheckDone(key markerKey) {
	s.mu.Lock()
	s.checkDone[key] = struct{}{}
	s.mu.Unlock()
}

// dateOf truncates a timestamp to its UTC calendar date
func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func formatReminder(guild *models.Guild, violators []Violator, threshold int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⏰ **Ticket reminder for %s** - reset in under an hour!\n", guild.DisplayName())
	fmt.Fprintf(&b, "%d member(s) still below %d tickets:\n", len(violators), threshold)
	for _, v := range violators {
		fmt.Fprintf(&b, "• %s: %d tickets\n", v.Name, v.Tickets)
	}
	return b.String()
}

func formatCheckReport(guild *models.Guild, violators []Violator) string {
	if len(violators) == 0 {
		return fmt.Sprintf("✅ **%s**: everyone hit their tickets today. Nice work!", guild.DisplayName())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 **Daily ticket report for %s**\n", guild.DisplayName())
	fmt.Fprintf(&b, "%d member(s) missed tickets:\n", len(violators))
	for _, v := range violators {
		fmt.Fprintf(&b, "• %s: %d tickets\n", v.Name, v.Tickets)
	}
	return b.String()
}
