package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"guildwatch/events"
	"guildwatch/gameapi"
	"guildwatch/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type monitorFixture struct {
	uow            *MockUnitOfWork
	factory        *MockUnitOfWorkFactory
	guildRepo      *MockGuildRepository
	violationRepo  *MockViolationRepository
	client         *MockGameClient
	notifier       *MockNotifier
	summaries      *MockSummaryReporter
	recorder       *RecordingEventPublisher
	service        *MonitorService
	clock          time.Time
}

func newMonitorFixture(development bool) *monitorFixture {
	f := &monitorFixture{
		uow:           new(MockUnitOfWork),
		factory:       new(MockUnitOfWorkFactory),
		guildRepo:     new(MockGuildRepository),
		violationRepo: new(MockViolationRepository),
		client:        new(MockGameClient),
		notifier:      new(MockNotifier),
		summaries:     new(MockSummaryReporter),
		recorder:      &RecordingEventPublisher{},
	}

	f.uow.SetRepositories(f.guildRepo, nil, nil, f.violationRepo, f.recorder)
	f.factory.On("Create").Return(f.uow)
	f.uow.On("Begin", mock.Anything).Return(nil)
	f.uow.On("Commit").Return(nil)
	f.uow.On("Rollback").Return(nil)

	f.service = NewMonitorService(f.factory, f.client, f.notifier, f.summaries, DefaultTicketThreshold, development)
	f.service.now = func() time.Time { return f.clock }

	return f
}

func testGuild(resetAt time.Time) *models.Guild {
	name := "Test Guild"
	collection := "chan-collect"
	reminder := "chan-remind"
	return &models.Guild{
		GuildID:             "guild-1",
		Name:                &name,
		CollectionChannelID: &collection,
		ReminderChannelID:   &reminder,
		NextResetAt:         resetAt,
	}
}

func rosterWithTickets(guildID string, tickets map[int64]int64) *gameapi.GuildRoster {
	roster := &gameapi.GuildRoster{GuildID: guildID, Name: "Test Guild"}
	for code, count := range tickets {
		roster.Members = append(roster.Members, gameapi.GuildMember{
			AllyCode: code,
			Name:     "Player",
			Contributions: []gameapi.Contribution{
				{Type: gameapi.ContributionTypeTickets, Value: count},
			},
		})
	}
	return roster
}

func TestMonitorService_Tick_ReminderSentOncePerCycle(t *testing.T) {
	ctx := context.Background()
	resetAt := time.Date(2024, 3, 6, 18, 0, 0, 0, time.UTC)

	f := newMonitorFixture(false)
	f.clock = resetAt.Add(-30 * time.Minute)

	guild := testGuild(resetAt)
	f.guildRepo.On("GetAll", ctx).Return([]*models.Guild{guild}, nil)
	f.client.On("FetchGuildRoster", ctx, "guild-1", true).
		Return(rosterWithTickets("guild-1", map[int64]int64{111: 400}), nil)
	f.notifier.On("Send", ctx, "chan-remind", mock.AnythingOfType("string")).Return(nil)

	for i := 0; i < 3; i++ {
		assert.NoError(t, f.service.Tick(ctx))
	}

	// Dedup short-circuits before the roster fetch on repeat ticks
	f.client.AssertNumberOfCalls(t, "FetchGuildRoster", 1)
	f.notifier.AssertNumberOfCalls(t, "Send", 1)
}

func TestMonitorService_Tick_ReminderWithoutViolatorsStillMarked(t *testing.T) {
	ctx := context.Background()
	resetAt := time.Date(2024, 3, 6, 18, 0, 0, 0, time.UTC)

	f := newMonitorFixture(false)
	f.clock = resetAt.Add(-45 * time.Minute)

	guild := testGuild(resetAt)
	f.guildRepo.On("GetAll", ctx).Return([]*models.Guild{guild}, nil)
	f.client.On("FetchGuildRoster", ctx, "guild-1", true).
		Return(rosterWithTickets("guild-1", map[int64]int64{111: 600, 222: 720}), nil)

	assert.NoError(t, f.service.Tick(ctx))
	assert.NoError(t, f.service.Tick(ctx))

	f.client.AssertNumberOfCalls(t, "FetchGuildRoster", 1)
	f.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestMonitorService_Tick_CheckRecordsViolationsOnce(t *testing.T) {
	ctx := context.Background()
	resetAt := time.Date(2024, 3, 6, 18, 0, 0, 0, time.UTC)

	f := newMonitorFixture(false)
	f.clock = resetAt.Add(-time.Minute)

	guild := testGuild(resetAt)
	f.guildRepo.On("GetAll", ctx).Return([]*models.Guild{guild}, nil)
	f.client.On("FetchGuildRoster", ctx, "guild-1", true).
		Return(rosterWithTickets("guild-1", map[int64]int64{111: 400, 222: 599, 333: 600}), nil)

	expectedDate := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	f.violationRepo.On("Record", ctx, mock.MatchedBy(func(v *models.Violation) bool {
		return v.GuildID == "guild-1" && v.ViolationDate.Equal(expectedDate)
	})).Return(nil)
	f.notifier.On("Send", ctx, "chan-collect", mock.MatchedBy(func(content string) bool {
		return strings.Contains(content, "missed tickets")
	})).Return(nil)

	assert.NoError(t, f.service.Tick(ctx))
	assert.NoError(t, f.service.Tick(ctx))

	// 333 is at threshold and compliant, only 111 and 222 are recorded
	f.violationRepo.AssertNumberOfCalls(t, "Record", 2)
	f.notifier.AssertNumberOfCalls(t, "Send", 1)

	var recorded *events.ViolationsRecordedEvent
	for _, e := range f.recorder.Events {
		if v, ok := e.(events.ViolationsRecordedEvent); ok {
			recorded = &v
		}
	}
	assert.NotNil(t, recorded)
	assert.Equal(t, 2, recorded.Violators)
}

func TestMonitorService_Tick_AllCompliantSendsAllClear(t *testing.T) {
	ctx := context.Background()
	resetAt := time.Date(2024, 3, 6, 18, 0, 0, 0, time.UTC)

	f := newMonitorFixture(false)
	f.clock = resetAt.Add(-time.Minute)

	guild := testGuild(resetAt)
	f.guildRepo.On("GetAll", ctx).Return([]*models.Guild{guild}, nil)
	f.client.On("FetchGuildRoster", ctx, "guild-1", true).
		Return(rosterWithTickets("guild-1", map[int64]int64{111: 600}), nil)
	f.notifier.On("Send", ctx, "chan-collect", mock.MatchedBy(func(content string) bool {
		return strings.Contains(content, "everyone hit their tickets")
	})).Return(nil)

	assert.NoError(t, f.service.Tick(ctx))

	f.violationRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	f.notifier.AssertNumberOfCalls(t, "Send", 1)
	assert.Empty(t, f.recorder.Events)
}

func TestMonitorService_Tick_CheckSendFailureRetriesNextTick(t *testing.T) {
	ctx := context.Background()
	resetAt := time.Date(2024, 3, 6, 18, 0, 0, 0, time.UTC)

	f := newMonitorFixture(false)
	f.clock = resetAt.Add(-90 * time.Second)

	guild := testGuild(resetAt)
	f.guildRepo.On("GetAll", ctx).Return([]*models.Guild{guild}, nil)
	f.client.On("FetchGuildRoster", ctx, "guild-1", true).
		Return(rosterWithTickets("guild-1", map[int64]int64{111: 100}), nil)
	f.violationRepo.On("Record", ctx, mock.AnythingOfType("*models.Violation")).Return(nil)

	f.notifier.On("Send", ctx, "chan-collect", mock.AnythingOfType("string")).
		Return(errors.New("channel unavailable")).Once()
	f.notifier.On("Send", ctx, "chan-collect", mock.AnythingOfType("string")).Return(nil)

	// Failed send leaves the window unmarked, the next tick retries. The
	// violation insert deduplicates itself at the database.
	assert.NoError(t, f.service.Tick(ctx))
	assert.NoError(t, f.service.Tick(ctx))
	assert.NoError(t, f.service.Tick(ctx))

	f.notifier.AssertNumberOfCalls(t, "Send", 2)
	f.violationRepo.AssertNumberOfCalls(t, "Record", 2)
}

func TestMonitorService_Tick_GuildFailureIsolation(t *testing.T) {
	ctx := context.Background()
	resetAt := time.Date(2024, 3, 6, 18, 0, 0, 0, time.UTC)

	f := newMonitorFixture(false)
	f.clock = resetAt.Add(-30 * time.Minute)

	healthy := testGuild(resetAt)
	healthy.GuildID = "guild-2"
	broken := testGuild(resetAt)

	f.guildRepo.On("GetAll", ctx).Return([]*models.Guild{broken, healthy}, nil)
	f.client.On("FetchGuildRoster", ctx, "guild-1", true).
		Return(nil, errors.New("timeout"))
	f.client.On("FetchGuildRoster", ctx, "guild-2", true).
		Return(rosterWithTickets("guild-2", map[int64]int64{111: 100}), nil)
	f.notifier.On("Send", ctx, "chan-remind", mock.AnythingOfType("string")).Return(nil)

	assert.NoError(t, f.service.Tick(ctx))

	f.notifier.AssertNumberOfCalls(t, "Send", 1)
}

func TestMonitorService_Tick_OutsideWindowsDoesNothing(t *testing.T) {
	ctx := context.Background()
	resetAt := time.Date(2024, 3, 6, 18, 0, 0, 0, time.UTC)

	f := newMonitorFixture(false)
	f.clock = resetAt.Add(-90 * time.Minute)

	guild := testGuild(resetAt)
	f.guildRepo.On("GetAll", ctx).Return([]*models.Guild{guild}, nil)

	assert.NoError(t, f.service.Tick(ctx))

	f.client.AssertNotCalled(t, "FetchGuildRoster", mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestMonitorService_Tick_FullCycleReArmsWindows(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 6, 16, 30, 0, 0, time.UTC)
	resetAt := base.Add(90 * time.Minute)
	nextResetAt := resetAt.Add(24 * time.Hour)

	f := newMonitorFixture(false)

	guild := testGuild(resetAt)
	f.guildRepo.On("GetAll", mock.Anything).Return([]*models.Guild{guild}, nil)
	f.guildRepo.On("UpdateNextReset", mock.Anything, "guild-1", nextResetAt).Return(nil)
	f.violationRepo.On("Record", mock.Anything, mock.AnythingOfType("*models.Violation")).Return(nil)
	f.notifier.On("Send", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(nil)

	activityRoster := rosterWithTickets("guild-1", map[int64]int64{111: 200})
	f.client.On("FetchGuildRoster", mock.Anything, "guild-1", true).Return(activityRoster, nil)

	rolledOver := rosterWithTickets("guild-1", nil)
	rolledOver.NextResetAt = nextResetAt.Unix()
	f.client.On("FetchGuildRoster", mock.Anything, "guild-1", false).Return(rolledOver, nil)

	// 61 minutes out, no window is active yet
	f.clock = base.Add(29 * time.Minute)
	assert.NoError(t, f.service.Tick(ctx))
	f.notifier.AssertNumberOfCalls(t, "Send", 0)

	// 30 minutes out, the reminder fires
	f.clock = base.Add(60 * time.Minute)
	assert.NoError(t, f.service.Tick(ctx))
	f.notifier.AssertNumberOfCalls(t, "Send", 1)

	// 2 minutes out, the final check records and reports
	f.clock = base.Add(88 * time.Minute)
	assert.NoError(t, f.service.Tick(ctx))
	f.notifier.AssertNumberOfCalls(t, "Send", 2)
	f.violationRepo.AssertNumberOfCalls(t, "Record", 1)

	// 5 minutes past, the cycle rolls over to the fresh reset timestamp
	f.clock = base.Add(95 * time.Minute)
	assert.NoError(t, f.service.Tick(ctx))
	f.guildRepo.AssertNumberOfCalls(t, "UpdateNextReset", 1)
	assert.Equal(t, nextResetAt, guild.NextResetAt)

	// A day later the windows are armed for the new cycle
	f.clock = nextResetAt.Add(-30 * time.Minute)
	assert.NoError(t, f.service.Tick(ctx))
	f.notifier.AssertNumberOfCalls(t, "Send", 3)

	var advanced *events.ResetAdvancedEvent
	for _, e := range f.recorder.Events {
		if v, ok := e.(events.ResetAdvancedEvent); ok {
			advanced = &v
		}
	}
	assert.NotNil(t, advanced)
	assert.Equal(t, resetAt, advanced.OldResetAt)
	assert.Equal(t, nextResetAt, advanced.NewResetAt)
}

func TestMonitorService_Tick_StaleResetNotAdvanced(t *testing.T) {
	ctx := context.Background()
	resetAt := time.Date(2024, 3, 6, 18, 0, 0, 0, time.UTC)

	f := newMonitorFixture(false)
	f.clock = resetAt.Add(10 * time.Minute)

	guild := testGuild(resetAt)
	f.guildRepo.On("GetAll", ctx).Return([]*models.Guild{guild}, nil)

	// Remote API still reports the cycle that just passed
	stale := rosterWithTickets("guild-1", nil)
	stale.NextResetAt = resetAt.Unix()
	f.client.On("FetchGuildRoster", ctx, "guild-1", false).Return(stale, nil)

	assert.NoError(t, f.service.Tick(ctx))

	f.guildRepo.AssertNotCalled(t, "UpdateNextReset", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, resetAt, guild.NextResetAt)
}

func TestMonitorService_Tick_DevelopmentModeSkipsSends(t *testing.T) {
	ctx := context.Background()
	resetAt := time.Date(2024, 3, 6, 18, 0, 0, 0, time.UTC)

	f := newMonitorFixture(true)
	f.clock = resetAt.Add(-30 * time.Minute)

	guild := testGuild(resetAt)
	f.guildRepo.On("GetAll", ctx).Return([]*models.Guild{guild}, nil)

	assert.NoError(t, f.service.Tick(ctx))

	// Marked without any remote traffic
	f.client.AssertNotCalled(t, "FetchGuildRoster", mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)

	key := markerKey{guildID: "guild-1", resetAt: resetAt.Unix()}
	f.service.mu.Lock()
	_, marked := f.service.reminderSent[key]
	f.service.mu.Unlock()
	assert.True(t, marked)
}

func TestMonitorService_WeeklySummaryDeduplicated(t *testing.T) {
	ctx := context.Background()
	// 2024-03-10 is a Sunday
	closedReset := time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)

	f := newMonitorFixture(false)
	guild := testGuild(closedReset)

	f.summaries.On("WeeklyReport", ctx, "guild-1", mock.AnythingOfType("time.Time")).
		Return("weekly report", nil)
	f.notifier.On("Send", ctx, "chan-collect", "weekly report").Return(nil)

	assert.NoError(t, f.service.maybeSendWeeklySummary(ctx, guild, closedReset))
	assert.NoError(t, f.service.maybeSendWeeklySummary(ctx, guild, closedReset))

	f.notifier.AssertNumberOfCalls(t, "Send", 1)
}

func TestMonitorService_WeeklySummarySkippedOffSunday(t *testing.T) {
	ctx := context.Background()
	closedReset := time.Date(2024, 3, 6, 18, 0, 0, 0, time.UTC) // Wednesday

	f := newMonitorFixture(false)
	guild := testGuild(closedReset)

	assert.NoError(t, f.service.maybeSendWeeklySummary(ctx, guild, closedReset))

	f.summaries.AssertNotCalled(t, "WeeklyReport", mock.Anything, mock.Anything, mock.Anything)
}

func TestMonitorService_WeeklySummaryEmptyReportNotSent(t *testing.T) {
	ctx := context.Background()
	closedReset := time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)

	f := newMonitorFixture(false)
	guild := testGuild(closedReset)

	f.summaries.On("WeeklyReport", ctx, "guild-1", mock.AnythingOfType("time.Time")).
		Return("", nil)

	assert.NoError(t, f.service.maybeSendWeeklySummary(ctx, guild, closedReset))

	f.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestMonitorService_MonthlySummaryOnLastDay(t *testing.T) {
	ctx := context.Background()
	closedReset := time.Date(2024, 3, 31, 18, 0, 0, 0, time.UTC)

	f := newMonitorFixture(false)
	guild := testGuild(closedReset)

	f.summaries.On("MonthlyReport", ctx, "guild-1", mock.AnythingOfType("time.Time")).
		Return("monthly report", nil)
	f.notifier.On("Send", ctx, "chan-collect", "monthly report").Return(nil)

	assert.NoError(t, f.service.maybeSendMonthlySummary(ctx, guild, closedReset))
	assert.NoError(t, f.service.maybeSendMonthlySummary(ctx, guild, closedReset))

	f.notifier.AssertNumberOfCalls(t, "Send", 1)
}

func TestMonitorService_MonthlySummarySkippedMidMonth(t *testing.T) {
	ctx := context.Background()
	closedReset := time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)

	f := newMonitorFixture(false)
	guild := testGuild(closedReset)

	assert.NoError(t, f.service.maybeSendMonthlySummary(ctx, guild, closedReset))

	f.summaries.AssertNotCalled(t, "MonthlyReport", mock.Anything, mock.Anything, mock.Anything)
}

func TestViolators_ThresholdBoundary(t *testing.T) {
	tests := []struct {
		name     string
		tickets  []gameapi.Contribution
		violator bool
	}{
		{
			name:     "below threshold",
			tickets:  []gameapi.Contribution{{Type: gameapi.ContributionTypeTickets, Value: 599}},
			violator: true,
		},
		{
			name:     "at threshold",
			tickets:  []gameapi.Contribution{{Type: gameapi.ContributionTypeTickets, Value: 600}},
			violator: false,
		},
		{
			name:     "above threshold",
			tickets:  []gameapi.Contribution{{Type: gameapi.ContributionTypeTickets, Value: 720}},
			violator: false,
		},
		{
			name:     "missing contribution counts as zero",
			tickets:  nil,
			violator: true,
		},
		{
			name: "other contribution types ignored",
			tickets: []gameapi.Contribution{
				{Type: 1, Value: 10000},
				{Type: gameapi.ContributionTypeTickets, Value: 50},
			},
			violator: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roster := &gameapi.GuildRoster{
				Members: []gameapi.GuildMember{
					{AllyCode: 111, Name: "Player", Contributions: tt.tickets},
				},
			}
			violators := Violators(roster, DefaultTicketThreshold)
			if tt.violator {
				assert.Len(t, violators, 1)
			} else {
				assert.Empty(t, violators)
			}
		})
	}
}
