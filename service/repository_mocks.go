package service

import (
	"context"
	"time"

	"guildwatch/events"
	"guildwatch/gameapi"
	"guildwatch/models"

	"github.com/stretchr/testify/mock"
)

// MockGuildRepository is a mock implementation of GuildRepository
type MockGuildRepository struct {
	mock.Mock
}

func (m *MockGuildRepository) Upsert(ctx context.Context, guild *models.Guild) error {
	args := m.Called(ctx, guild)
	return args.Error(0)
}

func (m *MockGuildRepository) GetByID(ctx context.Context, guildID string) (*models.Guild, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Guild), args.Error(1)
}

func (m *MockGuildRepository) GetAll(ctx context.Context) ([]*models.Guild, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Guild), args.Error(1)
}

func (m *MockGuildRepository) UpdateNextReset(ctx context.Context, guildID string, nextResetAt time.Time) error {
	args := m.Called(ctx, guildID, nextResetAt)
	return args.Error(0)
}

func (m *MockGuildRepository) Delete(ctx context.Context, guildID string) error {
	args := m.Called(ctx, guildID)
	return args.Error(0)
}

// MockPlayerRepository is a mock implementation of PlayerRepository
type MockPlayerRepository struct {
	mock.Mock
}

func (m *MockPlayerRepository) Upsert(ctx context.Context, player *models.Player) error {
	args := m.Called(ctx, player)
	return args.Error(0)
}

func (m *MockPlayerRepository) GetByAllyCode(ctx context.Context, allyCode int64) (*models.Player, error) {
	args := m.Called(ctx, allyCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Player), args.Error(1)
}

// MockMembershipRepository is a mock implementation of MembershipRepository
type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) Create(ctx context.Context, membership *models.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMembershipRepository) GetByGuild(ctx context.Context, guildID string) ([]*models.Membership, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Membership), args.Error(1)
}

func (m *MockMembershipRepository) GetActiveByGuild(ctx context.Context, guildID string) ([]*models.Membership, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Membership), args.Error(1)
}

func (m *MockMembershipRepository) GetByPlayer(ctx context.Context, allyCode int64) ([]*models.Membership, error) {
	args := m.Called(ctx, allyCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Membership), args.Error(1)
}

func (m *MockMembershipRepository) Reactivate(ctx context.Context, guildID string, allyCode int64, joinedAt time.Time) error {
	args := m.Called(ctx, guildID, allyCode, joinedAt)
	return args.Error(0)
}

func (m *MockMembershipRepository) Deactivate(ctx context.Context, guildID string, allyCode int64, leftAt time.Time) error {
	args := m.Called(ctx, guildID, allyCode, leftAt)
	return args.Error(0)
}

func (m *MockMembershipRepository) UpdateJoinedAt(ctx context.Context, guildID string, allyCode int64, joinedAt time.Time) error {
	args := m.Called(ctx, guildID, allyCode, joinedAt)
	return args.Error(0)
}

// MockViolationRepository is a mock implementation of ViolationRepository
type MockViolationRepository struct {
	mock.Mock
}

func (m *MockViolationRepository) Record(ctx context.Context, violation *models.Violation) error {
	args := m.Called(ctx, violation)
	return args.Error(0)
}

func (m *MockViolationRepository) GetByGuildDateRange(ctx context.Context, guildID string, from, to time.Time) ([]*models.Violation, error) {
	args := m.Called(ctx, guildID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Violation), args.Error(1)
}

func (m *MockViolationRepository) GetGuildSummary(ctx context.Context, guildID string, from, to time.Time) ([]*models.ViolationSummary, error) {
	args := m.Called(ctx, guildID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ViolationSummary), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// RecordingEventPublisher captures published events for assertions without
// requiring expectations on every publish
type RecordingEventPublisher struct {
	Events []events.Event
}

func (r *RecordingEventPublisher) Publish(event events.Event) {
	r.Events = append(r.Events, event)
}

// MockGameClient is a mock implementation of GameClient
type MockGameClient struct {
	mock.Mock
}

func (m *MockGameClient) FetchPlayer(ctx context.Context, allyCode int64) (*gameapi.Player, error) {
	args := m.Called(ctx, allyCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gameapi.Player), args.Error(1)
}

func (m *MockGameClient) FetchGuildRoster(ctx context.Context, guildID string, includeActivity bool) (*gameapi.GuildRoster, error) {
	args := m.Called(ctx, guildID, includeActivity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gameapi.GuildRoster), args.Error(1)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, channelID, content string) error {
	args := m.Called(ctx, channelID, content)
	return args.Error(0)
}

// MockSummaryReporter is a mock implementation of SummaryReporter
type MockSummaryReporter struct {
	mock.Mock
}

func (m *MockSummaryReporter) WeeklyReport(ctx context.Context, guildID string, asOf time.Time) (string, error) {
	args := m.Called(ctx, guildID, asOf)
	return args.String(0), args.Error(1)
}

func (m *MockSummaryReporter) MonthlyReport(ctx context.Context, guildID string, asOf time.Time) (string, error) {
	args := m.Called(ctx, guildID, asOf)
	return args.String(0), args.Error(1)
}

// MockUnitOfWork is a mock implementation of UnitOfWork
type MockUnitOfWork struct {
	mock.Mock

	guildRepo      GuildRepository
	playerRepo     PlayerRepository
	membershipRepo MembershipRepository
	violationRepo  ViolationRepository
	eventBus       EventPublisher
}

// SetRepositories configures the repositories returned by the getters
func (m *MockUnitOfWork) SetRepositories(guild GuildRepository, player PlayerRepository, membership MembershipRepository, violation ViolationRepository, eventBus EventPublisher) {
	m.guildRepo = guild
	m.playerRepo = player
	m.membershipRepo = membership
	m.violationRepo = violation
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) GuildRepository() GuildRepository {
	return m.guildRepo
}

func (m *MockUnitOfWork) PlayerRepository() PlayerRepository {
	return m.playerRepo
}

func (m *MockUnitOfWork) MembershipRepository() MembershipRepository {
	return m.membershipRepo
}

func (m *MockUnitOfWork) ViolationRepository() ViolationRepository {
	return m.violationRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
