package repository

import (
	"context"
	"testing"
	"time"

	"guildwatch/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedGuildAndPlayer(t *testing.T, testDB *testutil.TestDatabase, guildID string, allyCode int64) {
	t.Helper()
	ctx := context.Background()

	guildRepo := NewGuildRepository(testDB.DB)
	playerRepo := NewPlayerRepository(testDB.DB)

	require.NoError(t, guildRepo.Upsert(ctx, testutil.CreateTestGuild(guildID)))
	require.NoError(t, playerRepo.Upsert(ctx, testutil.CreateTestPlayer(allyCode, "Test Player")))
}

func TestMembershipRepository_Lifecycle(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewMembershipRepository(testDB.DB)
	ctx := context.Background()

	seedGuildAndPlayer(t, testDB, "guild-1", 111)

	t.Run("create active membership", func(t *testing.T) {
		membership := testutil.CreateTestMembership("guild-1", 111)
		require.NoError(t, repo.Create(ctx, membership))

		stored, err := repo.GetByGuild(ctx, "guild-1")
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.True(t, stored[0].Active)
		assert.Nil(t, stored[0].LeftAt)
		require.NotNil(t, stored[0].JoinedAt)
	})

	t.Run("deactivate stamps left_at", func(t *testing.T) {
		leftAt := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, repo.Deactivate(ctx, "guild-1", 111, leftAt))

		stored, err := repo.GetByGuild(ctx, "guild-1")
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.False(t, stored[0].Active)
		require.NotNil(t, stored[0].LeftAt)
		assert.True(t, leftAt.Equal(*stored[0].LeftAt))
	})

	t.Run("inactive records excluded from active query", func(t *testing.T) {
		active, err := repo.GetActiveByGuild(ctx, "guild-1")
		require.NoError(t, err)
		assert.Empty(t, active)
	})

	t.Run("reactivate clears left_at and refreshes joined_at", func(t *testing.T) {
		rejoined := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, repo.Reactivate(ctx, "guild-1", 111, rejoined))

		stored, err := repo.GetActiveByGuild(ctx, "guild-1")
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.True(t, stored[0].Active)
		assert.Nil(t, stored[0].LeftAt)
		require.NotNil(t, stored[0].JoinedAt)
		assert.True(t, rejoined.Equal(*stored[0].JoinedAt))
	})
}

func TestMembershipRepository_UpdateJoinedAt(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewMembershipRepository(testDB.DB)
	ctx := context.Background()

	seedGuildAndPlayer(t, testDB, "guild-1", 222)

	membership := testutil.CreateTestMembership("guild-1", 222)
	membership.JoinedAt = nil
	require.NoError(t, repo.Create(ctx, membership))

	joined := time.Date(2024, 2, 10, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateJoinedAt(ctx, "guild-1", 222, joined))

	stored, err := repo.GetByGuild(ctx, "guild-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.NotNil(t, stored[0].JoinedAt)
	assert.True(t, joined.Equal(*stored[0].JoinedAt))
	assert.True(t, stored[0].Active)
}

func TestMembershipRepository_GetByPlayer(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewMembershipRepository(testDB.DB)
	guildRepo := NewGuildRepository(testDB.DB)
	ctx := context.Background()

	seedGuildAndPlayer(t, testDB, "guild-1", 333)
	require.NoError(t, guildRepo.Upsert(ctx, testutil.CreateTestGuild("guild-2")))

	require.NoError(t, repo.Create(ctx, testutil.CreateTestMembership("guild-1", 333)))
	require.NoError(t, repo.Create(ctx, testutil.CreateTestMembership("guild-2", 333)))

	memberships, err := repo.GetByPlayer(ctx, 333)
	require.NoError(t, err)
	assert.Len(t, memberships, 2)
}

func TestMembershipRepository_NotFoundErrors(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewMembershipRepository(testDB.DB)
	ctx := context.Background()

	now := time.Now().UTC()

	assert.Error(t, repo.Reactivate(ctx, "guild-1", 999, now))
	assert.Error(t, repo.Deactivate(ctx, "guild-1", 999, now))
	assert.Error(t, repo.UpdateJoinedAt(ctx, "guild-1", 999, now))
}
