package repository

import (
	"context"
	"testing"
	"time"

	"guildwatch/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuildRepository_UpsertAndGet(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewGuildRepository(testDB.DB)
	ctx := context.Background()

	t.Run("get missing guild returns nil", func(t *testing.T) {
		guild, err := repo.GetByID(ctx, "no-such-guild")
		require.NoError(t, err)
		assert.Nil(t, guild)
	})

	t.Run("insert and retrieve", func(t *testing.T) {
		original := testutil.CreateTestGuild("guild-1")
		err := repo.Upsert(ctx, original)
		require.NoError(t, err)

		guild, err := repo.GetByID(ctx, "guild-1")
		require.NoError(t, err)
		require.NotNil(t, guild)

		assert.Equal(t, "guild-1", guild.GuildID)
		assert.Equal(t, *original.Name, *guild.Name)
		assert.Equal(t, *original.CollectionChannelID, *guild.CollectionChannelID)
		assert.True(t, original.NextResetAt.Equal(guild.NextResetAt))
	})

	t.Run("upsert updates existing registration", func(t *testing.T) {
		updated := testutil.CreateTestGuild("guild-1")
		newName := "Renamed Guild"
		updated.Name = &newName
		updated.ReminderChannelID = nil

		err := repo.Upsert(ctx, updated)
		require.NoError(t, err)

		guild, err := repo.GetByID(ctx, "guild-1")
		require.NoError(t, err)
		require.NotNil(t, guild)
		assert.Equal(t, "Renamed Guild", *guild.Name)
		assert.Nil(t, guild.ReminderChannelID)
	})
}

func TestGuildRepository_GetAll(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewGuildRepository(testDB.DB)
	ctx := context.Background()

	t.Run("empty table", func(t *testing.T) {
		guilds, err := repo.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, guilds)
	})

	t.Run("returns every registration", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, testutil.CreateTestGuild("guild-a")))
		require.NoError(t, repo.Upsert(ctx, testutil.CreateTestGuild("guild-b")))

		guilds, err := repo.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, guilds, 2)
	})
}

func TestGuildRepository_UpdateNextReset(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewGuildRepository(testDB.DB)
	ctx := context.Background()

	t.Run("advances the timestamp", func(t *testing.T) {
		guild := testutil.CreateTestGuild("guild-1")
		require.NoError(t, repo.Upsert(ctx, guild))

		next := guild.NextResetAt.Add(24 * time.Hour)
		err := repo.UpdateNextReset(ctx, "guild-1", next)
		require.NoError(t, err)

		stored, err := repo.GetByID(ctx, "guild-1")
		require.NoError(t, err)
		assert.True(t, next.Equal(stored.NextResetAt))
	})

	t.Run("unknown guild returns error", func(t *testing.T) {
		err := repo.UpdateNextReset(ctx, "no-such-guild", time.Now())
		assert.Error(t, err)
	})
}

func TestGuildRepository_Delete(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewGuildRepository(testDB.DB)
	ctx := context.Background()

	guild := testutil.CreateTestGuild("guild-1")
	require.NoError(t, repo.Upsert(ctx, guild))

	require.NoError(t, repo.Delete(ctx, "guild-1"))

	stored, err := repo.GetByID(ctx, "guild-1")
	require.NoError(t, err)
	assert.Nil(t, stored)
}
