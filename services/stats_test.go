package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triviad/models"
	"triviad/store"
)

func moveClosedGame(t *testing.T, gs *store.GameStore, gameID string, endedAt time.Time, correctUsers, wrongUsers []string) {
	t.Helper()
	ctx := context.Background()

	game := &models.Game{
		ID:            gameID,
		GuildID:       "guild-1",
		ChannelID:     "chan-1",
		Question:      "q",
		CorrectAnswer: "a",
		StartedAt:     endedAt.Add(-10 * time.Minute),
		EndsAt:        endedAt,
		ClosedAt:      &endedAt,
	}
	require.NoError(t, gs.CreateGame(ctx, game))

	yes, no := true, false
	subs := map[string]*models.Submission{}
	for _, userID := range correctUsers {
		subs[userID] = &models.Submission{Answer: "a", IsCorrect: &yes}
	}
	for _, userID := range wrongUsers {
		subs[userID] = &models.Submission{Answer: "b", IsCorrect: &no}
	}
	require.NoError(t, gs.MoveToHistory(ctx, game, subs))
}

func TestLeaderboard(t *testing.T) {
	gs, _, _ := newServiceTestStore(t)
	now := time.Now().UTC()

	moveClosedGame(t, gs, "game-1", now.Add(-48*time.Hour), []string{"alice", "bob"}, []string{"carol"})
	moveClosedGame(t, gs, "game-2", now.Add(-time.Hour), []string{"alice"}, []string{"bob"})

	stats := NewStatsService(gs)
	entries, err := stats.Leaderboard(context.Background(), "guild-1", time.Time{})
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, LeaderboardEntry{UserID: "alice", Correct: 2, Played: 2}, entries[0])
	assert.Equal(t, LeaderboardEntry{UserID: "bob", Correct: 1, Played: 2}, entries[1])
	assert.Equal(t, LeaderboardEntry{UserID: "carol", Correct: 0, Played: 1}, entries[2])
}

func TestLeaderboardSince(t *testing.T) {
	gs, _, _ := newServiceTestStore(t)
	now := time.Now().UTC()

	moveClosedGame(t, gs, "game-1", now.Add(-48*time.Hour), []string{"alice"}, nil)
	moveClosedGame(t, gs, "game-2", now.Add(-time.Hour), []string{"bob"}, nil)

	stats := NewStatsService(gs)
	entries, err := stats.Leaderboard(context.Background(), "guild-1", now.Add(-24*time.Hour))
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "bob", entries[0].UserID)
}

func TestUserStats(t *testing.T) {
	gs, _, _ := newServiceTestStore(t)
	now := time.Now().UTC()

	moveClosedGame(t, gs, "game-1", now.Add(-time.Hour), []string{"alice"}, []string{"bob"})

	stats := NewStatsService(gs)
	entry, err := stats.UserStats(context.Background(), "guild-1", "bob")
	require.NoError(t, err)
	assert.Equal(t, LeaderboardEntry{UserID: "bob", Correct: 0, Played: 1}, entry)

	// Unknown users get a zero entry, not an error.
	entry, err = stats.UserStats(context.Background(), "guild-1", "nobody")
	require.NoError(t, err)
	assert.Equal(t, LeaderboardEntry{UserID: "nobody"}, entry)
}

func TestPickSeedAvoidsUsed(t *testing.T) {
	gs, _, _ := newServiceTestStore(t)
	ctx := context.Background()

	seed, err := PickSeed(ctx, gs, "guild-1")
	require.NoError(t, err)
	require.NotEmpty(t, seed)

	_, err = gs.MarkSeedUsed(ctx, "guild-1", seed)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		next, err := PickSeed(ctx, gs, "guild-1")
		require.NoError(t, err)
		assert.NotEqual(t, seed, next)
	}
}
