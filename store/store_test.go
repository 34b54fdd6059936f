package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triviad/models"
)

func newTestStore(t *testing.T) (*GameStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewGameStore(rdb, time.Hour), mr
}

func testGame(guildID, gameID string) *models.Game {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Game{
		ID:            gameID,
		GuildID:       guildID,
		ChannelID:     "chan-1",
		Question:      "What is the capital of France?",
		CorrectAnswer: "Paris",
		Category:      "Geography",
		StartedAt:     now,
		EndsAt:        now.Add(10 * time.Minute),
	}
}

func TestGameRoundTrip(t *testing.T) {
	gs, _ := newTestStore(t)
	ctx := context.Background()

	game := testGame("guild-1", "game-1")
	require.NoError(t, gs.CreateGame(ctx, game))

	got, err := gs.GetGame(ctx, "guild-1", "game-1")
	require.NoError(t, err)
	assert.Equal(t, game.Question, got.Question)
	assert.Equal(t, game.CorrectAnswer, got.CorrectAnswer)
	assert.False(t, got.Closed())

	// Epoch form must match ends_at for the submission script.
	assert.InDelta(t, float64(game.EndsAt.UnixMilli())/1000, got.EndsAtEpoch, 0.001)
}

func TestGetGameNotFound(t *testing.T) {
	gs, _ := newTestStore(t)

	_, err := gs.GetGame(context.Background(), "guild-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteGameRemovesSubmissions(t *testing.T) {
	gs, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, gs.CreateGame(ctx, testGame("guild-1", "game-1")))
	require.NoError(t, gs.UpdateSubmission(ctx, "guild-1", "game-1", "user-1",
		&models.Submission{Answer: "Paris", SubmittedAt: time.Now().UTC()}))

	deleted, err := gs.DeleteGame(ctx, "guild-1", "game-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = gs.GetGame(ctx, "guild-1", "game-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, mr.Exists("trivia:guild-1:game:game-1:submissions"),
		"cancelling a game must not leave its submissions behind")

	deleted, err = gs.DeleteGame(ctx, "guild-1", "game-1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestListActiveGamesSkipsCorrupt(t *testing.T) {
	gs, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, gs.CreateGame(ctx, testGame("guild-1", "game-1")))
	mr.HSet("trivia:guild-1:games:active", "bad", "{not json")

	games, err := gs.ListActiveGames(ctx, "guild-1")
	require.NoError(t, err)
	assert.Len(t, games, 1)
	assert.Contains(t, games, "game-1")
}

func TestRegistrationRoundTrip(t *testing.T) {
	gs, _ := newTestStore(t)
	ctx := context.Background()

	reg := &models.Registration{
		ID:                  "reg-1",
		GuildID:             "guild-1",
		ChannelID:           "chan-1",
		ScheduleTimes:       []string{"09:00", "17:30"},
		AnswerWindowMinutes: 15,
		Enabled:             true,
		CreatedAt:           time.Now().UTC(),
	}
	require.NoError(t, gs.SaveRegistration(ctx, reg))

	got, err := gs.GetRegistration(ctx, "guild-1", "reg-1")
	require.NoError(t, err)
	assert.Equal(t, reg.ScheduleTimes, got.ScheduleTimes)
	assert.Equal(t, 15*time.Minute, got.AnswerWindow())

	deleted, err := gs.DeleteRegistration(ctx, "guild-1", "reg-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = gs.GetRegistration(ctx, "guild-1", "reg-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClearRegistrationsByChannel(t *testing.T) {
	gs, _ := newTestStore(t)
	ctx := context.Background()

	for _, reg := range []*models.Registration{
		{ID: "reg-1", GuildID: "guild-1", ChannelID: "chan-a", ScheduleTimes: []string{"09:00"}, AnswerWindowMinutes: 10},
		{ID: "reg-2", GuildID: "guild-1", ChannelID: "chan-a", ScheduleTimes: []string{"17:00"}, AnswerWindowMinutes: 10},
		{ID: "reg-3", GuildID: "guild-1", ChannelID: "chan-b", ScheduleTimes: []string{"12:00"}, AnswerWindowMinutes: 10},
	} {
		require.NoError(t, gs.SaveRegistration(ctx, reg))
	}

	deleted, err := gs.ClearRegistrationsByChannel(ctx, "guild-1", "chan-a")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	regs, err := gs.GetRegistrations(ctx, "guild-1")
	require.NoError(t, err)
	assert.Len(t, regs, 1)
	assert.Contains(t, regs, "reg-3")
}

func TestScopesTracked(t *testing.T) {
	gs, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, gs.CreateGame(ctx, testGame("guild-1", "game-1")))
	require.NoError(t, gs.SaveRegistration(ctx, &models.Registration{
		ID: "reg-1", GuildID: "guild-2", ChannelID: "chan-1",
		ScheduleTimes: []string{"09:00"}, AnswerWindowMinutes: 10,
	}))
	// Empty guild id maps to the shared global scope.
	require.NoError(t, gs.CreateGame(ctx, testGame("", "game-2")))

	scopes, err := gs.Scopes(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"guild-1", "guild-2", "global"}, scopes)
}

func TestMoveToHistory(t *testing.T) {
	gs, _ := newTestStore(t)
	ctx := context.Background()

	game := testGame("guild-1", "game-1")
	require.NoError(t, gs.CreateGame(ctx, game))
	closedAt := time.Now().UTC().Truncate(time.Second)
	game.ClosedAt = &closedAt

	correct := true
	subs := map[string]*models.Submission{
		"user-1": {Answer: "Paris", SubmittedAt: time.Now().UTC(), IsCorrect: &correct},
	}
	require.NoError(t, gs.MoveToHistory(ctx, game, subs))

	_, err := gs.GetGame(ctx, "guild-1", "game-1")
	assert.ErrorIs(t, err, ErrNotFound, "game must leave the active region")

	records, err := gs.RecentHistory(ctx, "guild-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "game-1", records[0].GameID)
	assert.Equal(t, closedAt, records[0].EndedAt)
	require.Contains(t, records[0].Submissions, "user-1")
	assert.True(t, *records[0].Submissions["user-1"].IsCorrect)
}

func TestMoveToHistoryIdempotent(t *testing.T) {
	gs, _ := newTestStore(t)
	ctx := context.Background()

	game := testGame("guild-1", "game-1")
	require.NoError(t, gs.CreateGame(ctx, game))
	closedAt := time.Now().UTC()
	game.ClosedAt = &closedAt

	subs := map[string]*models.Submission{}
	require.NoError(t, gs.MoveToHistory(ctx, game, subs))

	// A crashed closer retries the whole move. Same record, no duplicates.
	require.NoError(t, gs.MoveToHistory(ctx, game, subs))

	records, err := gs.RecentHistory(ctx, "guild-1", 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRecentHistoryNewestFirst(t *testing.T) {
	gs, _ := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, gameID := range []string{"game-old", "game-mid", "game-new"} {
		game := testGame("guild-1", gameID)
		require.NoError(t, gs.CreateGame(ctx, game))
		closedAt := base.Add(time.Duration(i) * time.Hour)
		game.ClosedAt = &closedAt
		require.NoError(t, gs.MoveToHistory(ctx, game, nil))
	}

	records, err := gs.RecentHistory(ctx, "guild-1", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "game-new", records[0].GameID)
	assert.Equal(t, "game-mid", records[1].GameID)
}

func TestHistoryExpiresWithTTL(t *testing.T) {
	gs, mr := newTestStore(t)
	ctx := context.Background()

	game := testGame("guild-1", "game-1")
	require.NoError(t, gs.CreateGame(ctx, game))
	require.NoError(t, gs.MoveToHistory(ctx, game, nil))

	mr.FastForward(2 * time.Hour)

	records, err := gs.RecentHistory(ctx, "guild-1", 10)
	require.NoError(t, err)
	assert.Empty(t, records, "expired history records are silently absent")
}

func TestUsedSeeds(t *testing.T) {
	gs, _ := newTestStore(t)
	ctx := context.Background()

	added, err := gs.MarkSeedUsed(ctx, "guild-1", "einstein_origin")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = gs.MarkSeedUsed(ctx, "guild-1", "einstein_origin")
	require.NoError(t, err)
	assert.False(t, added, "second mark of the same seed reports already used")

	used, err := gs.IsSeedUsed(ctx, "guild-1", "einstein_origin")
	require.NoError(t, err)
	assert.True(t, used)

	used, err = gs.IsSeedUsed(ctx, "guild-1", "newton_legacy")
	require.NoError(t, err)
	assert.False(t, used)
}

func TestTrimUsedSeeds(t *testing.T) {
	gs, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := gs.MarkSeedUsed(ctx, "guild-1", string(rune('a'+i))+"_seed")
		require.NoError(t, err)
	}

	removed, err := gs.TrimUsedSeeds(ctx, "guild-1", 6)
	require.NoError(t, err)
	assert.Equal(t, 4, removed)

	count, err := gs.UsedSeedCount(ctx, "guild-1")
	require.NoError(t, err)
	assert.EqualValues(t, 6, count)

	// Below the bound nothing is evicted.
	removed, err = gs.TrimUsedSeeds(ctx, "guild-1", 6)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestClearStats(t *testing.T) {
	gs, _ := newTestStore(t)
	ctx := context.Background()

	// One completed game with a submission, one still active, one seed.
	done := testGame("guild-1", "game-done")
	require.NoError(t, gs.CreateGame(ctx, done))
	require.NoError(t, gs.UpdateSubmission(ctx, "guild-1", "game-done", "user-1",
		&models.Submission{Answer: "Paris", SubmittedAt: time.Now().UTC()}))
	require.NoError(t, gs.MoveToHistory(ctx, done, nil))

	require.NoError(t, gs.CreateGame(ctx, testGame("guild-1", "game-live")))
	_, err := gs.MarkSeedUsed(ctx, "guild-1", "einstein_origin")
	require.NoError(t, err)

	cleared, err := gs.ClearStats(ctx, "guild-1")
	require.NoError(t, err)
	assert.Equal(t, 1, cleared.Games)
	assert.Equal(t, 1, cleared.Submissions)
	assert.Equal(t, 1, cleared.Seeds)

	// Active games survive a stats wipe.
	_, err = gs.GetGame(ctx, "guild-1", "game-live")
	assert.NoError(t, err)

	records, err := gs.RecentHistory(ctx, "guild-1", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
