package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triviad/models"
)

func testSubmission(answer string) *models.Submission {
	return &models.Submission{Answer: answer, SubmittedAt: time.Now().UTC()}
}

func TestSubmitAnswerOK(t *testing.T) {
	gs, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, gs.CreateGame(ctx, testGame("guild-1", "game-1")))

	outcome, err := gs.SubmitAnswer(ctx, "guild-1", "game-1", "user-1", testSubmission("Paris"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeOK, outcome)

	subs, err := gs.GetSubmissions(ctx, "guild-1", "game-1")
	require.NoError(t, err)
	require.Contains(t, subs, "user-1")
	assert.Equal(t, "Paris", subs["user-1"].Answer)
	assert.False(t, subs["user-1"].Graded())
}

func TestSubmitAnswerGameNotFound(t *testing.T) {
	gs, _ := newTestStore(t)

	outcome, err := gs.SubmitAnswer(context.Background(), "guild-1", "missing", "user-1", testSubmission("Paris"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeGameNotFound, outcome)
}

func TestSubmitAnswerGameClosed(t *testing.T) {
	gs, _ := newTestStore(t)
	ctx := context.Background()

	game := testGame("guild-1", "game-1")
	require.NoError(t, gs.CreateGame(ctx, game))
	closedAt := time.Now().UTC()
	game.ClosedAt = &closedAt
	require.NoError(t, gs.UpdateGame(ctx, game))

	outcome, err := gs.SubmitAnswer(ctx, "guild-1", "game-1", "user-1", testSubmission("Paris"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeGameClosed, outcome)
}

func TestSubmitAnswerWindowClosed(t *testing.T) {
	gs, _ := newTestStore(t)
	ctx := context.Background()

	game := testGame("guild-1", "game-1")
	game.EndsAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, gs.CreateGame(ctx, game))

	outcome, err := gs.SubmitAnswer(ctx, "guild-1", "game-1", "user-1", testSubmission("Paris"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeWindowClosed, outcome)

	subs, err := gs.GetSubmissions(ctx, "guild-1", "game-1")
	require.NoError(t, err)
	assert.Empty(t, subs, "a rejected submission must leave no trace")
}

func TestSubmitAnswerAlreadySubmitted(t *testing.T) {
	gs, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, gs.CreateGame(ctx, testGame("guild-1", "game-1")))

	outcome, err := gs.SubmitAnswer(ctx, "guild-1", "game-1", "user-1", testSubmission("Paris"))
	require.NoError(t, err)
	require.Equal(t, OutcomeOK, outcome)

	outcome, err = gs.SubmitAnswer(ctx, "guild-1", "game-1", "user-1", testSubmission("London"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadySubmitted, outcome)

	// The first answer stands untouched.
	subs, err := gs.GetSubmissions(ctx, "guild-1", "game-1")
	require.NoError(t, err)
	assert.Equal(t, "Paris", subs["user-1"].Answer)
}

func TestSubmitAnswerDistinctUsers(t *testing.T) {
	gs, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, gs.CreateGame(ctx, testGame("guild-1", "game-1")))

	for _, userID := range []string{"user-1", "user-2", "user-3"} {
		outcome, err := gs.SubmitAnswer(ctx, "guild-1", "game-1", userID, testSubmission("Paris"))
		require.NoError(t, err)
		assert.Equal(t, OutcomeOK, outcome)
	}

	subs, err := gs.GetSubmissions(ctx, "guild-1", "game-1")
	require.NoError(t, err)
	assert.Len(t, subs, 3)
}

func TestSubmitAnswerConcurrentSameUser(t *testing.T) {
	gs, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, gs.CreateGame(ctx, testGame("guild-1", "game-1")))

	const attempts = 20
	outcomes := make([]Outcome, attempts)
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = gs.SubmitAnswer(ctx, "guild-1", "game-1", "user-1", testSubmission("Paris"))
		}(i)
	}
	wg.Wait()

	accepted := 0
	for i, outcome := range outcomes {
		require.NoError(t, errs[i])
		switch outcome {
		case OutcomeOK:
			accepted++
		case OutcomeAlreadySubmitted:
		default:
			t.Fatalf("unexpected outcome %q", outcome)
		}
	}
	assert.Equal(t, 1, accepted, "exactly one of the racing submissions may win")

	subs, err := gs.GetSubmissions(ctx, "guild-1", "game-1")
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}
