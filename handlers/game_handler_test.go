package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triviad/models"
	"triviad/services"
	"triviad/store"
)

func newHandlerTestStore(t *testing.T) (*store.GameStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return store.NewGameStore(rdb, time.Hour), mr
}

func newSubmitRouter(gs *store.GameStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewGameHandler(gs, nil, services.NewStatsService(gs))
	router := gin.New()
	router.POST("/api/guilds/:guildID/games/:gameID/answer", h.SubmitAnswer)
	router.GET("/api/guilds/:guildID/games", h.ListActive)
	router.GET("/api/guilds/:guildID/leaderboard", h.Leaderboard)
	return router
}

func postAnswer(router *gin.Engine, gameID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/guilds/guild-1/games/"+gameID+"/answer", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSubmitAnswerEndpoint(t *testing.T) {
	gs, _ := newHandlerTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, gs.CreateGame(ctx, &models.Game{
		ID:            "game-1",
		GuildID:       "guild-1",
		ChannelID:     "chan-1",
		Question:      "q",
		CorrectAnswer: "a",
		StartedAt:     now,
		EndsAt:        now.Add(10 * time.Minute),
	}))
	router := newSubmitRouter(gs)

	w := postAnswer(router, "game-1", `{"user_id":"user-1","answer":"Paris"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "recorded")

	// Duplicate from the same user.
	w = postAnswer(router, "game-1", `{"user_id":"user-1","answer":"London"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Unknown game.
	w = postAnswer(router, "missing", `{"user_id":"user-1","answer":"Paris"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Missing fields.
	w = postAnswer(router, "game-1", `{"answer":"Paris"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitAnswerEndpointWindowClosed(t *testing.T) {
	gs, _ := newHandlerTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, gs.CreateGame(ctx, &models.Game{
		ID:            "game-1",
		GuildID:       "guild-1",
		ChannelID:     "chan-1",
		Question:      "q",
		CorrectAnswer: "a",
		StartedAt:     now.Add(-20 * time.Minute),
		EndsAt:        now.Add(-time.Minute),
	}))
	router := newSubmitRouter(gs)

	w := postAnswer(router, "game-1", `{"user_id":"user-1","answer":"Paris"}`)
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestListActiveHidesAnswer(t *testing.T) {
	gs, _ := newHandlerTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, gs.CreateGame(ctx, &models.Game{
		ID:            "game-1",
		GuildID:       "guild-1",
		ChannelID:     "chan-1",
		Question:      "What is the capital of France?",
		CorrectAnswer: "Paris",
		Explanation:   "Paris has been the capital for centuries.",
		Category:      "Geography",
		Options:       []string{"Paris", "London"},
		Seed:          "einstein_origin",
		StartedAt:     now,
		EndsAt:        now.Add(10 * time.Minute),
	}))
	router := newSubmitRouter(gs)

	req := httptest.NewRequest(http.MethodGet, "/api/guilds/guild-1/games", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "What is the capital of France?")
	assert.Contains(t, body, "game-1")
	assert.NotContains(t, body, "correct_answer")
	assert.NotContains(t, body, "explanation")
	assert.NotContains(t, body, "Paris has been the capital")
	assert.NotContains(t, body, "einstein_origin")
}

func TestLeaderboardEndpoint(t *testing.T) {
	gs, _ := newHandlerTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	game := &models.Game{
		ID: "game-1", GuildID: "guild-1", ChannelID: "chan-1",
		Question: "q", CorrectAnswer: "a",
		StartedAt: now.Add(-time.Hour), EndsAt: now, ClosedAt: &now,
	}
	require.NoError(t, gs.CreateGame(ctx, game))
	yes := true
	require.NoError(t, gs.MoveToHistory(ctx, game, map[string]*models.Submission{
		"alice": {Answer: "a", IsCorrect: &yes},
	}))

	router := newSubmitRouter(gs)
	req := httptest.NewRequest(http.MethodGet, "/api/guilds/guild-1/leaderboard", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")

	// Bad days parameter.
	req = httptest.NewRequest(http.MethodGet, "/api/guilds/guild-1/leaderboard?days=zero", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
