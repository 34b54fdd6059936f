package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"triviad/models"
	"triviad/services"
	"triviad/store"
)

type GameHandler struct {
	store  *store.GameStore
	poster *services.Poster
	stats  *services.StatsService
}

func NewGameHandler(gs *store.GameStore, poster *services.Poster, stats *services.StatsService) *GameHandler {
	return &GameHandler{
		store:  gs,
		poster: poster,
		stats:  stats,
	}
}

type PostGameRequest struct {
	ChannelID     string `json:"channel_id" binding:"required"`
	Category      string `json:"category"`
	WindowMinutes int    `json:"window_minutes"`
}

// PostGame starts an ad-hoc game outside the schedule.
func (h *GameHandler) PostGame(c *gin.Context) {
	var req PostGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.WindowMinutes < 1 {
		req.WindowMinutes = 10
	}

	window := time.Duration(req.WindowMinutes) * time.Minute
	game, err := h.poster.PostAdHoc(c.Request.Context(), c.Param("guildID"), req.ChannelID, req.Category, window)
	if err != nil {
		log.Printf("Error posting ad-hoc game: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to post game"})
		return
	}

	c.JSON(http.StatusCreated, game)
}

// CancelGame drops an active game without scoring or history. Answers already
// submitted are abandoned with it.
func (h *GameHandler) CancelGame(c *gin.Context) {
	deleted, err := h.store.DeleteGame(c.Request.Context(), c.Param("guildID"), c.Param("gameID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "No such game is running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// activeGameView is the public shape of an open game. Grading fields stay
// server-side until the game closes.
type activeGameView struct {
	ID             string    `json:"id"`
	GuildID        string    `json:"guild_id"`
	RegistrationID string    `json:"registration_id,omitempty"`
	ChannelID      string    `json:"channel_id"`
	ThreadID       string    `json:"thread_id,omitempty"`
	MessageID      string    `json:"message_id,omitempty"`
	Question       string    `json:"question"`
	Category       string    `json:"category"`
	Options        []string  `json:"options,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	EndsAt         time.Time `json:"ends_at"`
}

func (h *GameHandler) ListActive(c *gin.Context) {
	games, err := h.store.ListActiveGames(c.Request.Context(), c.Param("guildID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	views := make(map[string]activeGameView, len(games))
	for gameID, game := range games {
		views[gameID] = activeGameView{
			ID:             game.ID,
			GuildID:        game.GuildID,
			RegistrationID: game.RegistrationID,
			ChannelID:      game.ChannelID,
			ThreadID:       game.ThreadID,
			MessageID:      game.MessageID,
			Question:       game.Question,
			Category:       game.Category,
			Options:        game.Options,
			StartedAt:      game.StartedAt,
			EndsAt:         game.EndsAt,
		}
	}
	c.JSON(http.StatusOK, views)
}

type SubmitAnswerRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Answer string `json:"answer" binding:"required"`
}

// SubmitAnswer records one user's answer. Every rejection here is an
// expected outcome with its own status and message, not a server error.
func (h *GameHandler) SubmitAnswer(c *gin.Context) {
	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub := &models.Submission{
		Answer:      req.Answer,
		SubmittedAt: time.Now().UTC(),
	}
	outcome, err := h.store.SubmitAnswer(c.Request.Context(), c.Param("guildID"), c.Param("gameID"), req.UserID, sub)
	if err != nil {
		log.Printf("Error submitting answer: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit answer"})
		return
	}

	switch outcome {
	case store.OutcomeOK:
		c.JSON(http.StatusOK, gin.H{"message": "Your answer has been recorded!"})
	case store.OutcomeGameNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "No such game is running"})
	case store.OutcomeGameClosed:
		c.JSON(http.StatusGone, gin.H{"error": "This game has already been scored"})
	case store.OutcomeWindowClosed:
		c.JSON(http.StatusGone, gin.H{"error": "The answer window for this game has closed"})
	case store.OutcomeAlreadySubmitted:
		c.JSON(http.StatusConflict, gin.H{"error": "You have already submitted an answer for this game"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit answer"})
	}
}

func (h *GameHandler) History(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	records, err := h.store.RecentHistory(c.Request.Context(), c.Param("guildID"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *GameHandler) Leaderboard(c *gin.Context) {
	var since time.Time
	if raw := c.Query("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		since = time.Now().UTC().AddDate(0, 0, -days)
	}

	entries, err := h.stats.Leaderboard(c.Request.Context(), c.Param("guildID"), since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *GameHandler) UserStats(c *gin.Context) {
	entry, err := h.stats.UserStats(c.Request.Context(), c.Param("guildID"), c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ClearStats wipes a guild's retained history. Admin-only and irreversible.
func (h *GameHandler) ClearStats(c *gin.Context) {
	cleared, err := h.store.ClearStats(c.Request.Context(), c.Param("guildID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cleared)
}
