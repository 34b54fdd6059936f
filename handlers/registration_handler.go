package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"triviad/models"
	"triviad/store"
)

type RegistrationHandler struct {
	store *store.GameStore
}

func NewRegistrationHandler(gs *store.GameStore) *RegistrationHandler {
	return &RegistrationHandler{store: gs}
}

type CreateRegistrationRequest struct {
	ChannelID           string   `json:"channel_id" binding:"required"`
	ScheduleTimes       []string `json:"schedule_times" binding:"required"`
	AnswerWindowMinutes int      `json:"answer_window_minutes" binding:"required"`
}

func (h *RegistrationHandler) Create(c *gin.Context) {
	guildID := c.Param("guildID")

	var req CreateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validateScheduleTimes(req.ScheduleTimes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.AnswerWindowMinutes < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "answer_window_minutes must be at least 1"})
		return
	}

	reg := &models.Registration{
		ID:                  uuid.NewString(),
		GuildID:             guildID,
		ChannelID:           req.ChannelID,
		ScheduleTimes:       req.ScheduleTimes,
		AnswerWindowMinutes: req.AnswerWindowMinutes,
		Enabled:             true,
		CreatedAt:           time.Now().UTC(),
	}
	if err := h.store.SaveRegistration(c.Request.Context(), reg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, reg)
}

func (h *RegistrationHandler) List(c *gin.Context) {
	regs, err := h.store.GetRegistrations(c.Request.Context(), c.Param("guildID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, regs)
}

// SetEnabled toggles a registration's enabled flag.
func (h *RegistrationHandler) SetEnabled(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		guildID := c.Param("guildID")
		regID := c.Param("regID")

		reg, err := h.store.GetRegistration(c.Request.Context(), guildID, regID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Registration not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		reg.Enabled = enabled
		if err := h.store.SaveRegistration(c.Request.Context(), reg); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, reg)
	}
}

func (h *RegistrationHandler) Delete(c *gin.Context) {
	deleted, err := h.store.DeleteRegistration(c.Request.Context(), c.Param("guildID"), c.Param("regID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Registration not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// Clear removes registrations in bulk, limited to one channel when a
// channel_id query parameter is given.
func (h *RegistrationHandler) Clear(c *gin.Context) {
	guildID := c.Param("guildID")

	var deleted int
	var err error
	if channelID := c.Query("channel_id"); channelID != "" {
		deleted, err = h.store.ClearRegistrationsByChannel(c.Request.Context(), guildID, channelID)
	} else {
		deleted, err = h.store.ClearAllRegistrations(c.Request.Context(), guildID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func validateScheduleTimes(times []string) error {
	if len(times) == 0 {
		return errors.New("schedule_times must not be empty")
	}
	for _, t := range times {
		hour, minute, ok := parseScheduleTime(t)
		if !ok {
			return fmt.Errorf("invalid schedule time %q (expected HH:MM)", t)
		}
		if hour > 23 || minute > 59 {
			return fmt.Errorf("schedule time %q out of range", t)
		}
	}
	return nil
}

// parseScheduleTime accepts only digits around a single colon, so trailing
// garbage is rejected rather than truncated.
func parseScheduleTime(t string) (hour, minute int, ok bool) {
	parts := strings.Split(t, ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	for _, part := range parts {
		if part == "" {
			return 0, 0, false
		}
		for _, r := range part {
			if r < '0' || r > '9' {
				return 0, 0, false
			}
		}
	}
	hour, _ = strconv.Atoi(parts[0])
	minute, _ = strconv.Atoi(parts[1])
	return hour, minute, true
}
