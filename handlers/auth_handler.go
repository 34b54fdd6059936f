package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	jwtSecret    string
	adminKeyHash string
}

func NewAuthHandler(jwtSecret, adminKeyHash string) *AuthHandler {
	return &AuthHandler{
		jwtSecret:    jwtSecret,
		adminKeyHash: adminKeyHash,
	}
}

type LoginRequest struct {
	Key string `json:"key" binding:"required"`
}

// Login exchanges the admin key for a short-lived JWT used on mutating
// routes.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.adminKeyHash == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Admin access not configured"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.adminKeyHash), []byte(req.Key)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin key"})
		return
	}

	claims := jwt.MapClaims{
		"sub": "admin",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": signed})
}
