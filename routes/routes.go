package routes

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"triviad/handlers"
	"triviad/middleware"
	"triviad/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	regHandler *handlers.RegistrationHandler,
	gameHandler *handlers.GameHandler,
	hub *services.Hub,
	jwtSecret string,
) {
	api := router.Group("/api")
	{
		// Auth routes (public)
		api.POST("/auth/login", authHandler.Login)

		// Admin routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(jwtSecret))
		{
			regs := protected.Group("/guilds/:guildID/registrations")
			{
				regs.GET("", regHandler.List)
				regs.POST("", regHandler.Create)
				regs.POST("/:regID/enable", regHandler.SetEnabled(true))
				regs.POST("/:regID/disable", regHandler.SetEnabled(false))
				regs.DELETE("/:regID", regHandler.Delete)
				regs.DELETE("", regHandler.Clear)
			}

			protected.POST("/guilds/:guildID/games", gameHandler.PostGame)
			protected.DELETE("/guilds/:guildID/games/:gameID", gameHandler.CancelGame)
			protected.DELETE("/guilds/:guildID/stats", gameHandler.ClearStats)
		}

		// Public game routes
		guilds := api.Group("/guilds/:guildID")
		{
			guilds.GET("/games", gameHandler.ListActive)
			guilds.POST("/games/:gameID/answer", gameHandler.SubmitAnswer)
			guilds.GET("/history", gameHandler.History)
			guilds.GET("/leaderboard", gameHandler.Leaderboard)
			guilds.GET("/stats/:userID", gameHandler.UserStats)
		}
	}

	// WebSocket endpoint for live game and result events
	router.GET("/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
			return
		}
		hub.RegisterClient(conn)
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
