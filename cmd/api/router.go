package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"assistant-backend/pkg/config"
)

func SetupRoutes(r *gin.Engine, handler *Handler, cfg *config.Config) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy", "environment": cfg.Environment})
		})

		api.POST("/chat", handler.Chat)
		api.GET("/history/:userId", handler.GetHistory)
		api.DELETE("/session/:userId", handler.ClearSession)

		// Destructive administrative surface
		memory := api.Group("/memory")
		memory.Use(AdminMiddleware(cfg.AdminJWTSecret))
		{
			memory.DELETE("/:userId", handler.WipeUserMemory)
			memory.DELETE("", handler.WipeAllMemory)
		}
	}
}
