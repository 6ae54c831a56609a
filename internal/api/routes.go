package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cartoonclub-backend-go/internal/middleware"
)

// SetupRoutes configures all application routes. Global middleware (logging,
// recovery, CORS) is applied to the router before this is called, in main.
func SetupRoutes(
	router *gin.Engine,
	logger *zap.Logger,
	authMW *middleware.AuthMiddleware,
	reportHandler *ReportHandler,
	playbackHandler *PlaybackHandler,
	packageHandler *PackageHandler,
) {
	apiV1 := router.Group("/api/v1")
	{
		reportsGroup := apiV1.Group("/reports", authMW.VerifyToken())
		{
			reportsGroup.GET("/summary", reportHandler.GetSummary)
			reportsGroup.GET("/monthly", reportHandler.GetMonthlyReports)

			// Recalculation rewrites every summary document; admins only.
			reportsGroup.POST("/recalculate", authMW.RequireAdmin(), reportHandler.Recalculate)
		}

		playbackGroup := apiV1.Group("/playback", authMW.VerifyToken())
		{
			playbackGroup.POST("/heartbeat", playbackHandler.Heartbeat)
			playbackGroup.POST("/complete", playbackHandler.Complete)
		}

		contentGroup := apiV1.Group("/content", authMW.VerifyToken())
		{
			contentGroup.POST("/:contentId/follow", playbackHandler.Follow)
			contentGroup.DELETE("/:contentId/follow", playbackHandler.Unfollow)
		}

		apiV1.GET("/packages", packageHandler.ListPackages)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})

	logger.Info("API routes configured under /api/v1 and /health")
}
