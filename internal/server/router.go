package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/koladetyk/tabithaAI-backend-sub000/internal/handlers"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware  *middleware.AuthMiddleware
	ReportHandler   *handlers.ReportHandler
	EvidenceHandler *handlers.EvidenceHandler
	AllowOrigins    []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api/v1")

	// Report submission is open to guests; a valid token still attaches the
	// submitter so the report has an owner.
	api.POST("/reports", cfg.AuthMiddleware.OptionalAuth(), cfg.ReportHandler.CreateReport)

	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	{
		protected.GET("/reports", cfg.ReportHandler.ListReports)
		protected.GET("/reports/:reportId", cfg.ReportHandler.GetReport)
		protected.DELETE("/reports/:reportId", cfg.ReportHandler.DeleteReport)

		protected.POST("/reports/:reportId/evidence", cfg.EvidenceHandler.AddEvidence)
		protected.GET("/reports/:reportId/evidence", cfg.EvidenceHandler.ListForReport)
		protected.GET("/evidence/:id", cfg.EvidenceHandler.GetByID)
		protected.GET("/evidence/:id/url", cfg.EvidenceHandler.GetDirectURL)
		protected.PATCH("/evidence/:id", cfg.EvidenceHandler.UpdateDescription)
		protected.DELETE("/evidence/:id", cfg.EvidenceHandler.Delete)
	}

	return router
}
