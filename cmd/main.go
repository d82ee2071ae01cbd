package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/koladetyk/tabithaAI-backend-sub000/internal/db"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/evidence"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/handlers"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/logger"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/middleware"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/repos"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/server"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/services"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/storage"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/utils"
)

func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	userRepo := repos.NewUserRepo(thePG, log)
	reportRepo := repos.NewReportRepo(thePG, log)
	evidenceRepo := repos.NewEvidenceRepo(thePG, log)

	// Object store + resolver
	log.Info("Setting up object store...")
	objectStore, err := storage.NewGCSStore(log)
	if err != nil {
		log.Error("Could not init object store", "error", err)
		os.Exit(1)
	}
	resolver := evidence.NewResolver(log, objectStore)

	// Collaborators
	analyzer := services.NewAIAnalyzer(log)
	notifier, err := services.NewRedisNotifier(log)
	if err != nil {
		log.Warn("Redis notifier unavailable, notifications disabled", "error", err)
		notifier = services.NewNoopNotifier(log)
	}
	defer notifier.Close()

	// Services
	log.Info("Setting up services...")
	evidenceService := services.NewEvidenceService(log, objectStore, resolver, reportRepo, evidenceRepo, analyzer, notifier)
	reportService := services.NewReportService(log, objectStore, resolver, reportRepo, evidenceRepo, evidenceService, analyzer, notifier)

	// Handlers + middleware
	log.Info("Setting up handlers...")
	reportHandler := handlers.NewReportHandler(log, reportService)
	evidenceHandler := handlers.NewEvidenceHandler(log, evidenceService)
	authMiddleware := middleware.NewAuthMiddleware(log, userRepo)

	// Router
	var origins []string
	if raw := utils.GetEnv("CORS_ALLOW_ORIGINS", "", log); raw != "" {
		origins = strings.Split(raw, ",")
	}
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:  authMiddleware,
		ReportHandler:   reportHandler,
		EvidenceHandler: evidenceHandler,
		AllowOrigins:    origins,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
