package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/clinrecord-backend/internal/clients/openai"
	redisclient "github.com/yungbote/clinrecord-backend/internal/clients/redis"
	"github.com/yungbote/clinrecord-backend/internal/db"
	"github.com/yungbote/clinrecord-backend/internal/extraction/llm"
	"github.com/yungbote/clinrecord-backend/internal/extraction/merge"
	"github.com/yungbote/clinrecord-backend/internal/handlers"
	"github.com/yungbote/clinrecord-backend/internal/learned"
	"github.com/yungbote/clinrecord-backend/internal/observability"
	"github.com/yungbote/clinrecord-backend/internal/orchestrator"
	"github.com/yungbote/clinrecord-backend/internal/pkg/logger"
	"github.com/yungbote/clinrecord-backend/internal/repos"
	"github.com/yungbote/clinrecord-backend/internal/server"
	"github.com/yungbote/clinrecord-backend/internal/utils"
)

func main() {
	// Logger
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

	ctx := context.Background()

	// Tracing
	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "clinrecord",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	if shutdownOTel != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownOTel(shutdownCtx); err != nil {
				log.Warn("otel shutdown failed", "error", err)
			}
		}()
	}

	// DB
	dbService, err := db.NewService(log)
	if err != nil {
		log.Fatal("DB init failed", "error", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Fatal("Auto migration failed", "error", err)
	}
	conn := dbService.DB()

	// Repos
	log.Info("Setting up repos from main...")
	runRepo := repos.NewExtractionRunRepo(conn, log)

	// LLM adapter. Missing credentials degrade the pipeline to
	// pattern-only extraction rather than refusing to start.
	var adapter llm.Extractor
	if client, err := openai.NewClient(log); err != nil {
		log.Warn("OpenAI client unavailable, running pattern-only", "error", err)
	} else {
		adapter = llm.NewAdapter(log, client)
	}

	// Learned patterns, refreshed from Redis in the background.
	var store *learned.Store
	if source, err := redisclient.NewPatternSource(log); err != nil {
		log.Warn("Redis pattern source unavailable, refinement uses built-in rules only", "error", err)
	} else {
		store = learned.NewStore(log, source)
		store.Refresh(ctx)
		refreshSeconds := utils.GetEnvAsInt("LEARNED_PATTERN_REFRESH_SECONDS", 300, log)
		go func() {
			ticker := time.NewTicker(time.Duration(refreshSeconds) * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				store.Refresh(ctx)
			}
		}()
	}

	// Merge priority overrides ship as data.
	priority := merge.DefaultPriorityTable()
	if path := utils.GetEnv("MERGE_PRIORITY_PATH", "", log); path != "" {
		loaded, err := merge.LoadPriorityTable(path)
		if err != nil {
			log.Warn("priority table load failed, using defaults", "path", path, "error", err)
		} else {
			priority = loaded
		}
	}

	// Orchestrator
	log.Info("Setting up services from main...")
	service := orchestrator.NewService(orchestrator.Deps{
		Log:      log,
		Adapter:  adapter,
		Learned:  store,
		Priority: priority,
	})

	// Handlers
	extractHandler := handlers.NewExtractHandler(log, service, runRepo)
	runsHandler := handlers.NewRunsHandler(log, runRepo)

	// Router
	router := server.NewRouter(server.RouterConfig{
		ExtractHandler: extractHandler,
		RunsHandler:    runsHandler,
		TracingEnabled: shutdownOTel != nil,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Starting server...", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
