package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/clinrecord-backend/internal/handlers"
)

type RouterConfig struct {
	ExtractHandler *handlers.ExtractHandler
	RunsHandler    *handlers.RunsHandler
	TracingEnabled bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware("clinrecord"))
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	v1 := router.Group("/v1")
	{
		v1.POST("/extract", cfg.ExtractHandler.Extract)
		if cfg.RunsHandler != nil {
			v1.GET("/runs", cfg.RunsHandler.List)
			v1.GET("/runs/:id", cfg.RunsHandler.Get)
		}
	}

	return router
}
