package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/Rescueaii/rescue-ai-web/internal/ai"
	"github.com/Rescueaii/rescue-ai-web/internal/cases"
	"github.com/Rescueaii/rescue-ai-web/internal/config"
	"github.com/Rescueaii/rescue-ai-web/internal/http/handlers"
	"github.com/Rescueaii/rescue-ai-web/internal/http/middleware"
	"github.com/Rescueaii/rescue-ai-web/internal/realtime"
	"github.com/Rescueaii/rescue-ai-web/internal/service"

	_ "github.com/Rescueaii/rescue-ai-web/docs"
)

func Router(cfg config.Config, svc *cases.Service, pipeline *service.Triage, transcriber ai.Transcriber, hub *realtime.Hub, db handlers.Pinger, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Responder-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Cases:       svc,
		Pipeline:    pipeline,
		Transcriber: transcriber,
		Hub:         hub,
		DB:          db,
		Validator:   validator.New(),
		Logger:      logger,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.POST("/report", h.Report)
		api.POST("/transcribe", h.Transcribe)
		api.GET("/cases", h.ListCases)
		api.GET("/cases/:id", h.GetCase)
		api.GET("/cases/:id/messages", h.ListCaseMessages)
	}

	responder := api.Group("")
	responder.Use(middleware.ResponderKey(cfg.ResponderKey))
	{
		responder.POST("/cases/:id/assign", h.AssignCase)
		responder.POST("/cases/:id/resolve", h.ResolveCase)
		responder.POST("/cases/:id/reopen", h.ReopenCase)
	}

	r.GET("/ws/cases", h.StreamCases)
	r.GET("/ws/cases/:id", h.StreamCase)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
