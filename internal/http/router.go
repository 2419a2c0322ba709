package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/shiftpulse/backend/internal/config"
	"github.com/shiftpulse/backend/internal/db"
	"github.com/shiftpulse/backend/internal/http/handlers"
	"github.com/shiftpulse/backend/internal/http/middleware"
	"github.com/shiftpulse/backend/internal/service"

	_ "github.com/shiftpulse/backend/docs"
)

func Router(cfg config.Config, store *db.Store, processor *service.ProcessingService, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.MaxMultipartMemory = cfg.MaxUploadSizeMB << 20

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
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
		Store:      store,
		Processor:  processor,
		Validator:  validator.New(),
		Logger:     logger,
		AdminKey:   cfg.AdminKey,
		Restaurant: cfg.Restaurant,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/timeslots", h.TimeslotsList)
		api.GET("/orders", h.OrdersList)
		api.GET("/patterns", h.PatternsList)
		api.GET("/runs/latest", h.RunsLatest)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/import", h.Import)
		admin.POST("/process", h.Process)
		admin.POST("/orders/:id/reclassify", h.Reclassify)
		admin.GET("/debug/categorize", h.DebugCategorize)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
