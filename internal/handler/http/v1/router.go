package v1

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	"github.com/shenikar/ecowatch_reports/internal/config"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/shenikar/ecowatch_reports/docs"
)

// RegisterRoutes регистрирует все маршруты API
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Приём отчётов об инцидентах
	api.POST("/report", h.submitReport)

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}

// NewRouter собирает gin engine: recovery, логирование, CORS, статика, swagger и API
func NewRouter(h *Handler, cfg *config.Config, log *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))
	router.Use(cors.New(corsConfig(cfg.CORSAllowOrigins)))

	if cfg.StaticRoot != "" {
		router.Use(static.Serve("/", static.LocalFile(cfg.StaticRoot, true)))
	}

	api := router.Group("/api")
	h.RegisterRoutes(api)

	// Добавление маршрута для Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length", reportIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
