package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-teacher-portal/internal/middleware"
	"github.com/noah-isme/sma-teacher-portal/internal/service"
	"github.com/noah-isme/sma-teacher-portal/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-teacher-portal/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-teacher-portal/pkg/middleware/requestid"
)

// RouterConfig carries everything the API router mounts.
type RouterConfig struct {
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	AllowedOrigins []string
	EnableDocs     bool

	EBooks *EBookHandler
	Grades *GradeHandler
	Probes *MetricsHandler
}

// NewRouter builds the API engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))

	probes := cfg.Probes
	if probes == nil {
		probes = NewMetricsHandler(cfg.Metrics, nil)
	}
	r.GET("/health", probes.Health)
	r.GET("/ready", probes.Ready)
	r.GET("/metrics", probes.Prometheus)

	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if cfg.EBooks != nil {
		ebooks := r.Group("/api/ebooks")
		ebooks.GET("", cfg.EBooks.List)
		ebooks.POST("", cfg.EBooks.Create)
		ebooks.PUT("/:id", cfg.EBooks.Update)
		ebooks.DELETE("/:id", cfg.EBooks.Delete)
		ebooks.GET("/:id/download", cfg.EBooks.Download)
	}

	if cfg.Grades != nil {
		grades := r.Group("/grades")
		grades.GET("/:className", cfg.Grades.ListByClass)
		grades.GET("/:className/export", cfg.Grades.Export)
		grades.POST("", cfg.Grades.Create)
		grades.PUT("/:id", cfg.Grades.Update)
		grades.DELETE("/:id", cfg.Grades.Delete)
	}

	return r
}
