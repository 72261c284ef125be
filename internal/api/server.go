// Package api exposes connection management, schema inspection and
// anonymization previews over HTTP.
package api

import (
	"net/http"
	"time"

	"dbmask/pkg/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(h *Handler, cfg config.ServerConfig, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(logger))

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	corsCfg.AddAllowHeaders(sessionHeader, requestIDHeader)
	corsCfg.AddExposeHeaders(requestIDHeader)
	router.Use(cors.New(corsCfg))

	RegisterRoutes(router, h)
	return router
}

func RegisterRoutes(router *gin.Engine, h *Handler) {
	router.GET("/health", h.Health)

	api := router.Group("/api")
	{
		db := api.Group("/db")
		db.POST("/connect", h.Connect)
		db.POST("/disconnect", h.Disconnect)
		db.GET("/status", h.Status)
		db.GET("/schema", h.Schema)

		api.POST("/anonymize/preview", h.Preview)
	}
}

func NewServer(router *gin.Engine, cfg config.ServerConfig) *http.Server {
	writeTimeout := 30 * time.Second
	if cfg.QueryTimeout > 0 {
		writeTimeout = cfg.QueryTimeout + 5*time.Second
	}
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: writeTimeout,
	}
}
