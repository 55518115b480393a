package bot

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tandem/pkg/logger"
	"tandem/service"
)

// NewRouter serves the public ride listing, a health check and the prometheus metrics.
func NewRouter(svc service.IServiceManager, log logger.ILogger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/rides", func(c *gin.Context) {
			res := svc.PublicRides(c.Request.Context())
			body := gin.H{
				"source": res.Source,
				"rides":  res.Rides,
			}
			if res.Err != nil {
				log.Warning("public ride listing degraded", logger.String("source", string(res.Source)), logger.Error(res.Err))
				body["error"] = res.Err.Error()
			}
			c.Header("X-Rides-Source", string(res.Source))
			c.JSON(http.StatusOK, body)
		})
	}

	return r
}

func NewServer(port int, svc service.IServiceManager, log logger.ILogger) *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: NewRouter(svc, log),
	}
}
