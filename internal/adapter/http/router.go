package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hykura1501/e-commerce/internal/adapter/http/middleware"
	"github.com/hykura1501/e-commerce/internal/adapter/observ"
	"github.com/hykura1501/e-commerce/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *CartHandler, authn *middleware.Authn, m *observ.Metrics, gatherer prometheus.Gatherer, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics(m), middleware.Logging(log))

	r.GET("/healthz", func(c *gin.Context) {
		logging.From(c).Debug("health check")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1", middleware.Session(), authn.Optional())
	h.Register(v1)
	return r
}
