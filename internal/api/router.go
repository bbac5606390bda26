// Package api serves stored records, search and saved triggers over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketsynth/internal/metrics"
	"marketsynth/internal/model"
	"marketsynth/internal/query"
)

// Deps are the collaborators behind the routes. Health and Gatherer may be nil.
type Deps struct {
	Records       model.RecordReader
	Triggers      model.TriggerStore
	Fields        query.Fieldset
	Health        *metrics.HealthStatus
	RedisRequired bool
	Gatherer      prometheus.Gatherer

	// Now and NewID default to time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewRouter wires the HTTP surface.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	h := newHandler(d)
	api := r.Group("/api")
	{
		api.GET("/health", h.health)
		api.GET("/symbols", h.symbols)
		api.GET("/stocks", h.stocks)
		api.POST("/search", h.search)

		api.GET("/triggers", h.listTriggers)
		api.POST("/triggers", h.createTrigger)
		api.PUT("/triggers/:id", h.updateTrigger)
		api.DELETE("/triggers/:id", h.deleteTrigger)
		api.DELETE("/triggers", h.deleteTrigger)
	}

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

func fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		slog.Error("http handler failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
