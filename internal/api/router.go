package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Skufu/fisioplan/internal/logging"
	"github.com/Skufu/fisioplan/internal/recommend"
	"github.com/Skufu/fisioplan/internal/store"
)

const maxBodyBytes = 1 << 20 // 1MB

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RecommendationStore persists plans against a patient record.
type RecommendationStore interface {
	HealthChecker
	Save(ctx context.Context, patientID string, profile recommend.PatientProfile, rec recommend.TreatmentRecommendation) (store.Record, error)
	ListByPatient(ctx context.Context, patientID string, limit int) ([]store.Record, error)
}

// RecommendationCache short-circuits generation for repeated profiles.
type RecommendationCache interface {
	HealthChecker
	Get(ctx context.Context, profile recommend.PatientProfile) (recommend.TreatmentRecommendation, bool, error)
	Set(ctx context.Context, profile recommend.PatientProfile, rec recommend.TreatmentRecommendation) error
}

// Deps are the collaborators of the router. Store and Cache may be nil.
type Deps struct {
	Engine      *recommend.Engine
	Store       RecommendationStore
	Cache       RecommendationCache
	CORSOrigins []string
}

func NewRouter(deps Deps) *gin.Engine {
	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(
		logging.Middleware(),
		gin.Recovery(),
		limitBodySize(maxBodyBytes),
		cors.New(cors.Config{
			AllowOrigins: origins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}),
	)

	h := &handler{engine: deps.Engine, store: deps.Store, cache: deps.Cache}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", h.readyz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := router.Group("/api")
	apiGroup.POST("/recommendations", h.createRecommendation)
	apiGroup.GET("/patients/:id/recommendations", h.listRecommendations)
	apiGroup.GET("/knowledge", h.knowledge)

	return router
}

func (h *handler) readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{"status": "ok", "db": "disabled", "cache": "disabled"}
	healthy := true

	if h.store != nil {
		body["db"] = "ok"
		if err := h.store.Ping(ctx); err != nil {
			body["db"] = fmt.Sprintf("unhealthy: %v", err)
			healthy = false
		}
	}
	if h.cache != nil {
		body["cache"] = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			body["cache"] = fmt.Sprintf("unhealthy: %v", err)
			healthy = false
		}
	}

	if !healthy {
		body["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
