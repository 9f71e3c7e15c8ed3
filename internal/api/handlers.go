package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Skufu/fisioplan/internal/metrics"
	"github.com/Skufu/fisioplan/internal/recommend"
	"github.com/Skufu/fisioplan/internal/validation"
)

type handler struct {
	engine *recommend.Engine
	store  RecommendationStore
	cache  RecommendationCache
}

type recommendationRequest struct {
	PatientID string `json:"patientId"`
	recommend.PatientProfile
}

type recommendationResponse struct {
	ID        string `json:"id,omitempty"`
	PatientID string `json:"patientId,omitempty"`
	Cached    bool   `json:"cached"`
	recommend.TreatmentRecommendation
}

func (h *handler) createRecommendation(c *gin.Context) {
	var req recommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.PatientID = strings.TrimSpace(req.PatientID)
	ctx := c.Request.Context()

	// Cache keys and stored records use the profile the plan is computed from.
	profile, err := h.engine.Admit(req.PatientProfile)
	if err != nil {
		var verr *validation.RequestValidationError
		if errors.Is(err, recommend.ErrInvalidProfile) && errors.As(err, &verr) {
			metrics.RecordRejection()
			c.JSON(http.StatusUnprocessableEntity, verr.ToAPIError())
			return
		}
		log.Error().Err(err).Msg("admit patient profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	var (
		rec    recommend.TreatmentRecommendation
		cached bool
	)
	if h.cache != nil {
		hit, ok, err := h.cache.Get(ctx, profile)
		switch {
		case err != nil:
			metrics.RecordCacheLookup(metrics.CacheError)
			log.Warn().Err(err).Msg("recommendation cache lookup failed")
		case ok:
			metrics.RecordCacheLookup(metrics.CacheHit)
			rec, cached = hit, true
		default:
			metrics.RecordCacheLookup(metrics.CacheMiss)
		}
	}

	if !cached {
		start := time.Now()
		generated, err := h.engine.Generate(profile)
		if err != nil {
			log.Error().Err(err).Msg("generate recommendation")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		metrics.RecordRecommendation(generated.Fallback, generated.ConfidenceScore, time.Since(start))
		rec = generated

		if h.cache != nil {
			if err := h.cache.Set(ctx, profile, rec); err != nil {
				log.Warn().Err(err).Msg("recommendation cache store failed")
			}
		}
	}

	log.Info().
		Str("condition", profile.Condition).
		Str("severity", string(profile.Severity)).
		Bool("known_condition", h.engine.IsKnown(profile.Condition)).
		Bool("cached", cached).
		Str("plan", rec.Summary()).
		Msg("recommendation generated")

	resp := recommendationResponse{Cached: cached, TreatmentRecommendation: rec}
	if req.PatientID != "" && h.store != nil {
		record, err := h.store.Save(ctx, req.PatientID, profile, rec)
		if err != nil {
			log.Error().Err(err).Str("patient_id", req.PatientID).Msg("persist recommendation")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist recommendation"})
			return
		}
		resp.ID = record.ID.String()
		resp.PatientID = record.PatientID
	}

	c.JSON(http.StatusOK, resp)
}

func (h *handler) listRecommendations(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence disabled"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	patientID := strings.TrimSpace(c.Param("id"))
	records, err := h.store.ListByPatient(c.Request.Context(), patientID, limit)
	if err != nil {
		log.Error().Err(err).Str("patient_id", patientID).Msg("list recommendations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load recommendations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"patientId": patientID, "recommendations": records})
}

func (h *handler) knowledge(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":     h.engine.Version(),
		"conditions":  h.engine.Conditions(),
		"inputPolicy": h.engine.Policy(),
	})
}
