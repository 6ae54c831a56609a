package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cartoonclub-backend-go/internal/core"
	"cartoonclub-backend-go/internal/db"
	"cartoonclub-backend-go/pkg/cache"
)

// ReportHandler serves the derived report documents and the manual
// recalculation endpoint.
type ReportHandler struct {
	reports    db.ReportRepository
	aggregator core.AggregationRunner
	cache      cache.Cache // optional
	logger     *zap.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports db.ReportRepository, aggregator core.AggregationRunner, summaryCache cache.Cache, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, aggregator: aggregator, cache: summaryCache, logger: logger}
}

// GetSummary handles GET /api/v1/reports/summary. Reads through the cache
// when one is configured; a summary that was never computed is a 404.
func (h *ReportHandler) GetSummary(c *gin.Context) {
	if h.cache != nil {
		cached, err := h.cache.Get(c.Request.Context(), core.SummaryCacheKey)
		if err == nil && cached != "" {
			c.Data(http.StatusOK, "application/json", []byte(cached))
			return
		}
	}

	summary, err := h.reports.MainSummary(c.Request.Context())
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			// The store is authoritative: a deleted or never-written summary
			// must not keep serving from a leftover cache entry.
			if h.cache != nil {
				_ = h.cache.Delete(c.Request.Context(), core.SummaryCacheKey)
			}
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Summary has not been generated yet"})
			return
		}
		h.logger.Error("Failed to load main summary", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load summary"})
		return
	}

	if h.cache != nil {
		if body, merr := json.Marshal(summary); merr == nil {
			_ = h.cache.Set(c.Request.Context(), core.SummaryCacheKey, body, core.SummaryCacheTTL)
		}
	}
	c.JSON(http.StatusOK, summary)
}

// GetMonthlyReports handles GET /api/v1/reports/monthly?months=N (default 12,
// capped at 24). Months with no document are simply absent from the result.
func (h *ReportHandler) GetMonthlyReports(c *gin.Context) {
	months := 12
	if raw := c.Query("months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "months must be a positive integer"})
			return
		}
		if n > 24 {
			n = 24
		}
		months = n
	}

	reports, err := h.reports.MonthlyReports(c.Request.Context(), time.Now().UTC(), months)
	if err != nil {
		h.logger.Error("Failed to load monthly reports", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load monthly reports"})
		return
	}
	c.JSON(http.StatusOK, reports)
}

// Recalculate handles POST /api/v1/reports/recalculate (admin only). Runs a
// full aggregation synchronously. If a run is already executing the request
// is queued by the aggregator and a 409 tells the caller fresh numbers are
// on the way.
func (h *ReportHandler) Recalculate(c *gin.Context) {
	result, err := h.aggregator.Run(c.Request.Context(), core.TriggerManual)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrRunInProgress):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error: "A recalculation is already in progress; a follow-up run has been queued",
			})
		case errors.Is(err, core.ErrClosed):
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Service is shutting down"})
		default:
			var loadErr *core.SnapshotLoadError
			if errors.As(err, &loadErr) {
				c.JSON(http.StatusBadGateway, ErrorResponse{
					Error:   "Failed to read source data; existing reports were left untouched",
					Details: loadErr.Error(),
				})
				return
			}
			h.logger.Error("Manual recalculation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Recalculation failed", Details: err.Error()})
		}
		return
	}

	resp := RecalculateResponse{Message: "Reports recalculated", Degraded: result.Degraded, PartialErrors: result.PartialErrors}
	if result.Degraded {
		resp.Message = "Reports recalculated with partial data"
	}
	c.JSON(http.StatusOK, resp)
}
