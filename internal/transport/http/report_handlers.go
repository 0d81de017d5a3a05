package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/babyboom-server/internal/store"
)

const (
	defaultReportLimit = 50
	maxReportLimit     = 500
)

// ReportHandlers serves filed reports for moderation.
type ReportHandlers struct {
	reports ReportReader
	log     *zerolog.Logger
}

// NewReportHandlers creates a new report handlers instance.
func NewReportHandlers(reports ReportReader, logger *zerolog.Logger) *ReportHandlers {
	return &ReportHandlers{reports: reports, log: logger}
}

// ReportResponse represents a report in API responses.
type ReportResponse struct {
	ID         int64  `json:"id"`
	SessionID  string `json:"session_id"`
	ReporterID string `json:"reporter_id"`
	ReportedID string `json:"reported_id"`
	Reason     string `json:"reason,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func reportToResponse(r *store.Report) ReportResponse {
	return ReportResponse{
		ID:         r.ID,
		SessionID:  r.SessionID,
		ReporterID: r.ReporterID,
		ReportedID: r.ReportedID,
		Reason:     r.Reason,
		CreatedAt:  r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ListReports returns the most recent reports, newest first.
// GET /api/reports?limit=N
func (h *ReportHandlers) ListReports(c *gin.Context) {
	limit := defaultReportLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = min(n, maxReportLimit)
	}

	reports, err := h.reports.ListReports(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("list reports")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list reports"})
		return
	}

	c.JSON(http.StatusOK, lo.Map(reports, func(r *store.Report, _ int) ReportResponse {
		return reportToResponse(r)
	}))
}

// GetReport returns one report by id.
// GET /api/reports/:id
func (h *ReportHandlers) GetReport(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid report id"})
		return
	}

	report, err := h.reports.GetReport(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "report not found"})
			return
		}
		h.log.Error().Err(err).Int64("report_id", id).Msg("get report")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to get report"})
		return
	}

	c.JSON(http.StatusOK, reportToResponse(report))
}
