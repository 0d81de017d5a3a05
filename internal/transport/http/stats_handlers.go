package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// StatsHandlers serves coordinator counters.
type StatsHandlers struct {
	hub     Coordinator
	reports ReportReader
	log     *zerolog.Logger
}

// NewStatsHandlers creates a new stats handlers instance.
func NewStatsHandlers(hub Coordinator, reports ReportReader, logger *zerolog.Logger) *StatsHandlers {
	return &StatsHandlers{hub: hub, reports: reports, log: logger}
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	Online   int   `json:"online"`
	Waiting  int   `json:"waiting"`
	Sessions int   `json:"sessions"`
	Reports  int64 `json:"reports"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// GetStats returns presence, queue and session counters.
// GET /api/stats
func (h *StatsHandlers) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	st, err := h.hub.Stats(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("hub stats unavailable")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "coordinator unavailable"})
		return
	}

	resp := StatsResponse{
		Online:   st.Online,
		Waiting:  st.Waiting,
		Sessions: st.Sessions,
	}
	if h.reports != nil {
		n, err := h.reports.CountReports(ctx)
		if err != nil {
			h.log.Error().Err(err).Msg("count reports")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to count reports"})
			return
		}
		resp.Reports = n
	}

	c.JSON(http.StatusOK, resp)
}
