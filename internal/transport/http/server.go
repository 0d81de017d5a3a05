package http

import (
	"context"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/babyboom-server/internal/config"
	"github.com/vovakirdan/babyboom-server/internal/core"
	"github.com/vovakirdan/babyboom-server/internal/store"
)

// Coordinator is the part of the hub the transport layer talks to.
type Coordinator interface {
	RegisterClient(c *core.Client)
	UnregisterClient(c *core.Client)
	Stats(ctx context.Context) (core.Stats, error)
}

// ReportReader is the read side of the report store. It may be nil, in
// which case the report routes are not mounted.
type ReportReader interface {
	CountReports(ctx context.Context) (int64, error)
	ListReports(ctx context.Context, limit int) ([]*store.Report, error)
	GetReport(ctx context.Context, id int64) (*store.Report, error)
}

// NewServer builds an HTTP server with the health, stats, reports and websocket routes.
func NewServer(hub Coordinator, reports ReportReader, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	stats := NewStatsHandlers(hub, reports, logger)
	api := router.Group("/api")
	api.GET("/stats", stats.GetStats)

	if reports != nil {
		reportHandlers := NewReportHandlers(reports, logger)
		api.GET("/reports", reportHandlers.ListReports)
		api.GET("/reports/:id", reportHandlers.GetReport)
	}

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, cfg, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
