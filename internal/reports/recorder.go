package reports

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/rs/zerolog"
	"github.com/vovakirdan/babyboom-server/internal/core"
	"github.com/vovakirdan/babyboom-server/internal/store"
)

const saveTimeout = 5 * time.Second

// Recorder persists reports off the hub goroutine.
type Recorder struct {
	store   store.ReportStore
	pool    *workerpool.WorkerPool
	log     zerolog.Logger
	dropped atomic.Int64

	// mu orders Submit against Close; the pool panics on Submit after StopWait.
	mu     sync.Mutex
	closed bool
}

var _ core.ReportSink = (*Recorder)(nil)

// NewRecorder starts a pool of workers writing reports to st.
func NewRecorder(st store.ReportStore, workers int, logger *zerolog.Logger) *Recorder {
	if workers <= 0 {
		workers = 1
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "reports").Logger()
	}
	return &Recorder{
		store: st,
		pool:  workerpool.New(workers),
		log:   l,
	}
}

// Record queues a report for persistence. It never blocks, and reports
// arriving after Close are counted as dropped.
func (r *Recorder) Record(rep core.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.dropped.Add(1)
		r.log.Warn().Str("session_id", rep.SessionID).Msg("recorder stopped, report dropped")
		return
	}

	row := &store.Report{
		SessionID:  rep.SessionID,
		ReporterID: rep.ReporterID,
		ReportedID: rep.ReportedID,
		Reason:     rep.Reason,
		CreatedAt:  rep.CreatedAt,
	}
	r.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()

		if err := r.store.SaveReport(ctx, row); err != nil {
			r.dropped.Add(1)
			r.log.Error().Err(err).Str("session_id", row.SessionID).Msg("save report")
			return
		}
		r.log.Info().
			Int64("report_id", row.ID).
			Str("session_id", row.SessionID).
			Str("reported_id", row.ReportedID).
			Msg("report saved")
	})
}

// Dropped returns how many reports failed to persist.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close waits for queued reports to be written. It is safe to call more
// than once.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.pool.StopWait()
}
