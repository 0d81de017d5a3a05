package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Report is a persisted abuse report filed by one session member against the other.
type Report struct {
	ID         int64
	SessionID  string
	ReporterID string
	ReportedID string
	Reason     string
	CreatedAt  time.Time
}

// ReportStore handles report persistence.
type ReportStore interface {
	// SaveReport persists a report and fills in its ID.
	SaveReport(ctx context.Context, r *Report) error

	// GetReport retrieves a report by ID.
	GetReport(ctx context.Context, id int64) (*Report, error)

	// ListReports returns the most recent reports, newest first.
	ListReports(ctx context.Context, limit int) ([]*Report, error)

	// CountReports returns the number of stored reports.
	CountReports(ctx context.Context) (int64, error)

	// Close closes the underlying database connection.
	Close() error
}
