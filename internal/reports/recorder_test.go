package reports

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vovakirdan/babyboom-server/internal/core"
	"github.com/vovakirdan/babyboom-server/internal/store"
)

type memStore struct {
	mu      sync.Mutex
	reports []*store.Report
	failErr error
}

func (m *memStore) SaveReport(_ context.Context, r *store.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	r.ID = int64(len(m.reports) + 1)
	m.reports = append(m.reports, r)
	return nil
}

func (m *memStore) GetReport(_ context.Context, id int64) (*store.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id <= 0 || int(id) > len(m.reports) {
		return nil, store.ErrNotFound
	}
	return m.reports[id-1], nil
}

func (m *memStore) ListReports(_ context.Context, _ int) ([]*store.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*store.Report(nil), m.reports...), nil
}

func (m *memStore) CountReports(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.reports)), nil
}

func (m *memStore) Close() error { return nil }

func TestRecorderPersistsReports(t *testing.T) {
	st := &memStore{}
	rec := NewRecorder(st, 2, nil)

	rec.Record(core.Report{SessionID: "room-a-b", ReporterID: "b", ReportedID: "a", Reason: "rude", CreatedAt: time.Now()})
	rec.Record(core.Report{SessionID: "room-c-d", ReporterID: "c", ReportedID: "d", Reason: "spam", CreatedAt: time.Now()})
	rec.Close()

	n, err := st.CountReports(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Zero(t, rec.Dropped())
}

func TestRecorderCountsFailures(t *testing.T) {
	st := &memStore{failErr: errors.New("disk full")}
	rec := NewRecorder(st, 1, nil)

	rec.Record(core.Report{SessionID: "room-a-b", ReporterID: "b", ReportedID: "a"})
	rec.Close()

	assert.Equal(t, int64(1), rec.Dropped())
}

func TestRecorderAfterCloseDrops(t *testing.T) {
	st := &memStore{}
	rec := NewRecorder(st, 1, nil)
	rec.Close()

	rec.Record(core.Report{SessionID: "room-a-b", ReporterID: "b", ReportedID: "a"})

	assert.Equal(t, int64(1), rec.Dropped())
	n, _ := st.CountReports(context.Background())
	assert.Zero(t, n)
}

func TestRecorderRecordRacingClose(t *testing.T) {
	for range 200 {
		st := &memStore{}
		rec := NewRecorder(st, 2, nil)

		var wg sync.WaitGroup
		for i := range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 20 {
					rec.Record(core.Report{SessionID: "room-a-b", ReporterID: "b", ReportedID: "a", Reason: strconv.Itoa(i)})
				}
			}()
		}
		rec.Close()
		wg.Wait()
		rec.Close()

		n, err := st.CountReports(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(80), n+rec.Dropped())
	}
}
