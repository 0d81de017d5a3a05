package core

import (
	"context"
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// countEvents drains ch for the given window and counts events of kind.
func countEvents(ch <-chan *Event, kind EventKind, window time.Duration) int {
	n := 0
	timeout := time.After(window)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return n
			}
			if ev != nil && ev.Kind == kind {
				n++
			}
		case <-timeout:
			return n
		}
	}
}

func startHub(t *testing.T, reports ReportSink) *Hub {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	hub := NewHub(reports, nil)
	go hub.Run(ctx)
	return hub
}

func connect(t *testing.T, hub *Hub, id string) *Client {
	t.Helper()

	c := NewClient(id, 64)
	hub.RegisterClient(c)
	mustEvent(t, c.Events, EventConnected)
	return c
}

type recordingSink struct {
	reports chan Report
}

func newRecordingSink() *recordingSink {
	return &recordingSink{reports: make(chan Report, 8)}
}

func (r *recordingSink) Record(report Report) {
	r.reports <- report
}
