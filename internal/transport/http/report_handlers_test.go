package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/vovakirdan/babyboom-server/internal/store"
)

func seedReports(t *testing.T, st store.ReportStore, n int) []int64 {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ids := make([]int64, 0, n)
	for i := range n {
		r := &store.Report{
			SessionID:  fmt.Sprintf("room-a%d-b%d", i, i),
			ReporterID: fmt.Sprintf("b%d", i),
			ReportedID: fmt.Sprintf("a%d", i),
			Reason:     "spam",
		}
		if err := st.SaveReport(ctx, r); err != nil {
			t.Fatalf("seed report: %v", err)
		}
		ids = append(ids, r.ID)
	}
	return ids
}

func TestListReportsNewestFirst(t *testing.T) {
	st := createTestStore(t)
	ids := seedReports(t, st, 3)
	ts := startTestServer(t, testConfig(), st)

	resp, err := ts.Client().Get(ts.URL + "/api/reports?limit=2")
	if err != nil {
		t.Fatalf("list request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	var got []ReportResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode reports: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(got))
	}
	if got[0].ID != ids[2] || got[1].ID != ids[1] {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].ReportedID != "a2" || got[0].Reason != "spam" {
		t.Fatalf("unexpected report body: %+v", got[0])
	}
}

func TestListReportsRejectsBadLimit(t *testing.T) {
	st := createTestStore(t)
	ts := startTestServer(t, testConfig(), st)

	resp, err := ts.Client().Get(ts.URL + "/api/reports?limit=zero")
	if err != nil {
		t.Fatalf("list request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetReport(t *testing.T) {
	st := createTestStore(t)
	ids := seedReports(t, st, 1)
	ts := startTestServer(t, testConfig(), st)

	cases := []struct {
		path   string
		status int
	}{
		{fmt.Sprintf("/api/reports/%d", ids[0]), http.StatusOK},
		{"/api/reports/999", http.StatusNotFound},
		{"/api/reports/abc", http.StatusBadRequest},
	}
	for _, tc := range cases {
		resp, err := ts.Client().Get(ts.URL + tc.path)
		if err != nil {
			t.Fatalf("%s: request failed: %v", tc.path, err)
		}
		if resp.StatusCode != tc.status {
			resp.Body.Close()
			t.Fatalf("%s: expected %d, got %d", tc.path, tc.status, resp.StatusCode)
		}
		if tc.status == http.StatusOK {
			var got ReportResponse
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatalf("decode report: %v", err)
			}
			if got.ID != ids[0] || got.SessionID != "room-a0-b0" {
				t.Fatalf("unexpected report: %+v", got)
			}
		}
		resp.Body.Close()
	}
}
