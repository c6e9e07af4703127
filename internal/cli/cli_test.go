package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/Chronos/internal/domain"
	"github.com/shaiso/Chronos/internal/mq"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestAPI(t *testing.T) (*httptest.Server, *string) {
	t.Helper()
	var lastQuery string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"triggers":         []string{"08:00", "22:00"},
			"timezone":         "UTC",
			"window_seconds":   300,
			"cooldown_seconds": 600,
			"next_trigger":     "22:00",
			"next_trigger_at":  "2026-10-19T22:00:00Z",
			"next_in_seconds":  3600,
		}})
	})
	mux.HandleFunc("GET /api/v1/runs", func(w http.ResponseWriter, r *http.Request) {
		lastQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, map[string]any{
			"data": []map[string]any{{
				"id": "11111111-1111-1111-1111-111111111111", "trigger": "08:00", "mode": "scheduled",
				"status": "FAILED", "exit_code": 1, "attempts": 2, "duration_ms": 1500,
				"created_at": "2026-10-19T08:00:00Z",
			}},
			"total": 1,
		})
	})
	mux.HandleFunc("GET /api/v1/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]string{"code": "NOT_FOUND", "message": "run not found"},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &lastQuery
}

// --- Client Tests ---

func TestClient_ListRuns(t *testing.T) {
	srv, lastQuery := newTestAPI(t)

	runs, err := NewClient(srv.URL).ListRuns(ListRunsOpts{Status: "FAILED", Limit: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 1 || runs[0].Attempts != 2 {
		t.Errorf("unexpected runs %+v", runs)
	}
	if *lastQuery != "limit=5&status=FAILED" {
		t.Errorf("unexpected query %q", *lastQuery)
	}
}

func TestClient_APIError(t *testing.T) {
	srv, _ := newTestAPI(t)

	_, err := NewClient(srv.URL).GetRun("missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Code != "NOT_FOUND" {
		t.Errorf("unexpected error %+v", apiErr)
	}
	if apiErr.Error() != "NOT_FOUND: run not found" {
		t.Errorf("unexpected message %q", apiErr.Error())
	}
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetStatus()
	if err == nil || err.Error() != "API error: HTTP 502" {
		t.Errorf("unexpected error %v", err)
	}
}

// --- Command Tests ---

type cmdFactory func(clientFn func() *Client, outputFn func() *Output) *cobra.Command

func runCmd(t *testing.T, apiURL string, jsonMode bool, build cmdFactory, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	clientFn := func() *Client { return NewClient(apiURL) }
	outputFn := func() *Output { return NewOutputTo(jsonMode, &stdout, &stderr) }

	cmd := build(clientFn, outputFn)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestStatusCmd(t *testing.T) {
	srv, _ := newTestAPI(t)

	stdout, _, err := runCmd(t, srv.URL, false, func(c func() *Client, o func() *Output) *cobra.Command {
		return NewStatusCmd(c, o)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"08:00, 22:00", "5m0s", "22:00 at 2026-10-19T22:00:00Z", "1h0m0s", "last_run"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in output:\n%s", want, stdout)
		}
	}
}

func TestRunsListCmd(t *testing.T) {
	srv, lastQuery := newTestAPI(t)

	stdout, _, err := runCmd(t, srv.URL, false, func(c func() *Client, o func() *Output) *cobra.Command {
		return NewRunsCmd(c, o)
	}, "list", "--status", "failed", "--trigger", "08:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(*lastQuery, "status=FAILED") {
		t.Errorf("status should be upper-cased, query %q", *lastQuery)
	}
	if !strings.Contains(stdout, "FAILED") || !strings.Contains(stdout, "1.5s") {
		t.Errorf("unexpected output:\n%s", stdout)
	}
}

func TestRunsListCmd_JSON(t *testing.T) {
	srv, _ := newTestAPI(t)

	stdout, _, err := runCmd(t, srv.URL, true, func(c func() *Client, o func() *Output) *cobra.Command {
		return NewRunsCmd(c, o)
	}, "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var runs []RunResponse
	if err := json.Unmarshal([]byte(stdout), &runs); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run, got %d", len(runs))
	}
}

func TestScheduleNextCmd(t *testing.T) {
	stdout, stderr, err := runCmd(t, "", false, func(_ func() *Client, o func() *Output) *cobra.Command {
		return NewScheduleCmd(o)
	}, "next", "--tz", "UTC", "--from", "2026-10-19T23:00:00Z", "--count", "3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"2026-10-20 08:00 UTC", "9h0m0s", "2026-10-20 22:00 UTC", "2026-10-21 08:00 UTC"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in output:\n%s", want, stdout)
		}
	}
	if !strings.Contains(stderr, "cron: 0 8,22 * * *") {
		t.Errorf("expected cron equivalent on stderr, got %q", stderr)
	}
}

func TestScheduleNextCmd_Invalid(t *testing.T) {
	for _, args := range [][]string{
		{"next", "--times", "25:00"},
		{"next", "--times", "08:00,08:00"},
		{"next", "--cron", "0 8 * * 1"},
		{"next", "--tz", "Nowhere/Land"},
	} {
		_, _, err := runCmd(t, "", false, func(_ func() *Client, o func() *Output) *cobra.Command {
			return NewScheduleCmd(o)
		}, args...)
		if err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestNextRuns(t *testing.T) {
	now := time.Date(2026, 10, 19, 7, 30, 0, 0, time.UTC)
	next := NextRuns(now, []domain.TriggerTime{{Hour: 8}, {Hour: 22}}, 2)

	if len(next) != 2 {
		t.Fatalf("expected 2, got %d", len(next))
	}
	if next[0].Trigger != "08:00" || next[0].In != "30m0s" {
		t.Errorf("unexpected first entry %+v", next[0])
	}
	if next[1].Trigger != "22:00" || next[1].In != "14h30m0s" {
		t.Errorf("unexpected second entry %+v", next[1])
	}
}

// --- Watch Tests ---

func TestFormatEvent(t *testing.T) {
	id := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	ts := time.Date(2026, 10, 19, 22, 1, 0, 0, time.Local)

	started := FormatEvent(mq.MessageTypeRunStarted, ts, mq.RunEventPayload{RunID: id, Trigger: "22:00", Mode: domain.RunModeScheduled})
	if strings.Contains(started, "status=") {
		t.Errorf("started event should not carry outcome: %s", started)
	}

	finished := FormatEvent(mq.MessageTypeRunFinished, ts, mq.RunEventPayload{
		RunID: id, Trigger: "22:00", Mode: domain.RunModeScheduled,
		Status: domain.RunStatusFailed, ExitCode: 1, Attempts: 1, DurationMs: 2000, Error: "exit status 1",
	})
	for _, want := range []string{"2026-10-19 22:01:00", "status=FAILED", "exit=1", "duration=2s", `error="exit status 1"`} {
		if !strings.Contains(finished, want) {
			t.Errorf("expected %q in %s", want, finished)
		}
	}
}
