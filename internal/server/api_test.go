package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tfdigest/tfdigest/internal/digest"
	"github.com/tfdigest/tfdigest/internal/history"
)

const planText = `Terraform will perform the following actions:

  # module.app[0].aws_instance.web will be created
  + resource "aws_instance" "web" {
      + ami = "ami-0abcdef"
    }

  # module.app[1].aws_instance.web will be created
  + resource "aws_instance" "web" {
      + ami = "ami-0abcdef"
    }

  # aws_s3_bucket.legacy will be destroyed
  - resource "aws_s3_bucket" "legacy" {
      - bucket = "legacy-bucket" -> null
    }

Plan: 2 to add, 0 to change, 1 to destroy.
`

func newTestServer(t *testing.T, apiToken string, readOnly bool) (*httptest.Server, *history.Store) {
	t.Helper()
	store, err := history.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	d := digest.New(store, nil, logger)
	s := New(store, d, logger, ":0", readOnly, apiToken, "", "test")

	mux := http.NewServeMux()
	RegisterRoutes(mux, s)

	var handler http.Handler = mux
	handler = s.authMiddleware(handler)

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	return ts, store
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t, "", false)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck // test cleanup

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
}

func TestDigest_TextPlain(t *testing.T) {
	ts, _ := newTestServer(t, "", false)

	resp, err := http.Post(ts.URL+"/api/v1/digest?source=ci/plan.log", "text/plain", strings.NewReader(planText))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck // test cleanup

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var dr digestResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		t.Fatal(err)
	}
	if dr.RunID <= 0 {
		t.Errorf("run_id = %d, want positive", dr.RunID)
	}
	if dr.Digest.Source != "ci/plan.log" {
		t.Errorf("source = %q", dr.Digest.Source)
	}
	if dr.Digest.Summary.Add != 2 || dr.Digest.Summary.Destroy != 1 {
		t.Errorf("summary = %+v", dr.Digest.Summary)
	}
	if len(dr.Digest.Changes.Created) != 2 {
		t.Errorf("created = %v", dr.Digest.Changes.Created)
	}
}

func TestDigest_JSON(t *testing.T) {
	ts, _ := newTestServer(t, "", false)

	body, _ := json.Marshal(map[string]string{"source": "gha", "text": planText})
	resp, err := http.Post(ts.URL+"/api/v1/digest", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck // test cleanup

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var dr digestResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		t.Fatal(err)
	}
	if dr.Digest.Source != "gha" {
		t.Errorf("source = %q, want gha", dr.Digest.Source)
	}
	if len(dr.Digest.Groups) != 1 {
		t.Errorf("groups = %d, want 1", len(dr.Digest.Groups))
	}
}

func TestDigest_EmptyBody(t *testing.T) {
	ts, _ := newTestServer(t, "", false)

	resp, err := http.Post(ts.URL+"/api/v1/digest", "text/plain", strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck // test cleanup

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDigest_InvalidJSON(t *testing.T) {
	ts, _ := newTestServer(t, "", false)

	resp, err := http.Post(ts.URL+"/api/v1/digest", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck // test cleanup

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDigest_ReadOnly(t *testing.T) {
	ts, store := newTestServer(t, "", true)

	resp, err := http.Post(ts.URL+"/api/v1/digest", "text/plain", strings.NewReader(planText))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck // test cleanup

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var dr digestResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		t.Fatal(err)
	}
	if dr.RunID != 0 {
		t.Errorf("run_id = %d, want 0 in read-only mode", dr.RunID)
	}
	if dr.Digest.Summary.Add != 2 {
		t.Errorf("read-only should still analyze, summary = %+v", dr.Digest.Summary)
	}

	count, err := store.RunCount(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("run count = %d, want 0 (nothing recorded)", count)
	}
}

func TestHistoryAndStats(t *testing.T) {
	ts, _ := newTestServer(t, "", false)

	for i := 0; i < 2; i++ {
		resp, err := http.Post(ts.URL+"/api/v1/digest", "text/plain", strings.NewReader(planText))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close() //nolint:errcheck // test cleanup
	}

	resp, err := http.Get(ts.URL + "/api/v1/history")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck // test cleanup

	var runs []history.Run
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if runs[0].Created != 2 || runs[0].Destroyed != 1 {
		t.Errorf("run counts = %+v", runs[0])
	}

	resp2, err := http.Get(ts.URL + "/api/v1/history?limit=1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close() //nolint:errcheck // test cleanup

	runs = nil
	if err := json.NewDecoder(resp2.Body).Decode(&runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("limited runs = %d, want 1", len(runs))
	}

	resp3, err := http.Get(ts.URL + "/api/v1/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp3.Body.Close() //nolint:errcheck // test cleanup

	var stats map[string]any
	if err := json.NewDecoder(resp3.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if got := stats["runs_total"].(float64); got != 2 {
		t.Errorf("runs_total = %v, want 2", got)
	}
	totals := stats["action_totals"].(map[string]any)
	if got := totals["created"].(float64); got != 4 {
		t.Errorf("created total = %v, want 4", got)
	}
}

func TestAuth_Integration(t *testing.T) {
	ts, _ := newTestServer(t, "secret-token", false)

	resp, err := http.Get(ts.URL + "/api/v1/history")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close() //nolint:errcheck // test cleanup
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close() //nolint:errcheck // test cleanup
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz: status = %d, want 200", resp.StatusCode)
	}

	req, _ := http.NewRequest("GET", ts.URL+"/api/v1/history", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close() //nolint:errcheck // test cleanup
	if resp.StatusCode != http.StatusOK {
		t.Errorf("with token: status = %d, want 200", resp.StatusCode)
	}
}
