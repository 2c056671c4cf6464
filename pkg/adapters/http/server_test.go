package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripmazer/wayfarer/pkg/domain"
)

type mockEngine struct {
	runs    map[string]*domain.RunResult
	planErr error
}

func (m *mockEngine) Plan(ctx context.Context, query string) (*domain.RunResult, error) {
	return m.PlanStream(ctx, query, nil)
}

func (m *mockEngine) PlanStream(ctx context.Context, query string, sink domain.ProgressSink) (*domain.RunResult, error) {
	if sink != nil {
		sink(ctx, domain.ProgressEvent{Status: domain.StatusProcessing, Step: domain.StepPreferences, Progress: 10})
		sink(ctx, domain.ProgressEvent{Status: domain.StatusCompleted, Step: domain.StepFinal, Progress: 100})
	}
	if m.planErr != nil {
		return &domain.RunResult{RunID: "r-err", Error: m.planErr.Error(), ExecutionTimeSeconds: 1.5}, m.planErr
	}
	res := &domain.RunResult{RunID: "r-1", CombinedResult: "# Trip Plan: " + query}
	m.runs[res.RunID] = res
	return res, nil
}

func (m *mockEngine) InvokeTool(ctx context.Context, name string, req domain.ToolRequest) (domain.ToolResult, error) {
	tool, err := domain.ParseToolName(name)
	if err != nil {
		return domain.ToolResult{}, err
	}
	req.Tool = tool
	if err := req.Validate(); err != nil {
		return domain.ToolResult{}, err
	}
	if req.Destination == "Atlantis" {
		return domain.ToolResult{}, errors.New("upstream status 500")
	}
	return domain.ToolResult{Tool: tool, Output: fmt.Sprintf("%s options in %s", tool, req.Destination)}, nil
}

func (m *mockEngine) Run(ctx context.Context, id string) (*domain.RunResult, error) {
	if r, ok := m.runs[id]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
}

func (m *mockEngine) Tools() []domain.ToolName {
	return []domain.ToolName{domain.ToolItinerary, domain.ToolLodging, domain.ToolTransport}
}

func newTestServer(t *testing.T, eng *mockEngine, opts ...Option) *httptest.Server {
	t.Helper()
	if eng.runs == nil {
		eng.runs = map[string]*domain.RunResult{}
	}
	h, err := NewHandler(eng, opts...)
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestLoadSpec(t *testing.T) {
	doc, err := LoadSpec(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", doc.Info.Version)
	assert.NotNil(t, doc.Paths.Value("/tools/{tool}"))
}

func TestPlan(t *testing.T) {
	srv := newTestServer(t, &mockEngine{})

	resp := postJSON(t, srv.URL+"/plan", PlanRequest{Query: "Goa\x07 trip"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res domain.RunResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, "# Trip Plan: Goa trip", res.CombinedResult)

	got, err := http.Get(srv.URL + "/runs/r-1")
	require.NoError(t, err)
	defer got.Body.Close()
	assert.Equal(t, http.StatusOK, got.StatusCode)

	missing, err := http.Get(srv.URL + "/runs/nope")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestPlan_BadInput(t *testing.T) {
	srv := newTestServer(t, &mockEngine{})

	resp, err := http.Post(srv.URL+"/plan", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	empty := postJSON(t, srv.URL+"/plan", PlanRequest{Query: "  \n "})
	assert.Equal(t, http.StatusBadRequest, empty.StatusCode)
	var e errorResponse
	require.NoError(t, json.NewDecoder(empty.Body).Decode(&e))
	assert.Equal(t, domain.ErrEmptyQuery.Error(), e.Error)
}

func TestPlan_Aborted(t *testing.T) {
	srv := newTestServer(t, &mockEngine{planErr: context.DeadlineExceeded})

	resp := postJSON(t, srv.URL+"/plan", PlanRequest{Query: "Goa"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var res domain.RunResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.True(t, res.Failed())
	assert.Equal(t, 1.5, res.ExecutionTimeSeconds)
}

func readEvents(t *testing.T, resp *http.Response) []string {
	t.Helper()
	var events []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
			events = append(events, name)
		}
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestPlanStream(t *testing.T) {
	srv := newTestServer(t, &mockEngine{})

	resp := postJSON(t, srv.URL+"/plan/stream", PlanRequest{Query: "Goa"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, []string{"progress", "progress", "result"}, readEvents(t, resp))
}

func TestPlanStream_Aborted(t *testing.T) {
	srv := newTestServer(t, &mockEngine{planErr: context.Canceled})

	resp := postJSON(t, srv.URL+"/plan/stream", PlanRequest{Query: "Goa"})
	assert.Equal(t, []string{"progress", "progress", "error"}, readEvents(t, resp))
}

func TestInvokeTool(t *testing.T) {
	srv := newTestServer(t, &mockEngine{})

	tests := []struct {
		name   string
		tool   string
		req    domain.ToolRequest
		status int
	}{
		{"OK", "lodging", domain.ToolRequest{Destination: "Goa", Travelers: 2, Budget: 9000}, http.StatusOK},
		{"Alias", "hotel", domain.ToolRequest{Destination: "Goa", Travelers: 2, Budget: 9000}, http.StatusOK},
		{"Unknown Tool", "flights", domain.ToolRequest{Destination: "Goa", Travelers: 2, Budget: 9000}, http.StatusNotFound},
		{"Invalid Request", "dining", domain.ToolRequest{Destination: "Goa", Travelers: 0, Budget: 9000}, http.StatusBadRequest},
		{"Upstream Failure", "transport", domain.ToolRequest{Destination: "Atlantis", Travelers: 1, Budget: 100}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/tools/"+tt.tool, tt.req)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	resp := postJSON(t, srv.URL+"/tools/hotel", domain.ToolRequest{Destination: "Goa", Travelers: 2, Budget: 9000})
	var body ToolResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, ToolResponse{Tool: domain.ToolLodging, Result: "lodging options in Goa"}, body)
}

func TestInfoHealthAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "wayfarer_runs_total 1")
	})
	srv := newTestServer(t, &mockEngine{}, WithVersion("0.4.0"), WithMetricsHandler(metrics))

	resp, err := http.Get(srv.URL + "/info")
	require.NoError(t, err)
	defer resp.Body.Close()
	var info Info
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, Info{App: "wayfarer", Version: "0.4.0", APIVersion: "1.0.0"}, info)

	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)

	m, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer m.Body.Close()
	assert.Equal(t, http.StatusOK, m.StatusCode)

	spec, err := http.Get(srv.URL + "/openapi.yaml")
	require.NoError(t, err)
	defer spec.Body.Close()
	assert.Equal(t, "application/yaml", spec.Header.Get("Content-Type"))
}
