package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripmazer/wayfarer/internal/config"
	"github.com/tripmazer/wayfarer/internal/logging"
	"github.com/tripmazer/wayfarer/pkg/adapters/completion"
	"github.com/tripmazer/wayfarer/pkg/adapters/process"
	"github.com/tripmazer/wayfarer/pkg/domain"
	"github.com/tripmazer/wayfarer/pkg/ports"
)

const extraction = `{"budget": 20000, "currency": "₹", "from_location": "Delhi", "to_location": "Jaipur",
"travelers": 2, "dates": "10-03-2026 to 12-03-2026", "routing_order": ["transport", "lodging"], "dining": false}`

func fakeCompleter() ports.CompleterFunc {
	return func(ctx context.Context, req ports.CompletionRequest) (string, error) {
		if req.Temperature < 0.15 {
			return extraction, nil
		}
		return "Recommended: ₹2,500 per person", nil
	}
}

func testApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	app, err := NewApp(context.Background(), cfg, WithCompleter(fakeCompleter()), WithLogger(logging.NewNop()))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

func TestNewApp_RequiresAPIKey(t *testing.T) {
	_, err := NewApp(context.Background(), config.Default(), WithLogger(logging.NewNop()))
	assert.ErrorIs(t, err, completion.ErrNotConfigured)
}

func TestNewApp_RedisUnavailable(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = config.StoreRedis
	cfg.Store.RedisAddr = "127.0.0.1:1"
	_, err := NewApp(context.Background(), cfg, WithCompleter(fakeCompleter()), WithLogger(logging.NewNop()))
	assert.ErrorContains(t, err, "redis store unavailable")
}

func TestRunPlan_TextAndGraph(t *testing.T) {
	app := testApp(t, config.Default())

	var out bytes.Buffer
	res, err := RunPlan(context.Background(), app, "Weekend in Jaipur from Delhi for two", &out, PlanOptions{Graph: true})
	require.NoError(t, err)
	require.NotNil(t, res.ExecutionSummary)

	text := out.String()
	assert.Contains(t, text, "# Trip Plan: Delhi to Jaipur")
	assert.Contains(t, text, "```mermaid\ngraph LR")
	assert.NotContains(t, text, "\x1b[", "no rendering off a terminal")
}

func TestRunPlan_JSONWithRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Store.Driver = config.StoreRedis
	cfg.Store.RedisAddr = mr.Addr()
	app := testApp(t, cfg)

	var out bytes.Buffer
	res, err := RunPlan(context.Background(), app, "Weekend in Jaipur", &out, PlanOptions{JSON: true, Graph: true})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Greater(t, len(lines), 2)
	assert.NotContains(t, out.String(), "mermaid")
	assert.True(t, mr.Exists("wayfarer:run:"+res.RunID))

	stored, err := app.Engine.Run(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.CombinedResult, stored.CombinedResult)
}

func TestNewHTTPHandler_MetricsAfterPlan(t *testing.T) {
	app := testApp(t, config.Default())
	h, err := NewHTTPHandler(app)
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	defer srv.Close()

	body, _ := json.Marshal(map[string]string{"query": "Weekend in Jaipur from Delhi"})
	resp, err := http.Post(srv.URL+"/plan", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	m, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer m.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(m.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `wayfarer_tool_calls_total{is_error="false",tool="lodging"} 1`)
	assert.Contains(t, buf.String(), `wayfarer_runs_total{failed="false"} 1`)
}

func TestRunPlan_EncryptedRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Store.Driver = config.StoreRedis
	cfg.Store.RedisAddr = mr.Addr()
	cfg.Store.EncryptionKey = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	cfg.Store.Redact = true
	app := testApp(t, cfg)

	res, err := RunPlan(context.Background(), app, "Weekend in Jaipur", io.Discard, PlanOptions{JSON: true})
	require.NoError(t, err)

	raw, err := mr.Get("wayfarer:run:" + res.RunID)
	require.NoError(t, err)
	assert.NotContains(t, raw, "Jaipur")

	stored, err := app.Engine.Run(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.CombinedResult, stored.CombinedResult)
}

func TestStoreMiddleware(t *testing.T) {
	mws, err := storeMiddleware(config.StoreConfig{})
	require.NoError(t, err)
	assert.Empty(t, mws)

	mws, err = storeMiddleware(config.StoreConfig{
		Redact:        true,
		EncryptionKey: base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, 32)),
	})
	require.NoError(t, err)
	assert.Len(t, mws, 2)

	_, err = storeMiddleware(config.StoreConfig{EncryptionKey: "c2hvcnQ="})
	assert.ErrorContains(t, err, "store encryption key")
}

func TestNewApp_CommandTool(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	cfg := config.Default()
	cfg.Tools.Commands = []process.Command{
		{Tool: "hotel", Command: "sh", Args: []string{"-c", `echo "Haveli stay in $WAYFARER_ARG_DESTINATION"`}},
	}
	app := testApp(t, cfg)

	res, err := app.Engine.InvokeTool(context.Background(), "lodging", domain.ToolRequest{
		Destination: "Jaipur",
		Travelers:   2,
		Budget:      9000,
		Currency:    "INR",
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "Haveli stay in Jaipur", res.Output)
}
