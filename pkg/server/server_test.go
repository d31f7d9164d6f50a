package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minionhq/braingate/pkg/aggregator"
	"github.com/minionhq/braingate/pkg/config"
	"github.com/minionhq/braingate/pkg/dispatch"
	"github.com/minionhq/braingate/pkg/engine"
	"github.com/minionhq/braingate/pkg/gateway"
	"github.com/minionhq/braingate/pkg/tool"
)

type stubStepper struct {
	result *engine.StepResult
	err    error
}

func (s *stubStepper) Step(ctx context.Context, payload *engine.Payload) (*engine.StepResult, error) {
	return s.result, s.err
}

func (s *stubStepper) Close() error { return nil }

type stubTool struct{ name string }

func (t *stubTool) Name() string           { return t.name }
func (t *stubTool) Description() string    { return "stub" }
func (t *stubTool) Schema() map[string]any { return map[string]any{"type": "object"} }
func (t *stubTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	return map[string]any{"result": "ok"}, nil
}

type stubSource struct{ tools []tool.Tool }

func (s *stubSource) Name() string    { return "local" }
func (s *stubSource) Kind() tool.Kind { return tool.KindLocal }
func (s *stubSource) Close() error    { return nil }

func (s *stubSource) Connect(ctx context.Context) ([]tool.Tool, error) {
	return s.tools, nil
}

func testServer(stepper dispatch.Stepper) *Server {
	resolver := config.NewResolverWithPresets(nil, config.Preset{
		APIType:     "azure",
		APIKey:      "key",
		BaseURL:     "https://example.test",
		APIVersion:  "2024-06-01",
		Model:       "gpt-4o",
		Temperature: "0.7",
		MaxTokens:   "4000",
	})

	gw := gateway.New(
		gateway.WithResolver(resolver),
		gateway.WithDispatcher(dispatch.NewWithFactory(func(cfg *config.EffectiveConfig) (dispatch.Stepper, error) {
			return stepper, nil
		})),
		gateway.WithTools(aggregator.NewLazy(func(ctx context.Context, agg *aggregator.Aggregator) {
			agg.Register(ctx, &stubSource{tools: []tool.Tool{&stubTool{name: "echo"}}})
		})),
	)
	return New(Config{}, gw)
}

func postQuery(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestQuery_Success(t *testing.T) {
	srv := testServer(&stubStepper{
		result: &engine.StepResult{Observation: "4", Score: 1.0},
	})

	rec := postQuery(t, srv, `{"query": "What is 2+2?", "use_tools": true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp gateway.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "4", resp.Observation)
	assert.Equal(t, 1.0, resp.Score)
	assert.Nil(t, resp.Route)
	assert.NotEmpty(t, resp.ID)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestQuery_UnknownRouteIs400(t *testing.T) {
	srv := testServer(&stubStepper{})

	rec := postQuery(t, srv, `{"query": "q", "route": "turbo"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation_error", body.Error)
}

func TestQuery_BadOverrideIs400(t *testing.T) {
	srv := testServer(&stubStepper{})

	rec := postQuery(t, srv, `{"query": "q", "overrides": {"max_tokens": "banana"}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "configuration_error", body.Error)
}

func TestQuery_EngineFailureIs502(t *testing.T) {
	srv := testServer(&stubStepper{err: fmt.Errorf("model overloaded")})

	rec := postQuery(t, srv, `{"query": "q"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "engine_error", body.Error)
	assert.Contains(t, body.Message, "model overloaded")
}

func TestQuery_MissingQueryIs400(t *testing.T) {
	srv := testServer(&stubStepper{})

	rec := postQuery(t, srv, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postQuery(t, srv, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTools_Listing(t *testing.T) {
	srv := testServer(&stubStepper{})

	req := httptest.NewRequest(http.MethodGet, "/v1/tools", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Tools []aggregator.ToolStatus `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Tools, 1)
	assert.Equal(t, "echo", body.Tools[0].Name)
}

func TestHealth(t *testing.T) {
	srv := testServer(&stubStepper{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}
