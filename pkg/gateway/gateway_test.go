package gateway

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minionhq/braingate/pkg/aggregator"
	"github.com/minionhq/braingate/pkg/config"
	"github.com/minionhq/braingate/pkg/dispatch"
	"github.com/minionhq/braingate/pkg/engine"
	"github.com/minionhq/braingate/pkg/observability"
	"github.com/minionhq/braingate/pkg/tool"
)

// echoStepper answers every step with a fixed observation and records
// the payload it was given.
type echoStepper struct {
	observation string
	extra       []any
	got         *engine.Payload
	gotConfig   *config.EffectiveConfig
}

func (s *echoStepper) Step(ctx context.Context, payload *engine.Payload) (*engine.StepResult, error) {
	s.got = payload
	extra := s.extra
	if extra == nil {
		extra = []any{"stop"}
	}
	return &engine.StepResult{Observation: s.observation, Score: 1.0, Extra: extra}, nil
}

func (s *echoStepper) Close() error { return nil }

type staticTool struct {
	name string
}

func (t *staticTool) Name() string           { return t.name }
func (t *staticTool) Description() string    { return "test tool" }
func (t *staticTool) Schema() map[string]any { return map[string]any{"type": "object"} }
func (t *staticTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	return map[string]any{"result": "ok"}, nil
}

type staticSource struct {
	tools []tool.Tool
}

func (s *staticSource) Name() string    { return "local" }
func (s *staticSource) Kind() tool.Kind { return tool.KindLocal }
func (s *staticSource) Connect(ctx context.Context) ([]tool.Tool, error) {
	return s.tools, nil
}
func (s *staticSource) Close() error { return nil }

func testGateway(stepper *echoStepper) *Gateway {
	resolver := config.NewResolverWithPresets(
		map[string]config.Preset{
			"gpt-4o": {APIType: "azure", Model: "gpt-4o"},
		},
		config.Preset{
			APIType:     "azure",
			APIKey:      "test-key",
			BaseURL:     "https://example.test",
			APIVersion:  "2024-06-01",
			Model:       "default-model",
			Temperature: "0.7",
			MaxTokens:   "4000",
		})

	dispatcher := dispatch.NewWithFactory(func(cfg *config.EffectiveConfig) (dispatch.Stepper, error) {
		stepper.gotConfig = cfg
		return stepper, nil
	})

	tools := aggregator.NewLazy(func(ctx context.Context, agg *aggregator.Aggregator) {
		agg.Register(ctx, &staticSource{tools: []tool.Tool{&staticTool{name: "final_answer"}}})
	})

	return New(WithResolver(resolver), WithDispatcher(dispatcher), WithTools(tools))
}

func TestHandle_AutoRouteWithTools(t *testing.T) {
	stepper := &echoStepper{observation: "The answer is 4."}
	g := testGateway(stepper)

	resp, err := g.Handle(context.Background(), &Request{
		Query:    "What is 2+2?",
		Route:    "",
		Preset:   "gpt-4o",
		UseTools: true,
	})
	require.NoError(t, err)

	// Empty route stays null all the way through.
	assert.Nil(t, resp.Route)
	assert.NotEmpty(t, resp.Observation)
	assert.Equal(t, 1.0, resp.Score)
	assert.NotEmpty(t, resp.ID)

	require.NotNil(t, stepper.got)
	assert.Nil(t, stepper.got.Route)
	assert.Nil(t, stepper.got.QueryType)
	assert.GreaterOrEqual(t, len(stepper.got.Tools), 1)

	// Preset layered over defaults reached the engine.
	assert.Equal(t, "gpt-4o", stepper.gotConfig.Model)
	assert.Equal(t, "test-key", stepper.gotConfig.APIKey)
}

func TestHandle_PythonRouteCarriesQueryType(t *testing.T) {
	stepper := &echoStepper{observation: "def solve(): ..."}
	g := testGateway(stepper)

	_, err := g.Handle(context.Background(), &Request{
		Query:     "write a sorter",
		Route:     "python",
		QueryType: "code_solution",
	})
	require.NoError(t, err)

	require.NotNil(t, stepper.got.QueryType)
	assert.Equal(t, "code_solution", *stepper.got.QueryType)
}

func TestHandle_NonPythonRouteDropsQueryType(t *testing.T) {
	stepper := &echoStepper{observation: "answer"}
	g := testGateway(stepper)

	_, err := g.Handle(context.Background(), &Request{
		Query:     "q",
		Route:     "raw",
		QueryType: "code_solution",
	})
	require.NoError(t, err)

	assert.Nil(t, stepper.got.QueryType)
}

func TestHandle_UnknownRouteRejectedBeforeDispatch(t *testing.T) {
	dispatched := false
	dispatcher := dispatch.NewWithFactory(func(cfg *config.EffectiveConfig) (dispatch.Stepper, error) {
		dispatched = true
		return nil, fmt.Errorf("should not be called")
	})

	stepper := &echoStepper{}
	g := testGateway(stepper)
	g.dispatcher = dispatcher

	_, err := g.Handle(context.Background(), &Request{Query: "q", Route: "turbo"})

	var verr *dispatch.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.False(t, dispatched)
}

func TestHandle_MalformedOverrideRejectedBeforeDispatch(t *testing.T) {
	stepper := &echoStepper{}
	g := testGateway(stepper)

	_, err := g.Handle(context.Background(), &Request{
		Query:     "q",
		Overrides: map[string]any{"max_tokens": "not-a-number"},
	})

	var cerr *config.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Nil(t, stepper.got)
}

func TestHandle_ToolsDisabled(t *testing.T) {
	stepper := &echoStepper{observation: "answer"}
	g := testGateway(stepper)

	_, err := g.Handle(context.Background(), &Request{Query: "q", UseTools: false})
	require.NoError(t, err)

	assert.Empty(t, stepper.got.Tools)
}

// engineCallRecorder captures engine-call metric samples.
type engineCallRecorder struct {
	calls []engineCallSample
}

type engineCallSample struct {
	model        string
	inputTokens  int
	outputTokens int
	err          error
}

func (m *engineCallRecorder) RecordRequest(ctx context.Context, route string, duration time.Duration, err error) {
}

func (m *engineCallRecorder) RecordEngineCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error) {
	m.calls = append(m.calls, engineCallSample{
		model:        model,
		inputTokens:  inputTokens,
		outputTokens: outputTokens,
		err:          err,
	})
}

func (m *engineCallRecorder) RecordSourceFailure(ctx context.Context, source string) {}

func TestHandle_RecordsEngineCall(t *testing.T) {
	metrics := &engineCallRecorder{}
	observability.SetGlobalMetrics(metrics)
	t.Cleanup(func() { observability.SetGlobalMetrics(nil) })

	stepper := &echoStepper{observation: "4"}
	stepper.extra = []any{"stop", engine.Usage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15}}
	g := testGateway(stepper)

	_, err := g.Handle(context.Background(), &Request{Query: "What is 2+2?", Preset: "gpt-4o"})
	require.NoError(t, err)

	require.Len(t, metrics.calls, 1)
	assert.Equal(t, "gpt-4o", metrics.calls[0].model)
	assert.Equal(t, 12, metrics.calls[0].inputTokens)
	assert.Equal(t, 3, metrics.calls[0].outputTokens)
	assert.NoError(t, metrics.calls[0].err)
}

func TestShutdown_NeverBuiltCatalogIsNoOp(t *testing.T) {
	built := 0
	tools := aggregator.NewLazy(func(ctx context.Context, agg *aggregator.Aggregator) {
		built++
	})

	g := New(WithTools(tools))
	require.NoError(t, g.Shutdown(context.Background()))
	assert.Zero(t, built, "teardown must not construct the catalog")

	// Once the catalog exists, shutdown tears it down as before.
	g.Tools(context.Background())
	require.NoError(t, g.Shutdown(context.Background()))
	assert.Equal(t, 1, built)
}

func TestTools_Listing(t *testing.T) {
	g := testGateway(&echoStepper{})

	statuses := g.Tools(context.Background())
	require.Len(t, statuses, 1)
	assert.Equal(t, "final_answer", statuses[0].Name)
	assert.Equal(t, "local", statuses[0].Source)
}
