package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minionhq/braingate/pkg/config"
	"github.com/minionhq/braingate/pkg/engine"
	"github.com/minionhq/braingate/pkg/tool"
)

func TestValidateRoute(t *testing.T) {
	for _, route := range []string{"", "raw", "native", "cot", "dcot", "plan", "python"} {
		assert.NoError(t, ValidateRoute(route), "route %q", route)
	}

	err := ValidateRoute("turbo")
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "route", verr.Field)
	assert.Equal(t, "turbo", verr.Value)
}

func TestBuildPayload_EmptyRouteIsAuto(t *testing.T) {
	payload, err := BuildPayload("What is 2+2?", "", false, "", nil)
	require.NoError(t, err)
	assert.Nil(t, payload.Route)
}

func TestBuildPayload_UnknownRouteRejected(t *testing.T) {
	_, err := BuildPayload("q", "turbo", false, "", nil)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestBuildPayload_QueryTypeOnlyForPython(t *testing.T) {
	// Python carries the query type.
	payload, err := BuildPayload("q", "python", false, "calculate", nil)
	require.NoError(t, err)
	require.NotNil(t, payload.QueryType)
	assert.Equal(t, "calculate", *payload.QueryType)

	// Any other route drops it entirely.
	payload, err = BuildPayload("q", "cot", false, "calculate", nil)
	require.NoError(t, err)
	assert.Nil(t, payload.QueryType)

	payload, err = BuildPayload("q", "raw", false, "code_solution", nil)
	require.NoError(t, err)
	assert.Nil(t, payload.QueryType)
}

func TestBuildPayload_UnknownQueryTypeRejected(t *testing.T) {
	_, err := BuildPayload("q", "python", false, "guess", nil)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "query_type", verr.Field)
}

func TestBuildPayload_CarriesToolsAndCheck(t *testing.T) {
	tools := []tool.Definition{{Name: "calculator"}, {Name: "echo"}}

	payload, err := BuildPayload("q", "python", true, "code_solution", tools)
	require.NoError(t, err)

	assert.True(t, payload.Check)
	require.Len(t, payload.Tools, 2)
	assert.Equal(t, "calculator", payload.Tools[0].Name)
	require.NotNil(t, payload.Route)
	assert.Equal(t, "python", *payload.Route)
}

// fakeStepper records the payload it receives and returns a canned result.
type fakeStepper struct {
	got    *engine.Payload
	result *engine.StepResult
	err    error
	closed bool
}

func (f *fakeStepper) Step(ctx context.Context, payload *engine.Payload) (*engine.StepResult, error) {
	f.got = payload
	return f.result, f.err
}

func (f *fakeStepper) Close() error {
	f.closed = true
	return nil
}

func TestInvoke_SingleStep(t *testing.T) {
	stepper := &fakeStepper{
		result: &engine.StepResult{Observation: "4", Score: 1.0, Extra: []any{"stop"}},
	}
	d := NewWithFactory(func(cfg *config.EffectiveConfig) (Stepper, error) {
		return stepper, nil
	})

	payload, err := BuildPayload("What is 2+2?", "", false, "", nil)
	require.NoError(t, err)

	result, err := d.Invoke(context.Background(), payload, &config.EffectiveConfig{})
	require.NoError(t, err)

	assert.Equal(t, "4", result.Observation)
	assert.Equal(t, 1.0, result.Score)
	// Trailing engine fields pass through untouched.
	assert.Equal(t, []any{"stop"}, result.Extra)
	assert.Same(t, payload, stepper.got)
	assert.True(t, stepper.closed)
}

func TestInvoke_EngineFailurePropagates(t *testing.T) {
	cause := fmt.Errorf("model overloaded")
	d := NewWithFactory(func(cfg *config.EffectiveConfig) (Stepper, error) {
		return &fakeStepper{err: cause}, nil
	})

	_, err := d.Invoke(context.Background(), &engine.Payload{Query: "q"}, &config.EffectiveConfig{})
	require.Error(t, err)

	var engErr *EngineInvocationError
	require.ErrorAs(t, err, &engErr)
	assert.True(t, errors.Is(err, cause))
}

func TestInvoke_FactoryFailure(t *testing.T) {
	d := NewWithFactory(func(cfg *config.EffectiveConfig) (Stepper, error) {
		return nil, fmt.Errorf("no such provider")
	})

	_, err := d.Invoke(context.Background(), &engine.Payload{}, &config.EffectiveConfig{})

	var engErr *EngineInvocationError
	require.ErrorAs(t, err, &engErr)
}
