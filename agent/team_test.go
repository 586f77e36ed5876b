package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sentinelmesh/core"
	"github.com/hupe1980/sentinelmesh/internal/testutil"
	"github.com/hupe1980/sentinelmesh/model"
)

func TestNewSurveillanceTeam(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	reg, err := NewSurveillanceTeam(llm)
	require.NoError(t, err)

	assert.Equal(t, core.Identities(), reg.Identities())

	rep, ok := reg.Get(core.Reporting)
	require.True(t, ok)
	assert.IsType(t, &ReportingAgent{}, rep)

	pred, ok := reg.Get(core.Prediction)
	require.True(t, ok)
	assert.Equal(t, "Forecasts outbreak spread over the prediction horizon", pred.Description())
}

func TestNewSurveillanceTeam_RendersRoleInstructions(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	reg, err := NewSurveillanceTeam(llm, func(o *TeamOptions) {
		o.PredictionHorizonWeeks = 6
		o.Instructions = map[core.Identity]string{core.Assistant: "custom {{.horizon_weeks}}"}
	})
	require.NoError(t, err)

	history := testutil.NewHistoryBuilder().User("forecast measles").Build()

	pred, _ := reg.Get(core.Prediction)
	_, err = pred.Respond(newTestRunContext(core.Prediction, history))
	require.NoError(t, err)

	alert, _ := reg.Get(core.Alert)
	_, err = alert.Respond(newTestRunContext(core.Alert, history))
	require.NoError(t, err)

	assistant, _ := reg.Get(core.Assistant)
	_, err = assistant.Respond(newTestRunContext(core.Assistant, history))
	require.NoError(t, err)

	reqs := llm.Requests()
	require.Len(t, reqs, 3)
	assert.True(t, strings.Contains(reqs[0].Instructions, "next 6 weeks"), reqs[0].Instructions)
	assert.Contains(t, reqs[1].Instructions, "high above 80%")
	assert.Equal(t, "custom 6", reqs[2].Instructions)
}

func TestNewSurveillanceTeam_NilModel(t *testing.T) {
	_, err := NewSurveillanceTeam(nil)
	assert.Error(t, err)
}
