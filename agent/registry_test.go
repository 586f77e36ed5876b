package agent

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sentinelmesh/core"
)

// Interface compliance (compile-time assertions)
var (
	_ core.AgentSet = (*Registry)(nil)
	_ core.Agent    = (*FuncAgent)(nil)
	_ core.Agent    = (*ModelAgent)(nil)
	_ core.Agent    = (*ReportingAgent)(nil)
)

func echo(text string) func(*core.RunContext) (string, error) {
	return func(*core.RunContext) (string, error) { return text, nil }
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg, err := NewRegistry(
		NewFuncAgent(core.Reporting, echo("r")),
		NewFuncAgent(core.DataCollection, echo("d")),
	)
	require.NoError(t, err)

	a, ok := reg.Get(core.DataCollection)
	require.True(t, ok)
	assert.Equal(t, core.DataCollection, a.Identity())

	_, ok = reg.Get(core.Alert)
	assert.False(t, ok)

	assert.Equal(t, []core.Identity{core.DataCollection, core.Reporting}, reg.Identities())
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_Errors(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	assert.ErrorIs(t, reg.Register(nil), ErrNilAgent)
	assert.ErrorIs(t, reg.Register(NewFuncAgent("WEATHER_AGENT", echo("x"))), ErrUnknownIdentity)
	assert.ErrorIs(t, reg.Register(NewFuncAgent(core.User, echo("x"))), ErrUnknownIdentity)

	require.NoError(t, reg.Register(NewFuncAgent(core.Alert, echo("a"))))
	assert.ErrorIs(t, reg.Register(NewFuncAgent(core.Alert, echo("b"))), ErrDuplicateAgent)

	reg.Freeze()
	reg.Freeze()
	assert.True(t, reg.Frozen())
	assert.ErrorIs(t, reg.Register(NewFuncAgent(core.Prediction, echo("p"))), ErrRegistryFrozen)

	_, err = NewRegistry(NewFuncAgent(core.Alert, echo("a")), NewFuncAgent(core.Alert, echo("b")))
	assert.ErrorIs(t, err, ErrDuplicateAgent)
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	reg, err := NewRegistry(NewFuncAgent(core.Assistant, echo("hi")))
	require.NoError(t, err)
	reg.Freeze()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := reg.Get(core.Assistant)
			assert.True(t, ok)
			assert.Len(t, reg.Identities(), 1)
		}()
	}
	wg.Wait()
}

func TestFuncAgent(t *testing.T) {
	a := NewFuncAgent(core.Alert, echo("alert raised"))
	assert.Equal(t, "Agent alert agent", a.Description())

	out, err := a.Respond(newTestRunContext(core.Alert, nil))
	require.NoError(t, err)
	assert.Equal(t, "alert raised", out)

	a.SetDescription("custom")
	assert.Equal(t, "custom", a.Description())
}
