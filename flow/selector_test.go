package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sentinelmesh/core"
	"github.com/hupe1980/sentinelmesh/internal/testutil"
)

func TestSelector_EmptyHistory(t *testing.T) {
	s := NewSelector()
	a, ok := s.Next(testutil.FullTeam(), nil)
	assert.False(t, ok)
	assert.Nil(t, a)
	assert.Nil(t, s.Pipeline())
}

func TestSelector_ComprehensiveScenario(t *testing.T) {
	s := NewSelector()
	h := testutil.NewHistoryBuilder().User("Can you give a full comprehensive outbreak forecast report?").Build()

	a, ok := s.Next(testutil.FullTeam(), h)
	require.True(t, ok)
	assert.Equal(t, core.DataCollection, a.Identity())
	assert.Equal(t, IntentComprehensive, s.Intent())
	assert.Equal(t, []core.Identity{
		core.DataCollection, core.AnomalyDetection, core.Prediction, core.Alert, core.Reporting,
	}, s.Pipeline())
}

func TestSelector_FallbackStoresNoPipeline(t *testing.T) {
	s := NewSelector()
	team := testutil.FullTeam()

	// A previous pipeline must be cleared by a fallback query.
	_, ok := s.Next(team, testutil.NewHistoryBuilder().User("forecast measles").Build())
	require.True(t, ok)
	require.NotNil(t, s.Pipeline())

	a, ok := s.Next(team, testutil.NewHistoryBuilder().User("thanks, bye").Build())
	require.True(t, ok)
	assert.Equal(t, core.Assistant, a.Identity())
	assert.Nil(t, s.Pipeline())

	// The assistant is not followed by anyone.
	h := testutil.NewHistoryBuilder().User("thanks, bye").Agent(core.Assistant, "bye").Build()
	_, ok = s.Next(team, h)
	assert.False(t, ok)
}

func TestSelector_WalksEveryPipeline(t *testing.T) {
	team := testutil.FullTeam()
	queries := map[Intent]string{
		IntentComprehensive: "full outbreak report",
		IntentForecast:      "forecast cholera",
		IntentAnomaly:       "any abnormal pattern?",
		IntentData:          "gather sources",
		IntentAlert:         "send a warning",
	}

	for intent, q := range queries {
		t.Run(intent.String(), func(t *testing.T) {
			s := NewSelector()
			hb := testutil.NewHistoryBuilder().User(q)

			var visited []core.Identity
			for {
				a, ok := s.Next(team, hb.Build())
				if !ok {
					break
				}
				visited = append(visited, a.Identity())
				hb.Agent(a.Identity(), "ok")
				require.LessOrEqual(t, len(visited), 5)
			}
			assert.Equal(t, intent.Pipeline(), visited)
		})
	}
}

func TestSelector_SuccessorProperty(t *testing.T) {
	s := NewSelector()
	_, ok := s.NextIdentity(testutil.NewHistoryBuilder().User("full forecast").Build())
	require.True(t, ok)
	p := s.Pipeline()

	for i, id := range p {
		next, ok := s.NextIdentity(testutil.NewHistoryBuilder().Agent(id, "x").Build())
		if i == len(p)-1 {
			assert.False(t, ok, "after last element")
			continue
		}
		require.True(t, ok)
		assert.Equal(t, p[i+1], next)
	}
	// Agent turns never change the stored pipeline.
	assert.Equal(t, p, s.Pipeline())
}

func TestSelector_AuthorNotInPipeline(t *testing.T) {
	s := NewSelector()
	h := testutil.NewHistoryBuilder().User("collect data").Agent(core.Prediction, "??").Build()
	_, ok := s.Next(testutil.FullTeam(), h[:1])
	require.True(t, ok)

	_, ok = s.Next(testutil.FullTeam(), h)
	assert.False(t, ok)
}

func TestSelector_AgentTurnWithoutPipeline(t *testing.T) {
	s := NewSelector()
	h := testutil.NewHistoryBuilder().Agent(core.DataCollection, "hello").Build()
	_, ok := s.Next(testutil.FullTeam(), h)
	assert.False(t, ok)
}

func TestSelector_MissingAgentIsFailSoft(t *testing.T) {
	team := testutil.FullTeam()
	delete(team, core.AnomalyDetection)

	s := NewSelector()
	hb := testutil.NewHistoryBuilder().User("detect anomalies")
	a, ok := s.Next(team, hb.Build())
	require.True(t, ok)
	assert.Equal(t, core.DataCollection, a.Identity())

	hb.Agent(core.DataCollection, "collected")
	a, ok = s.Next(team, hb.Build())
	assert.False(t, ok)
	assert.Nil(t, a)

	_, ok = s.Next(nil, hb.Build())
	assert.False(t, ok)
}

func TestSelector_TranscriptEquivalence(t *testing.T) {
	// Prefix-tagged lines and structured turns route identically.
	structured := testutil.NewHistoryBuilder().User("forecast flu").Agent(core.DataCollection, "done").Build()
	parsed := testutil.NewHistoryBuilder().Line("forecast flu").Line("DATA_COLLECTION_AGENT > done").Build()

	s1, s2 := NewSelector(), NewSelector()
	for i := 1; i <= len(structured); i++ {
		a, ok1 := s1.NextIdentity(structured[:i])
		b, ok2 := s2.NextIdentity(parsed[:i])
		assert.Equal(t, ok1, ok2)
		assert.Equal(t, a, b)
	}
}

func TestSelector_Reset(t *testing.T) {
	s := NewSelector()
	_, _ = s.NextIdentity(testutil.NewHistoryBuilder().User("forecast").Build())
	s.Reset()
	assert.Nil(t, s.Pipeline())
	assert.Equal(t, IntentGeneral, s.Intent())
}
