package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sentinelmesh/core"
	"github.com/hupe1980/sentinelmesh/flow"
	"github.com/hupe1980/sentinelmesh/internal/testutil"
	"github.com/hupe1980/sentinelmesh/session"
)

func authors(turns []core.Turn) []core.Identity {
	out := make([]core.Identity, 0, len(turns))
	for _, t := range turns {
		out = append(out, t.Author)
	}
	return out
}

func TestRunSync_ComprehensivePipeline(t *testing.T) {
	store := session.NewInMemoryStore()
	r := New(testutil.FullTeam(), func(o *Options) { o.SessionStore = store })

	res, err := r.RunSync(context.Background(), "s1", "Give me a full outbreak report for the region")
	require.NoError(t, err)

	assert.Equal(t, flow.IntentComprehensive, res.Intent)
	assert.Equal(t, []core.Identity{
		core.DataCollection, core.AnomalyDetection, core.Prediction, core.Alert, core.Reporting,
	}, authors(res.Turns))
	assert.Equal(t, flow.ReasonTerminalRole, res.Reason)
	assert.Equal(t, "s1", res.SessionID)
	assert.NotEmpty(t, res.RunID)

	final, ok := res.Final()
	require.True(t, ok)
	assert.Equal(t, core.Reporting, final.Author)

	sess, err := store.Get("s1")
	require.NoError(t, err)
	require.Equal(t, 6, sess.Len())
	assert.True(t, sess.Turns()[0].IsUser())

	intent, ok := sess.GetState(StateLastIntent)
	require.True(t, ok)
	assert.Equal(t, "comprehensive", intent)
	reason, _ := sess.GetState(StateLastStopReason)
	assert.Equal(t, "terminal_role", reason)
	runID, _ := sess.GetState(StateLastRunID)
	assert.Equal(t, res.RunID, runID)
}

func TestRunSync_GeneralQueryFallsBackToAssistant(t *testing.T) {
	team := testutil.FullTeam()
	r := New(team)

	res, err := r.RunSync(context.Background(), "s1", "hello there")
	require.NoError(t, err)

	assert.Equal(t, flow.IntentGeneral, res.Intent)
	assert.Nil(t, res.Pipeline)
	assert.Equal(t, []core.Identity{core.Assistant}, authors(res.Turns))
	assert.Equal(t, flow.ReasonTerminalRole, res.Reason)
	assert.Equal(t, 0, team[core.DataCollection].(*testutil.StubAgent).Called)
}

func TestRunSync_IterationCap(t *testing.T) {
	r := New(testutil.FullTeam(), func(o *Options) { o.MaxIterations = 2 })

	res, err := r.RunSync(context.Background(), "s1", "complete forecast please")
	require.NoError(t, err)

	assert.Len(t, res.Turns, 2)
	assert.Equal(t, flow.ReasonMaxIterations, res.Reason)
}

func TestRunSync_PipelineExhausted(t *testing.T) {
	r := New(testutil.FullTeam(), func(o *Options) {
		o.TerminalRoles = nil
		o.CompletionPhrases = nil
	})

	res, err := r.RunSync(context.Background(), "s1", "collect the data")
	require.NoError(t, err)

	assert.Equal(t, []core.Identity{core.DataCollection, core.Reporting}, authors(res.Turns))
	assert.Equal(t, flow.ReasonPipelineExhausted, res.Reason)
}

func TestRunSync_CompletionPhraseStopsEarly(t *testing.T) {
	team := testutil.FullTeam()
	team[core.DataCollection] = &testutil.StubAgent{ID: core.DataCollection, Text: "Analysis complete. Nothing unusual."}
	r := New(team)

	res, err := r.RunSync(context.Background(), "s1", "detect anomalies in the flu data")
	require.NoError(t, err)

	assert.Equal(t, []core.Identity{core.DataCollection}, authors(res.Turns))
	assert.Equal(t, flow.ReasonCompletionPhrase, res.Reason)
}

func TestRunSync_TerminatorResetsPerQuery(t *testing.T) {
	r := New(testutil.FullTeam(), func(o *Options) { o.MaxIterations = 4 })

	for range 2 {
		res, err := r.RunSync(context.Background(), "s1", "any unusual spike?")
		require.NoError(t, err)
		assert.Len(t, res.Turns, 3)
		assert.Equal(t, flow.ReasonTerminalRole, res.Reason)
	}
}

func TestRunSync_AgentSeesHistory(t *testing.T) {
	team := testutil.FullTeam()
	var seen []core.Turn
	team[core.Reporting] = &testutil.StubAgent{ID: core.Reporting, Reply: func(rc *core.RunContext) (string, error) {
		seen = rc.History()
		q, _ := rc.LastUserQuery()
		return "report for: " + q, nil
	}}
	r := New(team)

	res, err := r.RunSync(context.Background(), "s1", "collect data")
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, core.User, seen[0].Author)
	assert.Equal(t, core.DataCollection, seen[1].Author)
	final, _ := res.Final()
	assert.Equal(t, "report for: collect data", final.Content)
}

func TestRunSync_AgentError(t *testing.T) {
	boom := errors.New("boom")
	team := testutil.FullTeam()
	team[core.DataCollection] = &testutil.StubAgent{ID: core.DataCollection, Reply: func(*core.RunContext) (string, error) {
		return "", boom
	}}
	r := New(team)

	res, err := r.RunSync(context.Background(), "s1", "gather data")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, res.Turns)

	// The session is released after a failure.
	_, err = r.RunSync(context.Background(), "s1", "hello")
	require.NoError(t, err)
}

func TestRun_EmptyQuery(t *testing.T) {
	r := New(testutil.FullTeam())

	_, _, _, err := r.Run(context.Background(), "s1", "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func blockingTeam() (testutil.AgentSet, chan struct{}, chan struct{}) {
	started := make(chan struct{})
	release := make(chan struct{})
	team := testutil.FullTeam()
	team[core.Assistant] = &testutil.StubAgent{ID: core.Assistant, Reply: func(rc *core.RunContext) (string, error) {
		close(started)
		select {
		case <-release:
			return "ok", nil
		case <-rc.Done():
			return "", rc.Err()
		}
	}}
	return team, started, release
}

func TestRun_SessionBusy(t *testing.T) {
	team, started, release := blockingTeam()
	r := New(team)

	_, turns, errs, err := r.Run(context.Background(), "s1", "hi")
	require.NoError(t, err)
	<-started

	_, _, _, err = r.Run(context.Background(), "s1", "hi again")
	assert.ErrorIs(t, err, ErrSessionBusy)
	assert.ErrorIs(t, r.Forget("s1"), ErrSessionBusy)

	// Other sessions are unaffected.
	res, err := r.RunSync(context.Background(), "s2", "collect data")
	require.NoError(t, err)
	assert.Len(t, res.Turns, 2)

	close(release)
	var got []core.Turn
	for turn := range turns {
		got = append(got, turn)
	}
	for err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].Content)

	require.NoError(t, r.Forget("s1"))
}

func TestRun_Cancel(t *testing.T) {
	team, started, _ := blockingTeam()
	r := New(team)

	runID, turns, errs, err := r.Run(context.Background(), "s1", "hi")
	require.NoError(t, err)
	<-started

	require.NoError(t, r.Cancel(runID))

	for range turns {
	}
	var runErr error
	for err := range errs {
		runErr = err
	}
	assert.ErrorIs(t, runErr, context.Canceled)

	assert.Eventually(t, func() bool {
		return errors.Is(r.Cancel(runID), ErrRunNotFound)
	}, time.Second, 10*time.Millisecond)
}

func TestCancel_UnknownRun(t *testing.T) {
	r := New(testutil.FullTeam())
	assert.ErrorIs(t, r.Cancel("nope"), ErrRunNotFound)
}

func TestRunSync_MissingAgentEndsRun(t *testing.T) {
	team := testutil.FullTeam()
	delete(team, core.AnomalyDetection)
	r := New(team)

	res, err := r.RunSync(context.Background(), "s1", "detect anomalies")
	require.NoError(t, err)
	assert.Equal(t, []core.Identity{core.DataCollection}, authors(res.Turns))
	assert.Equal(t, flow.ReasonPipelineExhausted, res.Reason)
}

// exclusiveAgent records how many Respond calls overlap.
type exclusiveAgent struct {
	inflight atomic.Int32
	overlap  atomic.Bool
}

func (a *exclusiveAgent) Identity() core.Identity { return core.Assistant }
func (a *exclusiveAgent) Description() string     { return "exclusive" }
func (a *exclusiveAgent) Respond(*core.RunContext) (string, error) {
	if a.inflight.Add(1) > 1 {
		a.overlap.Store(true)
	}
	time.Sleep(time.Millisecond)
	a.inflight.Add(-1)
	return "ok", nil
}

func TestRun_ForgetNeverAllowsConcurrentRunsOnOneSession(t *testing.T) {
	exclusive := &exclusiveAgent{}
	team := testutil.FullTeam()
	team[core.Assistant] = exclusive
	r := New(team)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = r.Forget("s1")
			}
		}
	}()

	var runners sync.WaitGroup
	for range 8 {
		runners.Add(1)
		go func() {
			defer runners.Done()
			for range 50 {
				_, turns, errs, err := r.Run(context.Background(), "s1", "hello")
				if err != nil {
					assert.ErrorIs(t, err, ErrSessionBusy)
					continue
				}
				for range turns {
				}
				for err := range errs {
					assert.NoError(t, err)
				}
			}
		}()
	}

	runners.Wait()
	close(stop)
	wg.Wait()

	assert.False(t, exclusive.overlap.Load(), "two runs of one session overlapped")
}
