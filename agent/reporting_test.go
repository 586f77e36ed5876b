package agent

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sentinelmesh/artifact"
	"github.com/hupe1980/sentinelmesh/core"
	"github.com/hupe1980/sentinelmesh/logging"
)

var reportFooter = regexp.MustCompile(`Report ID: (report-[0-9a-f-]+\.md)\nDownload URL: https://reports\.example\.org/test-session/(report-[0-9a-f-]+\.md)$`)

func TestReportingAgent_SavesReport(t *testing.T) {
	store := artifact.NewInMemoryStore()
	rc := core.NewRunContext(context.Background(), "test-session", "run-1", core.Reporting, nil, store, logging.NoOpLogger{})

	r := NewReportingAgent(NewFuncAgent(core.Reporting, echo("# Weekly report")), "https://reports.example.org/")
	assert.Equal(t, core.Reporting, r.Identity())

	out, err := r.Respond(rc)
	require.NoError(t, err)
	assert.Contains(t, out, "# Weekly report")
	assert.Contains(t, out, "Report generated successfully")

	m := reportFooter.FindStringSubmatch(out)
	require.Len(t, m, 3, out)
	assert.Equal(t, m[1], m[2])

	data, err := store.Get("test-session", m[1])
	require.NoError(t, err)
	assert.Equal(t, "# Weekly report", string(data))
}

func TestReportingAgent_NoStore(t *testing.T) {
	rc := core.NewRunContext(context.Background(), "s", "r", core.Reporting, nil, nil, logging.NoOpLogger{})
	r := NewReportingAgent(NewFuncAgent(core.Reporting, echo("body")), "")

	out, err := r.Respond(rc)
	require.NoError(t, err)
	assert.Equal(t, "body", out)
	assert.Equal(t, "/reports/s/x.md", r.DownloadURL("s", "x.md"))
}

func TestReportingAgent_InnerError(t *testing.T) {
	boom := errors.New("boom")
	r := NewReportingAgent(NewFuncAgent(core.Reporting, func(*core.RunContext) (string, error) { return "", boom }), "")
	_, err := r.Respond(newTestRunContext(core.Reporting, nil))
	assert.ErrorIs(t, err, boom)
}
