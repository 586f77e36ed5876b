package agent

import (
	"fmt"
	"strings"

	"github.com/hupe1980/sentinelmesh/core"
)

// DefaultReportBaseURL prefixes report download links.
const DefaultReportBaseURL = "/reports"

// ReportingAgent decorates the reporting role: the inner agent writes the
// report, ReportingAgent stores it as a markdown artifact of the session and
// appends the report id and download link to the turn.
//
// Storage failures are logged and the report text is returned without the
// footer; the turn itself never fails because of the artifact store.
type ReportingAgent struct {
	inner   core.Agent
	baseURL string
}

// NewReportingAgent wraps inner. An empty baseURL selects DefaultReportBaseURL.
func NewReportingAgent(inner core.Agent, baseURL string) *ReportingAgent {
	if baseURL == "" {
		baseURL = DefaultReportBaseURL
	}
	return &ReportingAgent{inner: inner, baseURL: strings.TrimRight(baseURL, "/")}
}

// Identity implements core.Agent.
func (r *ReportingAgent) Identity() core.Identity { return r.inner.Identity() }

// Description implements core.Agent.
func (r *ReportingAgent) Description() string { return r.inner.Description() }

// Respond implements core.Agent.
func (r *ReportingAgent) Respond(rc *core.RunContext) (string, error) {
	text, err := r.inner.Respond(rc)
	if err != nil {
		return "", err
	}

	id := ReportID()
	if err := rc.SaveArtifact(id, []byte(text)); err != nil {
		rc.LogWarn("report.save.failed", "error", err.Error())
		return text, nil
	}

	url := r.DownloadURL(rc.SessionID, id)
	rc.LogInfo("report.saved", "report_id", id)

	return fmt.Sprintf("%s\n\n📄 Report generated successfully. Report ID: %s\nDownload URL: %s", text, id, url), nil
}

// DownloadURL returns the link under which a stored report is served.
func (r *ReportingAgent) DownloadURL(sessionID, reportID string) string {
	return r.baseURL + "/" + sessionID + "/" + reportID
}

// ReportID generates a new artifact id for a report.
func ReportID() string { return "report-" + core.NewID() + ".md" }
