package core

// Identity names the author of a turn. Agent identities form a closed set of
// surveillance roles; User is the pseudo identity for human input.
type Identity string

const (
	// User is the pseudo identity attached to human-authored turns.
	User Identity = "user"

	// DataCollection gathers surveillance data from the configured sources.
	DataCollection Identity = "DATA_COLLECTION_AGENT"
	// AnomalyDetection compares current signals against statistical baselines.
	AnomalyDetection Identity = "ANOMALY_DETECTION_AGENT"
	// Prediction projects outbreak spread over the forecast horizon.
	Prediction Identity = "PREDICTION_AGENT"
	// Alert decides whether findings warrant a public health alert.
	Alert Identity = "ALERT_AGENT"
	// Reporting turns the collected findings into a user-facing report.
	Reporting Identity = "REPORTING_AGENT"
	// Assistant answers general questions that need no pipeline.
	Assistant Identity = "ASSISTANT_AGENT"
)

// agentIdentities lists every agent role in canonical pipeline order.
var agentIdentities = []Identity{
	DataCollection,
	AnomalyDetection,
	Prediction,
	Alert,
	Reporting,
	Assistant,
}

// Identities returns all agent identities in canonical order. The slice is a
// copy and safe for caller mutation.
func Identities() []Identity {
	out := make([]Identity, len(agentIdentities))
	copy(out, agentIdentities)
	return out
}

// ParseIdentity resolves s to an agent identity. The User pseudo identity and
// unknown names report false.
func ParseIdentity(s string) (Identity, bool) {
	for _, id := range agentIdentities {
		if string(id) == s {
			return id, true
		}
	}
	return "", false
}

// IsAgent reports whether the identity is one of the known agent roles.
func (i Identity) IsAgent() bool {
	_, ok := ParseIdentity(string(i))
	return ok
}

// String implements fmt.Stringer.
func (i Identity) String() string { return string(i) }
