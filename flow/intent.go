package flow

import (
	"strings"

	"github.com/hupe1980/sentinelmesh/core"
)

// Intent is the category a user query is classified into.
type Intent int

const (
	// IntentGeneral falls through to the assistant without a pipeline.
	IntentGeneral Intent = iota
	// IntentComprehensive runs every surveillance stage.
	IntentComprehensive
	// IntentForecast runs collection, anomaly detection and prediction.
	IntentForecast
	// IntentAnomaly runs collection and anomaly detection.
	IntentAnomaly
	// IntentData runs collection only.
	IntentData
	// IntentAlert runs every stage up to alerting.
	IntentAlert
)

// Keyword sets. Matching is lowercase substring containment, not word
// boundaries: "spreadsheet" contains "spread" and "call" contains "all".
var (
	BreadthKeywords    = []string{"full", "complete", "comprehensive", "all"}
	PredictionKeywords = []string{"predict", "forecast", "spread", "outbreak", "projection", "future", "weeks"}
	ReportKeywords     = []string{"report", "summary", "comprehensive", "analysis", "assessment"}
	AnomalyKeywords    = []string{"anomaly", "anomalies", "unusual", "pattern", "detect", "abnormal", "spike"}
	DataKeywords       = []string{"data", "collect", "sources", "monitor", "track", "gather"}
	AlertKeywords      = []string{"alert", "warning", "notify", "notification", "urgent", "emergency"}
)

var pipelines = map[Intent][]core.Identity{
	IntentComprehensive: {core.DataCollection, core.AnomalyDetection, core.Prediction, core.Alert, core.Reporting},
	IntentForecast:      {core.DataCollection, core.AnomalyDetection, core.Prediction, core.Reporting},
	IntentAnomaly:       {core.DataCollection, core.AnomalyDetection, core.Reporting},
	IntentData:          {core.DataCollection, core.Reporting},
	IntentAlert:         {core.DataCollection, core.AnomalyDetection, core.Prediction, core.Alert, core.Reporting},
}

// Classify maps a user query to an intent. Categories are tested in a fixed
// priority order and the first match wins, so a query mentioning both "full"
// and "forecast" is comprehensive even though it also matches forecast.
func Classify(query string) Intent {
	q := strings.ToLower(query)

	switch {
	case containsAny(q, BreadthKeywords) && (containsAny(q, PredictionKeywords) || containsAny(q, ReportKeywords)):
		return IntentComprehensive
	case containsAny(q, PredictionKeywords):
		return IntentForecast
	case containsAny(q, AnomalyKeywords):
		return IntentAnomaly
	case containsAny(q, DataKeywords):
		return IntentData
	case containsAny(q, AlertKeywords):
		return IntentAlert
	default:
		return IntentGeneral
	}
}

// Pipeline returns a fresh copy of the agent sequence for the intent. The
// general intent has no pipeline and returns nil.
func (i Intent) Pipeline() []core.Identity {
	p, ok := pipelines[i]
	if !ok {
		return nil
	}
	out := make([]core.Identity, len(p))
	copy(out, p)
	return out
}

// Entry returns the identity that handles the query first.
func (i Intent) Entry() core.Identity {
	if p, ok := pipelines[i]; ok {
		return p[0]
	}
	return core.Assistant
}

// String returns a stable, log friendly name.
func (i Intent) String() string {
	switch i {
	case IntentGeneral:
		return "general"
	case IntentComprehensive:
		return "comprehensive"
	case IntentForecast:
		return "forecast"
	case IntentAnomaly:
		return "anomaly"
	case IntentData:
		return "data"
	case IntentAlert:
		return "alert"
	default:
		return "unknown"
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
