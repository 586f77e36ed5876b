package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/sentinelmesh/core"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Intent
	}{
		{"comprehensive forecast", "Can you give a full comprehensive outbreak forecast report?", IntentComprehensive},
		{"breadth with report keyword", "I need a complete summary of the region", IntentComprehensive},
		{"breadth alone is not comprehensive", "show me everything in full", IntentGeneral},
		{"forecast", "Predict influenza cases for next month", IntentForecast},
		{"weeks implies forecast", "what happens in two weeks?", IntentForecast},
		{"anomaly", "Are there any unusual spikes in Lagos?", IntentAnomaly},
		{"data", "Collect the latest data from WHO", IntentData},
		{"alert", "Send an urgent notification", IntentAlert},
		{"fallback", "Hello, who are you?", IntentGeneral},
		{"empty", "", IntentGeneral},
		{"case insensitive", "FORECAST DENGUE", IntentForecast},
		{"forecast beats anomaly", "forecast the spike", IntentForecast},
		{"anomaly beats data", "detect anomalies in the data", IntentAnomaly},
		{"data beats alert", "monitor and alert", IntentData},
		// Substring containment, not word boundaries.
		{"spreadsheet matches spread", "export the spreadsheet", IntentForecast},
		{"call contains all", "call me about the outbreak", IntentComprehensive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query))
		})
	}
}

func TestIntentPipeline(t *testing.T) {
	assert.Equal(t, []core.Identity{
		core.DataCollection, core.AnomalyDetection, core.Prediction, core.Alert, core.Reporting,
	}, IntentComprehensive.Pipeline())
	assert.Equal(t, []core.Identity{
		core.DataCollection, core.AnomalyDetection, core.Prediction, core.Reporting,
	}, IntentForecast.Pipeline())
	assert.Equal(t, []core.Identity{
		core.DataCollection, core.AnomalyDetection, core.Reporting,
	}, IntentAnomaly.Pipeline())
	assert.Equal(t, []core.Identity{core.DataCollection, core.Reporting}, IntentData.Pipeline())
	assert.Equal(t, []core.Identity{
		core.DataCollection, core.AnomalyDetection, core.Prediction, core.Alert, core.Reporting,
	}, IntentAlert.Pipeline())
	assert.Nil(t, IntentGeneral.Pipeline())

	t.Run("returns a copy", func(t *testing.T) {
		p := IntentData.Pipeline()
		p[0] = core.Assistant
		assert.Equal(t, core.DataCollection, IntentData.Pipeline()[0])
	})
}

func TestIntentEntry(t *testing.T) {
	assert.Equal(t, core.DataCollection, IntentAnomaly.Entry())
	assert.Equal(t, core.Assistant, IntentGeneral.Entry())
}

func TestIntentString(t *testing.T) {
	assert.Equal(t, "comprehensive", IntentComprehensive.String())
	assert.Equal(t, "general", IntentGeneral.String())
	assert.Equal(t, "unknown", Intent(42).String())
}
