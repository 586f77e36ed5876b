package agent

import (
	"fmt"

	"github.com/hupe1980/sentinelmesh/core"
	"github.com/hupe1980/sentinelmesh/model"
)

// TeamOptions configures NewSurveillanceTeam.
type TeamOptions struct {
	PredictionHorizonWeeks int
	AnomalyThreshold       float64
	HighRiskThreshold      float64
	MediumRiskThreshold    float64
	LowRiskThreshold       float64
	ReportBaseURL          string
	EnableStreaming        bool
	MaxHistoryMessages     int
	OnPartial              func(id core.Identity, chunk string)
	// Instructions overrides the built in role instructions. Values use Go
	// template syntax and see the same variables as the defaults.
	Instructions map[core.Identity]string
}

// DefaultTeamOptions returns the surveillance defaults.
func DefaultTeamOptions() TeamOptions {
	return TeamOptions{
		PredictionHorizonWeeks: 3,
		AnomalyThreshold:       0.75,
		HighRiskThreshold:      0.8,
		MediumRiskThreshold:    0.5,
		LowRiskThreshold:       0.3,
		ReportBaseURL:          DefaultReportBaseURL,
		MaxHistoryMessages:     20,
	}
}

var roleDescriptions = map[core.Identity]string{
	core.DataCollection:   "Collects surveillance data from health agencies and open sources",
	core.AnomalyDetection: "Detects unusual patterns and spikes against historical baselines",
	core.Prediction:       "Forecasts outbreak spread over the prediction horizon",
	core.Alert:            "Assesses risk levels and drafts alerts for health authorities",
	core.Reporting:        "Writes the final surveillance report",
	core.Assistant:        "Answers general questions about the surveillance system",
}

var roleInstructions = map[core.Identity]string{
	core.DataCollection: `You are the data collection agent of a disease surveillance team.
Gather the case counts, sources and time ranges relevant to: "{{.query}}".
Summarize the collected data as a compact list with the source of every figure.`,
	core.AnomalyDetection: `You are the anomaly detection agent of a disease surveillance team.
Compare the collected data against historical baselines and flag every deviation
whose anomaly score exceeds {{.anomaly_threshold}}. Report disease, region, score and severity.`,
	core.Prediction: `You are the prediction agent of a disease surveillance team.
Forecast case numbers for the next {{.horizon_weeks}} weeks from the collected data and detected anomalies.
Give a point estimate and a confidence interval per week.`,
	core.Alert: `You are the alert agent of a disease surveillance team.
Classify the risk of every finding: high above {{percent .high_risk}}, medium above {{percent .medium_risk}},
low above {{percent .low_risk}}. Draft one alert per high or medium risk finding.`,
	core.Reporting: `You are the reporting agent of a disease surveillance team.
Write the final report for "{{.query}}" in markdown: executive summary, data, anomalies,
forecast, alerts and recommendations. Only use findings of the previous agents.`,
	core.Assistant: `You are the assistant of a disease surveillance system.
Answer the user's question directly and briefly. You can explain what the team can do:
collect data, detect anomalies, forecast outbreaks, raise alerts and write reports.`,
}

// NewSurveillanceTeam builds the six role agents on top of llm and registers
// them in a new Registry. The reporting role is wrapped in a ReportingAgent.
func NewSurveillanceTeam(llm model.Model, optFns ...func(o *TeamOptions)) (*Registry, error) {
	if llm == nil {
		return nil, fmt.Errorf("surveillance team: model is nil")
	}

	opts := DefaultTeamOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	vars := map[string]any{
		"horizon_weeks":     opts.PredictionHorizonWeeks,
		"anomaly_threshold": opts.AnomalyThreshold,
		"high_risk":         opts.HighRiskThreshold,
		"medium_risk":       opts.MediumRiskThreshold,
		"low_risk":          opts.LowRiskThreshold,
	}

	reg, err := NewRegistry()
	if err != nil {
		return nil, err
	}

	for _, id := range core.Identities() {
		text := roleInstructions[id]
		if override, ok := opts.Instructions[id]; ok {
			text = override
		}

		var a core.Agent = NewModelAgent(id, llm, func(o *ModelAgentOptions) {
			o.Instruction = NewInstructionFromTemplate(text, vars)
			o.Description = roleDescriptions[id]
			o.EnableStreaming = opts.EnableStreaming
			o.MaxHistoryMessages = opts.MaxHistoryMessages
			o.OnPartial = opts.OnPartial
		})
		if id == core.Reporting {
			a = NewReportingAgent(a, opts.ReportBaseURL)
		}

		if err := reg.Register(a); err != nil {
			return nil, fmt.Errorf("surveillance team: %w", err)
		}
	}
	return reg, nil
}
