package agent

import (
	"fmt"
	"strings"

	"github.com/hupe1980/sentinelmesh/core"
	"github.com/hupe1980/sentinelmesh/model"
)

// ModelAgentOptions configures a ModelAgent instance.
//
// Use functional options with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	Instruction        Instruction
	Description        string
	EnableStreaming    bool
	MaxHistoryMessages int
	// OnPartial receives streamed chunks when EnableStreaming is set.
	OnPartial func(id core.Identity, chunk string)
}

// ModelAgent answers a turn by prompting a language model with its role
// instruction and the conversation so far.
//
// User turns become user messages. Agent turns become assistant messages in
// transcript form ("NAME > text") so the model can tell the team members
// apart. An echoed self marker is removed from the reply.
type ModelAgent struct {
	BaseAgent
	llm                model.Model
	instruction        Instruction
	enableStreaming    bool
	maxHistoryMessages int
	onPartial          func(id core.Identity, chunk string)
}

// NewModelAgent creates a new model based agent with sensible defaults.
func NewModelAgent(id core.Identity, llm model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instruction:        NewInstructionFromText(fmt.Sprintf("You are %s, a member of a disease surveillance team.", id)),
		MaxHistoryMessages: 20,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	base := NewBaseAgent(id)
	if opts.Description != "" {
		base.SetDescription(opts.Description)
	}

	return &ModelAgent{
		BaseAgent:          base,
		llm:                llm,
		instruction:        opts.Instruction,
		enableStreaming:    opts.EnableStreaming,
		maxHistoryMessages: opts.MaxHistoryMessages,
		onPartial:          opts.OnPartial,
	}
}

// Model returns the language model instance.
func (a *ModelAgent) Model() model.Model { return a.llm }

// IsStreamingEnabled returns whether streaming responses are enabled.
func (a *ModelAgent) IsStreamingEnabled() bool { return a.enableStreaming }

// MaxHistoryMessages returns the maximum number of history messages sent to the model.
func (a *ModelAgent) MaxHistoryMessages() int { return a.maxHistoryMessages }

// ResolveInstructions produces the final instruction string (system prompt).
func (a *ModelAgent) ResolveInstructions(rc *core.RunContext) (string, error) {
	return a.instruction.Resolve(rc)
}

// BuildRequest converts the run context into a model request.
func (a *ModelAgent) BuildRequest(rc *core.RunContext) (model.Request, error) {
	instructions, err := a.ResolveInstructions(rc)
	if err != nil {
		return model.Request{}, fmt.Errorf("resolve instructions: %w", err)
	}

	history := rc.History()
	if a.maxHistoryMessages > 0 && len(history) > a.maxHistoryMessages {
		history = history[len(history)-a.maxHistoryMessages:]
	}

	msgs := make([]model.Message, 0, len(history))
	for _, t := range history {
		if t.IsUser() {
			msgs = append(msgs, model.Message{Role: model.RoleUser, Text: t.Content})
			continue
		}
		msgs = append(msgs, model.Message{Role: model.RoleAssistant, Text: t.Transcript()})
	}

	return model.Request{
		Instructions: instructions,
		Messages:     msgs,
		Stream:       a.enableStreaming,
	}, nil
}

// Respond implements core.Agent.
func (a *ModelAgent) Respond(rc *core.RunContext) (string, error) {
	rc.LogDebug("agent.respond.start", "streaming", a.enableStreaming)

	req, err := a.BuildRequest(rc)
	if err != nil {
		return "", err
	}

	var onPartial func(model.Response)
	if a.enableStreaming && a.onPartial != nil {
		onPartial = func(r model.Response) { a.onPartial(a.Identity(), r.Text) }
	}

	resp, err := model.Collect(rc.Context, a.llm, req, onPartial)
	if err != nil {
		rc.LogError("agent.respond.error", "error", err.Error())
		return "", fmt.Errorf("%s: generate: %w", a.Identity(), err)
	}

	text := strings.TrimSpace(core.TrimMarker(a.Identity(), resp.Text))

	attrs := []any{"chars", len(text), "finish_reason", resp.FinishReason}
	if resp.Usage != nil {
		attrs = append(attrs, "total_tokens", resp.Usage.TotalTokens)
	}
	rc.LogDebug("agent.respond.complete", attrs...)

	return text, nil
}
