package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kadirpekel/anvil/pkg/config"
	"github.com/kadirpekel/anvil/pkg/llms"
	"github.com/kadirpekel/anvil/pkg/protocol"
	"github.com/kadirpekel/anvil/pkg/tools"
	"github.com/kadirpekel/anvil/pkg/utils"
)

// Phase is the loop state. Transitions:
// AWAITING_MODEL → DISPATCHING → OBSERVING → (AWAITING_MODEL | DONE | STOPPED_BUDGET)
type Phase string

const (
	PhaseAwaitingModel Phase = "AWAITING_MODEL"
	PhaseDispatching   Phase = "DISPATCHING"
	PhaseObserving     Phase = "OBSERVING"
	PhaseDone          Phase = "DONE"
	PhaseStoppedBudget Phase = "STOPPED_BUDGET"
)

// StepEvent reports one recorded (step, outcome) pair as it happens.
type StepEvent struct {
	Index  int
	Step   *protocol.Step
	Result tools.ToolResult
}

// RunResult is the terminal outcome of one session run.
type RunResult struct {
	Phase        Phase
	FinalMessage string
	Steps        int
}

// Session drives one goal through the orchestration loop. A session is
// single-threaded: one outstanding model call or action at a time, and
// exactly one action executes per iteration.
type Session struct {
	provider   llms.LLMProvider
	catalog    *tools.ToolRegistry
	state      *State
	transcript *Transcript
	config     *config.AgentConfig
	counter    *utils.TokenCounter
	onStep     func(StepEvent)

	phase    Phase
	messages []llms.Message
}

type SessionOption func(*Session)

// WithStepCallback registers a callback invoked after every recorded
// (step, outcome) pair.
func WithStepCallback(fn func(StepEvent)) SessionOption {
	return func(s *Session) {
		s.onStep = fn
	}
}

// WithTokenCounter sets the counter used for prompt budgeting. Without
// one, token counts are approximated from byte length.
func WithTokenCounter(counter *utils.TokenCounter) SessionOption {
	return func(s *Session) {
		s.counter = counter
	}
}

func NewSession(provider llms.LLMProvider, catalog *tools.ToolRegistry, state *State, cfg *config.AgentConfig, opts ...SessionOption) (*Session, error) {
	if provider == nil {
		return nil, fmt.Errorf("session requires an LLM provider")
	}
	if catalog == nil {
		return nil, fmt.Errorf("session requires a tool catalog")
	}
	if state == nil {
		return nil, fmt.Errorf("session requires agent state")
	}
	if cfg == nil {
		cfg = &config.AgentConfig{}
	}
	cfg.SetDefaults()

	s := &Session{
		provider:   provider,
		catalog:    catalog,
		state:      state,
		transcript: NewTranscript(),
		config:     cfg,
		phase:      PhaseAwaitingModel,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Session) Phase() Phase {
	return s.phase
}

func (s *Session) State() *State {
	return s.state
}

func (s *Session) Transcript() *Transcript {
	return s.transcript
}

// Run executes the loop for one goal. It terminates on a final answer
// (DONE), on budget exhaustion (STOPPED_BUDGET, not an error), or on
// context cancellation between iterations.
func (s *Session) Run(ctx context.Context, goal string) (*RunResult, error) {
	if goal == "" {
		return nil, fmt.Errorf("goal cannot be empty")
	}

	s.messages = []llms.Message{
		{Role: llms.RoleSystem, Content: s.systemPrompt()},
		{Role: llms.RoleUser, Content: goal},
	}

	for step := 0; step < s.config.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return &RunResult{Phase: s.phase, Steps: step}, err
		}

		s.phase = PhaseAwaitingModel
		s.messages[0].Content = s.systemPrompt()
		s.clampMessages()

		raw, _, err := s.provider.Generate(ctx, s.messages)
		if err != nil {
			slog.Warn("Model call failed", "step", step, "error", err)
			s.recordFailure(nil, "model", fmt.Sprintf("model call failed: %v", err))
			continue
		}
		s.messages = append(s.messages, llms.Message{Role: llms.RoleAssistant, Content: raw})

		s.phase = PhaseDispatching
		parsed, err := protocol.ParseStep(raw)
		if err != nil {
			slog.Warn("Malformed model reply", "step", step, "error", err)
			s.recordFailure(nil, "decision", err.Error())
			continue
		}

		if parsed.IsFinal() {
			result := tools.ToolResult{
				Success:  true,
				Content:  parsed.Final.Message,
				ToolName: "final",
			}
			s.record(parsed, result)
			s.phase = PhaseDone
			return &RunResult{
				Phase:        PhaseDone,
				FinalMessage: parsed.Final.Message,
				Steps:        step + 1,
			}, nil
		}

		s.phase = PhaseObserving
		result, _ := s.catalog.ExecuteTool(ctx, parsed.Action.Tool, parsed.Action.Args)

		s.record(parsed, result)
		s.state.UpdateFromOutcome(parsed.Action.Tool, parsed.Action.Args, result)
	}

	s.phase = PhaseStoppedBudget
	return &RunResult{
		Phase: PhaseStoppedBudget,
		Steps: s.config.MaxSteps,
	}, nil
}

// record appends an entry, notifies the callback, and feeds the outcome
// back to the model as the next observation.
func (s *Session) record(step *protocol.Step, result tools.ToolResult) {
	entry := s.transcript.Append(step, result)

	if s.onStep != nil {
		s.onStep(StepEvent{
			Index:  s.transcript.Len() - 1,
			Step:   entry.Step,
			Result: entry.Result,
		})
	}

	if step == nil || !step.IsFinal() {
		observation := s.truncate(observationPrompt(result), 1500)
		s.messages = append(s.messages, llms.Message{Role: llms.RoleUser, Content: observation})
	}
}

// recordFailure converts a loop-level failure (transport, parsing) into
// an outcome so it lands in the transcript and the next prompt. It
// counts against the step budget, which guarantees termination even
// against a permanently failing model.
func (s *Session) recordFailure(step *protocol.Step, source, message string) {
	s.record(step, tools.ToolResult{
		Success:  false,
		Error:    message,
		ToolName: source,
	})
}

func (s *Session) systemPrompt() string {
	return buildSystemPrompt(s.catalog.ListTools(), s.state.ContextString())
}

// clampMessages drops the oldest observations when the assembled prompt
// exceeds the context budget. The system prompt and the goal are always
// kept.
func (s *Session) clampMessages() {
	for len(s.messages) > 3 && s.totalTokens() > s.config.ContextBudget {
		s.messages = append(s.messages[:2], s.messages[3:]...)
	}
}

func (s *Session) totalTokens() int {
	total := 0
	for _, msg := range s.messages {
		total += s.countTokens(msg.Content)
	}
	return total
}

func (s *Session) countTokens(text string) int {
	if s.counter != nil {
		return s.counter.Count(text)
	}
	// Rough heuristic when no tokenizer is available.
	return len(text) / 4
}

func (s *Session) truncate(text string, maxTokens int) string {
	if s.counter != nil {
		return s.counter.Truncate(text, maxTokens)
	}
	return utils.Clip(text, maxTokens*4)
}
