package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kadirpekel/anvil/pkg/config"
	"github.com/kadirpekel/anvil/pkg/llms"
	"github.com/kadirpekel/anvil/pkg/tools"
)

// scriptedProvider replays a fixed sequence of model replies. Once the
// script is exhausted it keeps returning the last reply.
type scriptedProvider struct {
	replies []string
	errs    []error
	calls   int
	seen    [][]llms.Message
}

func (p *scriptedProvider) Generate(ctx context.Context, messages []llms.Message) (string, int, error) {
	idx := p.calls
	p.calls++
	p.seen = append(p.seen, append([]llms.Message(nil), messages...))

	if idx < len(p.errs) && p.errs[idx] != nil {
		return "", 0, p.errs[idx]
	}
	if idx >= len(p.replies) {
		idx = len(p.replies) - 1
	}
	if idx < 0 {
		return "", 0, fmt.Errorf("no scripted reply")
	}
	return p.replies[idx], 0, nil
}

func (p *scriptedProvider) GetModelName() string    { return "scripted" }
func (p *scriptedProvider) GetMaxTokens() int       { return 4096 }
func (p *scriptedProvider) GetTemperature() float64 { return 0 }
func (p *scriptedProvider) Close() error            { return nil }

func newTestSession(t *testing.T, workspace string, provider llms.LLMProvider, opts ...SessionOption) *Session {
	t.Helper()

	catalog, err := tools.NewToolRegistryWithConfig(workspace, config.GetDefaultToolConfigs())
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}

	cfg := &config.AgentConfig{MaxSteps: 5}
	cfg.SetDefaults()

	session, err := NewSession(provider, catalog, NewState("", cfg.RecentFilesCap), cfg, opts...)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return session
}

func actionReply(tool string, args string) string {
	return fmt.Sprintf(`{"thought": "next step", "action": {"tool": %q, "args": %s, "reason": "progress"}}`, tool, args)
}

func finalReply(message string) string {
	return fmt.Sprintf(`{"thought": "done", "final": {"message": %q}}`, message)
}

func TestSessionWriteThenRunFlow(t *testing.T) {
	workspace := t.TempDir()

	provider := &scriptedProvider{replies: []string{
		actionReply("write_file", `{"path": "hello.sh", "content": "echo Hello, World!"}`),
		actionReply("run_script", `{"path": "hello.sh"}`),
		finalReply("Created and ran hello.sh successfully"),
	}}

	var events []StepEvent
	session := newTestSession(t, workspace, provider, WithStepCallback(func(e StepEvent) {
		events = append(events, e)
	}))

	result, err := session.Run(context.Background(), "write a hello world script and run it")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Phase != PhaseDone {
		t.Fatalf("expected DONE, got %s", result.Phase)
	}
	if !strings.Contains(result.FinalMessage, "success") {
		t.Errorf("unexpected final message: %q", result.FinalMessage)
	}
	if result.Steps != 3 {
		t.Errorf("expected 3 steps, got %d", result.Steps)
	}

	entries := session.Transcript().Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 transcript entries, got %d", len(entries))
	}
	for i := 0; i < 2; i++ {
		if !entries[i].Result.Success {
			t.Errorf("entry %d: expected success, got error %q", i, entries[i].Result.Error)
		}
	}
	if !strings.Contains(entries[1].Result.Content, "Hello, World!") {
		t.Errorf("expected script output in second outcome, got %q", entries[1].Result.Content)
	}

	if got := session.State().LastModifiedFile(); got != "hello.sh" {
		t.Errorf("expected last modified file hello.sh, got %q", got)
	}
	if recent := session.State().RecentlyCreatedFiles(); len(recent) != 1 || recent[0] != "hello.sh" {
		t.Errorf("unexpected recently created files: %v", recent)
	}

	if len(events) != 3 {
		t.Errorf("expected 3 step events, got %d", len(events))
	}
}

func TestSessionBudgetExhaustionOnMalformedReplies(t *testing.T) {
	workspace := t.TempDir()

	provider := &scriptedProvider{replies: []string{"this is not json at all"}}
	session := newTestSession(t, workspace, provider)

	result, err := session.Run(context.Background(), "do something")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Phase != PhaseStoppedBudget {
		t.Fatalf("expected STOPPED_BUDGET, got %s", result.Phase)
	}
	if result.Steps != 5 {
		t.Errorf("expected 5 steps, got %d", result.Steps)
	}

	entries := session.Transcript().Entries()
	if len(entries) != 5 {
		t.Fatalf("expected 5 transcript entries, got %d", len(entries))
	}
	for i, entry := range entries {
		if entry.Result.Success {
			t.Errorf("entry %d: expected failing outcome", i)
		}
		if !strings.Contains(entry.Result.Error, "malformed step") {
			t.Errorf("entry %d: expected malformed-step error, got %q", i, entry.Result.Error)
		}
	}
}

func TestSessionBudgetExhaustionOnProviderErrors(t *testing.T) {
	workspace := t.TempDir()

	provider := &scriptedProvider{
		errs: []error{
			fmt.Errorf("network down"), fmt.Errorf("network down"), fmt.Errorf("network down"),
			fmt.Errorf("network down"), fmt.Errorf("network down"),
		},
	}
	session := newTestSession(t, workspace, provider)

	result, err := session.Run(context.Background(), "do something")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Phase != PhaseStoppedBudget {
		t.Fatalf("expected STOPPED_BUDGET, got %s", result.Phase)
	}

	entry, ok := session.Transcript().Last()
	if !ok {
		t.Fatal("expected transcript entries")
	}
	if !strings.Contains(entry.Result.Error, "model call failed") {
		t.Errorf("expected model failure outcome, got %q", entry.Result.Error)
	}
}

func TestSessionPathEscapeBecomesOutcome(t *testing.T) {
	workspace := t.TempDir()

	provider := &scriptedProvider{replies: []string{
		actionReply("read_file", `{"path": "../secret.txt"}`),
		finalReply("could not read that file"),
	}}
	session := newTestSession(t, workspace, provider)

	result, err := session.Run(context.Background(), "read ../secret.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Phase != PhaseDone {
		t.Fatalf("expected DONE, got %s", result.Phase)
	}

	entries := session.Transcript().Entries()
	if entries[0].Result.Success {
		t.Fatal("expected failing outcome for escaping path")
	}
	if !strings.Contains(entries[0].Result.Error, "escapes workspace root") {
		t.Errorf("expected escape message, got %q", entries[0].Result.Error)
	}

	if _, err := os.Stat(filepath.Join(filepath.Dir(workspace), "secret.txt")); !os.IsNotExist(err) {
		t.Error("file outside workspace was touched")
	}
}

func TestSessionUnknownActionBecomesOutcome(t *testing.T) {
	workspace := t.TempDir()

	provider := &scriptedProvider{replies: []string{
		actionReply("frobnicate", `{}`),
		finalReply("that tool does not exist"),
	}}
	session := newTestSession(t, workspace, provider)

	result, err := session.Run(context.Background(), "frobnicate the widget")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Phase != PhaseDone {
		t.Fatalf("expected DONE after self-correction, got %s", result.Phase)
	}

	entries := session.Transcript().Entries()
	if entries[0].Result.Success {
		t.Fatal("expected failing outcome for unknown tool")
	}
	if !strings.Contains(entries[0].Result.Error, "not found") {
		t.Errorf("expected not-found message, got %q", entries[0].Result.Error)
	}
}

func TestSessionClampsPromptToContextBudget(t *testing.T) {
	workspace := t.TempDir()

	pad := strings.Repeat("x", 400)
	provider := &scriptedProvider{replies: []string{
		actionReply("chat", `{"message": "alpha-observation `+pad+`"}`),
		actionReply("chat", `{"message": "beta-observation `+pad+`"}`),
		actionReply("chat", `{"message": "gamma-observation `+pad+`"}`),
		finalReply("all done"),
	}}

	catalog, err := tools.NewToolRegistryWithConfig(workspace, config.GetDefaultToolConfigs())
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}

	cfg := &config.AgentConfig{MaxSteps: 10, ContextBudget: 100}
	cfg.SetDefaults()

	session, err := NewSession(provider, catalog, NewState("", cfg.RecentFilesCap), cfg)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	goal := "have a long conversation"
	result, err := session.Run(context.Background(), goal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Phase != PhaseDone {
		t.Fatalf("expected DONE, got %s", result.Phase)
	}
	if len(provider.seen) != 4 {
		t.Fatalf("expected 4 model calls, got %d", len(provider.seen))
	}

	// With a budget this small the prompt is clamped down to the system
	// prompt, the goal, and the newest observation.
	last := provider.seen[3]
	if len(last) != 3 {
		t.Fatalf("expected prompt clamped to 3 messages, got %d", len(last))
	}
	if last[0].Role != llms.RoleSystem {
		t.Errorf("expected system prompt first, got role %q", last[0].Role)
	}
	if last[1].Content != goal {
		t.Errorf("expected goal preserved, got %q", last[1].Content)
	}
	if !strings.Contains(last[2].Content, "gamma-observation") {
		t.Errorf("expected newest observation kept, got %.80q", last[2].Content)
	}
	for i, msg := range last {
		if strings.Contains(msg.Content, "alpha-observation") {
			t.Errorf("message %d: oldest observation should have been dropped", i)
		}
	}
}

func TestSessionKeepsObservationsUnderBudget(t *testing.T) {
	workspace := t.TempDir()

	provider := &scriptedProvider{replies: []string{
		actionReply("chat", `{"message": "alpha-observation"}`),
		actionReply("chat", `{"message": "beta-observation"}`),
		finalReply("all done"),
	}}
	session := newTestSession(t, workspace, provider)

	if _, err := session.Run(context.Background(), "chat twice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Default budget: nothing is dropped, so the third call sees the
	// system prompt, the goal, and two reply/observation pairs.
	last := provider.seen[2]
	if len(last) != 6 {
		t.Fatalf("expected 6 messages under budget, got %d", len(last))
	}
	joined := ""
	for _, msg := range last {
		joined += msg.Content + "\n"
	}
	if !strings.Contains(joined, "alpha-observation") || !strings.Contains(joined, "beta-observation") {
		t.Error("expected both observations retained under budget")
	}
}

func TestSessionCancellationBetweenIterations(t *testing.T) {
	workspace := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &scriptedProvider{replies: []string{finalReply("never reached")}}
	session := newTestSession(t, workspace, provider)

	result, err := session.Run(ctx, "do something")
	if err == nil {
		t.Fatal("expected context error")
	}
	if result == nil || result.Steps != 0 {
		t.Errorf("expected zero completed steps, got %+v", result)
	}
	if provider.calls != 0 {
		t.Errorf("model was called after cancellation: %d calls", provider.calls)
	}
}

func TestSessionEmptyGoal(t *testing.T) {
	workspace := t.TempDir()
	session := newTestSession(t, workspace, &scriptedProvider{})

	if _, err := session.Run(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty goal")
	}
}
