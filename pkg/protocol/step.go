// Package protocol parses the model's structured reply into a single
// validated step: either an action call or a final answer.
//
// Normalization (fence stripping, object extraction) and structural
// validation are separate so each can be tested on its own.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MalformedStepError reports a model reply that could not be parsed
// into a valid step.
type MalformedStepError struct {
	Reason string
	Raw    string
}

func (e *MalformedStepError) Error() string {
	return fmt.Sprintf("malformed step: %s", e.Reason)
}

func newMalformedStepError(raw, format string, args ...interface{}) *MalformedStepError {
	return &MalformedStepError{
		Reason: fmt.Sprintf(format, args...),
		Raw:    raw,
	}
}

// ActionCall names a catalog action to dispatch. Whether the tool
// actually exists is checked at dispatch time, not here.
type ActionCall struct {
	Tool   string                 `json:"tool"`
	Args   map[string]interface{} `json:"args"`
	Reason string                 `json:"reason"`
}

// FinalAnswer ends the session with a message for the user.
type FinalAnswer struct {
	Message string `json:"message"`
}

// Step is one parsed decision. Exactly one of Action or Final is set.
type Step struct {
	Thought string
	Action  *ActionCall
	Final   *FinalAnswer
}

func (s *Step) IsFinal() bool {
	return s.Final != nil
}

// Normalize strips markdown code fences and extracts the outermost JSON
// object from the model reply. It returns the raw input unchanged when no
// object delimiters are found, leaving the failure to the validator.
func Normalize(raw string) string {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

type rawStep struct {
	Thought string          `json:"thought"`
	Action  json.RawMessage `json:"action"`
	Final   json.RawMessage `json:"final"`
}

// ParseStep normalizes and validates a raw model reply. The reply must be
// a single JSON object with a thought field and exactly one of "action"
// or "final".
func ParseStep(raw string) (*Step, error) {
	text := Normalize(raw)

	var parsed rawStep
	decoder := json.NewDecoder(strings.NewReader(text))
	if err := decoder.Decode(&parsed); err != nil {
		return nil, newMalformedStepError(raw, "reply is not a JSON object: %v", err)
	}

	hasAction := len(parsed.Action) > 0 && string(parsed.Action) != "null"
	hasFinal := len(parsed.Final) > 0 && string(parsed.Final) != "null"

	switch {
	case hasAction && hasFinal:
		return nil, newMalformedStepError(raw, "reply contains both an action and a final answer")
	case !hasAction && !hasFinal:
		return nil, newMalformedStepError(raw, "reply contains neither an action nor a final answer")
	}

	step := &Step{Thought: parsed.Thought}

	if hasFinal {
		var final FinalAnswer
		if err := json.Unmarshal(parsed.Final, &final); err != nil {
			return nil, newMalformedStepError(raw, "final field is not an object: %v", err)
		}
		if final.Message == "" {
			return nil, newMalformedStepError(raw, "final answer is missing a message")
		}
		step.Final = &final
		return step, nil
	}

	var action ActionCall
	if err := json.Unmarshal(parsed.Action, &action); err != nil {
		return nil, newMalformedStepError(raw, "action field is not a valid object: %v", err)
	}
	if action.Tool == "" {
		return nil, newMalformedStepError(raw, "action is missing a tool name")
	}
	if action.Args == nil {
		action.Args = map[string]interface{}{}
	}
	step.Action = &action
	return step, nil
}
