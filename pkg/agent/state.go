// Package agent implements the orchestration loop: it solicits the next
// step from the model, dispatches it through the action catalog, records
// the outcome, and updates session state until the goal is answered or
// the step budget runs out.
package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kadirpekel/anvil/pkg/tools"
	"github.com/kadirpekel/anvil/pkg/utils"
)

// State is the per-session agent memory. It is mutated only by the
// orchestration loop, immediately after each outcome; actions never
// touch it directly.
type State struct {
	lastModifiedFile     string
	recentlyCreatedFiles []string
	currentFiles         map[string]string
	workspaceSummary     string
	lastTopic            string
	lastAnswer           string

	recentFilesCap int
}

func NewState(workspaceSummary string, recentFilesCap int) *State {
	if recentFilesCap < 1 {
		recentFilesCap = 10
	}

	return &State{
		currentFiles:     make(map[string]string),
		workspaceSummary: workspaceSummary,
		recentFilesCap:   recentFilesCap,
	}
}

func (s *State) LastModifiedFile() string {
	return s.lastModifiedFile
}

func (s *State) RecentlyCreatedFiles() []string {
	out := make([]string, len(s.recentlyCreatedFiles))
	copy(out, s.recentlyCreatedFiles)
	return out
}

func (s *State) LastTopic() string {
	return s.lastTopic
}

func (s *State) LastAnswer() string {
	return s.lastAnswer
}

// UpdateFromOutcome folds one tool outcome into the state. Only
// successful outcomes mutate anything.
func (s *State) UpdateFromOutcome(toolName string, args map[string]interface{}, result tools.ToolResult) {
	if !result.Success {
		return
	}

	switch toolName {
	case "write_file", "append_file", "patch_file":
		path, _ := args["path"].(string)
		if path == "" {
			return
		}

		s.lastModifiedFile = path
		s.currentFiles[path] = toolName

		if created, _ := result.Metadata["created"].(bool); created {
			s.trackCreatedFile(path)
		}

	case "chat":
		if message, _ := args["message"].(string); message != "" {
			s.lastTopic = utils.Clip(message, 200)
		}
		s.lastAnswer = utils.Clip(result.Content, 500)
	}
}

// trackCreatedFile appends to the recently-created list, evicting the
// oldest entry beyond the cap (FIFO).
func (s *State) trackCreatedFile(path string) {
	for _, existing := range s.recentlyCreatedFiles {
		if existing == path {
			return
		}
	}

	s.recentlyCreatedFiles = append(s.recentlyCreatedFiles, path)
	if len(s.recentlyCreatedFiles) > s.recentFilesCap {
		s.recentlyCreatedFiles = s.recentlyCreatedFiles[1:]
	}
}

// ContextString renders the state summary injected into the system
// prompt.
func (s *State) ContextString() string {
	var parts []string

	if s.workspaceSummary != "" {
		parts = append(parts, fmt.Sprintf("WORKSPACE CONTEXT:\n%s", utils.Clip(s.workspaceSummary, 1000)))
	}
	if s.lastModifiedFile != "" {
		parts = append(parts, fmt.Sprintf("LAST MODIFIED FILE: %s", s.lastModifiedFile))
	}
	if len(s.recentlyCreatedFiles) > 0 {
		recent := s.recentlyCreatedFiles
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		parts = append(parts, fmt.Sprintf("RECENTLY CREATED: %s", strings.Join(recent, ", ")))
	}
	if len(s.currentFiles) > 0 {
		parts = append(parts, fmt.Sprintf("ACTIVE FILES: %s", strings.Join(s.activeFiles(3), ", ")))
	}
	if s.lastTopic != "" {
		parts = append(parts, fmt.Sprintf("LAST TOPIC: %s", s.lastTopic))
	}

	if len(parts) == 0 {
		return "No recent file operations"
	}
	return strings.Join(parts, "\n")
}

func (s *State) activeFiles(max int) []string {
	files := make([]string, 0, len(s.currentFiles))
	for path := range s.currentFiles {
		files = append(files, path)
	}

	// Map order is not meaningful; sort for stable prompts.
	sort.Strings(files)

	if len(files) > max {
		files = files[:max]
	}
	return files
}
