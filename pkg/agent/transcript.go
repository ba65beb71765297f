package agent

import (
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/anvil/pkg/protocol"
	"github.com/kadirpekel/anvil/pkg/tools"
)

// Entry is one (step, outcome) pair of the session transcript.
type Entry struct {
	ID        string           `json:"id"`
	Step      *protocol.Step   `json:"step,omitempty"`
	Result    tools.ToolResult `json:"result"`
	Timestamp time.Time        `json:"timestamp"`
}

// Transcript is the append-only session log. Entries are never mutated
// retroactively.
type Transcript struct {
	entries []Entry
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

func (t *Transcript) Append(step *protocol.Step, result tools.ToolResult) Entry {
	entry := Entry{
		ID:        uuid.New().String(),
		Step:      step,
		Result:    result,
		Timestamp: time.Now(),
	}
	t.entries = append(t.entries, entry)
	return entry
}

func (t *Transcript) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Transcript) Len() int {
	return len(t.entries)
}

// Last returns the most recent entry, if any.
func (t *Transcript) Last() (Entry, bool) {
	if len(t.entries) == 0 {
		return Entry{}, false
	}
	return t.entries[len(t.entries)-1], true
}
