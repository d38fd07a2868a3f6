package tekton

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event is one JSONL entry in the run event log
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	Stage     string    `json:"stage,omitempty"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail,omitempty"`
}

// EventLog appends run events to a JSONL file and a markdown session log
// under the memory directory.
type EventLog struct {
	mu       sync.Mutex
	jsonPath string
	mdPath   string
	runID    string
}

// NewEventLog creates the log files for a run
func NewEventLog(memoryDir, runID string) (*EventLog, error) {
	runsDir := filepath.Join(memoryDir, "runs")
	logsDir := filepath.Join(memoryDir, "logs")
	for _, dir := range []string{runsDir, logsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return &EventLog{
		jsonPath: filepath.Join(runsDir, runID+".jsonl"),
		mdPath:   filepath.Join(logsDir, "tekton-"+runID+".md"),
		runID:    runID,
	}, nil
}

// Emit records an event in both logs. Logging failures are swallowed; the
// run must not die because a log write did.
func (l *EventLog) Emit(stage, kind, detail string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	ev := Event{Timestamp: time.Now(), RunID: l.runID, Stage: stage, Kind: kind, Detail: detail}

	if data, err := json.Marshal(ev); err == nil {
		if f, err := os.OpenFile(l.jsonPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			f.Write(append(data, '\n'))
			f.Close()
		}
	}

	line := fmt.Sprintf("- **%s** `%s` %s", ev.Timestamp.Format("15:04:05"), kind, detail)
	if stage != "" {
		line = fmt.Sprintf("- **%s** [%s] `%s` %s", ev.Timestamp.Format("15:04:05"), stage, kind, detail)
	}
	if f, err := os.OpenFile(l.mdPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
		f.WriteString(line + "\n")
		f.Close()
	}
}
