package observe

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// FileCallLogger writes one JSON file per LM API call to a directory: a
// timestamped, sequence-numbered capture of every request/response pair
// for later inspection. It implements pkg/llm/anyllm.CallLogger.
type FileCallLogger struct {
	dir string
	seq atomic.Int64
}

// NewFileCallLogger creates dir (including parents) if it does not already
// exist and returns a logger that writes into it.
func NewFileCallLogger(dir string) (*FileCallLogger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("observe: create call log dir %s: %w", dir, err)
	}
	return &FileCallLogger{dir: dir}, nil
}

// callLogEntry is the on-disk shape of one captured call.
type callLogEntry struct {
	Sequence  int64     `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Method    string    `json:"method"`
	Request   any       `json:"request"`
	Response  any       `json:"response,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// LogCall writes req/resp/err to a new file in the logger's directory. A
// write failure is swallowed to a stderr warning — logging must never
// abort the pipeline.
func (l *FileCallLogger) LogCall(method string, req any, resp any, callErr error) {
	seq := l.seq.Add(1)
	entry := callLogEntry{
		Sequence:  seq,
		Timestamp: time.Now().UTC(),
		Method:    method,
		Request:   req,
		Response:  resp,
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}

	name := fmt.Sprintf("%s-%06d-%s.json", entry.Timestamp.Format("20060102T150405.000000"), seq, method)
	path := filepath.Join(l.dir, name)

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "observe: marshal call log entry: %v\n", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "observe: write call log entry %s: %v\n", path, err)
	}
}
