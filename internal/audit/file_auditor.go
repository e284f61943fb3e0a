package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/guillermoBallester/indexlens/internal/core/port"
)

// fileEntry is the NDJSON-serializable form of a simulation audit record.
type fileEntry struct {
	Timestamp  string  `json:"ts"`
	BatchID    string  `json:"batch_id"`
	Schema     string  `json:"schema"`
	Table      string  `json:"table"`
	Index      string  `json:"index"`
	Mode       string  `json:"mode"`
	Confidence float64 `json:"confidence"`
	DurationMS int64   `json:"duration_ms"`
	Error      *string `json:"error"`
}

// FileAuditor writes one NDJSON line per simulated index drop.
type FileAuditor struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	now  func() time.Time
}

// NewFileAuditor opens (or creates) the file at path for append-only writing.
func NewFileAuditor(path string) (*FileAuditor, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return &FileAuditor{
		file: f,
		enc:  json.NewEncoder(f),
		now:  time.Now,
	}, nil
}

func (a *FileAuditor) Record(_ context.Context, entry port.AuditEntry) {
	fe := fileEntry{
		Timestamp:  a.now().UTC().Format(time.RFC3339),
		BatchID:    entry.BatchID,
		Schema:     entry.Schema,
		Table:      entry.Table,
		Index:      entry.Index,
		Mode:       entry.Mode,
		Confidence: entry.Confidence,
		DurationMS: entry.DurationMS,
	}
	if entry.Err != nil {
		s := entry.Err.Error()
		fe.Error = &s
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.enc.Encode(fe) // best-effort; a simulation never fails on audit I/O
}

func (a *FileAuditor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}
