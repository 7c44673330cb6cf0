// Package runlog is a hash-chained, in-memory record of one CLI
// invocation's pipeline stages (ingest, build, search), optionally flushed to a
// JSONL sidecar file. It exists purely for run provenance: it is never
// read back by the join itself.
package runlog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one immutable stage record.
type Entry struct {
	Index     uint64    `json:"index"`
	Timestamp time.Time `json:"ts"`
	Stage     string    `json:"stage"`
	Detail    string    `json:"detail"`
	Duration  string    `json:"duration"`
	PrevHash  string    `json:"prev_hash"`
	Hash      string    `json:"hash"`
}

// Log is an append-only, hash-chained run log. RunID identifies one CLI
// invocation, so JSONL sidecars from separate runs can be told apart
// after the fact.
type Log struct {
	mu    sync.Mutex
	RunID string
	log   []Entry
}

// New returns an empty Log tagged with a fresh run ID.
func New() *Log { return &Log{RunID: uuid.NewString()} }

// Append records one stage and returns the new Entry.
func (l *Log) Append(stage, detail string, dur time.Duration) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := uint64(len(l.log))
	prev := ""
	if idx > 0 {
		prev = l.log[idx-1].Hash
	}
	e := Entry{
		Index:     idx,
		Timestamp: time.Now().UTC(),
		Stage:     stage,
		Detail:    detail,
		Duration:  dur.String(),
		PrevHash:  prev,
	}
	e.Hash = hashEntry(l.RunID, e)
	l.log = append(l.log, e)
	return e
}

// Entries returns a copy of the recorded entries, in order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.log))
	copy(out, l.log)
	return out
}

// Verify reports whether the hash chain is intact.
func (l *Log) Verify() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.log {
		if hashEntry(l.RunID, l.log[i]) != l.log[i].Hash {
			return false
		}
		if i > 0 && l.log[i-1].Hash != l.log[i].PrevHash {
			return false
		}
	}
	return true
}

// Flush writes the entries as newline-delimited JSON to path.
func (l *Log) Flush(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, e := range l.Entries() {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}

func hashEntry(runID string, e Entry) string {
	h := sha256.New()
	h.Write([]byte(runID))
	h.Write([]byte(e.PrevHash))
	h.Write([]byte(e.Timestamp.Format(time.RFC3339Nano)))
	h.Write([]byte(e.Stage))
	h.Write([]byte(e.Detail))
	h.Write([]byte(e.Duration))
	return hex.EncodeToString(h.Sum(nil))
}
