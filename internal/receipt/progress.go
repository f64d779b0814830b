package receipt

import (
	"sync"

	"github.com/scouter-app/scouter/internal/pipeline"
)

// Progress is the live processing view for one record, rebuilt from the
// latest pipeline update. Done flips when the run finishes either way.
type Progress struct {
	RecordID string          `json:"record_id"`
	Done     bool            `json:"done"`
	Error    string          `json:"error,omitempty"`
	Steps    []pipeline.Step `json:"steps"`
}

// progressTracker keeps the latest progress per record in memory. Entries
// outlive the run so a client that polls after completion still sees the
// final state; they are dropped when the record is deleted.
type progressTracker struct {
	mu      sync.RWMutex
	entries map[string]*Progress
}

func newProgressTracker() *progressTracker {
	return &progressTracker{entries: make(map[string]*Progress)}
}

func (t *progressTracker) start(recordID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[recordID] = &Progress{RecordID: recordID}
}

func (t *progressTracker) update(recordID string, steps []pipeline.Step) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.entries[recordID]; ok {
		entry.Steps = steps
	}
}

func (t *progressTracker) finish(recordID string, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.entries[recordID]; ok {
		entry.Done = true
		entry.Error = errMsg
	}
}

func (t *progressTracker) get(recordID string) (Progress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.entries[recordID]
	if !ok {
		return Progress{}, false
	}
	out := *entry
	out.Steps = append([]pipeline.Step(nil), entry.Steps...)
	return out, true
}

func (t *progressTracker) drop(recordID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, recordID)
}
