package storage

import "time"

// Entry is one task result recorded in the run journal
type Entry struct {
	ID        string        `json:"id"`
	Module    string        `json:"module"`
	Name      string        `json:"name"`
	State     string        `json:"state"`
	Changed   bool          `json:"changed"`
	Msg       string        `json:"msg"`
	Failed    bool          `json:"failed"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
}

// Store defines the interface for the run journal.
// The journal is write-mostly audit data; nothing reconciles from it.
type Store interface {
	// Record assigns a time-ordered id when entry.ID is empty and saves it
	Record(entry *Entry) error
	GetEntry(id string) (*Entry, error)
	// List returns up to limit entries, newest first. limit <= 0 means all.
	List(limit int) ([]*Entry, error)
	ListByModule(module string, limit int) ([]*Entry, error)
	// Prune deletes all but the newest keep entries
	Prune(keep int) (int, error)

	Close() error
}
