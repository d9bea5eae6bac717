package domain

import "time"

// Status is the persisted device status, written after every reload and
// dispense so it can be inspected while the daemon runs.
type Status struct {
	LastCommitAt   time.Time `json:"last_commit_at"`
	LastReloadAt   time.Time `json:"last_reload_at"`
	LastDispenseAt time.Time `json:"last_dispense_at"`
	Entries        int       `json:"entries"`
	Groups         int       `json:"groups"`
	StorageReady   bool      `json:"storage_ready"`
	LastError      string    `json:"last_error,omitempty"`
}

// RecordReload updates the status after a compile attempt.
func (s *Status) RecordReload(at time.Time, sched *Schedule, err error) {
	s.LastReloadAt = at
	if err != nil {
		s.LastError = err.Error()
		return
	}
	s.LastError = ""
	s.StorageReady = true
	s.Entries = sched.Entries.Len()
	s.Groups = sched.Groups.Len()
}
