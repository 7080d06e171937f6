package domain

import "time"

// AuditAction records the resolution of one duplicate group: which member
// was kept and which were marked for removal.
type AuditAction struct {
	GroupID    string     `json:"group_id"`
	KeptID     string     `json:"kept_id"`
	RemovedIDs []string   `json:"removed_ids"`
	Label      GroupLabel `json:"label"`
	Timestamp  time.Time  `json:"timestamp"`
}

// AuditSummary aggregates the outcome of one resolution call.
type AuditSummary struct {
	TotalProcessed     int `json:"total_processed"`
	DefiniteDuplicates int `json:"definite_duplicates"`
	PossibleDuplicates int `json:"possible_duplicates"`
	RemovedCount       int `json:"removed_count"`
}

// AuditLog is the immutable record of one dedup-resolution call. It is
// created synchronously inside Resolve and never mutated afterward; the
// engine does not delete anything itself — callers act on the decisions
// and own the transactional integrity of that step.
type AuditLog struct {
	ID        string        `json:"id"`
	Actions   []AuditAction `json:"actions"`
	Summary   AuditSummary  `json:"summary"`
	CreatedAt time.Time     `json:"created_at"`
}

// RemovedIndex returns removed-id -> kept-id for every action in the log.
func (l AuditLog) RemovedIndex() map[string]string {
	idx := make(map[string]string)
	for _, a := range l.Actions {
		for _, id := range a.RemovedIDs {
			idx[id] = a.KeptID
		}
	}
	return idx
}
