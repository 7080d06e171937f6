package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/recon-engine/internal/domain"
)

// Resolve turns duplicate groups plus a caller-supplied keep selection
// into an immutable audit log. For every group exactly one member is kept
// and the rest become the removal set; when the selection omits a group,
// the default policy keeps the earliest-created member (falling back to
// group order when ingestion timestamps are missing or tied).
//
// Resolve never deletes anything from any store — it returns the decision
// and the caller performs the actual removal.
func Resolve(groups []domain.DuplicateGroup, keep map[string]string) (domain.AuditLog, error) {
	// Validate the whole selection up front so a bad keep id rejects the
	// call before any action is recorded.
	for groupID, keptID := range keep {
		group, ok := findGroup(groups, groupID)
		if !ok {
			return domain.AuditLog{}, fmt.Errorf("Resolve: keep selection references unknown group %q", groupID)
		}
		if !isMember(group, keptID) {
			return domain.AuditLog{}, fmt.Errorf("Resolve: transaction %q is not a member of group %q", keptID, groupID)
		}
	}

	now := time.Now().UTC()
	log := domain.AuditLog{
		ID:        uuid.NewString(),
		CreatedAt: now,
	}

	for _, group := range groups {
		keptID, ok := keep[group.GroupID]
		if !ok {
			keptID = earliestCreated(group)
		}

		action := domain.AuditAction{
			GroupID:   group.GroupID,
			KeptID:    keptID,
			Label:     group.Label,
			Timestamp: now,
		}
		for _, t := range group.Transactions {
			if t.ID != keptID {
				action.RemovedIDs = append(action.RemovedIDs, t.ID)
			}
		}
		log.Actions = append(log.Actions, action)

		log.Summary.TotalProcessed += len(group.Transactions)
		log.Summary.RemovedCount += len(action.RemovedIDs)
		switch group.Label {
		case domain.LabelDefinite:
			log.Summary.DefiniteDuplicates++
		default:
			log.Summary.PossibleDuplicates++
		}
	}

	return log, nil
}

// earliestCreated picks the member with the oldest ingestion timestamp.
// A zero CreatedAt sorts as oldest, so ties and timestamp-less feeds fall
// back to group order.
func earliestCreated(group domain.DuplicateGroup) string {
	best := group.Transactions[0]
	for _, t := range group.Transactions[1:] {
		if t.CreatedAt.Before(best.CreatedAt) {
			best = t
		}
	}
	return best.ID
}

func findGroup(groups []domain.DuplicateGroup, groupID string) (domain.DuplicateGroup, bool) {
	for _, g := range groups {
		if g.GroupID == groupID {
			return g, true
		}
	}
	return domain.DuplicateGroup{}, false
}

func isMember(group domain.DuplicateGroup, txnID string) bool {
	for _, t := range group.Transactions {
		if t.ID == txnID {
			return true
		}
	}
	return false
}
