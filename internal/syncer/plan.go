package syncer

import (
	"rcsbsync/internal/identifier"
	"rcsbsync/internal/inventory"
)

// Plan is the per-query diff between remote truth and the local snapshot.
// It is derived state: nothing persists it, holding it across runs would
// only let it go stale.
type Plan struct {
	Query          string
	Remote         identifier.Set
	LocalActive    identifier.Set
	LocalObsolete  identifier.Set
	ToDownload     []string
	ToMarkObsolete []string
}

// BuildPlan diffs the resolved remote set against a scanned snapshot.
// Identifiers missing locally are scheduled for download; active local
// identifiers absent from the remote set are scheduled for obsolete
// marking. Already-obsolete entries are left alone.
func BuildPlan(queryName string, remote identifier.Set, snapshot *inventory.Snapshot) Plan {
	active := snapshot.Active()
	return Plan{
		Query:          queryName,
		Remote:         remote,
		LocalActive:    active,
		LocalObsolete:  snapshot.Obsolete(),
		ToDownload:     remote.Difference(active).Sorted(),
		ToMarkObsolete: active.Difference(remote).Sorted(),
	}
}

// Empty reports whether the query is already synchronized.
func (p Plan) Empty() bool {
	return len(p.ToDownload) == 0 && len(p.ToMarkObsolete) == 0
}
