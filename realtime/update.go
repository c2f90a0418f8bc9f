package realtime

import (
	"sort"

	"github.com/comalice/smartstate"
)

// UpdateWithMeta adds sequencing metadata for deterministic ordering.
type UpdateWithMeta struct {
	Update      smartstate.Props
	SequenceNum uint64
	Priority    int
}

// sortUpdates orders a batch: higher priority first, then submission order.
func sortUpdates(updates []UpdateWithMeta) {
	sort.SliceStable(updates, func(i, j int) bool {
		if updates[i].Priority != updates[j].Priority {
			return updates[i].Priority > updates[j].Priority
		}
		return updates[i].SequenceNum < updates[j].SequenceNum
	})
}
