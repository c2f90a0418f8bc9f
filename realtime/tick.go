package realtime

import (
	"fmt"

	"github.com/comalice/smartstate"
)

// Step processes one tick synchronously: collect, sort, apply.
func (rt *Runtime) Step() {
	updates := rt.collectUpdates()
	sortUpdates(updates)

	rt.stateMu.Lock()
	applied, rejected := rt.applyUpdates(updates)
	rt.stateMu.Unlock()

	rt.batchMu.Lock()
	rt.stats.Ticks++
	rt.stats.Applied += applied
	rt.stats.Rejected += rejected
	rt.batchMu.Unlock()
}

// collectUpdates atomically retrieves and clears the batch.
func (rt *Runtime) collectUpdates() []UpdateWithMeta {
	rt.batchMu.Lock()
	defer rt.batchMu.Unlock()

	updates := rt.batch
	rt.batch = make([]UpdateWithMeta, 0, cap(rt.batch))
	return updates
}

func (rt *Runtime) applyUpdates(updates []UpdateWithMeta) (applied, rejected uint64) {
	if len(updates) == 0 {
		return 0, 0
	}
	if rt.coalesce {
		merged := smartstate.Props{}
		for _, u := range updates {
			for k, v := range u.Update {
				merged[k] = v
			}
		}
		if err := rt.apply(merged); err != nil {
			rt.log.Warn().Err(err).Int("updates", len(updates)).Msg("coalesced update rejected")
			return 0, uint64(len(updates))
		}
		return uint64(len(updates)), 0
	}
	for _, u := range updates {
		if err := rt.apply(u.Update); err != nil {
			rt.log.Warn().Err(err).Uint64("seq", u.SequenceNum).Int("priority", u.Priority).Msg("update rejected")
			rejected++
			continue
		}
		applied++
	}
	return applied, rejected
}

// apply turns a panic from a hook into an error so the tick keeps going.
// The State has already rolled back by the time the panic reaches here.
func (rt *Runtime) apply(p smartstate.Props) (err error) {
	defer func() {
		if r := recover(); r != nil {
			rt.log.Error().Interface("panic", r).Msg("update panicked")
			err = fmt.Errorf("realtime: update panicked: %v", r)
		}
	}()
	return rt.state.Set(p)
}
