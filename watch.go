package smartstate

import "slices"

// StateWatcher receives the state after and before a wave.
type StateWatcher func(next, prev Props)

// KeyWatcher receives one key's new and old value plus both states.
type KeyWatcher func(next, prev any, nextState, prevState Props)

type watcher struct {
	keys  []string
	multi bool
	state StateWatcher
	key   KeyWatcher
}

func (w *watcher) matches(dirty []string) bool {
	if w.multi && len(w.keys) == 0 {
		return true
	}
	for _, k := range w.keys {
		if slices.Contains(dirty, k) {
			return true
		}
	}
	return false
}

// On subscribes fn to waves touching any of keys, or to every wave when
// keys is empty. The returned func unsubscribes.
func (s *State) On(keys []string, fn StateWatcher) func() {
	return s.addWatcher(&watcher{keys: slices.Clone(keys), multi: true, state: fn})
}

// OnKey subscribes fn to changes of key.
func (s *State) OnKey(key string, fn KeyWatcher) func() {
	return s.addWatcher(&watcher{keys: []string{key}, key: fn})
}

// ClearWatchers removes every watcher.
func (s *State) ClearWatchers() {
	s.watchers = nil
}

// addWatcher and the returned remover replace the list instead of editing
// it, so a wave already dispatching keeps its own copy.
func (s *State) addWatcher(w *watcher) func() {
	if s.destroyed {
		return func() {}
	}
	s.watchers = append(slices.Clip(s.watchers), w)
	return func() {
		i := slices.Index(s.watchers, w)
		if i < 0 {
			return
		}
		s.watchers = slices.Delete(slices.Clone(s.watchers), i, i+1)
	}
}

func (s *State) notify(dirty []string, next, prev Props) {
	for _, w := range s.watchers {
		if !w.matches(dirty) {
			continue
		}
		if w.multi {
			w.state(next, prev)
		} else {
			k := w.keys[0]
			w.key(next[k], prev[k], next, prev)
		}
	}
}
