package smartstate

// CleanupMap groups teardown funcs under string keys. Every State owns one;
// its funcs run on Destroy.
type CleanupMap struct {
	order []string
	fns   map[string][]func()
}

// NewCleanupMap returns an empty map.
func NewCleanupMap() *CleanupMap {
	return &CleanupMap{fns: map[string][]func(){}}
}

// Add appends fns under key. Nil funcs are skipped.
func (m *CleanupMap) Add(key string, fns ...func()) {
	var keep []func()
	for _, fn := range fns {
		if fn != nil {
			keep = append(keep, fn)
		}
	}
	if len(keep) == 0 {
		return
	}
	if _, ok := m.fns[key]; !ok {
		m.order = append(m.order, key)
	}
	m.fns[key] = append(m.fns[key], keep...)
}

// Set runs and replaces whatever was registered under key.
func (m *CleanupMap) Set(key string, fns ...func()) {
	m.Clear(key)
	m.Add(key, fns...)
}

// Clear runs and removes the funcs under key.
func (m *CleanupMap) Clear(key string) {
	fns, ok := m.fns[key]
	if !ok {
		return
	}
	delete(m.fns, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	for _, fn := range fns {
		fn()
	}
}

// Len returns the number of keys with pending funcs.
func (m *CleanupMap) Len() int {
	return len(m.fns)
}

// Destroy runs every func in registration order and empties the map.
func (m *CleanupMap) Destroy() {
	order, fns := m.order, m.fns
	m.order, m.fns = nil, map[string][]func(){}
	for _, key := range order {
		for _, fn := range fns[key] {
			fn()
		}
	}
}

// AddCleanup registers fns to run on Destroy. Ignored after Destroy.
func (s *State) AddCleanup(key string, fns ...func()) {
	if s.destroyed {
		return
	}
	s.cleanup.Add(key, fns...)
}

// SetCleanup runs the funcs registered under key and registers fns instead.
func (s *State) SetCleanup(key string, fns ...func()) {
	if s.destroyed {
		return
	}
	s.cleanup.Set(key, fns...)
}

// ClearCleanup runs and drops the funcs under key.
func (s *State) ClearCleanup(key string) {
	s.cleanup.Clear(key)
}
