package smartstate

import "encoding/json"

// Snapshot is the serializable form of a State.
type Snapshot struct {
	Config any            `json:"config" yaml:"config" toml:"config,omitempty"`
	State  map[string]any `json:"state" yaml:"state" toml:"state"`
}

// ToJSON projects the committed state onto the class's JSON keys, passing
// each value through the key's ToJSON hook when one is set.
func (s *State) ToJSON() Snapshot {
	out := make(map[string]any, len(s.class.jsonKeys))
	for _, k := range s.class.jsonKeys {
		v := s.state[k]
		if fn := s.class.fields[k].ToJSON; fn != nil {
			v = fn(v)
		}
		out[k] = v
	}
	return Snapshot{Config: s.config, State: out}
}

// MarshalJSON encodes ToJSON().
func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToJSON())
}

// FromSnapshot rebuilds an instance of class from snap. Keys in snap.State
// the class does not declare are dropped, and read-only computed keys are
// left to their getters. Options apply after the snapshot config.
func FromSnapshot(class *Class, snap Snapshot, opts ...Option) (*State, error) {
	initial := make(Props, len(snap.State))
	for k, v := range snap.State {
		if class.Settable(k) {
			initial[k] = v
		}
	}
	opts = append([]Option{WithConfig(snap.Config)}, opts...)
	return New(class, initial, opts...)
}
