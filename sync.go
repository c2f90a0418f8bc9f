package smartstate

// SubscribeKey copies src's srcKey into key now and after every change.
// Errors from later copies are logged since watchers cannot return them.
func (s *State) SubscribeKey(key string, src *State, srcKey string) (func(), error) {
	if s.destroyed {
		return func() {}, nil
	}
	if err := s.SetKey(key, src.GetKey(srcKey)); err != nil {
		return nil, err
	}
	return src.OnKey(srcKey, func(next, _ any, _, _ Props) {
		if err := s.SetKey(key, next); err != nil {
			s.log.Error().Err(err).Str("key", key).Str("source", srcKey).Msg("subscribed key update failed")
		}
	}), nil
}

// SyncKey keeps key and other's otherKey equal in both directions. The
// initial value is taken from other.
func (s *State) SyncKey(key string, other *State, otherKey string) (func(), error) {
	if s.destroyed {
		return func() {}, nil
	}
	offValue, err := s.SubscribeKey(key, other, otherKey)
	if err != nil {
		return nil, err
	}
	offState := s.OnKey(key, func(next, _ any, _, _ Props) {
		if err := other.SetKey(otherKey, next); err != nil {
			other.log.Error().Err(err).Str("key", otherKey).Str("source", key).Msg("synced key update failed")
		}
	})
	return func() {
		offValue()
		offState()
	}, nil
}
