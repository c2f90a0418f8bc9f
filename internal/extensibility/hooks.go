package extensibility

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/comalice/smartstate"
)

// LoggingHook wraps inner and logs each call at debug level, and failures
// at warn level. A nil inner only logs.
func LoggingHook(l zerolog.Logger, stage, key string, inner smartstate.Hook) smartstate.Hook {
	return func(s *smartstate.State, next, prev any, props smartstate.Props) error {
		start := time.Now()
		var err error
		if inner != nil {
			err = inner(s, next, prev, props)
		}
		ev := l.Debug()
		if err != nil {
			ev = l.Warn().Err(err)
		}
		ev.Str("hook", stage).
			Str("key", key).
			Interface("next", next).
			Interface("prev", prev).
			Dur("took", time.Since(start)).
			Msg("hook")
		return err
	}
}

// WithLogging returns a copy of def whose DidSet hooks log every change.
// Existing WillSet and DidSet hooks are wrapped, not replaced.
func WithLogging(def smartstate.Definition, l zerolog.Logger) smartstate.Definition {
	l = l.With().Str("class", def.Name).Logger()
	out := def
	out.Properties = make([]smartstate.Property, len(def.Properties))
	for i, p := range def.Properties {
		out.Properties[i] = wrapProperty(p, l)
	}
	out.Computed = make([]smartstate.Computed, len(def.Computed))
	for i, c := range def.Computed {
		c.Property = wrapProperty(c.Property, l)
		out.Computed[i] = c
	}
	return out
}

func wrapProperty(p smartstate.Property, l zerolog.Logger) smartstate.Property {
	if p.WillSet != nil {
		p.WillSet = LoggingHook(l, "willSet", p.Key, p.WillSet)
	}
	p.DidSet = LoggingHook(l, "didSet", p.Key, p.DidSet)
	return p
}
