package production

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/comalice/smartstate"
)

// ChangeEvent describes one commit wave of a State.
type ChangeEvent struct {
	Class   string
	Changed []string
	Next    smartstate.Props
	Prev    smartstate.Props
	At      time.Time
}

// Publisher forwards change events somewhere else.
type Publisher interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}

// ChannelPublisher forwards events to a Go channel.
// Non-blocking publish with drop on backpressure.
type ChannelPublisher struct {
	ch chan<- ChangeEvent
}

// NewChannelPublisher creates a ChannelPublisher with the given output channel.
func NewChannelPublisher(ch chan<- ChangeEvent) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

func (p *ChannelPublisher) Publish(ctx context.Context, ev ChangeEvent) error {
	select {
	case p.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		zerolog.Ctx(ctx).Debug().Str("class", ev.Class).Msg("change event dropped")
		return nil
	}
}

func (p *ChannelPublisher) Close() error {
	close(p.ch)
	return nil
}

// Attach publishes every wave of s touching keys, or every wave when keys is
// empty. Publish errors are logged to the logger carried by ctx. The returned
// func detaches.
func Attach(ctx context.Context, s *smartstate.State, p Publisher, keys ...string) func() {
	class := s.Class()
	return s.On(keys, func(next, prev smartstate.Props) {
		ev := ChangeEvent{
			Class:   class.Name(),
			Changed: Changed(class.Keys(), next, prev),
			Next:    next,
			Prev:    prev,
			At:      time.Now(),
		}
		if err := p.Publish(ctx, ev); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("class", ev.Class).Msg("publish change event")
		}
	})
}

// Changed returns the keys whose values differ between next and prev, in
// the order given.
func Changed(keys []string, next, prev smartstate.Props) []string {
	var out []string
	for _, k := range keys {
		if !smartstate.DeepEqual(next[k], prev[k]) {
			out = append(out, k)
		}
	}
	return out
}
