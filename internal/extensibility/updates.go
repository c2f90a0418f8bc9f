package extensibility

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/comalice/smartstate"
)

// UpdateSource yields partial updates to apply to a State.
type UpdateSource interface {
	Updates() <-chan smartstate.Props
}

// ChannelSource is an UpdateSource backed by a Go channel.
type ChannelSource struct {
	ch chan smartstate.Props
}

// NewChannelSource creates a ChannelSource with the given channel.
// The channel should be buffered if backpressure handling is needed.
func NewChannelSource(ch chan smartstate.Props) *ChannelSource {
	return &ChannelSource{ch: ch}
}

// Updates returns the receive-only channel.
func (s *ChannelSource) Updates() <-chan smartstate.Props {
	return s.ch
}

// Send queues an update, blocking until there is room or ctx ends.
func (s *ChannelSource) Send(ctx context.Context, p smartstate.Props) error {
	select {
	case s.ch <- p:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the channel, ending any Drain reading from it.
func (s *ChannelSource) Close() {
	close(s.ch)
}

// TickerSource emits the result of fn every d. Ticks are dropped while the
// previous update is still unread.
type TickerSource struct {
	ch     chan smartstate.Props
	fn     func(time.Time) smartstate.Props
	ticker *time.Ticker
	stop   chan struct{}
}

// NewTickerSource starts a TickerSource.
func NewTickerSource(d time.Duration, fn func(time.Time) smartstate.Props) *TickerSource {
	t := &TickerSource{
		ch:     make(chan smartstate.Props, 1),
		fn:     fn,
		ticker: time.NewTicker(d),
		stop:   make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *TickerSource) run() {
	for {
		select {
		case now := <-t.ticker.C:
			select {
			case t.ch <- t.fn(now):
			default:
			}
		case <-t.stop:
			t.ticker.Stop()
			close(t.ch)
			return
		}
	}
}

// Updates returns the update channel.
func (t *TickerSource) Updates() <-chan smartstate.Props {
	return t.ch
}

// Stop stops the ticker and closes the channel.
func (t *TickerSource) Stop() {
	close(t.stop)
}

// Drain applies every update from src to s with Set until the source closes
// or ctx ends. It must run on the goroutine that owns s. Failed updates are
// logged to the logger in ctx and skipped; the committed state is unchanged
// by them.
func Drain(ctx context.Context, s *smartstate.State, src UpdateSource) error {
	log := zerolog.Ctx(ctx)
	updates := src.Updates()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p, ok := <-updates:
			if !ok {
				return nil
			}
			if err := s.Set(p); err != nil {
				log.Warn().Err(err).Strs("keys", p.Keys()).Msg("update rejected")
			}
		}
	}
}
