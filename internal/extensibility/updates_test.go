package extensibility

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/smartstate"
)

func gauge(t *testing.T) *smartstate.State {
	t.Helper()
	c := smartstate.MustDefine(smartstate.Definition{
		Name: "gauge",
		Properties: []smartstate.Property{{
			Key:   "level",
			Valid: func(v any, _ smartstate.Props) bool { f, ok := v.(float64); return ok && f >= 0 },
		}},
	})
	s, err := smartstate.New(c, smartstate.Props{"level": 0.0})
	require.NoError(t, err)
	return s
}

func TestDrainChannelSource(t *testing.T) {
	s := gauge(t)
	src := NewChannelSource(make(chan smartstate.Props, 4))

	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())
	require.NoError(t, src.Send(ctx, smartstate.Props{"level": 1.0}))
	require.NoError(t, src.Send(ctx, smartstate.Props{"level": -5.0}))
	require.NoError(t, src.Send(ctx, smartstate.Props{"level": 3.0}))
	src.Close()

	require.NoError(t, Drain(ctx, s, src))
	assert.Equal(t, 3.0, s.GetKey("level"))
	assert.Contains(t, buf.String(), "update rejected")
}

func TestDrainStopsOnCancel(t *testing.T) {
	s := gauge(t)
	src := NewChannelSource(make(chan smartstate.Props))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Drain(ctx, s, src) }()
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("Drain did not return")
	}

	assert.ErrorIs(t, src.Send(ctx, smartstate.Props{}), context.Canceled)
}

func TestTickerSource(t *testing.T) {
	n := 0.0
	src := NewTickerSource(10*time.Millisecond, func(time.Time) smartstate.Props {
		n++
		return smartstate.Props{"level": n}
	})

	select {
	case p := <-src.Updates():
		assert.Equal(t, 1.0, p["level"])
	case <-time.After(time.Second):
		t.Fatal("no tick")
	}
	src.Stop()

	for range src.Updates() {
	}
}
