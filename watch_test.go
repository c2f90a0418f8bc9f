package smartstate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/comalice/smartstate"
	"github.com/comalice/smartstate/testutil"
)

func TestWatcherKeyFilter(t *testing.T) {
	s, err := New(plainRect(t), Props{"left": 1, "width": 2})
	require.NoError(t, err)

	widthRec := testutil.NewRecorder()
	rightRec := testutil.NewRecorder()
	s.On([]string{"width"}, widthRec.State)
	s.OnKey("right", rightRec.KeyFor("right"))

	require.NoError(t, Left.Set(s, 4))
	assert.Zero(t, widthRec.Len())
	require.Equal(t, 1, rightRec.Len())

	call := rightRec.Calls()[0]
	assert.Equal(t, "right", call.Key)
	assert.Equal(t, 6, call.NextValue)
	assert.Equal(t, 3, call.PrevValue)

	require.NoError(t, Width.Set(s, 10))
	assert.Equal(t, 1, widthRec.Len())
	assert.Equal(t, []any{6, 14}, rightRec.Values())
}

func TestUnsubscribeDuringDispatch(t *testing.T) {
	s, err := New(plainRect(t), Props{"left": 1, "width": 2})
	require.NoError(t, err)

	rec := testutil.NewRecorder()
	var offSecond func()
	s.On(nil, func(next, prev Props) { offSecond() })
	offSecond = s.On(nil, rec.State)

	require.NoError(t, Left.Set(s, 2))
	assert.Equal(t, 1, rec.Len(), "removal applies from the next wave")

	require.NoError(t, Left.Set(s, 3))
	assert.Equal(t, 1, rec.Len())
}

func TestSubscribeDuringDispatch(t *testing.T) {
	s, err := New(plainRect(t), Props{"left": 1, "width": 2})
	require.NoError(t, err)

	rec := testutil.NewRecorder()
	added := false
	s.On(nil, func(next, prev Props) {
		if !added {
			added = true
			s.On(nil, rec.State)
		}
	})

	require.NoError(t, Left.Set(s, 2))
	assert.Zero(t, rec.Len())

	require.NoError(t, Left.Set(s, 3))
	assert.Equal(t, 1, rec.Len())
}

func TestUnsubscribeTwice(t *testing.T) {
	s, err := New(plainRect(t), Props{"left": 1, "width": 2})
	require.NoError(t, err)

	rec := testutil.NewRecorder()
	off := s.OnKey("left", rec.Key)
	keep := s.OnKey("left", rec.Key)
	defer keep()

	off()
	off()
	require.NoError(t, Left.Set(s, 5))
	assert.Equal(t, 1, rec.Len())
}

func TestResetDropsWatchersKeepsValues(t *testing.T) {
	s, err := New(plainRect(t), Props{"left": 1, "width": 2})
	require.NoError(t, err)

	rec := testutil.NewRecorder()
	s.On(nil, rec.State)
	s.Reset()

	require.NoError(t, Left.Set(s, 5))
	assert.Zero(t, rec.Len())
	assert.Equal(t, 7, Right.Get(s))
}
