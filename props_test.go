package smartstate

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type holder struct {
	v any
}

func TestIdentical(t *testing.T) {
	s := []int{1, 2, 3}
	m := map[string]int{"a": 1}
	nan := math.NaN()

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"nil", nil, nil, true},
		{"nil and zero", nil, 0, false},
		{"ints", 3, 3, true},
		{"different types", 3, int64(3), false},
		{"strings", "a", "a", true},
		{"same slice", s, s, true},
		{"shorter view", s, s[:2], false},
		{"copied slice", s, []int{1, 2, 3}, false},
		{"same map", m, m, true},
		{"copied map", m, map[string]int{"a": 1}, false},
		{"nan", nan, nan, false},
		{"struct with slice inside", holder{s}, holder{s}, false},
		{"struct with int inside", holder{1}, holder{1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, identical(tt.a, tt.b))
		})
	}
}

func TestPropsHelpers(t *testing.T) {
	var empty Props
	assert.NotNil(t, empty.Clone())

	p := Props{"b": 2, "a": 1, "c": nil}
	assert.Equal(t, []string{"a", "b", "c"}, p.Keys())
	assert.Equal(t, Props{"a": 1, "c": nil}, p.Pick("a", "c", "z"))

	c := p.Clone()
	c["a"] = 10
	assert.Equal(t, 1, p["a"])
}

func TestDeepEqual(t *testing.T) {
	assert.True(t, DeepEqual([]int{1, 2}, []int{1, 2}))
	assert.True(t, DeepEqual(math.NaN(), math.NaN()))
	assert.True(t, DeepEqual([]int(nil), []int{}))
	assert.False(t, DeepEqual([]int{1}, []int{2}))
}

func TestEqualWithAsEqualsHook(t *testing.T) {
	c := MustDefine(Definition{
		Name: "gauge",
		Properties: []Property{{
			Key:    "level",
			Equals: EqualWith(cmpopts.EquateApprox(0, 1e-9)),
		}},
	})
	s, err := New(c, Props{"level": 1.0})
	require.NoError(t, err)

	var seen []any
	s.OnKey("level", func(next, _ any, _, _ Props) { seen = append(seen, next) })

	require.NoError(t, s.SetKey("level", 1.0+1e-12))
	assert.Empty(t, seen, "within tolerance")

	require.NoError(t, s.SetKey("level", 2.0))
	assert.Equal(t, []any{2.0}, seen)

	assert.False(t, EqualWith()(1.0, 1.0+1e-12))
}
