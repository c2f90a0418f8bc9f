package smartstate_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/comalice/smartstate"
)

func TestClassKeyOrders(t *testing.T) {
	c := boxRect(t)

	assert.Equal(t, "box", c.Name())
	require.NotNil(t, c.Parent())
	assert.Equal(t, "rect", c.Parent().Name())

	assert.Equal(t, []string{"left", "width", "firstName", "lastName", "top", "height", "leftTop", "desc"}, c.StoredKeys())
	assert.Equal(t, []string{"right", "LAST_NAME", "fullName", "bottom"}, c.ComputedKeys())
	assert.Equal(t, append(c.StoredKeys(), c.ComputedKeys()...), c.Keys())

	want := []string{"left", "width", "firstName", "lastName", "top", "height", "right", "fullName", "bottom"}
	assert.Equal(t, want, c.EnumerableKeys())
	assert.Equal(t, want, c.JSONKeys())

	assert.Len(t, c.Order(), 13)
	assert.Contains(t, c.Order(), "compute#0")
}

func TestParentClassUnchangedByExtend(t *testing.T) {
	parent := personRect(t)
	before := parent.Keys()

	_, err := parent.Extend(Definition{Properties: []Property{{Key: "top"}}})
	require.NoError(t, err)

	assert.Equal(t, before, parent.Keys())
	assert.False(t, parent.Has("top"))
}

func TestClassSettable(t *testing.T) {
	c := personRect(t)
	assert.True(t, c.Settable("left"))
	assert.True(t, c.Settable("fullName"))
	assert.False(t, c.Settable("right"))
	assert.False(t, c.Settable("nope"))
	assert.True(t, c.Has("LAST_NAME"))
	assert.False(t, c.Has("nope"))
}

func TestJSONVisibility(t *testing.T) {
	c := MustDefine(Definition{
		Name: "vis",
		Properties: []Property{
			{Key: "a"},
			{Key: "secret", OmitJSON: true},
			{Key: "hidden", Visibility: Hidden},
			{Key: "hiddenJSON", Visibility: Hidden, ToJSON: func(v any) any { return v }},
		},
		Computed: []Computed{{
			Property: Property{Key: "twice"},
			Deps:     []string{"a"},
			Get:      func(p Props) any { return 2 * p["a"].(int) },
		}},
	})

	assert.Equal(t, []string{"a", "secret"}, c.EnumerableKeys())
	assert.Equal(t, []string{"a", "hiddenJSON"}, c.JSONKeys())
}

func TestDefineErrors(t *testing.T) {
	get := func(Props) any { return nil }
	tests := []struct {
		name     string
		def      Definition
		conflict string
		is       error
	}{
		{
			name:     "duplicate property",
			def:      Definition{Name: "dup", Properties: []Property{{Key: "a"}, {Key: "a"}}},
			conflict: "a",
		},
		{
			name: "computed shadows property",
			def: Definition{
				Name:       "dup",
				Properties: []Property{{Key: "a"}},
				Computed:   []Computed{{Property: Property{Key: "a"}, Get: get}},
			},
			conflict: "a",
		},
		{
			name: "compute id shadows property",
			def: Definition{
				Name:       "dup",
				Properties: []Property{{Key: "a"}},
				Computes:   []Compute{{ID: "a", Update: func(_, _, _ Props) {}}},
			},
			conflict: "a",
		},
		{
			name: "unknown dependency",
			def: Definition{
				Name:     "deps",
				Computed: []Computed{{Property: Property{Key: "b"}, Deps: []string{"a"}, Get: get}},
			},
			is: ErrUnknownKey,
		},
		{
			name: "unknown mutation",
			def: Definition{
				Name:       "deps",
				Properties: []Property{{Key: "a"}},
				Computes:   []Compute{{Deps: []string{"a"}, Mutates: []string{"z"}, Update: func(_, _, _ Props) {}}},
			},
			is: ErrUnknownKey,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Define(tt.def)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
				return
			}
			var conflict *NameConflictError
			require.True(t, errors.As(err, &conflict), "got %v", err)
			assert.Equal(t, tt.conflict, conflict.Key)
		})
	}
}

func TestDefineRejectsIncompleteNodes(t *testing.T) {
	_, err := Define(Definition{Name: "x", Properties: []Property{{Key: ""}}})
	var conflict *NameConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Empty(t, conflict.Key)

	_, err = Define(Definition{Name: "x", Computed: []Computed{{Property: Property{Key: "a"}}}})
	assert.ErrorContains(t, err, "no getter")

	_, err = Define(Definition{Name: "x", Computes: []Compute{{ID: "c"}}})
	assert.ErrorContains(t, err, "no update")
}

func TestExtendConflictsWithParent(t *testing.T) {
	_, err := personRect(t).Extend(Definition{Properties: []Property{{Key: "left"}}})
	var conflict *NameConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "rect", conflict.Class)
	assert.Equal(t, "left", conflict.Key)
}

func TestMustDefinePanics(t *testing.T) {
	assert.Panics(t, func() {
		MustDefine(Definition{Properties: []Property{{Key: "a"}, {Key: "a"}}})
	})
}

func TestClassSchema(t *testing.T) {
	c := boxRect(t)
	s := c.Schema()

	require.NoError(t, s.Validate())
	assert.Equal(t, "box", s.Name)
	assert.Len(t, s.Version, 16)
	assert.Equal(t, s.Version, c.Schema().Version)
	assert.Equal(t, c.Keys(), s.Keys())

	right, ok := s.Field("right")
	require.True(t, ok)
	assert.Equal(t, []string{"left", "width"}, right.Deps)
	assert.False(t, right.Settable)
	assert.True(t, right.Enumerable)

	full, ok := s.Field("fullName")
	require.True(t, ok)
	assert.True(t, full.Settable)
	assert.Equal(t, []string{"firstName", "lastName"}, full.Mutates)

	compute, ok := s.Field("compute#0")
	require.True(t, ok)
	assert.EqualValues(t, "compute", compute.Kind)
	assert.Equal(t, []string{"leftTop"}, compute.Mutates)

	assert.NotEqual(t, s.Version, personRect(t).Schema().Version)
}
