package smartstate_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/comalice/smartstate"
)

var (
	Left      = NewField[int]("left")
	Width     = NewField[int]("width")
	Right     = NewField[int]("right")
	Top       = NewField[int]("top")
	Height    = NewField[int]("height")
	Bottom    = NewField[int]("bottom")
	FirstName = NewField[string]("firstName")
	LastName  = NewField[string]("lastName")
	FullName  = NewField[string]("fullName")
	UpperLast = NewField[string]("LAST_NAME")
	LeftTop   = NewField[[]int]("leftTop")
	Desc      = NewField[bool]("desc")

	X  = NewField[float64]("x")
	X2 = NewField[float64]("x2")
	X4 = NewField[float64]("x4")
	X8 = NewField[float64]("x8")
)

// personRect has a position, a width and a person name with a writable
// fullName that splits into first and last name.
func personRect(t testing.TB) *Class {
	t.Helper()
	c, err := Define(Definition{
		Name: "rect",
		Properties: []Property{
			{Key: "left"},
			{Key: "width"},
			{Key: "firstName"},
			{Key: "lastName"},
		},
		Computed: []Computed{
			{
				Property: Property{Key: "right", Visibility: Enumerable},
				Deps:     []string{"left", "width"},
				Get:      func(p Props) any { return Left.From(p) + Width.From(p) },
			},
			{
				Property: Property{Key: "LAST_NAME"},
				Deps:     []string{"lastName"},
				Get:      func(p Props) any { return strings.ToUpper(LastName.From(p)) },
			},
			{
				Property: Property{
					Key: "fullName",
					Normalize: func(next, _ any, _ Props) any {
						s, _ := next.(string)
						return strings.Join(strings.Fields(s), " ")
					},
					Valid: func(v any, _ Props) bool {
						s, ok := v.(string)
						return ok && len(s) >= 1 && len(s) <= 10
					},
					Set: func(update Props, v any, _ Props) {
						parts := strings.Fields(v.(string))
						FirstName.Put(update, parts[0])
						last := ""
						if len(parts) > 1 {
							last = parts[1]
						}
						LastName.Put(update, last)
					},
					ToJSON: func(v any) any { return v },
				},
				Deps: []string{"firstName", "lastName"},
				Get: func(p Props) any {
					var parts []string
					for _, s := range []string{FirstName.From(p), LastName.From(p)} {
						if s != "" {
							parts = append(parts, s)
						}
					}
					return strings.Join(parts, " ")
				},
			},
		},
	})
	require.NoError(t, err)
	return c
}

// boxRect extends personRect with a vertical extent and a sorted leftTop
// pair maintained by a free compute node.
func boxRect(t testing.TB) *Class {
	t.Helper()
	c, err := personRect(t).Extend(Definition{
		Name: "box",
		Properties: []Property{
			{Key: "top"},
			{Key: "height"},
			{Key: "leftTop", Equals: DeepEqual, Visibility: Hidden},
			{Key: "desc", Visibility: Hidden},
		},
		Computed: []Computed{
			{
				Property: Property{Key: "bottom", Visibility: Enumerable},
				Deps:     []string{"top", "height"},
				Get:      func(p Props) any { return Top.From(p) + Height.From(p) },
			},
		},
		Computes: []Compute{
			{
				Deps:    []string{"left", "top", "desc"},
				Mutates: []string{"leftTop"},
				Update: func(update, next, _ Props) {
					pair := []int{Left.From(next), Top.From(next)}
					slices.Sort(pair)
					if Desc.From(next) {
						slices.Reverse(pair)
					}
					LeftTop.Put(update, pair)
				},
			},
		},
	})
	require.NoError(t, err)
	return c
}

// chained keeps x, x2, x4 and x8 in a 1:2:4:8 ratio. x4 is computed from x2
// and writable; free compute nodes tie the remaining pairs in both directions.
func chained(t testing.TB) *Class {
	t.Helper()
	b := NewClassBuilder("chained")
	b.Property("x")
	b.Property("x2")
	b.Property("x8")
	b.Computed("x4", "x2").
		Get(func(p Props) any { return 2 * X2.From(p) }).
		Set(func(update Props, v any, _ Props) { X2.Put(update, v.(float64)/2) })

	b.Compute("").Deps("x4").Mutates("x8").
		Update(func(update, next, _ Props) { X8.Put(update, 2*X4.From(next)) })
	b.Compute("").Deps("x8").Mutates("x4").
		Update(func(update, next, _ Props) { X4.Put(update, X8.From(next)/2) })
	b.Compute("").Deps("x").Mutates("x2").
		Update(func(update, next, _ Props) { X2.Put(update, 2*X.From(next)) })
	b.Compute("").Deps("x2").Mutates("x").
		Update(func(update, next, _ Props) { X.Put(update, X2.From(next)/2) })

	c, err := b.Build()
	require.NoError(t, err)
	return c
}

func ratio(x float64) Props {
	return Props{"x": x, "x2": 2 * x, "x4": 4 * x, "x8": 8 * x}
}
