package production

import (
	"testing"

	"github.com/comalice/smartstate"
)

func num(p smartstate.Props, key string) float64 {
	v, _ := p[key].(float64)
	return v
}

// rectClass is a float64 rect with a hidden cache key and a tag list.
func rectClass(t testing.TB) *smartstate.Class {
	t.Helper()
	b := smartstate.NewClassBuilder("rect")
	b.Property("left")
	b.Property("width")
	b.Property("tags")
	b.Property("cache").OmitJSON()
	b.Computed("right", "left", "width").
		Get(func(p smartstate.Props) any { return num(p, "left") + num(p, "width") }).
		Set(func(update smartstate.Props, v any, draft smartstate.Props) {
			update["width"] = v.(float64) - num(draft, "left")
		}).
		Mutates("width").
		Visibility(smartstate.Enumerable)
	c, err := b.Build()
	if err != nil {
		t.Fatalf("build rect: %v", err)
	}
	return c
}

func newRect(t testing.TB) *smartstate.State {
	t.Helper()
	s, err := smartstate.New(rectClass(t), smartstate.Props{
		"left":  10.0,
		"width": 100.0,
		"tags":  []any{"a", "b"},
		"cache": "scratch",
	}, smartstate.WithConfig(map[string]any{"owner": "ops"}))
	if err != nil {
		t.Fatalf("new rect: %v", err)
	}
	return s
}
