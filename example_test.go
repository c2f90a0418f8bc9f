package smartstate_test

import (
	"fmt"

	"github.com/comalice/smartstate"
)

func Example() {
	rect := smartstate.MustDefine(smartstate.Definition{
		Name:       "rect",
		Properties: []smartstate.Property{{Key: "left"}, {Key: "width"}},
		Computed: []smartstate.Computed{{
			Property: smartstate.Property{Key: "right"},
			Deps:     []string{"left", "width"},
			Get: func(p smartstate.Props) any {
				return p["left"].(int) + p["width"].(int)
			},
		}},
	})

	s, err := smartstate.New(rect, smartstate.Props{"left": 10, "width": 100})
	if err != nil {
		panic(err)
	}
	s.OnKey("right", func(next, prev any, _, _ smartstate.Props) {
		fmt.Println("right:", prev, "->", next)
	})

	_ = s.SetKey("left", 5)
	fmt.Println(s.Get("left", "right"))
	// Output:
	// right: 110 -> 105
	// map[left:5 right:105]
}

func ExampleClassBuilder() {
	b := smartstate.NewClassBuilder("temperature")
	b.Property("celsius")
	b.Computed("fahrenheit", "celsius").
		Get(func(p smartstate.Props) any { return p["celsius"].(float64)*9/5 + 32 }).
		Set(func(update smartstate.Props, v any, _ smartstate.Props) {
			update["celsius"] = (v.(float64) - 32) * 5 / 9
		})
	class, _ := b.Build()

	s, _ := smartstate.New(class, smartstate.Props{"celsius": 100.0})
	fmt.Println(s.GetKey("fahrenheit"))

	_ = s.SetKey("fahrenheit", 32.0)
	fmt.Println(s.GetKey("celsius"))
	// Output:
	// 212
	// 0
}
