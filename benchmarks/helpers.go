// Package benchmarks provides shared helpers for benchmark tests.
package benchmarks

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/comalice/smartstate"
	"github.com/comalice/smartstate/internal/production"
)

func key(i int) string { return fmt.Sprintf("k%d", i) }

func inc(dep string) func(p smartstate.Props) any {
	return func(p smartstate.Props) any {
		n, _ := p[dep].(int)
		return n + 1
	}
}

// GenChainClass creates a class with one stored key k0 and n computed keys,
// each one more than the previous: k0 -> k1 -> ... -> kn.
func GenChainClass(n int) *smartstate.Class {
	if n < 1 {
		n = 1
	}
	def := smartstate.Definition{
		Name:       fmt.Sprintf("chain_%d", n),
		Properties: []smartstate.Property{{Key: key(0)}},
	}
	for i := 1; i <= n; i++ {
		dep := key(i - 1)
		def.Computed = append(def.Computed, smartstate.Computed{
			Property: smartstate.Property{Key: key(i)},
			Deps:     []string{dep},
			Get:      inc(dep),
		})
	}
	return smartstate.MustDefine(def)
}

// GenFanOutClass creates a class with one stored key k0 and n computed keys
// all depending on it.
func GenFanOutClass(n int) *smartstate.Class {
	if n < 1 {
		n = 1
	}
	def := smartstate.Definition{
		Name:       fmt.Sprintf("fanout_%d", n),
		Properties: []smartstate.Property{{Key: key(0)}},
	}
	for i := 1; i <= n; i++ {
		def.Computed = append(def.Computed, smartstate.Computed{
			Property: smartstate.Property{Key: key(i)},
			Deps:     []string{key(0)},
			Get:      inc(key(0)),
		})
	}
	return smartstate.MustDefine(def)
}

// GenFlatClass creates a class with n independent stored keys.
func GenFlatClass(n int) *smartstate.Class {
	if n < 1 {
		n = 1
	}
	def := smartstate.Definition{Name: fmt.Sprintf("flat_%d", n)}
	for i := 0; i < n; i++ {
		def.Properties = append(def.Properties, smartstate.Property{Key: key(i)})
	}
	return smartstate.MustDefine(def)
}

// GenInitial returns {k0: 0, ..., k(n-1): 0}.
func GenInitial(n int) smartstate.Props {
	p := make(smartstate.Props, n)
	for i := 0; i < n; i++ {
		p[key(i)] = 0
	}
	return p
}

// GenSnapshotYAML generates YAML bytes for a flat state with n keys after
// one write.
func GenSnapshotYAML(n int) []byte {
	s, err := smartstate.New(GenFlatClass(n), GenInitial(n))
	if err != nil {
		panic(err)
	}
	defer s.Destroy()
	if err := s.SetKey(key(0), 1); err != nil {
		panic(err)
	}
	data, err := yaml.Marshal(production.NewEnvelope(s))
	if err != nil {
		panic(err)
	}
	return data
}
