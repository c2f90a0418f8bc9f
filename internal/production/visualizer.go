package production

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/comalice/smartstate"
	"github.com/comalice/smartstate/internal/primitives"
)

// Visualizer renders class schemas.
type Visualizer struct{}

// ExportDOT generates Graphviz DOT source for the class dependency graph.
// Dependencies are solid edges, writes from setters and compute nodes are
// dashed. When values is non-nil each field is labelled with its value.
func (v *Visualizer) ExportDOT(schema *smartstate.Schema, values smartstate.Props) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `digraph %q {
  rankdir=LR;
  node [fontsize=10];
  edge [fontsize=9];
`, schema.Name)

	for _, key := range schema.Order {
		f, ok := schema.Field(key)
		if !ok {
			continue
		}
		renderField(&buf, f, values)
	}
	for _, key := range schema.Order {
		f, _ := schema.Field(key)
		for _, dep := range f.Deps {
			fmt.Fprintf(&buf, "  %q -> %q;\n", dep, f.Key)
		}
		for _, m := range f.Mutates {
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed];\n", f.Key, m)
		}
	}
	buf.WriteString("}\n")
	return buf.String()
}

func renderField(buf *bytes.Buffer, f primitives.FieldSchema, values smartstate.Props) {
	label := f.Key
	if values != nil && f.Kind != primitives.Effect {
		label = fmt.Sprintf("%s = %v", f.Key, values[f.Key])
	}
	var shape string
	switch f.Kind {
	case primitives.Stored:
		shape = "box"
	case primitives.Derived:
		shape = "ellipse"
	default:
		shape = "diamond"
	}
	style := ""
	if f.Kind == primitives.Derived && f.Settable {
		style = " style=filled fillcolor=lightblue"
	}
	fmt.Fprintf(buf, "  %q [label=%q shape=%s%s];\n", f.Key, label, shape, style)
}

// ExportJSON serializes the schema to JSON.
func (v *Visualizer) ExportJSON(schema *smartstate.Schema) ([]byte, error) {
	return json.MarshalIndent(schema, "", "  ")
}

// ExportYAML serializes the schema to YAML.
func (v *Visualizer) ExportYAML(schema *smartstate.Schema) ([]byte, error) {
	return yaml.Marshal(schema)
}
