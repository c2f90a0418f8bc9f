package extensibility

import (
	"fmt"
	"os"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/rs/zerolog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/comalice/smartstate"
)

// Names bound inside field expressions besides the class keys.
const (
	varValue = "value"
	varPrev  = "prev"
)

type classFile struct {
	Classes []classBlock `hcl:"class,block"`
}

type classBlock struct {
	Name       string          `hcl:"name,label"`
	Extends    string          `hcl:"extends,optional"`
	Properties []propertyBlock `hcl:"property,block"`
	Computed   []computedBlock `hcl:"computed,block"`
	Computes   []computeBlock  `hcl:"compute,block"`
}

func (cb classBlock) declared() []string {
	var keys []string
	for _, p := range cb.Properties {
		keys = append(keys, p.Key)
	}
	for _, c := range cb.Computed {
		keys = append(keys, c.Key)
	}
	for _, c := range cb.Computes {
		keys = append(keys, c.ID)
	}
	return keys
}

type propertyBlock struct {
	Key        string         `hcl:"key,label"`
	Default    *hcl.Attribute `hcl:"default,optional"`
	Normalize  *hcl.Attribute `hcl:"normalize,optional"`
	Valid      *hcl.Attribute `hcl:"valid,optional"`
	Set        *hcl.Attribute `hcl:"set,optional"`
	Mutates    []string       `hcl:"mutates,optional"`
	Visibility string         `hcl:"visibility,optional"`
	OmitJSON   bool           `hcl:"omit_json,optional"`
}

type computedBlock struct {
	Key        string         `hcl:"key,label"`
	Get        *hcl.Attribute `hcl:"get"`
	Normalize  *hcl.Attribute `hcl:"normalize,optional"`
	Valid      *hcl.Attribute `hcl:"valid,optional"`
	Set        *hcl.Attribute `hcl:"set,optional"`
	Mutates    []string       `hcl:"mutates,optional"`
	Visibility string         `hcl:"visibility,optional"`
	OmitJSON   bool           `hcl:"omit_json,optional"`
}

type computeBlock struct {
	ID      string         `hcl:"id,label"`
	Update  *hcl.Attribute `hcl:"update"`
	Mutates []string       `hcl:"mutates,optional"`
}

// Functions returns the functions available to class expressions.
func Functions() map[string]function.Function {
	return map[string]function.Function{
		"upper":     stdlib.UpperFunc,
		"lower":     stdlib.LowerFunc,
		"trimspace": stdlib.TrimSpaceFunc,
		"split":     stdlib.SplitFunc,
		"join":      stdlib.JoinFunc,
		"strlen":    stdlib.StrlenFunc,
		"format":    stdlib.FormatFunc,
		"min":       stdlib.MinFunc,
		"max":       stdlib.MaxFunc,
		"abs":       stdlib.AbsoluteFunc,
		"floor":     stdlib.FloorFunc,
		"ceil":      stdlib.CeilFunc,
		"length":    stdlib.LengthFunc,
		"concat":    stdlib.ConcatFunc,
		"coalesce":  stdlib.CoalesceFunc,
	}
}

// Loader turns HCL class declarations into smartstate classes.
type Loader struct {
	log   zerolog.Logger
	funcs map[string]function.Function
	base  map[string]*smartstate.Class
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger that receives expression evaluation failures.
func WithLogger(l zerolog.Logger) LoaderOption {
	return func(ld *Loader) { ld.log = l }
}

// WithFunction makes fn callable from expressions as name.
func WithFunction(name string, fn function.Function) LoaderOption {
	return func(ld *Loader) { ld.funcs[name] = fn }
}

// WithBase makes classes defined in Go available to extends.
func WithBase(classes ...*smartstate.Class) LoaderOption {
	return func(ld *Loader) {
		for _, c := range classes {
			ld.base[c.Name()] = c
		}
	}
}

// NewLoader returns a Loader with the standard function set.
func NewLoader(opts ...LoaderOption) *Loader {
	ld := &Loader{
		log:   zerolog.Nop(),
		funcs: Functions(),
		base:  map[string]*smartstate.Class{},
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Catalog holds the classes of one HCL source along with property defaults.
type Catalog struct {
	names    []string
	classes  map[string]*smartstate.Class
	defaults map[string]smartstate.Props
}

// Names returns the class names in declaration order.
func (c *Catalog) Names() []string { return slices.Clone(c.names) }

// Class returns the class declared as name.
func (c *Catalog) Class(name string) (*smartstate.Class, bool) {
	cl, ok := c.classes[name]
	return cl, ok
}

// Defaults returns the default values of name, inherited ones included.
func (c *Catalog) Defaults(name string) smartstate.Props {
	return c.defaults[name].Clone()
}

// New creates a State of class name seeded with its defaults overlaid by
// initial.
func (c *Catalog) New(name string, initial smartstate.Props, opts ...smartstate.Option) (*smartstate.State, error) {
	cl, ok := c.classes[name]
	if !ok {
		return nil, fmt.Errorf("%w: class %q", smartstate.ErrUnknownKey, name)
	}
	props := c.Defaults(name)
	for k, v := range initial {
		props[k] = v
	}
	return smartstate.New(cl, props, opts...)
}

// LoadFile reads and loads an HCL class file.
func (ld *Loader) LoadFile(path string) (*Catalog, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ld.Load(src, path)
}

// Load parses src and builds every class it declares. Classes may extend
// earlier classes in the same source or base classes.
func (ld *Loader) Load(src []byte, filename string) (*Catalog, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	var cf classFile
	if diags := gohcl.DecodeBody(file.Body, ld.evalContext(nil), &cf); diags.HasErrors() {
		return nil, diags
	}

	cat := &Catalog{classes: map[string]*smartstate.Class{}, defaults: map[string]smartstate.Props{}}
	for _, cb := range cf.Classes {
		if _, dup := cat.classes[cb.Name]; dup {
			return nil, fmt.Errorf("%s: class %q declared twice", filename, cb.Name)
		}
		var parent *smartstate.Class
		defaults := smartstate.Props{}
		if cb.Extends != "" {
			if p, ok := cat.classes[cb.Extends]; ok {
				parent = p
				defaults = cat.defaults[cb.Extends].Clone()
			} else if p, ok := ld.base[cb.Extends]; ok {
				parent = p
			} else {
				return nil, fmt.Errorf("%s: class %q extends unknown class %q", filename, cb.Name, cb.Extends)
			}
		}
		c, err := ld.buildClass(cb, parent, defaults)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		cat.names = append(cat.names, cb.Name)
		cat.classes[cb.Name] = c
		cat.defaults[cb.Name] = defaults
	}
	return cat, nil
}

func (ld *Loader) buildClass(cb classBlock, parent *smartstate.Class, defaults smartstate.Props) (*smartstate.Class, error) {
	known := map[string]bool{}
	for _, k := range cb.declared() {
		if k == varValue || k == varPrev {
			return nil, fmt.Errorf("class %q: %q is reserved", cb.Name, k)
		}
	}
	if parent != nil {
		for _, k := range parent.Keys() {
			known[k] = true
		}
	}
	for _, p := range cb.Properties {
		known[p.Key] = true
	}
	for _, cp := range cb.Computed {
		known[cp.Key] = true
	}

	cl := &classLoader{ld: ld, class: cb.Name, known: known}
	def := smartstate.Definition{Name: cb.Name}

	for _, pb := range cb.Properties {
		p, err := cl.property(pb.Key, pb.Normalize, pb.Valid, pb.Set, pb.Mutates, pb.Visibility, pb.OmitJSON)
		if err != nil {
			return nil, err
		}
		if pb.Default != nil {
			v, err := ld.eval(pb.Default.Expr, nil)
			if err != nil {
				return nil, fmt.Errorf("property %q default: %w", pb.Key, err)
			}
			defaults[pb.Key] = v
		}
		def.Properties = append(def.Properties, p)
	}

	for _, cp := range cb.Computed {
		p, err := cl.property(cp.Key, cp.Normalize, cp.Valid, cp.Set, cp.Mutates, cp.Visibility, cp.OmitJSON)
		if err != nil {
			return nil, err
		}
		deps, err := cl.refs(cp.Key, cp.Get.Expr)
		if err != nil {
			return nil, err
		}
		def.Computed = append(def.Computed, smartstate.Computed{
			Property: p,
			Deps:     deps,
			Get:      cl.getter(cp.Key, cp.Get.Expr, deps),
		})
	}

	for _, node := range cb.Computes {
		deps, err := cl.refs(node.ID, node.Update.Expr, varPrev)
		if err != nil {
			return nil, err
		}
		prevKeys, err := cl.prevRefs(node.ID, node.Update.Expr)
		if err != nil {
			return nil, err
		}
		mutates, err := cl.mutates(node.ID, node.Update.Expr, node.Mutates)
		if err != nil {
			return nil, err
		}
		def.Computes = append(def.Computes, smartstate.Compute{
			ID:      node.ID,
			Deps:    deps,
			Mutates: mutates,
			Update:  cl.updater(node.ID, node.Update.Expr, deps, prevKeys),
		})
	}

	if parent != nil {
		return parent.Extend(def)
	}
	return smartstate.Define(def)
}

func (ld *Loader) evalContext(vars map[string]cty.Value) *hcl.EvalContext {
	return &hcl.EvalContext{Variables: vars, Functions: ld.funcs}
}

// eval evaluates expr with vars bound and converts the result to Go data.
func (ld *Loader) eval(expr hcl.Expression, vars map[string]cty.Value) (any, error) {
	v, diags := expr.Value(ld.evalContext(vars))
	if diags.HasErrors() {
		return nil, diags
	}
	return fromCty(v)
}

// classLoader builds the hooks of one class. Every hook evaluates its HCL
// expression against the keys it references; evaluation failures are logged
// and treated as "no result".
type classLoader struct {
	ld    *Loader
	class string
	known map[string]bool
}

func (cl *classLoader) property(key string, normalize, valid, set *hcl.Attribute, mutates []string, visibility string, omitJSON bool) (smartstate.Property, error) {
	p := smartstate.Property{Key: key, OmitJSON: omitJSON, Equals: smartstate.DeepEqual}
	switch visibility {
	case "", "default":
	case "enumerable":
		p.Visibility = smartstate.Enumerable
	case "hidden":
		p.Visibility = smartstate.Hidden
	default:
		return p, fmt.Errorf("field %q: unknown visibility %q", key, visibility)
	}

	if normalize != nil {
		refs, err := cl.refs(key, normalize.Expr, varValue, varPrev)
		if err != nil {
			return p, err
		}
		p.Normalize = func(next, prev any, draft smartstate.Props) any {
			v, ok := cl.run(key, "normalize", normalize.Expr, refs, draft, next, prev)
			if !ok {
				return next
			}
			return v
		}
	}

	if valid != nil {
		refs, err := cl.refs(key, valid.Expr, varValue)
		if err != nil {
			return p, err
		}
		p.Valid = func(value any, draft smartstate.Props) bool {
			v, ok := cl.runCty(key, "valid", valid.Expr, refs, draft, value, nil)
			if !ok {
				return false
			}
			b, err := convert.Convert(v, cty.Bool)
			if err != nil || b.IsNull() || !b.IsKnown() {
				cl.ld.log.Warn().Str("class", cl.class).Str("key", key).Msg("valid expression did not yield a bool")
				return false
			}
			return b.True()
		}
	}

	if set != nil {
		refs, err := cl.refs(key, set.Expr, varValue, varPrev)
		if err != nil {
			return p, err
		}
		p.Mutates, err = cl.mutates(key, set.Expr, mutates)
		if err != nil {
			return p, err
		}
		p.Set = func(update smartstate.Props, value any, draft smartstate.Props) {
			v, ok := cl.run(key, "set", set.Expr, refs, draft, value, draft[key])
			if !ok {
				return
			}
			cl.merge(key, update, v)
		}
	}
	return p, nil
}

// refs returns the class keys expr reads, in first-use order. Roots listed
// in extra are allowed without being keys.
func (cl *classLoader) refs(owner string, expr hcl.Expression, extra ...string) ([]string, error) {
	var keys []string
	for _, tr := range expr.Variables() {
		root := tr.RootName()
		switch {
		case slices.Contains(extra, root):
		case cl.known[root]:
			if !slices.Contains(keys, root) {
				keys = append(keys, root)
			}
		default:
			return nil, fmt.Errorf("%q: unknown reference %q at %s", owner, root, tr.SourceRange())
		}
	}
	return keys, nil
}

// mutates returns explicit when given, else the keys of expr when it is an
// object constructor with static keys.
func (cl *classLoader) mutates(owner string, expr hcl.Expression, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	obj, ok := expr.(*hclsyntax.ObjectConsExpr)
	if !ok {
		return nil, fmt.Errorf("%q: mutates is required unless the expression is an object", owner)
	}
	var keys []string
	for _, item := range obj.Items {
		kv, diags := item.KeyExpr.Value(nil)
		if diags.HasErrors() || kv.IsNull() || !kv.IsKnown() || kv.Type() != cty.String {
			return nil, fmt.Errorf("%q: object keys must be static, or list mutates explicitly", owner)
		}
		k := kv.AsString()
		if !cl.known[k] {
			return nil, fmt.Errorf("%q: writes unknown key %q", owner, k)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func (cl *classLoader) getter(key string, expr hcl.Expression, deps []string) func(smartstate.Props) any {
	return func(p smartstate.Props) any {
		v, _ := cl.run(key, "get", expr, deps, p, nil, nil)
		return v
	}
}

// prevRefs returns the keys read as prev.<key>.
func (cl *classLoader) prevRefs(owner string, expr hcl.Expression) ([]string, error) {
	var keys []string
	for _, tr := range expr.Variables() {
		if tr.RootName() != varPrev {
			continue
		}
		if len(tr) < 2 {
			return nil, fmt.Errorf("%q: prev must be used as prev.<key> at %s", owner, tr.SourceRange())
		}
		name, isAttr := tr[1].(hcl.TraverseAttr)
		if !isAttr || !cl.known[name.Name] {
			return nil, fmt.Errorf("%q: prev must be used as prev.<key> at %s", owner, tr.SourceRange())
		}
		if !slices.Contains(keys, name.Name) {
			keys = append(keys, name.Name)
		}
	}
	return keys, nil
}

func (cl *classLoader) updater(id string, expr hcl.Expression, deps, prevKeys []string) func(update, next, prev smartstate.Props) {
	return func(update, next, prev smartstate.Props) {
		vars, err := cl.vars(deps, next)
		if err == nil {
			var pv map[string]cty.Value
			pv, err = cl.vars(prevKeys, prev)
			vars[varPrev] = cty.EmptyObjectVal
			if len(pv) > 0 {
				vars[varPrev] = cty.ObjectVal(pv)
			}
		}
		if err != nil {
			cl.ld.log.Warn().Err(err).Str("class", cl.class).Str("node", id).Msg("convert compute inputs")
			return
		}
		v, err := cl.ld.eval(expr, vars)
		if err != nil {
			cl.ld.log.Warn().Err(err).Str("class", cl.class).Str("node", id).Msg("evaluate compute update")
			return
		}
		cl.merge(id, update, v)
	}
}

func (cl *classLoader) merge(owner string, update smartstate.Props, v any) {
	m, ok := v.(map[string]any)
	if !ok {
		cl.ld.log.Warn().Str("class", cl.class).Str("key", owner).Msg("update expression did not yield an object")
		return
	}
	for k, e := range m {
		update[k] = e
	}
}

func (cl *classLoader) vars(keys []string, p smartstate.Props) (map[string]cty.Value, error) {
	vars := make(map[string]cty.Value, len(keys)+2)
	for _, k := range keys {
		v, err := toCty(p[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		vars[k] = v
	}
	return vars, nil
}

// runCty evaluates expr for a field hook with the referenced keys plus value
// and prev bound.
func (cl *classLoader) runCty(key, hook string, expr hcl.Expression, refs []string, p smartstate.Props, value, prev any) (cty.Value, bool) {
	vars, err := cl.vars(refs, p)
	if err == nil {
		vars[varValue], err = toCty(value)
	}
	if err == nil {
		vars[varPrev], err = toCty(prev)
	}
	if err != nil {
		cl.ld.log.Warn().Err(err).Str("class", cl.class).Str("key", key).Str("hook", hook).Msg("convert expression inputs")
		return cty.NilVal, false
	}
	v, diags := expr.Value(cl.ld.evalContext(vars))
	if diags.HasErrors() {
		cl.ld.log.Warn().Err(diags).Str("class", cl.class).Str("key", key).Str("hook", hook).Msg("evaluate expression")
		return cty.NilVal, false
	}
	return v, true
}

func (cl *classLoader) run(key, hook string, expr hcl.Expression, refs []string, p smartstate.Props, value, prev any) (any, bool) {
	v, ok := cl.runCty(key, hook, expr, refs, p, value, prev)
	if !ok {
		return nil, false
	}
	out, err := fromCty(v)
	if err != nil {
		cl.ld.log.Warn().Err(err).Str("class", cl.class).Str("key", key).Str("hook", hook).Msg("convert expression result")
		return nil, false
	}
	return out, true
}
