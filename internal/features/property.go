package features

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/barun-bash/vbport/internal/ast"
	"github.com/barun-bash/vbport/internal/value"
)

// TypeClass is how a declared type behaves on assignment.
type TypeClass int

const (
	ClassScalar    TypeClass = iota // numbers, strings, dates, enums
	ClassVariant                    // Variant or undeclared
	ClassReference                  // records and objects
)

// PropertyTriad collects the accessors defined for one property name.
type PropertyTriad struct {
	Module string
	Name   string
	Type   string // value type from the first accessor defined
	Get    bool
	Let    bool
	Set    bool

	value value.Value
}

type propertyKey struct{ module, name string }

// Properties is the registry of property triads.
type Properties struct {
	scope
	session *Session
	triads  map[propertyKey]*PropertyTriad
}

func newProperties(s *Session) *Properties {
	return &Properties{session: s, triads: make(map[propertyKey]*PropertyTriad)}
}

// Classify sorts a declared type name into scalar, Variant or reference.
// User-defined types and anything that is not a builtin scalar or a known
// enum count as references.
func (p *Properties) Classify(typeName string) TypeClass {
	switch strings.ToLower(typeName) {
	case "", "variant":
		return ClassVariant
	case "byte", "integer", "long", "longlong", "longptr", "single", "double",
		"currency", "decimal", "string", "boolean", "date":
		return ClassScalar
	}
	if p.session != nil {
		if _, ok := p.session.Enums.Lookup(typeName); ok {
			return ClassScalar
		}
	}
	return ClassReference
}

// Define registers one accessor of a property in the current module. An
// accessor may be defined only once.
func (p *Properties) Define(name string, kind ast.ProcKind, valueType string) (*PropertyTriad, error) {
	if err := p.require(); err != nil {
		return nil, err
	}
	if !kind.IsProperty() {
		return nil, fmt.Errorf("%s is not a property accessor", kind)
	}
	k := propertyKey{fold(p.module), fold(name)}
	t := p.triads[k]
	if t == nil {
		t = &PropertyTriad{Module: p.module, Name: name, Type: valueType}
		p.triads[k] = t
	}
	var slot *bool
	switch kind {
	case ast.ProcPropertyGet:
		slot = &t.Get
	case ast.ProcPropertyLet:
		slot = &t.Let
	default:
		slot = &t.Set
	}
	if *slot {
		return t, fmt.Errorf("duplicate %s %s", kind, name)
	}
	*slot = true
	return t, nil
}

// Lookup returns the triad for name in the current module.
func (p *Properties) Lookup(name string) (*PropertyTriad, bool) {
	t, ok := p.triads[propertyKey{fold(p.module), fold(name)}]
	return t, ok
}

// Let assigns a value through Property Let. Records and objects are
// rejected: they need Set.
func (p *Properties) Let(name string, v value.Value) error {
	t, ok := p.Lookup(name)
	if !ok || !t.Let {
		return fmt.Errorf("property %q has no Property Let", name)
	}
	if value.IsReference(v) {
		return fmt.Errorf("Property Let %s: object or record value requires Set", name)
	}
	t.value = v
	return nil
}

// Set assigns a reference through Property Set. Only records, objects and
// Nothing are accepted.
func (p *Properties) Set(name string, v value.Value) error {
	t, ok := p.Lookup(name)
	if !ok || !t.Set {
		return fmt.Errorf("property %q has no Property Set", name)
	}
	if v != nil && !value.IsReference(v) {
		return fmt.Errorf("Property Set %s: %T is not an object reference", name, v)
	}
	t.value = v
	return nil
}

// Get reads the value last stored through Let or Set.
func (p *Properties) Get(name string) (value.Value, error) {
	t, ok := p.Lookup(name)
	if !ok || !t.Get {
		return nil, fmt.Errorf("property %q has no Property Get", name)
	}
	return t.value, nil
}

// ValidateProcedure checks a property accessor's declared types: the value
// parameter of a Let must not be a reference type and that of a Set must
// not be a scalar. The value parameter is the last one.
func (p *Properties) ValidateProcedure(proc *ast.Procedure) error {
	if proc.Kind != ast.ProcPropertyLet && proc.Kind != ast.ProcPropertySet {
		return nil
	}
	if len(proc.Params) == 0 {
		return fmt.Errorf("%s %s needs a value parameter", proc.Kind, proc.Name)
	}
	param := proc.Params[len(proc.Params)-1]
	class := p.Classify(param.Type.Name)
	switch {
	case proc.Kind == ast.ProcPropertyLet && class == ClassReference:
		return fmt.Errorf("Property Let %s: parameter %s As %s is an object or record; use Property Set",
			proc.Name, param.Name, param.Type.Name)
	case proc.Kind == ast.ProcPropertySet && class == ClassScalar:
		return fmt.Errorf("Property Set %s: parameter %s As %s is not an object; use Property Let",
			proc.Name, param.Name, param.Type.Name)
	}
	return nil
}

// Triads returns the current module's triads ordered by name.
func (p *Properties) Triads() []*PropertyTriad {
	mod := fold(p.module)
	var out []*PropertyTriad
	for k, t := range p.triads {
		if k.module == mod {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b *PropertyTriad) int {
		return cmp.Compare(fold(a.Name), fold(b.Name))
	})
	return out
}

func (p *Properties) forget(module string) {
	mod := fold(module)
	for k := range p.triads {
		if k.module == mod {
			delete(p.triads, k)
		}
	}
}
