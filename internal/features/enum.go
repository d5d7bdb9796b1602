package features

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/barun-bash/vbport/internal/ast"
	"github.com/barun-bash/vbport/internal/parser"
)

// EnumMember is one resolved member.
type EnumMember struct {
	Name     string
	Value    int64
	Explicit bool // value written in source rather than auto-incremented
}

// EnumDefinition is a resolved enumeration.
type EnumDefinition struct {
	Name       string
	Visibility ast.Visibility
	Module     string
	Members    []EnumMember
}

// Member finds a member by name.
func (d *EnumDefinition) Member(name string) (EnumMember, bool) {
	for _, m := range d.Members {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return EnumMember{}, false
}

type enumEntry struct {
	def    *EnumDefinition
	decl   *ast.EnumDecl
	status []evalStatus
	errs   []error
}

// Enums resolves enumerations. Member values are evaluated lazily with
// memoization, so members may refer to later members of the same enum;
// reference cycles are reported instead of recursing forever.
type Enums struct {
	scope
	session *Session
	entries []*enumEntry // definition order
}

func newEnums(s *Session) *Enums {
	return &Enums{session: s}
}

// Define resolves decl in the current module. Members whose values cannot
// be evaluated get 0 and are reported in the returned error; the
// definition is returned either way.
func (e *Enums) Define(decl *ast.EnumDecl) (*EnumDefinition, error) {
	if err := e.require(); err != nil {
		return nil, err
	}
	def := &EnumDefinition{
		Name:       decl.Name,
		Visibility: decl.Visibility,
		Module:     e.module,
		Members:    make([]EnumMember, len(decl.Members)),
	}
	for i, m := range decl.Members {
		def.Members[i] = EnumMember{Name: m.Name, Explicit: m.Value != nil}
	}
	entry := &enumEntry{
		def:    def,
		decl:   decl,
		status: make([]evalStatus, len(decl.Members)),
		errs:   make([]error, len(decl.Members)),
	}
	e.remove(e.module, decl.Name)
	e.entries = append(e.entries, entry)

	for i := range decl.Members {
		e.resolve(entry, i)
	}
	return def, errors.Join(entry.errs...)
}

// ParseEnum parses the text of an Enum block and defines it.
func (e *Enums) ParseEnum(text string) (*EnumDefinition, error) {
	mod, errs, err := parser.Parse(text, e.module)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return nil, errs[0]
	}
	for _, d := range mod.Declarations {
		if decl, ok := d.(*ast.EnumDecl); ok {
			return e.Define(decl)
		}
	}
	return nil, fmt.Errorf("no Enum block found")
}

// resolve evaluates member i of entry once.
func (e *Enums) resolve(entry *enumEntry, i int) (int64, error) {
	switch entry.status[i] {
	case resolved:
		return entry.def.Members[i].Value, entry.errs[i]
	case resolving:
		return 0, fmt.Errorf("circular reference to %s.%s", entry.def.Name, entry.def.Members[i].Name)
	}
	entry.status[i] = resolving

	var v int64
	var err error
	if expr := entry.decl.Members[i].Value; expr != nil {
		var f float64
		f, err = evalNumber(expr, func(qualifier, name string) (float64, error) {
			return e.lookupFrom(entry, qualifier, name)
		})
		if err == nil {
			v, err = toInteger(f)
		}
	} else if i > 0 {
		v, err = e.resolve(entry, i-1)
		v++
	}
	if err != nil {
		v = 0
		err = fmt.Errorf("enum %s member %s: %w", entry.def.Name, entry.def.Members[i].Name, err)
	}

	entry.def.Members[i].Value = v
	entry.errs[i] = err
	entry.status[i] = resolved
	return v, err
}

// lookupFrom resolves a name used inside entry: its own members first,
// then other enums, then constants.
func (e *Enums) lookupFrom(entry *enumEntry, qualifier, name string) (float64, error) {
	if qualifier == "" || strings.EqualFold(qualifier, entry.def.Name) {
		for i, m := range entry.decl.Members {
			if strings.EqualFold(m.Name, name) {
				v, err := e.resolve(entry, i)
				return float64(v), err
			}
		}
	}
	if v, ok, err := e.member(qualifier, name); ok {
		return float64(v), err
	}
	if qualifier == "" && e.session != nil && e.session.Consts.lookup(name) != nil {
		return e.session.Consts.resolve("", name)
	}
	if qualifier != "" {
		return 0, fmt.Errorf("%s.%s is not defined", qualifier, name)
	}
	return 0, fmt.Errorf("%q is not defined", name)
}

// member finds an enum member visible from the current module. A bare
// name searches every enum, current module first. ok is false when no
// enum has the member.
func (e *Enums) member(qualifier, name string) (v int64, ok bool, err error) {
	for _, entry := range e.ordered() {
		if qualifier != "" && !strings.EqualFold(qualifier, entry.def.Name) {
			continue
		}
		for i, m := range entry.decl.Members {
			if strings.EqualFold(m.Name, name) {
				v, err := e.resolve(entry, i)
				return v, true, err
			}
		}
	}
	return 0, false, nil
}

// ordered returns entries of the current module first.
func (e *Enums) ordered() []*enumEntry {
	out := make([]*enumEntry, 0, len(e.entries))
	for _, entry := range e.entries {
		if strings.EqualFold(entry.def.Module, e.module) {
			out = append(out, entry)
		}
	}
	for _, entry := range e.entries {
		if !strings.EqualFold(entry.def.Module, e.module) {
			out = append(out, entry)
		}
	}
	return out
}

// Lookup finds an enum by name, preferring the current module.
func (e *Enums) Lookup(name string) (*EnumDefinition, bool) {
	for _, entry := range e.ordered() {
		if strings.EqualFold(entry.def.Name, name) {
			return entry.def, true
		}
	}
	return nil, false
}

// Definitions returns the current module's enums in definition order.
func (e *Enums) Definitions() []*EnumDefinition {
	var out []*EnumDefinition
	for _, entry := range e.entries {
		if strings.EqualFold(entry.def.Module, e.module) {
			out = append(out, entry.def)
		}
	}
	return out
}

func (e *Enums) remove(module, name string) {
	e.entries = slices.DeleteFunc(e.entries, func(entry *enumEntry) bool {
		return strings.EqualFold(entry.def.Module, module) && strings.EqualFold(entry.def.Name, name)
	})
}

func (e *Enums) forget(module string) {
	e.entries = slices.DeleteFunc(e.entries, func(entry *enumEntry) bool {
		return strings.EqualFold(entry.def.Module, module)
	})
}
