package codegen

import (
	"strings"

	"github.com/barun-bash/vbport/internal/ast"
)

type symKind int

const (
	symVar symKind = iota // module-level variable
	symConst
	symLocal
	symParam
	symStatic
	symResult // the function's own name inside its body
	symProc
	symProperty
	symEnum
	symEnumMember
	symType
)

// symbol is a resolved source name and the expression that reads it.
type symbol struct {
	kind     symKind
	name     string // declared spelling
	js       string
	typ      ast.TypeRef
	array    bool
	fixedLen ast.Expr // String * n

	withEvents bool
	optional   bool

	proc  *ast.Procedure // symProc
	owner string         // symEnumMember: the enum
	prop  *propertySet   // symProperty
}

func (s *symbol) isVariable() bool {
	switch s.kind {
	case symVar, symLocal, symParam, symStatic, symResult:
		return true
	}
	return false
}

// propertySet holds the accessors of one module-level property.
type propertySet struct {
	name          string
	get, let, set *ast.Procedure
}

func (p *propertySet) accessor(kind ast.ProcKind) *ast.Procedure {
	switch kind {
	case ast.ProcPropertyGet:
		return p.get
	case ast.ProcPropertyLet:
		return p.let
	default:
		return p.set
	}
}

// procName is the generated function name of a procedure.
func procName(p *ast.Procedure) string {
	switch p.Kind {
	case ast.ProcPropertyGet:
		return jsIdent(p.Name) + "$Get"
	case ast.ProcPropertyLet:
		return jsIdent(p.Name) + "$Let"
	case ast.ProcPropertySet:
		return jsIdent(p.Name) + "$Set"
	}
	return jsIdent(p.Name)
}

func fold(name string) string {
	return strings.ToLower(name)
}

// collect builds the module-level symbol table. The first declaration of
// a name wins.
func (g *Generator) collect() {
	g.syms = make(map[string]*symbol)
	add := func(s *symbol) {
		if _, dup := g.syms[fold(s.name)]; !dup {
			g.syms[fold(s.name)] = s
		}
	}
	for _, d := range g.mod.Declarations {
		switch d := d.(type) {
		case *ast.VarDecl:
			add(&symbol{kind: symVar, name: d.Name, js: jsIdent(d.Name), typ: d.Type,
				array: d.IsArray || len(d.Dims) > 0, fixedLen: d.Type.StringLength, withEvents: d.WithEvents})
		case *ast.ConstDecl:
			add(&symbol{kind: symConst, name: d.Name, js: jsIdent(d.Name), typ: d.Type})
		case *ast.EnumDecl:
			add(&symbol{kind: symEnum, name: d.Name, js: jsIdent(d.Name)})
		case *ast.TypeDecl:
			add(&symbol{kind: symType, name: d.Name, js: jsIdent(d.Name)})
		}
	}
	// Enum members are reachable unqualified after every other name.
	for _, d := range g.mod.Declarations {
		if e, ok := d.(*ast.EnumDecl); ok {
			for _, m := range e.Members {
				add(&symbol{kind: symEnumMember, name: m.Name, owner: e.Name,
					js: jsIdent(e.Name) + "." + m.Name})
			}
		}
	}
	g.props = nil
	for _, p := range g.mod.Procedures {
		if !p.Kind.IsProperty() {
			add(&symbol{kind: symProc, name: p.Name, js: jsIdent(p.Name), typ: p.ReturnType, proc: p})
			continue
		}
		s, ok := g.syms[fold(p.Name)]
		if !ok {
			s = &symbol{kind: symProperty, name: p.Name, js: jsIdent(p.Name), prop: &propertySet{name: p.Name}}
			g.syms[fold(p.Name)] = s
			g.props = append(g.props, s.prop)
		}
		if s.kind != symProperty {
			continue
		}
		switch p.Kind {
		case ast.ProcPropertyGet:
			s.prop.get = p
			s.typ = p.ReturnType
		case ast.ProcPropertyLet:
			s.prop.let = p
		case ast.ProcPropertySet:
			s.prop.set = p
		}
	}
}

// lookup resolves a name in the current procedure, then the module.
func (g *Generator) lookup(name string) *symbol {
	key := fold(name)
	if g.proc != nil {
		if s, ok := g.proc.syms[key]; ok {
			return s
		}
	}
	return g.syms[key]
}

// isTypeName reports whether name is a user-defined type visible here.
func (g *Generator) isTypeName(name string) bool {
	if s := g.syms[fold(name)]; s != nil && s.kind == symType {
		return true
	}
	_, ok := g.session.Types.Lookup(name)
	return ok
}

func (g *Generator) isEnumName(name string) bool {
	if s := g.syms[fold(name)]; s != nil && s.kind == symEnum {
		return true
	}
	_, ok := g.session.Enums.Lookup(name)
	return ok
}
