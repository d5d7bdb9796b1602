// Package ast defines the syntax tree produced by the parser.
//
// Nodes are treated as immutable values once the parser returns them:
// optimizer passes build new trees instead of editing existing ones, and
// unchanged subtrees are shared between the old and new trees.
//
// Declarations, statements and expressions are closed sum types. Each is an
// interface with an unexported marker method, so only the types in this
// package can implement them and every type switch over them can be
// checked against the full list below.
package ast

import (
	"fmt"
	"strings"
)

// Pos is a 1-based source position.
type Pos struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Position returns the position itself; embedding Pos gives every node a
// Position method.
func (p Pos) Position() Pos { return p }

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Visibility is the access level of a declaration or procedure.
type Visibility int

const (
	VisibilityDefault Visibility = iota // no modifier written
	VisibilityPublic
	VisibilityPrivate
	VisibilityFriend
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPublic:
		return "Public"
	case VisibilityPrivate:
		return "Private"
	case VisibilityFriend:
		return "Friend"
	default:
		return ""
	}
}

// IsExported reports whether the item is visible outside its module.
// Module-level Dim and unmarked declarations are private; unmarked
// procedures are public.
func (v Visibility) IsExported(isProcedure bool) bool {
	switch v {
	case VisibilityPublic, VisibilityFriend:
		return true
	case VisibilityPrivate:
		return false
	default:
		return isProcedure
	}
}

// Module is the root node for one source file.
type Module struct {
	Name         string        `json:"name"`
	Options      ModuleOptions `json:"options"`
	Attributes   []*Attribute  `json:"attributes,omitempty"`
	Declarations []Decl        `json:"declarations,omitempty"`
	Procedures   []*Procedure  `json:"procedures,omitempty"`

	// Comments holds comments from the declarations section, in order.
	Comments []*CommentStmt `json:"comments,omitempty"`
}

// ModuleOptions records the Option statements at the top of a module.
type ModuleOptions struct {
	Explicit    bool `json:"explicit,omitempty"`
	Base        int  `json:"base,omitempty"`
	CompareText bool `json:"compare_text,omitempty"`
}

// Attribute is an `Attribute VB_Name = "Module1"` line.
type Attribute struct {
	Pos
	Name  string `json:"name"`
	Value Expr   `json:"value"`
}

// Position reports the start of the module, which is always 1:1.
func (m *Module) Position() Pos { return Pos{Line: 1, Column: 1} }

// Procedure finds a procedure by name (case-insensitive) and kind.
func (m *Module) Procedure(name string, kind ProcKind) *Procedure {
	for _, p := range m.Procedures {
		if p.Kind == kind && strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// ── Declarations ──

// Decl is a module-level declaration.
//
// Implemented by *VarDecl, *ConstDecl, *TypeDecl, *EnumDecl, *DeclareDecl
// and *EventDecl.
type Decl interface {
	Node
	DeclName() string
	declNode()
}

// Dimension is one array bound. A nil Lower means zero-based with
// Upper as the highest index.
type Dimension struct {
	Lower Expr `json:"lower,omitempty"`
	Upper Expr `json:"upper"`
}

// TypeRef is a declared type: `As Long`, `As String * 50`, `As New Widget`.
type TypeRef struct {
	Name         string `json:"name,omitempty"`
	StringLength Expr   `json:"string_length,omitempty"` // String * n
	New          bool   `json:"new,omitempty"`
}

// IsZero reports whether no type was declared (implicit Variant).
func (t TypeRef) IsZero() bool {
	return t.Name == ""
}

// VarDecl declares one variable. It appears at module level and inside
// DimStmt for locals.
type VarDecl struct {
	Pos
	Visibility Visibility  `json:"visibility,omitempty"`
	Name       string      `json:"name"`
	Type       TypeRef     `json:"type"`
	IsArray    bool        `json:"is_array,omitempty"` // declared with parentheses
	Dims       []Dimension `json:"dims,omitempty"`
	WithEvents bool        `json:"with_events,omitempty"`
	Init       Expr        `json:"init,omitempty"`
}

// ConstDecl declares a named constant.
type ConstDecl struct {
	Pos
	Visibility Visibility `json:"visibility,omitempty"`
	Name       string     `json:"name"`
	Type       TypeRef    `json:"type"`
	Value      Expr       `json:"value"`
}

// TypeDecl is a user-defined record type (Type ... End Type).
type TypeDecl struct {
	Pos
	Visibility Visibility   `json:"visibility,omitempty"`
	Name       string       `json:"name"`
	Fields     []*FieldDecl `json:"fields"`
}

// FieldDecl is one member of a TypeDecl.
type FieldDecl struct {
	Pos
	Name    string      `json:"name"`
	Type    TypeRef     `json:"type"`
	IsArray bool        `json:"is_array,omitempty"`
	Dims    []Dimension `json:"dims,omitempty"`
}

// EnumDecl is an enumeration (Enum ... End Enum).
type EnumDecl struct {
	Pos
	Visibility Visibility        `json:"visibility,omitempty"`
	Name       string            `json:"name"`
	Members    []*EnumMemberDecl `json:"members"`
}

// EnumMemberDecl is one enum member. Value is nil for implicit members.
// ValueText keeps the source text of the value expression.
type EnumMemberDecl struct {
	Pos
	Name      string `json:"name"`
	Value     Expr   `json:"value,omitempty"`
	ValueText string `json:"value_text,omitempty"`
}

// DeclareDecl binds an external library function.
//
//	Private Declare Function GetTickCount Lib "kernel32" () As Long
type DeclareDecl struct {
	Pos
	Visibility Visibility   `json:"visibility,omitempty"`
	Name       string       `json:"name"`
	IsFunction bool         `json:"is_function"`
	Lib        string       `json:"lib"`
	Alias      string       `json:"alias,omitempty"`
	Params     []*Parameter `json:"params,omitempty"`
	ReturnType TypeRef      `json:"return_type"`
}

// EventDecl declares an event the module can raise.
type EventDecl struct {
	Pos
	Visibility Visibility   `json:"visibility,omitempty"`
	Name       string       `json:"name"`
	Params     []*Parameter `json:"params,omitempty"`
}

func (d *VarDecl) DeclName() string     { return d.Name }
func (d *ConstDecl) DeclName() string   { return d.Name }
func (d *TypeDecl) DeclName() string    { return d.Name }
func (d *EnumDecl) DeclName() string    { return d.Name }
func (d *DeclareDecl) DeclName() string { return d.Name }
func (d *EventDecl) DeclName() string   { return d.Name }

func (*VarDecl) declNode()     {}
func (*ConstDecl) declNode()   {}
func (*TypeDecl) declNode()    {}
func (*EnumDecl) declNode()    {}
func (*DeclareDecl) declNode() {}
func (*EventDecl) declNode()   {}

// ── Procedures ──

// ProcKind distinguishes Sub, Function and the three property accessors.
type ProcKind int

const (
	ProcSub ProcKind = iota
	ProcFunction
	ProcPropertyGet
	ProcPropertyLet
	ProcPropertySet
)

func (k ProcKind) String() string {
	switch k {
	case ProcSub:
		return "Sub"
	case ProcFunction:
		return "Function"
	case ProcPropertyGet:
		return "Property Get"
	case ProcPropertyLet:
		return "Property Let"
	case ProcPropertySet:
		return "Property Set"
	}
	return fmt.Sprintf("ProcKind(%d)", int(k))
}

// IsProperty reports whether k is one of the property accessors.
func (k ProcKind) IsProperty() bool {
	return k == ProcPropertyGet || k == ProcPropertyLet || k == ProcPropertySet
}

// ReturnsValue reports whether the procedure produces a value.
func (k ProcKind) ReturnsValue() bool {
	return k == ProcFunction || k == ProcPropertyGet
}

// Procedure is a Sub, Function or Property accessor.
type Procedure struct {
	Pos
	EndLine    int          `json:"end_line,omitempty"`
	Name       string       `json:"name"`
	Kind       ProcKind     `json:"kind"`
	Visibility Visibility   `json:"visibility,omitempty"`
	Static     bool         `json:"static,omitempty"` // all locals are static
	Params     []*Parameter `json:"params,omitempty"`
	ReturnType TypeRef      `json:"return_type"`
	Body       []Stmt       `json:"body,omitempty"`
}

// Parameter is one formal parameter.
type Parameter struct {
	Pos
	Name       string  `json:"name"`
	Type       TypeRef `json:"type"`
	ByVal      bool    `json:"by_val,omitempty"`
	Optional   bool    `json:"optional,omitempty"`
	Default    Expr    `json:"default,omitempty"`
	ParamArray bool    `json:"param_array,omitempty"`
	IsArray    bool    `json:"is_array,omitempty"`
}

// Node is implemented by every syntax tree node.
type Node interface {
	Position() Pos
}
