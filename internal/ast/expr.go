package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is an expression.
//
// Implemented by *Literal, *Identifier, *BinaryOp, *UnaryOp, *FunctionCall,
// *MemberAccess, *NewExpr, *TypeOfExpr and *MissingArg.
type Expr interface {
	Node
	exprNode()
}

// LiteralKind identifies the type of a Literal.
type LiteralKind int

const (
	LitInteger LiteralKind = iota
	LitFloat
	LitCurrency
	LitString
	LitDate
	LitBoolean
	LitNothing
	LitEmpty
	LitNull
)

func (k LiteralKind) String() string {
	switch k {
	case LitInteger:
		return "Integer"
	case LitFloat:
		return "Float"
	case LitCurrency:
		return "Currency"
	case LitString:
		return "String"
	case LitDate:
		return "Date"
	case LitBoolean:
		return "Boolean"
	case LitNothing:
		return "Nothing"
	case LitEmpty:
		return "Empty"
	default:
		return "Null"
	}
}

// Literal is a constant value. Only the field matching Kind is meaningful:
// Int for LitInteger, Float for LitFloat and LitCurrency, Str for LitString
// and LitDate (the text between the # delimiters), Bool for LitBoolean.
type Literal struct {
	Pos
	Kind  LiteralKind `json:"kind"`
	Int   int64       `json:"int,omitempty"`
	Float float64     `json:"float,omitempty"`
	Str   string      `json:"str,omitempty"`
	Bool  bool        `json:"bool,omitempty"`
}

// IsNumeric reports whether the literal is an integer, float or currency.
func (l *Literal) IsNumeric() bool {
	return l.Kind == LitInteger || l.Kind == LitFloat || l.Kind == LitCurrency
}

// Number returns a numeric literal's value as float64.
func (l *Literal) Number() float64 {
	if l.Kind == LitInteger {
		return float64(l.Int)
	}
	return l.Float
}

// Identifier is a bare name.
type Identifier struct {
	Pos
	Name string `json:"name"`
}

// BinaryOperator enumerates the binary operators.
type BinaryOperator int

const (
	OpAdd BinaryOperator = iota
	OpSub
	OpMul
	OpDiv    // /
	OpIntDiv // \
	OpMod
	OpPow
	OpConcat // &
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
	OpLike
	OpIs
	OpAnd
	OpOr
	OpXor
	OpEqv
	OpImp
)

var binaryOpNames = [...]string{
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpDiv:    "/",
	OpIntDiv: `\`,
	OpMod:    "Mod",
	OpPow:    "^",
	OpConcat: "&",
	OpEq:     "=",
	OpNe:     "<>",
	OpLt:     "<",
	OpGt:     ">",
	OpLe:     "<=",
	OpGe:     ">=",
	OpLike:   "Like",
	OpIs:     "Is",
	OpAnd:    "And",
	OpOr:     "Or",
	OpXor:    "Xor",
	OpEqv:    "Eqv",
	OpImp:    "Imp",
}

func (op BinaryOperator) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return fmt.Sprintf("BinaryOperator(%d)", int(op))
}

// IsComparison reports whether op yields a Boolean from two operands.
func (op BinaryOperator) IsComparison() bool {
	return op >= OpEq && op <= OpIs
}

// IsLogical reports whether op is one of the logical connectives.
func (op BinaryOperator) IsLogical() bool {
	return op >= OpAnd && op <= OpImp
}

// BinaryOp is `Left Op Right`.
type BinaryOp struct {
	Pos
	Op    BinaryOperator `json:"op"`
	Left  Expr           `json:"left"`
	Right Expr           `json:"right"`
}

// UnaryOperator enumerates the prefix operators.
type UnaryOperator int

const (
	OpNeg UnaryOperator = iota
	OpPlus
	OpNot
	OpAddressOf
)

func (op UnaryOperator) String() string {
	switch op {
	case OpNeg:
		return "-"
	case OpPlus:
		return "+"
	case OpNot:
		return "Not"
	default:
		return "AddressOf"
	}
}

// UnaryOp is `Op Operand`.
type UnaryOp struct {
	Pos
	Op      UnaryOperator `json:"op"`
	Operand Expr          `json:"operand"`
}

// Arg is one call argument. Name is set for `name:=value` arguments and
// Value is a *MissingArg for an omitted positional argument.
type Arg struct {
	Name  string `json:"name,omitempty"`
	Value Expr   `json:"value"`
}

// FunctionCall is `Callee(args)`. The legacy syntax does not distinguish
// calls from array indexing; the generator resolves which one it is.
type FunctionCall struct {
	Pos
	Callee Expr   `json:"callee"`
	Args   []*Arg `json:"args,omitempty"`
}

// MemberAccess is `Object.Member`, or `.Member` inside a With block when
// Object is nil. Bang marks the `Object!Member` dictionary form.
type MemberAccess struct {
	Pos
	Object Expr   `json:"object,omitempty"`
	Member string `json:"member"`
	Bang   bool   `json:"bang,omitempty"`
}

// NewExpr is `New TypeName`.
type NewExpr struct {
	Pos
	TypeName string `json:"type_name"`
}

// TypeOfExpr is `TypeOf Operand Is TypeName`.
type TypeOfExpr struct {
	Pos
	Operand  Expr   `json:"operand"`
	TypeName string `json:"type_name"`
}

// MissingArg stands in for an omitted positional argument: Foo(1, , 3).
type MissingArg struct {
	Pos
}

func (*Literal) exprNode()      {}
func (*Identifier) exprNode()   {}
func (*BinaryOp) exprNode()     {}
func (*UnaryOp) exprNode()      {}
func (*FunctionCall) exprNode() {}
func (*MemberAccess) exprNode() {}
func (*NewExpr) exprNode()      {}
func (*TypeOfExpr) exprNode()   {}
func (*MissingArg) exprNode()   {}

// ExprString renders an expression back in legacy source syntax. It is
// used for diagnostics, enum value text and placeholder comments.
func ExprString(e Expr) string {
	var b strings.Builder
	writeExpr(&b, e)
	return b.String()
}

func writeExpr(b *strings.Builder, e Expr) {
	switch e := e.(type) {
	case nil:
	case *Literal:
		b.WriteString(LiteralString(e))
	case *Identifier:
		b.WriteString(e.Name)
	case *BinaryOp:
		writeOperand(b, e.Left)
		b.WriteString(" ")
		b.WriteString(e.Op.String())
		b.WriteString(" ")
		writeOperand(b, e.Right)
	case *UnaryOp:
		b.WriteString(e.Op.String())
		if e.Op == OpNot || e.Op == OpAddressOf {
			b.WriteString(" ")
		}
		writeOperand(b, e.Operand)
	case *FunctionCall:
		writeExpr(b, e.Callee)
		b.WriteString("(")
		for i, a := range e.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			if a.Name != "" {
				b.WriteString(a.Name)
				b.WriteString(":=")
			}
			writeExpr(b, a.Value)
		}
		b.WriteString(")")
	case *MemberAccess:
		writeExpr(b, e.Object)
		if e.Bang {
			b.WriteString("!")
		} else {
			b.WriteString(".")
		}
		b.WriteString(e.Member)
	case *NewExpr:
		b.WriteString("New ")
		b.WriteString(e.TypeName)
	case *TypeOfExpr:
		b.WriteString("TypeOf ")
		writeExpr(b, e.Operand)
		b.WriteString(" Is ")
		b.WriteString(e.TypeName)
	case *MissingArg:
	}
}

func writeOperand(b *strings.Builder, e Expr) {
	if _, ok := e.(*BinaryOp); ok {
		b.WriteString("(")
		writeExpr(b, e)
		b.WriteString(")")
		return
	}
	writeExpr(b, e)
}

// LiteralString renders a literal in legacy source syntax.
func LiteralString(l *Literal) string {
	switch l.Kind {
	case LitInteger:
		return strconv.FormatInt(l.Int, 10)
	case LitFloat:
		return strconv.FormatFloat(l.Float, 'g', -1, 64)
	case LitCurrency:
		return strconv.FormatFloat(l.Float, 'f', -1, 64) + "@"
	case LitString:
		return `"` + strings.ReplaceAll(l.Str, `"`, `""`) + `"`
	case LitDate:
		return "#" + l.Str + "#"
	case LitBoolean:
		if l.Bool {
			return "True"
		}
		return "False"
	default:
		return l.Kind.String()
	}
}
