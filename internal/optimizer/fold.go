package optimizer

import (
	"math"
	"strconv"

	"github.com/barun-bash/vbport/internal/ast"
)

// maxExactInt is the largest integer a generated number holds exactly.
const maxExactInt = 1 << 53

// ConstantFolding evaluates operators whose operands are all literals.
// Results follow the generated program's number semantics: integers stay
// integers only while they are exactly representable.
type ConstantFolding struct{}

func (ConstantFolding) Name() string { return "constant-folding" }

func (ConstantFolding) Apply(mod *ast.Module) (*ast.Module, bool) {
	f := folder{compareText: mod.Options.CompareText}
	r := rewriter{expr: f.fold}
	out := r.module(mod)
	return out, out != mod
}

type folder struct {
	// Under Option Compare Text string equality is case-insensitive and
	// is left to the runtime.
	compareText bool
}

func (f folder) fold(e ast.Expr) ast.Expr {
	switch e := e.(type) {
	case *ast.UnaryOp:
		if lit, ok := e.Operand.(*ast.Literal); ok {
			if out := foldUnary(e.Op, lit); out != nil {
				out.Pos = e.Pos
				return out
			}
		}
	case *ast.BinaryOp:
		l, lok := e.Left.(*ast.Literal)
		r, rok := e.Right.(*ast.Literal)
		if lok && rok {
			if out := f.foldBinary(e.Op, l, r); out != nil {
				out.Pos = e.Pos
				return out
			}
		}
	}
	return e
}

func foldUnary(op ast.UnaryOperator, lit *ast.Literal) *ast.Literal {
	switch op {
	case ast.OpNeg:
		switch lit.Kind {
		case ast.LitInteger:
			if lit.Int > -maxExactInt && lit.Int < maxExactInt {
				return &ast.Literal{Kind: ast.LitInteger, Int: -lit.Int}
			}
		case ast.LitFloat:
			return &ast.Literal{Kind: ast.LitFloat, Float: -lit.Float}
		}
	case ast.OpPlus:
		if lit.Kind == ast.LitInteger || lit.Kind == ast.LitFloat {
			out := *lit
			return &out
		}
	case ast.OpNot:
		if lit.Kind == ast.LitBoolean {
			return boolLit(!lit.Bool)
		}
	}
	return nil
}

func (f folder) foldBinary(op ast.BinaryOperator, l, r *ast.Literal) *ast.Literal {
	switch {
	case l.Kind == ast.LitString && r.Kind == ast.LitString:
		switch op {
		case ast.OpConcat, ast.OpAdd:
			return strLit(l.Str + r.Str)
		case ast.OpEq:
			if !f.compareText {
				return boolLit(l.Str == r.Str)
			}
		case ast.OpNe:
			if !f.compareText {
				return boolLit(l.Str != r.Str)
			}
		}
	case op == ast.OpConcat:
		ls, lok := concatText(l)
		rs, rok := concatText(r)
		if lok && rok {
			return strLit(ls + rs)
		}
	case l.Kind == ast.LitBoolean && r.Kind == ast.LitBoolean:
		return foldLogical(op, l.Bool, r.Bool)
	case isNumber(l) && isNumber(r):
		return foldArith(op, l, r)
	}
	return nil
}

// concatText renders the literals whose text form is the same in the
// legacy runtime and the generated program.
func concatText(l *ast.Literal) (string, bool) {
	switch l.Kind {
	case ast.LitString:
		return l.Str, true
	case ast.LitInteger:
		return strconv.FormatInt(l.Int, 10), true
	}
	return "", false
}

func foldLogical(op ast.BinaryOperator, a, b bool) *ast.Literal {
	switch op {
	case ast.OpAnd:
		return boolLit(a && b)
	case ast.OpOr:
		return boolLit(a || b)
	case ast.OpXor:
		return boolLit(a != b)
	case ast.OpEqv, ast.OpEq:
		return boolLit(a == b)
	case ast.OpNe:
		return boolLit(a != b)
	case ast.OpImp:
		return boolLit(!a || b)
	}
	return nil
}

func foldArith(op ast.BinaryOperator, l, r *ast.Literal) *ast.Literal {
	a, b := l.Number(), r.Number()
	ints := l.Kind == ast.LitInteger && r.Kind == ast.LitInteger

	switch op {
	case ast.OpAdd:
		return numLit(a+b, ints)
	case ast.OpSub:
		return numLit(a-b, ints)
	case ast.OpMul:
		return numLit(a*b, ints)
	case ast.OpDiv:
		if b == 0 {
			return nil
		}
		return numLit(a/b, false)
	case ast.OpIntDiv:
		// Both operands are rounded to integers first, as VB.IntDiv does.
		x, y := math.RoundToEven(a), math.RoundToEven(b)
		if y == 0 {
			return nil
		}
		return numLit(math.Trunc(x/y), true)
	case ast.OpMod:
		// Mod is emitted as %, which does not round its operands, so only
		// integer operands fold to the same result.
		if !ints || b == 0 {
			return nil
		}
		return numLit(math.Mod(a, b), true)
	case ast.OpPow:
		return numLit(math.Pow(a, b), ints && b >= 0)
	case ast.OpEq:
		return boolLit(a == b)
	case ast.OpNe:
		return boolLit(a != b)
	case ast.OpLt:
		return boolLit(a < b)
	case ast.OpGt:
		return boolLit(a > b)
	case ast.OpLe:
		return boolLit(a <= b)
	case ast.OpGe:
		return boolLit(a >= b)
	}
	return nil
}

func isNumber(l *ast.Literal) bool {
	return l.Kind == ast.LitInteger || l.Kind == ast.LitFloat
}

// numLit returns nil for results that are not finite, so the expression
// is left for the runtime.
func numLit(v float64, integer bool) *ast.Literal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	if integer && v == math.Trunc(v) && math.Abs(v) < maxExactInt {
		return &ast.Literal{Kind: ast.LitInteger, Int: int64(v)}
	}
	if integer {
		return nil
	}
	return &ast.Literal{Kind: ast.LitFloat, Float: v}
}

func boolLit(b bool) *ast.Literal {
	return &ast.Literal{Kind: ast.LitBoolean, Bool: b}
}

func strLit(s string) *ast.Literal {
	return &ast.Literal{Kind: ast.LitString, Str: s}
}
