package features

import (
	"fmt"
	"math"

	"github.com/barun-bash/vbport/internal/ast"
	"github.com/barun-bash/vbport/internal/value"
)

// resolveFunc looks up a named constant. qualifier is empty for a bare
// name and holds the enum name for Enum.Member.
type resolveFunc func(qualifier, name string) (float64, error)

// evalNumber evaluates a constant arithmetic expression: numeric literals
// (the lexer has already decoded &H and &O), + - * / \ Mod, unary sign,
// parentheses and named constants.
func evalNumber(e ast.Expr, resolve resolveFunc) (float64, error) {
	switch e := e.(type) {
	case *ast.Literal:
		switch {
		case e.IsNumeric():
			return e.Number(), nil
		case e.Kind == ast.LitBoolean:
			if e.Bool {
				return -1, nil
			}
			return 0, nil
		}
		return 0, fmt.Errorf("%s literal is not a numeric constant", e.Kind)
	case *ast.Identifier:
		return resolve("", e.Name)
	case *ast.MemberAccess:
		if id, ok := e.Object.(*ast.Identifier); ok && !e.Bang {
			return resolve(id.Name, e.Member)
		}
	case *ast.UnaryOp:
		v, err := evalNumber(e.Operand, resolve)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case ast.OpNeg:
			return -v, nil
		case ast.OpPlus:
			return v, nil
		}
	case *ast.BinaryOp:
		l, err := evalNumber(e.Left, resolve)
		if err != nil {
			return 0, err
		}
		r, err := evalNumber(e.Right, resolve)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case ast.OpAdd:
			return l + r, nil
		case ast.OpSub:
			return l - r, nil
		case ast.OpMul:
			return l * r, nil
		case ast.OpDiv:
			if r == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return l / r, nil
		case ast.OpIntDiv, ast.OpMod:
			li, ri := math.RoundToEven(l), math.RoundToEven(r)
			if ri == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			if e.Op == ast.OpIntDiv {
				return math.Trunc(li / ri), nil
			}
			return math.Mod(li, ri), nil
		}
	}
	return 0, fmt.Errorf("%s is not a constant expression", ast.ExprString(e))
}

// toInteger rounds an evaluated constant the way the legacy runtime
// converts to Long.
func toInteger(f float64) (int64, error) {
	r := math.RoundToEven(f)
	if r > math.MaxInt64 || r < math.MinInt64 || math.IsNaN(r) {
		return 0, fmt.Errorf("constant %v overflows", f)
	}
	return int64(r), nil
}

type evalStatus int

const (
	unresolved evalStatus = iota
	resolving
	resolved
)

type constKey struct{ module, procedure, name string }

type constEntry struct {
	decl   *ast.ConstDecl
	status evalStatus
	value  value.Value
	err    error
}

// Constants records Const declarations and evaluates them on first use.
type Constants struct {
	scope
	session *Session
	entries map[constKey]*constEntry
}

func newConstants(s *Session) *Constants {
	return &Constants{session: s, entries: make(map[constKey]*constEntry)}
}

// Define records a constant in the current context. Evaluation is
// deferred so constants may refer to ones declared later.
func (c *Constants) Define(decl *ast.ConstDecl) error {
	if err := c.require(); err != nil {
		return err
	}
	c.entries[constKey{fold(c.module), fold(c.procedure), fold(decl.Name)}] = &constEntry{decl: decl}
	return nil
}

func (c *Constants) lookup(name string) *constEntry {
	mod, proc := fold(c.module), fold(c.procedure)
	if e, ok := c.entries[constKey{mod, proc, fold(name)}]; ok {
		return e
	}
	return c.entries[constKey{mod, "", fold(name)}]
}

// Value returns the value of a constant visible in the current context:
// a string, a bool, an int64 or a float64.
func (c *Constants) Value(name string) (value.Value, error) {
	e := c.lookup(name)
	if e == nil {
		return nil, fmt.Errorf("constant %q is not defined", name)
	}
	switch e.status {
	case resolved:
		return e.value, e.err
	case resolving:
		return nil, fmt.Errorf("circular reference in constant %q", name)
	}
	e.status = resolving
	e.value, e.err = c.evaluate(e.decl.Value)
	e.status = resolved
	if e.err != nil {
		e.err = fmt.Errorf("constant %s: %w", e.decl.Name, e.err)
	}
	return e.value, e.err
}

func (c *Constants) evaluate(expr ast.Expr) (value.Value, error) {
	if lit, ok := expr.(*ast.Literal); ok {
		switch lit.Kind {
		case ast.LitString:
			return lit.Str, nil
		case ast.LitBoolean:
			return lit.Bool, nil
		case ast.LitInteger:
			return lit.Int, nil
		}
	}
	f, err := evalNumber(expr, c.resolve)
	if err != nil {
		return nil, err
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f), nil
	}
	return f, nil
}

// Int evaluates a constant integer expression such as an array bound or a
// fixed string length.
func (c *Constants) Int(expr ast.Expr) (int64, error) {
	f, err := evalNumber(expr, c.resolve)
	if err != nil {
		return 0, err
	}
	return toInteger(f)
}

// resolve looks a name up among constants, then enum members.
func (c *Constants) resolve(qualifier, name string) (float64, error) {
	if qualifier == "" && c.lookup(name) != nil {
		v, err := c.Value(name)
		if err != nil {
			return 0, err
		}
		return value.ToNumber(v)
	}
	if c.session != nil {
		if v, ok, err := c.session.Enums.member(qualifier, name); ok {
			return float64(v), err
		}
	}
	if qualifier != "" {
		return 0, fmt.Errorf("%s.%s is not defined", qualifier, name)
	}
	return 0, fmt.Errorf("%q is not defined", name)
}

func (c *Constants) forget(module string) {
	mod := fold(module)
	for k := range c.entries {
		if k.module == mod {
			delete(c.entries, k)
		}
	}
}
