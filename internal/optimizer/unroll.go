package optimizer

import (
	"strings"

	"github.com/barun-bash/vbport/internal/ast"
)

// LoopUnroller expands For loops with literal bounds and a small trip
// count into straight-line code. Each copy of the body is preceded by an
// assignment of the counter, and the counter is left holding the first
// value that failed the test, as the loop would leave it.
type LoopUnroller struct {
	MaxTrips int
	MaxStmts int
}

func (LoopUnroller) Name() string { return "loop-unroll" }

func (u LoopUnroller) Apply(mod *ast.Module) (*ast.Module, bool) {
	byRef := byRefParams(mod)
	r := rewriter{block: func(list []ast.Stmt) []ast.Stmt {
		var out []ast.Stmt
		changed := false
		for _, s := range list {
			if f, ok := s.(*ast.ForStmt); ok {
				if repl, ok := u.unroll(f, byRef); ok {
					out = append(out, repl...)
					changed = true
					continue
				}
			}
			out = append(out, s)
		}
		if !changed {
			return list
		}
		return out
	}}
	out := r.module(mod)
	return out, out != mod
}

func (u LoopUnroller) unroll(f *ast.ForStmt, byRef map[string][]bool) ([]ast.Stmt, bool) {
	counter, ok := f.Var.(*ast.Identifier)
	if !ok {
		return nil, false
	}
	from, ok1 := intLit(f.From)
	to, ok2 := intLit(f.To)
	step := int64(1)
	ok3 := true
	if f.Step != nil {
		step, ok3 = intLit(f.Step)
	}
	if !ok1 || !ok2 || !ok3 || step == 0 {
		return nil, false
	}
	trips := tripCount(from, to, step)
	if trips < 1 || trips > int64(u.MaxTrips) || trips*int64(ast.CountStmts(f.Body)) > int64(u.MaxStmts) {
		return nil, false
	}
	if !unrollableBody(f.Body, fold(counter.Name), byRef) {
		return nil, false
	}

	out := make([]ast.Stmt, 0, int(trips)*(len(f.Body)+1)+1)
	v := from
	for range trips {
		out = append(out, assignCounter(f, counter, v))
		out = append(out, f.Body...)
		v += step
	}
	return append(out, assignCounter(f, counter, v)), true
}

func tripCount(from, to, step int64) int64 {
	if step > 0 {
		if to < from {
			return 0
		}
		return (to-from)/step + 1
	}
	if to > from {
		return 0
	}
	return (from-to)/(-step) + 1
}

func assignCounter(f *ast.ForStmt, counter *ast.Identifier, v int64) ast.Stmt {
	return &ast.AssignStmt{
		Pos:    f.Pos,
		Target: counter,
		Value:  &ast.Literal{Pos: f.Pos, Kind: ast.LitInteger, Int: v},
	}
}

func intLit(e ast.Expr) (int64, bool) {
	lit, ok := e.(*ast.Literal)
	if !ok || lit.Kind != ast.LitInteger || lit.Int > maxExactInt || lit.Int < -maxExactInt {
		return 0, false
	}
	return lit.Int, true
}

// unrollableBody reports whether copies of body can run in sequence
// without the loop around them: no jumps or labels, no declarations that
// would repeat, and no write to the counter.
func unrollableBody(body []ast.Stmt, counter string, byRef map[string][]bool) bool {
	ok := true
	ast.InspectStmts(body, func(n ast.Node) bool {
		if !ok {
			return false
		}
		switch n := n.(type) {
		case *ast.DimStmt, *ast.ReDimStmt, *ast.ConstStmt, *ast.LabelStmt,
			*ast.GoToStmt, *ast.GoSubStmt, *ast.ReturnStmt, *ast.OnErrorStmt,
			*ast.ResumeStmt, *ast.UnsupportedStmt:
			ok = false
		case *ast.ExitStmt:
			ok = n.Kind != ast.ExitFor
		case *ast.AssignStmt:
			ok = rootName(n.Target) != counter
		case *ast.ForStmt:
			ok = rootName(n.Var) != counter
		case *ast.ForEachStmt:
			ok = rootName(n.Var) != counter
		case *ast.FunctionCall:
			ok = !passesByRef(n.Callee, n.Args, counter, byRef)
		}
		return ok
	})
	return ok
}

// passesByRef reports whether a call may receive the counter by
// reference. Calls on objects are assumed to; calls of names that are
// not procedures of this module are array reads or runtime functions.
func passesByRef(callee ast.Expr, args []*ast.Arg, counter string, byRef map[string][]bool) bool {
	for i, a := range args {
		id, ok := a.Value.(*ast.Identifier)
		if !ok || fold(id.Name) != counter {
			continue
		}
		switch c := callee.(type) {
		case *ast.MemberAccess:
			return true
		case *ast.Identifier:
			refs, known := byRef[fold(c.Name)]
			if !known {
				continue
			}
			if a.Name != "" || i >= len(refs) || refs[i] {
				return true
			}
		}
	}
	return false
}

// byRefParams maps each procedure of mod to which of its parameters are
// passed by reference.
func byRefParams(mod *ast.Module) map[string][]bool {
	out := make(map[string][]bool, len(mod.Procedures))
	for _, p := range mod.Procedures {
		refs := make([]bool, len(p.Params))
		for i, param := range p.Params {
			refs[i] = !param.ByVal
		}
		key := strings.ToLower(p.Name)
		if prev, ok := out[key]; ok {
			for i := range min(len(prev), len(refs)) {
				refs[i] = refs[i] || prev[i]
			}
		}
		out[key] = refs
	}
	return out
}
