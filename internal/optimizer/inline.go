package optimizer

import (
	"strings"

	"github.com/barun-bash/vbport/internal/ast"
)

// Inliner replaces the only call of a small private Sub with the Sub's
// body. The Sub itself is kept, since event wiring may still reach it.
//
// A Sub qualifies when its parameters are all ByVal and receive literal
// arguments, and its body declares nothing, has no labels or jumps, and
// assigns only module-level variables. The caller must not install an
// error handler and must not declare a name the body uses.
type Inliner struct {
	MaxStmts int
}

func (Inliner) Name() string { return "inline" }

func (in Inliner) Apply(mod *ast.Module) (*ast.Module, bool) {
	out := mod
	for _, p := range mod.Procedures {
		if next, ok := in.inlineOne(out, p.Name); ok {
			out = next
		}
	}
	return out, out != mod
}

func (in Inliner) inlineOne(mod *ast.Module, name string) (*ast.Module, bool) {
	callee := mod.Procedure(name, ast.ProcSub)
	if callee == nil || !in.eligible(mod, callee) {
		return mod, false
	}
	caller, site := singleCallSite(mod, callee.Name)
	if site == nil || caller == callee || !safeCaller(caller, callee) {
		return mod, false
	}
	args := site.Call.Args
	if len(args) != len(callee.Params) {
		return mod, false
	}
	subst := make(map[string]*ast.Literal, len(args))
	for i, a := range args {
		lit, ok := a.Value.(*ast.Literal)
		if !ok || a.Name != "" {
			return mod, false
		}
		subst[fold(callee.Params[i].Name)] = lit
	}

	body := callee.Body
	if len(subst) > 0 {
		r := rewriter{expr: func(e ast.Expr) ast.Expr {
			if id, ok := e.(*ast.Identifier); ok {
				if lit, ok := subst[fold(id.Name)]; ok {
					return lit
				}
			}
			return e
		}}
		body = r.stmts(body)
	}

	r := rewriter{block: func(list []ast.Stmt) []ast.Stmt {
		for i, s := range list {
			if s != site {
				continue
			}
			out := make([]ast.Stmt, 0, len(list)-1+len(body))
			out = append(out, list[:i]...)
			out = append(out, body...)
			return append(out, list[i+1:]...)
		}
		return list
	}}
	procs := make([]*ast.Procedure, len(mod.Procedures))
	for i, p := range mod.Procedures {
		if p == caller {
			p = r.procedure(p)
		}
		procs[i] = p
	}
	next := *mod
	next.Procedures = procs
	return &next, true
}

func (in Inliner) eligible(mod *ast.Module, p *ast.Procedure) bool {
	if p.Visibility != ast.VisibilityPrivate || p.Static {
		return false
	}
	if ast.CountStmts(p.Body) > in.MaxStmts {
		return false
	}
	params := make(map[string]bool, len(p.Params))
	for _, param := range p.Params {
		if !param.ByVal || param.Optional || param.ParamArray || param.IsArray {
			return false
		}
		params[fold(param.Name)] = true
	}
	globals := moduleVars(mod)

	ok := true
	ast.InspectStmts(p.Body, func(n ast.Node) bool {
		if !ok {
			return false
		}
		switch n := n.(type) {
		case *ast.DimStmt, *ast.ReDimStmt, *ast.ConstStmt, *ast.LabelStmt,
			*ast.GoToStmt, *ast.GoSubStmt, *ast.ReturnStmt, *ast.ExitStmt,
			*ast.OnErrorStmt, *ast.ResumeStmt, *ast.UnsupportedStmt:
			ok = false
		case *ast.AssignStmt:
			ok = globals[rootName(n.Target)]
		case *ast.ForStmt:
			ok = globals[rootName(n.Var)]
		case *ast.ForEachStmt:
			ok = globals[rootName(n.Var)]
		case *ast.Identifier:
			if strings.EqualFold(n.Name, p.Name) {
				ok = false
			}
		case *ast.FunctionCall:
			// A parameter passed on by reference could be modified.
			for _, a := range n.Args {
				if id, isID := a.Value.(*ast.Identifier); isID && params[fold(id.Name)] {
					ok = false
				}
			}
		}
		return ok
	})
	return ok
}

// singleCallSite returns the statement calling name when it is the only
// reference to name in the module, and the procedure containing it.
func singleCallSite(mod *ast.Module, name string) (*ast.Procedure, *ast.CallStmt) {
	refs := 0
	ast.Inspect(mod, func(n ast.Node) bool {
		if id, ok := n.(*ast.Identifier); ok && strings.EqualFold(id.Name, name) {
			refs++
		}
		return true
	})
	if refs != 1 {
		return nil, nil
	}
	for _, p := range mod.Procedures {
		var site *ast.CallStmt
		ast.InspectStmts(p.Body, func(n ast.Node) bool {
			if cs, ok := n.(*ast.CallStmt); ok && calleeName(cs) != "" && strings.EqualFold(calleeName(cs), name) {
				site = cs
			}
			return site == nil
		})
		if site != nil {
			return p, site
		}
	}
	return nil, nil
}

func calleeName(cs *ast.CallStmt) string {
	if id, ok := cs.Call.Callee.(*ast.Identifier); ok {
		return id.Name
	}
	return ""
}

// safeCaller reports whether the callee body keeps its meaning inside
// caller: no error handler would change where a failure resumes, and no
// local of the caller shadows a name the body uses.
func safeCaller(caller, callee *ast.Procedure) bool {
	locals := make(map[string]bool)
	for _, p := range caller.Params {
		locals[fold(p.Name)] = true
	}
	handler := false
	ast.InspectStmts(caller.Body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.OnErrorStmt:
			handler = true
		case *ast.DimStmt:
			for _, v := range n.Vars {
				locals[fold(v.Name)] = true
			}
		case *ast.ConstStmt:
			for _, c := range n.Consts {
				locals[fold(c.Name)] = true
			}
		case *ast.ReDimStmt:
			locals[fold(n.Name)] = true
		case *ast.ForStmt:
			locals[rootName(n.Var)] = true
		case *ast.ForEachStmt:
			locals[rootName(n.Var)] = true
		}
		return true
	})
	if handler {
		return false
	}
	params := make(map[string]bool, len(callee.Params))
	for _, p := range callee.Params {
		params[fold(p.Name)] = true
	}
	clash := false
	ast.InspectStmts(callee.Body, func(n ast.Node) bool {
		if id, ok := n.(*ast.Identifier); ok && !params[fold(id.Name)] && locals[fold(id.Name)] {
			clash = true
		}
		return !clash
	})
	return !clash
}

// moduleVars returns the folded names of module-level variables.
func moduleVars(mod *ast.Module) map[string]bool {
	vars := make(map[string]bool)
	for _, d := range mod.Declarations {
		if v, ok := d.(*ast.VarDecl); ok {
			vars[fold(v.Name)] = true
		}
	}
	return vars
}

// rootName returns the folded variable at the base of an assignment
// target such as x, x(1) or x.Field.
func rootName(e ast.Expr) string {
	for {
		switch t := e.(type) {
		case *ast.Identifier:
			return fold(t.Name)
		case *ast.FunctionCall:
			e = t.Callee
		case *ast.MemberAccess:
			if t.Object == nil {
				return ""
			}
			e = t.Object
		default:
			return ""
		}
	}
}

func fold(name string) string {
	return strings.ToLower(name)
}
