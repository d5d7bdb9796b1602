package optimizer

import (
	"slices"

	"github.com/barun-bash/vbport/internal/ast"
)

// rewriter rebuilds a tree bottom-up. Nodes are never modified: a node
// whose children changed is copied, and unchanged subtrees are returned
// as-is, so callers detect change by identity.
type rewriter struct {
	// expr is applied to every expression after its operands.
	expr func(ast.Expr) ast.Expr
	// block is applied to every statement list after its statements.
	block func([]ast.Stmt) []ast.Stmt
	// stmt is applied to every statement after its children.
	stmt func(ast.Stmt) ast.Stmt
}

func (r *rewriter) module(m *ast.Module) *ast.Module {
	var procs []*ast.Procedure
	for i, p := range m.Procedures {
		np := r.procedure(p)
		if np != p && procs == nil {
			procs = slices.Clone(m.Procedures)
		}
		if procs != nil {
			procs[i] = np
		}
	}
	if procs == nil {
		return m
	}
	nm := *m
	nm.Procedures = procs
	return &nm
}

func (r *rewriter) procedure(p *ast.Procedure) *ast.Procedure {
	body := r.stmts(p.Body)
	if sameStmts(body, p.Body) {
		return p
	}
	np := *p
	np.Body = body
	return &np
}

func (r *rewriter) stmts(list []ast.Stmt) []ast.Stmt {
	out := list
	for i, s := range list {
		ns := r.rewriteStmt(s)
		if ns == s {
			continue
		}
		if sameStmts(out, list) {
			out = slices.Clone(list)
		}
		out[i] = ns
	}
	if r.block != nil {
		out = r.block(out)
	}
	return out
}

// sameStmts reports whether two lists hold the same statements.
func sameStmts(a, b []ast.Stmt) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	if &a[0] == &b[0] {
		return true
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (r *rewriter) rewriteStmt(s ast.Stmt) ast.Stmt {
	out := r.children(s)
	if r.stmt != nil {
		out = r.stmt(out)
	}
	return out
}

func (r *rewriter) children(s ast.Stmt) ast.Stmt {
	switch s := s.(type) {
	case *ast.AssignStmt:
		target, value := r.rewriteExpr(s.Target), r.rewriteExpr(s.Value)
		if target == s.Target && value == s.Value {
			return s
		}
		n := *s
		n.Target, n.Value = target, value
		return &n
	case *ast.CallStmt:
		call := r.rewriteExpr(s.Call)
		fc, ok := call.(*ast.FunctionCall)
		if !ok || fc == s.Call {
			return s
		}
		n := *s
		n.Call = fc
		return &n
	case *ast.IfStmt:
		cond := r.rewriteExpr(s.Cond)
		then := r.stmts(s.Then)
		elseIfs := r.elseIfs(s.ElseIfs)
		els := r.stmts(s.Else)
		if cond == s.Cond && sameStmts(then, s.Then) && sameElseIfs(elseIfs, s.ElseIfs) && sameStmts(els, s.Else) {
			return s
		}
		n := *s
		n.Cond, n.Then, n.ElseIfs, n.Else = cond, then, elseIfs, els
		return &n
	case *ast.ForStmt:
		from, to, step := r.rewriteExpr(s.From), r.rewriteExpr(s.To), r.rewriteExpr(s.Step)
		body := r.stmts(s.Body)
		if from == s.From && to == s.To && step == s.Step && sameStmts(body, s.Body) {
			return s
		}
		n := *s
		n.From, n.To, n.Step, n.Body = from, to, step, body
		return &n
	case *ast.ForEachStmt:
		coll := r.rewriteExpr(s.Collection)
		body := r.stmts(s.Body)
		if coll == s.Collection && sameStmts(body, s.Body) {
			return s
		}
		n := *s
		n.Collection, n.Body = coll, body
		return &n
	case *ast.DoStmt:
		cond := r.rewriteExpr(s.Cond)
		body := r.stmts(s.Body)
		if cond == s.Cond && sameStmts(body, s.Body) {
			return s
		}
		n := *s
		n.Cond, n.Body = cond, body
		return &n
	case *ast.WhileStmt:
		cond := r.rewriteExpr(s.Cond)
		body := r.stmts(s.Body)
		if cond == s.Cond && sameStmts(body, s.Body) {
			return s
		}
		n := *s
		n.Cond, n.Body = cond, body
		return &n
	case *ast.SelectStmt:
		subject := r.rewriteExpr(s.Subject)
		cases := r.cases(s.Cases)
		els := r.stmts(s.Else)
		if subject == s.Subject && sameCases(cases, s.Cases) && sameStmts(els, s.Else) {
			return s
		}
		n := *s
		n.Subject, n.Cases, n.Else = subject, cases, els
		return &n
	case *ast.WithStmt:
		obj := r.rewriteExpr(s.Object)
		body := r.stmts(s.Body)
		if obj == s.Object && sameStmts(body, s.Body) {
			return s
		}
		n := *s
		n.Object, n.Body = obj, body
		return &n
	case *ast.RaiseEventStmt:
		args := r.args(s.Args)
		if sameArgs(args, s.Args) {
			return s
		}
		n := *s
		n.Args = args
		return &n
	}
	// Declarations, jumps, labels, comments and unsupported statements
	// have no rewritable children.
	return s
}

func (r *rewriter) elseIfs(list []*ast.ElseIfClause) []*ast.ElseIfClause {
	out := list
	for i, c := range list {
		cond := r.rewriteExpr(c.Cond)
		body := r.stmts(c.Body)
		if cond == c.Cond && sameStmts(body, c.Body) {
			continue
		}
		if sameElseIfs(out, list) {
			out = slices.Clone(list)
		}
		n := *c
		n.Cond, n.Body = cond, body
		out[i] = &n
	}
	return out
}

func sameElseIfs(a, b []*ast.ElseIfClause) bool {
	return len(a) == len(b) && (len(a) == 0 || &a[0] == &b[0])
}

func (r *rewriter) cases(list []*ast.CaseClause) []*ast.CaseClause {
	out := list
	for i, c := range list {
		conds := r.caseConds(c.Conds)
		body := r.stmts(c.Body)
		if sameCaseConds(conds, c.Conds) && sameStmts(body, c.Body) {
			continue
		}
		if sameCases(out, list) {
			out = slices.Clone(list)
		}
		n := *c
		n.Conds, n.Body = conds, body
		out[i] = &n
	}
	return out
}

func sameCases(a, b []*ast.CaseClause) bool {
	return len(a) == len(b) && (len(a) == 0 || &a[0] == &b[0])
}

func (r *rewriter) caseConds(list []*ast.CaseCond) []*ast.CaseCond {
	out := list
	for i, c := range list {
		value, upper := r.rewriteExpr(c.Value), r.rewriteExpr(c.Upper)
		if value == c.Value && upper == c.Upper {
			continue
		}
		if sameCaseConds(out, list) {
			out = slices.Clone(list)
		}
		n := *c
		n.Value, n.Upper = value, upper
		out[i] = &n
	}
	return out
}

func sameCaseConds(a, b []*ast.CaseCond) bool {
	return len(a) == len(b) && (len(a) == 0 || &a[0] == &b[0])
}

func (r *rewriter) args(list []*ast.Arg) []*ast.Arg {
	out := list
	for i, a := range list {
		v := r.rewriteExpr(a.Value)
		if v == a.Value {
			continue
		}
		if sameArgs(out, list) {
			out = slices.Clone(list)
		}
		out[i] = &ast.Arg{Name: a.Name, Value: v}
	}
	return out
}

func sameArgs(a, b []*ast.Arg) bool {
	return len(a) == len(b) && (len(a) == 0 || &a[0] == &b[0])
}

func (r *rewriter) rewriteExpr(e ast.Expr) ast.Expr {
	if e == nil {
		return nil
	}
	out := e
	switch e := e.(type) {
	case *ast.BinaryOp:
		l, rr := r.rewriteExpr(e.Left), r.rewriteExpr(e.Right)
		if l != e.Left || rr != e.Right {
			n := *e
			n.Left, n.Right = l, rr
			out = &n
		}
	case *ast.UnaryOp:
		if op := r.rewriteExpr(e.Operand); op != e.Operand {
			n := *e
			n.Operand = op
			out = &n
		}
	case *ast.FunctionCall:
		callee, args := r.rewriteExpr(e.Callee), r.args(e.Args)
		if callee != e.Callee || !sameArgs(args, e.Args) {
			n := *e
			n.Callee, n.Args = callee, args
			out = &n
		}
	case *ast.MemberAccess:
		if obj := r.rewriteExpr(e.Object); obj != e.Object {
			n := *e
			n.Object = obj
			out = &n
		}
	case *ast.TypeOfExpr:
		if op := r.rewriteExpr(e.Operand); op != e.Operand {
			n := *e
			n.Operand = op
			out = &n
		}
	}
	if r.expr != nil {
		out = r.expr(out)
	}
	return out
}
