package optimizer

import "github.com/barun-bash/vbport/internal/ast"

// DeadCode removes statements that can never run: everything after an
// unconditional jump up to the next label, branches of an If whose
// condition is a Boolean literal, and loops whose entry test is a false
// literal. Comments survive. Nothing containing a label is removed,
// since it may be a GoTo or error handler target. Dim, Static and Const
// statements are procedure-scoped rather than executed, so those inside
// removed code are kept in its place.
type DeadCode struct{}

func (DeadCode) Name() string { return "dead-code" }

func (DeadCode) Apply(mod *ast.Module) (*ast.Module, bool) {
	r := rewriter{block: pruneBlock}
	out := r.module(mod)
	return out, out != mod
}

func pruneBlock(list []ast.Stmt) []ast.Stmt {
	var out []ast.Stmt
	changed, dead := false, false
	for _, s := range list {
		if !dead && !containsLabel(s) {
			if repl, ok := simplify(s); ok {
				changed = true
				out = append(out, droppedDecls(s, repl)...)
				for _, rs := range repl {
					out = append(out, rs)
					if terminates(rs) {
						dead = true
					}
				}
				continue
			}
		}
		switch {
		case containsLabel(s):
			dead = false
		case dead:
			switch s.(type) {
			case *ast.CommentStmt, *ast.DimStmt, *ast.ConstStmt:
			default:
				changed = true
				out = append(out, droppedDecls(s, nil)...)
				continue
			}
		}
		out = append(out, s)
		if terminates(s) {
			dead = true
		}
	}
	if !changed {
		return list
	}
	return out
}

// droppedDecls returns the declaration statements inside s that do not
// survive in kept, in source order.
func droppedDecls(s ast.Stmt, kept []ast.Stmt) []ast.Stmt {
	survivors := make(map[ast.Stmt]bool)
	ast.InspectStmts(kept, func(n ast.Node) bool {
		if d, ok := declStmt(n); ok {
			survivors[d] = true
		}
		return true
	})

	var out []ast.Stmt
	ast.Inspect(s, func(n ast.Node) bool {
		if d, ok := declStmt(n); ok && !survivors[d] {
			out = append(out, d)
		}
		return true
	})
	return out
}

func declStmt(n ast.Node) (ast.Stmt, bool) {
	switch n := n.(type) {
	case *ast.DimStmt:
		return n, true
	case *ast.ConstStmt:
		return n, true
	}
	return nil, false
}

// terminates reports whether control never falls through s.
func terminates(s ast.Stmt) bool {
	switch s.(type) {
	case *ast.ExitStmt, *ast.GoToStmt, *ast.ReturnStmt, *ast.EndStmt, *ast.ResumeStmt:
		return true
	}
	return false
}

func containsLabel(s ast.Stmt) bool {
	found := false
	ast.Inspect(s, func(n ast.Node) bool {
		if _, ok := n.(*ast.LabelStmt); ok {
			found = true
		}
		return !found
	})
	return found
}

// simplify resolves statements whose control flow is decided by a
// literal. It returns the replacement statements and true, or false when
// s is left alone.
func simplify(s ast.Stmt) ([]ast.Stmt, bool) {
	switch s := s.(type) {
	case *ast.IfStmt:
		return simplifyIf(s)
	case *ast.WhileStmt:
		if isBool(s.Cond, false) {
			return nil, true
		}
	case *ast.DoStmt:
		if !s.PostTest && s.Cond != nil && isBool(s.Cond, s.Until) {
			return nil, true
		}
	}
	return nil, false
}

func simplifyIf(s *ast.IfStmt) ([]ast.Stmt, bool) {
	if lit, ok := s.Cond.(*ast.Literal); ok && lit.Kind == ast.LitBoolean {
		if lit.Bool {
			return s.Then, true
		}
		if len(s.ElseIfs) == 0 {
			return s.Else, true
		}
		// Promote the first ElseIf and settle it in turn.
		first := s.ElseIfs[0]
		next := *s
		next.Pos = first.Pos
		next.Cond, next.Then, next.ElseIfs = first.Cond, first.Body, s.ElseIfs[1:]
		if repl, ok := simplifyIf(&next); ok {
			return repl, true
		}
		return []ast.Stmt{&next}, true
	}

	// Drop ElseIf arms that can never be taken, and cut the chain at one
	// that always is.
	var arms []*ast.ElseIfClause
	changed := false
	els, hasElse := s.Else, s.HasElse
	for _, c := range s.ElseIfs {
		if isBool(c.Cond, false) {
			changed = true
			continue
		}
		if isBool(c.Cond, true) {
			changed = true
			els, hasElse = c.Body, true
			break
		}
		arms = append(arms, c)
	}
	if !changed {
		return nil, false
	}
	next := *s
	next.ElseIfs, next.Else, next.HasElse = arms, els, hasElse
	return []ast.Stmt{&next}, true
}

func isBool(e ast.Expr, want bool) bool {
	lit, ok := e.(*ast.Literal)
	return ok && lit.Kind == ast.LitBoolean && lit.Bool == want
}
