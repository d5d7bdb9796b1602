package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/barun-bash/vbport/internal/ast"
)

type loopKind int

const (
	loopNone loopKind = iota
	loopFor
	loopDo
	loopWhile
)

type loopFrame struct {
	kind  loopKind
	label string
}

func (g *Generator) stmt(s ast.Stmt) {
	w := g.w
	switch s := s.(type) {
	case *ast.DimStmt:
		for _, v := range s.Vars {
			if v.Init != nil {
				g.simple(v.Pos, g.assign(&ast.Identifier{Pos: v.Pos, Name: v.Name}, v.Init, false))
			}
		}
	case *ast.ConstStmt:
		// hoisted
	case *ast.ReDimStmt:
		g.simple(s.Pos, g.redim(s))
	case *ast.AssignStmt:
		g.simple(s.Pos, g.assign(s.Target, s.Value, s.Set))
	case *ast.CallStmt:
		g.simple(s.Pos, g.call(s.Call)+";")
	case *ast.RaiseEventStmt:
		g.simple(s.Pos, fmt.Sprintf("VB.raiseEvent($module, %s, [%s]);", jsString(s.Name), g.argList(s.Args)))
	case *ast.IfStmt:
		g.ifStmt(s)
	case *ast.SelectStmt:
		g.selectStmt(s)
	case *ast.ForStmt:
		g.forStmt(s)
	case *ast.ForEachStmt:
		label := g.loopLabel(loopFor, s.Body)
		w.emit(s.Pos, "%sfor (%s of VB.each(%s)) {", labelPrefix(label), g.target(s.Var), g.expr(s.Collection))
		g.loopBody(loopFor, label, s.Body)
		w.text("}")
	case *ast.DoStmt:
		g.doStmt(s)
	case *ast.WhileStmt:
		label := g.loopLabel(loopWhile, s.Body)
		w.emit(s.Pos, "%swhile (%s) {", labelPrefix(label), g.expr(s.Cond))
		g.loopBody(loopWhile, label, s.Body)
		w.text("}")
	case *ast.WithStmt:
		tmp := g.proc.temp("$with")
		w.emit(s.Pos, "const %s = %s;", tmp, g.expr(s.Object))
		g.withs = append(g.withs, tmp)
		g.block(s.Body)
		g.withs = g.withs[:len(g.withs)-1]
	case *ast.OnErrorStmt:
		g.onError(s)
	case *ast.ResumeStmt:
		if s.Label == "" {
			text := "Resume"
			if s.Next {
				text = "Resume Next"
			}
			g.unsupported(s.Pos, "statement", text)
			return
		}
		if state, ok := g.jumpTarget(s.Pos, "Resume "+s.Label, s.Label); ok {
			w.emit(s.Pos, "VB.Err.Clear();")
			g.jump(s.Pos, state)
		}
	case *ast.GoToStmt:
		if state, ok := g.jumpTarget(s.Pos, "GoTo "+s.Label, s.Label); ok {
			g.jump(s.Pos, state)
		}
	case *ast.GoSubStmt:
		g.gosub(s)
	case *ast.ReturnStmt:
		w.emit(s.Pos, "$state = $gosub.pop();")
		w.text("continue $dispatch;")
	case *ast.ExitStmt:
		g.exit(s)
	case *ast.LabelStmt:
		// Top-level labels are dispatch cases; nested ones mark nothing.
	case *ast.EndStmt:
		w.emit(s.Pos, "VB.End();")
	case *ast.CommentStmt:
		if g.opts.PreserveComments {
			w.emit(s.Pos, "//%s", lineComment(s.Text))
		}
	case *ast.UnsupportedStmt:
		g.unsupported(s.Pos, "statement", s.Text)
	}
}

func (g *Generator) block(list []ast.Stmt) {
	g.w.in()
	g.proc.depth++
	for _, s := range list {
		g.stmt(s)
	}
	g.proc.depth--
	g.w.out()
}

// simple emits a one-line statement. After On Error Resume Next every
// such statement runs in its own try block that records the error and
// continues.
func (g *Generator) simple(pos ast.Pos, line string) {
	w := g.w
	if !g.proc.resumeNext {
		w.emit(pos, "%s", line)
		return
	}
	w.emit(pos, "try {")
	w.in()
	w.emit(pos, "%s", line)
	w.out()
	w.text("} catch ($e) {")
	w.in()
	w.text("VB.Err.Set($e);")
	w.out()
	w.text("}")
}

func (g *Generator) jump(pos ast.Pos, state int) {
	g.w.emit(pos, "$state = %d;", state)
	g.w.text("continue $dispatch;")
}

// target renders an assignable expression: a loop counter or the left
// side of an assignment.
func (g *Generator) target(e ast.Expr) string {
	if id, ok := e.(*ast.Identifier); ok {
		if s := g.lookup(id.Name); s != nil && s.isVariable() {
			return s.js
		}
		return jsIdent(id.Name)
	}
	return g.expr(e)
}

// assign renders `target = value`. Properties call their Let or Set
// procedure, fixed-length strings are padded and WithEvents variables
// are connected to their handlers.
func (g *Generator) assign(target, val ast.Expr, set bool) string {
	v := g.expr(val)
	switch t := target.(type) {
	case *ast.Identifier:
		s := g.lookup(t.Name)
		if s == nil {
			return jsIdent(t.Name) + " = " + v + ";"
		}
		if s.kind == symProperty {
			if p := setter(s.prop, set); p != nil {
				return procName(p) + "(" + v + ");"
			}
		}
		if s.fixedLen != nil {
			v = fmt.Sprintf("VB.fixed(%s, %s)", v, g.expr(s.fixedLen))
		}
		if s.withEvents {
			v = fmt.Sprintf("VB.bindEvents(%s, %s)", v, eventTable(s.name))
		}
		return g.target(t) + " = " + v + ";"
	case *ast.FunctionCall:
		if id, ok := t.Callee.(*ast.Identifier); ok {
			if s := g.lookup(id.Name); s != nil && s.kind == symProperty {
				if p := setter(s.prop, set); p != nil {
					args := append(append([]*ast.Arg(nil), t.Args...), &ast.Arg{Value: val})
					return procName(p) + "(" + g.procArgs(p, args) + ");"
				}
			}
		}
		return g.call(t) + " = " + v + ";"
	}
	return g.expr(target) + " = " + v + ";"
}

func setter(ps *propertySet, set bool) *ast.Procedure {
	if set && ps.set != nil {
		return ps.set
	}
	if !set && ps.let != nil {
		return ps.let
	}
	if ps.let != nil {
		return ps.let
	}
	return ps.set
}

// redim renders `a = VB.ReDim(a, preserve, init, [lower, upper], ...)`.
func (g *Generator) redim(s *ast.ReDimStmt) string {
	typ := s.Type
	var fixed string
	if sym := g.lookup(s.Name); sym != nil {
		if typ.IsZero() {
			typ = sym.typ
		}
		if sym.fixedLen != nil {
			fixed = g.expr(sym.fixedLen)
		}
	}
	if s.Type.StringLength != nil {
		fixed = g.expr(s.Type.StringLength)
	}
	name := g.target(&ast.Identifier{Pos: s.Pos, Name: s.Name})
	return fmt.Sprintf("%s = VB.ReDim(%s, %t, () => %s, %s);",
		name, name, s.Preserve, g.zero(typ, fixed), strings.Join(g.bounds(s.Dims), ", "))
}

func (g *Generator) ifStmt(s *ast.IfStmt) {
	w := g.w
	w.emit(s.Pos, "if (%s) {", g.expr(s.Cond))
	g.block(s.Then)
	for _, ei := range s.ElseIfs {
		w.emit(ei.Pos, "} else if (%s) {", g.expr(ei.Cond))
		g.block(ei.Body)
	}
	if s.HasElse {
		w.text("} else {")
		g.block(s.Else)
	}
	w.text("}")
}

// selectStmt emits Select Case as an if chain over a temporary holding
// the subject, which is evaluated once.
func (g *Generator) selectStmt(s *ast.SelectStmt) {
	w := g.w
	tmp := g.proc.temp("$sel")
	w.emit(s.Pos, "const %s = %s;", tmp, g.expr(s.Subject))
	for i, c := range s.Cases {
		cond := g.caseCond(tmp, c.Conds)
		if i == 0 {
			w.emit(c.Pos, "if (%s) {", cond)
		} else {
			w.emit(c.Pos, "} else if (%s) {", cond)
		}
		g.block(c.Body)
	}
	if s.HasElse {
		if len(s.Cases) == 0 {
			w.text("{")
		} else {
			w.text("} else {")
		}
		g.block(s.Else)
	}
	if len(s.Cases) > 0 || s.HasElse {
		w.text("}")
	}
}

func (g *Generator) caseCond(subject string, conds []*ast.CaseCond) string {
	if len(conds) == 0 {
		return "false"
	}
	parts := make([]string, len(conds))
	for i, c := range conds {
		switch c.Kind {
		case ast.CaseRange:
			parts[i] = fmt.Sprintf("(%s >= %s && %s <= %s)", subject, g.operand(c.Value), subject, g.operand(c.Upper))
		case ast.CaseIs:
			parts[i] = g.compare(c.Op, subject, c.Value)
		default:
			parts[i] = g.compare(ast.OpEq, subject, c.Value)
		}
	}
	return strings.Join(parts, " || ")
}

func (g *Generator) compare(op ast.BinaryOperator, subject string, e ast.Expr) string {
	if g.mod.Options.CompareText && (op == ast.OpEq || op == ast.OpNe) {
		eq := fmt.Sprintf("VB.TextEq(%s, %s)", subject, g.expr(e))
		if op == ast.OpNe {
			return "!" + eq
		}
		return eq
	}
	js, ok := binaryJS[op]
	if !ok || !op.IsComparison() {
		js = "==="
	}
	return subject + " " + js + " " + g.operand(e)
}

// forStmt emits a counted loop. The limit and a non-literal step are
// evaluated once before the loop; the direction of a non-literal step is
// tested on every iteration.
func (g *Generator) forStmt(s *ast.ForStmt) {
	w := g.w
	ps := g.proc
	v := g.target(s.Var)
	to := g.expr(s.To)
	if _, lit := s.To.(*ast.Literal); !lit {
		tmp := ps.temp("$to")
		w.emit(s.Pos, "const %s = %s;", tmp, to)
		to = tmp
	}
	var test, inc string
	if step, ok := literalStep(s.Step); ok {
		switch {
		case step == 1:
			test, inc = v+" <= "+to, v+"++"
		case step == -1:
			test, inc = v+" >= "+to, v+"--"
		case step >= 0:
			test, inc = v+" <= "+to, v+" += "+formatNumber(step)
		default:
			test, inc = v+" >= "+to, v+" -= "+formatNumber(-step)
		}
	} else {
		tmp := ps.temp("$step")
		w.emit(s.Pos, "const %s = %s;", tmp, g.expr(s.Step))
		test = fmt.Sprintf("%s >= 0 ? %s <= %s : %s >= %s", tmp, v, to, v, to)
		inc = v + " += " + tmp
	}
	label := g.loopLabel(loopFor, s.Body)
	w.emit(s.Pos, "%sfor (%s = %s; %s; %s) {", labelPrefix(label), v, g.expr(s.From), test, inc)
	g.loopBody(loopFor, label, s.Body)
	w.text("}")
}

// literalStep returns the value of an omitted or literal step.
func literalStep(e ast.Expr) (float64, bool) {
	switch e := e.(type) {
	case nil:
		return 1, true
	case *ast.Literal:
		if e.IsNumeric() {
			return e.Number(), true
		}
	case *ast.UnaryOp:
		if lit, ok := e.Operand.(*ast.Literal); ok && e.Op == ast.OpNeg && lit.IsNumeric() {
			return -lit.Number(), true
		}
	}
	return 0, false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (g *Generator) doStmt(s *ast.DoStmt) {
	w := g.w
	label := g.loopLabel(loopDo, s.Body)
	cond := "true"
	if s.Cond != nil {
		cond = g.expr(s.Cond)
		if s.Until {
			cond = not(cond, s.Cond)
		}
	}
	if s.PostTest {
		w.emit(s.Pos, "%sdo {", labelPrefix(label))
		g.loopBody(loopDo, label, s.Body)
		w.text("} while (%s);", cond)
		return
	}
	w.emit(s.Pos, "%swhile (%s) {", labelPrefix(label), cond)
	g.loopBody(loopDo, label, s.Body)
	w.text("}")
}

func (g *Generator) loopBody(kind loopKind, label string, body []ast.Stmt) {
	ps := g.proc
	ps.loops = append(ps.loops, loopFrame{kind: kind, label: label})
	g.block(body)
	ps.loops = ps.loops[:len(ps.loops)-1]
}

// loopLabel names a loop when an Exit inside it has to leave through a
// loop of another kind, which a plain break would stop at.
func (g *Generator) loopLabel(kind loopKind, body []ast.Stmt) string {
	if kind == loopWhile || !exitCrosses(body, kind, false) {
		return ""
	}
	g.proc.labels++
	return fmt.Sprintf("$loop%d", g.proc.labels)
}

func labelPrefix(label string) string {
	if label == "" {
		return ""
	}
	return label + ": "
}

func exitLoop(k ast.ExitKind) loopKind {
	switch k {
	case ast.ExitFor:
		return loopFor
	case ast.ExitDo:
		return loopDo
	}
	return loopNone
}

func exitCrosses(body []ast.Stmt, kind loopKind, crossed bool) bool {
	for _, s := range body {
		switch s := s.(type) {
		case *ast.ExitStmt:
			if crossed && exitLoop(s.Kind) == kind {
				return true
			}
		case *ast.ForStmt:
			if kind != loopFor && exitCrosses(s.Body, kind, true) {
				return true
			}
		case *ast.ForEachStmt:
			if kind != loopFor && exitCrosses(s.Body, kind, true) {
				return true
			}
		case *ast.DoStmt:
			if kind != loopDo && exitCrosses(s.Body, kind, true) {
				return true
			}
		case *ast.WhileStmt:
			if exitCrosses(s.Body, kind, true) {
				return true
			}
		default:
			for _, b := range nestedBlocks(s) {
				if exitCrosses(b, kind, crossed) {
					return true
				}
			}
		}
	}
	return false
}

// nestedBlocks returns the statement lists of a non-loop compound
// statement.
func nestedBlocks(s ast.Stmt) [][]ast.Stmt {
	switch s := s.(type) {
	case *ast.IfStmt:
		out := [][]ast.Stmt{s.Then}
		for _, ei := range s.ElseIfs {
			out = append(out, ei.Body)
		}
		return append(out, s.Else)
	case *ast.SelectStmt:
		var out [][]ast.Stmt
		for _, c := range s.Cases {
			out = append(out, c.Body)
		}
		return append(out, s.Else)
	case *ast.WithStmt:
		return [][]ast.Stmt{s.Body}
	}
	return nil
}

func (g *Generator) exit(s *ast.ExitStmt) {
	w := g.w
	ps := g.proc
	kind := exitLoop(s.Kind)
	if kind == loopNone {
		if ps.p.Kind.ReturnsValue() {
			w.emit(s.Pos, "return $result;")
		} else {
			w.emit(s.Pos, "return;")
		}
		return
	}
	for i := len(ps.loops) - 1; i >= 0; i-- {
		f := ps.loops[i]
		if f.kind != kind {
			continue
		}
		if i == len(ps.loops)-1 || f.label == "" {
			w.emit(s.Pos, "break;")
		} else {
			w.emit(s.Pos, "break %s;", f.label)
		}
		return
	}
	g.unsupported(s.Pos, "statement", "Exit "+s.Kind.String()+" outside a loop")
}

func (g *Generator) onError(s *ast.OnErrorStmt) {
	ps := g.proc
	switch s.Mode {
	case ast.OnErrorResumeNext:
		ps.resumeNext = true
	case ast.OnErrorGoToZero:
		ps.resumeNext = false
		if ps.handler {
			g.w.emit(s.Pos, "$handler = 0;")
		}
	default:
		ps.resumeNext = false
		if state, ok := g.jumpTarget(s.Pos, "On Error GoTo "+s.Label, s.Label); ok {
			g.w.emit(s.Pos, "$handler = %d;", state)
		}
	}
}

// gosub pushes the state after the jump and opens a case for it, so a
// Return continues with the next statement.
func (g *Generator) gosub(s *ast.GoSubStmt) {
	ps := g.proc
	w := g.w
	if ps.depth > 0 {
		g.unsupported(s.Pos, "statement", "GoSub "+s.Label+" inside a block")
		return
	}
	state, ok := g.jumpTarget(s.Pos, "GoSub "+s.Label, s.Label)
	if !ok {
		return
	}
	ret := ps.nextState
	ps.nextState++
	w.emit(s.Pos, "$gosub.push(%d);", ret)
	g.jump(s.Pos, state)
	w.out()
	w.text("case %d:", ret)
	w.in()
}
