package codegen

import (
	"fmt"
	"strings"

	"github.com/barun-bash/vbport/internal/ast"
)

// procState is the generator state for the procedure being emitted.
type procState struct {
	p    *ast.Procedure
	syms map[string]*symbol

	locals []*ast.VarDecl   // hoisted Dim locals
	consts []*ast.ConstDecl // hoisted local constants
	arrays []string         // ReDim of undeclared names
	implic []string         // assigned without declaration

	temps  int
	labels int
	loops  []loopFrame
	depth  int

	// Procedures with line labels or jumps run as a state machine.
	dispatch    bool
	handler     bool
	gosub       bool
	resumeNext  bool
	labelOrder  map[*ast.LabelStmt]int
	labelStates map[string]int
	topLabels   map[string]bool
	nextState   int
}

func (ps *procState) declare(s *symbol) bool {
	key := fold(s.name)
	if _, dup := ps.syms[key]; dup {
		return false
	}
	ps.syms[key] = s
	return true
}

// temp returns a fresh temporary name with the given prefix.
func (ps *procState) temp(prefix string) string {
	ps.temps++
	return fmt.Sprintf("%s%d", prefix, ps.temps)
}

func (g *Generator) procedure(p *ast.Procedure) {
	g.session.SetContext(g.mod.Name, p.Name)
	defer g.session.SetContext(g.mod.Name, "")
	g.proc = g.enterProc(p)
	defer func() { g.proc = nil }()

	w := g.w
	if g.opts.TypeAnnotations {
		g.jsdoc(p)
	}
	w.emit(p.Pos, "function %s(%s) {", procName(p), g.params(p))
	w.in()
	g.prologue()
	if g.proc.dispatch {
		g.dispatchBody(p.Body)
	} else {
		for _, s := range p.Body {
			g.stmt(s)
		}
	}
	if p.Kind.ReturnsValue() {
		w.text("return $result;")
	}
	w.out()
	w.text("}")
}

// enterProc resolves the procedure's own names: parameters, the function
// result, static and ordinary locals, local constants and variables
// assigned without a declaration.
func (g *Generator) enterProc(p *ast.Procedure) *procState {
	ps := &procState{
		p:           p,
		syms:        make(map[string]*symbol),
		labelOrder:  make(map[*ast.LabelStmt]int),
		labelStates: make(map[string]int),
		topLabels:   make(map[string]bool),
	}
	g.proc = ps

	for _, param := range p.Params {
		ps.declare(&symbol{kind: symParam, name: param.Name, js: jsIdent(param.Name), typ: param.Type,
			array: param.IsArray || param.ParamArray, optional: param.Optional})
	}
	if p.Kind.ReturnsValue() {
		ps.declare(&symbol{kind: symResult, name: p.Name, js: "$result", typ: p.ReturnType, proc: p})
	}

	statics := make(map[string]string)
	for _, slot := range g.session.Statics.Slots() {
		statics[fold(slot.Name)] = staticHolder(p.Name) + "." + jsIdent(slot.Name)
	}

	ast.InspectStmts(p.Body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.DimStmt:
			for _, v := range n.Vars {
				s := &symbol{kind: symLocal, name: v.Name, js: jsIdent(v.Name), typ: v.Type,
					array: v.IsArray || len(v.Dims) > 0, fixedLen: v.Type.StringLength}
				if js, ok := statics[fold(v.Name)]; ok && (n.Static || p.Static) {
					s.kind, s.js = symStatic, js
				}
				if ps.declare(s) && s.kind == symLocal {
					ps.locals = append(ps.locals, v)
				}
			}
			return false
		case *ast.ConstStmt:
			for _, c := range n.Consts {
				if ps.declare(&symbol{kind: symConst, name: c.Name, js: jsIdent(c.Name), typ: c.Type}) {
					ps.consts = append(ps.consts, c)
				}
			}
			return false
		case *ast.LabelStmt:
			ps.nextState++
			ps.labelOrder[n] = ps.nextState
			ps.labelStates[fold(n.Name)] = ps.nextState
		case *ast.GoSubStmt, *ast.ReturnStmt:
			ps.gosub = true
		case *ast.OnErrorStmt:
			if n.Mode == ast.OnErrorGoTo {
				ps.handler = true
			}
		}
		return true
	})
	ps.nextState++

	// Names used without a declaration become locals, as they do when
	// Option Explicit is off.
	ast.InspectStmts(p.Body, func(n ast.Node) bool {
		var name string
		switch n := n.(type) {
		case *ast.AssignStmt:
			name = identName(n.Target)
		case *ast.ForStmt:
			name = identName(n.Var)
		case *ast.ForEachStmt:
			name = identName(n.Var)
		case *ast.ReDimStmt:
			if g.lookup(n.Name) == nil && ps.declare(&symbol{kind: symLocal, name: n.Name, js: jsIdent(n.Name), typ: n.Type, array: true}) {
				ps.arrays = append(ps.arrays, n.Name)
			}
		}
		if name != "" && g.lookup(name) == nil {
			if _, builtin := LookupBuiltin(name); !builtin {
				ps.declare(&symbol{kind: symLocal, name: name, js: jsIdent(name)})
				ps.implic = append(ps.implic, name)
			}
		}
		return true
	})

	for _, s := range p.Body {
		if l, ok := s.(*ast.LabelStmt); ok {
			ps.topLabels[fold(l.Name)] = true
		}
	}
	ps.dispatch = needsDispatch(p.Body)
	return ps
}

func identName(e ast.Expr) string {
	if id, ok := e.(*ast.Identifier); ok {
		return id.Name
	}
	return ""
}

// needsDispatch reports whether a body has top-level labels or jumps.
func needsDispatch(body []ast.Stmt) bool {
	for _, s := range body {
		if _, ok := s.(*ast.LabelStmt); ok {
			return true
		}
	}
	found := false
	ast.InspectStmts(body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.GoToStmt, *ast.GoSubStmt, *ast.ReturnStmt:
			found = true
		case *ast.OnErrorStmt:
			found = found || n.Mode == ast.OnErrorGoTo
		case *ast.ResumeStmt:
			found = found || n.Label != ""
		}
		return !found
	})
	return found
}

func (g *Generator) params(p *ast.Procedure) string {
	parts := make([]string, len(p.Params))
	for i, param := range p.Params {
		if param.ParamArray {
			parts[i] = "..." + jsIdent(param.Name)
			continue
		}
		parts[i] = jsIdent(param.Name)
	}
	return strings.Join(parts, ", ")
}

// prologue emits what runs before the first statement: defaults of
// optional parameters, the function result and hoisted declarations.
func (g *Generator) prologue() {
	ps := g.proc
	w := g.w
	for _, param := range ps.p.Params {
		if !param.Optional {
			continue
		}
		name := jsIdent(param.Name)
		w.emit(param.Pos, "const %s$missing = %s === undefined;", name, name)
		def := ""
		switch {
		case param.Default != nil:
			def = g.expr(param.Default)
		case !param.Type.IsZero() && fold(param.Type.Name) != "variant":
			def = g.zero(param.Type, "")
		}
		if def != "" {
			w.emit(param.Pos, "if (%s$missing) %s = %s;", name, name, def)
		}
	}
	if ps.p.Kind.ReturnsValue() {
		w.text("let $result = %s;", g.zero(ps.p.ReturnType, ""))
	}
	for _, c := range ps.consts {
		w.emit(c.Pos, "const %s = %s;", jsIdent(c.Name), g.expr(c.Value))
	}
	for _, v := range ps.locals {
		hoisted := *v
		hoisted.Init = nil
		w.emit(v.Pos, "let %s = %s;", jsIdent(v.Name), g.initial(&hoisted))
	}
	for _, name := range ps.arrays {
		w.text("let %s = [];", jsIdent(name))
	}
	if len(ps.implic) > 0 {
		names := make([]string, len(ps.implic))
		for i, n := range ps.implic {
			names[i] = jsIdent(n)
		}
		w.text("let %s;", strings.Join(names, ", "))
	}
	if ps.dispatch {
		w.text("let $state = 0;")
		if ps.handler {
			w.text("let $handler = 0;")
		}
		if ps.gosub {
			w.text("const $gosub = [];")
		}
	}
}

// dispatchBody emits a body as a switch over states inside a loop. Each
// top-level label starts a case; jumps set $state and continue the loop.
// With an On Error GoTo handler the switch runs inside a try block whose
// catch resumes at the handler's state.
func (g *Generator) dispatchBody(body []ast.Stmt) {
	ps := g.proc
	w := g.w
	w.text("$dispatch: while (true) {")
	w.in()
	if ps.handler {
		w.text("try {")
		w.in()
	}
	w.text("switch ($state) {")
	w.in()
	w.text("case 0:")
	w.in()
	for _, s := range body {
		if l, ok := s.(*ast.LabelStmt); ok {
			w.out()
			w.emit(l.Pos, "case %d: // %s", ps.labelOrder[l], l.Name)
			w.in()
			continue
		}
		g.stmt(s)
	}
	w.out()
	w.out()
	w.text("}")
	w.text("break;")
	if ps.handler {
		w.out()
		w.text("} catch ($e) {")
		w.in()
		w.text("if ($handler === 0) throw $e;")
		w.text("VB.Err.Set($e);")
		w.text("$state = $handler;")
		w.text("$handler = 0;")
		w.out()
		w.text("}")
	}
	w.out()
	w.text("}")
}

// labelState returns the dispatch state of a label, as registered in the
// session when the module was processed.
func (g *Generator) labelState(name string) int {
	if state, ok := g.session.Labels.Lookup(name); ok {
		return state
	}
	return g.proc.labelStates[fold(name)]
}

// jumpTarget resolves the label of a jump. Only top-level labels can be
// targets; anything else is reported and emitted as a placeholder.
func (g *Generator) jumpTarget(pos ast.Pos, text, label string) (int, bool) {
	ps := g.proc
	key := fold(label)
	if ps.dispatch && ps.topLabels[key] {
		return g.labelState(label), true
	}
	g.w.emit(pos, "/* unsupported: %s */", comment(text))
	if _, nested := ps.labelStates[key]; nested {
		g.diags.AddWarningAt(CodeNestedLabel, pos.Line, pos.Column,
			fmt.Sprintf("%s: label %s is inside a block and cannot be a jump target", text, label))
	} else {
		g.diags.AddWarningAt(CodeJumpTarget, pos.Line, pos.Column,
			fmt.Sprintf("%s: label %s is not defined in %s", text, label, ps.p.Name))
	}
	return 0, false
}

func (g *Generator) jsdoc(p *ast.Procedure) {
	w := g.w
	w.text("/**")
	for _, param := range p.Params {
		typ := jsType(param.Type, param.IsArray)
		name := jsIdent(param.Name)
		switch {
		case param.ParamArray:
			w.text(" * @param {...*} %s", name)
		case param.Optional:
			w.text(" * @param {%s} [%s]", typ, name)
		default:
			w.text(" * @param {%s} %s", typ, name)
		}
	}
	if p.Kind.ReturnsValue() {
		w.text(" * @returns {%s}", jsType(p.ReturnType, false))
	}
	w.text(" */")
}

// jsType names a declared type in JSDoc syntax.
func jsType(t ast.TypeRef, array bool) string {
	var name string
	switch fold(t.Name) {
	case "byte", "integer", "long", "longlong", "longptr", "single", "double", "currency", "decimal":
		name = "number"
	case "string":
		name = "string"
	case "boolean":
		name = "boolean"
	case "date":
		name = "Date"
	case "", "variant":
		name = "*"
	case "object":
		name = "Object"
	default:
		name = t.Name
		if cls, ok := Classes[fold(t.Name)]; ok {
			name = "VB." + cls
		}
	}
	if array {
		return "Array<" + name + ">"
	}
	return name
}
