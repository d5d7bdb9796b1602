package codegen

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/barun-bash/vbport/internal/ast"
	"github.com/barun-bash/vbport/internal/features"
	"github.com/barun-bash/vbport/internal/value"
)

// declarations emits the module-level declarations grouped so that every
// binding exists before anything refers to it: enums, types, constants,
// then variables. Source order is kept within each group.
func (g *Generator) declarations() {
	decls := g.mod.Declarations
	for _, d := range decls {
		if d, ok := d.(*ast.EnumDecl); ok {
			g.enumDecl(d)
		}
	}
	for _, d := range decls {
		if d, ok := d.(*ast.TypeDecl); ok {
			g.typeDecl(d)
		}
	}
	for _, d := range decls {
		if d, ok := d.(*ast.ConstDecl); ok {
			g.w.emit(d.Pos, "const %s = %s;", jsIdent(d.Name), g.expr(d.Value))
		}
	}
	for _, d := range decls {
		switch d := d.(type) {
		case *ast.VarDecl:
			g.w.emit(d.Pos, "let %s = %s;", jsIdent(d.Name), g.initial(d))
		case *ast.DeclareDecl:
			g.unsupported(d.Pos, "Declare", declareText(d))
		}
	}
}

func declareText(d *ast.DeclareDecl) string {
	kind := "Sub"
	if d.IsFunction {
		kind = "Function"
	}
	return fmt.Sprintf("Declare %s %s Lib %q", kind, d.Name, d.Lib)
}

func (g *Generator) enumDecl(d *ast.EnumDecl) {
	def, ok := g.session.Enums.Lookup(d.Name)
	if !ok {
		def, _ = g.session.Enums.Define(d)
	}
	w := g.w
	if def == nil || len(def.Members) == 0 {
		w.emit(d.Pos, "const %s = Object.freeze({});", jsIdent(d.Name))
		return
	}
	w.emit(d.Pos, "const %s = Object.freeze({", jsIdent(d.Name))
	w.in()
	for i, m := range def.Members {
		sep := ","
		if i == len(def.Members)-1 {
			sep = ""
		}
		pos := d.Pos
		if i < len(d.Members) {
			pos = d.Members[i].Pos
		}
		w.emit(pos, "%s: %d%s", m.Name, m.Value, sep)
	}
	w.out()
	w.text("});")
}

// recordField is one field of a generated record class.
type recordField struct {
	pos   ast.Pos
	name  string
	typ   string
	fixed string // length expression of a fixed-length string
	dims  []string
}

func (g *Generator) recordFields(d *ast.TypeDecl) []recordField {
	out := make([]recordField, len(d.Fields))
	def, ok := g.session.Types.Lookup(d.Name)
	if !ok || def.Module == "" {
		def, _ = g.session.Types.Define(d)
	}
	for i, f := range d.Fields {
		rf := recordField{pos: f.Pos, name: f.Name, typ: f.Type.Name}
		if def != nil && i < len(def.Fields) {
			fd := def.Fields[i]
			if fd.StringLength > 0 {
				rf.fixed = strconv.Itoa(fd.StringLength)
			}
			for _, dim := range fd.Dims {
				rf.dims = append(rf.dims, fmt.Sprintf("[%d, %d]", dim.Lower, dim.Upper))
			}
		} else {
			if f.Type.StringLength != nil {
				rf.fixed = g.expr(f.Type.StringLength)
			}
			rf.dims = g.bounds(f.Dims)
		}
		out[i] = rf
	}
	return out
}

// typeDecl emits a record type as a class. Fixed-length string fields are
// stored under a $-prefixed name behind an accessor that pads or
// truncates every assignment.
func (g *Generator) typeDecl(d *ast.TypeDecl) {
	fields := g.recordFields(d)
	w := g.w
	w.emit(d.Pos, "class %s {", jsIdent(d.Name))
	w.in()
	w.text("constructor() {")
	w.in()
	for _, f := range fields {
		elem := g.zero(ast.TypeRef{Name: f.typ}, f.fixed)
		init := elem
		if len(f.dims) > 0 {
			init = fmt.Sprintf("VB.array(() => %s, %s)", elem, strings.Join(f.dims, ", "))
		}
		if f.fixed != "" && len(f.dims) == 0 {
			w.emit(f.pos, "this.$%s = %s;", f.name, init)
			continue
		}
		w.emit(f.pos, "this.%s = %s;", f.name, init)
	}
	w.out()
	w.text("}")
	for _, f := range fields {
		if f.fixed == "" || len(f.dims) > 0 {
			continue
		}
		w.text("get %s() { return this.$%s; }", f.name, f.name)
		w.text("set %s(v) { this.$%s = VB.fixed(v, %s); }", f.name, f.name, f.fixed)
	}
	w.out()
	w.text("}")
}

// initial is the value a declared variable starts with.
func (g *Generator) initial(d *ast.VarDecl) string {
	if d.Init != nil {
		if d.Type.StringLength != nil {
			return fmt.Sprintf("VB.fixed(%s, %s)", g.expr(d.Init), g.expr(d.Type.StringLength))
		}
		return g.expr(d.Init)
	}
	var fixed string
	if d.Type.StringLength != nil {
		fixed = g.expr(d.Type.StringLength)
	}
	if len(d.Dims) > 0 {
		return fmt.Sprintf("VB.array(() => %s, %s)", g.zero(d.Type, fixed), strings.Join(g.bounds(d.Dims), ", "))
	}
	if d.IsArray {
		return "[]"
	}
	if d.WithEvents {
		return "null"
	}
	return g.zero(d.Type, fixed)
}

// bounds renders array dimensions as [lower, upper] pairs. An omitted
// lower bound follows Option Base.
func (g *Generator) bounds(dims []ast.Dimension) []string {
	out := make([]string, len(dims))
	for i, d := range dims {
		lower := strconv.Itoa(g.mod.Options.Base)
		if d.Lower != nil {
			lower = g.expr(d.Lower)
		}
		out[i] = fmt.Sprintf("[%s, %s]", lower, g.expr(d.Upper))
	}
	return out
}

// zero is the initial value of a variable of type t.
func (g *Generator) zero(t ast.TypeRef, fixed string) string {
	if fixed != "" {
		return fmt.Sprintf(`VB.fixed("", %s)`, fixed)
	}
	if t.New {
		return newObject(t.Name)
	}
	switch fold(t.Name) {
	case "byte", "integer", "long", "longlong", "longptr", "single", "double", "currency", "decimal":
		return "0"
	case "string":
		return `""`
	case "boolean":
		return "false"
	case "date":
		return "VB.CDate(0)"
	case "", "variant":
		return "undefined"
	case "object":
		return "null"
	}
	if g.isTypeName(t.Name) {
		return "new " + jsIdent(t.Name) + "()"
	}
	if g.isEnumName(t.Name) {
		return "0"
	}
	return "null"
}

// staticHolders emits one object per procedure holding its static
// locals. The slots come from the session, so a procedure compiled again
// keeps the values it already had.
func (g *Generator) staticHolders() {
	seen := make(map[string]bool)
	for _, p := range g.mod.Procedures {
		if seen[fold(p.Name)] {
			continue
		}
		seen[fold(p.Name)] = true
		g.session.SetContext(g.mod.Name, p.Name)
		slots := g.session.Statics.Slots()
		if len(slots) == 0 {
			continue
		}
		parts := make([]string, len(slots))
		for i, s := range slots {
			parts[i] = fmt.Sprintf("%s: %s", jsIdent(s.Name), g.staticValue(s))
		}
		g.w.emit(p.Pos, "const %s = { %s };", staticHolder(p.Name), strings.Join(parts, ", "))
	}
	g.session.SetContext(g.mod.Name, "")
}

func staticHolder(proc string) string {
	return jsIdent(proc) + "$static"
}

func (g *Generator) staticValue(s features.StaticVariableSlot) string {
	switch v := s.Value.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return jsString(v)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		if v.Equal(value.Epoch) {
			return "VB.CDate(0)"
		}
		return "VB.CDate(" + jsString(v.Format(time.RFC3339)) + ")"
	}
	return g.zero(ast.TypeRef{Name: s.Type}, "")
}

// eventTables emits the handler table of every WithEvents variable,
// mapping event names to the procedures that handle them.
func (g *Generator) eventTables() {
	for _, d := range g.mod.Declarations {
		v, ok := d.(*ast.VarDecl)
		if !ok || !v.WithEvents {
			continue
		}
		var parts []string
		if b, ok := g.session.Events.Lookup(v.Name); ok {
			for _, h := range b.Handlers() {
				parts = append(parts, fmt.Sprintf("%s: %s", h.Event, jsIdent(h.Procedure)))
			}
		}
		if len(parts) == 0 {
			g.w.emit(v.Pos, "const %s = {};", eventTable(v.Name))
			continue
		}
		g.w.emit(v.Pos, "const %s = { %s };", eventTable(v.Name), strings.Join(parts, ", "))
	}
}

func eventTable(variable string) string {
	return jsIdent(variable) + "$handlers"
}

// exports publishes the module's public surface on $module.
func (g *Generator) exports() {
	var names []string
	add := func(name, js string) {
		if name == js {
			names = append(names, js)
			return
		}
		names = append(names, name+": "+js)
	}
	for _, d := range g.mod.Declarations {
		switch d := d.(type) {
		case *ast.EnumDecl:
			if d.Visibility.IsExported(false) {
				add(d.Name, jsIdent(d.Name))
			}
		case *ast.TypeDecl:
			if d.Visibility.IsExported(false) {
				add(d.Name, jsIdent(d.Name))
			}
		case *ast.ConstDecl:
			if d.Visibility.IsExported(false) {
				add(d.Name, jsIdent(d.Name))
			}
		}
	}
	for _, p := range g.mod.Procedures {
		if p.Kind.IsProperty() || !p.Visibility.IsExported(true) {
			continue
		}
		add(p.Name, jsIdent(p.Name))
	}
	// Indexed properties have no plain accessor; their functions are
	// exported instead.
	for _, ps := range g.props {
		if !propertyExported(ps) || plainProperty(ps) {
			continue
		}
		for _, p := range []*ast.Procedure{ps.get, ps.let, ps.set} {
			if p != nil {
				add(procName(p), procName(p))
			}
		}
	}

	w := g.w
	w.blank()
	if len(names) > 0 {
		w.text("Object.assign($module, { %s });", strings.Join(names, ", "))
	}
	for _, d := range g.mod.Declarations {
		v, ok := d.(*ast.VarDecl)
		if !ok || !v.Visibility.IsExported(false) {
			continue
		}
		js := jsIdent(v.Name)
		assign := "v"
		if v.Type.StringLength != nil {
			assign = fmt.Sprintf("VB.fixed(v, %s)", g.expr(v.Type.StringLength))
		}
		w.text("Object.defineProperty($module, %s, { get: () => %s, set: (v) => { %s = %s; }, enumerable: true });",
			jsString(v.Name), js, js, assign)
	}
	for _, ps := range g.props {
		if !propertyExported(ps) || !plainProperty(ps) {
			continue
		}
		var parts []string
		if ps.get != nil {
			parts = append(parts, "get: "+procName(ps.get))
		}
		switch {
		case ps.let != nil && ps.set != nil:
			parts = append(parts, fmt.Sprintf("set: (v) => VB.IsObject(v) ? %s(v) : %s(v)", procName(ps.set), procName(ps.let)))
		case ps.let != nil:
			parts = append(parts, "set: "+procName(ps.let))
		case ps.set != nil:
			parts = append(parts, "set: "+procName(ps.set))
		}
		parts = append(parts, "enumerable: true")
		w.text("Object.defineProperty($module, %s, { %s });", jsString(ps.name), strings.Join(parts, ", "))
	}
}

func propertyExported(ps *propertySet) bool {
	for _, p := range []*ast.Procedure{ps.get, ps.let, ps.set} {
		if p != nil && p.Visibility.IsExported(true) {
			return true
		}
	}
	return false
}

// plainProperty reports whether the property takes no index, so it can
// be exposed as an accessor.
func plainProperty(ps *propertySet) bool {
	if ps.get != nil && len(ps.get.Params) > 0 {
		return false
	}
	for _, p := range []*ast.Procedure{ps.let, ps.set} {
		if p != nil && len(p.Params) != 1 {
			return false
		}
	}
	return true
}
