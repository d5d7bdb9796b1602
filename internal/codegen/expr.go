package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/barun-bash/vbport/internal/ast"
)

var binaryJS = map[ast.BinaryOperator]string{
	ast.OpAdd: "+",
	ast.OpSub: "-",
	ast.OpMul: "*",
	ast.OpDiv: "/",
	ast.OpMod: "%",
	ast.OpEq:  "===",
	ast.OpNe:  "!==",
	ast.OpLt:  "<",
	ast.OpGt:  ">",
	ast.OpLe:  "<=",
	ast.OpGe:  ">=",
	ast.OpIs:  "===",
	ast.OpAnd: "&&",
	ast.OpOr:  "||",
}

// binaryHelpers are operators with no JavaScript counterpart.
var binaryHelpers = map[ast.BinaryOperator]string{
	ast.OpIntDiv: "VB.IntDiv",
	ast.OpPow:    "Math.pow",
	ast.OpLike:   "VB.Like",
	ast.OpXor:    "VB.Xor",
	ast.OpEqv:    "VB.Eqv",
	ast.OpImp:    "VB.Imp",
}

// stringFuncs are runtime functions known to return a String.
var stringFuncs = map[string]bool{
	"left": true, "right": true, "mid": true, "trim": true, "ltrim": true,
	"rtrim": true, "ucase": true, "lcase": true, "replace": true, "space": true,
	"string": true, "strreverse": true, "join": true, "format": true, "chr": true,
	"chrw": true, "cstr": true, "str": true, "hex": true, "oct": true,
	"typename": true, "inputbox": true, "environ": true,
}

// expr renders e as a JavaScript expression.
func (g *Generator) expr(e ast.Expr) string {
	switch e := e.(type) {
	case nil:
		return "undefined"
	case *ast.Literal:
		return literal(e)
	case *ast.Identifier:
		return g.identifier(e)
	case *ast.BinaryOp:
		return g.binary(e)
	case *ast.UnaryOp:
		return g.unary(e)
	case *ast.FunctionCall:
		return g.call(e)
	case *ast.MemberAccess:
		return g.member(e)
	case *ast.NewExpr:
		return newObject(e.TypeName)
	case *ast.TypeOfExpr:
		return fmt.Sprintf("VB.TypeOf(%s, %s)", g.expr(e.Operand), jsString(e.TypeName))
	case *ast.MissingArg:
		return "undefined"
	}
	return "undefined"
}

func literal(l *ast.Literal) string {
	switch l.Kind {
	case ast.LitInteger:
		return strconv.FormatInt(l.Int, 10)
	case ast.LitFloat, ast.LitCurrency:
		return strconv.FormatFloat(l.Float, 'g', -1, 64)
	case ast.LitString:
		return jsString(l.Str)
	case ast.LitDate:
		return "VB.CDate(" + jsString(l.Str) + ")"
	case ast.LitBoolean:
		if l.Bool {
			return "true"
		}
		return "false"
	case ast.LitNothing:
		return "null"
	case ast.LitNull:
		return "VB.Null"
	}
	return "undefined"
}

func newObject(typeName string) string {
	if cls, ok := Classes[fold(typeName)]; ok {
		return "new VB." + cls + "()"
	}
	return "new " + jsIdent(typeName) + "()"
}

// identifier renders a bare name read in an expression.
func (g *Generator) identifier(id *ast.Identifier) string {
	s := g.lookup(id.Name)
	if s == nil {
		if b, ok := LookupBuiltin(id.Name); ok {
			if b.Object {
				return "VB." + b.Name
			}
			return "VB." + b.Name + "()"
		}
		return jsIdent(id.Name)
	}
	switch s.kind {
	case symProc:
		return s.js + "()"
	case symProperty:
		if s.prop.get != nil {
			return procName(s.prop.get) + "()"
		}
		return jsIdent(s.name)
	}
	return s.js
}

func (g *Generator) binary(e *ast.BinaryOp) string {
	if e.Op == ast.OpConcat {
		return g.concatOperand(e.Left) + " + " + g.concatOperand(e.Right)
	}
	if g.mod.Options.CompareText && (e.Op == ast.OpEq || e.Op == ast.OpNe) {
		eq := fmt.Sprintf("VB.TextEq(%s, %s)", g.expr(e.Left), g.expr(e.Right))
		if e.Op == ast.OpNe {
			return "!" + eq
		}
		return eq
	}
	if fn, ok := binaryHelpers[e.Op]; ok {
		return fmt.Sprintf("%s(%s, %s)", fn, g.expr(e.Left), g.expr(e.Right))
	}
	return g.operand(e.Left) + " " + binaryJS[e.Op] + " " + g.operand(e.Right)
}

// operand parenthesizes nested binary operations.
func (g *Generator) operand(e ast.Expr) string {
	if b, ok := e.(*ast.BinaryOp); ok {
		if _, helper := binaryHelpers[b.Op]; !helper {
			return "(" + g.expr(e) + ")"
		}
	}
	return g.expr(e)
}

// concatOperand converts a non-string operand of & to a string so that
// + never adds numbers.
func (g *Generator) concatOperand(e ast.Expr) string {
	if b, ok := e.(*ast.BinaryOp); ok && b.Op == ast.OpConcat {
		return g.expr(e)
	}
	if g.isString(e) {
		return g.operand(e)
	}
	return "VB.CStr(" + g.expr(e) + ")"
}

// isString reports whether e is statically known to be a String.
func (g *Generator) isString(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.Literal:
		return e.Kind == ast.LitString
	case *ast.BinaryOp:
		return e.Op == ast.OpConcat
	case *ast.Identifier:
		if s := g.lookup(e.Name); s != nil && s.isVariable() && !s.array {
			return s.fixedLen != nil || fold(s.typ.Name) == "string"
		}
	case *ast.FunctionCall:
		id, ok := e.Callee.(*ast.Identifier)
		if !ok || g.lookup(id.Name) != nil {
			return false
		}
		return strings.HasSuffix(id.Name, "$") || stringFuncs[fold(id.Name)]
	}
	return false
}

func (g *Generator) unary(e *ast.UnaryOp) string {
	switch e.Op {
	case ast.OpNeg:
		s := g.operand(e.Operand)
		if strings.HasPrefix(s, "-") {
			s = "(" + s + ")"
		}
		return "-" + s
	case ast.OpPlus:
		return g.expr(e.Operand)
	case ast.OpNot:
		return "!" + g.operand(e.Operand)
	}
	// AddressOf
	if id, ok := e.Operand.(*ast.Identifier); ok {
		if s := g.syms[fold(id.Name)]; s != nil && s.kind == symProc {
			return s.js
		}
		return jsIdent(id.Name)
	}
	return g.expr(e.Operand)
}

// not negates a rendered condition.
func not(cond string, e ast.Expr) string {
	switch e.(type) {
	case *ast.BinaryOp:
		return "!(" + cond + ")"
	}
	return "!" + cond
}

// call renders `Callee(args)`, which is a procedure or function call or an
// array index depending on what the callee names.
func (g *Generator) call(c *ast.FunctionCall) string {
	switch callee := c.Callee.(type) {
	case *ast.Identifier:
		return g.callName(callee, c.Args)
	case *ast.MemberAccess:
		if g.isArrayField(callee) {
			return g.member(callee) + g.index(c.Args)
		}
		return g.member(callee) + "(" + g.argList(c.Args) + ")"
	}
	return g.expr(c.Callee) + "(" + g.argList(c.Args) + ")"
}

func (g *Generator) callName(id *ast.Identifier, args []*ast.Arg) string {
	s := g.lookup(id.Name)
	if s == nil {
		return g.builtinCall(id.Name, args)
	}
	switch s.kind {
	case symProc:
		return s.js + "(" + g.procArgs(s.proc, args) + ")"
	case symResult:
		// A call of the function's own name inside its body recurses.
		return procName(s.proc) + "(" + g.procArgs(s.proc, args) + ")"
	case symProperty:
		if s.prop.get != nil {
			return procName(s.prop.get) + "(" + g.procArgs(s.prop.get, args) + ")"
		}
	}
	return s.js + g.index(args)
}

func (g *Generator) builtinCall(name string, args []*ast.Arg) string {
	switch fold(strings.TrimSuffix(name, "$")) {
	case "ismissing":
		if len(args) == 1 {
			if id, ok := args[0].Value.(*ast.Identifier); ok {
				if s := g.lookup(id.Name); s != nil && s.kind == symParam && s.optional {
					return s.js + "$missing"
				}
			}
		}
	case "array":
		return "[" + g.argList(args) + "]"
	}
	if b, ok := LookupBuiltin(name); ok {
		return "VB." + b.Name + "(" + g.argList(args) + ")"
	}
	return jsIdent(name) + "(" + g.argList(args) + ")"
}

// index renders array subscripts: a(i, j) becomes a[i][j].
func (g *Generator) index(args []*ast.Arg) string {
	var b strings.Builder
	for _, a := range args {
		b.WriteString("[")
		b.WriteString(g.expr(a.Value))
		b.WriteString("]")
	}
	return b.String()
}

func (g *Generator) argList(args []*ast.Arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = g.expr(a.Value)
	}
	return strings.Join(parts, ", ")
}

// procArgs places named arguments at their parameter's position and
// fills gaps with undefined, which marks an optional parameter missing.
func (g *Generator) procArgs(p *ast.Procedure, args []*ast.Arg) string {
	if p == nil {
		return g.argList(args)
	}
	var slots []string
	var extra []string
	put := func(i int, v string) {
		for len(slots) <= i {
			slots = append(slots, "undefined")
		}
		slots[i] = v
	}
	for i, a := range args {
		v := g.expr(a.Value)
		if a.Name == "" {
			put(i, v)
			continue
		}
		found := false
		for j, param := range p.Params {
			if strings.EqualFold(param.Name, a.Name) {
				put(j, v)
				found = true
				break
			}
		}
		if !found {
			extra = append(extra, v)
		}
	}
	for len(slots) > 0 && slots[len(slots)-1] == "undefined" {
		slots = slots[:len(slots)-1]
	}
	return strings.Join(append(slots, extra...), ", ")
}

func (g *Generator) member(m *ast.MemberAccess) string {
	var obj string
	if m.Object == nil {
		if len(g.withs) == 0 {
			return g.unsupportedExpr(m.Pos, "expression", ast.ExprString(m)+" outside a With block", "undefined."+jsIdent(m.Member))
		}
		obj = g.withs[len(g.withs)-1]
	} else {
		obj = g.expr(m.Object)
	}
	if m.Bang {
		return obj + "[" + jsString(m.Member) + "]"
	}
	return obj + "." + g.memberName(m)
}

// memberName spells a member the way it was declared when the object is
// an enum or a record of a known type.
func (g *Generator) memberName(m *ast.MemberAccess) string {
	id, ok := m.Object.(*ast.Identifier)
	if !ok {
		return m.Member
	}
	s := g.lookup(id.Name)
	if s != nil && s.kind == symEnum {
		if def, ok := g.session.Enums.Lookup(s.name); ok {
			if mem, ok := def.Member(m.Member); ok {
				return mem.Name
			}
		}
		return m.Member
	}
	if s == nil && g.isEnumName(id.Name) {
		if def, ok := g.session.Enums.Lookup(id.Name); ok {
			if mem, ok := def.Member(m.Member); ok {
				return mem.Name
			}
		}
	}
	if f := g.field(m); f != nil {
		return f.name
	}
	return m.Member
}

type fieldInfo struct {
	name  string
	array bool
}

// field resolves obj.Member against the record type of obj.
func (g *Generator) field(m *ast.MemberAccess) *fieldInfo {
	id, ok := m.Object.(*ast.Identifier)
	if !ok {
		return nil
	}
	s := g.lookup(id.Name)
	if s == nil || !s.isVariable() || s.array {
		return nil
	}
	def, ok := g.session.Types.Lookup(s.typ.Name)
	if !ok {
		return nil
	}
	for _, f := range def.Fields {
		if strings.EqualFold(f.Name, m.Member) {
			return &fieldInfo{name: f.Name, array: len(f.Dims) > 0}
		}
	}
	return nil
}

func (g *Generator) isArrayField(m *ast.MemberAccess) bool {
	f := g.field(m)
	return f != nil && f.array
}
