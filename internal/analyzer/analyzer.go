package analyzer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/barun-bash/vbport/internal/ast"
	"github.com/barun-bash/vbport/internal/codegen"
	cerr "github.com/barun-bash/vbport/internal/errors"
	"github.com/barun-bash/vbport/internal/features"
)

const suggestionThreshold = 0.6

// Diagnostic codes reported by the analyzer.
const (
	CodeUnresolved   = "W301"
	CodeBuiltinArity = "W303"
	CodeFriendAccess = "W304"
	CodeDuplicate    = "W305"
	CodeDuplicateVar = "W306"
	CodeUnknownEvent = "W307"
	CodeExitKind     = "W308"
)

// Analyze checks a parsed module for problems the parser cannot see. The
// session must already hold the module's definitions
// (features.Session.Process). Every finding is a warning; generation
// still runs.
func Analyze(mod *ast.Module, session *features.Session, file string) *cerr.CompilerErrors {
	errs := cerr.New(file)
	if session == nil {
		session = features.NewSession("")
	}
	session.SetContext(mod.Name, "")
	defer session.SetContext(mod.Name, "")

	// Build symbol tables
	names, nameList := collectNames(append(moduleEntries(mod), enumMembers(mod)...), func(e entry) string { return e.name })
	events, _ := collectNames(declsOf[*ast.EventDecl](mod), func(d *ast.EventDecl) string { return d.Name })

	// 1. Duplicate module-level names
	checkDuplicates(errs, moduleEntries(mod), CodeDuplicate)

	for _, p := range mod.Procedures {
		session.SetContext(mod.Name, p.Name)
		locals, localList := procNames(p)

		// 2. Duplicate parameters and locals
		checkDuplicates(errs, localEntries(p), CodeDuplicateVar)

		// 3. Undeclared identifiers and builtin arity
		r := &resolver{
			errs:     errs,
			session:  session,
			explicit: mod.Options.Explicit,
			module:   names,
			locals:   locals,
			known:    append(slices.Clone(localList), nameList...),
		}
		r.check(p)

		// 4. RaiseEvent targets
		checkEvents(errs, p, events)

		// 5. Exit statements
		checkExits(errs, p)
	}
	session.SetContext(mod.Name, "")

	// 6. Friend members of other modules
	checkFriendAccess(errs, mod, session, names)

	return errs
}

// entry is a declared name with the kind used in messages.
type entry struct {
	name string
	kind string
	pos  ast.Pos
}

// moduleEntries lists every module-level name. The accessors of one
// property share a single entry.
func moduleEntries(mod *ast.Module) []entry {
	var out []entry
	for _, d := range mod.Declarations {
		var kind string
		switch d.(type) {
		case *ast.VarDecl:
			kind = "variable"
		case *ast.ConstDecl:
			kind = "constant"
		case *ast.TypeDecl:
			kind = "type"
		case *ast.EnumDecl:
			kind = "enum"
		case *ast.DeclareDecl:
			kind = "declared procedure"
		case *ast.EventDecl:
			kind = "event"
		}
		out = append(out, entry{name: d.DeclName(), kind: kind, pos: d.Position()})
	}
	props := make(map[string]bool)
	for _, p := range mod.Procedures {
		if p.Kind.IsProperty() {
			key := strings.ToLower(p.Name)
			if props[key] {
				continue
			}
			props[key] = true
			out = append(out, entry{name: p.Name, kind: "property", pos: p.Pos})
			continue
		}
		out = append(out, entry{name: p.Name, kind: strings.ToLower(p.Kind.String()), pos: p.Pos})
	}
	return out
}

// enumMembers lists the members of the module's enums. Members are
// visible without qualification throughout the module.
func enumMembers(mod *ast.Module) []entry {
	var out []entry
	for _, e := range declsOf[*ast.EnumDecl](mod) {
		for _, m := range e.Members {
			out = append(out, entry{name: m.Name, kind: "enum member", pos: m.Pos})
		}
	}
	return out
}

func declsOf[T ast.Decl](mod *ast.Module) []T {
	var out []T
	for _, d := range mod.Declarations {
		if t, ok := d.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// localEntries lists the parameters and Dim, Static and Const names of a
// procedure.
func localEntries(p *ast.Procedure) []entry {
	var out []entry
	for _, param := range p.Params {
		out = append(out, entry{name: param.Name, kind: "parameter", pos: param.Pos})
	}
	ast.InspectStmts(p.Body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.DimStmt:
			for _, v := range n.Vars {
				out = append(out, entry{name: v.Name, kind: "variable", pos: v.Pos})
			}
			return false
		case *ast.ConstStmt:
			for _, c := range n.Consts {
				out = append(out, entry{name: c.Name, kind: "constant", pos: c.Pos})
			}
			return false
		}
		return true
	})
	return out
}

// procNames returns the names a procedure body may use besides module
// names: its parameters, locals, the function result and arrays created
// by ReDim.
func procNames(p *ast.Procedure) (map[string]bool, []string) {
	entries := localEntries(p)
	if p.Kind.ReturnsValue() {
		entries = append(entries, entry{name: p.Name})
	}
	ast.InspectStmts(p.Body, func(n ast.Node) bool {
		if rd, ok := n.(*ast.ReDimStmt); ok {
			entries = append(entries, entry{name: rd.Name})
		}
		return true
	})
	return collectNames(entries, func(e entry) string { return e.name })
}

// resolver walks one procedure body.
type resolver struct {
	errs     *cerr.CompilerErrors
	session  *features.Session
	explicit bool
	module   map[string]bool
	locals   map[string]bool
	known    []string
}

func (r *resolver) declared(name string) bool {
	key := strings.ToLower(name)
	return r.locals[key] || r.module[key]
}

func (r *resolver) check(p *ast.Procedure) {
	// Callees may live in other modules, and the object of a member
	// access may be a module or class name; neither is reported.
	skip := make(map[*ast.Identifier]bool)
	ast.Inspect(p, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FunctionCall:
			if id, ok := n.Callee.(*ast.Identifier); ok {
				skip[id] = true
				r.call(id, len(n.Args))
			}
		case *ast.MemberAccess:
			if id, ok := n.Object.(*ast.Identifier); ok {
				skip[id] = true
			}
		case *ast.Identifier:
			if !skip[n] {
				r.identifier(n)
			}
		}
		return true
	})
}

// call checks the argument count of a builtin that the module does not
// shadow.
func (r *resolver) call(id *ast.Identifier, args int) {
	if r.declared(id.Name) {
		return
	}
	b, ok := codegen.LookupBuiltin(id.Name)
	if !ok || b.Object || b.Accepts(args) {
		return
	}
	warnAt(r.errs, id.Pos, CodeBuiltinArity,
		fmt.Sprintf("%s takes %s argument(s), called with %d", b.Name, b.Arity(), args), "")
}

func (r *resolver) identifier(id *ast.Identifier) {
	if r.declared(id.Name) {
		return
	}
	if b, ok := codegen.LookupBuiltin(id.Name); ok {
		if !b.Object && !b.Accepts(0) {
			warnAt(r.errs, id.Pos, CodeBuiltinArity,
				fmt.Sprintf("%s takes %s argument(s), used without any", b.Name, b.Arity()), "")
		}
		return
	}
	if _, ok := r.session.Enums.Lookup(id.Name); ok {
		return
	}
	if _, ok := r.session.Types.Lookup(id.Name); ok {
		return
	}
	if !r.explicit {
		return
	}
	msg := fmt.Sprintf("variable %q is not declared (Option Explicit is on)", id.Name)
	suggestion := ""
	if s := cerr.FindClosest(id.Name, r.known, suggestionThreshold); s != "" {
		suggestion = fmt.Sprintf("Did you mean %q?", s)
	}
	warnAt(r.errs, id.Pos, CodeUnresolved, msg, suggestion)
}

func checkEvents(errs *cerr.CompilerErrors, p *ast.Procedure, events map[string]bool) {
	ast.InspectStmts(p.Body, func(n ast.Node) bool {
		if re, ok := n.(*ast.RaiseEventStmt); ok && !events[strings.ToLower(re.Name)] {
			warnAt(errs, re.Pos, CodeUnknownEvent,
				fmt.Sprintf("RaiseEvent %s: no event named %q is declared in this module", re.Name, re.Name), "")
		}
		return true
	})
}

// checkExits reports Exit Sub, Exit Function and Exit Property used in
// the wrong kind of procedure.
func checkExits(errs *cerr.CompilerErrors, p *ast.Procedure) {
	var want ast.ExitKind
	switch {
	case p.Kind == ast.ProcSub:
		want = ast.ExitSub
	case p.Kind == ast.ProcFunction:
		want = ast.ExitFunction
	default:
		want = ast.ExitProperty
	}
	ast.InspectStmts(p.Body, func(n ast.Node) bool {
		ex, ok := n.(*ast.ExitStmt)
		if !ok || ex.Kind == ast.ExitFor || ex.Kind == ast.ExitDo || ex.Kind == want {
			return true
		}
		warnAt(errs, ex.Pos, CodeExitKind,
			fmt.Sprintf("Exit %s inside %s %s", ex.Kind, p.Kind, p.Name), fmt.Sprintf("Use Exit %s", want))
		return true
	})
}

// checkFriendAccess reports uses of another module's Friend members from
// a module outside that module's project. A reference is Module.Member
// or Project.Module.Member.
func checkFriendAccess(errs *cerr.CompilerErrors, mod *ast.Module, session *features.Session, names map[string]bool) {
	caller := session.Scope(mod.Name)
	for _, p := range mod.Procedures {
		ast.Inspect(p, func(n ast.Node) bool {
			ma, ok := n.(*ast.MemberAccess)
			if !ok {
				return true
			}
			qualifier := qualifiedName(ma.Object)
			if qualifier == "" || names[strings.ToLower(strings.SplitN(qualifier, ".", 2)[0])] {
				return true
			}
			target, ok := session.Friends.ScopeOf(qualifier)
			if !ok || session.Friends.Check(target, caller, ma.Member) {
				return true
			}
			warnAt(errs, ma.Pos, CodeFriendAccess,
				fmt.Sprintf("%s.%s is Friend in %s and not accessible from %s", qualifier, ma.Member, target, caller), "")
			return false
		})
	}
}

// qualifiedName renders a chain of identifiers joined by dots, or "" for
// any other expression.
func qualifiedName(e ast.Expr) string {
	switch e := e.(type) {
	case *ast.Identifier:
		return e.Name
	case *ast.MemberAccess:
		if e.Bang || e.Object == nil {
			return ""
		}
		if left := qualifiedName(e.Object); left != "" {
			return left + "." + e.Member
		}
	}
	return ""
}

func warnAt(errs *cerr.CompilerErrors, pos ast.Pos, code, msg, suggestion string) {
	errs.Add(&cerr.CompilerError{
		Code:       code,
		Message:    msg,
		Severity:   cerr.SeverityWarning,
		Kind:       cerr.KindSemantic,
		Line:       pos.Line,
		Column:     pos.Column,
		Suggestion: suggestion,
	})
}

// ── Helpers ──

// collectNames builds a case-insensitive lookup set and an ordered list
// of names.
func collectNames[T any](items []T, nameFn func(T) string) (map[string]bool, []string) {
	set := make(map[string]bool, len(items))
	list := make([]string, 0, len(items))
	for _, item := range items {
		name := nameFn(item)
		set[strings.ToLower(name)] = true
		list = append(list, name)
	}
	return set, list
}

// checkDuplicates reports every name declared more than once.
func checkDuplicates(errs *cerr.CompilerErrors, items []entry, code string) {
	seen := make(map[string]entry)
	for _, e := range items {
		key := strings.ToLower(e.name)
		if first, dup := seen[key]; dup {
			warnAt(errs, e.pos, code,
				fmt.Sprintf("%s %q is already declared as a %s at line %d", e.kind, e.name, first.kind, first.pos.Line), "")
			continue
		}
		seen[key] = e
	}
}
