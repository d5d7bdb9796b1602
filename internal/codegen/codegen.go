// Package codegen translates a parsed module into JavaScript and records a
// source map from every generated statement back to the source line it
// came from.
//
// The generated module is an immediately invoked function that builds a
// $module object. Procedures, constants, enums and types marked Public
// (or Friend) are copied onto it; public variables and properties are
// exposed through accessors. Language features without a JavaScript
// counterpart call into the runtime library, bound to the name VB.
//
// Generation never fails: constructs without a translation are emitted
// as a commented placeholder and reported as a W302 warning.
package codegen

import (
	"fmt"
	"strings"

	"github.com/barun-bash/vbport/internal/ast"
	"github.com/barun-bash/vbport/internal/errors"
	"github.com/barun-bash/vbport/internal/features"
	"github.com/barun-bash/vbport/internal/sourcemap"
)

// Target selects how the generated module loads the runtime and exports
// itself.
type Target string

const (
	TargetBrowser   Target = "browser"
	TargetServer    Target = "server"
	TargetUniversal Target = "universal"
)

// Targets lists the supported targets.
var Targets = []Target{TargetBrowser, TargetServer, TargetUniversal}

// ParseTarget validates a target name.
func ParseTarget(s string) (Target, error) {
	for _, t := range Targets {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown target runtime %q (valid: browser, server, universal)", s)
}

// Options controls the shape of the generated code.
type Options struct {
	UseStrict        bool
	TypeAnnotations  bool // JSDoc on every function
	PreserveComments bool
	Target           Target
}

// DefaultOptions returns strict-mode browser output without annotations
// or comments.
func DefaultOptions() Options {
	return Options{UseStrict: true, Target: TargetBrowser}
}

// Warning codes reported by the generator.
const (
	CodeUnsupported = "W302"
	CodeNestedLabel = "W330"
	CodeJumpTarget  = "W331"
)

// Generator emits one module at a time. The session must already hold
// the module's definitions (features.Session.Process); the generator
// reads enum values, record layouts, static slots, event handlers and
// label states from it.
type Generator struct {
	opts    Options
	session *features.Session
	diags   *errors.CompilerErrors

	w     *writer
	mod   *ast.Module
	syms  map[string]*symbol
	props []*propertySet
	proc  *procState
	withs []string
}

// New returns a generator. A nil session or diagnostics collection is
// replaced with an empty one.
func New(opts Options, session *features.Session, diags *errors.CompilerErrors) *Generator {
	if session == nil {
		session = features.NewSession("")
	}
	if diags == nil {
		diags = errors.New("")
	}
	if opts.Target == "" {
		opts.Target = TargetBrowser
	}
	return &Generator{opts: opts, session: session, diags: diags}
}

// Generate returns the JavaScript for mod and its source map. The same
// module and session state always produce the same text and map.
func (g *Generator) Generate(mod *ast.Module) (string, *sourcemap.Map) {
	sm := sourcemap.New(mod.Name+".js", mod.Name+".src")
	g.w = &writer{sm: sm}
	g.mod = mod
	g.proc = nil
	g.withs = nil
	g.session.SetContext(mod.Name, "")
	g.collect()

	name := moduleIdent(mod.Name)
	w := g.w
	if g.opts.UseStrict {
		w.text(`"use strict";`)
	}
	w.text("// Generated by vbport from %s.src", mod.Name)
	g.runtimeImport()
	w.blank()

	w.text("const %s = (() => {", name)
	w.in()
	w.text("const $module = {};")
	g.moduleComments()
	g.declarations()
	g.staticHolders()
	g.eventTables()
	for _, p := range mod.Procedures {
		w.blank()
		g.procedure(p)
	}
	g.exports()
	w.text("return $module;")
	w.out()
	w.text("})();")
	w.blank()
	g.exportModule(name)

	g.session.SetContext(mod.Name, "")
	return w.String(), sm
}

func (g *Generator) runtimeImport() {
	switch g.opts.Target {
	case TargetServer:
		g.w.text("const VB = require(%s);", jsString(RuntimeModule))
	case TargetUniversal:
		g.w.text(`const VB = typeof require === "function" ? require(%s) : globalThis.VB;`, jsString(RuntimeModule))
	default:
		g.w.text("const VB = globalThis.VB;")
	}
}

func (g *Generator) exportModule(name string) {
	w := g.w
	switch g.opts.Target {
	case TargetServer:
		w.text("module.exports = %s;", name)
	case TargetUniversal:
		w.text(`if (typeof module === "object" && module.exports) {`)
		w.in()
		w.text("module.exports = %s;", name)
		w.out()
		w.text("} else {")
		w.in()
		w.text("globalThis.%s = %s;", name, name)
		w.out()
		w.text("}")
	default:
		w.text("globalThis.%s = %s;", name, name)
	}
}

func (g *Generator) moduleComments() {
	if !g.opts.PreserveComments {
		return
	}
	for _, c := range g.mod.Comments {
		g.w.emit(c.Pos, "//%s", lineComment(c.Text))
	}
}

// unsupported emits a placeholder for source that has no translation.
func (g *Generator) unsupported(pos ast.Pos, what, text string) {
	g.w.emit(pos, "/* unsupported: %s */", comment(text))
	g.diags.AddWarningAt(CodeUnsupported, pos.Line, pos.Column, "unsupported "+what+": "+text)
}

// unsupportedExpr is unsupported for expression position: js is still
// emitted, marked with a comment.
func (g *Generator) unsupportedExpr(pos ast.Pos, what, text, js string) string {
	g.diags.AddWarningAt(CodeUnsupported, pos.Line, pos.Column, "unsupported "+what+": "+text)
	return js + " /* unsupported: " + comment(text) + " */"
}

// moduleIdent turns a module name into a binding name.
func moduleIdent(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_' || r == '$' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "Module"
	}
	return jsIdent(b.String())
}

func lineComment(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	if text != "" && !strings.HasPrefix(text, " ") {
		return " " + text
	}
	return text
}
