// Package transpiler runs the whole compilation of one source module:
// lexing, parsing, feature processing, analysis, optimization and code
// generation. It is the only entry point the command line and embedders
// need.
package transpiler

import (
	"fmt"
	"strings"
	"time"

	"github.com/barun-bash/vbport/internal/analyzer"
	"github.com/barun-bash/vbport/internal/ast"
	"github.com/barun-bash/vbport/internal/codegen"
	cerr "github.com/barun-bash/vbport/internal/errors"
	"github.com/barun-bash/vbport/internal/features"
	"github.com/barun-bash/vbport/internal/lexer"
	"github.com/barun-bash/vbport/internal/optimizer"
	"github.com/barun-bash/vbport/internal/parser"
	"github.com/barun-bash/vbport/internal/sourcemap"
)

// DefaultProject is the project name used for Friend scopes when none is
// configured.
const DefaultProject = "Project1"

// DefaultModuleName names a module that has neither an explicit name nor
// a VB_Name attribute.
const DefaultModuleName = "Module1"

// Diagnostic codes assigned by the pipeline itself.
const (
	CodeLex   = "L101"
	CodeParse = "P201"
)

// Result is the outcome of one compilation. GeneratedText is produced
// whenever the source could be tokenized, even when Errors is not empty.
type Result struct {
	Success       bool
	ModuleName    string
	GeneratedText string
	SourceMap     *sourcemap.Map // nil when source maps are disabled
	Errors        []*cerr.CompilerError
	Warnings      []*cerr.CompilerError
	Metrics       Metrics

	// Module is the tree code was generated from, after optimization.
	Module *ast.Module

	diags *cerr.CompilerErrors
}

// Diagnostics returns every diagnostic of the compilation in the order
// it was reported.
func (r *Result) Diagnostics() *cerr.CompilerErrors {
	return r.diags
}

// Compiler owns the session state shared by successive compilations:
// static slots, Friend registrations and the definitions of every module
// compiled so far. Compilers share nothing with each other.
type Compiler struct {
	session *features.Session
}

// New returns a compiler whose modules belong to project.
func New(project string) *Compiler {
	if project == "" {
		project = DefaultProject
	}
	return &Compiler{session: features.NewSession(project)}
}

// Session exposes the compiler's feature processors.
func (c *Compiler) Session() *features.Session {
	return c.session
}

// Reset forgets everything earlier compilations registered, including
// static slots.
func (c *Compiler) Reset() {
	c.session.Clear()
}

// Transpile compiles source with a fresh compiler.
func Transpile(source, moduleName string, opts Options) *Result {
	return New(DefaultProject).Transpile(source, moduleName, opts)
}

// Transpile compiles one module. An empty moduleName takes the name from
// the module's VB_Name attribute. Transpile never panics: an internal
// failure is reported as a fatal diagnostic.
func (c *Compiler) Transpile(source, moduleName string, opts Options) (res *Result) {
	start := time.Now()
	errs := cerr.New(sourceName(moduleName))
	res = &Result{ModuleName: moduleName, Metrics: newMetrics(), diags: errs}

	defer func() {
		if r := recover(); r != nil {
			errs.AddFatal(fmt.Sprintf("internal compiler error: %v", r))
			res.GeneratedText = ""
			res.SourceMap = nil
		}
		res.Metrics.Total = time.Since(start)
		res.Errors = errs.Errors()
		res.Warnings = errs.Warnings()
		res.Success = !errs.HasErrors()
	}()

	if err := opts.Validate(); err != nil {
		errs.AddFatal(fmt.Sprintf("invalid options: %v", err))
		return res
	}

	// Lex
	var tokens []lexer.Token
	var lexErr error
	lex := lexer.New(source)
	res.Metrics.time(PhaseLex, func() {
		tokens, lexErr = lex.Tokenize()
	})
	if lexErr != nil {
		errs.AddFatal(fmt.Sprintf("tokenization failed: %v", lexErr))
		return res
	}
	res.Metrics.Tokens = len(tokens)
	for _, le := range lex.Errors() {
		errs.AddErrorAt(cerr.KindLex, CodeLex, le.Line, le.Column, le.Message)
	}

	// Parse
	var mod *ast.Module
	var perrs []*parser.ParseError
	res.Metrics.time(PhaseParse, func() {
		mod, perrs = parser.ParseTokens(tokens, moduleName)
	})
	for _, pe := range perrs {
		errs.AddErrorAt(cerr.KindParse, CodeParse, pe.Line, pe.Column, pe.Message)
	}
	if mod.Name == "" {
		mod.Name = DefaultModuleName
	}
	res.ModuleName = mod.Name
	errs.SetFile(sourceName(mod.Name))
	res.Metrics.Declarations = len(mod.Declarations)
	res.Metrics.Procedures = len(mod.Procedures)
	for _, p := range mod.Procedures {
		res.Metrics.Statements += ast.CountStmts(p.Body)
	}

	// Feature processors
	res.Metrics.time(PhaseProcess, func() {
		for _, p := range c.session.Process(mod) {
			errs.AddWarningAt(p.Code, p.Pos.Line, p.Pos.Column, p.Message)
		}
	})

	// Analysis
	res.Metrics.time(PhaseAnalyze, func() {
		for _, d := range analyzer.Analyze(mod, c.session, "").All() {
			errs.Add(d)
		}
	})

	// Optimization
	if opts.EnableOptimizations {
		res.Metrics.time(PhaseOptimize, func() {
			optimized, stats := optimizer.New(opts.optimizer()).Optimize(mod)
			res.Metrics.OptimizerIterations = stats.Iterations
			res.Metrics.OptimizerChanges = stats.Total()
			res.Metrics.OptimizerConverged = stats.Converged
			if optimized != mod {
				// Labels and static slots are read back by the generator,
				// so the session must describe the tree being emitted.
				c.session.Process(optimized)
				mod = optimized
			}
		})
	}
	res.Module = mod

	// Code generation
	res.Metrics.time(PhaseGenerate, func() {
		text, sm := codegen.New(opts.codegen(), c.session, errs).Generate(mod)
		res.GeneratedText = text
		if opts.GenerateSourceMaps {
			res.SourceMap = sm
			res.Metrics.SourceMappings = sm.Len()
		}
	})
	res.Metrics.OutputBytes = len(res.GeneratedText)
	res.Metrics.OutputLines = strings.Count(res.GeneratedText, "\n")
	return res
}

func sourceName(module string) string {
	if module == "" {
		return ""
	}
	return module + ".src"
}
