package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/barun-bash/vbport/internal/ast"
	"github.com/barun-bash/vbport/internal/cli"
	"github.com/barun-bash/vbport/internal/codegen"
	"github.com/barun-bash/vbport/internal/config"
	cerr "github.com/barun-bash/vbport/internal/errors"
	"github.com/barun-bash/vbport/internal/lexer"
	"github.com/barun-bash/vbport/internal/parser"
	"github.com/barun-bash/vbport/internal/transpiler"
	"github.com/barun-bash/vbport/internal/version"
)

func main() {
	applyGlobalSettings()

	// Parse global --no-color flag before command dispatch
	args := filterGlobalFlags(os.Args[1:])

	if len(args) < 1 {
		printUsage()
		os.Exit(0)
	}

	switch args[0] {
	case "version", "--version", "-v":
		fmt.Printf("vbport v%s\n", version.Info())
	case "help", "--help", "-h":
		printUsage()
	case "transpile", "build":
		cmdTranspile(args[1:])
	case "check":
		cmdCheck(args[1:])
	case "tokens":
		cmdTokens(args[1:])
	case "ast":
		cmdAST(args[1:])
	case "repl":
		os.Exit(cmdRepl(args[1:]))
	case "init":
		cmdInit(args[1:])
	default:
		fmt.Fprintln(os.Stderr, cli.Error(fmt.Sprintf("Unknown command: %s", args[0])))
		fmt.Fprintln(os.Stderr)
		printUsage()
		os.Exit(1)
	}
}

// applyGlobalSettings loads ~/.vbport/settings.json. A broken settings
// file is reported but never stops a command.
func applyGlobalSettings() {
	s, err := config.LoadGlobal()
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.Warn(err.Error()))
		return
	}
	cli.ColorEnabled = s.ColorEnabled(cli.ColorEnabled)
	if s.Theme != "" {
		if err := cli.SetTheme(s.Theme); err != nil {
			fmt.Fprintln(os.Stderr, cli.Warn(err.Error()))
		}
	}
}

// filterGlobalFlags strips --no-color from the args list and applies it.
func filterGlobalFlags(args []string) []string {
	var filtered []string
	for _, arg := range args {
		if arg == "--no-color" {
			cli.ColorEnabled = false
		} else {
			filtered = append(filtered, arg)
		}
	}
	return filtered
}

// loadProject reads .vbport/config.json from the working directory.
func loadProject() *config.Config {
	cfg, err := config.Load(".")
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.Error(err.Error()))
		os.Exit(1)
	}
	if cfg.Runtime != "" {
		if err := version.CheckRuntime(cfg.Runtime); err != nil {
			fmt.Fprintln(os.Stderr, cli.Warn(err.Error()))
		}
	}
	return cfg
}

// ── transpile ──

type transpileFlags struct {
	files   []string
	outDir  string
	module  string
	stdout  bool
	watch   bool
	metrics bool
}

// parseTranspileFlags applies command-line overrides on top of opts.
func parseTranspileFlags(args []string, opts *transpiler.Options) (transpileFlags, error) {
	var f transpileFlags
	value := func(i *int, name string) (string, error) {
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s needs a value", name)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--out", "-o":
			v, err := value(&i, arg)
			if err != nil {
				return f, err
			}
			f.outDir = v
		case "--module", "-m":
			v, err := value(&i, arg)
			if err != nil {
				return f, err
			}
			f.module = v
		case "--target":
			v, err := value(&i, arg)
			if err != nil {
				return f, err
			}
			t, err := codegen.ParseTarget(v)
			if err != nil {
				return f, err
			}
			opts.TargetRuntime = t
		case "--passes":
			v, err := value(&i, arg)
			if err != nil {
				return f, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return f, fmt.Errorf("--passes: %w", err)
			}
			opts.MaxOptimizationPasses = n
		case "--stdout":
			f.stdout = true
		case "--watch", "-w":
			f.watch = true
		case "--metrics":
			f.metrics = true
		case "--no-optimize", "-O0":
			opts.EnableOptimizations = false
		case "--no-source-map":
			opts.GenerateSourceMaps = false
		case "--no-strict":
			opts.UseStrictMode = false
		case "--no-comments":
			opts.PreserveComments = false
		case "--types":
			opts.GenerateTypeAnnotations = true
		case "--inline":
			opts.InlineExpansion = true
		case "--unroll":
			opts.LoopUnrolling = true
		default:
			if strings.HasPrefix(arg, "-") {
				return f, fmt.Errorf("unknown flag %s", arg)
			}
			f.files = append(f.files, arg)
		}
	}
	if f.module != "" && len(f.files) > 1 {
		return f, fmt.Errorf("--module names a single module but %d files were given", len(f.files))
	}
	return f, opts.Validate()
}

func cmdTranspile(args []string) {
	cfg := loadProject()
	opts := cfg.Options()
	flags, err := parseTranspileFlags(args, &opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.Error(err.Error()))
		os.Exit(1)
	}
	if len(flags.files) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: vbport transpile [options] <file.bas>...")
		os.Exit(1)
	}
	if flags.outDir == "" {
		flags.outDir = cfg.OutDir
	}

	if flags.watch {
		cmdTranspileWatch(cfg, opts, flags)
		return
	}

	if err := runTranspile(transpiler.New(cfg.ProjectName()), opts, flags); err != nil {
		fmt.Fprintf(os.Stderr, "\n%s\n", cli.Error(err.Error()))
		os.Exit(1)
	}
}

// runTranspile compiles every file with one compiler, so Friend members
// and definitions of earlier files are visible to later ones, and writes
// the output. It returns an error instead of exiting for watch mode.
func runTranspile(c *transpiler.Compiler, opts transpiler.Options, flags transpileFlags) error {
	failed := 0
	for _, file := range flags.files {
		source, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}

		res := c.Transpile(string(source), flags.module, opts)
		printDiagnostics(res.Diagnostics())
		if !res.Success {
			failed++
			continue
		}
		if flags.metrics {
			fmt.Fprintln(os.Stderr, cli.Muted(res.Metrics.String()))
		}

		if flags.stdout {
			fmt.Print(res.GeneratedText)
			continue
		}
		outFile, err := writeOutput(file, flags.outDir, res)
		if err != nil {
			return err
		}
		fmt.Println(cli.Success(fmt.Sprintf("Transpiled %s → %s (%s)", file, outFile, summarize(res))))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d module%s failed to transpile", failed, len(flags.files), plural(len(flags.files)))
	}
	return nil
}

// writeOutput writes <base>.js, and <base>.js.map when a source map was
// produced, into outDir or next to the source.
func writeOutput(file, outDir string, res *transpiler.Result) (string, error) {
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(file)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	outFile := filepath.Join(dir, base+".js")
	text := res.GeneratedText

	if res.SourceMap != nil {
		mapFile := outFile + ".map"
		if err := os.WriteFile(mapFile, []byte(res.SourceMap.String()), 0644); err != nil {
			return "", fmt.Errorf("writing %s: %w", mapFile, err)
		}
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		text += "//# sourceMappingURL=" + filepath.Base(mapFile) + "\n"
	}

	if err := os.WriteFile(outFile, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", outFile, err)
	}
	return outFile, nil
}

// cmdTranspileWatch polls the sources and recompiles whenever one of them
// changes. Every rebuild starts from a fresh compiler.
func cmdTranspileWatch(cfg *config.Config, opts transpiler.Options, flags transpileFlags) {
	ctx, cancel := cli.SetupSignalHandler()
	defer cancel()

	fmt.Println(cli.Info(fmt.Sprintf("Watching %s for changes... (Ctrl+C to stop)", strings.Join(flags.files, ", "))))

	var lastMod time.Time
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		if mod := latestModTime(flags.files); mod.After(lastMod) {
			lastMod = mod

			// Small debounce, editors often write multiple times
			if !sleep(ctx, 100*time.Millisecond) {
				break
			}

			now := time.Now().Format("15:04:05")
			fmt.Printf("\n%s %s\n", cli.Info(now), cli.Info("Transpiling..."))

			if err := runTranspile(transpiler.New(cfg.ProjectName()), opts, flags); err != nil {
				fmt.Fprintln(os.Stderr, cli.Error(err.Error()))
			} else {
				fmt.Println(cli.Success(fmt.Sprintf("%s Rebuilt successfully", now)))
			}
		}

		select {
		case <-ctx.Done():
			cli.Stopped(os.Stdout, "Watch")
			return
		case <-ticker.C:
		}
	}
	cli.Stopped(os.Stdout, "Watch")
}

func latestModTime(files []string) time.Time {
	var latest time.Time
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest
}

// sleep waits for d unless ctx is cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// ── check ──

func cmdCheck(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: vbport check <file.bas>...")
		os.Exit(1)
	}
	cfg := loadProject()
	opts := cfg.Options()
	opts.GenerateSourceMaps = false
	c := transpiler.New(cfg.ProjectName())

	failed := 0
	for _, file := range args {
		source, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintln(os.Stderr, cli.Error(fmt.Sprintf("Error reading %s: %v", file, err)))
			os.Exit(1)
		}

		res := c.Transpile(string(source), "", opts)
		printDiagnostics(res.Diagnostics())
		if !res.Success {
			failed++
			fmt.Fprintf(os.Stderr, "%s\n", cli.Error(fmt.Sprintf("%s: %d error(s) found", file, len(res.Errors))))
			continue
		}

		msg := fmt.Sprintf("%s is valid — %s", file, summarize(res))
		if n := len(res.Warnings); n > 0 {
			msg += fmt.Sprintf(", %d warning%s", n, plural(n))
		}
		fmt.Println(cli.Success(msg))
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// summarize describes what a compilation found.
func summarize(res *transpiler.Result) string {
	m := res.Metrics
	parts := []string{
		fmt.Sprintf("module %s", res.ModuleName),
		fmt.Sprintf("%d procedure%s", m.Procedures, plural(m.Procedures)),
	}
	if m.Declarations > 0 {
		parts = append(parts, fmt.Sprintf("%d declaration%s", m.Declarations, plural(m.Declarations)))
	}
	return strings.Join(parts, ", ")
}

// ── tokens ──

func cmdTokens(args []string) {
	file, source := readSingle(args, "tokens")

	lex := lexer.New(source)
	tokens, err := lex.Tokenize()
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.Error(fmt.Sprintf("Error in %s: %v", file, err)))
		os.Exit(1)
	}

	for _, tok := range tokens {
		if tok.Type == lexer.TOKEN_NEWLINE {
			continue
		}
		fmt.Printf("%s  %s\n", cli.Muted(fmt.Sprintf("%4d:%-3d", tok.Line, tok.Column)), tok)
	}

	lexErrs := lex.Errors()
	for _, e := range lexErrs {
		cli.Diagnostic(os.Stderr, &cerr.CompilerError{
			Message:  e.Message,
			Severity: cerr.SeverityError,
			Kind:     cerr.KindLex,
			File:     file,
			Line:     e.Line,
			Column:   e.Column,
			Code:     transpiler.CodeLex,
		})
	}
	if len(lexErrs) > 0 {
		os.Exit(1)
	}
}

// ── ast ──

func cmdAST(args []string) {
	procedures := false
	var rest []string
	for _, arg := range args {
		if arg == "--procedures" {
			procedures = true
		} else {
			rest = append(rest, arg)
		}
	}
	file, source := readSingle(rest, "ast [--procedures]")

	mod, parseErrs, err := parser.Parse(source, "")
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.Error(fmt.Sprintf("Error in %s: %v", file, err)))
		os.Exit(1)
	}
	for _, e := range parseErrs {
		cli.Diagnostic(os.Stderr, &cerr.CompilerError{
			Message:  e.Message,
			Severity: cerr.SeverityError,
			Kind:     cerr.KindParse,
			File:     file,
			Line:     e.Line,
			Column:   e.Column,
			Code:     transpiler.CodeParse,
		})
	}

	var data []byte
	if procedures {
		data, err = json.MarshalIndent(mod.Annotate(), "", "  ")
	} else {
		data, err = ast.ToJSON(mod)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.Error(err.Error()))
		os.Exit(1)
	}
	fmt.Println(string(data))
	if len(parseErrs) > 0 {
		os.Exit(1)
	}
}

func readSingle(args []string, cmd string) (string, string) {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: vbport %s <file.bas>\n", cmd)
		os.Exit(1)
	}
	file := args[0]
	source, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.Error(fmt.Sprintf("Error reading %s: %v", file, err)))
		os.Exit(1)
	}
	return file, string(source)
}

// ── init ──

func cmdInit(args []string) {
	root := "."
	name := ""
	if len(args) >= 1 && !strings.HasPrefix(args[0], "-") {
		root, name = args[0], args[0]
		if err := os.MkdirAll(root, 0755); err != nil {
			fmt.Fprintln(os.Stderr, cli.Error(fmt.Sprintf("Could not create directory %s: %v", root, err)))
			os.Exit(1)
		}
	} else {
		dir, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, cli.Error("Could not determine current directory"))
			os.Exit(1)
		}
		name = dir
	}

	scanner := bufio.NewScanner(os.Stdin)

	project := prompt(scanner, "Project", nil, identifier(filepath.Base(name)))
	target := prompt(scanner, "Target", []string{"browser", "server", "universal"}, string(codegen.TargetBrowser))
	optimize := prompt(scanner, "Optimize", []string{"yes", "no"}, "yes")

	if _, err := codegen.ParseTarget(target); err != nil {
		fmt.Fprintln(os.Stderr, cli.Error(err.Error()))
		os.Exit(1)
	}

	cfg := &config.Config{
		Project: project,
		OutDir:  "js",
		Runtime: version.RuntimeVersion,
		Compiler: &config.CompilerOptions{
			TargetRuntime:       target,
			EnableOptimizations: config.Bool(strings.EqualFold(optimize, "yes")),
		},
	}
	if err := config.Save(root, cfg); err != nil {
		fmt.Fprintln(os.Stderr, cli.Error(err.Error()))
		os.Exit(1)
	}

	outPath := filepath.Join(root, "Module1.bas")
	if _, err := os.Stat(outPath); err == nil {
		fmt.Println(cli.Warn(fmt.Sprintf("%s already exists, leaving it untouched", outPath)))
	} else if err := os.WriteFile(outPath, []byte(sampleModule), 0644); err != nil {
		fmt.Fprintln(os.Stderr, cli.Error(fmt.Sprintf("Could not write %s: %v", outPath, err)))
		os.Exit(1)
	}

	fmt.Println(cli.Success(fmt.Sprintf("Created project %s — run 'vbport check %s' to validate, 'vbport transpile %s' to compile", project, outPath, outPath)))
}

// prompt asks the user to choose from options with a default. Nil options
// accept any answer.
func prompt(scanner *bufio.Scanner, label string, options []string, defaultVal string) string {
	if len(options) > 0 {
		fmt.Printf("%s (%s) [%s]: ", cli.Prompt(label), strings.Join(options, "/"), defaultVal)
	} else {
		fmt.Printf("%s [%s]: ", cli.Prompt(label), defaultVal)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			// Match case-insensitively against options
			for _, opt := range options {
				if strings.EqualFold(input, opt) {
					return opt
				}
			}
			return input
		}
	}
	return defaultVal
}

// identifier turns a directory name into a usable project name.
func identifier(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if b.Len() == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return transpiler.DefaultProject
	}
	return b.String()
}

const sampleModule = `Attribute VB_Name = "Module1"
Option Explicit

Private Type Item
    Name As String * 20
    Price As Currency
End Type

Public Enum Status
    stOpen
    stClosed = 5
End Enum

Public Function Total(ByVal qty As Integer, ByVal price As Currency) As Currency
    Total = qty * price
End Function

Public Sub Main()
    Dim it As Item
    it.Name = "Widget"
    it.Price = 2.5
    MsgBox it.Name & ": " & Total(4, it.Price)
End Sub
`

// ── helpers ──

func printDiagnostics(errs *cerr.CompilerErrors) {
	for _, e := range errs.All() {
		cli.Diagnostic(os.Stderr, e)
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func printUsage() {
	fmt.Print(`vbport — Visual Basic 6 modules in, JavaScript out.

Usage:
  vbport <command> [options] [file]

Commands:
  transpile <file>...       Transpile modules to .js (and .js.map)
  check <file>...           Validate modules and report diagnostics
  tokens <file>             Print the token stream
  ast <file>                Print the syntax tree as JSON
  ast --procedures <file>   Print per-procedure identifiers and complexity
  repl                      Transpile statements interactively
  init [name]               Create .vbport/config.json and a sample module
  version                   Print the compiler version

Transpile options:
  -o, --out <dir>           Output directory (default: next to the source)
  -m, --module <name>       Module name (default: VB_Name attribute)
  --target <runtime>        browser, server or universal
  --passes <n>              Maximum optimization passes
  --no-optimize             Disable the optimizer
  --inline, --unroll        Enable inline expansion or loop unrolling
  --no-source-map           Skip the .js.map file
  --no-strict               Omit "use strict"
  --no-comments             Drop source comments
  --types                   Emit JSDoc type annotations
  --stdout                  Print JavaScript instead of writing files
  --metrics                 Print phase timings and counters
  -w, --watch               Transpile again whenever a source changes

Flags:
  --no-color        Disable colored output
  --version, -v     Print the compiler version
  --help, -h        Show this help message
`)
}
