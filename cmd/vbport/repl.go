package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/barun-bash/vbport/internal/cli"
	"github.com/barun-bash/vbport/internal/parser"
	"github.com/barun-bash/vbport/internal/transpiler"
)

const (
	historyFile = ".vbport/history"
	promptMain  = "vb> "
	promptCont  = "..> "
	replModule  = "Repl"
	replSub     = "Immediate"
)

// repl holds one interactive session. Every input is compiled by the same
// compiler, so types, enums, constants and static slots declared earlier
// stay visible.
type repl struct {
	compiler *transpiler.Compiler
	opts     transpiler.Options
	out      io.Writer
}

func cmdRepl(args []string) int {
	if len(args) > 0 {
		fmt.Fprintln(os.Stderr, "Usage: vbport repl")
		return 1
	}
	cfg := loadProject()
	opts := cfg.Options()
	opts.GenerateSourceMaps = false
	opts.UseStrictMode = false
	r := &repl{compiler: transpiler.New(cfg.ProjectName()), opts: opts, out: os.Stdout}

	fmt.Println(cli.Heading("vbport REPL"))
	fmt.Println(cli.Muted("Enter declarations, procedures or statements. :help lists commands."))

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if err := os.MkdirAll(filepath.Dir(histPath), 0755); err != nil {
			return
		}
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	for {
		code, ok := readByParseProbe(ln, cli.Prompt(promptMain), cli.Prompt(promptCont))
		if !ok {
			fmt.Println()
			break
		}
		if strings.TrimSpace(code) == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		if strings.HasPrefix(strings.TrimSpace(code), ":") {
			if quit := r.command(strings.TrimSpace(code)); quit {
				return 0
			}
			continue
		}
		r.eval(code)
	}

	return 0
}

// readByParseProbe keeps reading continuation lines while the input ends
// inside an open block or on a line continuation.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			// Ctrl+C discards the pending input.
			return "", true
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") || !parser.IsIncomplete(src) {
			return src, true
		}
	}
}

// command runs a colon command and reports whether the session should end.
func (r *repl) command(cmd string) bool {
	fields := strings.Fields(strings.ToLower(cmd))
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true
	case ":reset":
		r.compiler.Reset()
		fmt.Fprintln(r.out, cli.Info("Session cleared."))
	case ":optimize":
		r.opts.EnableOptimizations = !r.opts.EnableOptimizations
		fmt.Fprintln(r.out, cli.Info(fmt.Sprintf("Optimizations %s.", onOff(r.opts.EnableOptimizations))))
	case ":types":
		r.opts.GenerateTypeAnnotations = !r.opts.GenerateTypeAnnotations
		fmt.Fprintln(r.out, cli.Info(fmt.Sprintf("Type annotations %s.", onOff(r.opts.GenerateTypeAnnotations))))
	case ":help":
		fmt.Fprintln(r.out, `Commands:
  :optimize   Toggle the optimizer
  :types      Toggle JSDoc type annotations
  :reset      Forget earlier declarations and static slots
  :quit       Leave the REPL`)
	default:
		fmt.Fprintln(r.out, cli.Warn(fmt.Sprintf("Unknown command %s. Type :help for a list.", fields[0])))
	}
	return false
}

// eval transpiles one input. Input that does not parse as module-level
// code is retried as the body of a procedure.
func (r *repl) eval(code string) {
	src := code
	if !parsesAsModule(code) {
		src = wrapStatements(code)
	}

	res := r.compiler.Transpile(src, replModule, r.opts)
	for _, e := range res.Diagnostics().All() {
		cli.Diagnostic(r.out, e)
	}
	if res.Success {
		fmt.Fprint(r.out, res.GeneratedText)
	}
}

func parsesAsModule(code string) bool {
	_, errs, err := parser.Parse(code, replModule)
	return err == nil && len(errs) == 0
}

func wrapStatements(code string) string {
	return "Public Sub " + replSub + "()\n" + code + "\nEnd Sub\n"
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
