package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/barun-bash/vbport/internal/cli"
	"github.com/barun-bash/vbport/internal/codegen"
	"github.com/barun-bash/vbport/internal/sourcemap"
	"github.com/barun-bash/vbport/internal/transpiler"
)

func TestParseTranspileFlags(t *testing.T) {
	opts := transpiler.DefaultOptions()
	f, err := parseTranspileFlags([]string{
		"--out", "dist", "--target", "server", "--no-optimize", "--types",
		"--passes", "5", "--metrics", "A.bas", "B.bas",
	}, &opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.outDir != "dist" || !f.metrics {
		t.Errorf("flags = %+v", f)
	}
	if len(f.files) != 2 || f.files[1] != "B.bas" {
		t.Errorf("files = %v, want [A.bas B.bas]", f.files)
	}
	if opts.TargetRuntime != codegen.TargetServer {
		t.Errorf("target = %q, want server", opts.TargetRuntime)
	}
	if opts.EnableOptimizations || !opts.GenerateTypeAnnotations || opts.MaxOptimizationPasses != 5 {
		t.Errorf("options not applied: %+v", opts)
	}
}

func TestParseTranspileFlagsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--fast", "A.bas"}},
		{"missing value", []string{"A.bas", "--out"}},
		{"bad target", []string{"--target", "dos", "A.bas"}},
		{"bad passes", []string{"--passes", "many", "A.bas"}},
		{"negative passes", []string{"--passes", "-1", "A.bas"}},
		{"module with many files", []string{"-m", "Main", "A.bas", "B.bas"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := transpiler.DefaultOptions()
			if _, err := parseTranspileFlags(tt.args, &opts); err == nil {
				t.Errorf("expected error for %v", tt.args)
			}
		})
	}
}

func TestWriteOutput(t *testing.T) {
	dir := t.TempDir()
	res := &transpiler.Result{
		GeneratedText: "var x = 1;",
		SourceMap:     sourcemap.New("Inventory.js", "Inventory.src"),
	}

	out, err := writeOutput(filepath.Join("src", "Inventory.bas"), dir, res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != filepath.Join(dir, "Inventory.js") {
		t.Errorf("output = %q", out)
	}

	js, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if want := "var x = 1;\n//# sourceMappingURL=Inventory.js.map\n"; string(js) != want {
		t.Errorf("js = %q, want %q", js, want)
	}
	if _, err := os.Stat(out + ".map"); err != nil {
		t.Errorf("source map not written: %v", err)
	}
}

func TestWriteOutputWithoutSourceMap(t *testing.T) {
	dir := t.TempDir()
	res := &transpiler.Result{GeneratedText: "var x = 1;\n"}

	out, err := writeOutput("Module1.bas", dir, res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	js, _ := os.ReadFile(out)
	if strings.Contains(string(js), "sourceMappingURL") {
		t.Errorf("unexpected source map reference in %q", js)
	}
	if _, err := os.Stat(out + ".map"); !os.IsNotExist(err) {
		t.Error("no .map file should be written")
	}
}

func TestIdentifier(t *testing.T) {
	tests := []struct{ in, want string }{
		{"billing", "billing"},
		{"my-app", "myapp"},
		{"2024 ledger", "_2024ledger"},
		{"---", transpiler.DefaultProject},
	}
	for _, tt := range tests {
		if got := identifier(tt.in); got != tt.want {
			t.Errorf("identifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSampleModuleIsValid(t *testing.T) {
	res := transpiler.Transpile(sampleModule, "", transpiler.DefaultOptions())
	if !res.Success {
		t.Fatalf("sample module failed: %v", res.Errors)
	}
	if res.ModuleName != "Module1" {
		t.Errorf("module = %q, want Module1", res.ModuleName)
	}
}

func TestReplEval(t *testing.T) {
	old := cli.ColorEnabled
	cli.ColorEnabled = false
	defer func() { cli.ColorEnabled = old }()

	var out bytes.Buffer
	opts := transpiler.DefaultOptions()
	opts.GenerateSourceMaps = false
	r := &repl{compiler: transpiler.New(""), opts: opts, out: &out}

	r.eval("Public Function Twice(ByVal n As Long) As Long\n    Twice = n * 2\nEnd Function")
	if !strings.Contains(out.String(), "Twice") {
		t.Errorf("procedure input not transpiled:\n%s", out.String())
	}

	out.Reset()
	r.eval("Dim total As Long\ntotal = 40 + 2")
	if !strings.Contains(out.String(), replSub) {
		t.Errorf("statements should be wrapped in %s:\n%s", replSub, out.String())
	}
}

func TestReplCommands(t *testing.T) {
	var out bytes.Buffer
	r := &repl{compiler: transpiler.New(""), opts: transpiler.DefaultOptions(), out: &out}

	if r.command(":optimize") {
		t.Fatal(":optimize should not quit")
	}
	if r.opts.EnableOptimizations {
		t.Error(":optimize should toggle optimizations off")
	}
	if r.command(":nope") {
		t.Fatal("unknown command should not quit")
	}
	if !strings.Contains(out.String(), "Unknown command") {
		t.Errorf("output = %q", out.String())
	}
	if !r.command(":quit") {
		t.Error(":quit should end the session")
	}
}

func TestParsesAsModule(t *testing.T) {
	if !parsesAsModule("Private Const Rate As Double = 0.5") {
		t.Error("a declaration is module-level code")
	}
	if parsesAsModule("x = 1") {
		t.Error("an assignment is not module-level code")
	}
}
