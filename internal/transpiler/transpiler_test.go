package transpiler

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/barun-bash/vbport/internal/analyzer"
	"github.com/barun-bash/vbport/internal/codegen"
	cerr "github.com/barun-bash/vbport/internal/errors"
	"github.com/barun-bash/vbport/internal/value"
)

func inventorySource(t *testing.T) string {
	t.Helper()
	_, file, _, _ := runtime.Caller(0)
	path := filepath.Join(filepath.Dir(file), "..", "..", "examples", "inventory", "Inventory.bas")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func mustTranspile(t *testing.T, c *Compiler, src, name string, opts Options) *Result {
	t.Helper()
	res := c.Transpile(src, name, opts)
	if !res.Success {
		t.Fatalf("transpile failed:\n%s", res.Diagnostics().Format())
	}
	return res
}

func TestDefaultOptions(t *testing.T) {
	got := DefaultOptions()
	want := Options{
		UseStrictMode:         true,
		EnableOptimizations:   true,
		DeadCodeElimination:   true,
		ConstantFolding:       true,
		GenerateSourceMaps:    true,
		TargetRuntime:         codegen.TargetBrowser,
		MaxOptimizationPasses: 3,
	}
	if got != want {
		t.Errorf("DefaultOptions() = %+v, want %+v", got, want)
	}
}

func TestTranspileInventory(t *testing.T) {
	res := mustTranspile(t, New(""), inventorySource(t), "", DefaultOptions())

	if res.ModuleName != "Inventory" {
		t.Errorf("module name = %q, want Inventory (from VB_Name)", res.ModuleName)
	}
	if len(res.Warnings) > 0 {
		t.Errorf("unexpected warnings:\n%s", res.Diagnostics().Format())
	}
	for _, want := range []string{
		`"use strict";`,
		"const Inventory = (() => {",
		"clrYellow: 65535",
		"function Sum(...values) {",
		"globalThis.Inventory = Inventory;",
	} {
		if !strings.Contains(res.GeneratedText, want) {
			t.Errorf("generated text missing %q", want)
		}
	}

	if res.SourceMap == nil {
		t.Fatal("expected a source map")
	}
	var sm struct {
		Version    int      `json:"version"`
		File       string   `json:"file"`
		SourceRoot string   `json:"sourceRoot"`
		Sources    []string `json:"sources"`
		Names      []string `json:"names"`
		Mappings   string   `json:"mappings"`
	}
	if err := json.Unmarshal([]byte(res.SourceMap.String()), &sm); err != nil {
		t.Fatalf("source map is not JSON: %v", err)
	}
	if sm.Version != 3 || sm.File != "Inventory.js" || len(sm.Sources) != 1 || sm.Sources[0] != "Inventory.src" {
		t.Errorf("source map header = %+v", sm)
	}
	if sm.Names == nil || len(sm.Names) != 0 || sm.Mappings == "" {
		t.Errorf("names = %v, mappings = %q", sm.Names, sm.Mappings)
	}
}

func TestMetrics(t *testing.T) {
	res := mustTranspile(t, New(""), inventorySource(t), "", DefaultOptions())
	m := res.Metrics

	for _, phase := range phases {
		if _, ok := m.Durations[phase]; !ok {
			t.Errorf("no duration recorded for %s", phase)
		}
	}
	if m.Tokens == 0 || m.Statements == 0 {
		t.Errorf("empty counters: %+v", m)
	}
	if m.Procedures != 9 {
		t.Errorf("procedures = %d, want 9", m.Procedures)
	}
	if m.OptimizerIterations < 1 || m.OptimizerIterations > 3 {
		t.Errorf("optimizer iterations = %d, want 1..3", m.OptimizerIterations)
	}
	if m.OutputBytes != len(res.GeneratedText) || m.SourceMappings != res.SourceMap.Len() {
		t.Errorf("output counters disagree with the result: %+v", m)
	}
	if !strings.Contains(m.String(), "procedures 9") {
		t.Errorf("report:\n%s", m.String())
	}
}

func TestDeterministic(t *testing.T) {
	src := inventorySource(t)
	a := mustTranspile(t, New(""), src, "", DefaultOptions())
	b := mustTranspile(t, New(""), src, "", DefaultOptions())
	if a.GeneratedText != b.GeneratedText {
		t.Error("two compilers produced different text")
	}
	if a.SourceMap.String() != b.SourceMap.String() {
		t.Error("two compilers produced different source maps")
	}

	c := New("")
	first := mustTranspile(t, c, src, "", DefaultOptions())
	second := mustTranspile(t, c, src, "", DefaultOptions())
	if first.GeneratedText != second.GeneratedText {
		t.Error("recompiling with one compiler changed the text")
	}
}

func TestModuleNames(t *testing.T) {
	tests := []struct {
		name, module, src, want string
	}{
		{"explicit", "Report", "Attribute VB_Name = \"Shapes\"\n", "Report"},
		{"attribute", "", "Attribute VB_Name = \"Shapes\"\n", "Shapes"},
		{"default", "", "Public Sub Run()\nEnd Sub\n", DefaultModuleName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustTranspile(t, New(""), tt.src, tt.module, DefaultOptions())
			if res.ModuleName != tt.want {
				t.Errorf("module name = %q, want %q", res.ModuleName, tt.want)
			}
			if !strings.Contains(res.GeneratedText, "const "+tt.want+" = (() => {") {
				t.Errorf("generated text does not define %s", tt.want)
			}
		})
	}
}

// ── Options ──

func TestOptimizationToggle(t *testing.T) {
	src := "Public Sub Run()\n    Dim x As Long\n    x = 1 + 2\nEnd Sub\n"

	on := mustTranspile(t, New(""), src, "Module1", DefaultOptions())
	if !strings.Contains(on.GeneratedText, "x = 3;") {
		t.Errorf("expected folded assignment:\n%s", on.GeneratedText)
	}

	opts := DefaultOptions()
	opts.EnableOptimizations = false
	off := mustTranspile(t, New(""), src, "Module1", opts)
	if !strings.Contains(off.GeneratedText, "x = 1 + 2;") {
		t.Errorf("expected unfolded assignment:\n%s", off.GeneratedText)
	}
	if _, ok := off.Metrics.Durations[PhaseOptimize]; ok {
		t.Error("optimize phase timed although disabled")
	}
}

func TestOptimizerKeepsSkippedDeclarations(t *testing.T) {
	src := `Public Sub Test()
    GoTo Start
    Dim s As String * 5
    Static n As Integer
Start:
    s = "ab"
    n = n + 1
End Sub
`
	opts := DefaultOptions()
	opts.EnableOptimizations = false
	off := mustTranspile(t, New(""), src, "Module1", opts)
	on := mustTranspile(t, New(""), src, "Module1", DefaultOptions())

	for _, want := range []string{`VB.fixed("", 5)`, "Test$static.n = Test$static.n + 1"} {
		if !strings.Contains(off.GeneratedText, want) {
			t.Fatalf("unoptimized output missing %q:\n%s", want, off.GeneratedText)
		}
		if !strings.Contains(on.GeneratedText, want) {
			t.Errorf("optimized output missing %q:\n%s", want, on.GeneratedText)
		}
	}
}

func TestModFoldingMatchesEmittedOperator(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"5.5 Mod 2", "x = 5.5 % 2;"},
		{"7 Mod 3", "x = 1;"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			src := "Public Sub Run()\n    Dim x As Double\n    x = " + tt.expr + "\nEnd Sub\n"
			on := mustTranspile(t, New(""), src, "Module1", DefaultOptions())
			if !strings.Contains(on.GeneratedText, tt.want) {
				t.Errorf("optimized output missing %q:\n%s", tt.want, on.GeneratedText)
			}
		})
	}

	// Unfolded, 5.5 Mod 2 runs as 5.5 % 2 and must keep its fraction.
	opts := DefaultOptions()
	opts.EnableOptimizations = false
	off := mustTranspile(t, New(""), "Public Sub Run()\n    Dim x As Double\n    x = 5.5 Mod 2\nEnd Sub\n", "Module1", opts)
	if !strings.Contains(off.GeneratedText, "x = 5.5 % 2;") {
		t.Errorf("unoptimized output:\n%s", off.GeneratedText)
	}
}

func TestDeeplyNestedExpressionIsAParseError(t *testing.T) {
	const depth = 200000
	src := "Public Sub Run()\n    x = " + strings.Repeat("(", depth) + "1" + strings.Repeat(")", depth) + "\nEnd Sub\n"

	res := New("").Transpile(src, "Module1", DefaultOptions())
	if res.Success {
		t.Fatal("expected failure")
	}
	e := res.Errors[0]
	if e.Code != CodeParse || !strings.Contains(e.Message, "levels deep") {
		t.Fatalf("errors = %v", res.Errors)
	}
	if !strings.Contains(res.GeneratedText, "function Run() {") {
		t.Errorf("best-effort output missing Run:\n%s", res.GeneratedText)
	}
}

func TestSourceMapsDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.GenerateSourceMaps = false
	res := mustTranspile(t, New(""), "Public Sub Run()\nEnd Sub\n", "Module1", opts)
	if res.SourceMap != nil {
		t.Error("expected no source map")
	}
}

func TestServerTarget(t *testing.T) {
	opts := DefaultOptions()
	opts.TargetRuntime = codegen.TargetServer
	opts.UseStrictMode = false
	res := mustTranspile(t, New(""), "Public Sub Run()\nEnd Sub\n", "Module1", opts)
	if !strings.Contains(res.GeneratedText, "module.exports = Module1;") {
		t.Errorf("expected CommonJS export:\n%s", res.GeneratedText)
	}
	if strings.Contains(res.GeneratedText, `"use strict";`) {
		t.Error("strict mode header emitted although disabled")
	}
}

func TestInvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.TargetRuntime = "deno"
	res := New("").Transpile("Public Sub Run()\nEnd Sub\n", "Module1", opts)
	if res.Success {
		t.Fatal("expected failure for unknown target")
	}
	if len(res.Errors) != 1 || res.Errors[0].Kind != cerr.KindFatal {
		t.Errorf("errors = %v", res.Errors)
	}
}

// ── Error handling ──

func TestFatalOnInvalidUTF8(t *testing.T) {
	res := New("").Transpile("Public Sub Run()\n\xff\xfe\nEnd Sub\n", "Module1", DefaultOptions())
	if res.Success {
		t.Fatal("expected failure")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected a single error, got %d:\n%s", len(res.Errors), res.Diagnostics().Format())
	}
	if e := res.Errors[0]; e.Kind != cerr.KindFatal || e.Code != "F900" {
		t.Errorf("error = %+v", e)
	}
	if res.GeneratedText != "" {
		t.Error("expected no output")
	}
}

func TestParseErrorsKeepValidProcedures(t *testing.T) {
	src := `Public Sub Good()
    Dim x As Long
    x = 1
End Sub

Public Sub Broken(
    x = = 2
End Sub

Public Function AlsoGood() As Long
    AlsoGood = 2
End Function
`
	res := New("").Transpile(src, "Module1", DefaultOptions())
	if res.Success {
		t.Fatal("expected failure")
	}
	if len(res.Errors) == 0 || res.Errors[0].Kind != cerr.KindParse || res.Errors[0].Code != CodeParse {
		t.Fatalf("errors = %v", res.Errors)
	}
	if res.Errors[0].File != "Module1.src" {
		t.Errorf("error file = %q", res.Errors[0].File)
	}
	for _, want := range []string{"function Good() {", "function AlsoGood() {"} {
		if !strings.Contains(res.GeneratedText, want) {
			t.Errorf("best-effort output missing %q", want)
		}
	}
}

func TestLexErrorsAreReported(t *testing.T) {
	res := New("").Transpile("Public Sub Run()\n    Dim x As Long ~\nEnd Sub\n", "Module1", DefaultOptions())
	if res.Success {
		t.Fatal("expected failure")
	}
	found := false
	for _, e := range res.Errors {
		if e.Kind == cerr.KindLex && e.Code == CodeLex && e.Line == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("no lex error on line 2:\n%s", res.Diagnostics().Format())
	}
}

func TestSemanticWarningsDoNotFail(t *testing.T) {
	src := "Option Explicit\nPublic Sub Run()\n    totl = 1\n    Open \"f\" For Input As #1\nEnd Sub\n"
	res := New("").Transpile(src, "Module1", DefaultOptions())
	if !res.Success {
		t.Fatalf("warnings must not fail the compilation:\n%s", res.Diagnostics().Format())
	}
	codes := map[string]bool{}
	for _, w := range res.Warnings {
		codes[w.Code] = true
	}
	if !codes[analyzer.CodeUnresolved] || !codes[codegen.CodeUnsupported] {
		t.Errorf("warning codes = %v", codes)
	}
}

// ── Session state ──

func TestStaticSlotPersistsAcrossCalls(t *testing.T) {
	c := New("")
	mustTranspile(t, c, inventorySource(t), "", DefaultOptions())

	statics := c.Session().Statics
	statics.SetContext("Inventory", "GetNextID")

	// Each call of GetNextID declares the slot, then increments it.
	var got []float64
	for range 3 {
		v, err := statics.Declare("counter", "Long", int64(0))
		if err != nil {
			t.Fatal(err)
		}
		next, err := value.Add(v, int64(1))
		if err != nil {
			t.Fatal(err)
		}
		if err := statics.Set("counter", next); err != nil {
			t.Fatal(err)
		}
		n, _ := value.ToNumber(next)
		got = append(got, n)
	}
	if got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("GetNextID sequence = %v, want [1 2 3]", got)
	}

	// Recompiling keeps the slot's value.
	mustTranspile(t, c, inventorySource(t), "", DefaultOptions())
	statics.SetContext("Inventory", "GetNextID")
	v, err := statics.Get("counter")
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := value.ToNumber(v); n != 3 {
		t.Errorf("counter after recompiling = %v, want 3", v)
	}
}

func TestSessionDefinitions(t *testing.T) {
	c := New("")
	mustTranspile(t, c, inventorySource(t), "", DefaultOptions())
	s := c.Session()
	s.SetContext("Inventory", "")

	colors, ok := s.Enums.Lookup("Colors")
	if !ok {
		t.Fatal("Colors not registered")
	}
	if m, _ := colors.Member("clrYellow"); m.Value != 65535 {
		t.Errorf("clrYellow = %d, want 65535", m.Value)
	}

	item, ok := s.Types.Lookup("Item")
	if !ok {
		t.Fatal("Item not registered")
	}
	rec, err := s.Types.NewRecord(item)
	if err != nil {
		t.Fatal(err)
	}
	name, err := rec.Get("Name")
	if err != nil {
		t.Fatal(err)
	}
	if n := len(name.(string)); n != 50 {
		t.Errorf("len(Name) = %d, want 50", n)
	}
}

func TestCompilersShareNothing(t *testing.T) {
	ledger := "Friend Sub Post()\nEnd Sub\n"
	caller := "Public Sub Run()\n    Ledger.Post\nEnd Sub\n"

	billing := New("Billing")
	mustTranspile(t, billing, ledger, "Ledger", DefaultOptions())

	// The same compiler, switched to another project, sees the Friend
	// member and reports the access.
	billing.Session().Project = "App"
	res := mustTranspile(t, billing, caller, "Main", DefaultOptions())
	if !hasWarning(res, analyzer.CodeFriendAccess) {
		t.Errorf("expected W304:\n%s", res.Diagnostics().Format())
	}

	// A separate compiler has no registrations.
	other := New("App")
	res = mustTranspile(t, other, caller, "Main", DefaultOptions())
	if hasWarning(res, analyzer.CodeFriendAccess) {
		t.Error("Friend registrations leaked between compilers")
	}
}

func TestReset(t *testing.T) {
	c := New("")
	mustTranspile(t, c, inventorySource(t), "", DefaultOptions())
	c.Reset()
	c.Session().SetContext("Inventory", "")
	if _, ok := c.Session().Enums.Lookup("Colors"); ok {
		t.Error("Reset kept enum definitions")
	}
	if c.Session().Statics.Len() != 0 {
		t.Error("Reset kept static slots")
	}
}

func hasWarning(res *Result, code string) bool {
	for _, w := range res.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}
