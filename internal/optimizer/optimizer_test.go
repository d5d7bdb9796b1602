package optimizer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/barun-bash/vbport/internal/ast"
	"github.com/barun-bash/vbport/internal/parser"
)

func mustParse(t *testing.T, source string) *ast.Module {
	t.Helper()
	mod, errs, err := parser.Parse(source, "Module1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	return mod
}

func mustJSON(t *testing.T, mod *ast.Module) []byte {
	t.Helper()
	data, err := ast.ToJSON(mod)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	return data
}

// kinds lists the statement types of a body, e.g. "Assign Exit Label".
func kinds(body []ast.Stmt) string {
	var parts []string
	for _, s := range body {
		name := strings.TrimPrefix(fmt.Sprintf("%T", s), "*ast.")
		parts = append(parts, strings.TrimSuffix(name, "Stmt"))
	}
	return strings.Join(parts, " ")
}

func allPasses() Config {
	cfg := DefaultConfig()
	cfg.Inline = true
	cfg.LoopUnrolling = true
	return cfg
}

// ── Constant folding ──

func TestConstantFolding(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{`"a" & "b"`, `"ab"`},
		{`"Item " & 5`, `"Item 5"`},
		{`"a" + "b"`, `"ab"`},
		{"1 + 2 * 3", "7"},
		{"10 / 4", "2.5"},
		{`7 \ 2`, "3"},
		{"7 Mod 3", "1"},
		{"-7 Mod 3", "-1"},
		{"5.5 Mod 2", "5.5 Mod 2"},
		{"7 Mod 2.5", "7 Mod 2.5"},
		{"2 ^ 10", "1024"},
		{"-(2 + 3)", "-5"},
		{"1.5 + 1", "2.5"},
		{"3 < 4", "True"},
		{"Not True", "False"},
		{"True And False", "False"},
		{"True Xor False", "True"},
		{`"A" = "a"`, "False"},
		{"1 + 2 + x", "3 + x"},
		// Left alone.
		{"x + 1 + 2", "(x + 1) + 2"},
		{"1 / 0", "1 / 0"},
		{`5 \ 0`, `5 \ 0`},
		{`"a" < "b"`, `"a" < "b"`},
		{"True & 1", "True & 1"},
		{"Len(1 + 1)", "Len(2)"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			mod := mustParse(t, "Sub T()\nx = "+tt.expr+"\nEnd Sub\n")
			out, _ := ConstantFolding{}.Apply(mod)
			got := ast.ExprString(out.Procedures[0].Body[0].(*ast.AssignStmt).Value)
			if got != tt.want {
				t.Errorf("fold(%s) = %s, want %s", tt.expr, got, tt.want)
			}
		})
	}
}

func TestFoldingRespectsCompareText(t *testing.T) {
	mod := mustParse(t, "Option Compare Text\nSub T()\nx = \"A\" = \"a\"\nEnd Sub\n")
	out, changed := ConstantFolding{}.Apply(mod)
	if changed || out != mod {
		t.Errorf("expected text comparison to be left alone, got %s",
			ast.ExprString(out.Procedures[0].Body[0].(*ast.AssignStmt).Value))
	}
}

// ── Dead code ──

func TestDeadCodeAfterExit(t *testing.T) {
	mod := mustParse(t, `Sub T()
    x = 1
    Exit Sub
    x = 2
    ' handler follows
    x = 3
Cleanup:
    x = 4
End Sub
`)
	out, changed := DeadCode{}.Apply(mod)
	if !changed {
		t.Fatal("expected a change")
	}
	if got, want := kinds(out.Procedures[0].Body), "Assign Exit Comment Label Assign"; got != want {
		t.Errorf("body = %s, want %s", got, want)
	}
}

func TestDeadCodeTerminators(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"goto", "GoTo Done\nx = 1\nDone:\nx = 2", "GoTo Label Assign"},
		{"end", "End\nx = 1", "End"},
		{"resume", "Resume Next\nx = 1", "Resume"},
		{"exit for", "For i = 1 To 3\nExit For\nx = 1\nNext", "For"},
		{"nested if", "If y Then\nExit Sub\nx = 1\nEnd If\nx = 2", "If Assign"},
		{"if true", "If True Then\nx = 1\nElse\nx = 2\nEnd If", "Assign"},
		{"if false", "If False Then\nx = 1\nElse\nx = 2\ny = 3\nEnd If", "Assign Assign"},
		{"if false no else", "If False Then\nx = 1\nEnd If\ny = 2", "Assign"},
		{"spliced exit", "If True Then\nExit Sub\nEnd If\nx = 1", "Exit"},
		{"while false", "While False\nx = 1\nWend", ""},
		{"do until true", "Do Until True\nx = 1\nLoop", ""},
		{"post-test kept", "Do\nx = 1\nLoop While False", "Do"},
		{"label keeps branch", "If False Then\nL:\nx = 1\nEnd If", "If"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := mustParse(t, "Sub T()\n"+tt.body+"\nEnd Sub\n")
			out, _ := DeadCode{}.Apply(mod)
			if got := kinds(out.Procedures[0].Body); got != tt.want {
				t.Errorf("body = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeadCodeKeepsDeclarations(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"after goto", "GoTo Start\nDim s As String * 5\nStatic n As Integer\nConst K = 2\nx = 1\nStart:\ns = \"ab\"", "GoTo Dim Dim Const Label Assign"},
		{"inside dead block", "Exit Sub\nIf y Then\nDim t As Long\nt = 1\nEnd If", "Exit Dim"},
		{"if false branch", "If False Then\nDim u As Long\nu = 1\nElse\nx = 2\nEnd If", "Dim Assign"},
		{"while false", "While False\nStatic w As Long\nWend", "Dim"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := mustParse(t, "Sub T()\n"+tt.body+"\nEnd Sub\n")
			out, _ := DeadCode{}.Apply(mod)
			if got := kinds(out.Procedures[0].Body); got != tt.want {
				t.Errorf("body = %q, want %q", got, tt.want)
			}

			// A second run finds nothing left to remove.
			if again, changed := (DeadCode{}).Apply(out); changed || again != out {
				t.Errorf("second pass changed %q", kinds(again.Procedures[0].Body))
			}
		})
	}
}

func TestDeadCodeElseIfPromotion(t *testing.T) {
	mod := mustParse(t, `Sub T()
    If False Then
        x = 1
    ElseIf y > 1 Then
        x = 2
    ElseIf False Then
        x = 3
    Else
        x = 4
    End If
End Sub
`)
	out, _ := DeadCode{}.Apply(mod)
	body := out.Procedures[0].Body
	if len(body) != 1 {
		t.Fatalf("expected 1 statement, got %s", kinds(body))
	}
	s := body[0].(*ast.IfStmt)
	if got := ast.ExprString(s.Cond); got != "y > 1" {
		t.Errorf("cond = %s", got)
	}
	if len(s.ElseIfs) != 0 || len(s.Else) != 1 {
		t.Errorf("expected the False arm dropped, got %d ElseIfs and %d Else statements", len(s.ElseIfs), len(s.Else))
	}
}

// ── Inlining ──

const inlineSource = `Option Explicit
Private mTotal As Long

Private Sub Bump(ByVal n As Long)
    mTotal = mTotal + n
End Sub

Public Sub Run()
    Bump 5
End Sub
`

func TestInline(t *testing.T) {
	mod := mustParse(t, inlineSource)
	out, changed := Inliner{MaxStmts: 5}.Apply(mod)
	if !changed {
		t.Fatal("expected Bump to be inlined")
	}
	run := out.Procedure("Run", ast.ProcSub)
	if got := kinds(run.Body); got != "Assign" {
		t.Fatalf("Run body = %s", got)
	}
	if got := ast.ExprString(run.Body[0].(*ast.AssignStmt).Value); got != "mTotal + 5" {
		t.Errorf("inlined value = %s", got)
	}
	if out.Procedure("Bump", ast.ProcSub) == nil {
		t.Error("callee must be kept")
	}
	if _, ok := mod.Procedure("Run", ast.ProcSub).Body[0].(*ast.CallStmt); !ok {
		t.Error("input was modified")
	}
}

func TestInlineRefusals(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"two call sites", strings.Replace(inlineSource, "Bump 5", "Bump 5\n    Bump 6", 1)},
		{"public callee", strings.Replace(inlineSource, "Private Sub Bump", "Public Sub Bump", 1)},
		{"by reference", strings.Replace(inlineSource, "ByVal n", "n", 1)},
		{"variable argument", strings.Replace(inlineSource, "Bump 5", "Bump mTotal", 1)},
		{"error handler", strings.Replace(inlineSource, "    Bump 5", "    On Error Resume Next\n    Bump 5", 1)},
		{"local shadows", strings.Replace(inlineSource, "    Bump 5", "    Dim mTotal As Long\n    Bump 5", 1)},
		{"declares", strings.Replace(inlineSource, "    mTotal = mTotal + n", "    Dim t As Long\n    mTotal = mTotal + n", 1)},
		{"assigns local", strings.Replace(inlineSource, "mTotal = mTotal + n", "other = n", 1)},
		{"exits", strings.Replace(inlineSource, "    mTotal = mTotal + n", "    Exit Sub", 1)},
		{"too large", strings.Replace(inlineSource, "    mTotal = mTotal + n", strings.Repeat("    mTotal = mTotal + n\n", 6), 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := mustParse(t, tt.source)
			out, changed := Inliner{MaxStmts: 5}.Apply(mod)
			if changed || out != mod {
				t.Errorf("expected no inlining, Run body = %s", kinds(out.Procedure("Run", ast.ProcSub).Body))
			}
		})
	}
}

// ── Loop unrolling ──

func TestLoopUnroll(t *testing.T) {
	mod := mustParse(t, `Sub T()
    For i = 1 To 3
        total = total + i
    Next i
End Sub
`)
	out, changed := LoopUnroller{MaxTrips: 8, MaxStmts: 32}.Apply(mod)
	if !changed {
		t.Fatal("expected the loop to be unrolled")
	}
	body := out.Procedures[0].Body
	if got, want := kinds(body), "Assign Assign Assign Assign Assign Assign Assign"; got != want {
		t.Fatalf("body = %s", got)
	}
	var counter []string
	for i := 0; i < len(body); i += 2 {
		counter = append(counter, ast.ExprString(body[i].(*ast.AssignStmt).Value))
	}
	if got := strings.Join(counter, ","); got != "1,2,3,4" {
		t.Errorf("counter values = %s, want 1,2,3,4", got)
	}
}

func TestLoopUnrollDownward(t *testing.T) {
	mod := mustParse(t, "Sub T()\nFor i = 6 To 1 Step -2\nShow i\nNext\nEnd Sub\n")

	// The negative step is only a literal once folded.
	out, stats := New(allPasses()).Optimize(mod)
	if stats.Changes["loop-unroll"] != 1 {
		t.Fatalf("expected one unroll, stats %+v", stats)
	}
	body := out.Procedures[0].Body
	if len(body) != 7 {
		t.Fatalf("body = %s", kinds(body))
	}
	if got := ast.ExprString(body[6].(*ast.AssignStmt).Value); got != "0" {
		t.Errorf("final counter = %s, want 0", got)
	}
}

func TestLoopUnrollRefusals(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"assigns counter", "For i = 1 To 3\ni = i + 1\nNext"},
		{"exit for", "For i = 1 To 3\nIf i = 2 Then Exit For\nNext"},
		{"declares", "For i = 1 To 3\nDim t As Long\nNext"},
		{"too many trips", "For i = 1 To 100\nx = i\nNext"},
		{"zero trips", "For i = 3 To 1\nx = i\nNext"},
		{"variable bound", "For i = 1 To n\nx = i\nNext"},
		{"by reference", "For i = 1 To 3\nTouch i\nNext"},
		{"method call", "For i = 1 To 3\nobj.Touch i\nNext"},
		{"label", "For i = 1 To 3\nL:\nx = i\nNext"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "Sub T()\n" + tt.body + "\nEnd Sub\nSub Touch(v As Long)\nEnd Sub\n"
			mod := mustParse(t, src)
			out, changed := LoopUnroller{MaxTrips: 8, MaxStmts: 32}.Apply(mod)
			if changed || out != mod {
				t.Errorf("expected loop kept, got %s", kinds(out.Procedures[0].Body))
			}
		})
	}
}

func TestLoopUnrollArrayRead(t *testing.T) {
	mod := mustParse(t, "Sub T()\nFor i = 0 To 1\ntotal = total + a(i)\nNext\nEnd Sub\n")
	if _, changed := (LoopUnroller{MaxTrips: 8, MaxStmts: 32}).Apply(mod); !changed {
		t.Error("array reads must not block unrolling")
	}
}

// ── Pipeline ──

const pipelineSource = `Option Explicit
Private mCount As Long

Private Sub ResetCount()
    mCount = 0
End Sub

Public Function Caption() As String
    Caption = "Item" & " " & (2 + 3)
    Exit Function
    Caption = "unreachable"
End Function

Public Sub Run()
    Dim i As Long
    ResetCount
    For i = 1 To 2
        mCount = mCount + i * (4 - 3)
    Next i
    If 1 > 2 Then
        mCount = -1
    End If
End Sub
`

func TestOptimizeDoesNotModifyInput(t *testing.T) {
	mod := mustParse(t, pipelineSource)
	before := mustJSON(t, mod)

	out, stats := New(allPasses()).Optimize(mod)
	if stats.Total() == 0 {
		t.Fatal("expected changes")
	}
	if out == mod {
		t.Fatal("expected a new module")
	}
	if after := mustJSON(t, mod); !bytes.Equal(before, after) {
		t.Error("Optimize modified its input")
	}
}

func TestOptimizeIdempotent(t *testing.T) {
	sources := map[string]string{"pipeline": pipelineSource, "inline": inlineSource}
	if data, err := os.ReadFile(filepath.Join(repoRoot(t), "examples", "inventory", "Inventory.bas")); err == nil {
		sources["inventory"] = string(data)
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			for _, cfg := range []Config{DefaultConfig(), allPasses()} {
				opt := New(cfg)
				once, stats := opt.Optimize(mustParse(t, src))
				if !stats.Converged {
					t.Fatalf("did not converge in %d iterations", stats.Iterations)
				}
				twice, again := opt.Optimize(once)
				if again.Total() != 0 || again.Iterations != 1 {
					t.Errorf("second run changed the module: %+v", again)
				}
				if !bytes.Equal(mustJSON(t, once), mustJSON(t, twice)) {
					t.Error("output differs after a second run")
				}
			}
		})
	}
}

func TestOptimizePipeline(t *testing.T) {
	out, _ := New(allPasses()).Optimize(mustParse(t, pipelineSource))

	caption := out.Procedure("Caption", ast.ProcFunction)
	if got := kinds(caption.Body); got != "Assign Exit" {
		t.Errorf("Caption body = %s", got)
	}
	if got := ast.ExprString(caption.Body[0].(*ast.AssignStmt).Value); got != `"Item 5"` {
		t.Errorf("Caption value = %s", got)
	}

	run := out.Procedure("Run", ast.ProcSub)
	if got, want := kinds(run.Body), "Dim Assign Assign Assign Assign Assign Assign"; got != want {
		t.Errorf("Run body = %s, want %s", got, want)
	}
}

func TestOptimizeBounded(t *testing.T) {
	cfg := allPasses()
	cfg.MaxPasses = 1
	_, stats := New(cfg).Optimize(mustParse(t, pipelineSource))
	if stats.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", stats.Iterations)
	}
	if stats.Converged {
		t.Error("one iteration that changed the module cannot be a fixpoint")
	}
}

func TestOptimizeDisabled(t *testing.T) {
	mod := mustParse(t, pipelineSource)
	opt := New(Config{MaxPasses: 3})
	if len(opt.Passes()) != 0 {
		t.Fatalf("expected no passes, got %d", len(opt.Passes()))
	}
	out, stats := opt.Optimize(mod)
	if out != mod || stats.Iterations != 0 || !stats.Converged {
		t.Errorf("expected the module back untouched, stats %+v", stats)
	}
}

func TestUnchangedProceduresAreShared(t *testing.T) {
	mod := mustParse(t, pipelineSource)
	out, _ := New(DefaultConfig()).Optimize(mod)
	if out.Procedures[0] != mod.Procedures[0] {
		t.Error("ResetCount has nothing to optimize and should be shared")
	}
	if out.Procedures[1] == mod.Procedures[1] {
		t.Error("Caption was optimized and must be a copy")
	}
}

func repoRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Skip("cannot locate test file")
	}
	return filepath.Join(filepath.Dir(file), "..", "..")
}
