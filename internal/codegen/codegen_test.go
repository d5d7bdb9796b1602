package codegen

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/barun-bash/vbport/internal/ast"
	"github.com/barun-bash/vbport/internal/errors"
	"github.com/barun-bash/vbport/internal/features"
	"github.com/barun-bash/vbport/internal/parser"
	"github.com/barun-bash/vbport/internal/sourcemap"
)

func mustParse(t *testing.T, source, name string) *ast.Module {
	t.Helper()
	mod, errs, err := parser.Parse(source, name)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	return mod
}

type output struct {
	code  string
	sm    *sourcemap.Map
	diags *errors.CompilerErrors
}

func generateWith(t *testing.T, source, name string, opts Options) output {
	t.Helper()
	mod := mustParse(t, source, name)
	session := features.NewSession("Project1")
	session.Process(mod)
	diags := errors.New(name + ".src")
	code, sm := New(opts, session, diags).Generate(mod)
	return output{code: code, sm: sm, diags: diags}
}

func generate(t *testing.T, source string) output {
	t.Helper()
	return generateWith(t, source, "Module1", DefaultOptions())
}

func inventorySource(t *testing.T) string {
	t.Helper()
	_, file, _, _ := runtime.Caller(0)
	path := filepath.Join(filepath.Dir(file), "..", "..", "examples", "inventory", "Inventory.bas")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading example: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, code string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(code, want) {
			t.Errorf("output does not contain %q\n--- output ---\n%s", want, code)
		}
	}
}

func assertNotContains(t *testing.T, code string, unwanted ...string) {
	t.Helper()
	for _, s := range unwanted {
		if strings.Contains(code, s) {
			t.Errorf("output unexpectedly contains %q\n--- output ---\n%s", s, code)
		}
	}
}

func warningCodes(diags *errors.CompilerErrors) []string {
	var codes []string
	for _, w := range diags.Warnings() {
		codes = append(codes, w.Code)
	}
	return codes
}

func hasWarning(diags *errors.CompilerErrors, code string) bool {
	for _, c := range warningCodes(diags) {
		if c == code {
			return true
		}
	}
	return false
}

// ── Determinism ──

func TestGenerateIsDeterministic(t *testing.T) {
	src := inventorySource(t)
	first := generateWith(t, src, "Inventory", DefaultOptions())
	for range 3 {
		again := generateWith(t, src, "Inventory", DefaultOptions())
		if again.code != first.code {
			t.Fatal("generated text differs between runs")
		}
		if again.sm.String() != first.sm.String() {
			t.Fatal("source map differs between runs")
		}
	}
}

func TestGenerateTwiceWithOneSession(t *testing.T) {
	mod := mustParse(t, inventorySource(t), "Inventory")
	session := features.NewSession("Project1")
	session.Process(mod)
	g := New(DefaultOptions(), session, nil)
	a, smA := g.Generate(mod)
	b, smB := g.Generate(mod)
	if a != b || smA.String() != smB.String() {
		t.Error("a generator must produce the same output for the same module")
	}
}

// ── Operators ──

func TestOperators(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"a And b", "a && b"},
		{"a Or b", "a || b"},
		{"Not a", "!a"},
		{"Not (a = b)", "!(a === b)"},
		{"a Mod b", "a % b"},
		{"a = b", "a === b"},
		{"a <> b", "a !== b"},
		{"a <= b", "a <= b"},
		{`s & "x"`, `s + "x"`},
		{"a & b", "VB.CStr(a) + VB.CStr(b)"},
		{`"n=" & a & s`, `"n=" + VB.CStr(a) + s`},
		{`a \ b`, "VB.IntDiv(a, b)"},
		{"a ^ 2", "Math.pow(a, 2)"},
		{"a Xor b", "VB.Xor(a, b)"},
		{"a Eqv b", "VB.Eqv(a, b)"},
		{"a Imp b", "VB.Imp(a, b)"},
		{`s Like "A*"`, `VB.Like(s, "A*")`},
		{"(a + b) * 2", "(a + b) * 2"},
		{"a + b * 2", "a + (b * 2)"},
		{"-a", "-a"},
		{"-(-a)", "-(-a)"},
		{"Len(s)", "VB.Len(s)"},
		{"Trim$(s)", "VB.Trim(s)"},
		{"Nothing", "null"},
		{"Empty", "undefined"},
		{"Null", "VB.Null"},
		{"True", "true"},
		{"1.5", "1.5"},
		{`"say ""hi"""`, `"say \"hi\""`},
		{"#1/2/2000#", `VB.CDate("1/2/2000")`},
		{"TypeOf o Is Collection", `VB.TypeOf(o, "Collection")`},
		{"o Is Nothing", "o === null"},
		{"New Collection", "new VB.Collection()"},
		{"Err.Number", "VB.Err.Number"},
		{"Array(1, 2)", "[1, 2]"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			src := "Public Function F(a As Long, b As Long, s As String, o As Object) As Variant\n" +
				"    F = " + tt.expr + "\n" +
				"End Function\n"
			out := generate(t, src)
			assertContains(t, out.code, "$result = "+tt.want+";")
		})
	}
}

func TestCompareText(t *testing.T) {
	src := `Option Compare Text
Public Function Same(a As String, b As String) As Boolean
    Same = a = b
    If a <> b Then Same = False
End Function
`
	out := generate(t, src)
	assertContains(t, out.code, "$result = VB.TextEq(a, b);", "if (!VB.TextEq(a, b)) {")
}

// ── Module layout ──

func TestTargets(t *testing.T) {
	src := "Public Sub Main()\nEnd Sub\n"
	tests := []struct {
		target Target
		wants  []string
	}{
		{TargetBrowser, []string{"const VB = globalThis.VB;", "globalThis.Module1 = Module1;"}},
		{TargetServer, []string{`const VB = require("vbport-runtime");`, "module.exports = Module1;"}},
		{TargetUniversal, []string{`typeof require === "function"`, "module.exports = Module1;", "globalThis.Module1 = Module1;"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.target), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Target = tt.target
			out := generateWith(t, src, "Module1", opts)
			assertContains(t, out.code, tt.wants...)
			assertContains(t, out.code, "const Module1 = (() => {", "Object.assign($module, { Main });")
		})
	}
}

func TestParseTarget(t *testing.T) {
	for _, s := range []string{"browser", "Server", "UNIVERSAL"} {
		if _, err := ParseTarget(s); err != nil {
			t.Errorf("ParseTarget(%q): %v", s, err)
		}
	}
	if _, err := ParseTarget("deno"); err == nil {
		t.Error("expected an error for an unknown target")
	}
}

func TestStrictMode(t *testing.T) {
	src := "Public Sub Main()\nEnd Sub\n"
	out := generate(t, src)
	if !strings.HasPrefix(out.code, `"use strict";`) {
		t.Errorf("strict output should start with the directive:\n%s", out.code)
	}
	opts := DefaultOptions()
	opts.UseStrict = false
	out = generateWith(t, src, "Module1", opts)
	assertNotContains(t, out.code, "use strict")
}

func TestModuleName(t *testing.T) {
	out := generateWith(t, "Public Sub Main()\nEnd Sub\n", "2nd module", DefaultOptions())
	assertContains(t, out.code, "const _2nd_module = (() => {")
}

// ── Inventory module ──

func TestInventory(t *testing.T) {
	out := generateWith(t, inventorySource(t), "Inventory", DefaultOptions())
	code := out.code

	t.Run("enums", func(t *testing.T) {
		assertContains(t, code,
			"const StockLevel = Object.freeze({",
			"slEmpty: 0,",
			"slLow: 10,",
			"slNormal: 11,",
			"slFull: 100\n",
			"clrYellow: 65535\n",
		)
	})
	t.Run("record type", func(t *testing.T) {
		assertContains(t, code,
			"class Item {",
			`this.$Code = VB.fixed("", 8);`,
			`this.$Name = VB.fixed("", 50);`,
			"this.Quantity = 0;",
			`this.Tags = VB.array(() => "", [0, 3]);`,
			"get Name() { return this.$Name; }",
			"set Name(v) { this.$Name = VB.fixed(v, 50); }",
		)
	})
	t.Run("module variables", func(t *testing.T) {
		assertContains(t, code,
			"const MAX_ITEMS = 100;",
			"let mItems = VB.array(() => new Item(), [0, MAX_ITEMS]);",
			"let mCount = 0;",
			`let mOwner = "";`,
			"let Ledger = null;",
		)
	})
	t.Run("static local", func(t *testing.T) {
		assertContains(t, code,
			"const GetNextID$static = { counter: 0 };",
			"GetNextID$static.counter = GetNextID$static.counter + 1;",
			"$result = GetNextID$static.counter;",
		)
		assertNotContains(t, code, "let counter")
	})
	t.Run("param array", func(t *testing.T) {
		assertContains(t, code,
			"function Sum(...values) {",
			"for (v of VB.each(values)) {",
			"total = total + v;",
		)
	})
	t.Run("optional parameters", func(t *testing.T) {
		assertContains(t, code,
			"function AddItem(code, name, quantity, price) {",
			"const quantity$missing = quantity === undefined;",
			"if (quantity$missing) quantity = 1;",
			"const price$missing = price === undefined;",
			"if (price$missing) {",
		)
		assertNotContains(t, code, "if (price$missing) price =")
	})
	t.Run("with block", func(t *testing.T) {
		assertContains(t, code,
			"const $with1 = mItems[mCount];",
			"$with1.Code = code;",
			`VB.Err.Raise(9, "Inventory", "Inventory is full");`,
			`VB.raiseEvent($module, "Restocked", [code, quantity]);`,
		)
	})
	t.Run("select case", func(t *testing.T) {
		assertContains(t, code,
			"const $sel1 = quantity;",
			"if ($sel1 === 0) {",
			"} else if (($sel1 >= 1 && $sel1 <= (StockLevel.slLow - 1))) {",
			"} else if ($sel1 >= StockLevel.slFull) {",
			"$result = StockLevel.slNormal;",
		)
	})
	t.Run("counted loop", func(t *testing.T) {
		assertContains(t, code,
			"const $to1 = mCount - 1;",
			"for (i = 0; i <= $to1; i++) {",
			"total = total + (mItems[i].Quantity * mItems[i].Price);",
		)
	})
	t.Run("property", func(t *testing.T) {
		assertContains(t, code,
			"function Owner$Get() {",
			"function Owner$Let(value) {",
			"mOwner = VB.Trim(value);",
			`Object.defineProperty($module, "Owner", { get: Owner$Get, set: Owner$Let, enumerable: true });`,
		)
	})
	t.Run("error handler", func(t *testing.T) {
		assertContains(t, code,
			"let $state = 0;",
			"let $handler = 0;",
			"$handler = 1;",
			"case 1: // Failed",
			"if ($handler === 0) throw $e;",
			`$result = VB.RTrim(mItems[index].Name) + " x" + VB.CStr(mItems[index].Quantity);`,
		)
	})
	t.Run("events", func(t *testing.T) {
		assertContains(t, code,
			"const Ledger$handlers = { Posted: Ledger_Posted };",
			`VB.Debug.Print("posted: " + entry);`,
		)
	})
	t.Run("exports", func(t *testing.T) {
		assertContains(t, code,
			"Object.assign($module, { StockLevel, Colors, Item, GetNextID, Sum, AddItem, Level, TotalValue, Describe });",
			`Object.defineProperty($module, "Ledger", {`,
		)
		assertNotContains(t, code, "Ledger_Posted, ", "mCount, ")
	})

	if len(out.diags.All()) != 0 {
		t.Errorf("unexpected diagnostics:\n%s", out.diags.Format())
	}
}

func TestSourceMapPointsAtStatements(t *testing.T) {
	src := inventorySource(t)
	out := generateWith(t, src, "Inventory", DefaultOptions())

	srcLine := -1
	for i, line := range strings.Split(src, "\n") {
		if strings.TrimSpace(line) == "counter = counter + 1" {
			srcLine = i
		}
	}
	genLine, genCol := -1, 0
	for i, line := range strings.Split(out.code, "\n") {
		trimmed := strings.TrimLeft(line, " ")
		if strings.HasPrefix(trimmed, "GetNextID$static.counter = ") {
			genLine, genCol = i, len(line)-len(trimmed)
		}
	}
	if srcLine < 0 || genLine < 0 {
		t.Fatalf("statement not found (source line %d, generated line %d)", srcLine, genLine)
	}
	seg, ok := out.sm.Lookup(genLine, genCol)
	if !ok {
		t.Fatalf("no mapping for generated line %d", genLine)
	}
	if seg.SrcLine != srcLine || seg.SrcColumn != 4 {
		t.Errorf("mapping = %d:%d, want %d:4", seg.SrcLine, seg.SrcColumn, srcLine)
	}
	if out.sm.File != "Inventory.js" || out.sm.Source != "Inventory.src" {
		t.Errorf("map names = %q, %q", out.sm.File, out.sm.Source)
	}
}

// ── Procedures ──

func TestFunctionResultAndRecursion(t *testing.T) {
	src := `Public Function Fact(ByVal n As Long) As Long
    If n <= 1 Then
        Fact = 1
    Else
        Fact = n * Fact(n - 1)
    End If
End Function
`
	out := generate(t, src)
	assertContains(t, out.code,
		"function Fact(n) {",
		"let $result = 0;",
		"$result = n * Fact(n - 1);",
		"return $result;",
	)
}

func TestNamedArguments(t *testing.T) {
	src := `Private Sub Show(ByVal a As Long, Optional ByVal b As Long = 2, Optional ByVal c As Long = 3)
End Sub

Public Sub Main()
    Show 1, c:=5
    Show b:=4, a:=7
    Call Show(1, , 9)
End Sub
`
	out := generate(t, src)
	assertContains(t, out.code,
		"Show(1, undefined, 5);",
		"Show(7, 4);",
		"Show(1, undefined, 9);",
	)
}

func TestIsMissingOnRequiredParameter(t *testing.T) {
	src := `Public Function F(ByVal a As Variant) As Boolean
    F = IsMissing(a)
End Function
`
	out := generate(t, src)
	assertContains(t, out.code, "$result = VB.IsMissing(a);")
}

func TestStaticProcedure(t *testing.T) {
	src := `Public Static Function Tally() As Long
    Dim n As Long
    n = n + 1
    Tally = n
End Function
`
	out := generate(t, src)
	assertContains(t, out.code,
		"const Tally$static = { n: 0 };",
		"Tally$static.n = Tally$static.n + 1;",
	)
}

func TestImplicitLocalsAreDeclared(t *testing.T) {
	src := `Public Sub Main()
    total = 1
    For k = 1 To 3
        total = total + k
    Next
End Sub
`
	out := generate(t, src)
	assertContains(t, out.code, "let total, k;", "for (k = 1; k <= 3; k++) {")
}

func TestFixedLengthLocal(t *testing.T) {
	src := `Public Sub Main()
    Dim s As String * 10
    s = "abc"
End Sub
`
	out := generate(t, src)
	assertContains(t, out.code, `let s = VB.fixed("", 10);`, `s = VB.fixed("abc", 10);`)
}

func TestTypeAnnotations(t *testing.T) {
	src := `Public Function Pad(ByVal text As String, Optional ByVal width As Long = 8, Optional flag) As String
End Function
`
	opts := DefaultOptions()
	opts.TypeAnnotations = true
	out := generateWith(t, src, "Module1", opts)
	assertContains(t, out.code,
		" * @param {string} text",
		" * @param {number} [width]",
		" * @param {*} [flag]",
		" * @returns {string}",
	)
	out = generate(t, src)
	assertNotContains(t, out.code, "@param")
}

func TestPreserveComments(t *testing.T) {
	src := `' module header
Public Sub Main()
    ' inside
    Dim x As Long
End Sub
`
	out := generate(t, src)
	assertNotContains(t, out.code, "module header", "inside")

	opts := DefaultOptions()
	opts.PreserveComments = true
	out = generateWith(t, src, "Module1", opts)
	assertContains(t, out.code, "// module header", "// inside")
}

// ── Statements ──

func TestLoops(t *testing.T) {
	src := `Public Sub Main(ByVal n As Long)
    Dim i As Long
    For i = 10 To 1 Step -2
    Next i
    For i = 1 To n Step n
    Next i
    Do While i < 5
        i = i + 1
    Loop
    Do
        i = i - 1
    Loop Until i = 0
    While i < 3
        i = i + 1
    Wend
End Sub
`
	out := generate(t, src)
	assertContains(t, out.code,
		"for (i = 10; i >= 1; i -= 2) {",
		"const $to1 = n;",
		"const $step2 = n;",
		"for (i = 1; $step2 >= 0 ? i <= $to1 : i >= $to1; i += $step2) {",
		"while (i < 5) {",
		"do {",
		"} while (!(i === 0));",
		"while (i < 3) {",
	)
}

func TestExitThroughOtherLoop(t *testing.T) {
	src := `Public Sub Main()
    Dim i As Long
    For i = 1 To 10
        Do
            If i = 5 Then Exit For
            Exit Do
        Loop
    Next i
End Sub
`
	out := generate(t, src)
	assertContains(t, out.code,
		"$loop1: for (i = 1; i <= 10; i++) {",
		"break $loop1;",
		"while (true) {",
	)
	if strings.Count(out.code, "break;") != 1 {
		t.Errorf("Exit Do should be a plain break:\n%s", out.code)
	}
}

func TestGoToAndGoSub(t *testing.T) {
	src := `Public Sub Main()
    Dim n As Long
Again:
    n = n + 1
    If n < 3 Then GoTo Again
    GoSub Report
    Exit Sub
Report:
    Debug.Print n
    Return
End Sub
`
	out := generate(t, src)
	assertContains(t, out.code,
		"const $gosub = [];",
		"$dispatch: while (true) {",
		"case 1: // Again",
		"$state = 1;",
		"continue $dispatch;",
		"$gosub.push(3);",
		"$state = 2;",
		"case 3:",
		"case 2: // Report",
		"$state = $gosub.pop();",
	)
	assertNotContains(t, out.code, "try {")
}

func TestJumpDiagnostics(t *testing.T) {
	src := `Public Sub Main(ByVal n As Long)
    If n > 0 Then
Inner:
        n = n - 1
    End If
    GoTo Inner
    GoTo Nowhere
End Sub
`
	out := generate(t, src)
	if !hasWarning(out.diags, CodeNestedLabel) {
		t.Errorf("expected %s, got %v", CodeNestedLabel, warningCodes(out.diags))
	}
	if !hasWarning(out.diags, CodeJumpTarget) {
		t.Errorf("expected %s, got %v", CodeJumpTarget, warningCodes(out.diags))
	}
	assertContains(t, out.code, "/* unsupported: GoTo Inner */", "/* unsupported: GoTo Nowhere */")
}

func TestResumeNext(t *testing.T) {
	src := `Public Sub Main()
    On Error Resume Next
    Kill2 "x"
    On Error GoTo 0
    Kill2 "y"
End Sub
`
	out := generate(t, src)
	assertContains(t, out.code,
		"try {",
		`Kill2("x");`,
		"VB.Err.Set($e);",
	)
	if strings.Count(out.code, "try {") != 1 {
		t.Errorf("only the statement before On Error GoTo 0 is guarded:\n%s", out.code)
	}
}

func TestReDim(t *testing.T) {
	src := `Public Sub Main()
    Dim a() As Long
    ReDim a(5)
    ReDim Preserve a(1 To 10)
End Sub
`
	out := generate(t, src)
	assertContains(t, out.code,
		"let a = [];",
		"a = VB.ReDim(a, false, () => 0, [0, 5]);",
		"a = VB.ReDim(a, true, () => 0, [1, 10]);",
	)
}

func TestArraysFollowOptionBase(t *testing.T) {
	src := `Option Base 1
Private mGrid(3, 1 To 2) As Double
`
	out := generate(t, src)
	assertContains(t, out.code, "let mGrid = VB.array(() => 0, [1, 3], [1, 2]);")
}

func TestWithEventsAssignment(t *testing.T) {
	src := `Private WithEvents mTimer As Ticker

Public Sub Start()
    Set mTimer = New Ticker
End Sub

Private Sub mTimer_Tick()
End Sub
`
	out := generate(t, src)
	assertContains(t, out.code,
		"const mTimer$handlers = { Tick: mTimer_Tick };",
		"mTimer = VB.bindEvents(new Ticker(), mTimer$handlers);",
	)
}

func TestPropertyAssignmentInsideModule(t *testing.T) {
	src := `Private mName As String
Private mTarget As Object

Public Property Get Name() As String
    Name = mName
End Property

Public Property Let Name(ByVal v As String)
    mName = v
End Property

Public Property Set Target(ByVal v As Object)
    Set mTarget = v
End Property

Public Sub Reset2()
    Name = "x"
    Set Target = Nothing
    Debug.Print Name
End Sub
`
	out := generate(t, src)
	assertContains(t, out.code,
		`Name$Let("x");`,
		"Target$Set(null);",
		"VB.Debug.Print(Name$Get());",
		`Object.defineProperty($module, "Target", { set: Target$Set, enumerable: true });`,
	)
}

func TestUnsupported(t *testing.T) {
	src := `Private Declare Function GetTickCount Lib "kernel32" () As Long

Public Sub Main()
    Open "data.txt" For Input As #1
    Resume Next
End Sub
`
	out := generate(t, src)
	assertContains(t, out.code,
		`/* unsupported: Declare Function GetTickCount Lib "kernel32" */`,
		"/* unsupported: Open",
		"/* unsupported: Resume Next */",
	)
	n := 0
	for _, c := range warningCodes(out.diags) {
		if c == CodeUnsupported {
			n++
		}
	}
	if n != 3 {
		t.Errorf("got %d %s warnings, want 3: %v", n, CodeUnsupported, warningCodes(out.diags))
	}
}

func TestMemberOutsideWith(t *testing.T) {
	src := `Public Sub Main()
    .Caption = "x"
    With Form1
        .Caption = "y"
    End With
End Sub
`
	out := generate(t, src)
	assertContains(t, out.code,
		`undefined.Caption /* unsupported: .Caption outside a With block */ = "x";`,
		`.Caption = "y";`,
	)

	var found []string
	for _, w := range out.diags.Warnings() {
		if w.Code == CodeUnsupported {
			found = append(found, fmt.Sprintf("%d:%s", w.Line, w.Message))
		}
	}
	if len(found) != 1 || found[0] != "2:unsupported expression: .Caption outside a With block" {
		t.Errorf("warnings = %v", found)
	}
}

func TestReservedNames(t *testing.T) {
	src := `Public Function Run(ByVal var As Long) As Long
    Run = var
End Function
`
	out := generate(t, src)
	assertContains(t, out.code, "function Run(var_) {", "$result = var_;")
}

func TestJSString(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", `"plain"`},
		{`a"b`, `"a\"b"`},
		{`back\slash`, `"back\\slash"`},
		{"line\nbreak\ttab", `"line\nbreak\ttab"`},
		{"\x01", `"\u0001"`},
		{" ", `" "`},
	}
	for _, tt := range tests {
		if got := jsString(tt.in); got != tt.want {
			t.Errorf("jsString(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLookupBuiltin(t *testing.T) {
	b, ok := LookupBuiltin("MID$")
	if !ok || b.Name != "Mid" || !b.Accepts(2) || !b.Accepts(3) || b.Accepts(4) {
		t.Errorf("Mid$ = %+v, %v", b, ok)
	}
	if b, ok := LookupBuiltin("Choose"); !ok || !b.Accepts(10) || b.Arity() != "2 or more" {
		t.Errorf("Choose = %+v, %v", b, ok)
	}
	if _, ok := LookupBuiltin("NoSuchThing"); ok {
		t.Error("unexpected builtin")
	}
}
