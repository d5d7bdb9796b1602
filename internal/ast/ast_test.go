package ast_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/barun-bash/vbport/internal/ast"
	"github.com/barun-bash/vbport/internal/parser"
)

const shapes = `Attribute VB_Name = "Shapes"
Private mArea As Double

Public Function Classify(ByVal n As Long) As String
    If n < 0 Then
        Classify = "neg"
    ElseIf n = 0 Then
        Classify = "zero"
    Else
        Classify = "pos"
    End If
End Function

Public Property Get Area() As Double
    Area = mArea
End Property

Public Sub Accumulate()
    Dim i As Long
    For i = 1 To 3
        If i > 1 And i < 3 Then mArea = mArea + i
    Next i
End Sub
`

func mustParse(t *testing.T, src string) *ast.Module {
	t.Helper()
	mod, errs, err := parser.Parse(src, "")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs[0].Message)
	}
	return mod
}

func TestAnnotate(t *testing.T) {
	mod := mustParse(t, shapes)
	infos := mod.Annotate()
	if len(infos) != 3 {
		t.Fatalf("expected 3 procedures, got %d", len(infos))
	}

	tests := []struct {
		id         string
		kind       string
		complexity int
	}{
		{"Shapes.Classify", "Function", 3},
		{"Shapes.Area[Get]", "Property Get", 1},
		{"Shapes.Accumulate", "Sub", 4},
	}
	for i, tt := range tests {
		got := infos[i]
		if got.ID != tt.id {
			t.Errorf("procedure %d: id = %q, want %q", i, got.ID, tt.id)
		}
		if got.Kind != tt.kind {
			t.Errorf("%s: kind = %q, want %q", tt.id, got.Kind, tt.kind)
		}
		if got.Complexity != tt.complexity {
			t.Errorf("%s: complexity = %d, want %d", tt.id, got.Complexity, tt.complexity)
		}
		if got.Line == 0 || got.EndLine < got.Line {
			t.Errorf("%s: lines %d-%d", tt.id, got.Line, got.EndLine)
		}
	}
	if infos[0].Statements != 4 {
		t.Errorf("Classify statements = %d, want 4", infos[0].Statements)
	}
}

func TestProcedureIDIgnoresPosition(t *testing.T) {
	a := mustParse(t, shapes)
	b := mustParse(t, "Attribute VB_Name = \"Shapes\"\n\n\n"+strings.SplitN(shapes, "\n", 2)[1])

	pa := a.Procedure("Classify", ast.ProcFunction)
	pb := b.Procedure("Classify", ast.ProcFunction)
	if pa == nil || pb == nil {
		t.Fatal("Classify not found")
	}
	if pa.Line == pb.Line {
		t.Fatal("test source should move the procedure")
	}
	if a.ProcedureID(pa) != b.ProcedureID(pb) {
		t.Errorf("ids differ: %q vs %q", a.ProcedureID(pa), b.ProcedureID(pb))
	}
}

func TestInspectSkipsChildren(t *testing.T) {
	mod := mustParse(t, shapes)

	idents := 0
	ast.Inspect(mod, func(n ast.Node) bool {
		if _, ok := n.(*ast.IfStmt); ok {
			return false
		}
		if _, ok := n.(*ast.Identifier); ok {
			idents++
		}
		return true
	})

	all := 0
	ast.Inspect(mod, func(n ast.Node) bool {
		if _, ok := n.(*ast.Identifier); ok {
			all++
		}
		return true
	})
	if idents == 0 || idents >= all {
		t.Errorf("pruned walk saw %d identifiers, full walk %d", idents, all)
	}
}

func TestToJSON(t *testing.T) {
	mod := mustParse(t, shapes)
	data, err := ast.ToJSON(mod)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"node": "IfStmt"`, `"node": "ForStmt"`, `"name": "Classify"`, `"kind": "Property Get"`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON missing %s", want)
		}
	}
}
