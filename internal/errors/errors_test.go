package errors

import (
	"strings"
	"testing"
)

// ── CompilerErrors ──

func TestAddAndFilter(t *testing.T) {
	ce := New("Module1.bas")
	ce.AddError("E101", "property Let requires a value type")
	ce.AddWarning("W301", "unresolved identifier")
	ce.AddErrorWithSuggestion("E102", "unknown procedure", `Did you mean "GetNextID"?`)

	if len(ce.All()) != 3 {
		t.Fatalf("expected 3 diagnostics, got %d", len(ce.All()))
	}
	if len(ce.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(ce.Errors()))
	}
	if len(ce.Warnings()) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(ce.Warnings()))
	}
}

func TestHasErrorsAndWarnings(t *testing.T) {
	ce := New("Module1.bas")

	if ce.HasErrors() || ce.HasWarnings() {
		t.Fatal("expected an empty collection")
	}

	ce.AddWarning("W301", "something unresolved")
	if ce.HasErrors() {
		t.Fatal("expected no errors after adding only a warning")
	}
	if !ce.HasWarnings() {
		t.Fatal("expected HasWarnings to be true")
	}

	ce.AddErrorAt(KindParse, "P201", 3, 7, "unexpected token")
	if !ce.HasErrors() {
		t.Fatal("expected HasErrors to be true")
	}
	if ce.HasFatal() {
		t.Fatal("a parse error is not fatal")
	}
}

func TestFatal(t *testing.T) {
	ce := New("Module1.bas")
	ce.AddFatal("source is not valid UTF-8")
	if !ce.HasFatal() {
		t.Fatal("expected HasFatal")
	}
	got := ce.OfKind(KindFatal)
	if len(got) != 1 || got[0].Code != "F900" {
		t.Fatalf("unexpected fatal diagnostics: %+v", got)
	}
}

func TestDefaultFile(t *testing.T) {
	ce := New("test.bas")
	ce.AddError("E101", "test error")

	if f := ce.Errors()[0].File; f != "test.bas" {
		t.Fatalf("expected file 'test.bas', got %q", f)
	}
}

func TestAddWithExplicitFile(t *testing.T) {
	ce := New("default.bas")
	ce.Add(&CompilerError{
		Code:     "E101",
		Message:  "specific file error",
		Severity: SeverityError,
		File:     "other.bas",
	})

	if f := ce.Errors()[0].File; f != "other.bas" {
		t.Fatalf("expected file 'other.bas', got %q", f)
	}
}

func TestSetFile(t *testing.T) {
	ce := New("")
	ce.AddWarningAt("W302", 3, 1, "before")
	ce.Add(&CompilerError{Code: "W301", Message: "pinned", Severity: SeverityWarning, File: "other.src"})
	ce.SetFile("Shapes.src")
	ce.AddWarningAt("W302", 4, 1, "after")

	want := []string{"Shapes.src", "other.src", "Shapes.src"}
	for i, e := range ce.All() {
		if e.File != want[i] {
			t.Errorf("diagnostic %d file = %q, want %q", i, e.File, want[i])
		}
	}
}

// ── Format ──

func TestCompilerErrorFormat(t *testing.T) {
	e := &CompilerError{
		Code:    "P201",
		Message: "expected 'Then'",
		File:    "Module1.bas",
		Line:    12,
		Column:  4,
	}
	got := e.Format()
	for _, want := range []string{"Module1.bas:12:4", "[P201]", "expected 'Then'"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
}

func TestCompilerErrorFormatLineOnly(t *testing.T) {
	e := &CompilerError{Message: "oops", Line: 5}
	if got := e.Format(); !strings.HasPrefix(got, "line 5") {
		t.Errorf("expected line prefix, got %q", got)
	}
}

func TestCompilerErrorsFormat(t *testing.T) {
	ce := New("Module1.bas")
	ce.AddErrorWithSuggestion("E101", `call to "GetNextId2" cannot be resolved`, `Did you mean "GetNextID"?`)
	ce.AddWarning("W302", `statement "Open" is not supported`)

	out := ce.Format()
	for _, want := range []string{"✗", "⚠", "suggestion:", `Did you mean "GetNextID"?`, "[E101]", "[W302]"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		KindLex:      "LexError",
		KindParse:    "ParseError",
		KindSemantic: "SemanticWarning",
		KindFatal:    "FatalError",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(k), got, want)
		}
	}
}

// ── Levenshtein ──

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "xyz", 3},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"Total", "Totall", 1},
		{"Mid", "Mdi", 1}, // transposition counts once
	}

	for _, tc := range tests {
		if got := levenshtein(tc.a, tc.b); got != tc.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

// ── Similarity ──

func TestSimilarity(t *testing.T) {
	if s := Similarity("Counter", "counter"); s != 1.0 {
		t.Errorf("expected 1.0 for case-insensitive identical, got %f", s)
	}
	if s := Similarity("", ""); s != 1.0 {
		t.Errorf("expected 1.0 for both empty, got %f", s)
	}
	if s := Similarity("Counter", "Countr"); s < 0.7 {
		t.Errorf("expected high similarity, got %f", s)
	}
	if s := Similarity("abc", "xyz"); s > 0.1 {
		t.Errorf("expected low similarity, got %f", s)
	}
}

// ── FindClosest ──

func TestFindClosest(t *testing.T) {
	candidates := []string{"GetNextID", "Counter", "UCase", "LCase"}

	if got := FindClosest("GetNextId2", candidates, 0.6); got != "GetNextID" {
		t.Errorf("FindClosest(GetNextId2) = %q", got)
	}
	if got := FindClosest("Countre", candidates, 0.6); got != "Counter" {
		t.Errorf("FindClosest(Countre) = %q", got)
	}
	if got := FindClosest("Zzzzzzzzz", candidates, 0.6); got != "" {
		t.Errorf("FindClosest(Zzzzzzzzz) = %q, want empty", got)
	}
	if got := FindClosest("anything", nil, 0.6); got != "" {
		t.Errorf("FindClosest on empty candidates = %q, want empty", got)
	}
}
