package lexer

import (
	"testing"
)

// helper to tokenize and assert no fatal error
func mustTokenize(t *testing.T, source string) []Token {
	t.Helper()
	l := New(source)
	tokens, err := l.Tokenize()
	if err != nil {
		t.Fatalf("unexpected lexer error: %v", err)
	}
	return tokens
}

// helper to check token type at index
func expectToken(t *testing.T, tokens []Token, index int, expectedType TokenType, expectedLiteral string) {
	t.Helper()
	if index >= len(tokens) {
		t.Fatalf("token index %d out of range (have %d tokens)", index, len(tokens))
	}
	tok := tokens[index]
	if tok.Type != expectedType {
		t.Errorf("token[%d]: expected type %s, got %s (literal=%q)", index, expectedType, tok.Type, tok.Literal)
	}
	if expectedLiteral != "" && tok.Literal != expectedLiteral {
		t.Errorf("token[%d]: expected literal %q, got %q", index, expectedLiteral, tok.Literal)
	}
}

func types(tokens []Token) []TokenType {
	out := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Type
	}
	return out
}

// ── Basic Token Tests ──

func TestEmptySource(t *testing.T) {
	tokens := mustTokenize(t, "")
	if len(tokens) != 1 {
		t.Fatalf("expected 1 token (EOF), got %d", len(tokens))
	}
	expectToken(t, tokens, 0, TOKEN_EOF, "")
}

func TestBlankLinesCollapse(t *testing.T) {
	tokens := mustTokenize(t, "\n\n  \nx = 1\n\n\ny = 2\n\n")
	want := []TokenType{
		TOKEN_IDENTIFIER, TOKEN_EQ, TOKEN_INTEGER_LIT, TOKEN_NEWLINE,
		TOKEN_IDENTIFIER, TOKEN_EQ, TOKEN_INTEGER_LIT, TOKEN_NEWLINE,
		TOKEN_EOF,
	}
	got := types(tokens)
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(got), tokens)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d]: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestKeywordsCaseInsensitive(t *testing.T) {
	tokens := mustTokenize(t, "PUBLIC sub Foo\nEND SUB")
	expectToken(t, tokens, 0, TOKEN_PUBLIC, "PUBLIC")
	expectToken(t, tokens, 1, TOKEN_SUB, "sub")
	expectToken(t, tokens, 2, TOKEN_IDENTIFIER, "Foo")
	expectToken(t, tokens, 3, TOKEN_NEWLINE, "")
	expectToken(t, tokens, 4, TOKEN_END, "")
	expectToken(t, tokens, 5, TOKEN_SUB, "")
}

func TestOperators(t *testing.T) {
	tokens := mustTokenize(t, `a <> b <= c >= d < e > f = g + h - i * j / k \ l ^ m & n`)
	ops := []TokenType{TOKEN_NEQ, TOKEN_LE, TOKEN_GE, TOKEN_LT, TOKEN_GT, TOKEN_EQ,
		TOKEN_PLUS, TOKEN_MINUS, TOKEN_STAR, TOKEN_SLASH, TOKEN_BACKSLASH, TOKEN_CARET, TOKEN_AMP}
	for i, op := range ops {
		expectToken(t, tokens, 2*i+1, op, "")
	}
}

func TestNamedArgument(t *testing.T) {
	tokens := mustTokenize(t, `MsgBox Prompt:="hi"`)
	expectToken(t, tokens, 1, TOKEN_IDENTIFIER, "Prompt")
	expectToken(t, tokens, 2, TOKEN_ASSIGN, ":=")
	expectToken(t, tokens, 3, TOKEN_STRING_LIT, "hi")
}

// ── Literals ──

func TestNumericLiterals(t *testing.T) {
	tests := []struct {
		src  string
		typ  TokenType
		want string
	}{
		{"42", TOKEN_INTEGER_LIT, "42"},
		{"3.14", TOKEN_FLOAT_LIT, "3.14"},
		{".5", TOKEN_FLOAT_LIT, ".5"},
		{"1E3", TOKEN_FLOAT_LIT, "1E3"},
		{"2.5E-2", TOKEN_FLOAT_LIT, "2.5E-2"},
		{"&HFF", TOKEN_INTEGER_LIT, "&HFF"},
		{"&hff00&", TOKEN_INTEGER_LIT, "&hff00&"},
		{"&O17", TOKEN_INTEGER_LIT, "&O17"},
		{"10&", TOKEN_INTEGER_LIT, "10&"},
		{"7#", TOKEN_FLOAT_LIT, "7#"},
		{"19.99@", TOKEN_CURRENCY_LIT, "19.99@"},
	}
	for _, tt := range tests {
		tokens := mustTokenize(t, "x = "+tt.src)
		expectToken(t, tokens, 2, tt.typ, tt.want)
	}
}

func TestParseInteger(t *testing.T) {
	tests := []struct {
		lit  string
		want int64
	}{
		{"42", 42},
		{"&HFF", 255},
		{"&HFF00", 65280},
		{"&O17", 15},
		{"10&", 10},
		{"&HFFFFFFFF", -1},
	}
	for _, tt := range tests {
		got, err := ParseInteger(tt.lit)
		if err != nil {
			t.Errorf("ParseInteger(%q): %v", tt.lit, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseInteger(%q) = %d, want %d", tt.lit, got, tt.want)
		}
	}
	if _, err := ParseInteger("&H"); err == nil {
		t.Error("expected error for &H without digits")
	}
}

func TestParseFloat(t *testing.T) {
	got, err := ParseFloat("1.5D2")
	if err != nil || got != 150 {
		t.Fatalf("ParseFloat(1.5D2) = %v, %v", got, err)
	}
	got, err = ParseFloat("19.99@")
	if err != nil || got != 19.99 {
		t.Fatalf("ParseFloat(19.99@) = %v, %v", got, err)
	}
}

func TestStringLiteralEscapedQuote(t *testing.T) {
	tokens := mustTokenize(t, `s = "say ""hi"""`)
	expectToken(t, tokens, 2, TOKEN_STRING_LIT, `say "hi"`)
}

func TestUnterminatedString(t *testing.T) {
	l := New("s = \"oops\nx = 1")
	tokens, err := l.Tokenize()
	if err != nil {
		t.Fatalf("unterminated string must not be fatal: %v", err)
	}
	if len(l.Errors()) != 1 {
		t.Fatalf("expected 1 lex error, got %d", len(l.Errors()))
	}
	expectToken(t, tokens, 2, TOKEN_STRING_LIT, "oops")
	expectToken(t, tokens, 3, TOKEN_NEWLINE, "")
	expectToken(t, tokens, 4, TOKEN_IDENTIFIER, "x")
}

func TestDateLiteral(t *testing.T) {
	tokens := mustTokenize(t, "d = #1/15/2000 10:30 AM#")
	expectToken(t, tokens, 2, TOKEN_DATE_LIT, "1/15/2000 10:30 AM")
}

func TestHashIsNotDate(t *testing.T) {
	tokens := mustTokenize(t, "Print #1, x")
	expectToken(t, tokens, 0, TOKEN_IDENTIFIER, "Print")
	expectToken(t, tokens, 1, TOKEN_HASH, "#")
	expectToken(t, tokens, 2, TOKEN_INTEGER_LIT, "1")
}

func TestTypeSuffixIdentifiers(t *testing.T) {
	tokens := mustTokenize(t, `s = Left$(t, 2) & n%`)
	expectToken(t, tokens, 2, TOKEN_IDENTIFIER, "Left$")
	expectToken(t, tokens, 8, TOKEN_AMP, "&")
	expectToken(t, tokens, 9, TOKEN_IDENTIFIER, "n%")
}

func TestBangAccess(t *testing.T) {
	tokens := mustTokenize(t, "v = rs!Name")
	expectToken(t, tokens, 2, TOKEN_IDENTIFIER, "rs")
	expectToken(t, tokens, 3, TOKEN_BANG, "!")
	expectToken(t, tokens, 4, TOKEN_IDENTIFIER, "Name")
}

// ── Comments ──

func TestInlineComment(t *testing.T) {
	tokens := mustTokenize(t, "x = 1 ' set x\ny = 2")
	expectToken(t, tokens, 3, TOKEN_COMMENT, "set x")
	expectToken(t, tokens, 4, TOKEN_NEWLINE, "")
	if tokens[3].Type.Kind() != KindComment {
		t.Errorf("expected comment kind, got %s", tokens[3].Type.Kind())
	}
}

func TestRemComment(t *testing.T) {
	tokens := mustTokenize(t, "Rem the header\nx = 1: REM trailing")
	expectToken(t, tokens, 0, TOKEN_REM, "the header")
	expectToken(t, tokens, 5, TOKEN_COLON, ":")
	expectToken(t, tokens, 6, TOKEN_REM, "trailing")
}

func TestRemOnlyAtStatementStart(t *testing.T) {
	tokens := mustTokenize(t, "x = Remainder + rem")
	expectToken(t, tokens, 2, TOKEN_IDENTIFIER, "Remainder")
	expectToken(t, tokens, 4, TOKEN_IDENTIFIER, "rem")
}

// ── Line continuation ──

func TestLineContinuation(t *testing.T) {
	tokens := mustTokenize(t, "x = 1 + _\n    2\ny = 3")
	want := []TokenType{
		TOKEN_IDENTIFIER, TOKEN_EQ, TOKEN_INTEGER_LIT, TOKEN_PLUS, TOKEN_INTEGER_LIT, TOKEN_NEWLINE,
		TOKEN_IDENTIFIER, TOKEN_EQ, TOKEN_INTEGER_LIT, TOKEN_NEWLINE, TOKEN_EOF,
	}
	got := types(tokens)
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(got), tokens)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d]: expected %s, got %s", i, want[i], got[i])
		}
	}
	if tokens[4].Line != 2 {
		t.Errorf("continued token should keep its physical line, got %d", tokens[4].Line)
	}
}

func TestUnderscoreInIdentifier(t *testing.T) {
	tokens := mustTokenize(t, "Private Sub btn_Click()")
	expectToken(t, tokens, 2, TOKEN_IDENTIFIER, "btn_Click")
}

func TestContinuationWithCRLF(t *testing.T) {
	tokens := mustTokenize(t, "x = a _\r\n & b\r\n")
	expectToken(t, tokens, 3, TOKEN_AMP, "&")
	expectToken(t, tokens, 4, TOKEN_IDENTIFIER, "b")
}

// ── Labels ──

func TestLabel(t *testing.T) {
	tokens := mustTokenize(t, "ErrHandler:\n  Resume Next")
	expectToken(t, tokens, 0, TOKEN_LABEL, "ErrHandler")
	expectToken(t, tokens, 1, TOKEN_NEWLINE, "")
	if tokens[0].Type.Kind() != KindLabel {
		t.Errorf("expected label kind")
	}
}

func TestLineNumberLabel(t *testing.T) {
	tokens := mustTokenize(t, "10 x = 1\n20 GoTo 10")
	expectToken(t, tokens, 0, TOKEN_LABEL, "10")
	expectToken(t, tokens, 1, TOKEN_IDENTIFIER, "x")
	expectToken(t, tokens, 5, TOKEN_LABEL, "20")
	expectToken(t, tokens, 6, TOKEN_GOTO, "")
	expectToken(t, tokens, 7, TOKEN_INTEGER_LIT, "10")
}

func TestColonAfterStatementIsSeparator(t *testing.T) {
	tokens := mustTokenize(t, "x = 1: y = 2")
	expectToken(t, tokens, 3, TOKEN_COLON, ":")
	expectToken(t, tokens, 4, TOKEN_IDENTIFIER, "y")
}

// ── Positions and errors ──

func TestPositions(t *testing.T) {
	tokens := mustTokenize(t, "Dim x\n  y = 10")
	expectToken(t, tokens, 3, TOKEN_IDENTIFIER, "y")
	if tokens[3].Line != 2 || tokens[3].Column != 3 {
		t.Errorf("expected y at 2:3, got %d:%d", tokens[3].Line, tokens[3].Column)
	}
	if tokens[5].Column != 7 {
		t.Errorf("expected 10 at column 7, got %d", tokens[5].Column)
	}
}

func TestUnknownCharacterRecovers(t *testing.T) {
	l := New("x = 1 ` y = 2")
	tokens, err := l.Tokenize()
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	expectToken(t, tokens, 3, TOKEN_UNKNOWN, "`")
	expectToken(t, tokens, 4, TOKEN_IDENTIFIER, "y")
	if len(l.Errors()) != 1 {
		t.Fatalf("expected 1 lex error, got %d", len(l.Errors()))
	}
	if e := l.Errors()[0]; e.Line != 1 || e.Column != 7 {
		t.Errorf("expected error at 1:7, got %d:%d", e.Line, e.Column)
	}
}

func TestInvalidUTF8IsFatal(t *testing.T) {
	_, err := New("x = \xff\xfe").Tokenize()
	if err == nil {
		t.Fatal("expected fatal error for invalid UTF-8")
	}
}

func TestAlwaysTerminates(t *testing.T) {
	inputs := []string{"_", "&", "&H", "#", "#1/", `"`, "::::", "1e", "a!", "\r\r\r", "Rem"}
	for _, src := range inputs {
		tokens := mustTokenize(t, src)
		if tokens[len(tokens)-1].Type != TOKEN_EOF {
			t.Errorf("%q: expected EOF as last token", src)
		}
	}
}

func TestKindClassification(t *testing.T) {
	tests := []struct {
		typ  TokenType
		want Kind
	}{
		{TOKEN_SUB, KindKeyword},
		{TOKEN_IDENTIFIER, KindIdentifier},
		{TOKEN_STRING_LIT, KindLiteral},
		{TOKEN_TRUE, KindLiteral},
		{TOKEN_AND, KindOperator},
		{TOKEN_PLUS, KindOperator},
		{TOKEN_LPAREN, KindPunctuation},
		{TOKEN_REM, KindComment},
		{TOKEN_LABEL, KindLabel},
		{TOKEN_UNKNOWN, KindUnknown},
	}
	for _, tt := range tests {
		if got := tt.typ.Kind(); got != tt.want {
			t.Errorf("%s.Kind() = %s, want %s", tt.typ, got, tt.want)
		}
	}
}

func TestKeywordCanonicalNames(t *testing.T) {
	if got := TOKEN_ELSEIF.String(); got != "ElseIf" {
		t.Errorf("got %q", got)
	}
	if got := TOKEN_SUB.String(); got != "Sub" {
		t.Errorf("got %q", got)
	}
}
