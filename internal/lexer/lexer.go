package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// LexError is a recoverable lexical problem. Tokenization continues after
// recording one.
type LexError struct {
	Message string
	Line    int
	Column  int
}

func (e *LexError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// Lexer tokenizes legacy BASIC source code into a stream of tokens.
type Lexer struct {
	source  string  // the full source text
	tokens  []Token // accumulated tokens
	errors  []*LexError
	start   int // byte offset of current token start
	current int // byte offset of current position
	line    int // current line number (1-based)
	column  int // current column number (1-based)

	startLine   int
	startColumn int

	atLineStart      bool // no token emitted yet on this physical line
	atStatementStart bool // at line start or just after a ':' separator
}

// New creates a new Lexer for the given source code.
func New(source string) *Lexer {
	return &Lexer{
		source:           source,
		tokens:           make([]Token, 0, 256),
		line:             1,
		column:           1,
		atLineStart:      true,
		atStatementStart: true,
	}
}

// Tokenize processes the entire source and returns all tokens.
// The token stream always ends with TOKEN_EOF. Malformed input never
// fails tokenization; it yields TOKEN_UNKNOWN tokens and entries in Errors.
// The only error returned is for source that is not valid UTF-8.
func (l *Lexer) Tokenize() ([]Token, error) {
	if !utf8.ValidString(l.source) {
		return nil, fmt.Errorf("source is not valid UTF-8")
	}

	for !l.isAtEnd() {
		before := l.current
		l.start = l.current
		l.startLine, l.startColumn = l.line, l.column
		l.scanToken()
		if l.current == before {
			// Always advance, whatever the scanner decided.
			l.advance()
		}
	}

	l.startLine, l.startColumn = l.line, l.column
	if n := len(l.tokens); n > 0 && l.tokens[n-1].Type != TOKEN_NEWLINE {
		l.emit(TOKEN_NEWLINE, "")
	}
	l.emit(TOKEN_EOF, "")
	return l.tokens, nil
}

// Errors returns the recoverable errors recorded during Tokenize.
func (l *Lexer) Errors() []*LexError {
	return l.errors
}

// scanToken scans and emits the next token from the current position.
func (l *Lexer) scanToken() {
	r := l.peekRune()

	switch {
	case r == '\n' || r == '\r':
		l.consumeNewline()
		l.emitNewline()

	case r == ' ' || r == '\t':
		l.skipWhitespace()

	case r == '_' && l.isLineContinuation():
		l.advance()
		l.skipWhitespace()
		l.consumeNewline()

	case r == ':':
		l.advance()
		if l.peekRune() == '=' {
			l.advance()
			l.emit(TOKEN_ASSIGN, ":=")
			return
		}
		l.emit(TOKEN_COLON, ":")
		l.atStatementStart = true

	case r == '\'':
		l.scanComment(TOKEN_COMMENT, 1)

	case r == '"':
		l.scanString()

	case r == '&':
		next := unicode.ToUpper(l.peekRuneAt(l.current + 1))
		if next == 'H' || next == 'O' {
			l.scanRadixNumber()
			return
		}
		l.advance()
		l.emit(TOKEN_AMP, "&")

	case r == '#':
		if l.isDateLiteral() {
			l.scanDate()
			return
		}
		l.advance()
		l.emit(TOKEN_HASH, "#")

	case isDigit(r) || (r == '.' && isDigit(l.peekRuneAt(l.current+1))):
		if l.atLineStart && isDigit(r) && l.scanLineNumber() {
			return
		}
		l.scanNumber()

	case isAlpha(r):
		l.scanWord()

	default:
		l.scanOperator(r)
	}
}

// scanOperator handles single and double character operators.
func (l *Lexer) scanOperator(r rune) {
	l.advance()
	switch r {
	case '+':
		l.emit(TOKEN_PLUS, "+")
	case '-':
		l.emit(TOKEN_MINUS, "-")
	case '*':
		l.emit(TOKEN_STAR, "*")
	case '/':
		l.emit(TOKEN_SLASH, "/")
	case '\\':
		l.emit(TOKEN_BACKSLASH, `\`)
	case '^':
		l.emit(TOKEN_CARET, "^")
	case '=':
		l.emit(TOKEN_EQ, "=")
	case '<':
		switch l.peekRune() {
		case '>':
			l.advance()
			l.emit(TOKEN_NEQ, "<>")
		case '=':
			l.advance()
			l.emit(TOKEN_LE, "<=")
		default:
			l.emit(TOKEN_LT, "<")
		}
	case '>':
		if l.peekRune() == '=' {
			l.advance()
			l.emit(TOKEN_GE, ">=")
			return
		}
		l.emit(TOKEN_GT, ">")
	case '.':
		l.emit(TOKEN_DOT, ".")
	case '!':
		l.emit(TOKEN_BANG, "!")
	case '(':
		l.emit(TOKEN_LPAREN, "(")
	case ')':
		l.emit(TOKEN_RPAREN, ")")
	case ',':
		l.emit(TOKEN_COMMA, ",")
	case ';':
		l.emit(TOKEN_SEMICOLON, ";")
	default:
		text := string(r)
		l.addError("unrecognized character %q", text)
		l.emit(TOKEN_UNKNOWN, text)
	}
}

// isLineContinuation reports whether the '_' at the current position is a
// line continuation: preceded by whitespace (or line start) and followed
// only by blanks up to the end of the physical line.
func (l *Lexer) isLineContinuation() bool {
	if l.current > 0 {
		prev := l.source[l.current-1]
		if prev != ' ' && prev != '\t' {
			return false
		}
	}
	for i := l.current + 1; i < len(l.source); i++ {
		switch l.source[i] {
		case ' ', '\t':
			continue
		case '\r', '\n':
			return true
		default:
			return false
		}
	}
	return true
}

// scanComment scans a comment to the end of the line. skip is the number of
// bytes of marker ("'" or "Rem") preceding the text.
func (l *Lexer) scanComment(tokenType TokenType, skip int) {
	for i := 0; i < skip; i++ {
		l.advance()
	}
	textStart := l.current
	for !l.isAtEnd() && l.peekRune() != '\n' && l.peekRune() != '\r' {
		l.advance()
	}
	l.emit(tokenType, strings.TrimSpace(l.source[textStart:l.current]))
}

// scanString scans a double-quoted string literal. A doubled quote is an
// escaped quote. An unterminated string ends at the line break.
func (l *Lexer) scanString() {
	l.advance() // consume opening "

	var b strings.Builder
	for !l.isAtEnd() {
		r := l.peekRune()
		if r == '"' {
			l.advance()
			if l.peekRune() == '"' {
				l.advance()
				b.WriteByte('"')
				continue
			}
			l.emit(TOKEN_STRING_LIT, b.String())
			return
		}
		if r == '\n' || r == '\r' {
			break
		}
		b.WriteRune(l.advance())
	}

	l.addError("unterminated string literal")
	l.emit(TOKEN_STRING_LIT, b.String())
}

// scanNumber scans a decimal integer or floating point literal with an
// optional exponent and type suffix.
func (l *Lexer) scanNumber() {
	isFloat := false
	for isDigit(l.peekRune()) {
		l.advance()
	}
	if l.peekRune() == '.' && isDigit(l.peekRuneAt(l.current+1)) {
		isFloat = true
		l.advance()
		for isDigit(l.peekRune()) {
			l.advance()
		}
	}
	if r := unicode.ToUpper(l.peekRune()); r == 'E' || r == 'D' {
		next := l.peekRuneAt(l.current + 1)
		afterSign := l.peekRuneAt(l.current + 2)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(afterSign)) {
			isFloat = true
			l.advance()
			if next == '+' || next == '-' {
				l.advance()
			}
			for isDigit(l.peekRune()) {
				l.advance()
			}
		}
	}

	tokenType := TOKEN_INTEGER_LIT
	if isFloat {
		tokenType = TOKEN_FLOAT_LIT
	}
	switch l.peekRune() {
	case '%', '&', '^':
		if !isFloat && !isAlphaNumeric(l.peekRuneAt(l.current+1)) {
			l.advance()
		}
	case '!', '#':
		if !isAlphaNumeric(l.peekRuneAt(l.current + 1)) {
			l.advance()
			tokenType = TOKEN_FLOAT_LIT
		}
	case '@':
		l.advance()
		tokenType = TOKEN_CURRENCY_LIT
	}

	l.emit(tokenType, l.source[l.start:l.current])
}

// scanRadixNumber scans &H and &O literals with an optional type suffix.
func (l *Lexer) scanRadixNumber() {
	l.advance() // &
	radix := unicode.ToUpper(l.advance())
	digits := 0
	for {
		r := l.peekRune()
		if (radix == 'H' && isHexDigit(r)) || (radix == 'O' && r >= '0' && r <= '7') {
			l.advance()
			digits++
			continue
		}
		break
	}
	if digits == 0 {
		l.addError("missing digits in &%c literal", radix)
	}
	if r := l.peekRune(); r == '&' || r == '%' || r == '^' {
		l.advance()
	}
	l.emit(TOKEN_INTEGER_LIT, l.source[l.start:l.current])
}

// scanLineNumber treats a leading integer as a line-number label when it is
// followed by whitespace or the end of the line.
func (l *Lexer) scanLineNumber() bool {
	end := l.current
	for end < len(l.source) && l.source[end] >= '0' && l.source[end] <= '9' {
		end++
	}
	if end < len(l.source) {
		switch l.source[end] {
		case ' ', '\t', '\r', '\n', ':':
		default:
			return false
		}
	}
	for l.current < end {
		l.advance()
	}
	if l.peekRune() == ':' {
		l.advance()
	}
	l.emit(TOKEN_LABEL, l.source[l.start:end])
	l.atStatementStart = true
	return true
}

// isDateLiteral checks whether the '#' at the current position opens a
// date literal: a closing '#' on the same line with date-ish content.
func (l *Lexer) isDateLiteral() bool {
	hasDigit := false
	for i := l.current + 1; i < len(l.source); i++ {
		ch := l.source[i]
		switch {
		case ch == '#':
			return hasDigit && i > l.current+1
		case ch >= '0' && ch <= '9':
			hasDigit = true
		case ch == '/' || ch == '-' || ch == ':' || ch == ' ' || ch == '.' || ch == ',':
		case (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z'):
		default:
			return false
		}
	}
	return false
}

// scanDate scans a #...# date literal. isDateLiteral has already confirmed
// the closing delimiter.
func (l *Lexer) scanDate() {
	l.advance() // opening #
	textStart := l.current
	for l.peekRune() != '#' {
		l.advance()
	}
	text := strings.TrimSpace(l.source[textStart:l.current])
	l.advance() // closing #
	l.emit(TOKEN_DATE_LIT, text)
}

// scanWord scans a keyword, identifier, label, or Rem comment.
func (l *Lexer) scanWord() {
	for isAlphaNumeric(l.peekRune()) {
		l.advance()
	}

	word := l.source[l.start:l.current]
	if l.atStatementStart && strings.EqualFold(word, "rem") {
		l.current, l.column = l.start, l.startColumn
		l.scanComment(TOKEN_REM, 3)
		return
	}

	tokenType := LookupKeyword(word)

	// Label: identifier immediately followed by ':' at the start of a line.
	if tokenType == TOKEN_IDENTIFIER && l.atLineStart && l.peekRune() == ':' && l.peekRuneAt(l.current+1) != '=' {
		l.advance() // consume ':'
		l.emit(TOKEN_LABEL, word)
		l.atStatementStart = true
		return
	}

	// Type-declaration suffix: Left$, count%, total&, ratio!, amount@.
	if tokenType == TOKEN_IDENTIFIER {
		switch l.peekRune() {
		case '$', '%', '&', '!', '#', '@':
			if !isAlphaNumeric(l.peekRuneAt(l.current+1)) && !l.suffixStartsLiteral() {
				l.advance()
				word = l.source[l.start:l.current]
			}
		}
	}

	l.emit(tokenType, word)
}

// suffixStartsLiteral guards against reading "x &H10" style concatenation
// or a date literal as a type suffix.
func (l *Lexer) suffixStartsLiteral() bool {
	r := l.peekRune()
	if r == '#' && l.isDateLiteral() {
		return true
	}
	return false
}

// ── Character scanning helpers ──

// isAtEnd returns true if the lexer has reached the end of the source.
func (l *Lexer) isAtEnd() bool {
	return l.current >= len(l.source)
}

// peekRune returns the rune at the current position without advancing.
func (l *Lexer) peekRune() rune {
	if l.isAtEnd() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.source[l.current:])
	return r
}

// peekRuneAt returns the rune at the given byte offset.
func (l *Lexer) peekRuneAt(offset int) rune {
	if offset >= len(l.source) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.source[offset:])
	return r
}

// advance consumes the current rune and moves forward.
func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	r, size := utf8.DecodeRuneInString(l.source[l.current:])
	l.current += size
	l.column++
	return r
}

// consumeNewline consumes one \n, \r\n or \r sequence if present.
func (l *Lexer) consumeNewline() {
	switch l.peekRune() {
	case '\r':
		l.advance()
		if l.peekRune() == '\n' {
			l.advance()
		}
	case '\n':
		l.advance()
	default:
		return
	}
	l.line++
	l.column = 1
}

// emitNewline emits a logical NEWLINE, collapsing blank lines.
func (l *Lexer) emitNewline() {
	if n := len(l.tokens); n > 0 && l.tokens[n-1].Type != TOKEN_NEWLINE {
		l.emit(TOKEN_NEWLINE, "")
	}
	l.atLineStart = true
	l.atStatementStart = true
}

// skipWhitespace consumes spaces and tabs.
func (l *Lexer) skipWhitespace() {
	for r := l.peekRune(); r == ' ' || r == '\t'; r = l.peekRune() {
		l.advance()
	}
}

// emit adds a token to the output stream.
func (l *Lexer) emit(tokenType TokenType, literal string) {
	l.tokens = append(l.tokens, Token{
		Type:    tokenType,
		Literal: literal,
		Line:    l.startLine,
		Column:  l.startColumn,
	})
	l.start = l.current
	if tokenType != TOKEN_NEWLINE {
		l.atLineStart = false
		l.atStatementStart = false
	}
}

func (l *Lexer) addError(format string, args ...any) {
	l.errors = append(l.errors, &LexError{
		Message: fmt.Sprintf(format, args...),
		Line:    l.startLine,
		Column:  l.startColumn,
	})
}

// ── Character classification helpers ──

func isAlpha(r rune) bool {
	return unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isAlphaNumeric(r rune) bool {
	return isAlpha(r) || isDigit(r) || r == '_'
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
