// Package parser builds an ast.Module from a token stream.
//
// The parser is recursive descent with one method per syntactic category.
// It never stops at the first problem: each error is recorded as a
// ParseError and the parser resynchronizes at the next statement boundary,
// or skips a malformed procedure up to its End line, and carries on.
package parser

import (
	"fmt"
	"slices"
	"strings"

	"github.com/barun-bash/vbport/internal/ast"
	"github.com/barun-bash/vbport/internal/lexer"
)

// maxErrors bounds the diagnostics reported for one module. Past it the
// rest of the input is ignored.
const maxErrors = 100

// maxNesting bounds how deeply expressions and statements may nest.
const maxNesting = 1000

// ParseError is a recoverable syntax error.
type ParseError struct {
	Message string
	Line    int
	Column  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// Parse lexes and parses source into a module named sourceName. Lexical
// errors are folded into the returned ParseError list. The error result
// is non-nil only when the source cannot be tokenized at all.
func Parse(source, sourceName string) (*ast.Module, []*ParseError, error) {
	lex := lexer.New(source)
	tokens, err := lex.Tokenize()
	if err != nil {
		return nil, nil, fmt.Errorf("lexer error: %w", err)
	}
	mod, errs := ParseTokens(tokens, sourceName)

	var all []*ParseError
	for _, le := range lex.Errors() {
		all = append(all, &ParseError{Message: le.Message, Line: le.Line, Column: le.Column})
	}
	return mod, append(all, errs...), nil
}

// ParseTokens parses a pre-built token stream. It always returns a
// module, possibly partial when errors were recorded. An empty stream
// yields an empty module.
func ParseTokens(tokens []lexer.Token, sourceName string) (*ast.Module, []*ParseError) {
	// The parser rewrites separator tokens in a few shorthand forms
	// (Next i, j and ReDim a(1), b(2)), so it works on its own copy.
	p := &parser{tokens: slices.Clone(tokens), splitAt: -1}
	mod := p.parseModule(sourceName)
	return mod, p.errors
}

// parser holds the state for a single parse run.
type parser struct {
	tokens []lexer.Token
	pos    int
	errors []*ParseError

	// failed is set by fail. While it is set the parser sees the end of
	// input, so the current production winds down without consuming
	// tokens until a recovery point clears it.
	failed bool
	depth  int

	redimPreserve bool // carried to the next array of a split ReDim list
	splitAt       int  // index of a token rewritten to start a new statement
}

// ── Module ──

func (p *parser) parseModule(name string) *ast.Module {
	mod := &ast.Module{Name: name}

	for {
		p.skipSeparators()
		if p.isAtEnd() || len(p.errors) >= maxErrors {
			break
		}
		start := p.pos
		p.parseModuleItem(mod)
		if p.pos == start {
			// Safety: always make progress.
			p.advance()
		}
	}

	if mod.Name == "" {
		for _, a := range mod.Attributes {
			if strings.EqualFold(a.Name, "VB_Name") {
				if lit, ok := a.Value.(*ast.Literal); ok && lit.Kind == ast.LitString {
					mod.Name = lit.Str
				}
			}
		}
	}
	return mod
}

// parseModuleItem parses one line of the declarations section or one
// procedure, recovering from errors at the line level.
func (p *parser) parseModuleItem(mod *ast.Module) {
	var decls []ast.Decl
	attr, declared := p.parseModuleLine(mod, &decls)
	if !p.failed {
		if attr != nil {
			mod.Attributes = append(mod.Attributes, attr)
		}
		mod.Declarations = append(mod.Declarations, decls...)
		if declared {
			p.expectStatementEnd()
		}
	}
	if p.failed {
		p.failed = false
		p.syncStatement()
	}
}

// parseModuleLine parses one module item, collecting declarations into
// decls. Procedures go straight to mod, since their bodies recover on
// their own. declared reports a declaration line, which the caller
// checks for a clean end.
func (p *parser) parseModuleLine(mod *ast.Module, decls *[]ast.Decl) (attr *ast.Attribute, declared bool) {
	tok := p.peek()
	switch tok.Type {
	case lexer.TOKEN_COMMENT, lexer.TOKEN_REM:
		p.advance()
		mod.Comments = append(mod.Comments, &ast.CommentStmt{
			Pos: pos(tok), Text: tok.Literal, Rem: tok.Type == lexer.TOKEN_REM,
		})
		return nil, false
	case lexer.TOKEN_OPTION:
		p.parseOption(mod)
		return nil, false
	case lexer.TOKEN_ATTRIBUTE:
		return p.parseAttribute(), false
	case lexer.TOKEN_IDENTIFIER:
		if p.isIgnoredModuleLine(tok) {
			p.skipIgnoredModuleLine(tok)
			return nil, false
		}
	}

	vis, static := p.parseModifiers()
	switch p.peek().Type {
	case lexer.TOKEN_SUB, lexer.TOKEN_FUNCTION, lexer.TOKEN_PROPERTY:
		if proc := p.parseProcedure(tok, vis, static); proc != nil {
			mod.Procedures = append(mod.Procedures, proc)
		}
	case lexer.TOKEN_CONST:
		p.advance()
		for _, c := range p.parseConstList(vis) {
			*decls = append(*decls, c)
		}
	case lexer.TOKEN_TYPE:
		if d := p.parseTypeDecl(tok, vis); d != nil {
			*decls = append(*decls, d)
		}
	case lexer.TOKEN_ENUM:
		if d := p.parseEnumDecl(tok, vis); d != nil {
			*decls = append(*decls, d)
		}
	case lexer.TOKEN_DECLARE:
		*decls = append(*decls, p.parseDeclare(tok, vis))
	case lexer.TOKEN_EVENT:
		*decls = append(*decls, p.parseEvent(tok, vis))
	case lexer.TOKEN_DIM, lexer.TOKEN_IDENTIFIER, lexer.TOKEN_WITHEVENTS:
		if p.check(lexer.TOKEN_DIM) {
			p.advance()
		} else if vis == ast.VisibilityDefault && !static {
			p.fail(p.peek(), "executable statement outside a procedure: %s", p.peek())
			return nil, false
		}
		for _, v := range p.parseVarList(vis) {
			*decls = append(*decls, v)
		}
	default:
		p.fail(p.peek(), "unexpected %s at module level", p.peek())
		return nil, false
	}
	return nil, true
}

// parseModifiers consumes Public/Private/Global/Friend and Static in any
// order.
func (p *parser) parseModifiers() (vis ast.Visibility, static bool) {
	for {
		switch p.peek().Type {
		case lexer.TOKEN_PUBLIC, lexer.TOKEN_GLOBAL:
			vis = ast.VisibilityPublic
		case lexer.TOKEN_PRIVATE:
			vis = ast.VisibilityPrivate
		case lexer.TOKEN_FRIEND:
			vis = ast.VisibilityFriend
		case lexer.TOKEN_STATIC:
			static = true
		default:
			return vis, static
		}
		p.advance()
	}
}

// parseOption handles Option Explicit, Option Base n, Option Compare
// Text|Binary|Database and Option Private Module.
func (p *parser) parseOption(mod *ast.Module) {
	p.advance() // Option
	tok := p.peek()
	switch {
	case tok.Is("Explicit"):
		p.advance()
		mod.Options.Explicit = true
	case tok.Is("Base"):
		p.advance()
		n := p.expect(lexer.TOKEN_INTEGER_LIT, "Option Base value")
		if n.Literal != "0" && n.Literal != "1" {
			p.errorAt(n, "Option Base must be 0 or 1, got %s", n.Literal)
		} else {
			mod.Options.Base = int(n.Literal[0] - '0')
		}
	case tok.Is("Compare"):
		p.advance()
		mode := p.advance()
		switch {
		case mode.Is("Text"):
			mod.Options.CompareText = true
		case mode.Is("Binary"), mode.Is("Database"):
		default:
			p.errorAt(mode, "expected Binary, Text or Database after Option Compare, found %s", mode)
		}
	case tok.Type == lexer.TOKEN_PRIVATE:
		p.advance()
		if p.peek().Is("Module") {
			p.advance()
		}
	default:
		p.fail(tok, "unknown Option %s", tok)
	}
	p.expectStatementEnd()
}

// parseAttribute parses `Attribute Name = value`. Dotted names such as
// Item.VB_UserMemId are joined.
func (p *parser) parseAttribute() *ast.Attribute {
	start := p.advance() // Attribute
	name := p.expectName("attribute name")
	for p.match(lexer.TOKEN_DOT) {
		name += "." + p.expectName("attribute name")
	}
	p.expect(lexer.TOKEN_EQ, "'=' in Attribute")
	value := p.parseExpression()
	p.expectStatementEnd()
	return &ast.Attribute{Pos: pos(start), Name: name, Value: value}
}

// isIgnoredModuleLine reports lines that carry no meaning for the
// translation: DefXxx ranges, Implements, and the VERSION header of
// class and form files.
func (p *parser) isIgnoredModuleLine(tok lexer.Token) bool {
	word := strings.ToLower(tok.Literal)
	if strings.HasPrefix(word, "def") && len(word) > 3 {
		switch word[3:] {
		case "bool", "byte", "int", "lng", "lnglng", "cur", "sng", "dbl", "dec", "date", "str", "obj", "var":
			return true
		}
	}
	return word == "implements" || word == "version" || word == "begin"
}

func (p *parser) skipIgnoredModuleLine(tok lexer.Token) {
	if !tok.Is("Begin") {
		p.skipRestOfLine()
		return
	}
	// Form designer block: Begin ... End, possibly nested.
	depth := 0
	for !p.isAtEnd() {
		t := p.advance()
		switch {
		case t.Is("Begin") || t.Is("BeginProperty"):
			depth++
		case t.Is("EndProperty"):
			depth--
		case t.Type == lexer.TOKEN_END && p.atStatementEnd():
			depth--
		}
		if depth == 0 {
			return
		}
	}
}

// ── Token movement ──

func (p *parser) peek() lexer.Token {
	return p.peekAt(0)
}

func (p *parser) peekAt(offset int) lexer.Token {
	if p.failed || p.pos+offset >= len(p.tokens) {
		return lexer.Token{Type: lexer.TOKEN_EOF}
	}
	return p.tokens[p.pos+offset]
}

func (p *parser) advance() lexer.Token {
	tok := p.peek()
	if tok.Type != lexer.TOKEN_EOF {
		p.pos++
	}
	return tok
}

func (p *parser) check(t lexer.TokenType) bool {
	return p.peek().Type == t
}

func (p *parser) match(t lexer.TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) isAtEnd() bool {
	return p.pos >= len(p.tokens) || p.peek().Type == lexer.TOKEN_EOF
}

// expect consumes a token of type t or fails with "expected <what>".
func (p *parser) expect(t lexer.TokenType, what string) lexer.Token {
	if !p.check(t) {
		p.fail(p.peek(), "expected %s, found %s", what, p.peek())
	}
	return p.advance()
}

// expectIdent consumes an identifier and returns its name without a type
// suffix, along with the type the suffix implies.
func (p *parser) expectIdent(what string) (string, string) {
	tok := p.expect(lexer.TOKEN_IDENTIFIER, what)
	return splitSuffix(tok.Literal)
}

// expectName accepts an identifier or any keyword spelling, for places
// where keywords are valid names (members after '.', attribute names).
func (p *parser) expectName(what string) string {
	tok := p.peek()
	if tok.Type == lexer.TOKEN_IDENTIFIER || isWordToken(tok) {
		p.advance()
		name, _ := splitSuffix(tok.Literal)
		return name
	}
	p.fail(tok, "expected %s, found %s", what, tok)
	return ""
}

func isWordToken(tok lexer.Token) bool {
	switch {
	case tok.Type.Kind() == lexer.KindKeyword, tok.Type.Kind() == lexer.KindOperator,
		tok.Type >= lexer.TOKEN_TRUE && tok.Type <= lexer.TOKEN_NULL:
		return tok.Literal != "" && isLetter(tok.Literal[0])
	}
	return false
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// ── Statement boundaries ──

// atStatementEnd reports whether the current token ends a statement.
// Else ends the Then part of a single-line If.
func (p *parser) atStatementEnd() bool {
	if p.pos == p.splitAt {
		return true
	}
	switch p.peek().Type {
	case lexer.TOKEN_NEWLINE, lexer.TOKEN_COLON, lexer.TOKEN_EOF,
		lexer.TOKEN_COMMENT, lexer.TOKEN_REM, lexer.TOKEN_ELSE:
		return true
	}
	return false
}

func (p *parser) expectStatementEnd() {
	if !p.atStatementEnd() {
		p.fail(p.peek(), "expected end of statement, found %s", p.peek())
	}
}

// skipSeparators skips newlines and ':' separators.
func (p *parser) skipSeparators() {
	for p.check(lexer.TOKEN_NEWLINE) || p.check(lexer.TOKEN_COLON) {
		p.advance()
	}
}

// skipRestOfLine consumes tokens up to, not including, the next NEWLINE.
func (p *parser) skipRestOfLine() {
	for !p.isAtEnd() && !p.check(lexer.TOKEN_NEWLINE) {
		p.advance()
	}
}

// ── Error handling ──

func (p *parser) errorAt(tok lexer.Token, format string, args ...any) {
	if p.failed || len(p.errors) >= maxErrors {
		return
	}
	line, col := tok.Line, tok.Column
	if tok.Type == lexer.TOKEN_EOF && line == 0 && len(p.tokens) > 0 {
		last := p.tokens[len(p.tokens)-1]
		line, col = last.Line, last.Column
	}
	p.errors = append(p.errors, &ParseError{
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Column:  col,
	})
}

// fail records an error and marks the current statement as failed. The
// caller returns whatever it has; recovery happens in guard,
// parseStatementSafe and parseModuleItem.
func (p *parser) fail(tok lexer.Token, format string, args ...any) {
	p.errorAt(tok, format, args...)
	p.failed = true
}

// enter counts one level of recursion, failing once the input nests
// deeper than maxNesting. Callers that get true must call leave.
func (p *parser) enter() bool {
	if p.depth >= maxNesting {
		p.fail(p.peek(), "nested more than %d levels deep", maxNesting)
		return false
	}
	p.depth++
	return true
}

func (p *parser) leave() {
	p.depth--
}

// syncStatement skips to the next statement boundary: ':' or the end of
// the line.
func (p *parser) syncStatement() {
	for !p.isAtEnd() && !p.check(lexer.TOKEN_NEWLINE) && !p.check(lexer.TOKEN_COLON) {
		p.advance()
	}
}

// guard runs f and, if it fails, clears the failure and skips forward to
// one of stop or the end of the statement. It returns false when f
// failed, or when the enclosing statement had already failed. Block
// headers use it so a bad condition does not cost the whole block.
func (p *parser) guard(f func(), stop ...lexer.TokenType) bool {
	if p.failed {
		return false
	}
	f()
	if !p.failed {
		return true
	}
	p.failed = false
	for !p.isAtEnd() && !p.atStatementEnd() && !slices.Contains(stop, p.peek().Type) {
		p.advance()
	}
	return false
}

// ── Helpers ──

func pos(tok lexer.Token) ast.Pos {
	return ast.Pos{Line: tok.Line, Column: tok.Column}
}

// suffixTypes maps identifier type-declaration characters to type names.
var suffixTypes = map[byte]string{
	'$': "String",
	'%': "Integer",
	'&': "Long",
	'!': "Single",
	'#': "Double",
	'@': "Currency",
}

// splitSuffix strips a type-declaration character from name. Left$ and
// Left name the same thing.
func splitSuffix(name string) (string, string) {
	if n := len(name); n > 1 {
		if typ, ok := suffixTypes[name[n-1]]; ok {
			return name[:n-1], typ
		}
	}
	return name, ""
}

// tokensText reconstructs readable source text from a token range.
func tokensText(toks []lexer.Token) string {
	var b strings.Builder
	for i, t := range toks {
		if i > 0 && needsSpace(toks[i-1], t) {
			b.WriteByte(' ')
		}
		switch t.Type {
		case lexer.TOKEN_STRING_LIT:
			b.WriteString(`"` + strings.ReplaceAll(t.Literal, `"`, `""`) + `"`)
		case lexer.TOKEN_DATE_LIT:
			b.WriteString("#" + t.Literal + "#")
		case lexer.TOKEN_COMMENT:
			b.WriteString("' " + t.Literal)
		default:
			b.WriteString(t.Literal)
		}
	}
	return b.String()
}

func needsSpace(prev, cur lexer.Token) bool {
	switch cur.Type {
	case lexer.TOKEN_RPAREN, lexer.TOKEN_COMMA, lexer.TOKEN_DOT, lexer.TOKEN_BANG, lexer.TOKEN_SEMICOLON:
		return false
	case lexer.TOKEN_LPAREN:
		return prev.Type != lexer.TOKEN_IDENTIFIER
	}
	switch prev.Type {
	case lexer.TOKEN_LPAREN, lexer.TOKEN_DOT, lexer.TOKEN_BANG, lexer.TOKEN_HASH:
		return false
	}
	return true
}
