package parser

import (
	"github.com/barun-bash/vbport/internal/ast"
	"github.com/barun-bash/vbport/internal/lexer"
)

// ── Procedures ──

// parseProcedure parses a Sub, Function or Property through its End
// line. start is the first token of the declaration (a modifier or the
// procedure keyword). A malformed header skips the whole procedure.
func (p *parser) parseProcedure(start lexer.Token, vis ast.Visibility, static bool) (proc *ast.Procedure) {
	proc = &ast.Procedure{Pos: pos(start), Visibility: vis, Static: static}

	headerOK := p.guard(func() { p.parseProcedureHeader(proc) })
	if !headerOK {
		p.skipProcedure()
		return nil
	}

	for {
		proc.Body = append(proc.Body, p.parseBlock()...)
		if p.atProcedureEnd() {
			end := p.advance() // End
			closer := p.advance()
			if want := procCloser(proc.Kind); closer.Type != want {
				p.errorAt(closer, "expected End %s, found End %s", want, closer.Literal)
			}
			proc.EndLine = end.Line
			return proc
		}
		if p.isAtEnd() || p.atProcedureStart() || len(p.errors) >= maxErrors {
			p.errorAt(p.peek(), "missing End %s for %s %s", procCloser(proc.Kind), proc.Kind, proc.Name)
			proc.EndLine = p.peek().Line
			return proc
		}
		// A block terminator with no open block.
		tok := p.peek()
		p.errorAt(tok, "unexpected %s", p.describeTerminator())
		p.skipRestOfLine()
	}
}

func (p *parser) parseProcedureHeader(proc *ast.Procedure) {
	switch p.advance().Type {
	case lexer.TOKEN_SUB:
		proc.Kind = ast.ProcSub
	case lexer.TOKEN_FUNCTION:
		proc.Kind = ast.ProcFunction
	case lexer.TOKEN_PROPERTY:
		acc := p.advance()
		switch {
		case acc.Is("Get"):
			proc.Kind = ast.ProcPropertyGet
		case acc.Type == lexer.TOKEN_LET:
			proc.Kind = ast.ProcPropertyLet
		case acc.Type == lexer.TOKEN_SET:
			proc.Kind = ast.ProcPropertySet
		default:
			p.fail(acc, "expected Get, Let or Set after Property, found %s", acc)
		}
	}

	name, suffixType := p.expectIdent("procedure name")
	proc.Name = name
	if p.check(lexer.TOKEN_LPAREN) {
		proc.Params = p.parseParams()
	}
	if p.match(lexer.TOKEN_AS) {
		proc.ReturnType = p.parseTypeRef()
	} else if suffixType != "" {
		proc.ReturnType = ast.TypeRef{Name: suffixType}
	}
	if p.check(lexer.TOKEN_COMMENT) || p.check(lexer.TOKEN_REM) {
		return
	}
	p.expectStatementEnd()
}

func procCloser(k ast.ProcKind) lexer.TokenType {
	switch k {
	case ast.ProcSub:
		return lexer.TOKEN_SUB
	case ast.ProcFunction:
		return lexer.TOKEN_FUNCTION
	default:
		return lexer.TOKEN_PROPERTY
	}
}

// atProcedureEnd reports End Sub, End Function or End Property.
func (p *parser) atProcedureEnd() bool {
	if !p.check(lexer.TOKEN_END) {
		return false
	}
	switch p.peekAt(1).Type {
	case lexer.TOKEN_SUB, lexer.TOKEN_FUNCTION, lexer.TOKEN_PROPERTY:
		return true
	}
	return false
}

// atProcedureStart reports a procedure header at the current statement,
// which inside a body means the previous procedure was never closed.
func (p *parser) atProcedureStart() bool {
	i := 0
	for {
		switch p.peekAt(i).Type {
		case lexer.TOKEN_PUBLIC, lexer.TOKEN_PRIVATE, lexer.TOKEN_FRIEND,
			lexer.TOKEN_GLOBAL, lexer.TOKEN_STATIC:
			i++
			continue
		case lexer.TOKEN_SUB, lexer.TOKEN_FUNCTION:
			return true
		case lexer.TOKEN_PROPERTY:
			next := p.peekAt(i + 1)
			return next.Is("Get") || next.Type == lexer.TOKEN_LET || next.Type == lexer.TOKEN_SET
		}
		return false
	}
}

// skipProcedure skips to just past the next End Sub/Function/Property.
func (p *parser) skipProcedure() {
	for !p.isAtEnd() {
		if p.atProcedureEnd() {
			p.advance()
			p.advance()
			return
		}
		p.advance()
	}
}

// parseParams parses a parenthesized formal parameter list.
func (p *parser) parseParams() []*ast.Parameter {
	p.expect(lexer.TOKEN_LPAREN, "'('")
	var params []*ast.Parameter
	if p.match(lexer.TOKEN_RPAREN) {
		return params
	}
	for {
		params = append(params, p.parseParam())
		if !p.match(lexer.TOKEN_COMMA) {
			break
		}
	}
	p.expect(lexer.TOKEN_RPAREN, "')' after parameters")
	return params
}

// parseParam parses
// [Optional] [ByVal|ByRef] [ParamArray] name[()] [As type] [= default].
func (p *parser) parseParam() *ast.Parameter {
	param := &ast.Parameter{Pos: pos(p.peek())}
	for modifiers := true; modifiers; {
		switch p.peek().Type {
		case lexer.TOKEN_OPTIONAL:
			param.Optional = true
		case lexer.TOKEN_BYVAL:
			param.ByVal = true
		case lexer.TOKEN_BYREF:
			param.ByVal = false
		case lexer.TOKEN_PARAMARRAY:
			param.ParamArray = true
		default:
			modifiers = false
			continue
		}
		p.advance()
	}
	n, suffixType := p.expectIdent("parameter name")
	param.Name = n
	if p.match(lexer.TOKEN_LPAREN) {
		p.expect(lexer.TOKEN_RPAREN, "')' in array parameter")
		param.IsArray = true
	}
	if p.match(lexer.TOKEN_AS) {
		param.Type = p.parseTypeRef()
	} else if suffixType != "" {
		param.Type = ast.TypeRef{Name: suffixType}
	}
	if p.match(lexer.TOKEN_EQ) {
		if !param.Optional {
			p.errorAt(p.peek(), "default value on non-Optional parameter %s", param.Name)
		}
		param.Default = p.parseExpression()
	}
	return param
}

// ── Variables and constants ──

// parseVarList parses `[WithEvents] name[(dims)] [As [New] type]`, comma
// separated. The Dim/Public keyword has been consumed.
func (p *parser) parseVarList(vis ast.Visibility) []*ast.VarDecl {
	var vars []*ast.VarDecl
	for {
		vars = append(vars, p.parseVar(vis))
		if !p.match(lexer.TOKEN_COMMA) {
			return vars
		}
	}
}

func (p *parser) parseVar(vis ast.Visibility) *ast.VarDecl {
	v := &ast.VarDecl{Pos: pos(p.peek()), Visibility: vis}
	if p.match(lexer.TOKEN_WITHEVENTS) {
		v.WithEvents = true
	}
	name, suffixType := p.expectIdent("variable name")
	v.Name = name
	if p.check(lexer.TOKEN_LPAREN) {
		v.IsArray = true
		v.Dims = p.parseDims()
	}
	if p.match(lexer.TOKEN_AS) {
		v.Type = p.parseTypeRef()
	} else if suffixType != "" {
		v.Type = ast.TypeRef{Name: suffixType}
	}
	if p.match(lexer.TOKEN_EQ) {
		v.Init = p.parseExpression()
	}
	if v.WithEvents && v.Type.IsZero() {
		p.errorAt(p.peek(), "WithEvents variable %s needs an object type", v.Name)
	}
	return v
}

// parseDims parses `(bound[, bound...])` where bound is `upper` or
// `lower To upper`. `()` yields no dimensions (a dynamic array).
func (p *parser) parseDims() []ast.Dimension {
	p.expect(lexer.TOKEN_LPAREN, "'('")
	var dims []ast.Dimension
	if p.match(lexer.TOKEN_RPAREN) {
		return dims
	}
	for {
		first := p.parseExpression()
		if p.match(lexer.TOKEN_TO) {
			dims = append(dims, ast.Dimension{Lower: first, Upper: p.parseExpression()})
		} else {
			dims = append(dims, ast.Dimension{Upper: first})
		}
		if !p.match(lexer.TOKEN_COMMA) {
			break
		}
	}
	p.expect(lexer.TOKEN_RPAREN, "')' after array bounds")
	return dims
}

// parseTypeRef parses the part after As: `[New] Name[.Name] [* length]`.
func (p *parser) parseTypeRef() ast.TypeRef {
	var t ast.TypeRef
	if p.match(lexer.TOKEN_NEW) {
		t.New = true
	}
	t.Name = p.expectName("type name")
	for p.match(lexer.TOKEN_DOT) {
		t.Name += "." + p.expectName("type name")
	}
	if p.match(lexer.TOKEN_STAR) {
		t.StringLength = p.parseUnary()
	}
	return t
}

// parseConstList parses `name [As type] = value`, comma separated.
func (p *parser) parseConstList(vis ast.Visibility) []*ast.ConstDecl {
	var consts []*ast.ConstDecl
	for {
		c := &ast.ConstDecl{Pos: pos(p.peek()), Visibility: vis}
		name, suffixType := p.expectIdent("constant name")
		c.Name = name
		if p.match(lexer.TOKEN_AS) {
			c.Type = p.parseTypeRef()
		} else if suffixType != "" {
			c.Type = ast.TypeRef{Name: suffixType}
		}
		p.expect(lexer.TOKEN_EQ, "'=' in Const")
		c.Value = p.parseExpression()
		consts = append(consts, c)
		if !p.match(lexer.TOKEN_COMMA) {
			return consts
		}
	}
}

// ── Type and Enum blocks ──

// parseTypeDecl parses Type ... End Type. Bad field lines are reported
// and skipped.
func (p *parser) parseTypeDecl(start lexer.Token, vis ast.Visibility) *ast.TypeDecl {
	p.advance() // Type
	decl := &ast.TypeDecl{Pos: pos(start), Visibility: vis}
	if !p.guard(func() {
		decl.Name, _ = p.expectIdent("type name")
		p.expectStatementEnd()
	}) {
		p.skipToEnd(lexer.TOKEN_TYPE)
		return nil
	}

	for p.parseMemberLines(lexer.TOKEN_TYPE, "Type", decl.Name) {
		start := p.pos
		var f *ast.FieldDecl
		ok := p.guard(func() {
			f = &ast.FieldDecl{Pos: pos(p.peek())}
			name, suffixType := p.expectIdent("field name")
			f.Name = name
			if p.check(lexer.TOKEN_LPAREN) {
				f.IsArray = true
				f.Dims = p.parseDims()
			}
			if p.match(lexer.TOKEN_AS) {
				f.Type = p.parseTypeRef()
			} else if suffixType != "" {
				f.Type = ast.TypeRef{Name: suffixType}
			}
			p.expectStatementEnd()
		})
		if ok {
			decl.Fields = append(decl.Fields, f)
		}
		if p.pos == start {
			p.advance()
		}
	}
	return decl
}

// parseEnumDecl parses Enum ... End Enum. Member values keep their
// source text for diagnostics.
func (p *parser) parseEnumDecl(start lexer.Token, vis ast.Visibility) *ast.EnumDecl {
	p.advance() // Enum
	decl := &ast.EnumDecl{Pos: pos(start), Visibility: vis}
	if !p.guard(func() {
		decl.Name, _ = p.expectIdent("enum name")
		p.expectStatementEnd()
	}) {
		p.skipToEnd(lexer.TOKEN_ENUM)
		return nil
	}

	for p.parseMemberLines(lexer.TOKEN_ENUM, "Enum", decl.Name) {
		start := p.pos
		var m *ast.EnumMemberDecl
		ok := p.guard(func() {
			m = &ast.EnumMemberDecl{Pos: pos(p.peek())}
			m.Name = p.expectName("enum member name")
			if p.match(lexer.TOKEN_EQ) {
				from := p.pos
				m.Value = p.parseExpression()
				m.ValueText = tokensText(p.tokens[from:p.pos])
			}
			p.expectStatementEnd()
		})
		if ok {
			decl.Members = append(decl.Members, m)
		}
		if p.pos == start {
			p.advance()
		}
	}
	return decl
}

// parseMemberLines advances to the next member line of a Type or Enum
// block. It returns false after consuming `End <closer>`, or when the block
// is cut short, in which case an error is recorded.
func (p *parser) parseMemberLines(closer lexer.TokenType, kind, name string) bool {
	for {
		p.skipSeparators()
		switch {
		case p.check(lexer.TOKEN_COMMENT) || p.check(lexer.TOKEN_REM):
			p.advance()
			continue
		case p.check(lexer.TOKEN_END) && p.peekAt(1).Type == closer:
			p.advance()
			p.advance()
			return false
		case p.isAtEnd() || p.atProcedureStart() || p.check(lexer.TOKEN_END):
			p.errorAt(p.peek(), "missing End %s for %s", kind, name)
			return false
		}
		return true
	}
}

// skipToEnd skips past `End <closer>`.
func (p *parser) skipToEnd(closer lexer.TokenType) {
	for !p.isAtEnd() {
		if p.check(lexer.TOKEN_END) && p.peekAt(1).Type == closer {
			p.advance()
			p.advance()
			return
		}
		p.advance()
	}
}

// ── Declare and Event ──

// parseDeclare parses
// Declare [PtrSafe] Sub|Function name Lib "lib" [Alias "alias"] [(params)] [As type].
func (p *parser) parseDeclare(start lexer.Token, vis ast.Visibility) *ast.DeclareDecl {
	p.advance() // Declare
	if p.peek().Is("PtrSafe") {
		p.advance()
	}
	decl := &ast.DeclareDecl{Pos: pos(start), Visibility: vis}
	switch tok := p.advance(); tok.Type {
	case lexer.TOKEN_SUB:
	case lexer.TOKEN_FUNCTION:
		decl.IsFunction = true
	default:
		p.fail(tok, "expected Sub or Function after Declare, found %s", tok)
	}
	name, suffixType := p.expectIdent("procedure name")
	decl.Name = name
	if !p.peek().Is("Lib") {
		p.fail(p.peek(), "expected Lib in Declare, found %s", p.peek())
	}
	p.advance()
	decl.Lib = p.expect(lexer.TOKEN_STRING_LIT, "library name").Literal
	if p.peek().Is("Alias") {
		p.advance()
		decl.Alias = p.expect(lexer.TOKEN_STRING_LIT, "alias name").Literal
	}
	if p.check(lexer.TOKEN_LPAREN) {
		decl.Params = p.parseParams()
	}
	if p.match(lexer.TOKEN_AS) {
		decl.ReturnType = p.parseTypeRef()
	} else if suffixType != "" {
		decl.ReturnType = ast.TypeRef{Name: suffixType}
	}
	return decl
}

// parseEvent parses Event name[(params)].
func (p *parser) parseEvent(start lexer.Token, vis ast.Visibility) *ast.EventDecl {
	p.advance() // Event
	decl := &ast.EventDecl{Pos: pos(start), Visibility: vis}
	decl.Name, _ = p.expectIdent("event name")
	if p.check(lexer.TOKEN_LPAREN) {
		decl.Params = p.parseParams()
	}
	return decl
}
