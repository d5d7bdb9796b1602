package parser

import (
	"strings"

	"github.com/barun-bash/vbport/internal/ast"
	"github.com/barun-bash/vbport/internal/lexer"
)

// unsupportedStatements are recognized statements with no translation.
// They are kept as ast.UnsupportedStmt so the generator can flag them.
var unsupportedStatements = map[string]bool{
	"open": true, "close": true, "print": true, "input": true, "write": true,
	"get": true, "put": true, "seek": true, "lock": true, "unlock": true,
	"lset": true, "rset": true, "erase": true, "stop": true, "kill": true,
	"mkdir": true, "rmdir": true, "chdir": true, "chdrive": true,
	"filecopy": true, "reset": true, "width": true, "load": true, "unload": true,
}

// ── Blocks ──

// parseBlock parses statements until a block terminator (End If, Next,
// Loop, Wend, Case, Else, ...), the end of the procedure, or EOF. The
// terminator is left for the caller.
func (p *parser) parseBlock() []ast.Stmt {
	var stmts []ast.Stmt
	for {
		p.skipSeparators()
		if p.isAtEnd() || p.atBlockTerminator() || p.atProcedureStart() || len(p.errors) >= maxErrors {
			return stmts
		}
		if s := p.parseStatementSafe(); s != nil {
			stmts = append(stmts, s)
		}
	}
}

// atBlockTerminator reports a token that closes or splits a block.
func (p *parser) atBlockTerminator() bool {
	switch p.peek().Type {
	case lexer.TOKEN_ELSE, lexer.TOKEN_ELSEIF, lexer.TOKEN_NEXT,
		lexer.TOKEN_LOOP, lexer.TOKEN_WEND, lexer.TOKEN_CASE:
		return true
	case lexer.TOKEN_END:
		switch p.peekAt(1).Type {
		case lexer.TOKEN_IF, lexer.TOKEN_SELECT, lexer.TOKEN_WITH,
			lexer.TOKEN_SUB, lexer.TOKEN_FUNCTION, lexer.TOKEN_PROPERTY,
			lexer.TOKEN_TYPE, lexer.TOKEN_ENUM:
			return true
		}
	}
	return false
}

func (p *parser) describeTerminator() string {
	tok := p.peek()
	if tok.Type == lexer.TOKEN_END {
		return "End " + p.peekAt(1).Literal
	}
	return tok.Literal
}

// expectEnd consumes `End <closer>` or reports the unclosed block opened
// by open. It does not bail out, so the enclosing block can continue.
func (p *parser) expectEnd(closer lexer.TokenType, open lexer.Token) {
	if p.check(lexer.TOKEN_END) && p.peekAt(1).Type == closer {
		p.advance()
		p.advance()
		return
	}
	p.errorAt(p.peek(), "missing End %s for %s at line %d, found %s",
		closer, open.Literal, open.Line, p.describeTerminator())
}

// expectCloser consumes a one-word closer (Next, Loop, Wend) or reports it
// missing. It returns whether the closer was found.
func (p *parser) expectCloser(closer lexer.TokenType, open lexer.Token) bool {
	if p.match(closer) {
		return true
	}
	p.errorAt(p.peek(), "missing %s for %s at line %d, found %s",
		closer, open.Literal, open.Line, p.describeTerminator())
	return false
}

// ── Statements ──

// parseStatementSafe parses one statement and checks that it ends
// cleanly. On error it resynchronizes at the next statement boundary. A
// statement that failed is dropped; one that parsed but ran into trailing
// junk is kept.
func (p *parser) parseStatementSafe() ast.Stmt {
	start := p.pos
	s := p.parseStatement()
	if p.failed {
		s = nil
	} else if _, isLabel := s.(*ast.LabelStmt); !isLabel && !p.atBlockTerminator() && !p.atProcedureStart() {
		// A block that lost its closer has already been reported; leave
		// the terminator to the enclosing block.
		p.expectStatementEnd()
	}
	if p.failed {
		p.failed = false
		p.syncStatement()
		if p.pos == start {
			p.advance()
		}
	}
	return s
}

func (p *parser) parseStatement() ast.Stmt {
	if !p.enter() {
		return nil
	}
	defer p.leave()

	tok := p.peek()
	switch tok.Type {
	case lexer.TOKEN_LABEL:
		p.advance()
		return &ast.LabelStmt{Pos: pos(tok), Name: tok.Literal}
	case lexer.TOKEN_COMMENT, lexer.TOKEN_REM:
		p.advance()
		return &ast.CommentStmt{Pos: pos(tok), Text: tok.Literal, Rem: tok.Type == lexer.TOKEN_REM}
	case lexer.TOKEN_DIM, lexer.TOKEN_STATIC:
		p.advance()
		return &ast.DimStmt{Pos: pos(tok), Static: tok.Type == lexer.TOKEN_STATIC, Vars: p.parseVarList(ast.VisibilityDefault)}
	case lexer.TOKEN_CONST:
		p.advance()
		return &ast.ConstStmt{Pos: pos(tok), Consts: p.parseConstList(ast.VisibilityDefault)}
	case lexer.TOKEN_REDIM:
		return p.parseReDim()
	case lexer.TOKEN_IF:
		return p.parseIf()
	case lexer.TOKEN_FOR:
		return p.parseFor()
	case lexer.TOKEN_DO:
		return p.parseDo()
	case lexer.TOKEN_WHILE:
		return p.parseWhile()
	case lexer.TOKEN_SELECT:
		return p.parseSelect()
	case lexer.TOKEN_WITH:
		return p.parseWith()
	case lexer.TOKEN_ON:
		return p.parseOn()
	case lexer.TOKEN_RESUME:
		return p.parseResume()
	case lexer.TOKEN_GOTO:
		p.advance()
		return &ast.GoToStmt{Pos: pos(tok), Label: p.expectLabel()}
	case lexer.TOKEN_GOSUB:
		p.advance()
		return &ast.GoSubStmt{Pos: pos(tok), Label: p.expectLabel()}
	case lexer.TOKEN_RETURN:
		p.advance()
		return &ast.ReturnStmt{Pos: pos(tok)}
	case lexer.TOKEN_EXIT:
		return p.parseExit()
	case lexer.TOKEN_CALL:
		p.advance()
		return &ast.CallStmt{Pos: pos(tok), Call: p.toCall(p.parsePostfix())}
	case lexer.TOKEN_RAISEEVENT:
		p.advance()
		stmt := &ast.RaiseEventStmt{Pos: pos(tok)}
		stmt.Name, _ = p.expectIdent("event name")
		if p.check(lexer.TOKEN_LPAREN) {
			stmt.Args = p.parseArgs()
		}
		return stmt
	case lexer.TOKEN_LET, lexer.TOKEN_SET:
		p.advance()
		target := p.parsePostfix()
		p.expect(lexer.TOKEN_EQ, "'=' in assignment")
		return &ast.AssignStmt{Pos: pos(tok), Target: target, Value: p.parseExpression(), Set: tok.Type == lexer.TOKEN_SET}
	case lexer.TOKEN_END:
		p.advance()
		if !p.atStatementEnd() {
			p.fail(p.peek(), "unexpected End %s", p.peek().Literal)
		}
		return &ast.EndStmt{Pos: pos(tok)}
	case lexer.TOKEN_ATTRIBUTE:
		p.skipRestOfLine()
		return nil
	case lexer.TOKEN_IDENTIFIER:
		if p.atUnsupportedStatement() {
			return p.parseUnsupported()
		}
		return p.parseSimpleStatement()
	case lexer.TOKEN_DOT, lexer.TOKEN_BANG:
		return p.parseSimpleStatement()
	}
	p.fail(tok, "unexpected %s", tok)
	return nil
}

// parseSimpleStatement parses an assignment or a call statement:
// `x = 1`, `a(i).b = c`, `Foo`, `Foo 1, 2`, `Foo(1)`, `obj.Method x`.
func (p *parser) parseSimpleStatement() ast.Stmt {
	start := p.peek()
	target := p.parseStatementTarget()
	if p.match(lexer.TOKEN_EQ) {
		return &ast.AssignStmt{Pos: pos(start), Target: target, Value: p.parseExpression()}
	}
	if p.atStatementEnd() {
		return &ast.CallStmt{Pos: pos(start), Call: p.toCall(target)}
	}
	call := &ast.FunctionCall{Pos: target.Position(), Callee: target, Args: p.parseBareArgs()}
	return &ast.CallStmt{Pos: pos(start), Call: call}
}

// parseStatementTarget parses the callee or assignment target at the
// start of a statement. A parenthesized group is taken as the target's
// own argument list only when what follows it cannot start a bare
// argument list, so `Foo (a) + b` passes `(a) + b` as one argument.
func (p *parser) parseStatementTarget() ast.Expr {
	expr := p.parsePrimary()
	for {
		switch p.peek().Type {
		case lexer.TOKEN_DOT, lexer.TOKEN_BANG:
			expr = p.parseMemberSuffix(expr)
		case lexer.TOKEN_LPAREN:
			if !p.parenBelongsToTarget() {
				return expr
			}
			expr = &ast.FunctionCall{Pos: expr.Position(), Callee: expr, Args: p.parseArgs()}
		default:
			return expr
		}
	}
}

func (p *parser) parenBelongsToTarget() bool {
	depth := 0
	for i := p.pos; i < len(p.tokens); i++ {
		switch p.tokens[i].Type {
		case lexer.TOKEN_LPAREN:
			depth++
		case lexer.TOKEN_RPAREN:
			depth--
			if depth == 0 {
				if i+1 >= len(p.tokens) {
					return true
				}
				switch p.tokens[i+1].Type {
				case lexer.TOKEN_DOT, lexer.TOKEN_BANG, lexer.TOKEN_LPAREN, lexer.TOKEN_EQ,
					lexer.TOKEN_NEWLINE, lexer.TOKEN_COLON, lexer.TOKEN_EOF,
					lexer.TOKEN_COMMENT, lexer.TOKEN_REM, lexer.TOKEN_ELSE:
					return true
				}
				return false
			}
		case lexer.TOKEN_NEWLINE, lexer.TOKEN_EOF:
			return true
		}
	}
	return true
}

// toCall normalizes a call statement's expression to a FunctionCall.
func (p *parser) toCall(e ast.Expr) *ast.FunctionCall {
	switch e := e.(type) {
	case *ast.FunctionCall:
		return e
	case *ast.Identifier, *ast.MemberAccess:
		return &ast.FunctionCall{Pos: e.Position(), Callee: e}
	}
	p.fail(p.peek(), "expected a procedure call, found %s", ast.ExprString(e))
	return nil
}

// expectLabel reads a GoTo/GoSub/Resume target: a name or a line number.
func (p *parser) expectLabel() string {
	tok := p.peek()
	switch tok.Type {
	case lexer.TOKEN_IDENTIFIER, lexer.TOKEN_INTEGER_LIT:
		p.advance()
		return tok.Literal
	}
	p.fail(tok, "expected label, found %s", tok)
	return ""
}

// ── If ──

func (p *parser) parseIf() ast.Stmt {
	open := p.advance()
	stmt := &ast.IfStmt{Pos: pos(open)}
	stmt.Cond = p.parseCondition(lexer.TOKEN_THEN)
	if !p.match(lexer.TOKEN_THEN) {
		p.errorAt(p.peek(), "expected Then, found %s", p.peek())
	}

	switch p.peek().Type {
	case lexer.TOKEN_NEWLINE, lexer.TOKEN_EOF, lexer.TOKEN_COMMENT, lexer.TOKEN_REM:
	default:
		// Single-line form: If c Then a: b Else d
		stmt.Then = p.parseInlineStmts()
		if p.match(lexer.TOKEN_ELSE) {
			stmt.HasElse = true
			stmt.Else = p.parseInlineStmts()
		}
		return stmt
	}

	stmt.Then = p.parseBlock()
	for p.check(lexer.TOKEN_ELSEIF) {
		tok := p.advance()
		clause := &ast.ElseIfClause{Pos: pos(tok)}
		clause.Cond = p.parseCondition(lexer.TOKEN_THEN)
		if !p.match(lexer.TOKEN_THEN) {
			p.errorAt(p.peek(), "expected Then, found %s", p.peek())
		}
		clause.Body = p.parseBlock()
		stmt.ElseIfs = append(stmt.ElseIfs, clause)
	}
	if p.match(lexer.TOKEN_ELSE) {
		stmt.HasElse = true
		stmt.Else = p.parseBlock()
	}
	p.expectEnd(lexer.TOKEN_IF, open)
	return stmt
}

// parseCondition parses a block header expression. A malformed
// condition is reported and replaced by False so the block body is still
// parsed.
func (p *parser) parseCondition(stop ...lexer.TokenType) ast.Expr {
	var cond ast.Expr
	if !p.guard(func() { cond = p.parseExpression() }, stop...) {
		return &ast.Literal{Pos: pos(p.peek()), Kind: ast.LitBoolean}
	}
	return cond
}

// parseInlineStmts parses the ':'-separated statements of a single-line
// If branch, up to Else or the end of the line.
func (p *parser) parseInlineStmts() []ast.Stmt {
	var stmts []ast.Stmt
	for {
		if tok := p.peek(); tok.Type == lexer.TOKEN_INTEGER_LIT {
			// If x Then 100 is GoTo 100.
			p.advance()
			stmts = append(stmts, &ast.GoToStmt{Pos: pos(tok), Label: tok.Literal})
		} else if s := p.parseStatement(); s != nil {
			stmts = append(stmts, s)
		}
		switch p.peek().Type {
		case lexer.TOKEN_COLON:
			p.advance()
			if p.check(lexer.TOKEN_NEWLINE) || p.isAtEnd() {
				return stmts
			}
		case lexer.TOKEN_COMMENT, lexer.TOKEN_REM:
		default:
			p.expectStatementEnd()
			return stmts
		}
	}
}

// ── Loops ──

func (p *parser) parseFor() ast.Stmt {
	open := p.advance()
	if p.match(lexer.TOKEN_EACH) {
		stmt := &ast.ForEachStmt{Pos: pos(open)}
		if !p.guard(func() {
			stmt.Var = p.parseLoopVar()
			p.expect(lexer.TOKEN_IN, "In")
			stmt.Collection = p.parseExpression()
		}) {
			stmt.Var = &ast.Identifier{Pos: stmt.Pos, Name: "_"}
			stmt.Collection = &ast.Literal{Pos: stmt.Pos, Kind: ast.LitNothing}
		}
		stmt.Body = p.parseBlock()
		p.parseNext(open)
		return stmt
	}

	stmt := &ast.ForStmt{Pos: pos(open)}
	if !p.guard(func() {
		stmt.Var = p.parseLoopVar()
		p.expect(lexer.TOKEN_EQ, "'=' in For")
		stmt.From = p.parseExpression()
		p.expect(lexer.TOKEN_TO, "To")
		stmt.To = p.parseExpression()
		if p.match(lexer.TOKEN_STEP) {
			stmt.Step = p.parseExpression()
		}
	}) {
		// Header failed; keep a well-formed node for later phases.
		zero := &ast.Literal{Pos: stmt.Pos, Kind: ast.LitInteger}
		stmt.Var = &ast.Identifier{Pos: stmt.Pos, Name: "_"}
		stmt.From, stmt.To, stmt.Step = zero, zero, nil
	}
	stmt.Body = p.parseBlock()
	p.parseNext(open)
	return stmt
}

func (p *parser) parseLoopVar() ast.Expr {
	tok := p.peek()
	name, _ := p.expectIdent("loop variable")
	return &ast.Identifier{Pos: pos(tok), Name: name}
}

// parseNext consumes `Next [var]`. In `Next i, j` the comma is rewritten
// to a Next token so the enclosing loop closes on it.
func (p *parser) parseNext(open lexer.Token) {
	if !p.expectCloser(lexer.TOKEN_NEXT, open) {
		return
	}
	if p.check(lexer.TOKEN_IDENTIFIER) {
		p.advance()
		if p.check(lexer.TOKEN_COMMA) {
			p.tokens[p.pos].Type = lexer.TOKEN_NEXT
			p.tokens[p.pos].Literal = "Next"
			p.splitAt = p.pos
		}
	}
}

func (p *parser) parseDo() ast.Stmt {
	open := p.advance()
	stmt := &ast.DoStmt{Pos: pos(open)}
	if p.check(lexer.TOKEN_WHILE) || p.check(lexer.TOKEN_UNTIL) {
		stmt.Until = p.advance().Type == lexer.TOKEN_UNTIL
		stmt.Cond = p.parseCondition()
	}
	stmt.Body = p.parseBlock()
	if !p.expectCloser(lexer.TOKEN_LOOP, open) {
		return stmt
	}
	if p.check(lexer.TOKEN_WHILE) || p.check(lexer.TOKEN_UNTIL) {
		tok := p.advance()
		if stmt.Cond != nil {
			p.errorAt(tok, "Do loop cannot test a condition at both ends")
		}
		stmt.Until = tok.Type == lexer.TOKEN_UNTIL
		stmt.PostTest = true
		stmt.Cond = p.parseCondition()
	}
	return stmt
}

func (p *parser) parseWhile() ast.Stmt {
	open := p.advance()
	stmt := &ast.WhileStmt{Pos: pos(open)}
	stmt.Cond = p.parseCondition()
	stmt.Body = p.parseBlock()
	p.expectCloser(lexer.TOKEN_WEND, open)
	return stmt
}

// ── Select Case ──

func (p *parser) parseSelect() ast.Stmt {
	open := p.advance()
	p.expect(lexer.TOKEN_CASE, "Case after Select")
	stmt := &ast.SelectStmt{Pos: pos(open)}
	stmt.Subject = p.parseCondition()

	for {
		p.skipSeparators()
		if p.check(lexer.TOKEN_COMMENT) || p.check(lexer.TOKEN_REM) {
			p.advance()
			continue
		}
		if !p.check(lexer.TOKEN_CASE) {
			break
		}
		tok := p.advance()
		if p.match(lexer.TOKEN_ELSE) {
			if stmt.HasElse {
				p.errorAt(tok, "duplicate Case Else")
			}
			stmt.HasElse = true
			stmt.Else = append(stmt.Else, p.parseBlock()...)
			continue
		}
		if stmt.HasElse {
			p.errorAt(tok, "Case after Case Else")
		}
		clause := &ast.CaseClause{Pos: pos(tok)}
		var conds []*ast.CaseCond
		if p.guard(func() { conds = p.parseCaseConds() }) {
			clause.Conds = conds
		}
		clause.Body = p.parseBlock()
		stmt.Cases = append(stmt.Cases, clause)
	}
	p.expectEnd(lexer.TOKEN_SELECT, open)
	return stmt
}

var caseIsOps = map[lexer.TokenType]ast.BinaryOperator{
	lexer.TOKEN_EQ:  ast.OpEq,
	lexer.TOKEN_NEQ: ast.OpNe,
	lexer.TOKEN_LT:  ast.OpLt,
	lexer.TOKEN_GT:  ast.OpGt,
	lexer.TOKEN_LE:  ast.OpLe,
	lexer.TOKEN_GE:  ast.OpGe,
}

// parseCaseConds parses `a, b To c, Is > d`. A bare comparison operator
// is read as if Is preceded it.
func (p *parser) parseCaseConds() []*ast.CaseCond {
	var conds []*ast.CaseCond
	for {
		p.match(lexer.TOKEN_IS)
		if op, ok := caseIsOps[p.peek().Type]; ok {
			p.advance()
			conds = append(conds, &ast.CaseCond{Kind: ast.CaseIs, Op: op, Value: p.parseExpression()})
		} else {
			value := p.parseExpression()
			if p.match(lexer.TOKEN_TO) {
				conds = append(conds, &ast.CaseCond{Kind: ast.CaseRange, Value: value, Upper: p.parseExpression()})
			} else {
				conds = append(conds, &ast.CaseCond{Kind: ast.CaseValue, Value: value})
			}
		}
		if !p.match(lexer.TOKEN_COMMA) {
			return conds
		}
	}
}

// ── With ──

func (p *parser) parseWith() ast.Stmt {
	open := p.advance()
	stmt := &ast.WithStmt{Pos: pos(open)}
	stmt.Object = p.parseCondition()
	stmt.Body = p.parseBlock()
	p.expectEnd(lexer.TOKEN_WITH, open)
	return stmt
}

// ── Error handling and jumps ──

// parseOn parses On Error GoTo label|0|-1 and On Error Resume Next.
// Computed On x GoTo/GoSub lists are kept as unsupported statements.
func (p *parser) parseOn() ast.Stmt {
	start := p.pos
	open := p.advance()
	if p.peek().Is("Local") {
		p.advance()
	}
	if !p.peek().Is("Error") {
		p.pos = start
		return p.parseUnsupported()
	}
	p.advance()

	stmt := &ast.OnErrorStmt{Pos: pos(open)}
	switch {
	case p.match(lexer.TOKEN_GOTO):
		tok := p.peek()
		switch {
		case tok.Type == lexer.TOKEN_INTEGER_LIT && tok.Literal == "0":
			p.advance()
			stmt.Mode = ast.OnErrorGoToZero
		case tok.Type == lexer.TOKEN_MINUS:
			p.advance()
			p.expect(lexer.TOKEN_INTEGER_LIT, "1 after GoTo -")
			stmt.Mode = ast.OnErrorGoToZero
		default:
			stmt.Mode = ast.OnErrorGoTo
			stmt.Label = p.expectLabel()
		}
	case p.match(lexer.TOKEN_RESUME):
		p.expect(lexer.TOKEN_NEXT, "Next after Resume")
		stmt.Mode = ast.OnErrorResumeNext
	default:
		p.fail(p.peek(), "expected GoTo or Resume Next after On Error, found %s", p.peek())
	}
	return stmt
}

func (p *parser) parseResume() ast.Stmt {
	tok := p.advance()
	stmt := &ast.ResumeStmt{Pos: pos(tok)}
	switch {
	case p.match(lexer.TOKEN_NEXT):
		stmt.Next = true
	case p.check(lexer.TOKEN_INTEGER_LIT) && p.peek().Literal == "0":
		p.advance()
	case !p.atStatementEnd():
		stmt.Label = p.expectLabel()
	}
	return stmt
}

func (p *parser) parseExit() ast.Stmt {
	tok := p.advance()
	stmt := &ast.ExitStmt{Pos: pos(tok)}
	switch kind := p.advance(); kind.Type {
	case lexer.TOKEN_SUB:
		stmt.Kind = ast.ExitSub
	case lexer.TOKEN_FUNCTION:
		stmt.Kind = ast.ExitFunction
	case lexer.TOKEN_PROPERTY:
		stmt.Kind = ast.ExitProperty
	case lexer.TOKEN_FOR:
		stmt.Kind = ast.ExitFor
	case lexer.TOKEN_DO:
		stmt.Kind = ast.ExitDo
	default:
		p.fail(kind, "expected Sub, Function, Property, For or Do after Exit, found %s", kind)
	}
	return stmt
}

// ── ReDim ──

// parseReDim parses ReDim [Preserve] name(bounds) [As type]. Further
// comma-separated arrays are split into their own ReDim statements.
func (p *parser) parseReDim() ast.Stmt {
	tok := p.advance()
	stmt := &ast.ReDimStmt{Pos: pos(tok), Preserve: p.redimPreserve}
	p.redimPreserve = false
	if p.peek().Is("Preserve") {
		p.advance()
		stmt.Preserve = true
	}
	name, suffixType := p.expectIdent("array name")
	stmt.Name = name
	stmt.Dims = p.parseDims()
	if p.match(lexer.TOKEN_AS) {
		stmt.Type = p.parseTypeRef()
	} else if suffixType != "" {
		stmt.Type = ast.TypeRef{Name: suffixType}
	}
	if p.check(lexer.TOKEN_COMMA) {
		p.tokens[p.pos].Type = lexer.TOKEN_REDIM
		p.tokens[p.pos].Literal = "ReDim"
		p.redimPreserve = stmt.Preserve
		p.splitAt = p.pos
	}
	return stmt
}

// ── Unsupported statements ──

func (p *parser) atUnsupportedStatement() bool {
	tok := p.peek()
	word := strings.ToLower(tok.Literal)
	if word == "line" {
		return p.peekAt(1).Is("Input")
	}
	if !unsupportedStatements[word] {
		return false
	}
	switch p.peekAt(1).Type {
	case lexer.TOKEN_EQ, lexer.TOKEN_DOT, lexer.TOKEN_BANG, lexer.TOKEN_ASSIGN:
		return false
	}
	return true
}

func (p *parser) parseUnsupported() ast.Stmt {
	start := p.pos
	tok := p.peek()
	keyword := tok.Literal
	if strings.EqualFold(keyword, "line") {
		keyword = "Line Input"
	}
	for !p.isAtEnd() && !p.atStatementEnd() {
		p.advance()
	}
	return &ast.UnsupportedStmt{Pos: pos(tok), Keyword: keyword, Text: tokensText(p.tokens[start:p.pos])}
}
