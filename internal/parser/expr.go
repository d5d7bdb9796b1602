package parser

import (
	"github.com/barun-bash/vbport/internal/ast"
	"github.com/barun-bash/vbport/internal/lexer"
)

// Operator precedence, lowest first. Not sits between the logical and
// the arithmetic/comparison levels; unary minus binds looser than ^, so
// -2^2 is -4.
var (
	logicalLevels = []map[lexer.TokenType]ast.BinaryOperator{
		{lexer.TOKEN_IMP: ast.OpImp},
		{lexer.TOKEN_EQV: ast.OpEqv},
		{lexer.TOKEN_XOR: ast.OpXor},
		{lexer.TOKEN_OR: ast.OpOr},
		{lexer.TOKEN_AND: ast.OpAnd},
	}
	arithLevels = []map[lexer.TokenType]ast.BinaryOperator{
		{
			lexer.TOKEN_EQ: ast.OpEq, lexer.TOKEN_NEQ: ast.OpNe,
			lexer.TOKEN_LT: ast.OpLt, lexer.TOKEN_GT: ast.OpGt,
			lexer.TOKEN_LE: ast.OpLe, lexer.TOKEN_GE: ast.OpGe,
			lexer.TOKEN_LIKE: ast.OpLike, lexer.TOKEN_IS: ast.OpIs,
		},
		{lexer.TOKEN_AMP: ast.OpConcat},
		{lexer.TOKEN_PLUS: ast.OpAdd, lexer.TOKEN_MINUS: ast.OpSub},
		{lexer.TOKEN_MOD: ast.OpMod},
		{lexer.TOKEN_BACKSLASH: ast.OpIntDiv},
		{lexer.TOKEN_STAR: ast.OpMul, lexer.TOKEN_SLASH: ast.OpDiv},
	}
)

func (p *parser) parseExpression() ast.Expr {
	return p.parseLogical(0)
}

func (p *parser) parseLogical(level int) ast.Expr {
	if level == len(logicalLevels) {
		return p.parseNot()
	}
	left := p.parseLogical(level + 1)
	for {
		op, ok := logicalLevels[level][p.peek().Type]
		if !ok {
			return left
		}
		p.advance()
		left = &ast.BinaryOp{Pos: left.Position(), Op: op, Left: left, Right: p.parseLogical(level + 1)}
	}
}

func (p *parser) parseNot() ast.Expr {
	if tok := p.peek(); tok.Type == lexer.TOKEN_NOT {
		if !p.enter() {
			return nil
		}
		defer p.leave()
		p.advance()
		return &ast.UnaryOp{Pos: pos(tok), Op: ast.OpNot, Operand: p.parseNot()}
	}
	return p.parseArith(0)
}

func (p *parser) parseArith(level int) ast.Expr {
	if level == len(arithLevels) {
		return p.parseUnary()
	}
	left := p.parseArith(level + 1)
	for {
		op, ok := arithLevels[level][p.peek().Type]
		if !ok {
			return left
		}
		p.advance()
		left = &ast.BinaryOp{Pos: left.Position(), Op: op, Left: left, Right: p.parseArith(level + 1)}
	}
}

func (p *parser) parseUnary() ast.Expr {
	tok := p.peek()
	if tok.Type == lexer.TOKEN_MINUS || tok.Type == lexer.TOKEN_PLUS {
		if !p.enter() {
			return nil
		}
		defer p.leave()
	}
	switch tok.Type {
	case lexer.TOKEN_MINUS:
		p.advance()
		return &ast.UnaryOp{Pos: pos(tok), Op: ast.OpNeg, Operand: p.parseUnary()}
	case lexer.TOKEN_PLUS:
		p.advance()
		return &ast.UnaryOp{Pos: pos(tok), Op: ast.OpPlus, Operand: p.parseUnary()}
	}
	return p.parsePower()
}

// parsePower handles left-associative ^. The exponent may carry its own
// sign: 2 ^ -1.
func (p *parser) parsePower() ast.Expr {
	left := p.parsePostfix()
	for p.check(lexer.TOKEN_CARET) {
		p.advance()
		left = &ast.BinaryOp{Pos: left.Position(), Op: ast.OpPow, Left: left, Right: p.parseSignedPostfix()}
	}
	return left
}

func (p *parser) parseSignedPostfix() ast.Expr {
	tok := p.peek()
	if tok.Type == lexer.TOKEN_MINUS || tok.Type == lexer.TOKEN_PLUS {
		if !p.enter() {
			return nil
		}
		defer p.leave()
	}
	switch tok.Type {
	case lexer.TOKEN_MINUS:
		p.advance()
		return &ast.UnaryOp{Pos: pos(tok), Op: ast.OpNeg, Operand: p.parseSignedPostfix()}
	case lexer.TOKEN_PLUS:
		p.advance()
		return &ast.UnaryOp{Pos: pos(tok), Op: ast.OpPlus, Operand: p.parseSignedPostfix()}
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary followed by any number of member
// accesses and argument lists.
func (p *parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()
	for {
		switch p.peek().Type {
		case lexer.TOKEN_DOT, lexer.TOKEN_BANG:
			expr = p.parseMemberSuffix(expr)
		case lexer.TOKEN_LPAREN:
			expr = &ast.FunctionCall{Pos: expr.Position(), Callee: expr, Args: p.parseArgs()}
		default:
			return expr
		}
	}
}

// parseMemberSuffix parses `.name` or `!name` after object. A nil object
// gives the With-relative form.
func (p *parser) parseMemberSuffix(object ast.Expr) ast.Expr {
	tok := p.advance()
	at := pos(tok)
	if object != nil {
		at = object.Position()
	}
	return &ast.MemberAccess{
		Pos:    at,
		Object: object,
		Member: p.expectName("member name"),
		Bang:   tok.Type == lexer.TOKEN_BANG,
	}
}

func (p *parser) parsePrimary() ast.Expr {
	if !p.enter() {
		return nil
	}
	defer p.leave()

	tok := p.peek()
	at := pos(tok)

	switch tok.Type {
	case lexer.TOKEN_INTEGER_LIT:
		p.advance()
		n, err := lexer.ParseInteger(tok.Literal)
		if err != nil {
			p.errorAt(tok, "invalid integer literal %s", tok.Literal)
		}
		return &ast.Literal{Pos: at, Kind: ast.LitInteger, Int: n}
	case lexer.TOKEN_FLOAT_LIT, lexer.TOKEN_CURRENCY_LIT:
		p.advance()
		f, err := lexer.ParseFloat(tok.Literal)
		if err != nil {
			p.errorAt(tok, "invalid number literal %s", tok.Literal)
		}
		kind := ast.LitFloat
		if tok.Type == lexer.TOKEN_CURRENCY_LIT {
			kind = ast.LitCurrency
		}
		return &ast.Literal{Pos: at, Kind: kind, Float: f}
	case lexer.TOKEN_STRING_LIT:
		p.advance()
		return &ast.Literal{Pos: at, Kind: ast.LitString, Str: tok.Literal}
	case lexer.TOKEN_DATE_LIT:
		p.advance()
		return &ast.Literal{Pos: at, Kind: ast.LitDate, Str: tok.Literal}
	case lexer.TOKEN_TRUE, lexer.TOKEN_FALSE:
		p.advance()
		return &ast.Literal{Pos: at, Kind: ast.LitBoolean, Bool: tok.Type == lexer.TOKEN_TRUE}
	case lexer.TOKEN_NOTHING:
		p.advance()
		return &ast.Literal{Pos: at, Kind: ast.LitNothing}
	case lexer.TOKEN_EMPTY:
		p.advance()
		return &ast.Literal{Pos: at, Kind: ast.LitEmpty}
	case lexer.TOKEN_NULL:
		p.advance()
		return &ast.Literal{Pos: at, Kind: ast.LitNull}

	case lexer.TOKEN_IDENTIFIER:
		p.advance()
		name, _ := splitSuffix(tok.Literal)
		return &ast.Identifier{Pos: at, Name: name}
	case lexer.TOKEN_DOT, lexer.TOKEN_BANG:
		return p.parseMemberSuffix(nil)

	case lexer.TOKEN_LPAREN:
		p.advance()
		inner := p.parseExpression()
		p.expect(lexer.TOKEN_RPAREN, "')'")
		return inner

	case lexer.TOKEN_MINUS, lexer.TOKEN_PLUS:
		return p.parseSignedPostfix()
	case lexer.TOKEN_NOT:
		// Not in operand position: x = Not y
		return p.parseNot()
	case lexer.TOKEN_ADDRESSOF:
		p.advance()
		return &ast.UnaryOp{Pos: at, Op: ast.OpAddressOf, Operand: p.parsePostfix()}
	case lexer.TOKEN_NEW:
		p.advance()
		return &ast.NewExpr{Pos: at, TypeName: p.parseQualifiedName("class name")}
	case lexer.TOKEN_TYPEOF:
		p.advance()
		operand := p.parsePostfix()
		p.expect(lexer.TOKEN_IS, "Is in TypeOf")
		return &ast.TypeOfExpr{Pos: at, Operand: operand, TypeName: p.parseQualifiedName("type name")}
	}

	p.fail(tok, "expected expression, found %s", tok)
	return nil
}

func (p *parser) parseQualifiedName(what string) string {
	name := p.expectName(what)
	for p.match(lexer.TOKEN_DOT) {
		name += "." + p.expectName(what)
	}
	return name
}

// ── Arguments ──

// parseArgs parses a parenthesized argument list. Empty slots become
// *ast.MissingArg: Foo(1, , 3).
func (p *parser) parseArgs() []*ast.Arg {
	p.expect(lexer.TOKEN_LPAREN, "'('")
	var args []*ast.Arg
	if p.match(lexer.TOKEN_RPAREN) {
		return args
	}
	for {
		args = append(args, p.parseArg())
		if !p.match(lexer.TOKEN_COMMA) {
			break
		}
	}
	p.expect(lexer.TOKEN_RPAREN, "')' after arguments")
	return args
}

// parseBareArgs parses the unparenthesized arguments of a call
// statement, up to the end of the statement.
func (p *parser) parseBareArgs() []*ast.Arg {
	var args []*ast.Arg
	for {
		args = append(args, p.parseArg())
		if !p.match(lexer.TOKEN_COMMA) {
			return args
		}
	}
}

// parseArg parses one argument: an expression, `name:=expr`, or nothing.
// ByVal before an argument (used with Declare functions) is accepted and
// ignored.
func (p *parser) parseArg() *ast.Arg {
	tok := p.peek()
	if tok.Type == lexer.TOKEN_COMMA || tok.Type == lexer.TOKEN_RPAREN || p.atStatementEnd() {
		return &ast.Arg{Value: &ast.MissingArg{Pos: pos(tok)}}
	}
	if tok.Type == lexer.TOKEN_IDENTIFIER && p.peekAt(1).Type == lexer.TOKEN_ASSIGN {
		p.advance()
		p.advance()
		name, _ := splitSuffix(tok.Literal)
		return &ast.Arg{Name: name, Value: p.parseExpression()}
	}
	p.match(lexer.TOKEN_BYVAL)
	return &ast.Arg{Value: p.parseExpression()}
}
