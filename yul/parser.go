package yul

import "fmt"

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for Yul
// ---------------------------------------------------------------------------

// ParseError describes the first syntax error in a document.
type ParseError struct {
	Offset  int
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// Location returns a range covering at least one byte at the error offset.
func (e *ParseError) Location() SourceLocation {
	return SourceLocation{Start: e.Offset, End: e.Offset + 1}
}

// bailout unwinds the parser after the first error.
type bailout struct{}

// Parser parses Yul source code into an AST.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	prevEnd   int // end offset of the last consumed token
	input     string
	err       *ParseError
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
		input: input,
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.prevEnd = p.curToken.End
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect consumes the current token if it matches and fails otherwise.
func (p *Parser) expect(t TokenType) Token {
	tok := p.curToken
	if tok.Type != t {
		p.unexpected(fmt.Sprintf("expected %s", t))
	}
	p.nextToken()
	return tok
}

// unexpected fails at the current token. Lexer errors take precedence over
// the parser's own message.
func (p *Parser) unexpected(what string) {
	if p.curTokenIs(TokenError) {
		p.fail(p.curToken.Pos, "%s", p.curToken.Literal)
	}
	p.fail(p.curToken.Pos, "%s, got %s", what, p.describe(p.curToken))
}

func (p *Parser) describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of input"
	case TokenIdentifier, TokenNumber, TokenString, TokenHexString:
		return fmt.Sprintf("%s %s", tok.Type, tok.Literal)
	}
	return fmt.Sprintf("%q", tok.Type.String())
}

// fail records the error and unwinds to Parse.
func (p *Parser) fail(pos Position, format string, args ...interface{}) {
	p.err = &ParseError{
		Offset:  pos.Offset,
		Line:    pos.Line,
		Column:  pos.Column,
		Message: fmt.Sprintf(format, args...),
	}
	panic(bailout{})
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// Parse parses a Yul document. A document that is exactly one block yields
// that block; any other sequence of statements is wrapped in an implicit
// root block spanning the whole input.
func Parse(src string) (*Block, error) {
	return NewParser(src).ParseDocument()
}

// ParseDocument parses the whole input. The returned error is a
// *ParseError.
func (p *Parser) ParseDocument() (root *Block, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			root, err = nil, p.err
		}
	}()

	var stmts []Statement
	for !p.curTokenIs(TokenEOF) {
		stmts = append(stmts, p.parseStatement())
	}

	if len(stmts) == 1 {
		if b, ok := stmts[0].(*Block); ok {
			return b, nil
		}
	}
	return &Block{Statements: stmts, Location: loc(0, len(p.input))}, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) parseStatement() Statement {
	switch p.curToken.Type {
	case TokenLBrace:
		return p.parseBlock()
	case TokenFunction:
		return p.parseFunctionDefinition()
	case TokenLet:
		return p.parseVariableDeclaration()
	case TokenIf:
		return p.parseIf()
	case TokenSwitch:
		return p.parseSwitch()
	case TokenFor:
		return p.parseForLoop()
	case TokenBreak:
		tok := p.expect(TokenBreak)
		return &Break{Location: loc(tok.Pos.Offset, tok.End)}
	case TokenContinue:
		tok := p.expect(TokenContinue)
		return &Continue{Location: loc(tok.Pos.Offset, tok.End)}
	case TokenLeave:
		tok := p.expect(TokenLeave)
		return &Leave{Location: loc(tok.Pos.Offset, tok.End)}
	case TokenIdentifier:
		if p.peekTokenIs(TokenLParen) {
			call := p.parseFunctionCall()
			return &ExpressionStatement{Expression: call, Location: call.Location}
		}
		return p.parseAssignment()
	}
	p.unexpected("expected statement")
	return nil
}

func (p *Parser) parseBlock() *Block {
	start := p.expect(TokenLBrace).Pos.Offset
	var stmts []Statement
	for !p.curTokenIs(TokenRBrace) {
		if p.curTokenIs(TokenEOF) {
			p.unexpected("expected \"}\"")
		}
		stmts = append(stmts, p.parseStatement())
	}
	p.nextToken()
	return &Block{Statements: stmts, Location: loc(start, p.prevEnd)}
}

// function name(a, b) -> r, s { ... }
func (p *Parser) parseFunctionDefinition() *FunctionDefinition {
	start := p.expect(TokenFunction).Pos.Offset
	name := p.parseIdentifier()
	fd := &FunctionDefinition{Name: name}

	p.expect(TokenLParen)
	if !p.curTokenIs(TokenRParen) {
		fd.Parameters = p.parseTypedIdentifierList()
	}
	p.expect(TokenRParen)

	if p.curTokenIs(TokenArrow) {
		p.nextToken()
		fd.Returns = p.parseTypedIdentifierList()
	}

	fd.Body = p.parseBlock()
	fd.Location = loc(start, p.prevEnd)
	return fd
}

// let a, b := value
func (p *Parser) parseVariableDeclaration() *VariableDeclaration {
	start := p.expect(TokenLet).Pos.Offset
	decl := &VariableDeclaration{Variables: p.parseTypedIdentifierList()}
	if p.curTokenIs(TokenAssign) {
		p.nextToken()
		decl.Value = p.parseExpression()
	}
	decl.Location = loc(start, p.prevEnd)
	return decl
}

// a, b := value
func (p *Parser) parseAssignment() *Assignment {
	start := p.curToken.Pos.Offset
	var vars []*Identifier
	for {
		vars = append(vars, p.parseIdentifier())
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}
	p.expect(TokenAssign)
	value := p.parseExpression()
	return &Assignment{Variables: vars, Value: value, Location: loc(start, p.prevEnd)}
}

func (p *Parser) parseIf() *If {
	start := p.expect(TokenIf).Pos.Offset
	cond := p.parseExpression()
	body := p.parseBlock()
	return &If{Condition: cond, Body: body, Location: loc(start, p.prevEnd)}
}

// switch expr case L { ... } ... default { ... }
func (p *Parser) parseSwitch() *Switch {
	start := p.expect(TokenSwitch).Pos.Offset
	sw := &Switch{Expression: p.parseExpression()}

	for p.curTokenIs(TokenCase) {
		caseStart := p.curToken.Pos.Offset
		p.nextToken()
		value := p.parseLiteral()
		body := p.parseBlock()
		sw.Cases = append(sw.Cases, &Case{Value: value, Body: body, Location: loc(caseStart, p.prevEnd)})
	}
	if p.curTokenIs(TokenDefault) {
		caseStart := p.curToken.Pos.Offset
		p.nextToken()
		body := p.parseBlock()
		sw.Cases = append(sw.Cases, &Case{Body: body, Location: loc(caseStart, p.prevEnd)})
	}
	if len(sw.Cases) == 0 {
		p.unexpected("expected \"case\" or \"default\"")
	}

	sw.Location = loc(start, p.prevEnd)
	return sw
}

// for { pre } condition { post } { body }
func (p *Parser) parseForLoop() *ForLoop {
	start := p.expect(TokenFor).Pos.Offset
	f := &ForLoop{}
	f.Pre = p.parseBlock()
	f.Condition = p.parseExpression()
	f.Post = p.parseBlock()
	f.Body = p.parseBlock()
	f.Location = loc(start, p.prevEnd)
	return f
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (p *Parser) parseExpression() Expression {
	switch p.curToken.Type {
	case TokenIdentifier:
		if p.peekTokenIs(TokenLParen) {
			return p.parseFunctionCall()
		}
		return p.parseIdentifier()
	case TokenNumber, TokenString, TokenHexString, TokenTrue, TokenFalse:
		return p.parseLiteral()
	}
	p.unexpected("expected expression")
	return nil
}

func (p *Parser) parseFunctionCall() *FunctionCall {
	start := p.curToken.Pos.Offset
	call := &FunctionCall{Function: p.parseIdentifier()}
	p.expect(TokenLParen)
	if !p.curTokenIs(TokenRParen) {
		for {
			call.Arguments = append(call.Arguments, p.parseExpression())
			if !p.curTokenIs(TokenComma) {
				break
			}
			p.nextToken()
		}
	}
	p.expect(TokenRParen)
	call.Location = loc(start, p.prevEnd)
	return call
}

func (p *Parser) parseIdentifier() *Identifier {
	tok := p.expect(TokenIdentifier)
	l := tok.Location()
	return &Identifier{Name: tok.Literal, Location: &l}
}

// parseTypedIdentifierList parses `a, b:u256, c`.
func (p *Parser) parseTypedIdentifierList() []*Identifier {
	var ids []*Identifier
	for {
		id := p.parseIdentifier()
		id.Type = p.parseTypeSuffix()
		ids = append(ids, id)
		if !p.curTokenIs(TokenComma) {
			return ids
		}
		p.nextToken()
	}
}

// parseLiteral parses a literal with an optional `:type` suffix. The
// literal's location covers the literal text only.
func (p *Parser) parseLiteral() *Literal {
	tok := p.curToken
	var kind LiteralKind
	switch tok.Type {
	case TokenNumber:
		kind = NumberLiteral
	case TokenString:
		kind = StringLiteral
	case TokenHexString:
		kind = HexStringLiteral
	case TokenTrue, TokenFalse:
		kind = BoolLiteral
	default:
		p.unexpected("expected literal")
	}
	p.nextToken()

	l := tok.Location()
	lit := &Literal{Literal: tok.Literal, Kind: kind, Location: &l}
	lit.Type = p.parseTypeSuffix()
	return lit
}

func (p *Parser) parseTypeSuffix() string {
	if !p.curTokenIs(TokenColon) {
		return ""
	}
	p.nextToken()
	return p.expect(TokenIdentifier).Literal
}
