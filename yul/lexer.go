package yul

import (
	"fmt"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for Yul source
// ---------------------------------------------------------------------------

// Lexer tokenizes Yul source code. All offsets it reports are byte offsets
// into the input.
type Lexer struct {
	input     string
	pos       int  // current position in input
	readPos   int  // reading position (after current char)
	ch        rune // current character
	line      int  // current line (1-based)
	lineStart int  // offset of current line start
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.lineStart = l.readPos
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = len(l.input)
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// atEOF reports whether the whole input has been consumed. A literal NUL
// in the input is not EOF.
func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.pos - l.lineStart + 1,
	}
}

func (l *Lexer) token(t TokenType, pos Position) Token {
	return Token{Type: t, Literal: l.input[pos.Offset:l.pos], Pos: pos, End: l.pos}
}

func (l *Lexer) errorToken(pos Position, format string, args ...interface{}) Token {
	return Token{Type: TokenError, Literal: fmt.Sprintf(format, args...), Pos: pos, End: l.pos}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	if pos, ok := l.skipWhitespaceAndComments(); !ok {
		return l.errorToken(pos, "unterminated comment")
	}

	pos := l.position()

	if l.atEOF() {
		return Token{Type: TokenEOF, Pos: pos, End: pos.Offset}
	}

	switch {
	case l.ch == '{':
		l.readChar()
		return l.token(TokenLBrace, pos)

	case l.ch == '}':
		l.readChar()
		return l.token(TokenRBrace, pos)

	case l.ch == '(':
		l.readChar()
		return l.token(TokenLParen, pos)

	case l.ch == ')':
		l.readChar()
		return l.token(TokenRParen, pos)

	case l.ch == ',':
		l.readChar()
		return l.token(TokenComma, pos)

	case l.ch == ':':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return l.token(TokenAssign, pos)
		}
		return l.token(TokenColon, pos)

	case l.ch == '-' && l.peekChar() == '>':
		l.readChar()
		l.readChar()
		return l.token(TokenArrow, pos)

	case l.ch == '"' || l.ch == '\'':
		return l.readString(pos, TokenString)

	case isDigit(l.ch):
		return l.readNumber(pos)

	case isIdentifierStart(l.ch):
		return l.readIdentifierOrKeyword(pos)

	default:
		ch := l.ch
		l.readChar()
		return l.errorToken(pos, "unexpected character: %q", ch)
	}
}

// skipWhitespaceAndComments skips whitespace, // line comments and /* */
// block comments. It reports false (and the comment start) when a block
// comment is not terminated.
func (l *Lexer) skipWhitespaceAndComments() (Position, bool) {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			start := l.position()
			l.readChar()
			l.readChar()
			for !(l.ch == '*' && l.peekChar() == '/') {
				if l.atEOF() {
					return start, false
				}
				l.readChar()
			}
			l.readChar()
			l.readChar()
			continue
		}

		return Position{}, true
	}
}

// readString reads a quoted string literal. The token literal keeps the
// quotes and escape sequences exactly as written.
func (l *Lexer) readString(pos Position, t TokenType) Token {
	quote := l.ch
	l.readChar() // consume opening quote

	for l.ch != quote {
		if l.atEOF() || l.ch == '\n' {
			return l.errorToken(pos, "unterminated string")
		}
		if t == TokenHexString {
			if !isHexDigit(l.ch) && l.ch != '_' {
				return l.errorToken(pos, "invalid character %q in hex string", l.ch)
			}
			l.readChar()
			continue
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case '\\', '\'', '"', 'n', 'r', 't', 'b', 'f', 'v', '0', '\n':
				l.readChar()
			case 'x':
				l.readChar()
				for i := 0; i < 2; i++ {
					if !isHexDigit(l.ch) {
						return l.errorToken(pos, "invalid \\x escape in string")
					}
					l.readChar()
				}
			case 'u':
				l.readChar()
				for i := 0; i < 4; i++ {
					if !isHexDigit(l.ch) {
						return l.errorToken(pos, "invalid \\u escape in string")
					}
					l.readChar()
				}
			default:
				if l.atEOF() {
					return l.errorToken(pos, "unterminated string")
				}
				return l.errorToken(pos, "invalid escape sequence \\%c", l.ch)
			}
			continue
		}
		l.readChar()
	}
	l.readChar() // consume closing quote

	return l.token(t, pos)
}

// readNumber reads a decimal or 0x-prefixed hexadecimal number.
func (l *Lexer) readNumber(pos Position) Token {
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar() // 0
		l.readChar() // x
		if !isHexDigit(l.ch) {
			return l.errorToken(pos, "hex number literal without digits")
		}
		for isHexDigit(l.ch) {
			l.readChar()
		}
	} else {
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if isIdentifierPart(l.ch) {
		for isIdentifierPart(l.ch) {
			l.readChar()
		}
		return l.errorToken(pos, "invalid number literal %q", l.input[pos.Offset:l.pos])
	}

	return l.token(TokenNumber, pos)
}

// readIdentifierOrKeyword reads an identifier, a keyword, or a hex"..."
// string literal.
func (l *Lexer) readIdentifierOrKeyword(pos Position) Token {
	for isIdentifierPart(l.ch) {
		l.readChar()
	}

	literal := l.input[pos.Offset:l.pos]

	if literal == "hex" && (l.ch == '"' || l.ch == '\'') {
		return l.readString(pos, TokenHexString)
	}

	if tokType, ok := keywords[literal]; ok {
		return l.token(tokType, pos)
	}

	return l.token(TokenIdentifier, pos)
}

// Helper functions

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isIdentifierStart(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r == '$'
}

func isIdentifierPart(r rune) bool {
	return isIdentifierStart(r) || isDigit(r) || r == '.'
}

// Tokenize returns all tokens from the input, stopping after EOF or the
// first error token.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}
	return tokens
}
