package yul

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the Yul lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenIdentifier // foo, $bar, x.y
	TokenNumber     // 42, 0xff
	TokenString     // "abc", 'abc'
	TokenHexString  // hex"00ff"

	// Delimiters
	TokenLBrace // {
	TokenRBrace // }
	TokenLParen // (
	TokenRParen // )
	TokenComma  // ,
	TokenColon  // :
	TokenAssign // :=
	TokenArrow  // ->

	// Keywords
	TokenFunction
	TokenLet
	TokenIf
	TokenSwitch
	TokenCase
	TokenDefault
	TokenFor
	TokenBreak
	TokenContinue
	TokenLeave
	TokenTrue
	TokenFalse
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenIdentifier: "IDENTIFIER",
	TokenNumber:     "NUMBER",
	TokenString:     "STRING",
	TokenHexString:  "HEXSTRING",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenComma:      ",",
	TokenColon:      ":",
	TokenAssign:     ":=",
	TokenArrow:      "->",
	TokenFunction:   "function",
	TokenLet:        "let",
	TokenIf:         "if",
	TokenSwitch:     "switch",
	TokenCase:       "case",
	TokenDefault:    "default",
	TokenFor:        "for",
	TokenBreak:      "break",
	TokenContinue:   "continue",
	TokenLeave:      "leave",
	TokenTrue:       "true",
	TokenFalse:      "false",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text
	Pos     Position // start position
	End     int      // byte offset just past the token
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Location returns the half-open byte range covered by the token.
func (t Token) Location() SourceLocation {
	return SourceLocation{Start: t.Pos.Offset, End: t.End}
}

// Reserved words mapped to their token types.
var keywords = map[string]TokenType{
	"function": TokenFunction,
	"let":      TokenLet,
	"if":       TokenIf,
	"switch":   TokenSwitch,
	"case":     TokenCase,
	"default":  TokenDefault,
	"for":      TokenFor,
	"break":    TokenBreak,
	"continue": TokenContinue,
	"leave":    TokenLeave,
	"true":     TokenTrue,
	"false":    TokenFalse,
}

// Position is a point in source text.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}
