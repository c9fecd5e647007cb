package syntax

import "github.com/malphas-lang/matchc/internal/diag"

// TokenType represents the type of a token
type TokenType string

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string // decoded value for strings and chars, source text otherwise
	Span    diag.Span
}

const (
	// Special tokens
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	// Identifiers and literals
	IDENT  TokenType = "IDENT"  // x, Some, _
	INT    TokenType = "INT"    // 1343456
	STRING TokenType = "STRING" // "hello"
	CHAR   TokenType = "CHAR"   // 'a'

	// Operators
	ASSIGN    TokenType = "="
	FATARROW  TokenType = "=>"
	PLUS      TokenType = "+"
	MINUS     TokenType = "-"
	BANG      TokenType = "!"
	AMPERSAND TokenType = "&"
	ASTERISK  TokenType = "*"
	AND       TokenType = "&&"
	OR        TokenType = "||"
	PIPE      TokenType = "|"
	AT        TokenType = "@"
	DOTDOT    TokenType = ".."
	DOTDOTEQ  TokenType = "..="

	LT     TokenType = "<"
	GT     TokenType = ">"
	EQ     TokenType = "=="
	NOT_EQ TokenType = "!="
	LE     TokenType = "<="
	GE     TokenType = ">="

	// Delimiters
	COMMA        TokenType = ","
	SEMICOLON    TokenType = ";"
	COLON        TokenType = ":"
	DOUBLE_COLON TokenType = "::"
	DOT          TokenType = "."
	ARROW        TokenType = "->"

	LPAREN   TokenType = "("
	RPAREN   TokenType = ")"
	LBRACE   TokenType = "{"
	RBRACE   TokenType = "}"
	LBRACKET TokenType = "["
	RBRACKET TokenType = "]"

	// Keywords
	LET    TokenType = "LET"
	MUT    TokenType = "MUT"
	REF    TokenType = "REF"
	FN     TokenType = "FN"
	STRUCT TokenType = "STRUCT"
	ENUM   TokenType = "ENUM"
	IF     TokenType = "IF"
	ELSE   TokenType = "ELSE"
	MATCH  TokenType = "MATCH"
	RETURN TokenType = "RETURN"
	TRUE   TokenType = "TRUE"
	FALSE  TokenType = "FALSE"
	BOX    TokenType = "BOX"
)

var keywords = map[string]TokenType{
	"let":    LET,
	"mut":    MUT,
	"ref":    REF,
	"fn":     FN,
	"struct": STRUCT,
	"enum":   ENUM,
	"if":     IF,
	"else":   ELSE,
	"match":  MATCH,
	"return": RETURN,
	"true":   TRUE,
	"false":  FALSE,
	"box":    BOX,
}

// LookupIdent checks if the identifier is a keyword
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
