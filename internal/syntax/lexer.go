package syntax

import (
	"strconv"
	"unicode"

	"github.com/malphas-lang/matchc/internal/diag"
)

// Lexer represents the lexer state
type Lexer struct {
	input    []rune
	pos      int  // index of the current rune
	ch       rune // current rune (0 = EOF)
	line     int  // current line number (1-based)
	column   int  // current column number (1-based)
	filename string

	Errors []diag.Diagnostic
}

// NewLexer creates a new lexer for the given input.
func NewLexer(filename, input string) *Lexer {
	l := &Lexer{
		input:    []rune(input),
		pos:      -1, // start before first rune
		line:     1,
		filename: filename,
	}
	l.read()
	return l
}

func (l *Lexer) addError(code diag.Code, msg string, span diag.Span) {
	l.Errors = append(l.Errors, diag.Errorf(diag.StageLexer, code, span, "%s", msg))
}

// read advances the lexer to the next character.
// line/column always reflect the position of the character at pos.
func (l *Lexer) read() {
	l.pos++
	prev := l.pos - 1

	if prev >= 0 && prev < len(l.input) && l.input[prev] == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}

	if l.pos >= len(l.input) {
		l.ch = 0 // EOF
		return
	}

	l.ch = l.input[l.pos]
}

// peek returns the next character without advancing
func (l *Lexer) peek() rune {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *Lexer) span(line, column, start int) diag.Span {
	return diag.Span{Filename: l.filename, Line: line, Column: column, Start: start, End: l.pos}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.read()
		case l.ch == '/' && l.peek() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.read()
			}
		default:
			return
		}
	}
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	line, column, start := l.line, l.column, l.pos

	tok := func(tt TokenType, n int) Token {
		for i := 0; i < n; i++ {
			l.read()
		}
		sp := l.span(line, column, start)
		return Token{Type: tt, Literal: string(l.input[start:l.pos]), Span: sp}
	}

	two := func(next rune, double, single TokenType) Token {
		if l.peek() == next {
			return tok(double, 2)
		}
		return tok(single, 1)
	}

	switch l.ch {
	case 0:
		return Token{Type: EOF, Span: diag.Span{Filename: l.filename, Line: line, Column: column, Start: start, End: start}}

	case '=':
		if l.peek() == '>' {
			return tok(FATARROW, 2)
		}
		return two('=', EQ, ASSIGN)
	case '!':
		return two('=', NOT_EQ, BANG)
	case '<':
		return two('=', LE, LT)
	case '>':
		return two('=', GE, GT)
	case '&':
		return two('&', AND, AMPERSAND)
	case '|':
		return two('|', OR, PIPE)
	case ':':
		return two(':', DOUBLE_COLON, COLON)
	case '-':
		return two('>', ARROW, MINUS)
	case '.':
		if l.peek() != '.' {
			return tok(DOT, 1)
		}
		if l.pos+2 < len(l.input) && l.input[l.pos+2] == '=' {
			return tok(DOTDOTEQ, 3)
		}
		return tok(DOTDOT, 2)

	case '+':
		return tok(PLUS, 1)
	case '*':
		return tok(ASTERISK, 1)
	case '@':
		return tok(AT, 1)
	case ',':
		return tok(COMMA, 1)
	case ';':
		return tok(SEMICOLON, 1)
	case '(':
		return tok(LPAREN, 1)
	case ')':
		return tok(RPAREN, 1)
	case '{':
		return tok(LBRACE, 1)
	case '}':
		return tok(RBRACE, 1)
	case '[':
		return tok(LBRACKET, 1)
	case ']':
		return tok(RBRACKET, 1)

	case '"':
		return l.readQuoted(STRING, '"', line, column, start)
	case '\'':
		return l.readQuoted(CHAR, '\'', line, column, start)
	}

	switch {
	case isLetter(l.ch):
		for isLetter(l.ch) || isDigit(l.ch) {
			l.read()
		}
		lit := string(l.input[start:l.pos])
		return Token{Type: LookupIdent(lit), Literal: lit, Span: l.span(line, column, start)}

	case isDigit(l.ch):
		for isDigit(l.ch) || l.ch == '_' {
			l.read()
		}
		return Token{Type: INT, Literal: string(l.input[start:l.pos]), Span: l.span(line, column, start)}
	}

	t := tok(ILLEGAL, 1)
	l.addError(diag.CodeLexerIllegalRune, "illegal character "+strconv.QuoteRune(rune(t.Literal[0])), t.Span)

	return t
}

// readQuoted reads a string or char literal. The literal of the token is
// the decoded value.
func (l *Lexer) readQuoted(tt TokenType, quote rune, line, column, start int) Token {
	l.read() // opening quote

	for l.ch != quote {
		if l.ch == 0 || l.ch == '\n' {
			sp := l.span(line, column, start)
			l.addError(diag.CodeLexerUnterminatedString, "unterminated literal", sp)
			return Token{Type: ILLEGAL, Literal: string(l.input[start:l.pos]), Span: sp}
		}
		if l.ch == '\\' {
			l.read()
		}
		l.read()
	}

	l.read() // closing quote

	raw := string(l.input[start:l.pos])
	sp := l.span(line, column, start)

	var val string
	var err error
	if tt == CHAR {
		var r rune
		r, _, _, err = strconv.UnquoteChar(raw[1:len(raw)-1], '\'')
		val = string(r)
	} else {
		val, err = strconv.Unquote(raw)
	}
	if err != nil {
		l.addError(diag.CodeLexerIllegalRune, "invalid literal "+raw, sp)
		return Token{Type: ILLEGAL, Literal: raw, Span: sp}
	}

	return Token{Type: tt, Literal: val, Span: sp}
}

func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
