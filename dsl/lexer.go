package dsl

import (
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/rlch/complete"
)

// Token type constants - negative values as per participle convention.
const (
	TokenEOF        lexer.TokenType = lexer.EOF
	TokenComment    lexer.TokenType = -(iota + 2) //nolint:mnd // participle convention
	TokenRawString                                // backtick strings
	TokenString                                   // quoted strings
	TokenNumber                                   // all number formats
	TokenIdent                                    // identifiers including $-prefixed
	TokenOp                                       // operators
	TokenDot                                      // .
	TokenColon                                    // :
	TokenComma                                    // ,
	TokenSemi                                     // ;
	TokenLParen                                   // (
	TokenRParen                                   // )
	TokenLBracket                                 // [
	TokenRBracket                                 // ]
	TokenLBrace                                   // {
	TokenRBrace                                   // }
	TokenWhitespace                               // spaces, tabs, newlines
	TokenInvalid                                  // text the lexer rejected, only produced by Tokenize
	// Structural keywords - distinct token types so the grammar can tell them from identifiers.
	TokenQuery    // query
	TokenImport   // import
	TokenSetup    // setup
	TokenTeardown // teardown
	TokenTest     // test
	TokenGroup    // group
	TokenAssert   // assert
)

// keywords maps keyword strings to their token types.
// Only structural keywords are here - literals like true/false/null remain identifiers.
var keywords = map[string]lexer.TokenType{
	"query":    TokenQuery,
	"import":   TokenImport,
	"setup":    TokenSetup,
	"teardown": TokenTeardown,
	"test":     TokenTest,
	"group":    TokenGroup,
	"assert":   TokenAssert,
}

// Lexer errors.
var (
	ErrUnterminatedRawString = &LexerError{msg: "unterminated raw string"}
	ErrUnterminatedString    = &LexerError{msg: "unterminated string"}
	ErrUnexpectedCharacter   = &LexerError{msg: "unexpected character"}
)

// LexerError represents a lexer error with position.
type LexerError struct {
	msg string
	pos lexer.Position
	ch  rune
}

func (e *LexerError) Error() string {
	if e.ch != 0 {
		return e.pos.String() + ": " + e.msg + ": " + string(e.ch)
	}

	return e.pos.String() + ": " + e.msg
}

// Is matches lexer errors by message so positioned copies compare equal to
// the exported sentinels.
func (e *LexerError) Is(target error) bool {
	t, ok := target.(*LexerError)

	return ok && t.msg == e.msg
}

func (e *LexerError) withPos(pos lexer.Position) *LexerError {
	return &LexerError{msg: e.msg, pos: pos, ch: e.ch}
}

func (e *LexerError) withChar(ch rune) *LexerError {
	return &LexerError{msg: e.msg, pos: e.pos, ch: ch}
}

// definition implements lexer.Definition for the scaf DSL.
type definition struct {
	symbols map[string]lexer.TokenType
	names   map[lexer.TokenType]string
}

func newDefinition() *definition {
	symbols := map[string]lexer.TokenType{
		"EOF":        TokenEOF,
		"Comment":    TokenComment,
		"RawString":  TokenRawString,
		"String":     TokenString,
		"Number":     TokenNumber,
		"Ident":      TokenIdent,
		"Op":         TokenOp,
		"Dot":        TokenDot,
		"Colon":      TokenColon,
		"Comma":      TokenComma,
		"Semi":       TokenSemi,
		"Whitespace": TokenWhitespace,
		"Invalid":    TokenInvalid,
		// Individual bracket tokens for grammar rules
		"(": TokenLParen,
		")": TokenRParen,
		"[": TokenLBracket,
		"]": TokenRBracket,
		"{": TokenLBrace,
		"}": TokenRBrace,
	}

	for kw, typ := range keywords {
		symbols[kw] = typ
	}

	names := make(map[lexer.TokenType]string, len(symbols))
	for name, typ := range symbols {
		names[typ] = name
	}

	return &definition{symbols: symbols, names: names}
}

// Symbols returns the mapping of symbol names to token types.
func (d *definition) Symbols() map[string]lexer.TokenType {
	return d.symbols
}

// Lex creates a new Lexer for the given reader.
//
//nolint:ireturn // Required by participle's lexer.Definition interface.
func (d *definition) Lex(filename string, r io.Reader) (lexer.Lexer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return d.LexString(filename, string(data))
}

// LexBytes implements lexer.BytesDefinition.
//
//nolint:ireturn // Required by participle's lexer.BytesDefinition interface.
func (d *definition) LexBytes(filename string, data []byte) (lexer.Lexer, error) {
	return d.LexString(filename, string(data))
}

// LexString implements lexer.StringDefinition.
//
//nolint:ireturn // Required by participle's lexer.StringDefinition interface.
func (d *definition) LexString(filename string, input string) (lexer.Lexer, error) {
	return newLexerState(filename, input), nil
}

// Definition returns the lexer definition shared by the parser and Tokenize.
func Definition() lexer.Definition { //nolint:ireturn
	return dslLexer
}

// TokenName returns the symbol name of a token type ("Ident", "query", "{").
func TokenName(typ lexer.TokenType) string {
	if name, ok := dslLexer.names[typ]; ok {
		return name
	}

	return "Unknown"
}

// Token is a lexed token with its absolute byte range. Tokens are the
// elements of a Document.
type Token struct {
	Type  lexer.TokenType
	Value string
	Span  complete.TextRange
	// Line and Column are 1-based.
	Line   int
	Column int
}

// Kind implements complete.Element.
func (t *Token) Kind() string { return TokenName(t.Type) }

// Range implements complete.Element.
func (t *Token) Range() complete.TextRange { return t.Span }

// Text implements complete.Element.
func (t *Token) Text() string { return t.Value }

// Significant reports whether the token carries syntax (not whitespace or a comment).
func (t *Token) Significant() bool {
	return t.Type != TokenWhitespace && t.Type != TokenComment
}

// Literal reports whether the token is a string, raw string or comment, or
// an unterminated one the lexer gave up on.
func (t *Token) Literal() bool {
	switch t.Type {
	case TokenString, TokenRawString, TokenComment:
		return true
	case TokenInvalid:
		return strings.HasPrefix(t.Value, "`") || strings.HasPrefix(t.Value, `"`) || strings.HasPrefix(t.Value, "'")
	default:
		return false
	}
}

// IsIdent reports whether the token is a plain or $-prefixed identifier.
func (t *Token) IsIdent() bool {
	return t != nil && t.Type == TokenIdent
}

// Tokenize lexes src without stopping at errors. Text the lexer rejects
// becomes a TokenInvalid token: an unterminated string runs to the end of its
// line, an unterminated raw string to the end of the input, and an unexpected
// character covers itself. Whitespace and comments are kept, so the tokens
// cover src without gaps.
func Tokenize(src string) []*Token {
	l := newLexerState("", src)

	var tokens []*Token

	for !l.eof() {
		start := l.pos()

		tok, err := l.Next()
		if err != nil {
			if l.offset == start.Offset {
				l.advance()
			}

			tok = l.token(TokenInvalid, start)
		}

		tokens = append(tokens, &Token{
			Type:   tok.Type,
			Value:  tok.Value,
			Span:   complete.TextRange{Start: start.Offset, End: l.offset},
			Line:   start.Line,
			Column: start.Column,
		})
	}

	return tokens
}

// lexerState holds the state for lexing.
type lexerState struct {
	filename string
	input    string
	offset   int
	line     int
	col      int
}

func newLexerState(filename, input string) *lexerState {
	return &lexerState{
		filename: filename,
		input:    input,
		line:     1,
		col:      1,
	}
}

// Next returns the next token.
func (l *lexerState) Next() (lexer.Token, error) {
	if l.eof() {
		return lexer.EOFToken(l.pos()), nil
	}

	start := l.pos()
	r := l.peek()

	if isSpace(r) {
		for !l.eof() && isSpace(l.peek()) {
			l.advance()
		}

		return l.token(TokenWhitespace, start), nil
	}

	if r == '/' && l.peekAt(1) == '/' {
		for !l.eof() && l.peek() != '\n' {
			l.advance()
		}

		return l.token(TokenComment, start), nil
	}

	if r == '`' {
		return l.scanRawString(start)
	}

	if r == '"' || r == '\'' {
		return l.scanString(start, r)
	}

	if isDigit(r) {
		return l.scanNumber(start), nil
	}

	if isIdentStart(r) {
		l.advance()

		for !l.eof() && isIdentContinue(l.peek()) {
			l.advance()
		}

		tok := l.token(TokenIdent, start)
		if kwType, isKeyword := keywords[tok.Value]; isKeyword {
			tok.Type = kwType
		}

		return tok, nil
	}

	if tok, ok := l.scanMultiCharOp(start); ok {
		return tok, nil
	}

	l.advance()

	switch r {
	case '.':
		return l.token(TokenDot, start), nil
	case ':':
		return l.token(TokenColon, start), nil
	case ',':
		return l.token(TokenComma, start), nil
	case ';':
		return l.token(TokenSemi, start), nil
	case '(':
		return l.token(TokenLParen, start), nil
	case ')':
		return l.token(TokenRParen, start), nil
	case '[':
		return l.token(TokenLBracket, start), nil
	case ']':
		return l.token(TokenRBracket, start), nil
	case '{':
		return l.token(TokenLBrace, start), nil
	case '}':
		return l.token(TokenRBrace, start), nil
	}

	if strings.ContainsRune("+-*/%^&|!<>=?#~", r) {
		return l.token(TokenOp, start), nil
	}

	return lexer.Token{}, ErrUnexpectedCharacter.withPos(start).withChar(r)
}

func (l *lexerState) pos() lexer.Position {
	return lexer.Position{
		Filename: l.filename,
		Offset:   l.offset,
		Line:     l.line,
		Column:   l.col,
	}
}

func (l *lexerState) eof() bool {
	return l.offset >= len(l.input)
}

func (l *lexerState) peek() rune {
	if l.eof() {
		return 0
	}

	r, _ := utf8.DecodeRuneInString(l.input[l.offset:])

	return r
}

func (l *lexerState) peekAt(n int) rune {
	off := l.offset + n
	if off >= len(l.input) {
		return 0
	}

	r, _ := utf8.DecodeRuneInString(l.input[off:])

	return r
}

func (l *lexerState) advance() {
	if l.eof() {
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.offset:])
	l.offset += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *lexerState) match(s string) bool {
	return strings.HasPrefix(l.input[l.offset:], s)
}

func (l *lexerState) token(typ lexer.TokenType, start lexer.Position) lexer.Token {
	return lexer.Token{
		Type:  typ,
		Value: l.input[start.Offset:l.offset],
		Pos:   start,
	}
}

func (l *lexerState) scanRawString(start lexer.Position) (lexer.Token, error) {
	l.advance() // opening `

	for !l.eof() {
		if l.peek() == '`' {
			l.advance() // closing `

			return l.token(TokenRawString, start), nil
		}

		l.advance()
	}

	return lexer.Token{}, ErrUnterminatedRawString.withPos(start)
}

func (l *lexerState) scanString(start lexer.Position, quote rune) (lexer.Token, error) {
	l.advance() // opening quote

	for !l.eof() {
		ch := l.peek()
		if ch == '\\' && l.peekAt(1) != 0 && l.peekAt(1) != '\n' {
			l.advance() // backslash
			l.advance() // escaped char

			continue
		}

		if ch == quote {
			l.advance() // closing quote

			return l.token(TokenString, start), nil
		}

		if ch == '\n' {
			return lexer.Token{}, ErrUnterminatedString.withPos(start)
		}

		l.advance()
	}

	return lexer.Token{}, ErrUnterminatedString.withPos(start)
}

var multiOps = []string{"&&", "||", "==", "!=", "<=", ">=", "!~", "?.", "..", "?:", "::", "##"}

func (l *lexerState) scanMultiCharOp(start lexer.Position) (lexer.Token, bool) {
	for _, op := range multiOps {
		if l.match(op) {
			for range len(op) {
				l.advance()
			}

			return l.token(TokenOp, start), true
		}
	}

	return lexer.Token{}, false
}

func (l *lexerState) scanNumber(start lexer.Position) lexer.Token {
	if l.peek() == '0' {
		var digit func(rune) bool

		switch l.peekAt(1) {
		case 'x', 'X':
			digit = isHexDigit
		case 'o', 'O':
			digit = isOctalDigit
		case 'b', 'B':
			digit = isBinaryDigit
		}

		if digit != nil {
			l.advance() // 0
			l.advance() // base

			for !l.eof() && (digit(l.peek()) || l.peek() == '_') {
				l.advance()
			}

			return l.token(TokenNumber, start)
		}
	}

	l.skipDigits()

	// Fractional part
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.advance()
		l.skipDigits()
	}

	// Exponent
	if l.peek() == 'e' || l.peek() == 'E' {
		l.advance()

		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}

		l.skipDigits()
	}

	return l.token(TokenNumber, start)
}

func (l *lexerState) skipDigits() {
	for !l.eof() && (isDigit(l.peek()) || l.peek() == '_') {
		l.advance()
	}
}

// IsKeywordToken returns true if the token type is a structural keyword.
func IsKeywordToken(typ lexer.TokenType) bool {
	for _, kw := range keywords {
		if kw == typ {
			return true
		}
	}

	return false
}

// Character helpers.

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isOctalDigit(r rune) bool {
	return r >= '0' && r <= '7'
}

func isBinaryDigit(r rune) bool {
	return r == '0' || r == '1'
}

func isIdentStart(r rune) bool {
	return r == '$' || r == '_' || unicode.IsLetter(r)
}

func isIdentContinue(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
