package dsl

import (
	"errors"
	"fmt"
	"sort"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/rlch/complete"
)

// ErrUnknownImport is returned when an alias does not name an import.
var ErrUnknownImport = errors.New("unknown import")

// Document is an immutable snapshot of a scaf file: its tokens, partial AST
// and symbols. It implements complete.Document.
type Document struct {
	path     string
	content  string
	tokens   []*Token
	sig      []*Token
	suite    *Suite
	parseErr error
	symbols  *Symbols
	loader   Loader
}

var _ complete.Document = (*Document)(nil)

// NewDocument lexes and parses content once. loader resolves imports and
// may be nil, in which case imported modules are never completed.
func NewDocument(path, content string, loader Loader) *Document {
	tokens := Tokenize(content)
	suite, err := ParseString(path, content)

	return &Document{
		path:     path,
		content:  content,
		tokens:   tokens,
		sig:      significant(tokens),
		suite:    suite,
		parseErr: err,
		symbols:  BuildSymbols(suite, tokens),
		loader:   loader,
	}
}

// Path returns the file path the document was created with.
func (d *Document) Path() string { return d.path }

// Content returns the document text.
func (d *Document) Content() string { return d.content }

// Tokens returns every token, whitespace and comments included.
func (d *Document) Tokens() []*Token { return d.tokens }

// Suite returns the parsed AST, partial when ParseError is non-nil. It may be
// nil if the lexer failed before parsing started.
func (d *Document) Suite() *Suite { return d.suite }

// ParseError returns the parse error, if any.
func (d *Document) ParseError() error { return d.parseErr }

// Symbols returns the declarations of the document.
func (d *Document) Symbols() *Symbols { return d.symbols }

// Len implements complete.Document.
func (d *Document) Len() int { return len(d.content) }

// ElementAt implements complete.Document. It returns the token covering offset.
//
//nolint:ireturn // complete.Document contract.
func (d *Document) ElementAt(offset int) (complete.Element, error) {
	if tok := d.tokenAt(offset); tok != nil {
		return tok, nil
	}

	return nil, nil
}

func (d *Document) tokenAt(offset int) *Token {
	i := sort.Search(len(d.tokens), func(i int) bool { return d.tokens[i].Span.End > offset })
	if i < len(d.tokens) && d.tokens[i].Span.Contains(offset) {
		return d.tokens[i]
	}

	return nil
}

// Text implements complete.Document.
func (d *Document) Text(r complete.TextRange) (string, error) {
	if !r.Valid() || r.End > len(d.content) {
		return "", fmt.Errorf("%w: %d..%d in document of length %d",
			complete.ErrMalformedRange, r.Start, r.End, len(d.content))
	}

	return d.content[r.Start:r.End], nil
}

// Module loads the module imported under alias.
func (d *Document) Module(alias string) (*Module, error) {
	imp := d.symbols.Import(alias)
	if imp == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownImport, alias)
	}

	if d.loader == nil {
		return nil, fmt.Errorf("%w: no loader for %s", ErrModuleNotFound, imp.Path)
	}

	return d.loader.Load(d.path, imp.Path)
}

// Block is the kind of bracketed region enclosing a position.
type Block int

// Block kinds.
const (
	BlockTopLevel Block = iota
	BlockScope
	BlockGroup
	BlockTest
	BlockAssert
	BlockMap
	BlockList
	BlockCall
)

func (b Block) String() string {
	switch b {
	case BlockTopLevel:
		return "top-level"
	case BlockScope:
		return "scope"
	case BlockGroup:
		return "group"
	case BlockTest:
		return "test"
	case BlockAssert:
		return "assert"
	case BlockMap:
		return "map"
	case BlockList:
		return "list"
	case BlockCall:
		return "call"
	default:
		return fmt.Sprintf("Block(%d)", int(b))
	}
}

// frame is an open bracket on the block stack.
type frame struct {
	block Block
	// scope is the query name of a scope frame.
	scope string
	// body is the inline query of an assert frame.
	body string
	// module and query name the callee of a call frame.
	module string
	query  string
}

// Context describes the syntactic surroundings of an offset. It is computed
// from tokens alone, so it works on files that do not parse.
type Context struct {
	Offset int
	// Block is the innermost enclosing region.
	Block Block
	// Scope is the query name of the enclosing query scope, if any.
	Scope string
	// Current is the identifier or keyword the cursor is in or directly after.
	Current *Token
	// Prev is the last significant token before Current (or before the cursor).
	Prev *Token
	// Literal is the string, raw string or comment containing the cursor.
	Literal *Token

	frame   frame
	prevIdx int
	doc     *Document
}

// ContextAt computes the context at offset.
func (d *Document) ContextAt(offset int) *Context {
	c := &Context{Offset: offset, prevIdx: -1, doc: d, frame: frame{block: BlockTopLevel}}

	if tok := d.literalAt(offset); tok != nil {
		c.Literal = tok
	}

	limit := offset

	for i, t := range d.sig {
		if t.Span.Start >= offset || t == c.Literal {
			break
		}

		if (t.Type == TokenIdent || IsKeywordToken(t.Type)) && t.Span.End >= offset {
			c.Current = t
			limit = t.Span.Start

			break
		}

		if t.Span.End <= offset {
			c.prevIdx = i
		}
	}

	if c.Current != nil {
		c.prevIdx = d.lastBefore(limit)
	}

	c.Prev = d.sigAt(c.prevIdx)

	stack := d.blocks(c.prevIdx)
	if len(stack) > 0 {
		c.frame = stack[len(stack)-1]
	}

	c.Block = c.frame.block

	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].block == BlockScope {
			c.Scope = stack[i].scope

			break
		}
	}

	return c
}

// literalAt returns the literal token containing offset. A comment or an
// unterminated literal also contains its end offset.
func (d *Document) literalAt(offset int) *Token {
	for _, t := range d.tokens {
		if t.Span.Start >= offset {
			break
		}

		if !t.Literal() {
			continue
		}

		if offset < t.Span.End || (offset == t.Span.End && (t.Type == TokenComment || t.Type == TokenInvalid)) {
			return t
		}
	}

	return nil
}

// lastBefore returns the index of the last significant token ending at or
// before offset, or -1.
func (d *Document) lastBefore(offset int) int {
	i := sort.Search(len(d.sig), func(i int) bool { return d.sig[i].Span.End > offset })

	return i - 1
}

func (d *Document) sigAt(i int) *Token {
	if i < 0 || i >= len(d.sig) {
		return nil
	}

	return d.sig[i]
}

// blocks replays the brackets up to and including sig[last].
func (d *Document) blocks(last int) []frame {
	var stack []frame

	top := func() Block {
		if len(stack) == 0 {
			return BlockTopLevel
		}

		return stack[len(stack)-1].block
	}

	for i := 0; i <= last && i < len(d.sig); i++ {
		p1, p2 := d.sigAt(i-1), d.sigAt(i-2)

		switch d.sig[i].Type {
		case TokenLBrace:
			f := frame{block: BlockMap}

			switch {
			case is(p1, TokenString) && is(p2, TokenTest):
				f.block = BlockTest
			case is(p1, TokenString) && is(p2, TokenGroup):
				f.block = BlockGroup
			case is(p1, TokenRawString) && is(p2, TokenAssert):
				f.block = BlockAssert
				f.body = unquote(p1.Value)
			case is(p1, TokenAssert):
				f.block = BlockAssert
			case is(p1, TokenIdent) && top() == BlockTopLevel && !is(p2, TokenColon):
				f.block = BlockScope
				f.scope = p1.Value
			}

			stack = append(stack, f)
		case TokenLBracket:
			stack = append(stack, frame{block: BlockList})
		case TokenLParen:
			f := frame{block: BlockCall}
			if is(p1, TokenIdent) && is(p2, TokenDot) && is(d.sigAt(i-3), TokenIdent) {
				f.module = d.sigAt(i - 3).Value
				f.query = p1.Value
			}

			stack = append(stack, f)
		case TokenRBrace, TokenRBracket, TokenRParen:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	return stack
}

func is(t *Token, typ ...lexer.TokenType) bool {
	if t == nil {
		return false
	}

	for _, want := range typ {
		if want == t.Type {
			return true
		}
	}

	return false
}

// prev returns the n-th significant token before Prev (0 is Prev itself).
func (c *Context) prev(n int) *Token {
	if c.prevIdx < 0 {
		return nil
	}

	return c.doc.sigAt(c.prevIdx - n)
}

// StatementStart reports whether a new statement, declaration or test
// entry may begin at the cursor.
func (c *Context) StatementStart() bool {
	return c.doc.statementStart(c.prevIdx)
}

// statementStart reports whether a statement may begin after sig[i].
func (d *Document) statementStart(i int) bool {
	p1, p2 := d.sigAt(i), d.sigAt(i-1)

	switch {
	case i < 0:
		return true
	case is(p1, TokenLBrace, TokenRBrace, TokenRBracket, TokenRParen, TokenNumber, TokenComma):
		return true
	case is(p1, TokenIdent):
		// Values (true, null) and module setups end a statement.
		return is(p2, TokenColon, TokenSetup)
	case is(p1, TokenString):
		return !is(p2, TokenTest, TokenGroup)
	case is(p1, TokenRawString):
		return !is(p2, TokenAssert)
	default:
		return false
	}
}

// ValueSlot reports whether the cursor is where a value is expected.
func (c *Context) ValueSlot() bool {
	p1 := c.prev(0)

	switch {
	case is(p1, TokenColon):
		return c.Block != BlockTopLevel
	case is(p1, TokenLBracket, TokenComma):
		return c.Block == BlockList
	default:
		return false
	}
}
