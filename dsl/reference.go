package dsl

import (
	"strings"

	"github.com/rlch/complete"
)

// RefKind says what a reference points at.
type RefKind int

// Reference kinds.
const (
	// RefQuery is a query name in a scope header.
	RefQuery RefKind = iota
	// RefParam is a $parameter of the scope query or of a called query.
	RefParam
	// RefField is a RETURN field of the scope query or of an assertion query.
	RefField
	// RefModule is an import alias after setup.
	RefModule
	// RefQualified is a whole alias.Query name after setup.
	RefQualified
	// RefMember is the part of alias.Query after the dot.
	RefMember
)

func (k RefKind) String() string {
	return [...]string{"query", "param", "field", "module", "qualified", "member"}[k]
}

// Reference is a single scaf reference.
type Reference struct {
	Kind RefKind

	// Scope is the query whose parameters or fields apply.
	Scope string
	// Body is the inline assertion query whose fields apply.
	Body string
	// Module is the import alias of a qualified name or call.
	Module string
	// Query is the called query of a call argument.
	Query string

	el  complete.Element
	rng complete.TextRange
}

// Element implements complete.Reference.
//
//nolint:ireturn // complete.Reference contract.
func (r *Reference) Element() complete.Element { return r.el }

// RangeInElement implements complete.Reference.
func (r *Reference) RangeInElement() complete.TextRange { return r.rng }

// Span returns the absolute range the reference covers.
func (r *Reference) Span() complete.TextRange {
	return r.rng.Shift(r.el.Range().Start)
}

// Bundle is a set of references over the same text.
type Bundle struct {
	refs []complete.Reference
}

// Element implements complete.Reference.
//
//nolint:ireturn // complete.Reference contract.
func (b *Bundle) Element() complete.Element { return b.refs[0].Element() }

// RangeInElement implements complete.Reference.
func (b *Bundle) RangeInElement() complete.TextRange { return b.refs[0].RangeInElement() }

// References implements complete.MultiReference.
func (b *Bundle) References() []complete.Reference { return b.refs }

// node is a synthetic element spanning several tokens, or none.
type node struct {
	kind string
	span complete.TextRange
	text string
}

func (n *node) Kind() string               { return n.kind }
func (n *node) Range() complete.TextRange { return n.span }
func (n *node) Text() string               { return n.text }

// Synthetic element kinds.
const (
	KindQualifiedName = "QualifiedName"
	KindFieldPath     = "FieldPath"
	KindEmpty         = "Empty"
)

func (d *Document) nodeOf(kind string, span complete.TextRange) *node {
	return &node{kind: kind, span: span, text: d.content[span.Start:span.End]}
}

// ReferenceAt implements complete.Document. The result is a *Reference, a
// *Bundle for alias.Query names after setup, or nil.
//
//nolint:ireturn // complete.Document contract.
func (d *Document) ReferenceAt(offset int) (complete.Reference, error) {
	if offset < 0 || offset > len(d.content) {
		return nil, nil
	}

	c := d.ContextAt(offset)
	if c.Literal != nil {
		return nil, nil
	}

	if b := d.qualifiedAt(c); b != nil {
		return b, nil
	}

	if ref := d.singleAt(c); ref != nil {
		return ref, nil
	}

	return nil, nil
}

// qualifiedAt recognises "setup alias.Member" with the cursor after the dot.
func (d *Document) qualifiedAt(c *Context) *Bundle {
	member := c.Current
	end := c.Offset

	if member != nil {
		if !nameLike(member) || strings.HasPrefix(member.Value, "$") {
			return nil
		}

		end = member.Span.End
	}

	dot := c.prev(0)
	if !is(dot, TokenDot) {
		return nil
	}

	if (member != nil && dot.Span.End != member.Span.Start) || (member == nil && dot.Span.End != c.Offset) {
		return nil
	}

	alias := c.prev(1)
	if !nameLike(alias) || alias.Span.End != dot.Span.Start || !is(c.prev(2), TokenSetup) {
		return nil
	}

	el := d.nodeOf(KindQualifiedName, complete.TextRange{Start: alias.Span.Start, End: end})
	whole := complete.TextRange{End: el.span.Len()}
	after := complete.TextRange{Start: dot.Span.End - alias.Span.Start, End: el.span.Len()}

	return &Bundle{refs: []complete.Reference{
		&Reference{Kind: RefQualified, Module: alias.Value, el: el, rng: whole},
		&Reference{Kind: RefMember, Module: alias.Value, el: el, rng: after},
	}}
}

// nameLike reports whether t can be a name being typed. A keyword counts,
// since "test" is also the start of "testUsers".
func nameLike(t *Token) bool {
	return t != nil && (t.Type == TokenIdent || IsKeywordToken(t.Type))
}

func (d *Document) singleAt(c *Context) *Reference {
	cur := c.Current
	if cur != nil && !nameLike(cur) {
		return nil
	}

	var el complete.Element = d.nodeOf(KindEmpty, complete.TextRange{Start: c.Offset, End: c.Offset})
	if cur != nil {
		el = cur
	}

	whole := complete.TextRange{End: el.Range().Len()}
	dollar := cur != nil && strings.HasPrefix(cur.Value, "$")

	switch {
	case dollar && c.Block == BlockTest && c.StatementStart():
		return &Reference{Kind: RefParam, Scope: c.Scope, el: el, rng: whole}
	case dollar && c.Block == BlockCall && is(c.Prev, TokenLParen, TokenComma) && c.frame.query != "":
		return &Reference{Kind: RefParam, Module: c.frame.module, Query: c.frame.query, el: el, rng: whole}
	case dollar:
		return nil
	case is(c.Prev, TokenSetup):
		return &Reference{Kind: RefModule, el: el, rng: whole}
	case c.Block == BlockTopLevel && c.StatementStart():
		return &Reference{Kind: RefQuery, el: el, rng: whole}
	case c.Block == BlockTest || c.Block == BlockAssert:
		return d.fieldAt(c)
	default:
		return nil
	}
}

// fieldAt recognises a possibly dotted statement key (u.name) at the start
// of a test or assertion statement.
func (d *Document) fieldAt(c *Context) *Reference {
	span := complete.TextRange{Start: c.Offset, End: c.Offset}
	if c.Current != nil {
		span = c.Current.Span
	}

	j := c.prevIdx
	for ; j >= 0; j-- {
		t := d.sig[j]
		if t.Span.End != span.Start || !is(t, TokenDot, TokenIdent) {
			break
		}

		span.Start = t.Span.Start
	}

	if !d.statementStart(j) {
		return nil
	}

	var el complete.Element

	switch {
	case c.Current != nil && span == c.Current.Span:
		el = c.Current
	case span.Len() == 0:
		el = d.nodeOf(KindEmpty, span)
	default:
		el = d.nodeOf(KindFieldPath, span)
	}

	ref := &Reference{Kind: RefField, el: el, rng: complete.TextRange{End: span.Len()}}
	if c.Block == BlockAssert {
		ref.Body = c.frame.body
	} else {
		ref.Scope = c.Scope
	}

	return ref
}
