// Package dsl implements the scaf test DSL as a host language for the
// completion engine: lexer, grammar, symbol table, documents and the
// completion policies that understand them.
package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/rlch/complete"
)

// Suite represents a complete test file with imports, queries, global
// setup/teardown and test scopes.
type Suite struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Imports  []*Import     `parser:"@@*"`
	Queries  []*Query      `parser:"@@*"`
	Setup    *SetupClause  `parser:"('setup' @@)?"`
	Teardown *string       `parser:"('teardown' @RawString)?"`
	Scopes   []*QueryScope `parser:"@@*"`
}

// Import brings another scaf file into scope under an alias.
type Import struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Alias *string `parser:"'import' @Ident?"`
	Path  string  `parser:"@String"`
}

// Name returns the alias the import is referenced by: the explicit alias or
// the base name of the path ("./shared/fixtures" -> "fixtures").
func (i *Import) Name() string {
	if i.Alias != nil {
		return *i.Alias
	}

	return baseNameFromPath(i.Path)
}

// Query defines a named database query.
type Query struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Name string `parser:"'query' @Ident"`
	Body string `parser:"@RawString"`
}

// SetupClause is an inline query, a call to an imported query, or the setup
// of an imported module.
type SetupClause struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Inline *string    `parser:"  @RawString"`
	Call   *SetupCall `parser:"| @@"`
	Module *string    `parser:"| @Ident"`
}

// SetupCall invokes a query from an imported module: fixtures.CreateUser($id: 1).
type SetupCall struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Module string        `parser:"@Ident '.'"`
	Query  string        `parser:"@Ident '('"`
	Params []*SetupParam `parser:"(@@ (',' @@)*)? ')'"`
}

// SetupParam is a named argument of a setup call.
type SetupParam struct {
	Name  string `parser:"@Ident ':'"`
	Value *Value `parser:"@@"`
}

// QueryScope groups tests that target a specific query.
type QueryScope struct {
	Pos    lexer.Position
	EndPos lexer.Position

	QueryName string         `parser:"@Ident '{'"`
	Setup     *SetupClause   `parser:"('setup' @@)?"`
	Teardown  *string        `parser:"('teardown' @RawString)?"`
	Items     []*TestOrGroup `parser:"@@* '}'"`
}

// TestOrGroup is a union type - either a Test or a Group.
type TestOrGroup struct {
	Test  *Test  `parser:"  @@"`
	Group *Group `parser:"| @@"`
}

// Group organizes related tests with optional shared setup and teardown.
type Group struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Name     string         `parser:"'group' @String '{'"`
	Setup    *SetupClause   `parser:"('setup' @@)?"`
	Teardown *string        `parser:"('teardown' @RawString)?"`
	Items    []*TestOrGroup `parser:"@@* '}'"`
}

// Test defines a single test case with inputs, expected outputs, and optional assertions.
type Test struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Name       string       `parser:"'test' @String '{'"`
	Setup      *SetupClause `parser:"('setup' @@)?"`
	Statements []*Statement `parser:"@@*"`
	Asserts    []*Assertion `parser:"('assert' @@)*"`
	Close      string       `parser:"'}'"`
}

// Statement represents a key-value pair for inputs ($var) or expected outputs.
type Statement struct {
	Pos lexer.Position

	Key   string `parser:"@Ident (@'.' @Ident)*"`
	Value *Value `parser:"':' @@"`
}

// Assertion defines a post-execution query and its expected results.
type Assertion struct {
	Query        string       `parser:"@RawString '{'"`
	Expectations []*Statement `parser:"@@* '}'"`
}

// Boolean is a bool type that implements participle's Capture interface.
type Boolean bool

// Capture implements participle's Capture interface for Boolean.
func (b *Boolean) Capture(values []string) error {
	*b = values[0] == "true"

	return nil
}

// Value represents a literal value (string, number, bool, null, map, or list).
type Value struct {
	Null    bool     `parser:"  @'null'"`
	Boolean *Boolean `parser:"| @('true' | 'false')"`
	Str     *string  `parser:"| @String"`
	Number  *float64 `parser:"| @Number"`
	Map     *Map     `parser:"| @@"`
	List    *List    `parser:"| @@"`
}

// Map represents a key-value map literal.
type Map struct {
	Entries []*MapEntry `parser:"'{' (@@ (',' @@)* ','?)? '}'"`
}

// MapEntry represents a single entry in a map literal.
type MapEntry struct {
	Key   string `parser:"@Ident ':'"`
	Value *Value `parser:"@@"`
}

// List represents an array/list literal.
type List struct {
	Values []*Value `parser:"'[' (@@ (',' @@)* ','?)? ']'"`
}

// String returns a string representation of the Value.
func (v *Value) String() string {
	switch {
	case v.Null:
		return "null"
	case v.Str != nil:
		return strconv.Quote(*v.Str)
	case v.Number != nil:
		return strconv.FormatFloat(*v.Number, 'g', -1, 64)
	case v.Boolean != nil:
		return strconv.FormatBool(bool(*v.Boolean))
	case v.Map != nil:
		parts := make([]string, len(v.Map.Entries))
		for i, e := range v.Map.Entries {
			parts[i] = fmt.Sprintf("%s: %s", e.Key, e.Value)
		}

		return "{" + strings.Join(parts, ", ") + "}"
	case v.List != nil:
		parts := make([]string, len(v.List.Values))
		for i, val := range v.List.Values {
			parts[i] = val.String()
		}

		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "nil"
	}
}

// spanOf converts participle start/end positions into a byte range.
func spanOf(start, end lexer.Position) complete.TextRange {
	return complete.TextRange{Start: start.Offset, End: end.Offset}
}

// Span returns the byte range of the query declaration.
func (q *Query) Span() complete.TextRange { return spanOf(q.Pos, q.EndPos) }

// Span returns the byte range of the import declaration.
func (i *Import) Span() complete.TextRange { return spanOf(i.Pos, i.EndPos) }

// Span returns the byte range of the scope, braces included.
func (s *QueryScope) Span() complete.TextRange { return spanOf(s.Pos, s.EndPos) }

// baseNameFromPath extracts the base name from an import path.
func baseNameFromPath(path string) string {
	path = strings.TrimSuffix(path, ".scaf")

	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}

	// Dialect-specific files: fixtures.cypher -> fixtures.
	if i := strings.IndexByte(path, '.'); i > 0 {
		path = path[:i]
	}

	return path
}
