package dsl

import (
	"github.com/alecthomas/participle/v2"
)

// dslLexer is the custom lexer for the scaf DSL.
var dslLexer = newDefinition()

var parser = participle.MustBuild[Suite](
	participle.Lexer(dslLexer),
	participle.Unquote("RawString", "String"),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(3), //nolint:mnd // alias '.' Query distinguishes calls from module setups
)

// Parse parses a scaf DSL file. This function is thread-safe.
//
// On parse errors, returns a partial AST containing everything successfully parsed
// up to the error location, along with the error. Callers should use the partial
// AST for features like completion even when errors are present.
func Parse(data []byte) (*Suite, error) {
	return parser.ParseBytes("", data)
}

// ParseString parses src, reporting positions against filename.
func ParseString(filename, src string) (*Suite, error) {
	return parser.ParseString(filename, src)
}
