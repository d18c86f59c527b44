package dsl

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rlch/complete"
)

// QuerySymbol is a query declaration.
type QuerySymbol struct {
	Name string
	Body string
	Span complete.TextRange
	// Params are the $-prefixed parameters of the body, without the $, in order of appearance.
	Params []string
	// Returns are the keys of the body's final RETURN clause.
	Returns []string
}

// ImportSymbol is an import declaration.
type ImportSymbol struct {
	Alias string
	Path  string
	Span  complete.TextRange
}

// Symbols holds the declarations of one file. The order slices keep
// declaration order for stable completion output.
type Symbols struct {
	Queries     map[string]*QuerySymbol
	QueryOrder  []string
	Imports     map[string]*ImportSymbol
	ImportOrder []string
}

// NewSymbols creates an empty symbol table.
func NewSymbols() *Symbols {
	return &Symbols{
		Queries: make(map[string]*QuerySymbol),
		Imports: make(map[string]*ImportSymbol),
	}
}

func (s *Symbols) addQuery(name, body string, span complete.TextRange) {
	if _, ok := s.Queries[name]; ok {
		return
	}

	s.Queries[name] = &QuerySymbol{
		Name:    name,
		Body:    body,
		Span:    span,
		Params:  Params(body),
		Returns: ReturnFields(body),
	}
	s.QueryOrder = append(s.QueryOrder, name)
}

func (s *Symbols) addImport(alias, path string, span complete.TextRange) {
	if _, ok := s.Imports[alias]; ok {
		return
	}

	s.Imports[alias] = &ImportSymbol{Alias: alias, Path: path, Span: span}
	s.ImportOrder = append(s.ImportOrder, alias)
}

// Query returns the named query, or nil.
func (s *Symbols) Query(name string) *QuerySymbol {
	if s == nil {
		return nil
	}

	return s.Queries[name]
}

// Import returns the import with the given alias, or nil.
func (s *Symbols) Import(alias string) *ImportSymbol {
	if s == nil {
		return nil
	}

	return s.Imports[alias]
}

// BuildSymbols extracts declarations from a (possibly partial) AST, then
// scans the top-level tokens for declarations the parser never reached.
func BuildSymbols(suite *Suite, tokens []*Token) *Symbols {
	s := NewSymbols()

	if suite != nil {
		for _, imp := range suite.Imports {
			s.addImport(imp.Name(), imp.Path, imp.Span())
		}

		for _, q := range suite.Queries {
			s.addQuery(q.Name, q.Body, q.Span())
		}
	}

	scanDeclarations(s, significant(tokens))

	return s
}

// scanDeclarations recognises `import [alias] "path"` and `query Name `body``
// at brace depth zero.
func scanDeclarations(s *Symbols, toks []*Token) {
	depth := 0

	for i := 0; i < len(toks); i++ {
		switch toks[i].Type {
		case TokenLBrace:
			depth++
		case TokenRBrace:
			if depth > 0 {
				depth--
			}
		case TokenImport:
			if depth > 0 {
				continue
			}

			j := i + 1
			alias := ""

			if j < len(toks) && toks[j].Type == TokenIdent {
				alias = toks[j].Value
				j++
			}

			if j >= len(toks) || toks[j].Type != TokenString {
				continue
			}

			path := unquote(toks[j].Value)
			if alias == "" {
				alias = baseNameFromPath(path)
			}

			s.addImport(alias, path, complete.TextRange{Start: toks[i].Span.Start, End: toks[j].Span.End})
			i = j
		case TokenQuery:
			if depth > 0 || i+2 >= len(toks) {
				continue
			}

			name, body := toks[i+1], toks[i+2]
			if name.Type != TokenIdent || body.Type != TokenRawString {
				continue
			}

			s.addQuery(name.Value, unquote(body.Value), complete.TextRange{Start: toks[i].Span.Start, End: body.Span.End})
			i += 2
		}
	}
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '`' && s[len(s)-1] == '`' {
		return s[1 : len(s)-1]
	}

	if v, err := strconv.Unquote(s); err == nil {
		return v
	}

	return strings.Trim(s, `"'`)
}

var (
	paramRegex  = regexp.MustCompile(`\$(\w+)`)
	returnRegex = regexp.MustCompile(`(?i)\bRETURN\b`)
	returnTail  = regexp.MustCompile(`(?is)\s+(?:ORDER\s+BY|SKIP|LIMIT|UNION)\b.*$`)
	aliasRegex  = regexp.MustCompile(`(?is)\s+AS\s+([\w.]+)\s*$`)
	distinct    = regexp.MustCompile(`(?i)^DISTINCT\s+`)
)

// Params extracts the distinct $-prefixed parameters of a query body.
func Params(body string) []string {
	seen := make(map[string]bool)

	var params []string

	for _, m := range paramRegex.FindAllStringSubmatch(body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			params = append(params, m[1])
		}
	}

	return params
}

// ReturnFields extracts the keys a query returns: the alias of each item of
// the last RETURN clause, or the item text when it has none (u.name).
func ReturnFields(body string) []string {
	locs := returnRegex.FindAllStringIndex(body, -1)
	if len(locs) == 0 {
		return nil
	}

	clause := strings.TrimSpace(body[locs[len(locs)-1][1]:])
	clause = returnTail.ReplaceAllString(clause, "")
	clause = distinct.ReplaceAllString(clause, "")

	var fields []string

	for _, item := range splitTopLevel(clause) {
		item = strings.TrimSpace(item)
		if item == "" || item == "*" {
			continue
		}

		if m := aliasRegex.FindStringSubmatch(item); m != nil {
			item = m[1]
		}

		fields = append(fields, item)
	}

	return fields
}

// splitTopLevel splits s on commas outside brackets and quotes.
func splitTopLevel(s string) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)

	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '(' || r == '[' || r == '{':
			depth++
		case r == ')' || r == ']' || r == '}':
			depth--
		case r == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}

	return append(parts, s[start:])
}

// significant filters out whitespace and comments.
func significant(tokens []*Token) []*Token {
	out := make([]*Token, 0, len(tokens))

	for _, t := range tokens {
		if t.Significant() {
			out = append(out, t)
		}
	}

	return out
}
