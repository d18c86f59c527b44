package dsl_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/complete"
	"github.com/rlch/complete/dsl"
)

const header = "import fixtures \"./fixtures\"\n" +
	"query GetUser `MATCH (u:User {id: $id}) RETURN u.name, u.age AS age`\n"

// docAt builds a document from src with the cursor at the '|' marker.
func docAt(t *testing.T, src string, loader dsl.Loader) (*dsl.Document, int) {
	t.Helper()

	offset := strings.Index(src, "|")
	require.GreaterOrEqual(t, offset, 0, "source has no cursor marker")

	content := src[:offset] + src[offset+1:]

	return dsl.NewDocument("/work/suite.scaf", content, loader), offset
}

func TestDocument_ElementAt(t *testing.T) {
	t.Parallel()

	doc := dsl.NewDocument("a.scaf", "query Q `x`", nil)

	tests := []struct {
		offset   int
		wantKind string
		wantText string
	}{
		{offset: 0, wantKind: "query", wantText: "query"},
		{offset: 4, wantKind: "query", wantText: "query"},
		{offset: 5, wantKind: "Whitespace", wantText: " "},
		{offset: 6, wantKind: "Ident", wantText: "Q"},
		{offset: 10, wantKind: "RawString", wantText: "`x`"},
	}

	for _, tt := range tests {
		el, err := doc.ElementAt(tt.offset)
		require.NoError(t, err)
		require.NotNil(t, el)
		assert.Equal(t, tt.wantKind, el.Kind(), "offset %d", tt.offset)
		assert.Equal(t, tt.wantText, el.Text(), "offset %d", tt.offset)
	}

	el, err := doc.ElementAt(doc.Len())
	require.NoError(t, err)
	assert.Nil(t, el, "nothing covers the end of the text")

	text, err := doc.Text(complete.TextRange{Start: 6, End: 7})
	require.NoError(t, err)
	assert.Equal(t, "Q", text)

	_, err = doc.Text(complete.TextRange{Start: 6, End: 99})
	require.ErrorIs(t, err, complete.ErrMalformedRange)
}

func TestDocument_ContextAt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		src           string
		wantBlock     dsl.Block
		wantScope     string
		wantCurrent   string
		wantPrev      string
		wantStatement bool
		wantValue     bool
		wantInLiteral bool
	}{
		{name: "empty", src: "|", wantBlock: dsl.BlockTopLevel, wantStatement: true},
		{name: "typing at top level", src: header + "Get|", wantBlock: dsl.BlockTopLevel, wantCurrent: "Get", wantPrev: "`MATCH (u:User {id: $id}) RETURN u.name, u.age AS age`", wantStatement: true},
		{name: "after query keyword", src: "query |", wantBlock: dsl.BlockTopLevel, wantPrev: "query"},
		{name: "scope body", src: header + "GetUser {\n\t|", wantBlock: dsl.BlockScope, wantScope: "GetUser", wantPrev: "{", wantStatement: true},
		{name: "group body", src: "Q {\n group \"g\" {\n  |", wantBlock: dsl.BlockGroup, wantScope: "Q", wantPrev: "{", wantStatement: true},
		{name: "test body", src: "Q {\n test \"t\" {\n  $id: 1\n  |", wantBlock: dsl.BlockTest, wantScope: "Q", wantPrev: "1", wantStatement: true},
		{name: "value slot", src: "Q {\n test \"t\" {\n  ok: tr|", wantBlock: dsl.BlockTest, wantScope: "Q", wantCurrent: "tr", wantPrev: ":", wantValue: true},
		{name: "map value", src: "Q { test \"t\" { m: {a: |", wantBlock: dsl.BlockMap, wantScope: "Q", wantPrev: ":", wantValue: true},
		{name: "list value", src: "Q { test \"t\" { m: [1, |", wantBlock: dsl.BlockList, wantScope: "Q", wantPrev: ",", wantStatement: true, wantValue: true},
		{name: "after closed test", src: "Q {\n test \"t\" {}\n |", wantBlock: dsl.BlockScope, wantScope: "Q", wantPrev: "}", wantStatement: true},
		{name: "after closed scope", src: "Q {}\n|", wantBlock: dsl.BlockTopLevel, wantPrev: "}", wantStatement: true},
		{name: "assert block", src: "Q { test \"t\" { assert `RETURN 1 AS one` { |", wantBlock: dsl.BlockAssert, wantScope: "Q", wantPrev: "{", wantStatement: true},
		{name: "call arguments", src: "Q { setup fixtures.Create(|", wantBlock: dsl.BlockCall, wantScope: "Q", wantPrev: "("},
		{name: "keyword being typed", src: "Q {\n test|", wantBlock: dsl.BlockScope, wantScope: "Q", wantCurrent: "test", wantPrev: "{", wantStatement: true},
		{name: "inside string", src: "Q { test \"fi|nds\" {", wantBlock: dsl.BlockScope, wantScope: "Q", wantPrev: "test", wantInLiteral: true},
		{name: "end of comment", src: "// note|\n", wantBlock: dsl.BlockTopLevel, wantStatement: true, wantInLiteral: true},
		{name: "unterminated raw string", src: "query Q `MATCH|", wantBlock: dsl.BlockTopLevel, wantPrev: "Q", wantInLiteral: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, offset := docAt(t, tt.src, nil)
			c := doc.ContextAt(offset)

			assert.Equal(t, tt.wantBlock, c.Block, "block %s", c.Block)
			assert.Equal(t, tt.wantScope, c.Scope)
			assert.Equal(t, tt.wantCurrent, textOfToken(c.Current))
			assert.Equal(t, tt.wantPrev, textOfToken(c.Prev))
			assert.Equal(t, tt.wantStatement, c.StatementStart())
			assert.Equal(t, tt.wantValue, c.ValueSlot())
			assert.Equal(t, tt.wantInLiteral, c.Literal != nil)
		})
	}
}

func textOfToken(t *dsl.Token) string {
	if t == nil {
		return ""
	}

	return t.Value
}

func TestDocument_ReferenceAt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		src      string
		wantKind dsl.RefKind
		wantText string
		wantRng  complete.TextRange
		check    func(t *testing.T, ref *dsl.Reference)
	}{
		{
			name: "scope header", src: header + "Get|",
			wantKind: dsl.RefQuery, wantText: "Get", wantRng: complete.TextRange{End: 3},
		},
		{
			name: "scope header nothing typed", src: header + "|",
			wantKind: dsl.RefQuery, wantText: "", wantRng: complete.TextRange{},
		},
		{
			name: "module after setup", src: header + "setup fix|",
			wantKind: dsl.RefModule, wantText: "fix", wantRng: complete.TextRange{End: 3},
		},
		{
			name: "scope header spelled like a keyword", src: header + "test|",
			wantKind: dsl.RefQuery, wantText: "test", wantRng: complete.TextRange{End: 4},
		},
		{
			name: "module spelled like a keyword", src: header + "setup test|",
			wantKind: dsl.RefModule, wantText: "test", wantRng: complete.TextRange{End: 4},
		},
		{
			name: "module nothing typed", src: header + "GetUser {\n\tsetup |",
			wantKind: dsl.RefModule, wantText: "", wantRng: complete.TextRange{},
		},
		{
			name: "parameter in test", src: header + "GetUser {\n\ttest \"t\" {\n\t\t$i|",
			wantKind: dsl.RefParam, wantText: "$i", wantRng: complete.TextRange{End: 2},
			check: func(t *testing.T, ref *dsl.Reference) {
				t.Helper()
				assert.Equal(t, "GetUser", ref.Scope)
			},
		},
		{
			name: "parameter in call", src: header + "GetUser {\n\tsetup fixtures.CreateUser($id: 1, $n|",
			wantKind: dsl.RefParam, wantText: "$n", wantRng: complete.TextRange{End: 2},
			check: func(t *testing.T, ref *dsl.Reference) {
				t.Helper()
				assert.Equal(t, "fixtures", ref.Module)
				assert.Equal(t, "CreateUser", ref.Query)
			},
		},
		{
			name: "field in test", src: header + "GetUser {\n\ttest \"t\" {\n\t\t$id: 1\n\t\tag|",
			wantKind: dsl.RefField, wantText: "ag", wantRng: complete.TextRange{End: 2},
			check: func(t *testing.T, ref *dsl.Reference) {
				t.Helper()
				assert.Equal(t, "GetUser", ref.Scope)
				assert.Equal(t, "Ident", ref.Element().Kind())
			},
		},
		{
			name: "dotted field", src: header + "GetUser {\n\ttest \"t\" {\n\t\tu.na|",
			wantKind: dsl.RefField, wantText: "u.na", wantRng: complete.TextRange{End: 4},
			check: func(t *testing.T, ref *dsl.Reference) {
				t.Helper()
				assert.Equal(t, dsl.KindFieldPath, ref.Element().Kind())
			},
		},
		{
			name: "field after dot", src: header + "GetUser {\n\ttest \"t\" {\n\t\tu.|",
			wantKind: dsl.RefField, wantText: "u.", wantRng: complete.TextRange{End: 2},
		},
		{
			name: "assertion field", src: header + "GetUser {\n\ttest \"t\" {\n\t\tassert `RETURN 1 AS one` {\n\t\t\t|",
			wantKind: dsl.RefField, wantText: "", wantRng: complete.TextRange{},
			check: func(t *testing.T, ref *dsl.Reference) {
				t.Helper()
				assert.Equal(t, "RETURN 1 AS one", ref.Body)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, offset := docAt(t, tt.src, nil)

			got, err := doc.ReferenceAt(offset)
			require.NoError(t, err)
			require.NotNil(t, got)

			ref, ok := got.(*dsl.Reference)
			require.True(t, ok, "got %T", got)

			assert.Equal(t, tt.wantKind, ref.Kind, "kind %s", ref.Kind)
			assert.Equal(t, tt.wantText, ref.Element().Text())
			assert.Equal(t, tt.wantRng, ref.RangeInElement())
			assert.Equal(t, offset, ref.Element().Range().End, "references end at the cursor here")

			if tt.check != nil {
				tt.check(t, ref)
			}
		})
	}
}

func TestDocument_ReferenceAt_QualifiedBundle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		src        string
		wantText   string
		wantMember complete.TextRange
	}{
		{name: "member typed", src: header + "setup fixtures.Cr|", wantText: "fixtures.Cr", wantMember: complete.TextRange{Start: 9, End: 11}},
		{name: "nothing after dot", src: header + "setup fixtures.|", wantText: "fixtures.", wantMember: complete.TextRange{Start: 9, End: 9}},
		{name: "cursor inside member", src: header + "GetUser { setup fixtures.Cr|eate", wantText: "fixtures.Create", wantMember: complete.TextRange{Start: 9, End: 15}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, offset := docAt(t, tt.src, nil)

			got, err := doc.ReferenceAt(offset)
			require.NoError(t, err)

			multi, ok := got.(complete.MultiReference)
			require.True(t, ok, "got %T", got)

			refs := multi.References()
			require.Len(t, refs, 2)

			qualified, member := refs[0].(*dsl.Reference), refs[1].(*dsl.Reference)
			assert.Equal(t, dsl.RefQualified, qualified.Kind)
			assert.Equal(t, dsl.RefMember, member.Kind)
			assert.Same(t, qualified.Element(), member.Element(), "constituents share one element")
			assert.Equal(t, dsl.KindQualifiedName, qualified.Element().Kind())
			assert.Equal(t, tt.wantText, qualified.Element().Text())
			assert.Equal(t, complete.TextRange{End: len(tt.wantText)}, qualified.RangeInElement())
			assert.Equal(t, tt.wantMember, member.RangeInElement())
			assert.Equal(t, "fixtures", member.Module)
		})
	}
}

func TestDocument_ReferenceAt_None(t *testing.T) {
	t.Parallel()

	for _, src := range []string{
		"query |",
		"query Get|",
		header + "GetUser {\n\t|",
		header + "GetUser {\n\ttest \"t\" {\n\t\tok: tr|",
		header + "GetUser {\n\ttest \"fi|nds\"",
		"// comment fix|",
		header + "$i|",
		header + "GetUser {\n\ttest \"t\" {\n\t\tx: $i|",
		"fixtures.Cr|",
	} {
		doc, offset := docAt(t, src, nil)

		ref, err := doc.ReferenceAt(offset)
		require.NoError(t, err)
		assert.Nil(t, ref, "source %q", src)
	}

	doc := dsl.NewDocument("a.scaf", "abc", nil)

	for _, offset := range []int{-1, 4} {
		ref, err := doc.ReferenceAt(offset)
		require.NoError(t, err)
		assert.Nil(t, ref)
	}
}
