// Package complete computes completion candidates at a cursor position.
//
// The package is language neutral. A host language supplies a Document (text,
// element lookup and a reference index) and registers Policies in a Registry.
// The Engine locates the element at the cursor, resolves the policy that owns
// the position, fans out over any references anchored there, collects keyword
// suggestions and merges everything into one ordered, deduplicated list.
package complete

// TextRange is a half-open byte range [Start, End) in a document.
type TextRange struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the range.
func (r TextRange) Len() int {
	return r.End - r.Start
}

// Contains reports whether off lies inside the range.
func (r TextRange) Contains(off int) bool {
	return r.Start <= off && off < r.End
}

// Touches reports whether off lies inside the range or directly after it.
func (r TextRange) Touches(off int) bool {
	return r.Start <= off && off <= r.End
}

// Valid reports whether the range is non-negative and not inverted.
func (r TextRange) Valid() bool {
	return r.Start >= 0 && r.Start <= r.End
}

// Shift returns the range moved by delta bytes.
func (r TextRange) Shift(delta int) TextRange {
	return TextRange{Start: r.Start + delta, End: r.End + delta}
}

// Element is a node of a parsed document.
type Element interface {
	// Kind names the syntactic kind of the element (e.g. "Ident", "Query").
	Kind() string
	// Range is the absolute range of the element in its document.
	Range() TextRange
	// Text is the source text covered by Range.
	Text() string
}

// Document is the read-only view of a parsed document the engine works on.
// All methods must observe the same snapshot for the duration of a request.
//
// A nil result with a nil error means nothing was found. A non-nil error is a
// document access failure and is returned to the caller unchanged.
type Document interface {
	// Len returns the length of the document text in bytes.
	Len() int
	// ElementAt returns the innermost element covering offset.
	ElementAt(offset int) (Element, error)
	// Text returns the document text inside r.
	Text(r TextRange) (string, error)
	// ReferenceAt returns the reference whose range contains or abuts offset.
	// The result may be a MultiReference.
	ReferenceAt(offset int) (Reference, error)
}

// Reference relates a sub-range of an element to zero or more targets.
type Reference interface {
	// Element is the element owning the reference.
	Element() Element
	// RangeInElement is relative to the start of Element().Range().
	RangeInElement() TextRange
}

// MultiReference bundles several references competing for the same text.
type MultiReference interface {
	Reference
	// References returns the constituents in processing order.
	References() []Reference
}

// Expand flattens ref into the references that should be completed.
// A single reference is a bundle of one.
func Expand(ref Reference) []Reference {
	if ref == nil {
		return nil
	}

	if multi, ok := ref.(MultiReference); ok {
		refs := multi.References()
		out := make([]Reference, 0, len(refs))

		for _, r := range refs {
			if r != nil {
				out = append(out, r)
			}
		}

		return out
	}

	return []Reference{ref}
}

// CandidateKind classifies a candidate for presentation.
type CandidateKind string

// Candidate kinds.
const (
	KindKeyword   CandidateKind = "keyword"
	KindQuery     CandidateKind = "query"
	KindModule    CandidateKind = "module"
	KindParameter CandidateKind = "parameter"
	KindField     CandidateKind = "field"
	KindValue     CandidateKind = "value"
	KindText      CandidateKind = "text"
)

// Candidate is a single proposed completion.
type Candidate struct {
	// Label is the display text, also used for prefix filtering.
	Label string
	// Insert is the text inserted on accept. Empty means Label.
	Insert string
	// Detail is a short description shown next to the label.
	Detail string
	// Kind classifies the candidate.
	Kind CandidateKind
	// Replace is the absolute range replaced on accept, if any.
	Replace *TextRange
	// Source names the policy that produced the candidate.
	Source string
}

// InsertText returns the text inserted when the candidate is accepted.
func (c Candidate) InsertText() string {
	if c.Insert == "" {
		return c.Label
	}

	return c.Insert
}

// candidateKey is the deduplication identity of a candidate.
type candidateKey struct {
	label  string
	insert string
}

func (c Candidate) key() candidateKey {
	return candidateKey{label: c.Label, insert: c.InsertText()}
}

// KeywordVariant is an opaque marker for a grammatical slot, used by a policy
// to decide which keywords apply. Two variants are equal when their keys are.
type KeywordVariant interface {
	Key() string
}

// Position carries the per-request parameters handed to policies.
type Position struct {
	Document Document
	Offset   int

	// Anchor is the element at the cursor; prefix and reference logic anchor on it.
	Anchor Element
	// Before is the element covering Offset-1, used as a resolution hint.
	Before Element

	// Prefix is the typed prefix. Only meaningful when PrefixKnown is set.
	Prefix      string
	PrefixKnown bool
}

// withPrefix returns a copy of p with the prefix known.
func (p *Position) withPrefix(prefix string) *Position {
	cp := *p
	cp.Prefix = prefix
	cp.PrefixKnown = true

	return &cp
}
