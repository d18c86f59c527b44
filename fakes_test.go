package complete_test

import (
	"context"
	"unicode"

	"github.com/rlch/complete"
)

// element is a token of a fakeDoc.
type element struct {
	kind string
	rng  complete.TextRange
	text string
}

func (e *element) Kind() string               { return e.kind }
func (e *element) Range() complete.TextRange { return e.rng }
func (e *element) Text() string               { return e.text }

// fakeDoc splits its text into identifier runs and single punctuation bytes.
type fakeDoc struct {
	text     string
	elements []*element
	ref      complete.Reference
	refRange complete.TextRange
	err      error
}

func newFakeDoc(text string) *fakeDoc {
	d := &fakeDoc{text: text}

	for i := 0; i < len(text); {
		j := i + 1
		kind := "punct"

		if isWord(rune(text[i])) {
			kind = "ident"
			for j < len(text) && isWord(rune(text[j])) {
				j++
			}
		}

		d.elements = append(d.elements, &element{
			kind: kind,
			rng:  complete.TextRange{Start: i, End: j},
			text: text[i:j],
		})
		i = j
	}

	return d
}

func isWord(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// withRef makes ReferenceAt return ref for offsets touching rng.
func (d *fakeDoc) withRef(ref complete.Reference, rng complete.TextRange) *fakeDoc {
	d.ref = ref
	d.refRange = rng

	return d
}

func (d *fakeDoc) Len() int { return len(d.text) }

//nolint:ireturn
func (d *fakeDoc) ElementAt(offset int) (complete.Element, error) {
	if d.err != nil {
		return nil, d.err
	}

	for _, e := range d.elements {
		if e.rng.Contains(offset) {
			return e, nil
		}
	}

	return nil, nil
}

func (d *fakeDoc) Text(r complete.TextRange) (string, error) {
	if d.err != nil {
		return "", d.err
	}

	return d.text[r.Start:r.End], nil
}

//nolint:ireturn
func (d *fakeDoc) ReferenceAt(offset int) (complete.Reference, error) {
	if d.err != nil {
		return nil, d.err
	}

	if d.ref != nil && d.refRange.Touches(offset) {
		return d.ref, nil
	}

	return nil, nil
}

// ref is a reference completing to a fixed target list.
type ref struct {
	el      complete.Element
	rng     complete.TextRange
	targets []string
}

//nolint:ireturn
func (r *ref) Element() complete.Element            { return r.el }
func (r *ref) RangeInElement() complete.TextRange { return r.rng }

// multiRef bundles refs.
type multiRef struct {
	refs []complete.Reference
}

//nolint:ireturn
func (m *multiRef) Element() complete.Element              { return m.refs[0].Element() }
func (m *multiRef) RangeInElement() complete.TextRange     { return m.refs[0].RangeInElement() }
func (m *multiRef) References() []complete.Reference       { return m.refs }

// variant is a keyword slot with its keywords in declaration order.
type variant struct {
	key   string
	words []string
}

func (v variant) Key() string { return v.key }

// fakePolicy completes refs to their targets and variants to their words.
type fakePolicy struct {
	variants []complete.KeywordVariant

	// onReference runs before each reference is completed.
	onReference func(r complete.Reference)
	// extra is appended to every reference completion.
	extra []complete.Candidate
}

func (p *fakePolicy) FindPrefix(_ context.Context, pos *complete.Position) (string, error) {
	return complete.StaticPrefix(pos), nil
}

func (p *fakePolicy) CompleteReference(
	_ context.Context, _ *complete.Position, r complete.Reference, _ string,
) ([]complete.Candidate, error) {
	if p.onReference != nil {
		p.onReference(r)
	}

	rr, ok := r.(*ref)
	if !ok {
		return nil, nil
	}

	out := make([]complete.Candidate, 0, len(rr.targets)+len(p.extra))
	for _, t := range rr.targets {
		out = append(out, complete.Candidate{Label: t, Kind: complete.KindQuery, Source: "fake"})
	}

	return append(out, p.extra...), nil
}

func (p *fakePolicy) KeywordVariants(context.Context, *complete.Position) ([]complete.KeywordVariant, error) {
	return p.variants, nil
}

func (p *fakePolicy) CompleteKeywords(
	_ context.Context, _ *complete.Position, variants []complete.KeywordVariant, _ string,
) ([]complete.Candidate, error) {
	var out []complete.Candidate

	for _, v := range variants {
		for _, w := range v.(variant).words {
			out = append(out, complete.Candidate{Label: w, Kind: complete.KindKeyword, Source: "fake"})
		}
	}

	return out, nil
}

// filteringPolicy completes only the first constituent of a bundle.
type filteringPolicy struct {
	fakePolicy
}

func (p *filteringPolicy) References(multi complete.MultiReference) []complete.Reference {
	return multi.References()[:1]
}

func registryOf(p complete.Policy) *complete.Registry {
	r := complete.NewRegistry()
	r.Register(complete.Entry{Name: "fake", Policy: p})

	return r
}

func labels(cs []complete.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Label
	}

	return out
}
