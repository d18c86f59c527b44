package complete

import "fmt"

// Probe returns the references anchored at offset, with bundles expanded into
// their constituents. No reference yields an empty slice. When filter is
// non-nil it selects which constituents of a bundle are completed.
func Probe(doc Document, offset int, filter ReferenceFilter) ([]Reference, error) {
	ref, err := doc.ReferenceAt(offset)
	if err != nil {
		return nil, err
	}

	if multi, ok := ref.(MultiReference); ok && filter != nil {
		return Expand(bundle(filter.References(multi))), nil
	}

	return Expand(ref), nil
}

// bundle is a MultiReference over an explicit list of references.
type bundle []Reference

func (b bundle) Element() Element {
	if len(b) == 0 {
		return nil
	}

	return b[0].Element()
}

func (b bundle) RangeInElement() TextRange {
	if len(b) == 0 {
		return TextRange{}
	}

	return b[0].RangeInElement()
}

func (b bundle) References() []Reference {
	return b
}

// SubPrefix returns the text a reference has already received before the
// cursor: the element text from the start of the reference's own range up to
// offset. Each constituent of a bundle gets its own sub-prefix.
func SubPrefix(ref Reference, offset int) (string, error) {
	el := ref.Element()
	if el == nil {
		return "", fmt.Errorf("%w: reference has no element", ErrMalformedRange)
	}

	text := el.Text()
	rng := ref.RangeInElement()
	offsetInElement := offset - el.Range().Start

	switch {
	case !rng.Valid() || rng.End > len(text):
		return "", fmt.Errorf("%w: range %d..%d in element of length %d",
			ErrMalformedRange, rng.Start, rng.End, len(text))
	case offsetInElement < rng.Start || offsetInElement > len(text):
		return "", fmt.Errorf("%w: cursor %d outside reference starting at %d",
			ErrMalformedRange, offsetInElement, rng.Start)
	}

	return text[rng.Start:offsetInElement], nil
}
