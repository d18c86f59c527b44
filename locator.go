package complete

import (
	"unicode"
	"unicode/utf8"
)

// Location is the pair of elements found around a cursor.
type Location struct {
	// Anchor is the element at the cursor, or Before when the cursor is past
	// the last element.
	Anchor Element
	// Before is the element covering the byte immediately before the cursor.
	Before Element
}

// Locate finds the elements at and before offset. An empty document or an
// offset outside the text yields a zero Location and no error.
func Locate(doc Document, offset int) (Location, error) {
	if doc == nil || doc.Len() == 0 || offset < 0 || offset > doc.Len() {
		return Location{}, nil
	}

	var loc Location

	if offset > 0 {
		before, err := doc.ElementAt(offset - 1)
		if err != nil {
			return Location{}, err
		}

		loc.Before = before
	}

	if offset < doc.Len() {
		anchor, err := doc.ElementAt(offset)
		if err != nil {
			return Location{}, err
		}

		loc.Anchor = anchor
	}

	if loc.Anchor == nil {
		loc.Anchor = loc.Before
	}

	return loc, nil
}

// StaticPrefix is the prefix rule used when no policy owns the position yet:
// the identifier run that ends at the cursor.
func StaticPrefix(pos *Position) string {
	el := prefixElement(pos)
	if el == nil {
		return ""
	}

	text := el.Text()
	end := pos.Offset - el.Range().Start

	if end <= 0 || end > len(text) {
		return ""
	}

	return IdentSuffix(text[:end])
}

// prefixElement picks the element whose text runs up to the cursor. When the
// cursor sits on a boundary the element that ends there wins, since typing
// extends it.
func prefixElement(pos *Position) Element {
	if pos == nil {
		return nil
	}

	if a := pos.Anchor; a != nil && a.Range().Start < pos.Offset && a.Range().Touches(pos.Offset) {
		return a
	}

	if b := pos.Before; b != nil && b.Range().Touches(pos.Offset) {
		return b
	}

	return nil
}

// IdentSuffix returns the longest suffix of text made of identifier runes
// (letters, digits, '_' and '$').
func IdentSuffix(text string) string {
	start := len(text)

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !isIdentRune(r) {
			break
		}

		start -= size
	}

	return text[start:]
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
