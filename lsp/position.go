package lsp

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"go.lsp.dev/protocol"

	"github.com/rlch/complete"
)

// OffsetAt converts an LSP position (0-based line, UTF-16 character) to a
// byte offset in content. A character past the end of its line clamps to
// the line end, as the protocol requires. A line past the end of content
// yields -1.
func OffsetAt(content string, pos protocol.Position) int {
	start := 0

	for line := uint32(0); line < pos.Line; line++ {
		i := strings.IndexByte(content[start:], '\n')
		if i < 0 {
			return -1
		}

		start += i + 1
	}

	text := content[start:]
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}

	units := 0

	for i, r := range text {
		if units >= int(pos.Character) {
			return start + i
		}

		units += utf16.RuneLen(r)
	}

	return start + len(text)
}

// PositionAt converts a byte offset in content to an LSP position.
func PositionAt(content string, offset int) protocol.Position {
	offset = max(0, min(offset, len(content)))

	before := content[:offset]
	line := strings.Count(before, "\n")
	lineStart := strings.LastIndexByte(before, '\n') + 1

	units := 0

	for rest := before[lineStart:]; rest != ""; {
		r, size := utf8.DecodeRuneInString(rest)
		units += utf16.RuneLen(r)
		rest = rest[size:]
	}

	return protocol.Position{
		Line:      uint32(line),  //nolint:gosec // G115: line counts are small
		Character: uint32(units), //nolint:gosec // G115: line lengths are small
	}
}

// rangeOf converts a byte range to an LSP range.
func rangeOf(content string, r complete.TextRange) protocol.Range {
	return protocol.Range{
		Start: PositionAt(content, r.Start),
		End:   PositionAt(content, r.End),
	}
}
