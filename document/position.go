package document

import (
	"sort"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/yulsp/yul"
)

// lineStarts returns the byte offset of the first byte of every line.
func lineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// LineCount returns the number of lines. An empty document has one line.
func (d *Document) LineCount() int {
	return len(d.lines)
}

// lineBounds returns the byte range of a line's content, excluding its
// terminating "\n" or "\r\n".
func (d *Document) lineBounds(line int) (int, int) {
	start := d.lines[line]
	end := len(d.Text)
	if line+1 < len(d.lines) {
		end = d.lines[line+1] - 1
	}
	if end > start && d.Text[end-1] == '\r' {
		end--
	}
	return start, end
}

// OffsetAt converts an editor position (line, UTF-16 column) to a byte
// offset. A column past the end of the line clamps to the line end. A line
// past the end of the document is rejected.
func (d *Document) OffsetAt(pos protocol.Position) (int, bool) {
	line := int(pos.Line)
	if line >= len(d.lines) {
		return 0, false
	}
	start, end := d.lineBounds(line)
	content := d.Text[start:end]
	if utf16Len(content) <= int(pos.Character) {
		return end, true
	}
	return start + protocol.Position{Character: pos.Character}.IndexIn(content), true
}

// PositionAt converts a byte offset to an editor position. Offsets outside
// the document are clamped.
func (d *Document) PositionAt(offset int) protocol.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.Text) {
		offset = len(d.Text)
	}
	// last line starting at or before offset
	line := sort.Search(len(d.lines), func(i int) bool { return d.lines[i] > offset }) - 1
	start, end := d.lineBounds(line)
	if offset > end {
		offset = end
	}
	return protocol.Position{
		Line:      protocol.UInteger(line),
		Character: protocol.UInteger(utf16Len(d.Text[start:offset])),
	}
}

// RangeOf converts a source location to an editor range.
func (d *Document) RangeOf(loc yul.SourceLocation) protocol.Range {
	return protocol.Range{Start: d.PositionAt(loc.Start), End: d.PositionAt(loc.End)}
}

// utf16Len counts UTF-16 code units in s.
func utf16Len(s string) int {
	n := 0
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
		s = s[size:]
	}
	return n
}

// Splice returns the document text with r replaced by text. A range that
// starts past the last line or ends before it starts is rejected.
func (d *Document) Splice(r protocol.Range, text string) (string, bool) {
	start, ok := d.OffsetAt(r.Start)
	if !ok {
		return "", false
	}
	end, ok := d.OffsetAt(r.End)
	if !ok || end < start {
		return "", false
	}
	return d.Text[:start] + text + d.Text[end:], true
}
