package document

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/yulsp/yul"
)

func pos(line, char uint32) protocol.Position {
	return protocol.Position{Line: line, Character: char}
}

func TestOffsetAt(t *testing.T) {
	doc := New("file:///a.yul", 1, "ab\ncd")

	tests := []struct {
		pos    protocol.Position
		offset int
		ok     bool
	}{
		{pos(0, 0), 0, true},
		{pos(0, 1), 1, true},
		{pos(0, 2), 2, true},
		{pos(0, 7), 2, true},
		{pos(1, 0), 3, true},
		{pos(1, 1), 4, true},
		{pos(1, 9), 5, true},
		{pos(2, 0), 0, false},
		{pos(40, 0), 0, false},
	}
	for _, tc := range tests {
		off, ok := doc.OffsetAt(tc.pos)
		assert.Equal(t, tc.ok, ok, "%+v", tc.pos)
		if tc.ok {
			assert.Equal(t, tc.offset, off, "%+v", tc.pos)
		}
	}
}

func TestOffsetAtUTF16AndCRLF(t *testing.T) {
	// a😀b\r\nc: the emoji is 4 bytes and 2 UTF-16 units
	doc := New("file:///a.yul", 1, "a\U0001F600b\r\nc")

	off, ok := doc.OffsetAt(pos(0, 3))
	require.True(t, ok)
	assert.Equal(t, 5, off)

	off, ok = doc.OffsetAt(pos(0, 4))
	require.True(t, ok)
	assert.Equal(t, 6, off, "end of line excludes \\r")

	off, ok = doc.OffsetAt(pos(1, 0))
	require.True(t, ok)
	assert.Equal(t, 8, off)
}

func TestPositionAt(t *testing.T) {
	doc := New("file:///a.yul", 1, "a\U0001F600b\r\nc")

	assert.Equal(t, pos(0, 0), doc.PositionAt(0))
	assert.Equal(t, pos(0, 1), doc.PositionAt(1))
	assert.Equal(t, pos(0, 3), doc.PositionAt(5))
	assert.Equal(t, pos(0, 4), doc.PositionAt(6))
	assert.Equal(t, pos(0, 4), doc.PositionAt(7))
	assert.Equal(t, pos(1, 0), doc.PositionAt(8))
	assert.Equal(t, pos(1, 1), doc.PositionAt(9))
	assert.Equal(t, pos(1, 1), doc.PositionAt(100))
	assert.Equal(t, pos(0, 0), doc.PositionAt(-3))
}

func TestPositionRoundTrip(t *testing.T) {
	text := "{\n  let x := 0x70a08231\n  mstore(x, 1)\n}\n"
	doc := New("file:///a.yul", 1, text)
	for off := 0; off <= len(text); off++ {
		if off > 0 && text[off-1] == '\r' {
			continue
		}
		p := doc.PositionAt(off)
		back, ok := doc.OffsetAt(p)
		require.True(t, ok, "offset %d", off)
		assert.Equal(t, off, back, "offset %d -> %+v", off, p)
	}
}

func TestRangeOf(t *testing.T) {
	doc := New("file:///a.yul", 1, "{\n  let x := 1\n}")
	r := doc.RangeOf(yul.SourceLocation{Start: 8, End: 9})
	assert.Equal(t, protocol.Range{Start: pos(1, 6), End: pos(1, 7)}, r)
}

func TestEmptyDocument(t *testing.T) {
	doc := New("file:///a.yul", 1, "")
	assert.Equal(t, 1, doc.LineCount())
	off, ok := doc.OffsetAt(pos(0, 0))
	assert.True(t, ok)
	assert.Equal(t, 0, off)
	assert.Equal(t, pos(0, 0), doc.PositionAt(0))
}

// -----------------------------------------------------------------------------
// Store
// -----------------------------------------------------------------------------

func TestSplice(t *testing.T) {
	doc := New("file:///a.yul", 1, "let x := 1\nlet y := 2")

	got, ok := doc.Splice(protocol.Range{Start: pos(1, 4), End: pos(1, 5)}, "zz")
	require.True(t, ok)
	assert.Equal(t, "let x := 1\nlet zz := 2", got)

	got, ok = doc.Splice(protocol.Range{Start: pos(0, 10), End: pos(1, 0)}, "")
	require.True(t, ok)
	assert.Equal(t, "let x := 1let y := 2", got)

	_, ok = doc.Splice(protocol.Range{Start: pos(1, 4), End: pos(0, 0)}, "")
	assert.False(t, ok, "reversed range")

	_, ok = doc.Splice(protocol.Range{Start: pos(5, 0), End: pos(5, 0)}, "")
	assert.False(t, ok, "line past the end")
}

func TestStoreLifecycle(t *testing.T) {
	s := NewStore()
	uri := "file:///a.yul"

	_, ok := s.Get(uri)
	assert.False(t, ok)

	s.Open(uri, 1, "{ }")
	doc, ok := s.Get(uri)
	require.True(t, ok)
	assert.Equal(t, "{ }", doc.Text)

	s.Replace(uri, 2, "{ let x := 1 }")
	newDoc, ok := s.Get(uri)
	require.True(t, ok)
	assert.Equal(t, protocol.Integer(2), newDoc.Version)
	assert.Equal(t, "{ }", doc.Text, "old snapshot is unchanged")

	assert.True(t, s.Close(uri))
	assert.False(t, s.Close(uri))
	_, ok = s.Get(uri)
	assert.False(t, ok)
}

func TestStoreURIs(t *testing.T) {
	s := NewStore()
	s.Open("file:///b.yul", 1, "")
	s.Open("file:///a.yul", 1, "")
	assert.Equal(t, []protocol.DocumentUri{"file:///a.yul", "file:///b.yul"}, s.URIs())
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uri := fmt.Sprintf("file:///%d.yul", i%2)
			for v := 0; v < 100; v++ {
				s.Replace(uri, protocol.Integer(v), fmt.Sprintf("{ let x := %d }", v))
				if doc, ok := s.Get(uri); ok {
					_, _ = doc.OffsetAt(pos(0, 3))
				}
			}
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.URIs(), 2)
}
