// Package sourcemap builds version 3 source maps for generated code.
//
// Segments are kept in a B-tree ordered by generated position, so they can
// be added in any order, replaced when the generator maps the same
// position twice, and looked up by generated position.
package sourcemap

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/btree"
)

// Segment maps a generated position to a source position. All fields are
// zero-based, as in the source map format.
type Segment struct {
	GenLine   int
	GenColumn int
	SrcLine   int
	SrcColumn int
}

func lessSegment(a, b Segment) bool {
	if a.GenLine != b.GenLine {
		return a.GenLine < b.GenLine
	}
	return a.GenColumn < b.GenColumn
}

// Map is a source map for one generated file with a single source.
type Map struct {
	File   string
	Source string

	segments *btree.BTreeG[Segment]
}

// New returns an empty map for the generated file and its source.
func New(file, source string) *Map {
	return &Map{File: file, Source: source, segments: btree.NewG(8, lessSegment)}
}

// Add records that generated position (genLine, genColumn) came from
// source position (srcLine, srcColumn). Positions are zero-based. A later
// mapping of the same generated position replaces the earlier one.
func (m *Map) Add(genLine, genColumn, srcLine, srcColumn int) {
	if genLine < 0 || genColumn < 0 || srcLine < 0 || srcColumn < 0 {
		return
	}
	m.segments.ReplaceOrInsert(Segment{genLine, genColumn, srcLine, srcColumn})
}

// Len returns the number of segments.
func (m *Map) Len() int {
	return m.segments.Len()
}

// Segments returns every segment in generated order.
func (m *Map) Segments() []Segment {
	out := make([]Segment, 0, m.segments.Len())
	m.segments.Ascend(func(s Segment) bool {
		out = append(out, s)
		return true
	})
	return out
}

// Lookup returns the segment covering a generated position: the last
// segment on genLine at or before genColumn.
func (m *Map) Lookup(genLine, genColumn int) (Segment, bool) {
	var found Segment
	ok := false
	m.segments.DescendLessOrEqual(Segment{GenLine: genLine, GenColumn: genColumn}, func(s Segment) bool {
		found, ok = s, s.GenLine == genLine
		return false
	})
	return found, ok
}

// Mappings encodes the segments as the VLQ "mappings" string. Each
// segment has four fields: generated column (relative to the previous
// segment on the line), source index, source line and source column
// (relative to the previous segment).
func (m *Map) Mappings() string {
	var b strings.Builder
	line, prevCol, prevSrcLine, prevSrcCol := 0, 0, 0, 0
	first := true
	m.segments.Ascend(func(s Segment) bool {
		for line < s.GenLine {
			b.WriteByte(';')
			line++
			prevCol = 0
			first = true
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		appendVLQ(&b, s.GenColumn-prevCol)
		appendVLQ(&b, 0)
		appendVLQ(&b, s.SrcLine-prevSrcLine)
		appendVLQ(&b, s.SrcColumn-prevSrcCol)
		prevCol, prevSrcLine, prevSrcCol = s.GenColumn, s.SrcLine, s.SrcColumn
		return true
	})
	return b.String()
}

// v3 is the serialized form. Field order follows the format.
type v3 struct {
	Version    int      `json:"version"`
	File       string   `json:"file"`
	SourceRoot string   `json:"sourceRoot"`
	Sources    []string `json:"sources"`
	Names      []string `json:"names"`
	Mappings   string   `json:"mappings"`
}

// MarshalJSON renders the map as a version 3 source map object.
func (m *Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(v3{
		Version:  3,
		File:     m.File,
		Sources:  []string{m.Source},
		Names:    []string{},
		Mappings: m.Mappings(),
	})
}

// String returns the JSON form.
func (m *Map) String() string {
	data, err := m.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(data)
}

// Parse reads a version 3 source map with a single source.
func Parse(data []byte) (*Map, error) {
	var raw v3
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing source map: %w", err)
	}
	if raw.Version != 3 {
		return nil, fmt.Errorf("unsupported source map version %d", raw.Version)
	}
	if len(raw.Sources) != 1 {
		return nil, fmt.Errorf("expected one source, got %d", len(raw.Sources))
	}
	m := New(raw.File, raw.Sources[0])
	segs, err := decodeMappings(raw.Mappings)
	if err != nil {
		return nil, err
	}
	for _, s := range segs {
		m.segments.ReplaceOrInsert(s)
	}
	return m, nil
}

func decodeMappings(mappings string) ([]Segment, error) {
	var out []Segment
	srcLine, srcCol := 0, 0
	for line, group := range strings.Split(mappings, ";") {
		col := 0
		if group == "" {
			continue
		}
		for _, seg := range strings.Split(group, ",") {
			fields := make([]int, 0, 5)
			for rest := seg; rest != ""; {
				var n int
				var err error
				n, rest, err = decodeVLQ(rest)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				fields = append(fields, n)
			}
			if len(fields) == 1 {
				col += fields[0]
				continue
			}
			if len(fields) != 4 && len(fields) != 5 {
				return nil, fmt.Errorf("line %d: segment %q has %d fields", line, seg, len(fields))
			}
			col += fields[0]
			srcLine += fields[2]
			srcCol += fields[3]
			out = append(out, Segment{GenLine: line, GenColumn: col, SrcLine: srcLine, SrcColumn: srcCol})
		}
	}
	return out, nil
}
