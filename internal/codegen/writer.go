package codegen

import (
	"fmt"
	"strings"

	"github.com/barun-bash/vbport/internal/ast"
	"github.com/barun-bash/vbport/internal/sourcemap"
)

const indentUnit = "  "

// writer accumulates generated lines and records a source map segment for
// every line emitted on behalf of a source node.
type writer struct {
	b      strings.Builder
	line   int // zero-based line being written
	indent int
	sm     *sourcemap.Map
}

// emit writes one line at the current indentation. When pos is a real
// source position the line is mapped back to it.
func (w *writer) emit(pos ast.Pos, format string, args ...any) {
	text := format
	if len(args) > 0 {
		text = fmt.Sprintf(format, args...)
	}
	col := len(indentUnit) * w.indent
	if pos.Line > 0 && w.sm != nil {
		srcCol := max(pos.Column-1, 0)
		w.sm.Add(w.line, col, pos.Line-1, srcCol)
	}
	w.b.WriteString(strings.Repeat(indentUnit, w.indent))
	w.b.WriteString(text)
	w.b.WriteByte('\n')
	w.line++
}

// text writes an unmapped line.
func (w *writer) text(format string, args ...any) {
	w.emit(ast.Pos{}, format, args...)
}

func (w *writer) blank() {
	w.b.WriteByte('\n')
	w.line++
}

func (w *writer) in()  { w.indent++ }
func (w *writer) out() { w.indent-- }

func (w *writer) String() string {
	return w.b.String()
}

// jsString quotes s as a double-quoted string literal.
func jsString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\u2028', '\u2029':
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// reserved words that cannot name a binding in generated code.
var reserved = map[string]bool{
	"arguments": true, "await": true, "break": true, "case": true, "catch": true,
	"class": true, "const": true, "continue": true, "debugger": true, "default": true,
	"delete": true, "do": true, "else": true, "enum": true, "eval": true,
	"export": true, "extends": true, "false": true, "finally": true, "for": true,
	"function": true, "if": true, "implements": true, "import": true, "in": true,
	"instanceof": true, "interface": true, "let": true, "new": true, "null": true,
	"package": true, "private": true, "protected": true, "public": true, "return": true,
	"static": true, "super": true, "switch": true, "this": true, "throw": true,
	"true": true, "try": true, "typeof": true, "undefined": true, "var": true,
	"void": true, "while": true, "with": true, "yield": true, "VB": true,
}

// jsIdent returns a legal binding name for a source identifier.
func jsIdent(name string) string {
	if reserved[name] {
		return name + "_"
	}
	return name
}

// comment makes text safe inside a block comment.
func comment(text string) string {
	return strings.ReplaceAll(strings.ReplaceAll(text, "*/", "* /"), "\n", " ")
}
