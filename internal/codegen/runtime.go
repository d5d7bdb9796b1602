package codegen

import (
	"strconv"
	"strings"
)

// Builtin describes one function or object of the runtime support
// library. Generated code calls it as VB.<Name>.
type Builtin struct {
	Name string
	Min  int
	Max  int // -1 for no limit

	// Object marks runtime objects such as Err and Debug, which are
	// referenced rather than called.
	Object bool
}

// Accepts reports whether n arguments is a valid call.
func (b Builtin) Accepts(n int) bool {
	return n >= b.Min && (b.Max < 0 || n <= b.Max)
}

// Arity renders the accepted argument counts for diagnostics.
func (b Builtin) Arity() string {
	switch {
	case b.Max < 0:
		return strconv.Itoa(b.Min) + " or more"
	case b.Min == b.Max:
		return strconv.Itoa(b.Min)
	default:
		return strconv.Itoa(b.Min) + " to " + strconv.Itoa(b.Max)
	}
}

// Runtime is the name and argument-count contract of the runtime library,
// keyed by lower-case name. A trailing $ on a call (Trim$) selects the same
// entry.
var Runtime = buildRuntime(
	// Strings
	fn("Len", 1, 1), fn("Left", 2, 2), fn("Right", 2, 2), fn("Mid", 2, 3),
	fn("Trim", 1, 1), fn("LTrim", 1, 1), fn("RTrim", 1, 1),
	fn("UCase", 1, 1), fn("LCase", 1, 1), fn("InStr", 2, 4), fn("InStrRev", 2, 4),
	fn("Replace", 3, 6), fn("Space", 1, 1), fn("String", 2, 2), fn("StrComp", 2, 3),
	fn("StrReverse", 1, 1), fn("Split", 1, 4), fn("Join", 1, 2), fn("Format", 1, 4),
	fn("Asc", 1, 1), fn("AscW", 1, 1), fn("Chr", 1, 1), fn("ChrW", 1, 1),

	// Conversion
	fn("CStr", 1, 1), fn("CInt", 1, 1), fn("CLng", 1, 1), fn("CDbl", 1, 1),
	fn("CSng", 1, 1), fn("CBool", 1, 1), fn("CDate", 1, 1), fn("CCur", 1, 1),
	fn("CByte", 1, 1), fn("CVar", 1, 1), fn("Val", 1, 1), fn("Str", 1, 1),
	fn("Hex", 1, 1), fn("Oct", 1, 1),

	// Math
	fn("Abs", 1, 1), fn("Sgn", 1, 1), fn("Int", 1, 1), fn("Fix", 1, 1),
	fn("Sqr", 1, 1), fn("Exp", 1, 1), fn("Log", 1, 1), fn("Sin", 1, 1),
	fn("Cos", 1, 1), fn("Tan", 1, 1), fn("Atn", 1, 1), fn("Rnd", 0, 1),
	fn("Round", 1, 2), fn("Randomize", 0, 1),

	// Dates
	fn("Now", 0, 0), fn("Date", 0, 0), fn("Time", 0, 0), fn("Timer", 0, 0),
	fn("Year", 1, 1), fn("Month", 1, 1), fn("Day", 1, 1), fn("Hour", 1, 1),
	fn("Minute", 1, 1), fn("Second", 1, 1), fn("Weekday", 1, 2),
	fn("DateAdd", 3, 3), fn("DateDiff", 3, 5), fn("DatePart", 2, 4),
	fn("DateSerial", 3, 3), fn("TimeSerial", 3, 3), fn("DateValue", 1, 1),

	// Inspection
	fn("IsNumeric", 1, 1), fn("IsDate", 1, 1), fn("IsEmpty", 1, 1), fn("IsNull", 1, 1),
	fn("IsArray", 1, 1), fn("IsObject", 1, 1), fn("IsMissing", 1, 1),
	fn("TypeName", 1, 1), fn("VarType", 1, 1),

	// Arrays
	fn("UBound", 1, 2), fn("LBound", 1, 2), fn("Array", 0, -1), fn("Erase", 1, -1),

	// Interaction
	fn("MsgBox", 1, 5), fn("InputBox", 1, 7), fn("DoEvents", 0, 0),
	fn("Shell", 1, 2), fn("Environ", 1, 1), fn("IIf", 3, 3), fn("Choose", 2, -1),

	obj("Err"), obj("Debug"), obj("App"),
)

func fn(name string, lo, hi int) Builtin { return Builtin{Name: name, Min: lo, Max: hi} }
func obj(name string) Builtin           { return Builtin{Name: name, Object: true} }

func buildRuntime(list ...Builtin) map[string]Builtin {
	m := make(map[string]Builtin, len(list))
	for _, b := range list {
		m[strings.ToLower(b.Name)] = b
	}
	return m
}

// LookupBuiltin finds a runtime entry by source name.
func LookupBuiltin(name string) (Builtin, bool) {
	b, ok := Runtime[strings.ToLower(strings.TrimSuffix(name, "$"))]
	return b, ok
}

// Helpers lists the runtime functions generated code uses for language
// semantics rather than for source-level calls.
var Helpers = []string{
	"array",      // array(init, [lower, upper], ...)
	"bindEvents", // bindEvents(object, handlers)
	"each",       // each(collection) returns an iterable
	"End",        // stops the program
	"Eqv",
	"fixed", // fixed(text, length) pads or truncates
	"Imp",
	"IntDiv",
	"Like",
	"Null",
	"raiseEvent", // raiseEvent(source, name, args)
	"ReDim",      // ReDim(array, preserve, init, [lower, upper], ...)
	"TextEq",     // case-insensitive equality under Option Compare Text
	"TypeOf",
	"Xor",
}

// Classes are runtime classes created with New.
var Classes = map[string]string{
	"collection": "Collection",
	"dictionary": "Dictionary",
}

// RuntimeModule is the package server builds load the runtime from.
const RuntimeModule = "vbport-runtime"
