package errors

import (
	"fmt"
	"strings"
)

// Severity indicates how serious a compiler diagnostic is.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityHint
)

// String returns the lowercase severity name used in JSON output.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "hint"
	}
}

// Kind classifies where in the pipeline a diagnostic originated.
type Kind int

const (
	KindLex Kind = iota
	KindParse
	KindSemantic
	KindFatal
)

var kindNames = [...]string{
	KindLex:      "LexError",
	KindParse:    "ParseError",
	KindSemantic: "SemanticWarning",
	KindFatal:    "FatalError",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// CompilerError is a single diagnostic from the compiler.
type CompilerError struct {
	Message    string   `json:"message"`
	Severity   Severity `json:"-"`
	Kind       Kind     `json:"-"`
	File       string   `json:"file,omitempty"`
	Line       int      `json:"line,omitempty"`   // 0 if unknown
	Column     int      `json:"column,omitempty"` // 0 if unknown
	Suggestion string   `json:"suggestion,omitempty"`
	Code       string   `json:"code"` // "P201" style code
}

// Error makes a CompilerError usable as a Go error.
func (e *CompilerError) Error() string {
	return e.Format()
}

// Format returns a single-line representation of this error
// suitable for terminal output without ANSI codes; the cli package adds color.
func (e *CompilerError) Format() string {
	var b strings.Builder

	if e.File != "" {
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
			if e.Column > 0 {
				fmt.Fprintf(&b, ":%d", e.Column)
			}
		}
		b.WriteString(" — ")
	} else if e.Line > 0 {
		fmt.Fprintf(&b, "line %d — ", e.Line)
	}

	b.WriteString(e.Message)

	if e.Code != "" {
		b.WriteString(" [")
		b.WriteString(e.Code)
		b.WriteString("]")
	}

	return b.String()
}

// CompilerErrors collects diagnostics produced during compilation.
type CompilerErrors struct {
	errors []*CompilerError
	file   string // default file context
}

// New creates a CompilerErrors collection scoped to a file.
func New(file string) *CompilerErrors {
	return &CompilerErrors{file: file}
}

// SetFile changes the default file context. Diagnostics already recorded
// without a file take the new one.
func (ce *CompilerErrors) SetFile(file string) {
	ce.file = file
	for _, e := range ce.errors {
		if e.File == "" {
			e.File = file
		}
	}
}

// Add appends an error to the collection.
func (ce *CompilerErrors) Add(err *CompilerError) {
	if err.File == "" {
		err.File = ce.file
	}
	ce.errors = append(ce.errors, err)
}

// AddError is a shorthand for adding a SeverityError diagnostic.
func (ce *CompilerErrors) AddError(code, message string) {
	ce.Add(&CompilerError{
		Code:     code,
		Message:  message,
		Severity: SeverityError,
		Kind:     KindSemantic,
	})
}

// AddWarning is a shorthand for adding a SeverityWarning diagnostic.
func (ce *CompilerErrors) AddWarning(code, message string) {
	ce.Add(&CompilerError{
		Code:     code,
		Message:  message,
		Severity: SeverityWarning,
		Kind:     KindSemantic,
	})
}

// AddWarningAt adds a semantic warning anchored to a source position.
func (ce *CompilerErrors) AddWarningAt(code string, line, column int, message string) {
	ce.Add(&CompilerError{
		Code:     code,
		Message:  message,
		Severity: SeverityWarning,
		Kind:     KindSemantic,
		Line:     line,
		Column:   column,
	})
}

// AddErrorAt adds an error of the given kind anchored to a source position.
func (ce *CompilerErrors) AddErrorAt(kind Kind, code string, line, column int, message string) {
	ce.Add(&CompilerError{
		Code:     code,
		Message:  message,
		Severity: SeverityError,
		Kind:     kind,
		Line:     line,
		Column:   column,
	})
}

// AddWarningWithSuggestion adds a warning with a "did you mean" suggestion.
func (ce *CompilerErrors) AddWarningWithSuggestion(code, message, suggestion string) {
	ce.Add(&CompilerError{
		Code:       code,
		Message:    message,
		Severity:   SeverityWarning,
		Kind:       KindSemantic,
		Suggestion: suggestion,
	})
}

// AddErrorWithSuggestion adds an error with a "did you mean" suggestion.
func (ce *CompilerErrors) AddErrorWithSuggestion(code, message, suggestion string) {
	ce.Add(&CompilerError{
		Code:       code,
		Message:    message,
		Severity:   SeverityError,
		Kind:       KindSemantic,
		Suggestion: suggestion,
	})
}

// AddFatal records an unrecoverable failure.
func (ce *CompilerErrors) AddFatal(message string) {
	ce.Add(&CompilerError{
		Code:     "F900",
		Message:  message,
		Severity: SeverityError,
		Kind:     KindFatal,
	})
}

// HasErrors returns true if the collection contains any SeverityError entries.
func (ce *CompilerErrors) HasErrors() bool {
	for _, e := range ce.errors {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasFatal reports whether a FatalError was recorded.
func (ce *CompilerErrors) HasFatal() bool {
	for _, e := range ce.errors {
		if e.Kind == KindFatal {
			return true
		}
	}
	return false
}

// HasWarnings returns true if the collection contains any SeverityWarning entries.
func (ce *CompilerErrors) HasWarnings() bool {
	for _, e := range ce.errors {
		if e.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// Errors returns only the SeverityError entries.
func (ce *CompilerErrors) Errors() []*CompilerError {
	var result []*CompilerError
	for _, e := range ce.errors {
		if e.Severity == SeverityError {
			result = append(result, e)
		}
	}
	return result
}

// Warnings returns only the SeverityWarning entries.
func (ce *CompilerErrors) Warnings() []*CompilerError {
	var result []*CompilerError
	for _, e := range ce.errors {
		if e.Severity == SeverityWarning {
			result = append(result, e)
		}
	}
	return result
}

// OfKind returns the diagnostics of a single kind, in insertion order.
func (ce *CompilerErrors) OfKind(k Kind) []*CompilerError {
	var result []*CompilerError
	for _, e := range ce.errors {
		if e.Kind == k {
			result = append(result, e)
		}
	}
	return result
}

// All returns every diagnostic in the collection.
func (ce *CompilerErrors) All() []*CompilerError {
	return ce.errors
}

// Format returns a human-friendly multiline string of all diagnostics.
func (ce *CompilerErrors) Format() string {
	var b strings.Builder
	for i, e := range ce.errors {
		if i > 0 {
			b.WriteString("\n")
		}

		switch e.Severity {
		case SeverityError:
			fmt.Fprintf(&b, "✗ %s", e.Format())
		case SeverityWarning:
			fmt.Fprintf(&b, "⚠ %s", e.Format())
		case SeverityHint:
			fmt.Fprintf(&b, "· %s", e.Format())
		}

		if e.Suggestion != "" {
			fmt.Fprintf(&b, "\n  suggestion: %s", e.Suggestion)
		}
	}
	return b.String()
}
