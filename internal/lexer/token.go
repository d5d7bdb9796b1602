package lexer

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a lexical token.
type TokenType int

const (
	// Structural tokens
	TOKEN_EOF     TokenType = iota
	TOKEN_NEWLINE           // end of a logical line
	TOKEN_COLON             // : statement separator
	TOKEN_COMMA             // ,
	TOKEN_COMMENT           // ' comment text
	TOKEN_REM               // Rem comment text
	TOKEN_LABEL             // Label: or line number at line start
	TOKEN_UNKNOWN           // unrecognized character

	// Literal tokens
	TOKEN_INTEGER_LIT  // 42, &HFF, &O17, 10&
	TOKEN_FLOAT_LIT    // 3.14, .5, 1E3, 2!
	TOKEN_CURRENCY_LIT // 19.99@
	TOKEN_STRING_LIT   // "hello ""world"""
	TOKEN_DATE_LIT     // #1/1/2000#
	TOKEN_IDENTIFIER   // Counter, Left$, btn_Click

	// Operators and punctuation
	TOKEN_PLUS      // +
	TOKEN_MINUS     // -
	TOKEN_STAR      // *
	TOKEN_SLASH     // /
	TOKEN_BACKSLASH // \
	TOKEN_CARET     // ^
	TOKEN_AMP       // &
	TOKEN_EQ        // =
	TOKEN_NEQ       // <>
	TOKEN_LT        // <
	TOKEN_GT        // >
	TOKEN_LE        // <=
	TOKEN_GE        // >=
	TOKEN_ASSIGN    // := (named argument)
	TOKEN_DOT       // .
	TOKEN_BANG      // ! (dictionary access)
	TOKEN_LPAREN    // (
	TOKEN_RPAREN    // )
	TOKEN_SEMICOLON // ;
	TOKEN_HASH      // # (file number)

	// ── Declaration Keywords ──

	TOKEN_OPTION
	TOKEN_ATTRIBUTE
	TOKEN_DIM
	TOKEN_PRIVATE
	TOKEN_PUBLIC
	TOKEN_GLOBAL
	TOKEN_FRIEND
	TOKEN_STATIC
	TOKEN_CONST
	TOKEN_TYPE
	TOKEN_ENUM
	TOKEN_DECLARE
	TOKEN_EVENT
	TOKEN_WITHEVENTS
	TOKEN_SUB
	TOKEN_FUNCTION
	TOKEN_PROPERTY
	TOKEN_END
	TOKEN_AS
	TOKEN_BYVAL
	TOKEN_BYREF
	TOKEN_OPTIONAL
	TOKEN_PARAMARRAY
	TOKEN_NEW
	TOKEN_REDIM

	// ── Statement Keywords ──

	TOKEN_IF
	TOKEN_THEN
	TOKEN_ELSE
	TOKEN_ELSEIF
	TOKEN_FOR
	TOKEN_TO
	TOKEN_STEP
	TOKEN_NEXT
	TOKEN_EACH
	TOKEN_IN
	TOKEN_DO
	TOKEN_LOOP
	TOKEN_WHILE
	TOKEN_UNTIL
	TOKEN_WEND
	TOKEN_SELECT
	TOKEN_CASE
	TOKEN_WITH
	TOKEN_ON
	TOKEN_RESUME
	TOKEN_GOTO
	TOKEN_GOSUB
	TOKEN_RETURN
	TOKEN_EXIT
	TOKEN_CALL
	TOKEN_RAISEEVENT
	TOKEN_LET
	TOKEN_SET

	// ── Operator Keywords ──

	TOKEN_AND
	TOKEN_OR
	TOKEN_NOT
	TOKEN_XOR
	TOKEN_EQV
	TOKEN_IMP
	TOKEN_MOD
	TOKEN_LIKE
	TOKEN_IS
	TOKEN_TYPEOF
	TOKEN_ADDRESSOF

	// ── Literal Keywords ──

	TOKEN_TRUE
	TOKEN_FALSE
	TOKEN_NOTHING
	TOKEN_EMPTY
	TOKEN_NULL
)

// Kind is the coarse classification of a token type.
type Kind int

const (
	KindEOF Kind = iota
	KindNewline
	KindKeyword
	KindIdentifier
	KindLiteral
	KindOperator
	KindPunctuation
	KindComment
	KindLabel
	KindUnknown
)

var kindNames = [...]string{
	KindEOF:         "eof",
	KindNewline:     "newline",
	KindKeyword:     "keyword",
	KindIdentifier:  "identifier",
	KindLiteral:     "literal",
	KindOperator:    "operator",
	KindPunctuation: "punctuation",
	KindComment:     "comment",
	KindLabel:       "label",
	KindUnknown:     "unknown",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Kind returns the coarse classification of t.
func (t TokenType) Kind() Kind {
	switch {
	case t == TOKEN_EOF:
		return KindEOF
	case t == TOKEN_NEWLINE:
		return KindNewline
	case t == TOKEN_COMMENT || t == TOKEN_REM:
		return KindComment
	case t == TOKEN_LABEL:
		return KindLabel
	case t == TOKEN_UNKNOWN:
		return KindUnknown
	case t == TOKEN_IDENTIFIER:
		return KindIdentifier
	case t >= TOKEN_INTEGER_LIT && t <= TOKEN_DATE_LIT:
		return KindLiteral
	case t >= TOKEN_TRUE && t <= TOKEN_NULL:
		return KindLiteral
	case t == TOKEN_COLON || t == TOKEN_COMMA || t == TOKEN_LPAREN ||
		t == TOKEN_RPAREN || t == TOKEN_SEMICOLON || t == TOKEN_HASH:
		return KindPunctuation
	case t >= TOKEN_PLUS && t <= TOKEN_BANG:
		return KindOperator
	case t >= TOKEN_AND && t <= TOKEN_ADDRESSOF:
		return KindOperator
	default:
		return KindKeyword
	}
}

// tokenNames maps non-keyword token types to their display names.
var tokenNames = map[TokenType]string{
	TOKEN_EOF:          "EOF",
	TOKEN_NEWLINE:      "NEWLINE",
	TOKEN_COLON:        "COLON",
	TOKEN_COMMA:        "COMMA",
	TOKEN_COMMENT:      "COMMENT",
	TOKEN_REM:          "REM",
	TOKEN_LABEL:        "LABEL",
	TOKEN_UNKNOWN:      "UNKNOWN",
	TOKEN_INTEGER_LIT:  "INTEGER",
	TOKEN_FLOAT_LIT:    "FLOAT",
	TOKEN_CURRENCY_LIT: "CURRENCY",
	TOKEN_STRING_LIT:   "STRING",
	TOKEN_DATE_LIT:     "DATE",
	TOKEN_IDENTIFIER:   "IDENTIFIER",
	TOKEN_PLUS:         "+",
	TOKEN_MINUS:        "-",
	TOKEN_STAR:         "*",
	TOKEN_SLASH:        "/",
	TOKEN_BACKSLASH:    `\`,
	TOKEN_CARET:        "^",
	TOKEN_AMP:          "&",
	TOKEN_EQ:           "=",
	TOKEN_NEQ:          "<>",
	TOKEN_LT:           "<",
	TOKEN_GT:           ">",
	TOKEN_LE:           "<=",
	TOKEN_GE:           ">=",
	TOKEN_ASSIGN:       ":=",
	TOKEN_DOT:          ".",
	TOKEN_BANG:         "!",
	TOKEN_LPAREN:       "(",
	TOKEN_RPAREN:       ")",
	TOKEN_SEMICOLON:    ";",
	TOKEN_HASH:         "#",
}

// String returns the display name of a token type. Keywords display in
// their canonical source spelling.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	if name, ok := keywordNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", int(t))
}

// Token represents a single lexical token with its position in the source.
type Token struct {
	Type    TokenType
	Literal string // source text; for comments the text after the marker
	Line    int    // 1-based line number
	Column  int    // 1-based column number
}

// String returns a human-readable representation of a token.
func (t Token) String() string {
	switch t.Type {
	case TOKEN_EOF:
		return "EOF"
	case TOKEN_NEWLINE:
		return "NEWLINE"
	default:
		if t.Literal != "" {
			return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
		}
		return t.Type.String()
	}
}

// Is reports whether the token is an identifier or keyword spelled word,
// compared case-insensitively. Used for contextual keywords such as Lib,
// Alias, Get, Preserve and Error that remain valid identifiers.
func (t Token) Is(word string) bool {
	if t.Type != TOKEN_IDENTIFIER && t.Type.Kind() != KindKeyword && t.Type.Kind() != KindOperator {
		return false
	}
	return strings.EqualFold(t.Literal, word)
}

// keywords maps lowercase keyword strings to their token types.
// All keyword matching is case-insensitive.
var keywords = map[string]TokenType{
	// Declarations
	"option":     TOKEN_OPTION,
	"attribute":  TOKEN_ATTRIBUTE,
	"dim":        TOKEN_DIM,
	"private":    TOKEN_PRIVATE,
	"public":     TOKEN_PUBLIC,
	"global":     TOKEN_GLOBAL,
	"friend":     TOKEN_FRIEND,
	"static":     TOKEN_STATIC,
	"const":      TOKEN_CONST,
	"type":       TOKEN_TYPE,
	"enum":       TOKEN_ENUM,
	"declare":    TOKEN_DECLARE,
	"event":      TOKEN_EVENT,
	"withevents": TOKEN_WITHEVENTS,
	"sub":        TOKEN_SUB,
	"function":   TOKEN_FUNCTION,
	"property":   TOKEN_PROPERTY,
	"end":        TOKEN_END,
	"as":         TOKEN_AS,
	"byval":      TOKEN_BYVAL,
	"byref":      TOKEN_BYREF,
	"optional":   TOKEN_OPTIONAL,
	"paramarray": TOKEN_PARAMARRAY,
	"new":        TOKEN_NEW,
	"redim":      TOKEN_REDIM,

	// Statements
	"if":         TOKEN_IF,
	"then":       TOKEN_THEN,
	"else":       TOKEN_ELSE,
	"elseif":     TOKEN_ELSEIF,
	"for":        TOKEN_FOR,
	"to":         TOKEN_TO,
	"step":       TOKEN_STEP,
	"next":       TOKEN_NEXT,
	"each":       TOKEN_EACH,
	"in":         TOKEN_IN,
	"do":         TOKEN_DO,
	"loop":       TOKEN_LOOP,
	"while":      TOKEN_WHILE,
	"until":      TOKEN_UNTIL,
	"wend":       TOKEN_WEND,
	"select":     TOKEN_SELECT,
	"case":       TOKEN_CASE,
	"with":       TOKEN_WITH,
	"on":         TOKEN_ON,
	"resume":     TOKEN_RESUME,
	"goto":       TOKEN_GOTO,
	"gosub":      TOKEN_GOSUB,
	"return":     TOKEN_RETURN,
	"exit":       TOKEN_EXIT,
	"call":       TOKEN_CALL,
	"raiseevent": TOKEN_RAISEEVENT,
	"let":        TOKEN_LET,
	"set":        TOKEN_SET,

	// Operators
	"and":       TOKEN_AND,
	"or":        TOKEN_OR,
	"not":       TOKEN_NOT,
	"xor":       TOKEN_XOR,
	"eqv":       TOKEN_EQV,
	"imp":       TOKEN_IMP,
	"mod":       TOKEN_MOD,
	"like":      TOKEN_LIKE,
	"is":        TOKEN_IS,
	"typeof":    TOKEN_TYPEOF,
	"addressof": TOKEN_ADDRESSOF,

	// Literals
	"true":    TOKEN_TRUE,
	"false":   TOKEN_FALSE,
	"nothing": TOKEN_NOTHING,
	"empty":   TOKEN_EMPTY,
	"null":    TOKEN_NULL,
}

// keywordNames holds the canonical spelling of each keyword.
var keywordNames = func() map[TokenType]string {
	m := make(map[TokenType]string, len(keywords))
	for word, tok := range keywords {
		m[tok] = canonical(word)
	}
	return m
}()

// canonical restores the mixed-case spelling the legacy IDE displays.
func canonical(word string) string {
	switch word {
	case "elseif":
		return "ElseIf"
	case "withevents":
		return "WithEvents"
	case "byval":
		return "ByVal"
	case "byref":
		return "ByRef"
	case "paramarray":
		return "ParamArray"
	case "redim":
		return "ReDim"
	case "goto":
		return "GoTo"
	case "gosub":
		return "GoSub"
	case "raiseevent":
		return "RaiseEvent"
	case "typeof":
		return "TypeOf"
	case "addressof":
		return "AddressOf"
	}
	return strings.ToUpper(word[:1]) + word[1:]
}

// LookupKeyword returns the keyword token type for the given word,
// or TOKEN_IDENTIFIER if the word is not a keyword.
// Matching is case-insensitive.
func LookupKeyword(word string) TokenType {
	if tok, ok := keywords[strings.ToLower(word)]; ok {
		return tok
	}
	return TOKEN_IDENTIFIER
}

// IsKeyword reports whether word is a reserved keyword.
func IsKeyword(word string) bool {
	return LookupKeyword(word) != TOKEN_IDENTIFIER
}
