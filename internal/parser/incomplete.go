package parser

import (
	"strings"

	"github.com/barun-bash/vbport/internal/lexer"
)

// IsIncomplete reports whether source ends inside an open block (a
// procedure, If, loop, Select, With, Type or Enum) or on a line
// continuation, so an interactive reader should ask for more input.
func IsIncomplete(source string) bool {
	trimmed := strings.TrimRight(source, " \t\r\n")
	if strings.HasSuffix(trimmed, " _") || trimmed == "_" {
		return true
	}

	tokens, err := lexer.New(source).Tokenize()
	if err != nil {
		return false
	}

	depth := 0
	atStart := true
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Type {
		case lexer.TOKEN_NEWLINE, lexer.TOKEN_COLON, lexer.TOKEN_LABEL:
			atStart = true
			continue
		}
		if !atStart {
			continue
		}
		atStart = false

		// Skip declaration modifiers.
		for isModifier(tokens[i].Type) && i+1 < len(tokens) {
			i++
		}
		tok = tokens[i]
		next := lexer.Token{Type: lexer.TOKEN_EOF}
		if i+1 < len(tokens) {
			next = tokens[i+1]
		}

		switch tok.Type {
		case lexer.TOKEN_SUB, lexer.TOKEN_FUNCTION, lexer.TOKEN_PROPERTY,
			lexer.TOKEN_FOR, lexer.TOKEN_DO, lexer.TOKEN_WHILE,
			lexer.TOKEN_SELECT, lexer.TOKEN_WITH, lexer.TOKEN_TYPE, lexer.TOKEN_ENUM:
			depth++
		case lexer.TOKEN_IF:
			if blockIf(tokens[i+1:]) {
				depth++
			}
		case lexer.TOKEN_NEXT, lexer.TOKEN_LOOP, lexer.TOKEN_WEND:
			depth--
		case lexer.TOKEN_END:
			switch next.Type {
			case lexer.TOKEN_SUB, lexer.TOKEN_FUNCTION, lexer.TOKEN_PROPERTY,
				lexer.TOKEN_IF, lexer.TOKEN_SELECT, lexer.TOKEN_WITH,
				lexer.TOKEN_TYPE, lexer.TOKEN_ENUM:
				depth--
			}
		}
	}
	return depth > 0
}

func isModifier(t lexer.TokenType) bool {
	switch t {
	case lexer.TOKEN_PUBLIC, lexer.TOKEN_PRIVATE, lexer.TOKEN_FRIEND,
		lexer.TOKEN_GLOBAL, lexer.TOKEN_STATIC:
		return true
	}
	return false
}

// blockIf reports whether the If whose remaining tokens are rest is the
// block form: nothing but a comment follows Then.
func blockIf(rest []lexer.Token) bool {
	for i, tok := range rest {
		switch tok.Type {
		case lexer.TOKEN_NEWLINE, lexer.TOKEN_EOF:
			return false
		case lexer.TOKEN_THEN:
			if i+1 >= len(rest) {
				return true
			}
			switch rest[i+1].Type {
			case lexer.TOKEN_NEWLINE, lexer.TOKEN_EOF, lexer.TOKEN_COMMENT, lexer.TOKEN_REM:
				return true
			}
			return false
		}
	}
	return false
}
