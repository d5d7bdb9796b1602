package lexer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseInteger converts the text of a TOKEN_INTEGER_LIT (decimal, &H hex or
// &O octal, with an optional type suffix) to its value. Hex and octal
// literals wider than 31 bits wrap to a signed 32-bit Long, as the legacy
// runtime does for &HFFFFFFFF.
func ParseInteger(lit string) (int64, error) {
	text := strings.TrimRight(lit, "%&^")
	if text == "" {
		return 0, fmt.Errorf("empty integer literal %q", lit)
	}

	base := 10
	if len(text) >= 2 && text[0] == '&' {
		switch text[1] {
		case 'H', 'h':
			base = 16
		case 'O', 'o':
			base = 8
		default:
			return 0, fmt.Errorf("invalid radix prefix in %q", lit)
		}
		text = text[2:]
	}

	u, err := strconv.ParseUint(text, base, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer literal %q: %w", lit, err)
	}
	if base != 10 && u > math.MaxInt32 && u <= math.MaxUint32 {
		return int64(int32(uint32(u))), nil
	}
	if u > math.MaxInt64 {
		return 0, fmt.Errorf("integer literal %q overflows", lit)
	}
	return int64(u), nil
}

// ParseFloat converts the text of a TOKEN_FLOAT_LIT or TOKEN_CURRENCY_LIT.
// The legacy 'D' exponent marker is accepted.
func ParseFloat(lit string) (float64, error) {
	text := strings.TrimRight(lit, "!#@")
	text = strings.Map(func(r rune) rune {
		if r == 'D' || r == 'd' {
			return 'E'
		}
		return r
	}, text)
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric literal %q: %w", lit, err)
	}
	return f, nil
}
