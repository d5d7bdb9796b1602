package sourcemap

import (
	"fmt"
	"strings"
)

const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

const (
	vlqShift    = 5
	vlqBase     = 1 << vlqShift
	vlqMask     = vlqBase - 1
	vlqContinue = vlqBase
)

// appendVLQ appends the base64 VLQ encoding of n: the sign goes in the
// lowest bit, then 5-bit groups low to high with a continuation bit.
func appendVLQ(b *strings.Builder, n int) {
	v := n << 1
	if n < 0 {
		v = (-n << 1) | 1
	}
	for {
		digit := v & vlqMask
		v >>= vlqShift
		if v > 0 {
			digit |= vlqContinue
		}
		b.WriteByte(base64Chars[digit])
		if v == 0 {
			return
		}
	}
}

// decodeVLQ reads one value from s and returns it with the rest of s.
func decodeVLQ(s string) (int, string, error) {
	v, shift := 0, 0
	for i := 0; i < len(s); i++ {
		digit := strings.IndexByte(base64Chars, s[i])
		if digit < 0 {
			return 0, "", fmt.Errorf("invalid base64 character %q", s[i])
		}
		v |= (digit & vlqMask) << shift
		if digit&vlqContinue == 0 {
			n := v >> 1
			if v&1 == 1 {
				n = -n
			}
			return n, s[i+1:], nil
		}
		shift += vlqShift
		if shift > 60 {
			return 0, "", fmt.Errorf("VLQ value too large")
		}
	}
	return 0, "", fmt.Errorf("unterminated VLQ value")
}
