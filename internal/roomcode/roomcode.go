// Package roomcode generates and normalizes the short codes used to join a room.
package roomcode

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Alphabet excludes visually ambiguous glyphs (0, 1, O, I).
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length is the number of characters in a room code.
const Length = 6

// Generate draws each character uniformly and independently from Alphabet.
// len(Alphabet) divides 256, so masking a random byte introduces no bias.
func Generate() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = Alphabet[int(b)&(len(Alphabet)-1)]
	}
	return string(buf), nil
}

// Normalize returns the canonical uppercase form used for lookups.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code is already in canonical form.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(Alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
