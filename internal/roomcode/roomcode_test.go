package roomcode

import (
	"strings"
	"testing"
)

func TestGenerateFormat(t *testing.T) {
	if len(Alphabet) != 32 {
		t.Fatalf("alphabet has %d symbols, want 32", len(Alphabet))
	}
	for _, c := range "01OI" {
		if strings.ContainsRune(Alphabet, c) {
			t.Fatalf("alphabet must not contain ambiguous %q", c)
		}
	}

	for i := 0; i < 1000; i++ {
		code, err := Generate()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != Length {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		if !Valid(code) {
			t.Fatalf("code %q contains characters outside the alphabet", code)
		}
	}
}

func TestGenerateCoversAlphabet(t *testing.T) {
	seen := make(map[byte]int)
	for i := 0; i < 2000; i++ {
		code, err := Generate()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		for j := 0; j < len(code); j++ {
			seen[code[j]]++
		}
	}
	// 12000 draws over 32 symbols, expected 375 each.
	for i := 0; i < len(Alphabet); i++ {
		n := seen[Alphabet[i]]
		if n < 250 || n > 500 {
			t.Errorf("symbol %q drawn %d times, far from uniform", Alphabet[i], n)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
		valid    bool
	}{
		{"abc234", "ABC234", true},
		{"  xyz789 ", "XYZ789", true},
		{"ABCDEF", "ABCDEF", true},
		{"abc10o", "ABC10O", false},
		{"abc", "ABC", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got := Normalize(tt.in)
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if Valid(got) != tt.valid {
			t.Errorf("Valid(%q) = %v, want %v", got, !tt.valid, tt.valid)
		}
	}
}
