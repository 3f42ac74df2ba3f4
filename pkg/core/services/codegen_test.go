package services

import (
	"context"
	"strings"
	"testing"
)

func TestRandomCodeGenerator(t *testing.T) {
	gen, err := NewRandomCodeGenerator(7)
	if err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := gen.NewCode(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(code) != 7 {
			t.Fatalf("expected length 7, got %q", code)
		}
		for _, c := range code {
			if !strings.ContainsRune(charset, c) {
				t.Fatalf("code %q contains %q outside the alphabet", code, c)
			}
		}
		seen[code] = true
	}
	if len(seen) < 190 {
		t.Errorf("expected mostly distinct codes, got %d of 200", len(seen))
	}
}

func TestRandomCodeGeneratorRejectsInvalidLength(t *testing.T) {
	for _, n := range []int{0, -3} {
		if _, err := NewRandomCodeGenerator(n); err == nil {
			t.Errorf("length %d: expected error", n)
		}
	}
}

func TestCharsetHas62Symbols(t *testing.T) {
	if len(charset) != 62 {
		t.Fatalf("expected 62 symbols, got %d", len(charset))
	}
	seen := map[rune]bool{}
	for _, c := range charset {
		if seen[c] {
			t.Fatalf("duplicate symbol %q", c)
		}
		seen[c] = true
	}
}
