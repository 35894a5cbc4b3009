package validate

import (
	"strings"
	"testing"
)

func TestSlug(t *testing.T) {
	valid := []string{"aim-precision", "esp", "pack-2024", "a-1-b"}
	for _, s := range valid {
		if !Slug(s) {
			t.Fatalf("expected slug %q to be valid", s)
		}
	}
	invalid := []string{"", "Aim-Precision", "esp pro", "-esp", "esp-", "esp--pro", "esp_pro"}
	for _, s := range invalid {
		if Slug(s) {
			t.Fatalf("expected slug %q to be invalid", s)
		}
	}
}

func TestHexColor(t *testing.T) {
	valid := []string{"#fff", "#7c3aed", "#ABCDEF"}
	for _, s := range valid {
		if !HexColor(s) {
			t.Fatalf("expected color %q to be valid", s)
		}
	}
	invalid := []string{"fff", "#ffff", "#gggggg", "#12345"}
	for _, s := range invalid {
		if HexColor(s) {
			t.Fatalf("expected color %q to be invalid", s)
		}
	}
}

func TestRatingBounds(t *testing.T) {
	for r := 1; r <= 5; r++ {
		if !Rating(r) {
			t.Fatalf("expected rating %d to be valid", r)
		}
	}
	for _, r := range []int{0, -1, 6, 100} {
		if Rating(r) {
			t.Fatalf("expected rating %d to be invalid", r)
		}
	}
}

func TestComment(t *testing.T) {
	if Comment("too short") {
		t.Fatalf("expected comment under 10 chars to be invalid")
	}
	if !Comment("this one is long enough") {
		t.Fatalf("expected valid comment to pass")
	}
	long := make([]byte, MaxCommentLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if Comment(string(long)) {
		t.Fatalf("expected comment over %d chars to be invalid", MaxCommentLen)
	}
}

func TestCommentCountsCharactersNotBytes(t *testing.T) {
	// 5 characters spanning 10 bytes; under the 10-character minimum.
	if Comment("ççççç") {
		t.Fatal("expected 5-char multi-byte comment to be invalid")
	}
	// Exactly MaxCommentLen multi-byte characters must still be accepted.
	atMax := strings.Repeat("é", MaxCommentLen)
	if !Comment(atMax) {
		t.Fatalf("expected comment of exactly %d multi-byte chars to be valid", MaxCommentLen)
	}
	if Comment(atMax + "é") {
		t.Fatalf("expected comment of %d chars to be invalid", MaxCommentLen+1)
	}
}

func TestPriceCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"49.90", 4990, true},
		{"49.9", 4990, true},
		{"49", 4900, true},
		{"0.05", 5, true},
		{".5", 50, true},
		{"", 0, false},
		{"49.999", 0, false},
		{"-1", 0, false},
		{"abc", 0, false},
		{"0", 0, false},
		{"0.00", 0, false},
		{"-0.50", 0, false},
		{"+1", 0, false},
		{"1.-5", 0, false},
		{"92233720368547758", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tc := range cases {
		got, ok := PriceCents(tc.in)
		if ok != tc.ok {
			t.Fatalf("PriceCents(%q): expected ok=%v, got %v", tc.in, tc.ok, ok)
		}
		if ok && got != tc.want {
			t.Fatalf("PriceCents(%q): expected %d, got %d", tc.in, tc.want, got)
		}
	}
}
