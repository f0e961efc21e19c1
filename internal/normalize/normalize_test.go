package normalize_test

import (
	"testing"

	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/normalize"
)

func TestGenderCanonical(t *testing.T) {
	cases := map[string]string{
		"M": "M", "m": "M", "남자": "M", "male": "M", "1": "M",
		"F": "F", "여성": "F", "WOMAN": "F", "2": "F",
		"unknown": "", "": "",
	}
	for raw, want := range cases {
		if got := normalize.Gender(raw); got != want {
			t.Errorf("Gender(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestGenderVariantsRoundTrip(t *testing.T) {
	for _, canonical := range normalize.Genders {
		variants := normalize.GenderVariants(canonical)
		if len(variants) < 5 {
			t.Fatalf("expected several variants for %s, got %d", canonical, len(variants))
		}
		for _, v := range variants {
			if got := normalize.Gender(v); got != canonical {
				t.Errorf("variant %q normalizes to %q, want %q", v, got, canonical)
			}
		}
	}
}

func TestGenderVariantsOpenWorld(t *testing.T) {
	got := normalize.GenderVariants("X")
	if len(got) != 1 || got[0] != "X" {
		t.Fatalf("unknown canonical should fall back to exact match, got %v", got)
	}
}

func TestVariantsAcceptRawSpellings(t *testing.T) {
	// A raw spelling must expand the same set as its canonical code.
	for raw, canonical := range map[string]string{"남": "M", "여성": "F"} {
		got := normalize.GenderVariants(raw)
		want := normalize.GenderVariants(canonical)
		if len(got) != len(want) {
			t.Fatalf("GenderVariants(%q) = %v, want the %s set %v", raw, got, canonical, want)
		}
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("GenderVariants(%q) = %v, want %v", raw, got, want)
			}
		}
	}
	if len(normalize.GradeVariants("골드회원")) != len(normalize.GradeVariants("GOLD")) {
		t.Fatal("raw grade spelling must expand the canonical set")
	}
	if len(normalize.RegionVariants("서울특별시")) != len(normalize.RegionVariants("서울")) {
		t.Fatal("raw region spelling must expand the canonical set")
	}
}

func TestGradeVariantsKeepUnknownSpelling(t *testing.T) {
	got := normalize.GradeVariants("platinum")
	seen := map[string]bool{}
	for _, v := range got {
		seen[v] = true
	}
	if !seen["platinum"] || !seen["PLATINUM"] {
		t.Fatalf("tenant tier must match both spellings, got %v", got)
	}
}

func TestGradeUnknownUppercased(t *testing.T) {
	if got := normalize.Grade("platinum"); got != "PLATINUM" {
		t.Fatalf("Grade(platinum) = %q, want PLATINUM", got)
	}
	if got := normalize.Grade("골드회원"); got != "GOLD" {
		t.Fatalf("Grade(골드회원) = %q, want GOLD", got)
	}
}

func TestRegionVariantsRoundTrip(t *testing.T) {
	variants := normalize.RegionVariants("서울")
	if len(variants) < 4 {
		t.Fatalf("expected seoul variants, got %v", variants)
	}
	for _, v := range variants {
		if normalize.Region(v) != "서울" {
			t.Errorf("variant %q did not normalize back to 서울", v)
		}
	}
	// Overseas addresses pass through unchanged.
	if normalize.Region("Tokyo") != "Tokyo" {
		t.Error("unknown region should pass through")
	}
}

func TestOptIn(t *testing.T) {
	for _, raw := range []string{"Y", "동의", "1", "true"} {
		if v, ok := normalize.OptIn(raw); !ok || !v {
			t.Errorf("OptIn(%q) = (%v,%v), want (true,true)", raw, v, ok)
		}
	}
	for _, raw := range []string{"N", "수신거부", "0"} {
		if v, ok := normalize.OptIn(raw); !ok || v {
			t.Errorf("OptIn(%q) = (%v,%v), want (false,true)", raw, v, ok)
		}
	}
	if _, ok := normalize.OptIn("maybe"); ok {
		t.Error("OptIn(maybe) should not be recognized")
	}
}

func TestPhone(t *testing.T) {
	cases := map[string]string{
		"010-1234-5678":  "01012345678",
		"+82 10 1234 5678": "01012345678",
		"1012345678":     "01012345678", // Excel dropped the leading zero
		"011-234-5678":   "0112345678",
		"01012345678":    "01012345678",
		"02-123-4567":    "",            // landline, not dispatchable
		"010-1234-567":   "",            // too short
		"":               "",
	}
	for raw, want := range cases {
		if got := normalize.Phone(raw); got != want {
			t.Errorf("Phone(%q) = %q, want %q", raw, got, want)
		}
	}
}
