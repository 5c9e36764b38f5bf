package match

import "testing"

func TestContainsExactSubstring(t *testing.T) {
	if !Contains("ts4-coolmod.zip", "ts4") {
		t.Error("expected exact substring match")
	}
	if Contains("minecraft-forge.jar", "sims") {
		t.Error("unexpected match")
	}
}

func TestContainsSeparatorVariants(t *testing.T) {
	cases := []struct {
		haystack string
		keyword  string
	}{
		{"cool-mod-pack.zip", "cool mod"},
		{"cool_mod_pack.zip", "cool mod"},
		{"dl?q=cool+mod", "cool mod"},
		{"dl?q=cool%20mod", "cool mod"},
		{"stellar blade patch", "stellar-blade"},
		{"stellar blade patch", "stellar_blade"},
		{"stellar blade patch", "stellar+blade"},
	}
	for _, tc := range cases {
		if !Contains(tc.haystack, tc.keyword) {
			t.Errorf("Contains(%q, %q) = false, want true", tc.haystack, tc.keyword)
		}
	}
}

func TestContainsNoFuzzyMatching(t *testing.T) {
	if Contains("simulator.exe", "sims 4") {
		t.Error("partial keyword should not match")
	}
	if Contains("anything", "") {
		t.Error("empty keyword should never match")
	}
}

func TestNormalizeFoldsCase(t *testing.T) {
	if got := Normalize("TS4-CoolMod.ZIP"); got != "ts4-coolmod.zip" {
		t.Errorf("Normalize = %q", got)
	}
	// Case folding handles non-ASCII uppercase too.
	if got := Normalize("ÜBERMOD"); got != "übermod" {
		t.Errorf("Normalize = %q", got)
	}
}
