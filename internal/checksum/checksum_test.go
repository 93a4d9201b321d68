package checksum

import "testing"

func TestSum_Stable(t *testing.T) {
	a := Sum([]byte("deck"))
	b := Sum([]byte("deck"))
	if a != b {
		t.Fatalf("Sum not stable: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("len = %d, want 64", len(a))
	}
}

func TestSumStrings_Boundaries(t *testing.T) {
	if SumStrings("ab", "c") == SumStrings("a", "bc") {
		t.Error("part boundaries must affect the digest")
	}
	if SumStrings("x", "y") != SumStrings("x", "y") {
		t.Error("SumStrings not stable")
	}
}
