package docgen

import (
	"strings"
	"testing"
)

func TestEstimateTokensEmpty(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Fatalf("expected 0 for empty text, got %d", got)
	}
}

func TestEstimateTokensCharHeuristic(t *testing.T) {
	cases := map[string]int{
		"a":    1,
		"abcd": 1,
		"abcde": 2,
		strings.Repeat("x", 200): 50,
	}
	for text, want := range cases {
		if got := EstimateTokens(text); got != want {
			t.Fatalf("EstimateTokens(%d chars) = %d, want %d", len(text), got, want)
		}
	}
}

func TestEstimateTokensMonotonic(t *testing.T) {
	base := "the quick brown fox"
	prev := EstimateTokens(base)
	for i := 0; i < 50; i++ {
		base += " jumps"
		cur := EstimateTokens(base)
		if cur < prev {
			t.Fatalf("estimate shrank from %d to %d on a superstring", prev, cur)
		}
		prev = cur
	}
}
