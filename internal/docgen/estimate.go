package docgen

// charsPerToken is the cheap approximation used everywhere in the pipeline.
// Estimates are directional, not authoritative; the budget headroom in
// Config absorbs the error.
const charsPerToken = 4

// EstimateTokens returns a deterministic token estimate for text. Empty
// text costs 0 and a superstring never estimates below its substring.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}
