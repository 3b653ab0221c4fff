package agentcatalog

import (
	"strings"
	"unicode"
)

// scoreAgent implements the scoring formula from :
// priority + Σ(5 if tag ∈ query) + Σ(1 if 3+-char alphanumeric token of
// query appears in name+description).
func scoreAgent(a Agent, query string) int {
	score := a.Priority
	lowerQuery := strings.ToLower(query)

	for _, tag := range a.Tags {
		if strings.Contains(lowerQuery, strings.ToLower(tag)) {
			score += 5
		}
	}

	haystack := strings.ToLower(a.Name + " " + a.Description)
	for _, tok := range tokenize(query) {
		if len(tok) >= 3 && strings.Contains(haystack, tok) {
			score++
		}
	}

	return score
}

// tokenize splits query into lowercase runs of letters/digits, discarding
// punctuation and whitespace.
func tokenize(query string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range query {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
