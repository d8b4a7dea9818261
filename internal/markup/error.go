package markup

import "fmt"

// ParseError is a structured parse problem with position information and
// an optional suggestion. Parse errors never abort a document parse.
type ParseError struct {
	Message    string `json:"message"`
	Line       int    `json:"line"`
	Col        int    `json:"col"`
	Pos        int    `json:"pos"`
	Suggestion string `json:"suggestion,omitempty"` // "did you mean 'Button'?" or ""
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("line %d col %d: %s", e.Line, e.Col, e.Message)
	if e.Suggestion != "" {
		msg += " (" + e.Suggestion + ")"
	}
	return msg
}

func errorAt(tok Token, format string, args ...any) *ParseError {
	return &ParseError{
		Message: fmt.Sprintf(format, args...),
		Line:    tok.Line,
		Col:     tok.Col,
		Pos:     tok.Pos,
	}
}

// Levenshtein returns the edit distance between a and b, counted in runes.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Suggest returns the candidate closest to input within maxDist edits, or
// "" when none is close enough. Ties go to the earlier candidate.
func Suggest(input string, candidates []string, maxDist int) string {
	best, bestDist := "", maxDist+1
	for _, c := range candidates {
		if d := Levenshtein(input, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// SuggestFrom formats Suggest as a hint, or returns "".
func SuggestFrom(input string, candidates []string, maxDist int) string {
	if s := Suggest(input, candidates, maxDist); s != "" {
		return fmt.Sprintf("did you mean '%s'?", s)
	}
	return ""
}
