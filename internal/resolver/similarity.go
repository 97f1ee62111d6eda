package resolver

import (
	"regexp"
	"strings"

	"github.com/nubip/schedsync/internal/lms"
)

// MatchThreshold is the similarity a course title must exceed to be linked.
const MatchThreshold = 0.5

var parenthetical = regexp.MustCompile(`\([^)]*\)`)

// NormalizeTitle lower-cases s, removes parenthesized text and collapses
// whitespace.
func NormalizeTitle(s string) string {
	s = parenthetical.ReplaceAllString(strings.ToLower(s), " ")
	return strings.Join(strings.Fields(s), " ")
}

// Similarity returns 2*LCS(a, b)/(len(a)+len(b)) over runes, where LCS is
// the length of the longest common subsequence. Two empty strings are
// identical.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(lcs(ra, rb)) / float64(total)
}

func lcs(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// BestCourse returns the course whose normalized full name is most similar
// to title. The first course reaching the highest score wins; ok is false
// unless that score exceeds MatchThreshold. Titles that normalize to
// nothing never match.
func BestCourse(title string, courses []lms.Course) (best lms.Course, score float64, ok bool) {
	want := NormalizeTitle(title)
	if want == "" {
		return best, 0, false
	}
	for _, c := range courses {
		name := NormalizeTitle(c.FullName)
		if name == "" {
			continue
		}
		s := Similarity(want, name)
		if s > score {
			best, score = c, s
		}
	}
	return best, score, score > MatchThreshold
}
