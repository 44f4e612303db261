package teamname

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// aliases maps normalized nicknames and abbreviations to canonical club
// names. Lookup happens after normalization, so keys are lowercase, ascii,
// single-spaced.
var aliases = map[string]string{
	"barca":           "Barcelona",
	"fc barcelona":    "Barcelona",
	"real":            "Real Madrid",
	"real madrid cf":  "Real Madrid",
	"atleti":          "Atletico Madrid",
	"atletico":        "Atletico Madrid",
	"man utd":         "Manchester United",
	"man united":      "Manchester United",
	"mufc":            "Manchester United",
	"man city":        "Manchester City",
	"mcfc":            "Manchester City",
	"spurs":           "Tottenham Hotspur",
	"tottenham":       "Tottenham Hotspur",
	"arsenal fc":      "Arsenal",
	"gunners":         "Arsenal",
	"chelsea fc":      "Chelsea",
	"liverpool fc":    "Liverpool",
	"bayern":          "Bayern Munich",
	"fc bayern":       "Bayern Munich",
	"bayern munchen":  "Bayern Munich",
	"bvb":             "Borussia Dortmund",
	"dortmund":        "Borussia Dortmund",
	"psg":             "Paris Saint-Germain",
	"paris sg":        "Paris Saint-Germain",
	"juve":            "Juventus",
	"juventus fc":     "Juventus",
	"inter":           "Inter Milan",
	"inter milano":    "Inter Milan",
	"internazionale":  "Inter Milan",
	"ac milan":        "Milan",
	"napoli":          "Napoli",
	"ssc napoli":      "Napoli",
	"ajax amsterdam":  "Ajax",
	"sporting":        "Sporting CP",
	"sporting lisbon": "Sporting CP",
	"benfica":         "Benfica",
	"sl benfica":      "Benfica",
	"porto":           "Porto",
	"fc porto":        "Porto",
	"olympique lyon":  "Lyon",
	"ol":              "Lyon",
	"om":              "Marseille",
	"olympique marseille": "Marseille",
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes a free-text team name: lowercase, diacritics and
// punctuation stripped, whitespace collapsed, then alias lookup. On an alias
// miss the title-cased cleaned input is returned, not a canonical spelling.
func Normalize(name string) string {
	cleaned := clean(name)
	if cleaned == "" {
		return ""
	}
	if canonical, ok := aliases[cleaned]; ok {
		return canonical
	}
	return titleCase(cleaned)
}

func clean(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	if folded, _, err := transform.String(stripMarks, lowered); err == nil {
		lowered = folded
	}
	var b strings.Builder
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func titleCase(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		r := []rune(f)
		r[0] = unicode.ToUpper(r[0])
		fields[i] = string(r)
	}
	return strings.Join(fields, " ")
}

// Similarity is 1 - normalized edit distance over the normalized forms.
func Similarity(a, b string) float64 {
	na, nb := strings.ToLower(Normalize(a)), strings.ToLower(Normalize(b))
	if na == nb {
		return 1
	}
	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein(na, nb))/float64(longest)
}

// FindBestMatch returns the candidate with the highest similarity at or
// above threshold. Ties keep the first-encountered candidate.
func FindBestMatch(name string, candidates []string, threshold float64) (string, bool) {
	if threshold <= 0 {
		threshold = 0.6
	}
	best, bestScore := "", 0.0
	for _, c := range candidates {
		if score := Similarity(name, c); score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore >= threshold {
		return best, true
	}
	return "", false
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
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
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
