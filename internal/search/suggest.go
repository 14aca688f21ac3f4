package search

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// DefaultMinSimilarity is the lowest Jaro-Winkler similarity reported by
// SuggestTags.
const DefaultMinSimilarity float32 = 0.75

// Suggestion is a known tag close to a requested one.
type Suggestion struct {
	Tag   string  `json:"tag"`
	Score float32 `json:"score"`
}

// SuggestTags ranks known tags by case-insensitive Jaro-Winkler similarity
// to want and returns at most limit of them at or above
// DefaultMinSimilarity, best first.
func SuggestTags(known []string, want string, limit int) []Suggestion {
	want = strings.ToLower(strings.TrimSpace(want))
	if want == "" || limit <= 0 {
		return []Suggestion{}
	}

	out := make([]Suggestion, 0, limit)
	for _, tag := range known {
		score, err := edlib.StringsSimilarity(want, strings.ToLower(tag), edlib.JaroWinkler)
		if err != nil || score < DefaultMinSimilarity {
			continue
		}
		out = append(out, Suggestion{Tag: tag, Score: score})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Tag < out[j].Tag
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// UnknownTags returns the entries of want missing from known.
func UnknownTags(known, want []string) []string {
	set := make(map[string]struct{}, len(known))
	for _, k := range known {
		set[k] = struct{}{}
	}
	var missing []string
	for _, w := range want {
		if _, ok := set[w]; !ok {
			missing = append(missing, w)
		}
	}
	return missing
}
