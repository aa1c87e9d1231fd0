package matching

import (
	"sort"

	"github.com/spigell/resume-matcher/internal/listing"
)

// Jaccard returns |A∩B| / |A∪B| over the distinct strings of a and b, or 0
// when both are empty. Strings are compared exactly.
func Jaccard(a, b []string) float64 {
	left := toSet(a)
	right := toSet(b)

	intersection := 0
	for item := range left {
		if _, ok := right[item]; ok {
			intersection++
		}
	}
	union := len(left) + len(right) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Rank scores every listing by keyword overlap with its required skills and
// returns the topN best, ties kept in pool order.
func Rank(keywords []string, listings []*listing.JobListing, topN int) []Candidate {
	if topN <= 0 {
		return []Candidate{}
	}

	candidates := make([]Candidate, 0, len(listings))
	for _, l := range listings {
		if l == nil {
			continue
		}
		candidates = append(candidates, Candidate{
			Listing:  l,
			PreScore: Jaccard(keywords, l.SkillsRequired),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].PreScore > candidates[j].PreScore
	})

	if topN < len(candidates) {
		candidates = candidates[:topN]
	}
	return candidates
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
