package matching

import (
	"strings"

	"github.com/spigell/resume-matcher/internal/listing"
)

// Profile is a structured résumé as produced by the résumé parser. Keys are
// section names; values are whatever JSON the parser emitted.
type Profile map[string]any

// Skills collects string values stored under the given keys. Lists are
// flattened, nested sections are walked one level deep and comma separated
// strings are split.
func (p Profile) Skills(keys []string) []string {
	var skills []string
	for _, key := range keys {
		skills = appendSkills(skills, p[key], true)
	}
	return skills
}

func appendSkills(dst []string, v any, nested bool) []string {
	switch val := v.(type) {
	case string:
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				dst = append(dst, part)
			}
		}
	case []string:
		for _, item := range val {
			dst = appendSkills(dst, item, false)
		}
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				dst = appendSkills(dst, s, false)
			}
		}
	case map[string]any:
		if !nested {
			return dst
		}
		for _, item := range val {
			dst = appendSkills(dst, item, false)
		}
	}
	return dst
}

// Fit is the categorical label attached to a match score.
type Fit string

const (
	ExcellentMatch Fit = "Excellent Match"
	GoodMatch      Fit = "Good Match"
	ModerateMatch  Fit = "Moderate Match"
	PoorMatch      Fit = "Poor Match"
	FitError       Fit = "Error"
)

// FitFromScore maps a score in [0,100] to its fit label.
func FitFromScore(score int) Fit {
	switch {
	case score >= 80:
		return ExcellentMatch
	case score >= 60:
		return GoodMatch
	case score >= 40:
		return ModerateMatch
	default:
		return PoorMatch
	}
}

// MatchDetail is the validated assessment of one listing.
type MatchDetail struct {
	MatchScore     int      `json:"match_score"`
	MatchedSkills  []string `json:"matched_skills"`
	MissingSkills  []string `json:"missing_skills"`
	MatchReasoning string   `json:"match_reasoning"`
	JobFit         Fit      `json:"job_fit"`
}

// Candidate is a listing selected by the pre-scorer together with its score.
type Candidate struct {
	Listing  *listing.JobListing
	PreScore float64
}

// MatchedJob is a listing with its pre-score and detailed assessment. It
// serializes as the listing fields plus pre_score and match_details.
type MatchedJob struct {
	*listing.JobListing
	PreScore     float64     `json:"pre_score"`
	MatchDetails MatchDetail `json:"match_details"`
}

// Recommendation is a suggested job role for the résumé.
type Recommendation struct {
	JobTitle               string `json:"job_title"`
	MatchScore             int    `json:"match_score"`
	SuitabilityReasoning   string `json:"suitability_reasoning"`
	ImprovementSuggestions string `json:"improvement_suggestions"`
}
