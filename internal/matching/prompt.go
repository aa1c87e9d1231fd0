package matching

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spigell/resume-matcher/internal/listing"
)

var (
	//go:embed prompts/keywords.md
	keywordsTemplate string
	//go:embed prompts/match.md
	matchTemplate string
	//go:embed prompts/recommend.md
	recommendTemplate string
)

func render(template string, values map[string]string) string {
	pairs := make([]string, 0, 2*len(values))
	for key, value := range values {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func buildKeywordsPrompt(profile Profile) (string, error) {
	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode profile: %w", err)
	}
	return render(keywordsTemplate, map[string]string{
		"PROFILE_JSON": string(profileJSON),
	}), nil
}

func buildMatchPrompt(profile Profile, summary string, l *listing.JobListing, keywords []string) (string, error) {
	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode profile: %w", err)
	}
	listingJSON, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode listing: %w", err)
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		summary = "Not provided"
	}

	return render(matchTemplate, map[string]string{
		"SUMMARY":      summary,
		"KEYWORDS":     joinOrNone(keywords),
		"PROFILE_JSON": string(profileJSON),
		"LISTING_JSON": string(listingJSON),
	}), nil
}

func buildRecommendPrompt(profile Profile, keywords []string) (string, error) {
	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode profile: %w", err)
	}
	return render(recommendTemplate, map[string]string{
		"PROFILE_JSON": string(profileJSON),
		"KEYWORDS":     joinOrNone(keywords),
	}), nil
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}
