package listing

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	EntryLevel  = "Entry Level"
	MidLevel    = "Mid Level"
	SeniorLevel = "Senior Level"
)

// JobListing is a single job posting from the pool. JobDescription and
// ExperienceLevel are derived by the repository and never read from the store.
type JobListing struct {
	URL                  string     `json:"url" mapstructure:"url"`
	Title                string     `json:"job_title" mapstructure:"job_title"`
	Category             string     `json:"job_cat" mapstructure:"job_cat"`
	Location             string     `json:"location" mapstructure:"location"`
	Company              string     `json:"company" mapstructure:"company"`
	Education            string     `json:"education" mapstructure:"education"`
	Experience           string     `json:"experience" mapstructure:"experience"`
	SkillsRequired       []string   `json:"skills_required" mapstructure:"skills_required"`
	GeneralRequirements  []string   `json:"general_requirements" mapstructure:"general_requirements"`
	SpecificRequirements []string   `json:"specific_requirements" mapstructure:"specific_requirements"`
	Duties               []string   `json:"job_description_duties" mapstructure:"job_description_duties"`
	Responsibilities     []string   `json:"job_description_responsibilities" mapstructure:"job_description_responsibilities"`
	JobDescription       string     `json:"job_description" mapstructure:"-"`
	ExperienceLevel      string     `json:"experience_level" mapstructure:"-"`
	CreatedAt            *time.Time `json:"created_at,omitempty" mapstructure:"created_at"`
}

var (
	seniorPattern = regexp.MustCompile(`\b(senior|sr\.?|lead|principal|expert)\b`)
	midPattern    = regexp.MustCompile(`\b(mid|mid-level|intermediate)\b`)
	entryPattern  = regexp.MustCompile(`\b(entry|junior|jr\.?|fresher|graduate|intern|internship|trainee)\b|not required|no experience`)
	yearsPattern  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*\+?\s*(?:years?|yrs?)`)
)

// ExperienceLevel maps free-form experience text to one of the level labels.
// Explicit seniority words win over year counts. Unknown text yields "".
func ExperienceLevel(experience string) string {
	text := strings.ToLower(strings.TrimSpace(experience))
	if text == "" {
		return ""
	}

	switch {
	case seniorPattern.MatchString(text):
		return SeniorLevel
	case midPattern.MatchString(text):
		return MidLevel
	case entryPattern.MatchString(text):
		return EntryLevel
	}

	m := yearsPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}

	years, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return ""
	}

	switch {
	case years < 2:
		return EntryLevel
	case years < 5:
		return MidLevel
	default:
		return SeniorLevel
	}
}

// Description joins duties and responsibilities into section-labelled text.
func Description(duties, responsibilities []string) string {
	sections := make([]string, 0, 2)
	if s := section("Duties", duties); s != "" {
		sections = append(sections, s)
	}
	if s := section("Responsibilities", responsibilities); s != "" {
		sections = append(sections, s)
	}
	return strings.Join(sections, "\n\n")
}

func section(label string, items []string) string {
	var b strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if b.Len() == 0 {
			b.WriteString(label)
			b.WriteString(":")
		}
		b.WriteString("\n- ")
		b.WriteString(item)
	}
	return b.String()
}

// Key identifies a listing by case-insensitive title, company and location.
func (l *JobListing) Key() string {
	fold := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return fold(l.Title) + "\x1f" + fold(l.Company) + "\x1f" + fold(l.Location)
}

// Dedupe keeps the first listing for every Key and returns the URLs of the dropped ones.
func Dedupe(listings []*JobListing) ([]*JobListing, []string) {
	seen := make(map[string]struct{}, len(listings))
	kept := make([]*JobListing, 0, len(listings))
	var dropped []string

	for _, l := range listings {
		if l == nil {
			continue
		}
		key := l.Key()
		if _, ok := seen[key]; ok {
			dropped = append(dropped, l.URL)
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, l)
	}

	return kept, dropped
}

func (l *JobListing) derive() {
	l.ExperienceLevel = ExperienceLevel(l.Experience)
	l.JobDescription = Description(l.Duties, l.Responsibilities)
}
