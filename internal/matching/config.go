package matching

import (
	"time"
)

// ScorePolicy decides what happens to a recommendation whose score cannot be
// used.
type ScorePolicy string

const (
	DropInvalidScore    ScorePolicy = "drop"
	DefaultInvalidScore ScorePolicy = "default"
)

// Config holds the tunables of the matching service.
type Config struct {
	TopN            int                  `mapstructure:"top-n" validate:"gte=0"`
	Workers         int                  `mapstructure:"workers" validate:"gte=1,lte=64"`
	CallTimeout     time.Duration        `mapstructure:"call-timeout" validate:"gt=0"`
	MaxLogLength    int                  `mapstructure:"max-log-length" validate:"gte=0"`
	SkillKeys       []string             `mapstructure:"skill-keys" validate:"min=1,dive,required"`
	Recommendations RecommendationConfig `mapstructure:"-"`
}

type RecommendationConfig struct {
	InvalidScorePolicy ScorePolicy `mapstructure:"invalid-score-policy" validate:"oneof=drop default"`
	DefaultScore       int         `mapstructure:"default-score" validate:"gte=0,lte=100"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		TopN:         5,
		Workers:      5,
		CallTimeout:  60 * time.Second,
		MaxLogLength: 200,
		SkillKeys:    []string{"Technical Skills", "Skills", "skills"},
		Recommendations: RecommendationConfig{
			InvalidScorePolicy: DropInvalidScore,
			DefaultScore:       50,
		},
	}
}
