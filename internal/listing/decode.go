package listing

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// columnAliases maps jobs table columns onto canonical listing keys.
var columnAliases = map[string]string{
	"title":            "job_title",
	"skills":           "skills_required",
	"dis":              "job_description_duties",
	"responsibilities": "job_description_responsibilities",
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Decode converts a raw store record into a JobListing with derived fields.
// List columns may hold JSON arrays encoded as text.
func Decode(record map[string]any) (*JobListing, error) {
	input := make(map[string]any, len(record))
	for key, value := range record {
		input[strings.ToLower(strings.TrimSpace(key))] = value
	}
	for column, canonical := range columnAliases {
		value, ok := input[column]
		if !ok {
			continue
		}
		if _, exists := input[canonical]; !exists {
			input[canonical] = value
		}
		delete(input, column)
	}
	if text, ok := input["created_at"].(string); ok && strings.TrimSpace(text) == "" {
		delete(input, "created_at")
	}

	var l JobListing
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &l,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			bytesToStringHook,
			jsonTextToSliceHook,
			textToTimeHook,
		),
	})
	if err != nil {
		return nil, fmt.Errorf("creating listing decoder: %w", err)
	}

	if err := decoder.Decode(input); err != nil {
		return nil, fmt.Errorf("decoding listing %v: %w", record["url"], err)
	}

	l.URL = strings.TrimSpace(l.URL)
	l.SkillsRequired = compact(l.SkillsRequired)
	l.derive()

	return &l, nil
}

func bytesToStringHook(from reflect.Type, _ reflect.Type, data any) (any, error) {
	if b, ok := data.([]byte); ok && from.Kind() == reflect.Slice {
		return string(b), nil
	}
	return data, nil
}

// jsonTextToSliceHook turns `["a","b"]` text into a slice. Plain text that
// is not a JSON array becomes a single element.
func jsonTextToSliceHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice {
		return data, nil
	}

	text := strings.TrimSpace(data.(string))
	if text == "" || text == "null" {
		return []string{}, nil
	}

	if strings.HasPrefix(text, "[") {
		var items []any
		if err := json.Unmarshal([]byte(text), &items); err == nil {
			out := make([]string, 0, len(items))
			for _, item := range items {
				switch v := item.(type) {
				case nil:
				case string:
					out = append(out, v)
				default:
					out = append(out, fmt.Sprint(v))
				}
			}
			return out, nil
		}
	}

	return []string{text}, nil
}

func textToTimeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}

	text := strings.TrimSpace(data.(string))
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unsupported time format %q", text)
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
