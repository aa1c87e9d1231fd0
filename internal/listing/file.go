package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// FileStore reads listing records from a JSON array on disk. Records may use
// either the jobs table column names or the canonical listing keys.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) FetchRecords(_ context.Context) ([]map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading listings file: %w", err)
	}

	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding listings file %q: %w", s.path, err)
	}

	return records, nil
}

// SearchRecords matches keywords case-insensitively against the same fields
// the SQL stores search.
func (s *FileStore) SearchRecords(ctx context.Context, keywords []string, limit int) ([]map[string]any, error) {
	records, err := s.FetchRecords(ctx)
	if err != nil {
		return nil, err
	}

	needles := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			needles = append(needles, k)
		}
	}

	var found []map[string]any
	for _, record := range records {
		if len(needles) > 0 && !recordMentions(record, needles) {
			continue
		}
		found = append(found, record)
		if limit > 0 && len(found) == limit {
			break
		}
	}

	return found, nil
}

var searchKeys = []string{
	"title", "job_title",
	"skills", "skills_required",
	"general_requirements", "specific_requirements",
	"responsibilities", "job_description_responsibilities",
}

func recordMentions(record map[string]any, needles []string) bool {
	var b strings.Builder
	for _, key := range searchKeys {
		value, ok := record[key]
		if !ok || value == nil {
			continue
		}
		fmt.Fprint(&b, value, "\n")
	}

	haystack := strings.ToLower(b.String())
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
