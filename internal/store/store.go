package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"tutorion/internal/chunker"
	"tutorion/internal/llm"
)

// excerptCount is how many representative chunk texts a saved topic keeps.
const excerptCount = 3

// ErrEmptyInput is returned when a topics file holds no entries.
var ErrEmptyInput = errors.New("topics file is empty")

// TopicRecord is the on-disk shape of one extracted topic.
type TopicRecord struct {
	Topic          string   `json:"topic"`
	Rationale      string   `json:"rationale"`
	SourceFiles    []string `json:"source_files"`
	ContextExcerpt []string `json:"context_excerpt"`
}

// QuizRecord is the on-disk shape of one quiz question.
type QuizRecord struct {
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

// NewTopicRecord flattens a topic summary for serialization. Chunk sources
// are file paths and are listed by base name.
func NewTopicRecord(t llm.TopicSummary) TopicRecord {
	return newTopicRecord(t, filepath.Base)
}

// NewNamedTopicRecord is NewTopicRecord for chunks whose Source is already a
// display name. Sources are listed unchanged.
func NewNamedTopicRecord(t llm.TopicSummary) TopicRecord {
	return newTopicRecord(t, func(source string) string { return source })
}

func newTopicRecord(t llm.TopicSummary, sourceName func(string) string) TopicRecord {
	seen := make(map[string]struct{})
	sources := []string{}
	for _, c := range t.RepresentativeChunks {
		name := sourceName(c.Source)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		sources = append(sources, name)
	}
	sort.Strings(sources)

	excerpts := []string{}
	for i, c := range t.RepresentativeChunks {
		if i == excerptCount {
			break
		}
		excerpts = append(excerpts, c.Text)
	}
	return TopicRecord{
		Topic:          t.Topic,
		Rationale:      t.Rationale,
		SourceFiles:    sources,
		ContextExcerpt: excerpts,
	}
}

// Summary rebuilds the part of a topic summary that survives a save. Each
// excerpt becomes a chunk of source whose page number is its position.
func (r TopicRecord) Summary(source string) llm.TopicSummary {
	chunks := make([]chunker.DocumentChunk, 0, len(r.ContextExcerpt))
	for i, text := range r.ContextExcerpt {
		chunks = append(chunks, chunker.DocumentChunk{
			Source:     source,
			PageNumber: i + 1,
			Text:       text,
		})
	}
	topic := r.Topic
	if topic == "" {
		topic = llm.UnknownTopic
	}
	return llm.TopicSummary{
		Topic:                topic,
		Rationale:            r.Rationale,
		RepresentativeChunks: chunks,
	}
}

// NewQuizRecord flattens a quiz question for serialization.
func NewQuizRecord(q llm.QuizQuestion) QuizRecord {
	options := q.Options
	if options == nil {
		options = []string{}
	}
	return QuizRecord{
		Prompt:      q.Prompt,
		Options:     options,
		Answer:      q.Answer,
		Explanation: q.Explanation,
	}
}

// SaveTopics writes topics to path as an indented JSON array.
func SaveTopics(topics []llm.TopicSummary, path string) error {
	records := make([]TopicRecord, 0, len(topics))
	for _, t := range topics {
		records = append(records, NewTopicRecord(t))
	}
	return writeJSON(path, records)
}

// SaveQuiz writes questions to path as an indented JSON array.
func SaveQuiz(questions []llm.QuizQuestion, path string) error {
	records := make([]QuizRecord, 0, len(questions))
	for _, q := range questions {
		records = append(records, NewQuizRecord(q))
	}
	return writeJSON(path, records)
}

// LoadTopicsFile reads a file written by SaveTopics. Fields that are missing,
// null or of the wrong type take their zero value; the file must still be a
// JSON array of objects.
func LoadTopicsFile(path string) ([]TopicRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse topics file %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyInput, path)
	}
	records := make([]TopicRecord, 0, len(entries))
	for i, entry := range entries {
		if entry == nil {
			return nil, fmt.Errorf("parse topics file %s: entry %d is not an object", path, i)
		}
		records = append(records, TopicRecord{
			Topic:          stringField(entry, "topic"),
			Rationale:      stringField(entry, "rationale"),
			SourceFiles:    stringsField(entry, "source_files"),
			ContextExcerpt: stringsField(entry, "context_excerpt"),
		})
	}
	return records, nil
}

func stringField(entry map[string]json.RawMessage, key string) string {
	var s string
	if raw, ok := entry[key]; ok {
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
	}
	return s
}

func stringsField(entry map[string]json.RawMessage, key string) []string {
	var values []string
	if raw, ok := entry[key]; ok {
		if err := json.Unmarshal(raw, &values); err != nil {
			return []string{}
		}
	}
	if values == nil {
		return []string{}
	}
	return values
}

// writeJSON creates parent directories and overwrites path. The write is not atomic.
func writeJSON(path string, v any) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
