package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"tutorion/internal/chunker"
)

const (
	// DefaultTopK bounds how many topics ExtractTopics keeps.
	DefaultTopK = 6
	// DefaultDifficulty is sent when no difficulty label is given.
	DefaultDifficulty = "intro"
	// UnknownTopic stands in for a topic label the model left out.
	UnknownTopic = "Unknown topic"

	quizContextChunks = 3
)

const topicsInstruction = "You are a tutoring curriculum designer focused on math and science. " +
	"Review the provided excerpts and propose a concise list of topics. " +
	"Return only a JSON array of objects with the fields \"topic\" and \"rationale\", " +
	"ordered from foundational to advanced."

const quizInstruction = "Create exactly 3 multiple-choice questions for the topic '%s'. " +
	"Each question must have 4 options labeled A-D, an answer key and an explanation. " +
	"Difficulty should be %s level and grounded in the provided content. " +
	"Return only a JSON array of objects with the fields \"prompt\", \"options\", \"answer\" and \"explanation\"."

// TopicSummary is a model-proposed curriculum topic with the excerpts behind it.
type TopicSummary struct {
	Topic                string
	Rationale            string
	RepresentativeChunks []chunker.DocumentChunk
}

// QuizQuestion is a four-option multiple-choice item.
type QuizQuestion struct {
	Prompt      string
	Options     []string
	Answer      string
	Explanation string
}

// ResponseFormatError reports model output that is not a JSON array of objects.
type ResponseFormatError struct {
	Raw string
	Err error
}

func (e *ResponseFormatError) Error() string {
	return "model response was not a JSON array of objects: " + e.Raw
}

func (e *ResponseFormatError) Unwrap() error {
	return e.Err
}

// Tutor turns document chunks into topics and topics into quizzes.
type Tutor struct {
	client Client
	log    *slog.Logger
}

// NewTutor wires a Tutor to a completion client.
func NewTutor(client Client, log *slog.Logger) *Tutor {
	if log == nil {
		log = slog.Default()
	}
	return &Tutor{client: client, log: log}
}

// ExtractTopics asks the model for an ordered topic outline of the chunks.
// Every returned summary carries all input chunks as its representative set.
func (t *Tutor) ExtractTopics(ctx context.Context, chunks []chunker.DocumentChunk, topK int) ([]TopicSummary, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	serialized := make([]string, 0, len(chunks))
	for _, c := range chunks {
		serialized = append(serialized, fmt.Sprintf("Page %d: %s", c.PageNumber, c.Text))
	}

	text, err := t.client.Complete(ctx, []Message{
		{Role: RoleUser, Content: topicsInstruction},
		{Role: RoleUser, Content: strings.Join(serialized, "\n\n")},
	})
	if err != nil {
		return nil, err
	}
	entries, err := parseArray(text)
	if err != nil {
		return nil, err
	}
	if len(entries) > topK {
		entries = entries[:topK]
	}

	topics := make([]TopicSummary, 0, len(entries))
	for _, entry := range entries {
		topics = append(topics, TopicSummary{
			Topic:                stringField(entry, "topic", UnknownTopic),
			Rationale:            stringField(entry, "rationale", ""),
			RepresentativeChunks: chunks,
		})
	}
	t.log.Debug("topics extracted", "chunks", len(chunks), "topics", len(topics))
	return topics, nil
}

// GenerateQuiz asks the model for three questions grounded in the topic's
// first representative chunks.
func (t *Tutor) GenerateQuiz(ctx context.Context, topic TopicSummary, difficulty string) ([]QuizQuestion, error) {
	if difficulty == "" {
		difficulty = DefaultDifficulty
	}
	excerpts := topic.RepresentativeChunks
	if len(excerpts) > quizContextChunks {
		excerpts = excerpts[:quizContextChunks]
	}
	texts := make([]string, 0, len(excerpts))
	for _, c := range excerpts {
		texts = append(texts, c.Text)
	}

	text, err := t.client.Complete(ctx, []Message{
		{Role: RoleUser, Content: fmt.Sprintf(quizInstruction, topic.Topic, difficulty)},
		{Role: RoleUser, Content: strings.Join(texts, "\n\n")},
	})
	if err != nil {
		return nil, err
	}
	entries, err := parseArray(text)
	if err != nil {
		return nil, err
	}

	questions := make([]QuizQuestion, 0, len(entries))
	for _, entry := range entries {
		questions = append(questions, QuizQuestion{
			Prompt:      stringField(entry, "prompt", ""),
			Options:     stringsField(entry, "options"),
			Answer:      stringField(entry, "answer", ""),
			Explanation: stringField(entry, "explanation", ""),
		})
	}
	t.log.Debug("quiz generated", "topic", topic.Topic, "difficulty", difficulty, "questions", len(questions))
	return questions, nil
}

var jsonNull = []byte("null")

// parseArray decodes text strictly as a JSON array of objects.
func parseArray(text string) ([]map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace([]byte(text))
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &ResponseFormatError{Raw: text, Err: fmt.Errorf("expected a JSON array")}
	}
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, &ResponseFormatError{Raw: text, Err: err}
	}
	for i, entry := range entries {
		if entry == nil {
			return nil, &ResponseFormatError{Raw: text, Err: fmt.Errorf("element %d is not an object", i)}
		}
	}
	return entries, nil
}

// stringField returns entry[key] when it holds a JSON string, fallback otherwise.
func stringField(entry map[string]json.RawMessage, key, fallback string) string {
	raw, ok := entry[key]
	if !ok || bytes.Equal(raw, jsonNull) {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return fallback
	}
	return s
}

// stringsField returns entry[key] when it holds an array of strings, an empty list otherwise.
func stringsField(entry map[string]json.RawMessage, key string) []string {
	raw, ok := entry[key]
	if !ok || bytes.Equal(raw, jsonNull) {
		return []string{}
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil || values == nil {
		return []string{}
	}
	return values
}
