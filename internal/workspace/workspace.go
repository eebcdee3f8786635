// Package workspace keeps an in-memory tutoring session: pasted or uploaded
// study material, the topics derived from it, and the latest quiz.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"tutorion/internal/chunker"
	"tutorion/internal/llm"
	"tutorion/internal/store"
)

var (
	ErrNoMaterials   = errors.New("no materials ingested")
	ErrMissingText   = errors.New("material text is required")
	ErrTopicNotFound = errors.New("topic not found")
)

// Tutor is the subset of *llm.Tutor the workspace drives.
type Tutor interface {
	ExtractTopics(ctx context.Context, chunks []chunker.DocumentChunk, topK int) ([]llm.TopicSummary, error)
	GenerateQuiz(ctx context.Context, topic llm.TopicSummary, difficulty string) ([]llm.QuizQuestion, error)
}

type Material struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	Characters int    `json:"characters"`
}

// Topic is a saved topic record addressable by id.
type Topic struct {
	ID string `json:"id"`
	store.TopicRecord
}

type Quiz struct {
	TopicID    string             `json:"topic_id"`
	Difficulty string             `json:"difficulty"`
	Questions  []store.QuizRecord `json:"questions"`
}

// State is a point-in-time copy of the workspace.
type State struct {
	Materials []Material `json:"materials"`
	Topics    []Topic    `json:"topics"`
	Quiz      *Quiz      `json:"quiz"`
}

type Workspace struct {
	tutor    Tutor
	maxChars int
	topK     int

	mu        sync.Mutex
	materials []Material
	topics    []Topic
	summaries map[string]llm.TopicSummary
	quiz      *Quiz
}

// New returns an empty workspace. maxChars bounds chunk size for topic extraction.
func New(tutor Tutor, maxChars int) *Workspace {
	return &Workspace{
		tutor:     tutor,
		maxChars:  maxChars,
		topK:      llm.DefaultTopK,
		summaries: make(map[string]llm.TopicSummary),
	}
}

// AddMaterial stores a block of study text. An empty title becomes "Material <n>".
func (w *Workspace) AddMaterial(title, text string) (Material, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Material{}, ErrMissingText
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	title = strings.TrimSpace(title)
	if title == "" {
		title = fmt.Sprintf("Material %d", len(w.materials)+1)
	}
	m := Material{
		ID:         uuid.NewString(),
		Title:      title,
		Text:       text,
		Characters: len([]rune(text)),
	}
	w.materials = append(w.materials, m)
	return m, nil
}

// ExtractTopics replaces the topic list with a fresh outline of every material.
// The quiz is dropped if its topic no longer exists.
func (w *Workspace) ExtractTopics(ctx context.Context) ([]Topic, error) {
	w.mu.Lock()
	materials := append([]Material(nil), w.materials...)
	w.mu.Unlock()

	if len(materials) == 0 {
		return nil, ErrNoMaterials
	}
	var chunks []chunker.DocumentChunk
	for _, m := range materials {
		chunks = append(chunks, chunker.ChunkText(m.Title, m.Text, w.maxChars)...)
	}

	summaries, err := w.tutor.ExtractTopics(ctx, chunks, w.topK)
	if err != nil {
		return nil, err
	}

	topics := make([]Topic, 0, len(summaries))
	byID := make(map[string]llm.TopicSummary, len(summaries))
	for _, s := range summaries {
		id := uuid.NewString()
		topics = append(topics, Topic{ID: id, TopicRecord: store.NewNamedTopicRecord(s)})
		byID[id] = s
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.topics = topics
	w.summaries = byID
	if w.quiz != nil {
		if _, ok := byID[w.quiz.TopicID]; !ok {
			w.quiz = nil
		}
	}
	return append([]Topic(nil), topics...), nil
}

// GenerateQuiz builds a quiz for the topic with the given id.
func (w *Workspace) GenerateQuiz(ctx context.Context, topicID, difficulty string) (Quiz, error) {
	w.mu.Lock()
	summary, ok := w.summaries[topicID]
	w.mu.Unlock()
	if !ok {
		return Quiz{}, fmt.Errorf("%w: %s", ErrTopicNotFound, topicID)
	}
	if difficulty == "" {
		difficulty = llm.DefaultDifficulty
	}

	questions, err := w.tutor.GenerateQuiz(ctx, summary, difficulty)
	if err != nil {
		return Quiz{}, err
	}
	quiz := Quiz{TopicID: topicID, Difficulty: difficulty, Questions: make([]store.QuizRecord, 0, len(questions))}
	for _, q := range questions {
		quiz.Questions = append(quiz.Questions, store.NewQuizRecord(q))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.summaries[topicID]; ok {
		w.quiz = &quiz
	}
	return quiz, nil
}

// State returns a copy of the current session.
func (w *Workspace) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := State{
		Materials: append([]Material{}, w.materials...),
		Topics:    append([]Topic{}, w.topics...),
	}
	if w.quiz != nil {
		q := *w.quiz
		s.Quiz = &q
	}
	return s
}
