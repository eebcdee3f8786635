package workspace

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tutorion/internal/chunker"
	"tutorion/internal/llm"
)

const lectureText = "A Markov chain is a stochastic process whose next state depends only on the current state."

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWorkspace() (*Workspace, *llm.MockClient) {
	client := new(llm.MockClient)
	return New(llm.NewTutor(client, quietLogger()), 40), client
}

func TestAddMaterial(t *testing.T) {
	ws, _ := newTestWorkspace()

	m, err := ws.AddMaterial("", "  "+lectureText+"  ")
	require.NoError(t, err)
	assert.Equal(t, "Material 1", m.Title)
	assert.Equal(t, lectureText, m.Text)
	assert.Equal(t, len(lectureText), m.Characters)
	assert.NotEmpty(t, m.ID)

	m2, err := ws.AddMaterial("Lecture 2", lectureText)
	require.NoError(t, err)
	assert.Equal(t, "Lecture 2", m2.Title)

	_, err = ws.AddMaterial("Blank", "   ")
	assert.True(t, errors.Is(err, ErrMissingText))

	assert.Len(t, ws.State().Materials, 2)
}

func TestExtractTopicsRequiresMaterials(t *testing.T) {
	ws, client := newTestWorkspace()
	_, err := ws.ExtractTopics(context.Background())
	assert.True(t, errors.Is(err, ErrNoMaterials))
	client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestExtractTopicsAndQuiz(t *testing.T) {
	ws, client := newTestWorkspace()
	_, err := ws.AddMaterial("Lecture 1", lectureText)
	require.NoError(t, err)

	client.On("Complete", mock.Anything, mock.MatchedBy(func(msgs []llm.Message) bool {
		return strings.HasPrefix(msgs[1].Content, "Page 1: ")
	})).Return(`[{"topic":"Markov property","rationale":"memoryless"},{"topic":"Transitions"}]`, nil).Once()

	topics, err := ws.ExtractTopics(context.Background())
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "Markov property", topics[0].Topic)
	assert.Equal(t, []string{"Lecture 1"}, topics[0].SourceFiles)
	assert.Len(t, topics[0].ContextExcerpt, 3)

	client.On("Complete", mock.Anything, mock.MatchedBy(func(msgs []llm.Message) bool {
		return strings.Contains(msgs[0].Content, "'Markov property'") && strings.Contains(msgs[0].Content, "advanced")
	})).Return(`[{"prompt":"Q1","options":["a","b","c","d"],"answer":"a","explanation":"e"}]`, nil).Once()

	quiz, err := ws.GenerateQuiz(context.Background(), topics[0].ID, "advanced")
	require.NoError(t, err)
	assert.Equal(t, topics[0].ID, quiz.TopicID)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, "Q1", quiz.Questions[0].Prompt)

	state := ws.State()
	require.NotNil(t, state.Quiz)
	assert.Equal(t, "advanced", state.Quiz.Difficulty)

	// Re-extracting issues new ids, so the old quiz is dropped.
	client.On("Complete", mock.Anything, mock.Anything).Return(`[{"topic":"Again"}]`, nil).Once()
	_, err = ws.ExtractTopics(context.Background())
	require.NoError(t, err)
	assert.Nil(t, ws.State().Quiz)
	client.AssertExpectations(t)
}

func TestGenerateQuizUnknownTopic(t *testing.T) {
	ws, client := newTestWorkspace()
	_, err := ws.GenerateQuiz(context.Background(), "missing", "")
	assert.True(t, errors.Is(err, ErrTopicNotFound))
	client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestChunkingUsesMaxChars(t *testing.T) {
	ws, client := newTestWorkspace()
	_, err := ws.AddMaterial("Lecture", lectureText)
	require.NoError(t, err)

	var seen []llm.Message
	client.On("Complete", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		seen = args.Get(1).([]llm.Message)
	}).Return(`[]`, nil).Once()

	_, err = ws.ExtractTopics(context.Background())
	require.NoError(t, err)

	want := chunker.ChunkText("Lecture", lectureText, 40)
	parts := strings.Split(seen[1].Content, "\n\n")
	assert.Len(t, parts, len(want))
}

func TestTopicSourcesKeepMaterialTitles(t *testing.T) {
	ws, client := newTestWorkspace()
	_, err := ws.AddMaterial("Calc I/Limits", lectureText)
	require.NoError(t, err)

	client.On("Complete", mock.Anything, mock.Anything).Return(`[{"topic":"Limits"}]`, nil).Once()

	topics, err := ws.ExtractTopics(context.Background())
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, []string{"Calc I/Limits"}, topics[0].SourceFiles)
}
