package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tutorion/internal/cache"
)

const freshReply = `[{"topic":"Limits","rationale":"foundation"}]`

// memCache is a map-backed cache.Cache.
type memCache struct {
	entries map[string]*cache.Completion
}

func (m *memCache) GetCompletion(_ context.Context, key string) (*cache.Completion, error) {
	return m.entries[key], nil
}

func (m *memCache) SetCompletion(_ context.Context, key string, c *cache.Completion, _ time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string]*cache.Completion)
	}
	m.entries[key] = c
	return nil
}

func (m *memCache) Close() error { return nil }

func TestCachingClientHit(t *testing.T) {
	next := new(MockClient)
	c := new(cache.MockCache)
	msgs := []Message{{Role: RoleUser, Content: "hello"}}
	key, err := CacheKey("gpt-5-mini", msgs)
	require.NoError(t, err)

	c.On("GetCompletion", mock.Anything, key).Return(&cache.Completion{Text: "cached"}, nil).Once()

	client := NewCachingClient(next, c, "gpt-5-mini", time.Hour, quietLogger())
	text, err := client.Complete(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, "cached", text)
	next.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	c.AssertExpectations(t)
}

func TestCachingClientMissStores(t *testing.T) {
	next := new(MockClient)
	c := new(cache.MockCache)
	msgs := []Message{{Role: RoleUser, Content: "hello"}}
	key, err := CacheKey("gpt-5-mini", msgs)
	require.NoError(t, err)

	c.On("GetCompletion", mock.Anything, key).Return(nil, nil).Once()
	next.On("Complete", mock.Anything, msgs).Return(freshReply, nil).Once()
	c.On("SetCompletion", mock.Anything, key, mock.MatchedBy(func(cp *cache.Completion) bool {
		return cp.Text == freshReply && cp.Model == "gpt-5-mini"
	}), time.Hour).Return(nil).Once()

	client := NewCachingClient(next, c, "gpt-5-mini", time.Hour, quietLogger())
	text, err := client.Complete(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, freshReply, text)
	next.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestCachingClientIgnoresCacheFailures(t *testing.T) {
	next := new(MockClient)
	c := new(cache.MockCache)

	c.On("GetCompletion", mock.Anything, mock.Anything).Return(nil, errors.New("redis down")).Once()
	next.On("Complete", mock.Anything, mock.Anything).Return(freshReply, nil).Once()
	c.On("SetCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()

	client := NewCachingClient(next, c, "m", time.Minute, quietLogger())
	text, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	require.NoError(t, err)
	assert.Equal(t, freshReply, text)
	c.AssertExpectations(t)
}

func TestCachingClientDoesNotStoreFailures(t *testing.T) {
	next := new(MockClient)
	c := new(cache.MockCache)

	c.On("GetCompletion", mock.Anything, mock.Anything).Return(nil, nil).Once()
	next.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("401 unauthorized")).Once()

	client := NewCachingClient(next, c, "m", time.Minute, quietLogger())
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	assert.EqualError(t, err, "401 unauthorized")
	c.AssertNotCalled(t, "SetCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCachingClientSkipsMalformedReplies(t *testing.T) {
	next := new(MockClient)
	store := &memCache{}
	next.On("Complete", mock.Anything, mock.Anything).Return("not json", nil).Once()
	next.On("Complete", mock.Anything, mock.Anything).Return(freshReply, nil).Once()

	tutor := NewTutor(NewCachingClient(next, store, "m", time.Hour, quietLogger()), quietLogger())
	chunks := sampleChunks(2)

	_, err := tutor.ExtractTopics(context.Background(), chunks, DefaultTopK)
	var formatErr *ResponseFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Empty(t, store.entries)

	topics, err := tutor.ExtractTopics(context.Background(), chunks, DefaultTopK)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "Limits", topics[0].Topic)
	assert.Len(t, store.entries, 1)

	topics, err = tutor.ExtractTopics(context.Background(), chunks, DefaultTopK)
	require.NoError(t, err)
	assert.Equal(t, "Limits", topics[0].Topic)
	next.AssertNumberOfCalls(t, "Complete", 2)
}

func TestCachingClientSkipsNonObjectArrays(t *testing.T) {
	next := new(MockClient)
	c := new(cache.MockCache)
	c.On("GetCompletion", mock.Anything, mock.Anything).Return(nil, nil).Once()
	next.On("Complete", mock.Anything, mock.Anything).Return("[1,2]", nil).Once()

	client := NewCachingClient(next, c, "m", time.Minute, quietLogger())
	text, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "[1,2]", text)
	c.AssertNotCalled(t, "SetCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCacheKeyDependsOnModelAndMessages(t *testing.T) {
	msgs := []Message{{Role: RoleUser, Content: "a"}}
	k1, _ := CacheKey("m1", msgs)
	k2, _ := CacheKey("m2", msgs)
	k3, _ := CacheKey("m1", []Message{{Role: RoleUser, Content: "b"}})
	k4, _ := CacheKey("m1", msgs)
	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Equal(t, k1, k4)
}
