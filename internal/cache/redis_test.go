package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheGetMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheFromClient(db)

	mock.ExpectGet("completion:abc").RedisNil()

	got, err := c.GetCompletion(context.Background(), "abc")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheGetHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheFromClient(db)

	stored := Completion{Model: "gpt-5-mini", Text: `[{"topic":"Vectors"}]`, CreatedAt: time.Unix(1700000000, 0).UTC()}
	data, err := json.Marshal(stored)
	require.NoError(t, err)
	mock.ExpectGet("completion:abc").SetVal(string(data))

	got, err := c.GetCompletion(context.Background(), "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, stored.Text, got.Text)
	assert.Equal(t, stored.Model, got.Model)
	assert.True(t, stored.CreatedAt.Equal(got.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheGetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheFromClient(db)

	mock.ExpectGet("completion:abc").SetErr(errors.New("connection reset"))

	_, err := c.GetCompletion(context.Background(), "abc")
	assert.EqualError(t, err, "connection reset")
}

func TestRedisCacheSet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheFromClient(db)

	completion := &Completion{Model: "gpt-5-mini", Text: "[]", CreatedAt: time.Unix(1700000000, 0).UTC()}
	data, err := json.Marshal(completion)
	require.NoError(t, err)
	mock.ExpectSet("completion:abc", string(data), time.Hour).SetVal("OK")

	require.NoError(t, c.SetCompletion(context.Background(), "abc", completion, time.Hour))
	assert.NoError(t, mock.ExpectationsWereMet())
}
