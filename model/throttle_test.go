package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottledCachesRepeatedPrompts(t *testing.T) {
	mock := NewMockGenerator()
	mock.AddResponse("hello", "hi there")

	th := NewThrottled(mock, ThrottleOptions{CacheTTL: time.Minute})

	req := Request{Prompt: "hello"}
	first, err := th.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "hi there", first)

	second, err := th.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "hi there", second)

	assert.Equal(t, 1, mock.Calls())

	stats := th.Stats()
	assert.Equal(t, 1, stats["cache_hits"])
	assert.Equal(t, 1, stats["calls"])
}

func TestThrottledDistinctParamsMissCache(t *testing.T) {
	mock := NewMockGenerator()
	mock.AddResponse("hello", "hi there")

	th := NewThrottled(mock, ThrottleOptions{CacheTTL: time.Minute})

	_, err := th.Generate(context.Background(), Request{Prompt: "hello"})
	require.NoError(t, err)
	_, err = th.Generate(context.Background(), Request{Prompt: "hello", Temperature: 0.5})
	require.NoError(t, err)

	assert.Equal(t, 2, mock.Calls())
}

func TestThrottledPropagatesErrors(t *testing.T) {
	mock := NewMockGenerator()
	boom := errors.New("boom")
	mock.FailWith(boom)

	th := NewThrottled(mock, ThrottleOptions{CacheTTL: time.Minute})

	_, err := th.Generate(context.Background(), Request{Prompt: "hello"})
	assert.ErrorIs(t, err, boom)
}

func TestThrottledZeroTTLDisablesCache(t *testing.T) {
	mock := NewMockGenerator()
	mock.AddResponse("hello", "hi there")

	th := NewThrottled(mock, ThrottleOptions{})

	_, err := th.Generate(context.Background(), Request{Prompt: "hello"})
	require.NoError(t, err)
	_, err = th.Generate(context.Background(), Request{Prompt: "hello"})
	require.NoError(t, err)

	assert.Equal(t, 2, mock.Calls())
}

func TestThrottledRespectsCancelledContext(t *testing.T) {
	mock := NewMockGenerator()
	mock.AddResponse("hello", "hi there")

	th := NewThrottled(mock, ThrottleOptions{MaxCallsPerMinute: 1, CacheTTL: time.Minute})

	_, err := th.Generate(context.Background(), Request{Prompt: "hello"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = th.Generate(ctx, Request{Prompt: "another"})
	assert.Error(t, err)
}

func TestMockGeneratorRules(t *testing.T) {
	mock := NewMockGenerator()
	mock.AddRule("intent", `{"intent":"booking"}`)

	out, err := mock.Generate(context.Background(), Request{Prompt: "classify the intent of this"})
	require.NoError(t, err)
	assert.Equal(t, `{"intent":"booking"}`, out)

	out, err = mock.Generate(context.Background(), Request{Prompt: "unrelated"})
	require.NoError(t, err)
	assert.Empty(t, out)
}
