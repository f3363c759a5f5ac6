package concierge

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripwise/concierge/core"
	"github.com/tripwise/concierge/notify"
)

func TestProcessTurnFullBookingFlow(t *testing.T) {
	rec := &notify.Recorder{Configured: true}
	c := New(func(o *Options) { o.Notifier = rec })
	ctx := context.Background()

	turns := []string{
		"I want to book a table",
		"Sen Restaurant, 4 people, 19:00",
		"Name Minh, minh@x.com, 0901234567",
		"confirm",
	}
	var last *core.Response
	for _, msg := range turns {
		last = c.ProcessTurn(ctx, "s1", msg, "web_browser", "desktop", "en")
		require.NotNil(t, last)
	}

	assert.Contains(t, last.AnswerAI, "TRIPW-")
	require.Len(t, rec.Inquiries, 1)
	assert.Equal(t, "Sen Restaurant", rec.Inquiries[0].Restaurant)

	stats := c.SessionStats()
	assert.Equal(t, 1, stats["sessions"])
}

func TestProcessTurnAlwaysReturnsResponse(t *testing.T) {
	c := New()

	resp := c.ProcessTurn(context.Background(), "s1", "hello", "mobile_app", "desktop", "en")
	require.NotNil(t, resp)
	assert.Equal(t, core.ResponseError, resp.Type)
}

func TestConcurrentSessionsDoNotInterfere(t *testing.T) {
	c := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", n)
			c.ProcessTurn(ctx, id, "book a table", "web_browser", "desktop", "en")
			c.ProcessTurn(ctx, id, "'Madame Lan', 2 people, 19:00", "web_browser", "desktop", "en")
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("s%d", i)
		resp := c.ProcessTurn(ctx, id, "what do you have so far?", "web_browser", "desktop", "en")
		require.NotNil(t, resp)
	}
	assert.Equal(t, 10, c.SessionStats()["sessions"])
}

func TestClearSessionDropsState(t *testing.T) {
	c := New()
	ctx := context.Background()

	c.ProcessTurn(ctx, "s1", "book a table", "web_browser", "desktop", "en")
	require.True(t, c.ClearSession("s1"))
	assert.False(t, c.ClearSession("s1"))
	assert.Equal(t, 0, c.SessionStats()["sessions"])
}

func TestClearAllSessions(t *testing.T) {
	c := New()
	ctx := context.Background()

	c.ProcessTurn(ctx, "a", "hello", "web_browser", "desktop", "en")
	c.ProcessTurn(ctx, "b", "hello", "web_browser", "desktop", "en")
	assert.Equal(t, 2, c.ClearAllSessions())
	assert.Equal(t, 0, c.SessionStats()["sessions"])
}
