package enhancer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rohmanhakim/fetchkit/internal/enhancer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAISummarizer_Complete(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": " A page about cats. "},
				"finish_reason": "stop"
			}]
		}`))
	}))
	defer server.Close()

	s := enhancer.NewOpenAISummarizer("test-key", server.URL, "gpt-4o-mini")
	summary, err := s.Complete(context.Background(), "Summarize: cats", 64)

	require.NoError(t, err)
	assert.Equal(t, "A page about cats.", summary)
	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.EqualValues(t, 64, got["max_completion_tokens"])
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestOpenAISummarizer_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":0,"model":"m","choices":[]}`))
	}))
	defer server.Close()

	s := enhancer.NewOpenAISummarizer("k", server.URL, "m")
	_, err := s.Complete(context.Background(), "p", 0)

	assert.Error(t, err)
}
