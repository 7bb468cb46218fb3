package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleMessage = MessagePayload{
	Sender:  "alice@example.com",
	Subject: "Project update",
	Body:    "Hey, can you send me the latest update?",
}

// completionStub serves the chat-completions endpoint with a fixed content
// payload, so the real client and request plumbing are exercised
func completionStub(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		require.Equal(t, "system", req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"id": "chatcmpl-test",
			"object": "chat.completion",
			"model": %q,
			"choices": [{"index": 0, "message": {"role": "assistant", "content": %q}, "finish_reason": "stop"}]
		}`, req.Model, content)
	}))
}

func failingStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "boom"}}`, http.StatusInternalServerError)
	}))
}

func newTestAnalyzer(baseURL string) *Analyzer {
	return NewAnalyzer(&AIConfig{
		APIKey:           "test-key",
		BaseURL:          baseURL,
		Model:            "llama-3.3-70b-versatile",
		ReplyTemperature: 0.7,
	}, nil)
}

func TestNeedsReplyYes(t *testing.T) {
	srv := completionStub(t, "Yes")
	defer srv.Close()

	analyzer := newTestAnalyzer(srv.URL)
	assert.True(t, analyzer.NeedsReply(context.Background(), sampleMessage))
}

func TestNeedsReplyNo(t *testing.T) {
	srv := completionStub(t, "No")
	defer srv.Close()

	analyzer := newTestAnalyzer(srv.URL)
	assert.False(t, analyzer.NeedsReply(context.Background(), sampleMessage))
}

func TestNeedsReplyNormalizesCase(t *testing.T) {
	srv := completionStub(t, "  YES ")
	defer srv.Close()

	analyzer := newTestAnalyzer(srv.URL)
	assert.True(t, analyzer.NeedsReply(context.Background(), sampleMessage))
}

func TestNeedsReplyDefaultsFalseOnFailure(t *testing.T) {
	srv := failingStub(t)
	defer srv.Close()

	analyzer := newTestAnalyzer(srv.URL)
	assert.False(t, analyzer.NeedsReply(context.Background(), sampleMessage))
}

func TestDraftReplyReturnsTrimmedContent(t *testing.T) {
	srv := completionStub(t, "  Sure, here's the update...  ")
	defer srv.Close()

	analyzer := newTestAnalyzer(srv.URL)
	assert.Equal(t, "Sure, here's the update...", analyzer.DraftReply(context.Background(), sampleMessage))
}

func TestDraftReplyFallbackOnFailure(t *testing.T) {
	srv := failingStub(t)
	defer srv.Close()

	analyzer := newTestAnalyzer(srv.URL)
	assert.Equal(t, draftErrorReply, analyzer.DraftReply(context.Background(), sampleMessage))
}

func TestExtractTodosParsesArray(t *testing.T) {
	srv := completionStub(t, `[{"title": "Send the update", "completed": false}]`)
	defer srv.Close()

	analyzer := newTestAnalyzer(srv.URL)
	todos := analyzer.ExtractTodos(context.Background(), sampleMessage)

	var items []TodoItem
	require.NoError(t, json.Unmarshal([]byte(todos), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Send the update", items[0].Title)
	assert.False(t, items[0].Completed)
}

func TestExtractTodosAlwaysReturnsValidArray(t *testing.T) {
	cases := map[string]string{
		"call failure":  "",
		"not JSON":      "Sure! Here are your tasks: buy milk",
		"non-array top": `{"title": "not a list"}`,
		"empty array":   `[]`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			var srv *httptest.Server
			if name == "call failure" {
				srv = failingStub(t)
			} else {
				srv = completionStub(t, content)
			}
			defer srv.Close()

			analyzer := newTestAnalyzer(srv.URL)
			todos := analyzer.ExtractTodos(context.Background(), sampleMessage)

			var items []TodoItem
			assert.NoError(t, json.Unmarshal([]byte(todos), &items), "output must parse as a JSON array")
		})
	}
}

func TestCompletionRequestCarriesTemperature(t *testing.T) {
	var bodies []map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"chatcmpl-test","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"No"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	analyzer := newTestAnalyzer(srv.URL)
	analyzer.NeedsReply(context.Background(), sampleMessage)
	analyzer.ExtractTodos(context.Background(), sampleMessage)
	analyzer.DraftReply(context.Background(), sampleMessage)

	require.Len(t, bodies, 3)

	// The deterministic judgments must serialize a temperature despite the
	// field's omitempty tag: exact zero would vanish from the request and
	// the provider would decode at its own default
	for _, body := range bodies[:2] {
		temp, ok := body["temperature"].(float64)
		require.True(t, ok, "temperature field must be sent")
		assert.Greater(t, temp, 0.0)
		assert.Less(t, temp, 1e-6)
	}

	temp, ok := bodies[2]["temperature"].(float64)
	require.True(t, ok, "temperature field must be sent")
	assert.InDelta(t, 0.7, temp, 1e-6)
}

func TestCleanTodos(t *testing.T) {
	// Items lacking a title are dropped; completed defaults to false
	out := cleanTodos(`[{"title": "a"}, {"completed": true}, {"title": "b", "completed": true}, "junk"]`)

	var items []TodoItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Title)
	assert.False(t, items[0].Completed)
	assert.Equal(t, "b", items[1].Title)
	assert.True(t, items[1].Completed)

	assert.Equal(t, "[]", cleanTodos("not json"))
	assert.Equal(t, "[]", cleanTodos(`{"title": "object"}`))
	assert.Equal(t, "[]", cleanTodos(`[]`))
}

func TestCleanTodosKeepsNonStringTitles(t *testing.T) {
	// A present title survives even when the model emits it as a number
	out := cleanTodos(`[{"title": 5}, {"title": "a"}]`)

	var items []TodoItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "5", items[0].Title)
	assert.False(t, items[0].Completed)
	assert.Equal(t, "a", items[1].Title)
}
