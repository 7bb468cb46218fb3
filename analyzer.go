package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// MessageAnalyzer produces the three AI judgments for a message. Every call
// is treated as unreliable: each judgment degrades to a safe default rather
// than surfacing an error to the caller.
type MessageAnalyzer interface {
	NeedsReply(ctx context.Context, msg MessagePayload) bool
	DraftReply(ctx context.Context, msg MessagePayload) string
	ExtractTodos(ctx context.Context, msg MessagePayload) string
}

const (
	systemPrompt      = "You are a helpful assistant."
	todosSystemPrompt = "You extract tasks from emails and return them as a JSON array."

	// Returned in place of a draft when the completion call fails
	draftErrorReply = "Error generating reply. Please try again."

	// Returned whenever todo extraction cannot produce a valid array
	emptyTodos = "[]"
)

// Analyzer implements MessageAnalyzer against an OpenAI-compatible
// chat-completions API
type Analyzer struct {
	client           *openai.Client
	model            string
	replyTemperature float32
	metrics          *Metrics
}

// NewAnalyzer creates an analyzer from the AI configuration
func NewAnalyzer(cfg *AIConfig, metrics *Metrics) *Analyzer {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Analyzer{
		client:           openai.NewClientWithConfig(clientConfig),
		model:            cfg.Model,
		replyTemperature: float32(cfg.ReplyTemperature),
		metrics:          metrics,
	}
}

// complete runs one system+user exchange and returns the trimmed content.
// The request temperature field carries omitempty, so an exact zero would
// be dropped from the wire and the provider would decode at its own
// default; the smallest nonzero float stands in for zero.
func (a *Analyzer) complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
	})
	if err != nil {
		if a.metrics != nil {
			a.metrics.AICallFailures.Inc()
		}
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// NeedsReply asks whether the message requires a reply. Zero temperature
// keeps the Yes/No answer deterministic; any failure defaults to false.
func (a *Analyzer) NeedsReply(ctx context.Context, msg MessagePayload) bool {
	prompt := fmt.Sprintf(`You are an assistant that determines if an email requires a reply.

Email from %s:

Subject: %s
Body: %s

Does this email need a reply? Answer only "Yes" or "No".
`, msg.Sender, msg.Subject, msg.Body)

	answer, err := a.complete(ctx, systemPrompt, prompt, 0)
	if err != nil {
		logrus.Errorf("Error flagging reply needed: %v", err)
		return false
	}

	return strings.ToLower(answer) == "yes"
}

// DraftReply composes a candidate reply. Moderate temperature allows
// phrasing variety; a failure yields a fixed human-readable fallback.
func (a *Analyzer) DraftReply(ctx context.Context, msg MessagePayload) string {
	prompt := fmt.Sprintf(`You are an assistant helping to draft a polite, concise reply email.

Email from %s:

Subject: %s
Body: %s

Write a polite, professional reply to the email below.
If any important detail (e.g., availability, preferences, confirmation) is
unknown or ambiguous, insert a placeholder (e.g., {insert your availability}),
OR provide alternative phrasings that the user can choose from. Keep the reply clear, helpful, and adaptable.
`, msg.Sender, msg.Subject, msg.Body)

	reply, err := a.complete(ctx, systemPrompt, prompt, a.replyTemperature)
	if err != nil {
		logrus.Errorf("Error generating reply: %v", err)
		return draftErrorReply
	}

	return reply
}

// ExtractTodos extracts actionable tasks as JSON array text. The model
// output is re-validated item by item; the result always parses as a JSON
// array, defaulting to "[]" on call failure, unparseable output, or a
// non-array top level.
func (a *Analyzer) ExtractTodos(ctx context.Context, msg MessagePayload) string {
	prompt := fmt.Sprintf(`You are an assistant that extracts actionable tasks from emails.
For each task, provide a "title" (string) and "completed" (boolean, default to false).
If there are no tasks, return an empty JSON array: [].
Ensure your entire response is a valid JSON array.

Email from %s:
Subject: %s
Body: %s

JSON tasks:
`, msg.Sender, msg.Subject, msg.Body)

	raw, err := a.complete(ctx, todosSystemPrompt, prompt, 0)
	if err != nil {
		logrus.Errorf("Error during AI call for todos: %v", err)
		return emptyTodos
	}

	return cleanTodos(raw)
}

// cleanTodos parses raw model output into the todo schema, dropping
// malformed items instead of failing the whole extraction
func cleanTodos(raw string) string {
	var parsed []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		logrus.Warnf("AI returned unparseable JSON for todos: %q", raw)
		return emptyTodos
	}

	cleaned := make([]TodoItem, 0, len(parsed))
	for _, rawItem := range parsed {
		var item map[string]interface{}
		if err := json.Unmarshal(rawItem, &item); err != nil {
			logrus.Warnf("Skipping malformed todo item from AI: %s", rawItem)
			continue
		}
		rawTitle, ok := item["title"]
		if !ok {
			logrus.Warnf("Skipping todo item without title from AI: %s", rawItem)
			continue
		}
		title, ok := rawTitle.(string)
		if !ok {
			// A non-string title (e.g. a bare number) is kept, rendered as
			// its JSON text
			encoded, err := json.Marshal(rawTitle)
			if err != nil {
				logrus.Warnf("Skipping malformed todo item from AI: %s", rawItem)
				continue
			}
			title = string(encoded)
		}
		completed, _ := item["completed"].(bool)
		cleaned = append(cleaned, TodoItem{Title: title, Completed: completed})
	}

	out, err := json.Marshal(cleaned)
	if err != nil {
		return emptyTodos
	}

	return string(out)
}
