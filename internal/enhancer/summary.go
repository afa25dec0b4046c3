package enhancer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/pkoukk/tiktoken-go"
)

// Summarizer is a text completion capability.
type Summarizer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Truncator cuts text to at most maxTokens tokens, keeping the prefix.
type Truncator interface {
	Truncate(text string, maxTokens int) string
}

const summarySystemPrompt = "You summarize web pages. Answer with a short plain-text summary of the page content and nothing else."

// OpenAISummarizer completes prompts with the chat completions API of
// OpenAI or any compatible server.
type OpenAISummarizer struct {
	client openai.Client
	model  string
}

func NewOpenAISummarizer(apiKey string, baseURL string, model string) *OpenAISummarizer {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAISummarizer{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (s *OpenAISummarizer) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	req := openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summarySystemPrompt),
			openai.UserMessage(prompt),
		},
	}
	if maxTokens > 0 {
		req.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}

	resp, err := s.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// TiktokenTruncator counts tokens with the BPE encoding of a model.
type TiktokenTruncator struct {
	encoding *tiktoken.Tiktoken
}

func NewTiktokenTruncator(model string) (*TiktokenTruncator, error) {
	tkm, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// unknown models share the GPT-4 encoding
		tkm, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	return &TiktokenTruncator{encoding: tkm}, nil
}

func (t *TiktokenTruncator) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	tokens := t.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return t.encoding.Decode(tokens[:maxTokens])
}

// WordTruncator approximates one token per whitespace-separated word.
type WordTruncator struct{}

func (WordTruncator) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= maxTokens {
		return text
	}
	return strings.Join(words[:maxTokens], " ")
}

// NewTruncator prefers the model's tiktoken encoding and falls back to
// word counting when no encoding can be loaded. Loading may download the
// BPE ranks, so it is deferred to the first Truncate.
func NewTruncator(model string) Truncator {
	return &lazyTruncator{model: model, load: loadTruncator}
}

func loadTruncator(model string) Truncator {
	if t, err := NewTiktokenTruncator(model); err == nil {
		return t
	}
	return WordTruncator{}
}

type lazyTruncator struct {
	model string
	load  func(model string) Truncator

	once  sync.Once
	inner Truncator
}

func (l *lazyTruncator) Truncate(text string, maxTokens int) string {
	l.once.Do(func() {
		l.inner = l.load(l.model)
	})
	return l.inner.Truncate(text, maxTokens)
}

func summaryPrompt(content string) string {
	return "Summarize the following content:\n\n" + content
}
