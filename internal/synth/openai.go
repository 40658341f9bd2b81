package synth

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPrompt = `You synthesize answers from past assistant-session transcripts.
Use only the provided context. Cite sessions by their short id when relevant.
Answer the user's question concisely; say so when the context is insufficient.`

// OpenAISummarizer implements Summarizer against any OpenAI-compatible
// chat-completions endpoint.
type OpenAISummarizer struct {
	client openai.Client
	model  string
}

// NewOpenAISummarizer builds a summarizer. An empty apiKey falls back to the
// OPENAI_API_KEY environment variable; an empty baseURL uses the public API.
func NewOpenAISummarizer(apiKey, baseURL, model string) *OpenAISummarizer {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAISummarizer{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, contextText, query string) (string, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage("Context:\n\n" + contextText + "\n\nQuestion: " + query),
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", &ProviderError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Err: errors.New("empty completion")}
	}
	return resp.Choices[0].Message.Content, nil
}
