package mistral

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	domai "github.com/lexpacte/lexpacte/internal/domain/ai"
	"github.com/lexpacte/lexpacte/internal/domain/analysis"
	"github.com/lexpacte/lexpacte/internal/domain/chat"
	"github.com/lexpacte/lexpacte/internal/infra/ai/prompt"
)

const (
	defaultBaseURL = "https://api.mistral.ai/v1"
	defaultModel   = "mistral-large-latest"
	maxTokens      = 4096
)

// Client talks to the Mistral chat-completion endpoint through the
// OpenAI-compatible API surface. The credential is validated once at
// construction; there is no per-call re-read.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

func NewClient(apiKey, baseURL, model string, temperature float32, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domai.ErrMissingCredential
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = defaultBaseURL
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		api:         openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
		timeout:     timeout,
	}, nil
}

// complete issues one chat completion with the fixed low sampling
// temperature and an explicit per-call timeout.
func (c *Client) complete(ctx context.Context, msgs []openai.ChatCompletionMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   maxTokens,
		Messages:    msgs,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %v", domai.ErrQuotaExceeded, err)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Analyze requests the mode-specific risk report. Empty input fails fast;
// a remote failure degrades to a fallback report string rather than an error.
func (c *Client) Analyze(ctx context.Context, text string, mode analysis.Mode, codes []string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", analysis.ErrEmptyDocument
	}
	out, err := c.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompt.AnalysisSystem(mode, codes)},
		{Role: openai.ChatMessageRoleUser, Content: prompt.AnalysisUser(text)},
	})
	if err != nil {
		slog.Error("analysis call failed, returning fallback report", "mode", mode, "err", err)
		return prompt.FallbackReport(mode), nil
	}
	return out, nil
}

// Rewrite asks for the revised contract body. No retry: a failure yields a
// short placeholder so the pipeline can still complete.
func (c *Client) Rewrite(ctx context.Context, text, reportMarkdown string, codes []string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", analysis.ErrEmptyDocument
	}
	out, err := c.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompt.RewriteSystem(codes)},
		{Role: openai.ChatMessageRoleUser, Content: prompt.RewriteUser(text, reportMarkdown)},
	})
	if err != nil {
		slog.Error("rewrite call failed, returning placeholder", "err", err)
		return prompt.FallbackContract(), nil
	}
	return out, nil
}

// Chat forwards a follow-up question with strict turn ordering: system
// instruction, full prior history in original order, then the new user turn.
// Quota exhaustion is surfaced to the caller; any other failure degrades to
// an apologetic reply so the conversation stays usable.
func (c *Client) Chat(ctx context.Context, system string, history []chat.Message, question string) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == chat.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: question})

	out, err := c.complete(ctx, msgs)
	if err != nil {
		if errors.Is(err, domai.ErrQuotaExceeded) {
			return "", err
		}
		slog.Error("chat call failed, returning apologetic reply", "err", err)
		return prompt.FallbackChatReply(), nil
	}
	return out, nil
}
