package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/seregajade-png/analysis-beauty/internal/llm"
)

const (
	proxyPath      = "/api/proxy-openai/v1/"
	proxyAPIKey    = "proxy"
	proxyHeader    = "x-proxy-secret"
	defaultTimeout = 120 * time.Second
)

// Config configures the OpenAI-compatible client.
type Config struct {
	APIKey          string
	BaseURL         string
	ProxyURL        string
	ProxySecret     string
	Model           string
	MaxTokens       int
	TranscribeModel string
	Timeout         time.Duration
	MaxRetries      int
	HTTPClient      *http.Client
}

// Client implements llm.Streamer, llm.Completer and llm.Transcriber on the
// OpenAI SDK.
type Client struct {
	client          openaigo.Client
	model           string
	maxTokens       int64
	transcribeModel string
	timeout         time.Duration
}

// NewClient constructs a new OpenAI client. A proxy URL replaces the base URL
// and API key and adds the proxy secret header.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	opts, err := requestOptions(cfg)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transcribeModel := cfg.TranscribeModel
	if transcribeModel == "" {
		transcribeModel = string(openaigo.AudioModelWhisper1)
	}
	return &Client{
		client:          openaigo.NewClient(opts...),
		model:           cfg.Model,
		maxTokens:       int64(cfg.MaxTokens),
		transcribeModel: transcribeModel,
		timeout:         timeout,
	}, nil
}

func requestOptions(cfg Config) ([]option.RequestOption, error) {
	baseURL, apiKey := resolveEndpoint(cfg)
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if cfg.ProxyURL != "" {
		opts = append(opts, option.WithHeader(proxyHeader, cfg.ProxySecret))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return opts, nil
}

func resolveEndpoint(cfg Config) (baseURL, apiKey string) {
	if proxy := strings.TrimRight(strings.TrimSpace(cfg.ProxyURL), "/"); proxy != "" {
		return proxy + proxyPath, proxyAPIKey
	}
	baseURL = strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL, cfg.APIKey
}

func (c *Client) params(system, user string) openaigo.ChatCompletionNewParams {
	params := openaigo.ChatCompletionNewParams{
		Model: openaigo.ChatModel(c.model),
		Messages: []openaigo.ChatCompletionMessageParamUnion{
			openaigo.SystemMessage(system),
			openaigo.UserMessage(user),
		},
	}
	if isGPT5(c.model) {
		if c.maxTokens > 0 {
			params.MaxCompletionTokens = openaigo.Int(c.maxTokens)
		}
		return params
	}
	params.Temperature = openaigo.Float(0.3)
	if c.maxTokens > 0 {
		params.MaxTokens = openaigo.Int(c.maxTokens)
	}
	return params
}

// StreamCompletion streams content deltas to emit in order.
func (c *Client) StreamCompletion(ctx context.Context, system, user string, emit func(string) error) error {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(system, user))
	defer stream.Close()

	fragments := 0
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		fragments++
		if err := emit(delta); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("openai stream: %w", err)
	}
	log.Printf("llm stream model=%s fragments=%d", c.model, fragments)
	return nil
}

// Complete returns the whole completion text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.params(system, user), option.WithRequestTimeout(c.timeout))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("openai request timeout: %w", err)
		}
		return "", fmt.Errorf("openai completion: %w", err)
	}
	logUsage(c.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai response missing choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", llm.ErrEmptyResponse
	}
	return content, nil
}

type verboseTranscription struct {
	Text     string        `json:"text"`
	Duration float64       `json:"duration"`
	Segments []llm.Segment `json:"segments"`
}

// Transcribe sends audio to the transcription endpoint with segment timestamps.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, fileName, language string) (llm.Transcription, error) {
	params := openaigo.AudioTranscriptionNewParams{
		File:                   openaigo.File(audio, fileName, audioContentType(fileName)),
		Model:                  openaigo.AudioModel(c.transcribeModel),
		ResponseFormat:         openaigo.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"segment"},
	}
	if language != "" {
		params.Language = openaigo.String(language)
	}
	resp, err := c.client.Audio.Transcriptions.New(ctx, params, option.WithRequestTimeout(c.timeout))
	if err != nil {
		return llm.Transcription{}, fmt.Errorf("openai transcription: %w", err)
	}
	return decodeTranscription(resp.RawJSON())
}

func decodeTranscription(raw string) (llm.Transcription, error) {
	var parsed verboseTranscription
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return llm.Transcription{}, fmt.Errorf("openai transcription parse: %w", err)
	}
	return llm.Transcription{
		Text:     strings.TrimSpace(parsed.Text),
		Segments: parsed.Segments,
		Duration: parsed.Duration,
	}, nil
}

func audioContentType(fileName string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func logUsage(model string, prompt, completion, total int64) {
	if total == 0 {
		log.Printf("llm response model=%s", model)
		return
	}
	log.Printf("llm response model=%s prompt_tokens=%d completion_tokens=%d total_tokens=%d",
		model, prompt, completion, total)
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var (
	_ llm.Streamer    = (*Client)(nil)
	_ llm.Completer   = (*Client)(nil)
	_ llm.Transcriber = (*Client)(nil)
)
