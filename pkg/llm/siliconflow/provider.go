package siliconflow

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"recipe-rag-be/internal/config"
	"recipe-rag-be/pkg/llm"
	"recipe-rag-be/pkg/upstream"
)

const serviceName = "siliconflow"

// doneSentinel is the literal the upstream emits on its last data line.
const doneSentinel = "[DONE]"

// SiliconFlowProvider talks to the SiliconFlow chat-completions API. Both
// the buffered and the streaming calls post the same payload; only the
// stream flag and the client timeout differ. The streaming client carries
// no timeout on purpose: generation latency is open-ended and pacing is
// controlled by the upstream.
type SiliconFlowProvider struct {
	apiKey   string
	baseURL  string
	defaults config.ModelConfig

	client       *http.Client
	streamClient *http.Client
}

// Ensure SiliconFlowProvider implements LLMProvider
var _ llm.LLMProvider = &SiliconFlowProvider{}

func NewSiliconFlowProvider(cfg config.CompletionConfig, defaults config.ModelConfig) *SiliconFlowProvider {
	return &SiliconFlowProvider{
		apiKey:   cfg.APIKey,
		baseURL:  cfg.BaseURL,
		defaults: defaults,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		streamClient: &http.Client{},
	}
}

// --- Request/Response structs (Internal to this package) ---

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *llm.Usage `json:"usage"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (p *SiliconFlowProvider) buildRequest(history []llm.Message, stream bool, options []llm.Option) (*chatRequest, error) {
	if p.apiKey == "" {
		return nil, &upstream.ConfigError{Setting: "SILICONFLOW_API_KEY"}
	}

	opts := &llm.Options{}
	for _, o := range options {
		o(opts)
	}

	req := &chatRequest{
		Model:       p.defaults.ModelName,
		Messages:    history,
		Temperature: p.defaults.Temperature,
		TopP:        p.defaults.TopP,
		MaxTokens:   p.defaults.MaxTokens,
		Stream:      stream,
	}
	if opts.Model != "" {
		req.Model = opts.Model
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}
	if opts.TopP != nil {
		req.TopP = *opts.TopP
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	return req, nil
}

func (p *SiliconFlowProvider) post(ctx context.Context, client *http.Client, payload *chatRequest) (*http.Response, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &upstream.TransportError{Service: serviceName, Err: err}
	}
	return resp, nil
}

func (p *SiliconFlowProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (*llm.ChatResult, error) {
	payload, err := p.buildRequest(history, false, options)
	if err != nil {
		return nil, err
	}

	resp, err := p.post(ctx, p.client, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &upstream.TransportError{Service: serviceName, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &upstream.StatusError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Body:       string(bodyBytes),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return nil, &upstream.ContractError{Service: serviceName, Reason: fmt.Sprintf("malformed JSON body: %v", err)}
	}
	if len(parsed.Choices) == 0 {
		return nil, &upstream.ContractError{Service: serviceName, Reason: "response contained no choices"}
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return nil, &upstream.ContractError{Service: serviceName, Reason: "choice contained no message content"}
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(bodyBytes, &raw)

	model := parsed.Model
	if model == "" {
		model = payload.Model
	}

	return &llm.ChatResult{
		Content: content,
		Model:   model,
		Usage:   parsed.Usage,
		Raw:     raw,
	}, nil
}

func (p *SiliconFlowProvider) StreamChat(ctx context.Context, history []llm.Message, options ...llm.Option) (<-chan llm.StreamDelta, error) {
	payload, err := p.buildRequest(history, true, options)
	if err != nil {
		return nil, err
	}

	resp, err := p.post(ctx, p.streamClient, payload)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &upstream.StatusError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Body:       string(bodyBytes),
		}
	}

	out := make(chan llm.StreamDelta)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" {
				continue
			}
			if data == doneSentinel {
				return
			}

			var chunk streamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				// Malformed data lines are skipped, not fatal.
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			content := chunk.Choices[0].Delta.Content
			if content == "" {
				continue
			}

			select {
			case out <- llm.StreamDelta{Content: content}:
			case <-ctx.Done():
				return
			}
		}

		// The upstream may close the connection without a sentinel; only a
		// read error on a still-wanted stream is reported to the consumer.
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			select {
			case out <- llm.StreamDelta{Err: &upstream.TransportError{Service: serviceName, Err: err}}:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}
