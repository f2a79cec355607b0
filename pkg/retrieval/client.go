package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"recipe-rag-be/internal/config"
	"recipe-rag-be/internal/pkg/logger"
	"recipe-rag-be/pkg/upstream"
)

const serviceName = "retriever"

// IRetriever defines the contract for fetching grounding documents
type IRetriever interface {
	Retrieve(ctx context.Context, query string, opts Options) ([]Document, error)
}

// Options carries the per-request overrides from the chat request. Nil
// fields fall back to the configured defaults.
type Options struct {
	TopK       *int
	UseRerank  *bool
	RerankMode *string
	RerankTopK *int
}

type Client struct {
	cfg    config.RetrievalConfig
	client *http.Client
	log    logger.ILogger
}

var _ IRetriever = &Client{}

func NewClient(cfg config.RetrievalConfig, log logger.ILogger) *Client {
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		log: log,
	}
}

type searchRequest struct {
	Query      string  `json:"query"`
	K          int     `json:"k"`
	UseRerank  bool    `json:"use_rerank"`
	RerankMode *string `json:"rerank_mode"`
	RerankTopK int     `json:"rerank_top_k,omitempty"`
}

// buildRequest applies override precedence (call argument, then configured
// default) and assembles the outgoing payload.
func (c *Client) buildRequest(query string, opts Options) searchRequest {
	topK := c.cfg.TopK
	if opts.TopK != nil {
		topK = *opts.TopK
	}

	useRerank := c.cfg.UseRerank
	if opts.UseRerank != nil {
		useRerank = *opts.UseRerank
	}

	var rerankMode *string
	mode := c.cfg.RerankMode
	if opts.RerankMode != nil && *opts.RerankMode != "" {
		mode = *opts.RerankMode
	}
	if mode != "" {
		lowered := strings.ToLower(mode)
		rerankMode = &lowered
	}

	req := searchRequest{
		Query:      query,
		K:          topK,
		UseRerank:  useRerank,
		RerankMode: rerankMode,
	}

	if useRerank {
		rerankTopK := c.cfg.RerankTopK
		if opts.RerankTopK != nil {
			rerankTopK = *opts.RerankTopK
		}
		if rerankTopK == 0 {
			rerankTopK = topK
		}
		req.RerankTopK = rerankTopK
	}

	return req
}

// Retrieve posts the search request and normalizes the response. Transport
// and status failures propagate unmodified; there are no retries and no
// fallback here.
func (c *Client) Retrieve(ctx context.Context, query string, opts Options) ([]Document, error) {
	if c.cfg.URL == "" {
		return nil, &upstream.ConfigError{Setting: "RAG_API_URL"}
	}

	payload := c.buildRequest(query, opts)
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.log.Info("retrieval", "Retrieval request", map[string]interface{}{
		"url":        c.cfg.URL,
		"k":          payload.K,
		"use_rerank": payload.UseRerank,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &upstream.TransportError{Service: serviceName, Err: err}
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

	items, err := decodeItems(bodyBytes)
	if err != nil {
		return nil, &upstream.ContractError{Service: serviceName, Reason: err.Error()}
	}

	documents := make([]Document, 0, len(items))
	for _, item := range items {
		if doc := normalizeItem(item); doc != nil {
			documents = append(documents, *doc)
		}
	}

	c.log.Info("retrieval", "Retrieval response", map[string]interface{}{
		"status":    resp.StatusCode,
		"documents": len(documents),
	})
	return documents, nil
}

// decodeItems accepts either a bare array of items or an object wrapping
// them in a "results" field.
func decodeItems(body []byte) ([]map[string]interface{}, error) {
	var items []map[string]interface{}
	if err := json.Unmarshal(body, &items); err == nil {
		return items, nil
	}

	var wrapped struct {
		Results []map[string]interface{} `json:"results"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("malformed response body: %w", err)
	}
	return wrapped.Results, nil
}
