package rewrite

import (
	"context"
	"errors"
	"strings"

	"recipe-rag-be/internal/config"
	"recipe-rag-be/internal/pkg/logger"
	"recipe-rag-be/pkg/llm"
	"recipe-rag-be/pkg/rag/prompt"
	"recipe-rag-be/pkg/upstream"
)

const (
	startMarker = "<rewrite>"
	endMarker   = "</rewrite>"
)

// Rewriter reshapes a user query for better retrieval recall. It is an
// optimization, not a requirement: malformed model output degrades to the
// original query with a warning, while transport and status errors
// propagate so the orchestrator can apply the same fallback.
type Rewriter struct {
	provider llm.LLMProvider
	cfg      config.RewriterConfig
	log      logger.ILogger
}

func NewRewriter(provider llm.LLMProvider, cfg config.RewriterConfig, log logger.ILogger) *Rewriter {
	return &Rewriter{
		provider: provider,
		cfg:      cfg,
		log:      log,
	}
}

// Rewrite returns the query to use for retrieval. When rewriting is
// disabled it returns the input unchanged without any network call.
func (r *Rewriter) Rewrite(ctx context.Context, query string) (string, error) {
	if !r.cfg.Enabled {
		return query, nil
	}

	messages := prompt.BuildRewriteMessages(query)
	result, err := r.provider.Chat(ctx, messages,
		llm.WithModel(r.cfg.ModelName),
		llm.WithTemperature(r.cfg.Temperature),
		llm.WithTopP(r.cfg.TopP),
		llm.WithMaxTokens(r.cfg.MaxTokens),
	)
	if err != nil {
		var contractErr *upstream.ContractError
		if errors.As(err, &contractErr) {
			// No choices or empty content: the rewrite is an optimization,
			// keep the original query.
			r.log.Warn("rewrite", "Query rewrite returned unusable output; fallback to original", map[string]interface{}{
				"reason": contractErr.Reason,
			})
			return query, nil
		}
		return query, err
	}

	rewritten, ok := extract(result.Content)
	if !ok {
		// The model skipped the <rewrite> markers; its raw output may be
		// reasoning text, so it is not safe to retrieve with.
		r.log.Warn("rewrite", "Rewrite output missing markers; fallback to original", map[string]interface{}{
			"content": result.Content,
		})
		return query, nil
	}
	if rewritten == "" {
		r.log.Warn("rewrite", "Rewrite output empty after extraction; fallback to original", nil)
		return query, nil
	}

	r.log.Info("rewrite", "Query rewritten", map[string]interface{}{
		"original":  query,
		"rewritten": rewritten,
	})
	return rewritten, nil
}

// extract pulls the text between the last start marker and the first end
// marker that follows it.
func extract(content string) (string, bool) {
	idx := strings.LastIndex(content, startMarker)
	if idx < 0 {
		return "", false
	}
	rest := content[idx+len(startMarker):]
	if end := strings.Index(rest, endMarker); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest), true
}
