package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-rag-be/internal/config"
	"recipe-rag-be/internal/dto"
	"recipe-rag-be/pkg/llm"
	"recipe-rag-be/pkg/rag/rewrite"
	"recipe-rag-be/pkg/retrieval"
	"recipe-rag-be/pkg/upstream"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type fakeRetriever struct {
	docs      []retrieval.Document
	err       error
	gotQuery  string
	gotOpts   retrieval.Options
	callCount int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, opts retrieval.Options) ([]retrieval.Document, error) {
	f.callCount++
	f.gotQuery = query
	f.gotOpts = opts
	return f.docs, f.err
}

// scriptedProvider returns queued responses in order; used when the same
// provider serves both the rewrite and the generation call.
type scriptedProvider struct {
	responses []struct {
		result *llm.ChatResult
		err    error
	}
	gotMessages [][]llm.Message
	streamOut   <-chan llm.StreamDelta
	streamErr   error
}

func (f *scriptedProvider) queue(result *llm.ChatResult, err error) {
	f.responses = append(f.responses, struct {
		result *llm.ChatResult
		err    error
	}{result, err})
}

func (f *scriptedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (*llm.ChatResult, error) {
	f.gotMessages = append(f.gotMessages, history)
	if len(f.responses) == 0 {
		return nil, fmt.Errorf("scriptedProvider: no response queued")
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	return next.result, next.err
}

func (f *scriptedProvider) StreamChat(ctx context.Context, history []llm.Message, options ...llm.Option) (<-chan llm.StreamDelta, error) {
	f.gotMessages = append(f.gotMessages, history)
	return f.streamOut, f.streamErr
}

type passthroughRewriter struct{}

func (passthroughRewriter) Rewrite(ctx context.Context, query string) (string, error) {
	return query, nil
}

type failingRewriter struct{}

func (failingRewriter) Rewrite(ctx context.Context, query string) (string, error) {
	return query, &upstream.TransportError{Service: "siliconflow"}
}

func makeDocs(n int) []retrieval.Document {
	docs := make([]retrieval.Document, n)
	for i := range docs {
		docs[i] = retrieval.Document{Title: fmt.Sprintf("doc-%d", i+1), Content: fmt.Sprintf("content-%d", i+1)}
	}
	return docs
}

func modelCfg() config.ModelConfig {
	return config.ModelConfig{ModelName: "Qwen/Qwen2.5-7B-Instruct", Temperature: 0.7, TopP: 0.9, MaxTokens: 1024}
}

func newService(provider llm.LLMProvider, retriever retrieval.IRetriever, rewriter IQueryRewriter, topK int) IChatService {
	return NewChatService(provider, retriever, rewriter, modelCfg(), config.RetrievalConfig{TopK: topK}, nopLogger{})
}

func answered(answer string) *llm.ChatResult {
	return &llm.ChatResult{Content: answer, Model: "Qwen/Qwen2.5-7B-Instruct"}
}

func TestChatTrimsToEffectiveTopK(t *testing.T) {
	tests := []struct {
		name     string
		docCount int
		topKCfg  int
		topKReq  *int
		wantKept int
	}{
		{name: "more docs than config k", docCount: 8, topKCfg: 5, wantKept: 5},
		{name: "fewer docs than k", docCount: 2, topKCfg: 5, wantKept: 2},
		{name: "request override wins", docCount: 8, topKCfg: 5, topKReq: intPtr(3), wantKept: 3},
		{name: "request override above doc count", docCount: 2, topKCfg: 1, topKReq: intPtr(10), wantKept: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &scriptedProvider{}
			provider.queue(answered("好的"), nil)
			retriever := &fakeRetriever{docs: makeDocs(tt.docCount)}
			svc := newService(provider, retriever, passthroughRewriter{}, tt.topKCfg)

			res, err := svc.Chat(context.Background(), &dto.ChatRequest{Query: "q", TopK: tt.topKReq})
			require.NoError(t, err)
			require.Len(t, res.Documents, tt.wantKept)
			// Retrieval order preserved
			for i, doc := range res.Documents {
				assert.Equal(t, fmt.Sprintf("doc-%d", i+1), doc.Title)
			}
		})
	}
}

func TestChatUsesRewrittenQueryForRetrieval(t *testing.T) {
	provider := &scriptedProvider{}
	provider.queue(&llm.ChatResult{Content: "<rewrite>我喜欢清淡的食谱</rewrite>", Model: "m"}, nil)
	provider.queue(answered("推荐清蒸鲈鱼。"), nil)

	retriever := &fakeRetriever{docs: makeDocs(1)}
	rewriter := rewrite.NewRewriter(provider, config.RewriterConfig{Enabled: true, ModelName: "m"}, nopLogger{})
	svc := newService(provider, retriever, rewriter, 5)

	res, err := svc.Chat(context.Background(), &dto.ChatRequest{Query: "我不喜欢吃辣"})
	require.NoError(t, err)

	assert.Equal(t, "我喜欢清淡的食谱", retriever.gotQuery)
	// The grounded prompt still carries the user's original wording.
	require.Len(t, provider.gotMessages, 2)
	generation := provider.gotMessages[1]
	assert.Contains(t, generation[1].Content, "我不喜欢吃辣")
	assert.NotContains(t, generation[1].Content, "我喜欢清淡的食谱")
	assert.Equal(t, "推荐清蒸鲈鱼。", res.Answer)
}

func TestChatRewriteFailureFallsBackToOriginal(t *testing.T) {
	provider := &scriptedProvider{}
	provider.queue(answered("好的"), nil)
	retriever := &fakeRetriever{docs: makeDocs(1)}
	svc := newService(provider, retriever, failingRewriter{}, 5)

	_, err := svc.Chat(context.Background(), &dto.ChatRequest{Query: "我不喜欢吃辣"})
	require.NoError(t, err)
	assert.Equal(t, "我不喜欢吃辣", retriever.gotQuery)
}

func TestChatPassesOverridesToRetriever(t *testing.T) {
	provider := &scriptedProvider{}
	provider.queue(answered("好的"), nil)
	retriever := &fakeRetriever{docs: makeDocs(1)}
	svc := newService(provider, retriever, passthroughRewriter{}, 5)

	useRerank := true
	mode := "bi"
	rerankTopK := 7
	_, err := svc.Chat(context.Background(), &dto.ChatRequest{
		Query:      "q",
		UseRerank:  &useRerank,
		RerankMode: &mode,
		RerankTopK: &rerankTopK,
	})
	require.NoError(t, err)

	require.NotNil(t, retriever.gotOpts.UseRerank)
	assert.True(t, *retriever.gotOpts.UseRerank)
	require.NotNil(t, retriever.gotOpts.RerankMode)
	assert.Equal(t, "bi", *retriever.gotOpts.RerankMode)
	require.NotNil(t, retriever.gotOpts.RerankTopK)
	assert.Equal(t, 7, *retriever.gotOpts.RerankTopK)
}

func TestChatRetrievalFailureIsTerminal(t *testing.T) {
	provider := &scriptedProvider{}
	retriever := &fakeRetriever{err: &upstream.ConfigError{Setting: "RAG_API_URL"}}
	svc := newService(provider, retriever, passthroughRewriter{}, 5)

	_, err := svc.Chat(context.Background(), &dto.ChatRequest{Query: "q"})
	var configErr *upstream.ConfigError
	require.ErrorAs(t, err, &configErr)
	// The completion service must not have been called.
	assert.Empty(t, provider.gotMessages)
}

func TestChatGenerationContractViolationIsTerminal(t *testing.T) {
	provider := &scriptedProvider{}
	provider.queue(nil, &upstream.ContractError{Service: "siliconflow", Reason: "response contained no choices"})
	retriever := &fakeRetriever{docs: makeDocs(1)}
	svc := newService(provider, retriever, passthroughRewriter{}, 5)

	_, err := svc.Chat(context.Background(), &dto.ChatRequest{Query: "q"})
	var contractErr *upstream.ContractError
	require.ErrorAs(t, err, &contractErr)
}

func TestChatResponsePassthrough(t *testing.T) {
	total := 30
	provider := &scriptedProvider{}
	provider.queue(&llm.ChatResult{
		Content: "推荐清蒸鲈鱼。",
		Model:   "served-model",
		Usage:   &llm.Usage{TotalTokens: &total},
		Raw:     map[string]interface{}{"id": "cmpl-1"},
	}, nil)
	retriever := &fakeRetriever{docs: makeDocs(2)}
	svc := newService(provider, retriever, passthroughRewriter{}, 5)

	res, err := svc.Chat(context.Background(), &dto.ChatRequest{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "推荐清蒸鲈鱼。", res.Answer)
	assert.Equal(t, "served-model", res.Model)
	require.NotNil(t, res.Usage)
	assert.Equal(t, 30, *res.Usage.TotalTokens)
	assert.Equal(t, "cmpl-1", res.RawResponse["id"])
	assert.Len(t, res.Documents, 2)
}

func TestPrepareStream(t *testing.T) {
	provider := &scriptedProvider{}
	retriever := &fakeRetriever{docs: makeDocs(4)}
	svc := newService(provider, retriever, passthroughRewriter{}, 2)

	prepared, err := svc.PrepareStream(context.Background(), &dto.ChatRequest{Query: "怎么做红烧肉"})
	require.NoError(t, err)

	assert.Equal(t, "Qwen/Qwen2.5-7B-Instruct", prepared.Model)
	assert.Len(t, prepared.Documents, 2)
	require.Len(t, prepared.Messages, 2)
	assert.True(t, strings.Contains(prepared.Messages[1].Content, "怎么做红烧肉"))
}

func intPtr(v int) *int { return &v }
