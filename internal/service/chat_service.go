package service

import (
	"context"

	"github.com/google/uuid"

	"recipe-rag-be/internal/config"
	"recipe-rag-be/internal/dto"
	"recipe-rag-be/internal/pkg/logger"
	"recipe-rag-be/pkg/llm"
	"recipe-rag-be/pkg/rag/prompt"
	"recipe-rag-be/pkg/retrieval"
)

// IQueryRewriter is the rewrite step as the orchestrator sees it.
type IQueryRewriter interface {
	Rewrite(ctx context.Context, query string) (string, error)
}

// IChatService sequences one chat request: rewrite, retrieve, trim,
// assemble, generate.
type IChatService interface {
	Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
	PrepareStream(ctx context.Context, req *dto.ChatRequest) (*PreparedStream, error)
	StreamAnswer(ctx context.Context, messages []llm.Message) (<-chan llm.StreamDelta, error)
}

// PreparedStream holds everything the controller needs before committing
// SSE headers: the meta frame content plus the finalized prompt.
type PreparedStream struct {
	Model     string
	Messages  []llm.Message
	Documents []retrieval.Document
}

type chatService struct {
	provider  llm.LLMProvider
	retriever retrieval.IRetriever
	rewriter  IQueryRewriter
	modelCfg  config.ModelConfig
	topK      int
	log       logger.ILogger
}

func NewChatService(
	provider llm.LLMProvider,
	retriever retrieval.IRetriever,
	rewriter IQueryRewriter,
	modelCfg config.ModelConfig,
	retrievalCfg config.RetrievalConfig,
	log logger.ILogger,
) IChatService {
	return &chatService{
		provider:  provider,
		retriever: retriever,
		rewriter:  rewriter,
		modelCfg:  modelCfg,
		topK:      retrievalCfg.TopK,
		log:       log,
	}
}

// prepare runs the shared pipeline front half: rewrite (recoverable),
// retrieve (terminal on failure), trim, assemble. The prompt is built from
// the ORIGINAL query; the rewritten one is used only for retrieval.
func (s *chatService) prepare(ctx context.Context, req *dto.ChatRequest) ([]retrieval.Document, []llm.Message, error) {
	requestID := uuid.NewString()

	retrievalQuery, err := s.rewriter.Rewrite(ctx, req.Query)
	if err != nil {
		// The rewrite step is an optimization; any failure falls back to
		// the original query.
		s.log.Warn("chat", "Query rewrite failed; fallback to original", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		retrievalQuery = req.Query
	}
	if retrievalQuery != req.Query {
		s.log.Info("chat", "Using rewritten query for retrieval", map[string]interface{}{
			"request_id": requestID,
			"original":   req.Query,
			"rewritten":  retrievalQuery,
		})
	}

	documents, err := s.retriever.Retrieve(ctx, retrievalQuery, retrieval.Options{
		TopK:       req.TopK,
		UseRerank:  req.UseRerank,
		RerankMode: req.RerankMode,
		RerankTopK: req.RerankTopK,
	})
	if err != nil {
		return nil, nil, err
	}

	trimmed := trimDocuments(documents, s.effectiveTopK(req))
	s.log.Info("chat", "Retrieved documents", map[string]interface{}{
		"request_id": requestID,
		"retrieved":  len(documents),
		"kept":       len(trimmed),
	})

	messages := prompt.BuildChatMessages(req.Query, trimmed)
	return trimmed, messages, nil
}

// effectiveTopK applies request override precedence for the display limit.
// This is independent from the reranker's own top_k knob.
func (s *chatService) effectiveTopK(req *dto.ChatRequest) int {
	if req.TopK != nil {
		return *req.TopK
	}
	return s.topK
}

// trimDocuments keeps the top-k documents in retrieval order.
func trimDocuments(documents []retrieval.Document, limit int) []retrieval.Document {
	if limit <= 0 || limit >= len(documents) {
		return documents
	}
	return documents[:limit]
}

func (s *chatService) Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	documents, messages, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := s.provider.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}

	return &dto.ChatResponse{
		Answer:      result.Content,
		Model:       result.Model,
		Usage:       result.Usage,
		RawResponse: result.Raw,
		Documents:   documents,
	}, nil
}

func (s *chatService) PrepareStream(ctx context.Context, req *dto.ChatRequest) (*PreparedStream, error) {
	documents, messages, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return &PreparedStream{
		Model:     s.modelCfg.ModelName,
		Messages:  messages,
		Documents: documents,
	}, nil
}

func (s *chatService) StreamAnswer(ctx context.Context, messages []llm.Message) (<-chan llm.StreamDelta, error) {
	return s.provider.StreamChat(ctx, messages)
}
