package bootstrap

import (
	"recipe-rag-be/internal/config"
	"recipe-rag-be/internal/controller"
	"recipe-rag-be/internal/pkg/logger"
	"recipe-rag-be/internal/service"
	"recipe-rag-be/pkg/llm/siliconflow"
	"recipe-rag-be/pkg/rag/rewrite"
	"recipe-rag-be/pkg/retrieval"
)

type Container struct {
	ChatController controller.IChatController
	Logger         logger.ILogger
}

func NewContainer(cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	llmProvider := siliconflow.NewSiliconFlowProvider(cfg.Completion, cfg.Model)
	retriever := retrieval.NewClient(cfg.Retrieval, sysLogger)
	rewriter := rewrite.NewRewriter(llmProvider, cfg.Rewriter, sysLogger)

	chatService := service.NewChatService(
		llmProvider,
		retriever,
		rewriter,
		cfg.Model,
		cfg.Retrieval,
		sysLogger,
	)

	return &Container{
		ChatController: controller.NewChatController(chatService),
		Logger:         sysLogger,
	}
}
