package controller

import (
	"bufio"
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"recipe-rag-be/internal/constant"
	"recipe-rag-be/internal/dto"
	"recipe-rag-be/internal/pkg/serverutils"
	"recipe-rag-be/internal/service"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Chat(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
	Playground(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
	r.Get("/", c.Playground)
	r.Post("/chat", c.Chat)
}

func (c *chatController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "ok"})
}

func (c *chatController) Playground(ctx *fiber.Ctx) error {
	ctx.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return ctx.SendString(constant.PlaygroundHTML)
}

func (c *chatController) Chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if !req.Stream {
		res, err := c.chatService.Chat(ctx.Context(), &req)
		if err != nil {
			return err
		}
		return ctx.JSON(res)
	}

	// The pipeline front half (rewrite, retrieve, trim, assemble) runs
	// before headers are committed, so its failures still map to proper
	// HTTP status codes.
	prepared, err := c.chatService.PrepareStream(ctx.Context(), &req)
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		c.streamAnswer(w, prepared)
	}))
	return nil
}

// streamAnswer emits the outward SSE sequence: one meta frame, the delta
// frames in upstream order, then exactly one terminal end/error frame.
// Runs after the handler returned, so it must not touch the fiber ctx.
func (c *chatController) streamAnswer(w *bufio.Writer, prepared *service.PreparedStream) {
	streamCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	meta := dto.StreamMeta{Model: prepared.Model, Documents: prepared.Documents}
	if err := serverutils.WriteEvent(w, "meta", meta); err != nil {
		return
	}

	deltas, err := c.chatService.StreamAnswer(streamCtx, prepared.Messages)
	if err != nil {
		_ = serverutils.WriteEvent(w, "error", dto.StreamError{Message: err.Error()})
		return
	}

	var answer strings.Builder
	for delta := range deltas {
		if delta.Err != nil {
			_ = serverutils.WriteEvent(w, "error", dto.StreamError{Message: delta.Err.Error()})
			return
		}
		answer.WriteString(delta.Content)
		if err := serverutils.WriteEvent(w, "delta", delta.Content); err != nil {
			// Client disconnected: cancel the upstream read and abandon
			// the channel instead of draining it.
			return
		}
	}

	_ = serverutils.WriteEvent(w, "end", dto.StreamEnd{Answer: strings.TrimSpace(answer.String())})
}
