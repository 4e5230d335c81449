package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"resumechat/types"
)

const (
	defaultWait = 30 * time.Second
	maxWait     = 2 * time.Minute
)

// ChatService is what the handlers need from the chat orchestrator.
type ChatService interface {
	Submit(ctx context.Context, question string) (types.Reply, bool)
	Document() *types.DocumentCache
	RefreshDocument(ctx context.Context)
	WaitReady(ctx context.Context) bool
	Transcript() []types.ChatTurn
}

type ChatHandler struct {
	chat ChatService
}

func NewChatHandler(chat ChatService) *ChatHandler {
	return &ChatHandler{
		chat: chat,
	}
}

func (h *ChatHandler) HandleAsk(c *fiber.Ctx) error {
	var params types.AskParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	reply, ok := h.chat.Submit(c.UserContext(), params.Question)
	if !ok {
		return NewValidationError(map[string]string{"Question": "failed on 'notblank' tag"})
	}

	return c.JSON(&types.AskResponse{
		Answer:  reply.Text,
		Outcome: reply.Outcome,
		Turns:   []types.ChatTurn{reply.Question, reply.Answer},
	})
}

func (h *ChatHandler) HandleDocument(c *fiber.Ctx) error {
	return c.JSON(types.StatusOf(h.chat.Document()))
}

func (h *ChatHandler) HandleReload(c *fiber.Ctx) error {
	h.chat.RefreshDocument(c.UserContext())
	return c.JSON(types.StatusOf(h.chat.Document()))
}

// HandleWait blocks until the current load finishes. The optional "timeout"
// query parameter is a Go duration capped at two minutes.
func (h *ChatHandler) HandleWait(c *fiber.Ctx) error {
	wait := defaultWait
	if raw := c.Query("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return ErrInvalidParam("timeout")
		}
		wait = min(d, maxWait)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), wait)
	defer cancel()
	h.chat.WaitReady(ctx)

	return c.JSON(types.StatusOf(h.chat.Document()))
}

func (h *ChatHandler) HandleTranscript(c *fiber.Ctx) error {
	return c.JSON(h.chat.Transcript())
}
