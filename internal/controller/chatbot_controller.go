package controller

import (
	"errors"

	"twinai-be/internal/dto"
	"twinai-be/internal/pkg/serverutils"
	"twinai-be/internal/service"
	"twinai-be/pkg/store"

	"github.com/gofiber/fiber/v2"
)

type IChatbotController interface {
	RegisterRoutes(r fiber.Router)
	SendChat(ctx *fiber.Ctx) error
	GetChatHistory(ctx *fiber.Ctx) error
	GetAllSessions(ctx *fiber.Ctx) error
	ResetSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
}

type chatbotController struct {
	service service.IChatbotService
}

func NewChatbotController(service service.IChatbotService) IChatbotController {
	return &chatbotController{service: service}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chatbot/v1")
	h.Post("chat", serverutils.OptionalJwtMiddleware, c.SendChat)
	h.Get("history/:sessionId", serverutils.OptionalJwtMiddleware, c.GetChatHistory)
	h.Post("reset", serverutils.OptionalJwtMiddleware, c.ResetSession)
	h.Get("sessions", serverutils.JwtMiddleware, c.GetAllSessions)
	h.Delete("sessions/:sessionId", serverutils.JwtMiddleware, c.DeleteSession)
}

func (c *chatbotController) SendChat(ctx *fiber.Ctx) error {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.ProcessTurn(ctx.UserContext(), req.SessionId, serverutils.UserID(ctx), req.Chat)
	if err != nil {
		return sessionError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send chat", &dto.SendChatResponse{
		SessionId:  req.SessionId,
		Content:    res.Content,
		Type:       string(res.Type),
		Structured: res.Structured,
	}))
}

func (c *chatbotController) GetChatHistory(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 0)
	if limit < 0 || limit > 200 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be between 0 and 200")
	}

	res, err := c.service.GetChatHistory(ctx.UserContext(), ctx.Params("sessionId"), serverutils.UserID(ctx), limit)
	if err != nil {
		return sessionError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}

func (c *chatbotController) GetAllSessions(ctx *fiber.Ctx) error {
	res, err := c.service.GetAllSessions(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all sessions", res))
}

func (c *chatbotController) ResetSession(ctx *fiber.Ctx) error {
	var req dto.ResetSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.ResetSession(ctx.UserContext(), req.SessionId, serverutils.UserID(ctx)); err != nil {
		return sessionError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success reset session", nil))
}

func (c *chatbotController) DeleteSession(ctx *fiber.Ctx) error {
	err := c.service.DeleteSession(ctx.UserContext(), ctx.Params("sessionId"), serverutils.UserID(ctx))
	if errors.Is(err, service.ErrSessionNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Chat session not found")
	}
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete session", nil))
}

func sessionError(err error) error {
	if errors.Is(err, store.ErrSessionForbidden) {
		return fiber.NewError(fiber.StatusForbidden, "Chat session belongs to another user")
	}
	return err
}
