package controller

import (
	"io"
	"strings"

	"socratic-tutor-be/internal/dto"
	"socratic-tutor-be/internal/pkg/serverutils"
	"socratic-tutor-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IConversationController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	SubmitTurn(ctx *fiber.Ctx) error
}

type conversationController struct {
	service service.IConversationService
}

func NewConversationController(service service.IConversationService) IConversationController {
	return &conversationController{service: service}
}

func (c *conversationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/conversation/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Start)
	h.Get(":id", c.Show)
	h.Post(":id/turns", c.SubmitTurn)
}

func (c *conversationController) Start(ctx *fiber.Ctx) error {
	auth := serverutils.Auth(ctx)

	var req dto.StartConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.StartConversation(ctx.UserContext(), auth.UserId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success start conversation", res))
}

func (c *conversationController) Show(ctx *fiber.Ctx) error {
	auth := serverutils.Auth(ctx)
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid conversation id")
	}

	res, err := c.service.GetConversation(ctx.UserContext(), auth.UserId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get conversation", res))
}

// SubmitTurn accepts either JSON or a multipart form with an "audio" file
// and an optional "text" field.
func (c *conversationController) SubmitTurn(ctx *fiber.Ctx) error {
	auth := serverutils.Auth(ctx)
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid conversation id")
	}

	var req dto.SubmitTurnRequest
	if strings.HasPrefix(string(ctx.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		if err := parseTurnForm(ctx, &req); err != nil {
			return err
		}
	} else if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SubmitTurn(ctx.UserContext(), auth.UserId, id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success submit turn", res))
}

func parseTurnForm(ctx *fiber.Ctx, req *dto.SubmitTurnRequest) error {
	req.Text = ctx.FormValue("text")

	file, err := ctx.FormFile("audio")
	if err != nil {
		// text-only form
		return nil
	}
	f, err := file.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot read audio upload")
	}
	defer f.Close()

	audio, err := io.ReadAll(f)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot read audio upload")
	}
	req.Audio = audio
	req.MimeType = file.Header.Get("Content-Type")
	if mt := ctx.FormValue("mimeType"); mt != "" {
		req.MimeType = mt
	}
	return nil
}
