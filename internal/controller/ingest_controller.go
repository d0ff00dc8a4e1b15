package controller

import (
	"ai-voicebot-be/internal/dto"
	"ai-voicebot-be/internal/pkg/serverutils"
	"ai-voicebot-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IIngestController interface {
	RegisterRoutes(r fiber.Router)
	Ingest(ctx *fiber.Ctx) error
}

type ingestController struct {
	service service.IIngestService
	guard   fiber.Handler
}

// NewIngestController wires the ingest routes. A nil guard leaves them open.
func NewIngestController(service service.IIngestService, guard fiber.Handler) IIngestController {
	return &ingestController{service: service, guard: guard}
}

func (c *ingestController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/ingest/v1")
	if c.guard != nil {
		h.Use(c.guard)
	}
	h.Post("", c.Ingest)
}

func (c *ingestController) Ingest(ctx *fiber.Ctx) error {
	var req dto.IngestRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Ingest(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Documents ingested", res))
}
