package handlers

import (
	"log"
	"strings"

	"github.com/farrukhll0/pigeon-management-system/internal/middleware"
	"github.com/farrukhll0/pigeon-management-system/internal/models"
	"github.com/farrukhll0/pigeon-management-system/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// PigeonHandler handles HTTP requests for pigeons.
type PigeonHandler struct {
	service  *services.PigeonService
	validate *validator.Validate
}

// NewPigeonHandler creates a new PigeonHandler.
func NewPigeonHandler(service *services.PigeonService) *PigeonHandler {
	return &PigeonHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the pigeon routes. Every route requires a logged-in user.
func (h *PigeonHandler) RegisterRoutes(router fiber.Router, protect fiber.Handler) {
	pigeonRoutes := router.Group("/pigeons", protect)
	pigeonRoutes.Get("/", h.HandleGetPigeons)
	pigeonRoutes.Post("/", h.HandleCreatePigeon)
	pigeonRoutes.Get("/:id", h.HandleGetPigeonByID)
	pigeonRoutes.Put("/:id", h.HandleUpdatePigeon)
	pigeonRoutes.Delete("/:id", h.HandleDeletePigeon)
}

// HandleGetPigeons lists the caller's pigeons, optionally filtered by
// ?search= and ?sex=.
func (h *PigeonHandler) HandleGetPigeons(c *fiber.Ctx) error {
	filter := models.PigeonFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Sex:    strings.TrimSpace(c.Query("sex")),
	}
	if filter.Sex != "" && !models.ValidSex(filter.Sex) {
		return validationFailed(c, map[string]string{"sex": "sex must be one of: Male, Female, Unknown"})
	}

	pigeons, err := h.service.List(c.UserContext(), middleware.UserID(c), filter)
	if err != nil {
		return respondError(c, "listing pigeons", err)
	}
	return c.JSON(pigeons)
}

// HandleGetPigeonByID returns one of the caller's pigeons.
func (h *PigeonHandler) HandleGetPigeonByID(c *fiber.Ctx) error {
	pigeon, err := h.service.Get(c.UserContext(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return respondError(c, "getting pigeon "+c.Params("id"), err)
	}
	return c.JSON(pigeon)
}

// HandleCreatePigeon creates a pigeon owned by the caller.
func (h *PigeonHandler) HandleCreatePigeon(c *fiber.Ctx) error {
	in, err := h.parseInput(c)
	if err != nil {
		return err
	}
	if in == nil {
		return nil
	}

	pigeon, err := h.service.Create(c.UserContext(), middleware.UserID(c), *in)
	if err != nil {
		return respondError(c, "creating pigeon", err)
	}
	return c.Status(fiber.StatusCreated).JSON(pigeon)
}

// HandleUpdatePigeon merges the supplied fields into one of the caller's pigeons.
func (h *PigeonHandler) HandleUpdatePigeon(c *fiber.Ctx) error {
	in, err := h.parseInput(c)
	if err != nil {
		return err
	}
	if in == nil {
		return nil
	}

	pigeon, err := h.service.Update(c.UserContext(), c.Params("id"), middleware.UserID(c), *in)
	if err != nil {
		return respondError(c, "updating pigeon "+c.Params("id"), err)
	}
	return c.JSON(pigeon)
}

// HandleDeletePigeon removes one of the caller's pigeons.
func (h *PigeonHandler) HandleDeletePigeon(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id"), middleware.UserID(c)); err != nil {
		return respondError(c, "deleting pigeon "+c.Params("id"), err)
	}
	return c.JSON(fiber.Map{"message": "Pigeon removed"})
}

// parseInput binds and validates a pigeon payload. A nil input with a nil
// error means the response has already been written.
func (h *PigeonHandler) parseInput(c *fiber.Ctx) (*services.PigeonInput, error) {
	var in services.PigeonInput
	if err := c.BodyParser(&in); err != nil {
		log.Printf("Error parsing pigeon request body: %v", err)
		return nil, badRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(in); err != nil {
		return nil, validationFailed(c, validationErrors(err))
	}
	return &in, nil
}
