package handlers

import (
	"yt-segments/errors"
	"yt-segments/models"
	"yt-segments/services/video"

	"github.com/gofiber/fiber/v2"
)

type VideoHandler struct {
	service video.Service
}

func NewVideoHandler(service video.Service) *VideoHandler {
	return &VideoHandler{service: service}
}

func (h *VideoHandler) Process(c *fiber.Ctx) error {
	var req models.ProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return &errors.AppError{
			Code:    fiber.StatusBadRequest,
			Message: "Invalid request body",
			Err:     err,
		}
	}

	if req.YoutubeURL == "" {
		return &errors.AppError{
			Code:    fiber.StatusBadRequest,
			Message: "youtubeUrl is required",
		}
	}

	result, err := h.service.Process(c.Context(), req.YoutubeURL)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

func (h *VideoHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return &errors.AppError{
			Code:    fiber.StatusBadRequest,
			Message: "ID is required",
		}
	}

	result, err := h.service.Get(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

func (h *VideoHandler) History(c *fiber.Ctx) error {
	items, err := h.service.History(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    items,
	})
}

func (h *VideoHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return &errors.AppError{
			Code:    fiber.StatusBadRequest,
			Message: "ID is required",
		}
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}
