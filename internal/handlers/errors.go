package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-parser/internal/repositories"
	"alfredoptarigan/cv-parser/internal/services"
)

// ErrorHandler maps pipeline and repository errors onto HTTP statuses.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, services.ErrUnsupportedFormat):
		code = fiber.StatusUnsupportedMediaType
	case errors.Is(err, services.ErrExtractionFailed):
		code = fiber.StatusUnprocessableEntity
	case errors.Is(err, repositories.ErrNotFound):
		code = fiber.StatusNotFound
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
