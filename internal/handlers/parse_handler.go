package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/cv-parser/internal/models"
	"alfredoptarigan/cv-parser/internal/repositories"
	"alfredoptarigan/cv-parser/internal/services"
)

type ParseHandler struct {
	jobRepo repositories.ParseJobRepository
	docRepo repositories.DocumentRepository
	worker  services.Worker
}

func NewParseHandler(
	jobRepo repositories.ParseJobRepository,
	docRepo repositories.DocumentRepository,
	worker services.Worker,
) *ParseHandler {
	return &ParseHandler{
		jobRepo: jobRepo,
		docRepo: docRepo,
		worker:  worker,
	}
}

// HandleParse handles POST /parse
func (h *ParseHandler) HandleParse(c *fiber.Ctx) error {
	var req models.ParseRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if req.DocumentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "document_id is required",
		})
	}

	docID, err := uuid.Parse(req.DocumentID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document_id format",
		})
	}

	// Unknown documents surface as 404 through the error handler.
	if _, err := h.docRepo.FindByID(docID); err != nil {
		return err
	}

	job := &models.ParseJob{
		ID:         uuid.New(),
		DocumentID: docID,
		Status:     models.StatusQueued,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := h.jobRepo.Create(job); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create parse job",
		})
	}

	h.worker.EnqueueJob(job.ID)

	return c.Status(fiber.StatusAccepted).JSON(models.ParseResponse{
		ID:     job.ID.String(),
		Status: string(models.StatusQueued),
	})
}
