package handlers

import (
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/cv-parser/internal/models"
	"alfredoptarigan/cv-parser/internal/repositories"
)

type ResultHandler struct {
	jobRepo repositories.ParseJobRepository
	logger  *slog.Logger
}

func NewResultHandler(jobRepo repositories.ParseJobRepository, logger *slog.Logger) *ResultHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultHandler{
		jobRepo: jobRepo,
		logger:  logger,
	}
}

func (h *ResultHandler) HandleGetResult(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid parse job ID format",
		})
	}

	job, err := h.jobRepo.FindByID(jobID)
	if err != nil {
		return err
	}

	response := models.ResultResponse{
		ID:     job.ID.String(),
		Status: string(job.Status),
	}

	if job.Status == models.StatusCompleted {
		data, err := decodeParseData(job)
		if err != nil {
			h.logger.Error("❌ Stored parse result is unreadable", "job_id", job.ID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Stored parse result is unreadable",
			})
		}
		response.Result = data
	}

	if job.Status == models.StatusFailed && job.ErrorMessage != nil {
		response.ErrorMessage = job.ErrorMessage
	}

	return c.JSON(response)
}

func decodeParseData(job *models.ParseJob) (*models.ParseData, error) {
	data := &models.ParseData{Enriched: job.Enriched}
	if job.Backend != nil {
		data.Backend = *job.Backend
	}
	if job.Confidence != nil {
		data.Confidence = *job.Confidence
	}
	if job.Record != nil {
		if err := json.Unmarshal([]byte(*job.Record), &data.Record); err != nil {
			return nil, err
		}
	}
	if job.Validation != nil {
		if err := json.Unmarshal([]byte(*job.Validation), &data.Validation); err != nil {
			return nil, err
		}
	}
	return data, nil
}
