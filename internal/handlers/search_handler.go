package handlers

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/cv-parser/internal/models"
	"alfredoptarigan/cv-parser/internal/repositories"
	"alfredoptarigan/cv-parser/internal/services"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

type SearchHandler struct {
	index   services.CandidateIndex
	docRepo repositories.DocumentRepository
	logger  *slog.Logger
}

func NewSearchHandler(index services.CandidateIndex, docRepo repositories.DocumentRepository, logger *slog.Logger) *SearchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchHandler{
		index:   index,
		docRepo: docRepo,
		logger:  logger,
	}
}

// HandleSearch handles GET /candidates/search?q=&section=&limit=
func (h *SearchHandler) HandleSearch(c *fiber.Ctx) error {
	if h.index == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Candidate index is not enabled",
		})
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "q is required",
		})
	}

	limit := c.QueryInt("limit", defaultSearchLimit)
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	results, err := h.index.Search(c.UserContext(), query, strings.ToLower(c.Query("section")), limit)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Candidate search failed",
		})
	}

	filenames := h.originalFilenames(results)

	hits := make([]models.CandidateHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, models.CandidateHit{
			DocumentID: r.DocumentID,
			Filename:   filenames[r.DocumentID],
			Section:    r.Section,
			Name:       r.Name,
			Text:       r.Text,
			Score:      r.Score,
		})
	}

	return c.JSON(models.SearchResponse{Query: query, Hits: hits})
}

// originalFilenames looks up the uploaded names of the hit documents. Hits
// keep working without them when the lookup fails.
func (h *SearchHandler) originalFilenames(results []services.SearchResult) map[string]string {
	names := make(map[string]string)
	if h.docRepo == nil || len(results) == 0 {
		return names
	}

	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, r := range results {
		id, err := uuid.Parse(r.DocumentID)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return names
	}

	docs, err := h.docRepo.FindByIDs(ids)
	if err != nil {
		h.logger.Warn("⚠️ Failed to load documents for search hits", "error", err)
		return names
	}
	for _, doc := range docs {
		names[doc.ID.String()] = doc.OriginalFileName
	}
	return names
}
