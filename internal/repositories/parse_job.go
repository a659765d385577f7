package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/cv-parser/internal/models"
)

type ParseJobRepository interface {
	Create(job *models.ParseJob) error
	FindByID(id uuid.UUID) (*models.ParseJob, error)
	Claim(id uuid.UUID) (bool, error)
	UpdateResult(id uuid.UUID, result *ParseJobResult) error
	UpdateError(id uuid.UUID, errorMsg string) error
	FindPendingJobs(limit int) ([]models.ParseJob, error)
}

// ParseJobResult is what a completed parse writes back. Record and
// Validation are JSON documents.
type ParseJobResult struct {
	Backend    string
	Confidence float64
	Enriched   bool
	Record     string
	Validation string
}

type parseJobRepository struct {
	db *gorm.DB
}

func NewParseJobRepository(db *gorm.DB) ParseJobRepository {
	return &parseJobRepository{db: db}
}

func (r *parseJobRepository) Create(job *models.ParseJob) error {
	if err := r.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to create parse job: %w", err)
	}
	return nil
}

func (r *parseJobRepository) FindByID(id uuid.UUID) (*models.ParseJob, error) {
	var job models.ParseJob
	if err := r.db.Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("parse job %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find parse job: %w", err)
	}
	return &job, nil
}

// Claim moves a queued job to processing. It reports false when another
// worker got there first.
func (r *parseJobRepository) Claim(id uuid.UUID) (bool, error) {
	result := r.db.Model(&models.ParseJob{}).
		Where("id = ? AND status = ?", id, models.StatusQueued).
		Updates(map[string]interface{}{
			"status":     models.StatusProcessing,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, fmt.Errorf("failed to claim parse job: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

func (r *parseJobRepository) UpdateResult(id uuid.UUID, data *ParseJobResult) error {
	result := r.db.Model(&models.ParseJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.StatusCompleted,
			"backend":       data.Backend,
			"confidence":    data.Confidence,
			"enriched":      data.Enriched,
			"record":        data.Record,
			"validation":    data.Validation,
			"error_message": nil,
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update result: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("parse job %s: %w", id, ErrNotFound)
	}

	return nil
}

func (r *parseJobRepository) UpdateError(id uuid.UUID, errorMsg string) error {
	result := r.db.Model(&models.ParseJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.StatusFailed,
			"error_message": errorMsg,
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update error: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("parse job %s: %w", id, ErrNotFound)
	}

	return nil
}

func (r *parseJobRepository) FindPendingJobs(limit int) ([]models.ParseJob, error) {
	var jobs []models.ParseJob
	err := r.db.
		Where("status = ?", models.StatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find pending jobs: %w", err)
	}

	return jobs, nil
}
