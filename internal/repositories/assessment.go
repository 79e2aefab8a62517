package repositories

import (
	"context"
	"errors"
	"fmt"

	"envpermit/internal/models"

	"gorm.io/gorm"
)

var (
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrAssessmentExists   = errors.New("assessment already exists for application")

	// ErrVersionConflict means another writer committed first. The stage
	// engine maps this to an invalid-transition failure for the caller.
	ErrVersionConflict = errors.New("assessment version conflict")
)

// AssessmentRepository persists assessment records. UpdateWithVersion is
// the only write path for existing records; it enforces the optimistic
// version check that serialises concurrent stage decisions.
type AssessmentRepository interface {
	Create(ctx context.Context, assessment *models.ApplicationAssessment) error
	GetByID(ctx context.Context, id uint) (*models.ApplicationAssessment, error)
	GetByApplicationID(ctx context.Context, applicationID uint) (*models.ApplicationAssessment, error)
	UpdateWithVersion(ctx context.Context, assessment *models.ApplicationAssessment) error
	ListByStage(ctx context.Context, stage models.Stage, offset, limit int) ([]*models.ApplicationAssessment, int64, error)
}

type assessmentRepository struct {
	db *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) AssessmentRepository {
	return &assessmentRepository{db: db}
}

func (r *assessmentRepository) Create(ctx context.Context, assessment *models.ApplicationAssessment) error {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ApplicationAssessment{}).
		Where("application_id = ?", assessment.ApplicationID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	if count > 0 {
		return ErrAssessmentExists
	}

	if err := r.db.WithContext(ctx).Create(assessment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAssessmentExists
		}
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return nil
}

func (r *assessmentRepository) GetByID(ctx context.Context, id uint) (*models.ApplicationAssessment, error) {
	var assessment models.ApplicationAssessment
	if err := r.db.WithContext(ctx).First(&assessment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return &assessment, nil
}

func (r *assessmentRepository) GetByApplicationID(ctx context.Context, applicationID uint) (*models.ApplicationAssessment, error) {
	var assessment models.ApplicationAssessment
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		First(&assessment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return &assessment, nil
}

// UpdateWithVersion commits the assessment only if no other writer has
// bumped the version since it was read. On success the in-memory
// version is advanced to match the stored row.
func (r *assessmentRepository) UpdateWithVersion(ctx context.Context, assessment *models.ApplicationAssessment) error {
	currentVersion := assessment.Version
	result := r.db.WithContext(ctx).Model(&models.ApplicationAssessment{}).
		Where("id = ? AND version = ?", assessment.ID, currentVersion).
		Updates(map[string]interface{}{
			"current_stage":  assessment.CurrentStage,
			"overall_status": assessment.OverallStatus,
			"stage_records":  assessment.StageRecords,
			"version":        currentVersion + 1,
		})
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	assessment.Version = currentVersion + 1
	return nil
}

func (r *assessmentRepository) ListByStage(ctx context.Context, stage models.Stage, offset, limit int) ([]*models.ApplicationAssessment, int64, error) {
	var assessments []*models.ApplicationAssessment
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ApplicationAssessment{}).
		Where("current_stage = ? AND overall_status NOT IN ?", stage,
			[]string{models.OverallApproved, models.OverallRejected, models.OverallFailed})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	if err := query.Order("updated_at").Offset(offset).Limit(limit).Find(&assessments).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return assessments, total, nil
}
