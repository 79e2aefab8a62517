package repositories

import (
	"context"
	"errors"
	"fmt"

	"envpermit/internal/models"

	"gorm.io/gorm"
)

var ErrApplicationNotFound = errors.New("application not found")

// ApplicationRepository persists permit applications and their attached
// fee records.
type ApplicationRepository interface {
	Create(ctx context.Context, app *models.PermitApplication) error
	GetByID(ctx context.Context, id uint) (*models.PermitApplication, error)
	Update(ctx context.Context, app *models.PermitApplication) error
	ListByApplicant(ctx context.Context, applicantID uint, offset, limit int) ([]*models.PermitApplication, int64, error)

	AttachFeeRecord(ctx context.Context, record *models.FeeRecord) error
	FeeRecords(ctx context.Context, applicationID uint) ([]*models.FeeRecord, error)
	LatestFeeRecord(ctx context.Context, applicationID uint) (*models.FeeRecord, error)
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, app *models.PermitApplication) error {
	if err := r.db.WithContext(ctx).Create(app).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id uint) (*models.PermitApplication, error) {
	var app models.PermitApplication
	if err := r.db.WithContext(ctx).First(&app, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return &app, nil
}

func (r *applicationRepository) Update(ctx context.Context, app *models.PermitApplication) error {
	if err := r.db.WithContext(ctx).Save(app).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return nil
}

func (r *applicationRepository) ListByApplicant(ctx context.Context, applicantID uint, offset, limit int) ([]*models.PermitApplication, int64, error) {
	var apps []*models.PermitApplication
	var total int64

	query := r.db.WithContext(ctx).Model(&models.PermitApplication{}).
		Where("applicant_id = ?", applicantID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&apps).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return apps, total, nil
}

func (r *applicationRepository) AttachFeeRecord(ctx context.Context, record *models.FeeRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return nil
}

func (r *applicationRepository) FeeRecords(ctx context.Context, applicationID uint) ([]*models.FeeRecord, error) {
	var records []*models.FeeRecord
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return records, nil
}

func (r *applicationRepository) LatestFeeRecord(ctx context.Context, applicationID uint) (*models.FeeRecord, error) {
	var record models.FeeRecord
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return &record, nil
}
