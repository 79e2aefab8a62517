package repositories

import (
	"context"
	"errors"
	"fmt"

	"envpermit/internal/models"
	"envpermit/internal/repositories/cache"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrRateNotFound signals that no official rate row matches the
// classification. Callers fall back to estimation; it is not a user
// error.
var ErrRateNotFound = errors.New("rate entry not found")

// RateScheduleRepository is the read path into the official rate table.
// The fee resolver only reads; upserts are reserved for administration.
type RateScheduleRepository interface {
	Find(ctx context.Context, activityType string, level models.ActivityLevel, permitType, prescribedActivityID string) (*models.RateEntry, error)
	List(ctx context.Context, offset, limit int) ([]*models.RateEntry, int64, error)
	Upsert(ctx context.Context, entry *models.RateEntry) error
}

type rateScheduleRepository struct {
	db    *gorm.DB
	cache *cache.CacheService
}

func NewRateScheduleRepository(db *gorm.DB, cacheService *cache.CacheService) RateScheduleRepository {
	return &rateScheduleRepository{db: db, cache: cacheService}
}

func (r *rateScheduleRepository) Find(ctx context.Context, activityType string, level models.ActivityLevel, permitType, prescribedActivityID string) (*models.RateEntry, error) {
	if r.cache != nil {
		key := r.cache.RateEntryKey(activityType, level, permitType, prescribedActivityID)
		if entry, found, _ := r.cache.GetRateEntry(ctx, key); found {
			return entry, nil
		}
	}

	var entry models.RateEntry
	err := r.db.WithContext(ctx).
		Where("activity_type = ? AND activity_level = ? AND permit_type = ? AND prescribed_activity_id = ?",
			activityType, level, permitType, prescribedActivityID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRateNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}

	if r.cache != nil {
		_ = r.cache.CacheRateEntry(ctx, &entry)
	}
	return &entry, nil
}

func (r *rateScheduleRepository) List(ctx context.Context, offset, limit int) ([]*models.RateEntry, int64, error) {
	var entries []*models.RateEntry
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.RateEntry{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	err := r.db.WithContext(ctx).
		Order("activity_type, activity_level, permit_type").
		Offset(offset).Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return entries, total, nil
}

func (r *rateScheduleRepository) Upsert(ctx context.Context, entry *models.RateEntry) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "activity_type"},
			{Name: "activity_level"},
			{Name: "permit_type"},
			{Name: "prescribed_activity_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"admin_fee", "technical_fee", "processing_days", "updated_at"}),
	}).Create(entry).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}

	if r.cache != nil {
		key := r.cache.RateEntryKey(entry.ActivityType, entry.ActivityLevel, entry.PermitType, entry.PrescribedActivityID)
		_ = r.cache.Delete(ctx, key)
	}
	return nil
}
