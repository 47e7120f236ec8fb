package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/syncmind/syncmind-api/internal/badge"
	"github.com/syncmind/syncmind-api/internal/models"
)

// BadgeRepository persists badge records. It satisfies badge.Store.
type BadgeRepository interface {
	badge.Store
	ListByUser(ctx context.Context, userID uint) ([]models.Badge, error)
	ListByTeacher(ctx context.Context, teacherID uint) ([]models.Badge, error)
	DeleteByUsers(ctx context.Context, userIDs []uint) (int64, error)
	DeleteByTeacher(ctx context.Context, teacherID uint) (int64, error)
}

type badgeRepository struct {
	db *gorm.DB
}

// NewBadgeRepository constructs a badge repository.
func NewBadgeRepository(db *gorm.DB) BadgeRepository {
	return &badgeRepository{db: db}
}

func (r *badgeRepository) ListForPair(ctx context.Context, userID, teacherID uint) ([]badge.Record, error) {
	var rows []models.Badge
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND teacher_id = ?", userID, teacherID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]badge.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, badge.Record{ID: row.ID, Tier: row.Tier})
	}
	return records, nil
}

func (r *badgeRepository) DeleteByIDs(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Badge{}).Error
}

func (r *badgeRepository) Insert(ctx context.Context, userID, teacherID uint, tiers []badge.Tier) error {
	if len(tiers) == 0 {
		return nil
	}

	rows := make([]models.Badge, 0, len(tiers))
	for _, tier := range tiers {
		rows = append(rows, models.Badge{UserID: userID, TeacherID: teacherID, Tier: tier})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *badgeRepository) ListByUser(ctx context.Context, userID uint) ([]models.Badge, error) {
	var rows []models.Badge
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *badgeRepository) ListByTeacher(ctx context.Context, teacherID uint) ([]models.Badge, error) {
	var rows []models.Badge
	if err := r.db.WithContext(ctx).Where("teacher_id = ?", teacherID).Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *badgeRepository) DeleteByUsers(ctx context.Context, userIDs []uint) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Delete(&models.Badge{})
	return result.RowsAffected, result.Error
}

func (r *badgeRepository) DeleteByTeacher(ctx context.Context, teacherID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("teacher_id = ?", teacherID).Delete(&models.Badge{})
	return result.RowsAffected, result.Error
}
