package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/syncmind/syncmind-api/internal/models"
)

// TrialExamRepository stores practice exam rows.
type TrialExamRepository interface {
	CreateBatch(ctx context.Context, rows []models.TrialExam) error
	ListByStudents(ctx context.Context, studentIDs []uint) ([]models.TrialExam, error)
	DeleteSession(ctx context.Context, studentID uint, examDate time.Time) (int64, error)
	DeleteByStudents(ctx context.Context, studentIDs []uint) (int64, error)
}

type trialExamRepository struct {
	db *gorm.DB
}

// NewTrialExamRepository constructs a trial exam repository.
func NewTrialExamRepository(db *gorm.DB) TrialExamRepository {
	return &trialExamRepository{db: db}
}

func (r *trialExamRepository) CreateBatch(ctx context.Context, rows []models.TrialExam) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *trialExamRepository) ListByStudents(ctx context.Context, studentIDs []uint) ([]models.TrialExam, error) {
	if len(studentIDs) == 0 {
		return []models.TrialExam{}, nil
	}

	var rows []models.TrialExam
	err := r.db.WithContext(ctx).
		Where("student_id IN ?", studentIDs).
		Order("exam_date DESC").
		Order("subject ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *trialExamRepository) DeleteSession(ctx context.Context, studentID uint, examDate time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("student_id = ? AND exam_date = ?", studentID, examDate).
		Delete(&models.TrialExam{})
	return result.RowsAffected, result.Error
}

func (r *trialExamRepository) DeleteByStudents(ctx context.Context, studentIDs []uint) (int64, error) {
	if len(studentIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("student_id IN ?", studentIDs).Delete(&models.TrialExam{})
	return result.RowsAffected, result.Error
}
