package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/syncmind/syncmind-api/internal/lifecycle"
	"github.com/syncmind/syncmind-api/internal/models"
)

// ErrStaleState is returned when a conditional status update matched no row
// because the stored state moved on.
var ErrStaleState = errors.New("assignment state changed concurrently")

// AssignmentFilter narrows assignment listings.
type AssignmentFilter struct {
	TeacherID    *uint
	StudentIDs   []uint
	Kind         lifecycle.Kind
	CreatedAfter *time.Time
}

// AssignmentRepository defines persistence operations for assignments.
type AssignmentRepository interface {
	List(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, error)
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	CreateBatch(ctx context.Context, assignments []models.Assignment) error
	Transition(ctx context.Context, id uint, from, to lifecycle.State, results *lifecycle.Results) error
	ListOverdue(ctx context.Context, now time.Time) ([]models.Assignment, error)
	ExpireByIDs(ctx context.Context, ids []uint, now time.Time) (int64, error)
	Delete(ctx context.Context, id uint, expected lifecycle.State) error
	DeleteByTeacher(ctx context.Context, teacherID uint) (int64, error)
	DeleteByStudent(ctx context.Context, studentID uint) (int64, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) List(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, error) {
	query := r.db.WithContext(ctx).Model(&models.Assignment{})

	if filter.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filter.TeacherID)
	}
	if filter.StudentIDs != nil {
		if len(filter.StudentIDs) == 0 {
			return []models.Assignment{}, nil
		}
		query = query.Where("student_id IN ?", filter.StudentIDs)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}

	var assignments []models.Assignment
	if err := query.Order("due_at ASC").Order("id ASC").Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) CreateBatch(ctx context.Context, assignments []models.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&assignments).Error
}

// Transition writes to only if the row is still in from.
func (r *assignmentRepository) Transition(ctx context.Context, id uint, from, to lifecycle.State, results *lifecycle.Results) error {
	updates := map[string]interface{}{
		"status":           to.Status,
		"rejection_reason": to.Reason,
		"updated_at":       time.Now().UTC(),
	}
	if results != nil {
		updates["correct_count"] = results.Correct
		updates["incorrect_count"] = results.Incorrect
		updates["blank_count"] = results.Blank
	}

	result := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ? AND status = ? AND rejection_reason = ?", id, from.Status, from.Reason).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

// ListOverdue returns active assignments whose due time has been reached.
func (r *assignmentRepository) ListOverdue(ctx context.Context, now time.Time) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).
		Where("status = ? AND due_at <= ?", lifecycle.StatusActive, now).
		Order("id ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

// ExpireByIDs completes the given assignments by deadline, re-checking the
// overdue condition so rows submitted meanwhile are left alone.
func (r *assignmentRepository) ExpireByIDs(ctx context.Context, ids []uint, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id IN ? AND status = ? AND due_at <= ?", ids, lifecycle.StatusActive, now).
		Updates(map[string]interface{}{
			"status":           lifecycle.StatusCompleted,
			"rejection_reason": lifecycle.ReasonDeadline,
			"updated_at":       now,
		})
	return result.RowsAffected, result.Error
}

// Delete removes the assignment only while it is still in the expected
// state, so a concurrent review cannot slip in between the read that decided
// the badge reversal and the delete.
func (r *assignmentRepository) Delete(ctx context.Context, id uint, expected lifecycle.State) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status = ? AND rejection_reason = ?", id, expected.Status, expected.Reason).
		Delete(&models.Assignment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

func (r *assignmentRepository) DeleteByTeacher(ctx context.Context, teacherID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("teacher_id = ?", teacherID).Delete(&models.Assignment{})
	return result.RowsAffected, result.Error
}

func (r *assignmentRepository) DeleteByStudent(ctx context.Context, studentID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("student_id = ?", studentID).Delete(&models.Assignment{})
	return result.RowsAffected, result.Error
}
