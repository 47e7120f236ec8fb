package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/syncmind/syncmind-api/internal/badge"
	"github.com/syncmind/syncmind-api/internal/dto"
	"github.com/syncmind/syncmind-api/internal/models"
	"github.com/syncmind/syncmind-api/internal/repository"
	"github.com/syncmind/syncmind-api/internal/retry"
)

// BadgeService exposes the badge ledger to teachers and students.
type BadgeService interface {
	Adjust(ctx context.Context, teacherID, studentID uint, direction badge.Direction) (dto.BadgeAdjustResponse, error)
	ListForTeacher(ctx context.Context, teacherID uint) ([]dto.BadgeSummary, error)
	ListForStudent(ctx context.Context, userID uint) ([]dto.BadgeSummary, error)
}

type badgeService struct {
	repos    repository.Repositories
	tx       repository.Transactor
	gate     *LedgerGate
	feed     ChangeFeed
	activity ActivityRecorder
	policy   retry.Policy
	logger   zerolog.Logger
}

// NewBadgeService constructs the badge service.
func NewBadgeService(repos repository.Repositories, tx repository.Transactor, gate *LedgerGate, feed ChangeFeed, activity ActivityRecorder, policy retry.Policy, logger zerolog.Logger) BadgeService {
	return &badgeService{
		repos:    repos,
		tx:       tx,
		gate:     gate,
		feed:     feed,
		activity: activity,
		policy:   policy,
		logger:   logger.With().Str("component", "badge_service").Logger(),
	}
}

func (s *badgeService) Adjust(ctx context.Context, teacherID, studentID uint, direction badge.Direction) (dto.BadgeAdjustResponse, error) {
	if direction != badge.DirectionAward && direction != badge.DirectionReverse {
		return dto.BadgeAdjustResponse{}, badge.ErrInvalidDirection
	}

	student, err := s.repos.Students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.BadgeAdjustResponse{}, ErrStudentNotFound
		}
		return dto.BadgeAdjustResponse{}, err
	}
	if student.TeacherID != teacherID {
		return dto.BadgeAdjustResponse{}, ErrStudentNotFound
	}

	var plan badge.Plan
	err = s.gate.Guard(ctx, student.UserID, teacherID, func() error {
		return s.tx.WithinTransaction(ctx, func(repos repository.Repositories) error {
			var err error
			plan, err = s.gate.Apply(ctx, repos.Badges, student.UserID, teacherID, direction)
			return err
		})
	})
	if err != nil {
		s.logger.Error().Err(err).Uint("user_id", student.UserID).Uint("teacher_id", teacherID).Str("direction", string(direction)).Msg("badge adjustment failed")
		return dto.BadgeAdjustResponse{}, err
	}

	if !plan.Empty() {
		if s.feed != nil {
			s.feed.Publish(ctx, dto.ChangeEvent{
				Table:          dto.ChangeTableBadges,
				Action:         "updated",
				TeacherID:      teacherID,
				StudentUserIDs: []uint{student.UserID},
			})
		}
		recordActivity(ctx, s.activity, s.logger, ActivityEntry{
			ActorID:    teacherID,
			ActorRole:  models.RoleTeacher,
			Action:     ActionBadgeAdjusted,
			EntityType: "student",
			EntityID:   uintPtr(student.ID),
			Metadata: map[string]interface{}{
				"direction": direction,
				"badges":    plan.After.String(),
			},
		})
	}

	return dto.BadgeAdjustResponse{
		UserID:    student.UserID,
		TeacherID: teacherID,
		Direction: direction,
		Before:    plan.Before,
		After:     plan.After,
		Awarded:   plan.Awarded,
	}, nil
}

func (s *badgeService) ListForTeacher(ctx context.Context, teacherID uint) ([]dto.BadgeSummary, error) {
	rows, err := retry.Value(ctx, s.policy, func(ctx context.Context) ([]models.Badge, error) {
		return s.repos.Badges.ListByTeacher(ctx, teacherID)
	})
	if err != nil {
		return nil, err
	}
	return dto.SummariseBadges(rows), nil
}

func (s *badgeService) ListForStudent(ctx context.Context, userID uint) ([]dto.BadgeSummary, error) {
	rows, err := retry.Value(ctx, s.policy, func(ctx context.Context) ([]models.Badge, error) {
		return s.repos.Badges.ListByUser(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return dto.SummariseBadges(rows), nil
}
