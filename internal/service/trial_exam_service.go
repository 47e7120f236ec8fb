package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/syncmind/syncmind-api/internal/dto"
	"github.com/syncmind/syncmind-api/internal/models"
	"github.com/syncmind/syncmind-api/internal/repository"
	"github.com/syncmind/syncmind-api/internal/retry"
)

// TrialExamService records and lists practice exam sessions.
type TrialExamService interface {
	Record(ctx context.Context, teacherID uint, req dto.TrialExamCreateRequest) (dto.TrialExamSession, error)
	ListForTeacher(ctx context.Context, teacherID uint) ([]dto.TrialExamSession, error)
	ListForStudent(ctx context.Context, userID uint) ([]dto.TrialExamSession, error)
	DeleteSession(ctx context.Context, teacherID uint, req dto.TrialExamDeleteRequest) (int64, error)
}

type trialExamService struct {
	repos     repository.Repositories
	feed      ChangeFeed
	activity  ActivityRecorder
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	policy    retry.Policy
	logger    zerolog.Logger
}

// NewTrialExamService constructs the trial exam service.
func NewTrialExamService(repos repository.Repositories, feed ChangeFeed, activity ActivityRecorder, validate *validator.Validate, policy retry.Policy, logger zerolog.Logger) TrialExamService {
	return &trialExamService{
		repos:     repos,
		feed:      feed,
		activity:  activity,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		policy:    policy,
		logger:    logger.With().Str("component", "trial_exam_service").Logger(),
	}
}

// Record stores one row per subject with a non-zero count. Sessions made
// only of zero rows are rejected.
func (s *trialExamService) Record(ctx context.Context, teacherID uint, req dto.TrialExamCreateRequest) (dto.TrialExamSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.TrialExamSession{}, err
	}

	examDate, err := examDateOf(req.ExamDate)
	if err != nil {
		return dto.TrialExamSession{}, err
	}

	student, err := s.ownedStudent(ctx, teacherID, req.StudentID)
	if err != nil {
		return dto.TrialExamSession{}, err
	}

	rows := make([]models.TrialExam, 0, len(req.Scores))
	for _, score := range req.Scores {
		if score.Correct == 0 && score.Incorrect == 0 && score.Blank == 0 {
			continue
		}
		subject := strings.TrimSpace(s.sanitizer.Sanitize(score.Subject))
		if subject == "" {
			continue
		}
		rows = append(rows, models.TrialExam{
			StudentID:      student.ID,
			TeacherID:      teacherID,
			ExamDate:       examDate,
			Subject:        subject,
			CorrectCount:   score.Correct,
			IncorrectCount: score.Incorrect,
			BlankCount:     score.Blank,
			NetScore:       roundTwo(models.NetScore(score.Correct, score.Incorrect)),
		})
	}
	if len(rows) == 0 {
		return dto.TrialExamSession{}, ErrEmptyExamSession
	}

	if err := s.repos.TrialExams.CreateBatch(ctx, rows); err != nil {
		return dto.TrialExamSession{}, fmt.Errorf("store trial exam: %w", err)
	}

	s.publish(ctx, "created", teacherID, student.UserID)
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    teacherID,
		ActorRole:  models.RoleTeacher,
		Action:     ActionTrialExamRecorded,
		EntityType: "student",
		EntityID:   uintPtr(student.ID),
		Metadata:   map[string]interface{}{"exam_date": req.ExamDate, "subjects": len(rows)},
	})

	sessions := dto.GroupTrialExams(rows)
	return sessions[0], nil
}

func (s *trialExamService) ListForTeacher(ctx context.Context, teacherID uint) ([]dto.TrialExamSession, error) {
	students, err := retry.Value(ctx, s.policy, func(ctx context.Context) ([]models.Student, error) {
		return s.repos.Students.ListByTeacher(ctx, teacherID)
	})
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(students))
	for _, student := range students {
		ids = append(ids, student.ID)
	}
	return s.list(ctx, ids)
}

func (s *trialExamService) ListForStudent(ctx context.Context, userID uint) ([]dto.TrialExamSession, error) {
	student, err := retry.Value(ctx, s.policy, func(ctx context.Context) (models.Student, error) {
		return s.repos.Students.GetByUserID(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return s.list(ctx, []uint{student.ID})
}

func (s *trialExamService) list(ctx context.Context, studentIDs []uint) ([]dto.TrialExamSession, error) {
	rows, err := retry.Value(ctx, s.policy, func(ctx context.Context) ([]models.TrialExam, error) {
		return s.repos.TrialExams.ListByStudents(ctx, studentIDs)
	})
	if err != nil {
		return nil, err
	}
	return dto.GroupTrialExams(rows), nil
}

// DeleteSession removes all rows of a student on one exam date after the
// teacher confirms their password.
func (s *trialExamService) DeleteSession(ctx context.Context, teacherID uint, req dto.TrialExamDeleteRequest) (int64, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, err
	}
	if err := reauthenticate(ctx, s.repos.Users, teacherID, req.Password); err != nil {
		return 0, err
	}

	examDate, err := examDateOf(req.ExamDate)
	if err != nil {
		return 0, err
	}

	student, err := s.ownedStudent(ctx, teacherID, req.StudentID)
	if err != nil {
		return 0, err
	}

	deleted, err := s.repos.TrialExams.DeleteSession(ctx, student.ID, examDate)
	if err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, ErrExamSessionNotFound
	}

	s.publish(ctx, "deleted", teacherID, student.UserID)
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    teacherID,
		ActorRole:  models.RoleTeacher,
		Action:     ActionTrialExamDeleted,
		EntityType: "student",
		EntityID:   uintPtr(student.ID),
		Metadata:   map[string]interface{}{"exam_date": req.ExamDate, "rows": deleted},
	})

	return deleted, nil
}

func (s *trialExamService) ownedStudent(ctx context.Context, teacherID, studentID uint) (models.Student, error) {
	student, err := s.repos.Students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, err
	}
	if student.TeacherID != teacherID {
		return models.Student{}, ErrStudentNotFound
	}
	return student, nil
}

func (s *trialExamService) publish(ctx context.Context, action string, teacherID, userID uint) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(ctx, dto.ChangeEvent{
		Table:          dto.ChangeTableTrialExams,
		Action:         action,
		TeacherID:      teacherID,
		StudentUserIDs: []uint{userID},
	})
}

func roundTwo(value float64) float64 {
	return math.Round(value*100) / 100
}

func examDateOf(value string) (time.Time, error) {
	parsed, err := dto.ParseExamDate(strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: use %s", ErrInvalidExamDate, dto.ExamDateLayout)
	}
	return parsed, nil
}
