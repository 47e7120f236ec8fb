package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/syncmind/syncmind-api/internal/dto"
	"github.com/syncmind/syncmind-api/internal/models"
	"github.com/syncmind/syncmind-api/internal/repository"
	"github.com/syncmind/syncmind-api/internal/retry"
)

const teacherCodeAttempts = 5

// AccountService manages accounts, the student roster and destructive
// account-level operations.
type AccountService interface {
	RegisterTeacher(ctx context.Context, req dto.TeacherRegisterRequest) (dto.AuthResponse, error)
	RegisterStudent(ctx context.Context, req dto.StudentRegisterRequest) (dto.AuthResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error)
	Profile(ctx context.Context, userID uint) (dto.UserResponse, error)
	ListStudents(ctx context.Context, teacherID uint) ([]dto.StudentResponse, error)
	DeleteStudent(ctx context.Context, teacherID, studentID uint, password string) error
	ClearAll(ctx context.Context, teacherID uint, password string) (dto.ClearAllResponse, error)
}

// TokenConfig controls access token issuance.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

type accountService struct {
	repos     repository.Repositories
	tx        repository.Transactor
	feed      ChangeFeed
	activity  ActivityRecorder
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	tokens    TokenConfig
	policy    retry.Policy
	logger    zerolog.Logger
	hashCost  int
	now       func() time.Time
}

// NewAccountService constructs the account service.
func NewAccountService(repos repository.Repositories, tx repository.Transactor, feed ChangeFeed, activity ActivityRecorder, validate *validator.Validate, tokens TokenConfig, policy retry.Policy, logger zerolog.Logger) AccountService {
	if tokens.TTL <= 0 {
		tokens.TTL = 24 * time.Hour
	}
	return &accountService{
		repos:     repos,
		tx:        tx,
		feed:      feed,
		activity:  activity,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		tokens:    tokens,
		policy:    policy,
		logger:    logger.With().Str("component", "account_service").Logger(),
		hashCost:  bcrypt.DefaultCost,
		now:       time.Now,
	}
}

func (s *accountService) RegisterTeacher(ctx context.Context, req dto.TeacherRegisterRequest) (dto.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AuthResponse{}, err
	}
	if err := s.ensureEmailFree(ctx, req.Email); err != nil {
		return dto.AuthResponse{}, err
	}

	code, err := s.generateTeacherCode(ctx)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return dto.AuthResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Email:        normalizeEmail(req.Email),
		PasswordHash: string(hash),
		Role:         models.RoleTeacher,
		FirstName:    s.clean(req.FirstName),
		LastName:     s.clean(req.LastName),
		TeacherCode:  &code,
	}
	if err := s.repos.Users.Create(ctx, &user); err != nil {
		return dto.AuthResponse{}, fmt.Errorf("create teacher: %w", err)
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    user.ID,
		ActorRole:  models.RoleTeacher,
		Action:     ActionTeacherRegistered,
		EntityType: "user",
		EntityID:   uintPtr(user.ID),
	})
	s.logger.Info().Uint("user_id", user.ID).Msg("teacher registered")

	return s.issue(user)
}

// RegisterStudent creates the account and then links it to the teacher. If
// the link fails the account is deleted again so no orphan remains.
func (s *accountService) RegisterStudent(ctx context.Context, req dto.StudentRegisterRequest) (dto.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AuthResponse{}, err
	}

	teacher, err := s.repos.Users.GetByTeacherCode(ctx, req.TeacherCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AuthResponse{}, ErrInvalidTeacherCode
		}
		return dto.AuthResponse{}, err
	}
	if err := s.ensureEmailFree(ctx, req.Email); err != nil {
		return dto.AuthResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return dto.AuthResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Email:        normalizeEmail(req.Email),
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
		FirstName:    s.clean(req.FirstName),
		LastName:     s.clean(req.LastName),
	}
	if err := s.repos.Users.Create(ctx, &user); err != nil {
		return dto.AuthResponse{}, fmt.Errorf("create student account: %w", err)
	}

	student := models.Student{
		UserID:    user.ID,
		TeacherID: teacher.ID,
		Name:      user.FullName(),
	}
	if err := s.repos.Students.Create(ctx, &student); err != nil {
		if delErr := s.repos.Users.Delete(ctx, user.ID); delErr != nil {
			s.logger.Error().Err(delErr).Uint("user_id", user.ID).Msg("failed to remove account after student link failure")
		}
		return dto.AuthResponse{}, fmt.Errorf("link student to teacher: %w", err)
	}

	s.publishStudents(ctx, teacher.ID, "created", []uint{student.ID}, []uint{user.ID})
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    user.ID,
		ActorRole:  models.RoleStudent,
		Action:     ActionStudentRegistered,
		EntityType: "student",
		EntityID:   uintPtr(student.ID),
		Metadata:   map[string]interface{}{"teacher_id": teacher.ID},
	})
	s.logger.Info().Uint("user_id", user.ID).Uint("teacher_id", teacher.ID).Msg("student registered")

	return s.issue(user)
}

func (s *accountService) Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AuthResponse{}, err
	}

	user, err := s.repos.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AuthResponse{}, ErrInvalidCredentials
		}
		return dto.AuthResponse{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return dto.AuthResponse{}, ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *accountService) Profile(ctx context.Context, userID uint) (dto.UserResponse, error) {
	user, err := retry.Value(ctx, s.policy, func(ctx context.Context) (models.User, error) {
		return s.repos.Users.GetByID(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

func (s *accountService) ListStudents(ctx context.Context, teacherID uint) ([]dto.StudentResponse, error) {
	students, err := retry.Value(ctx, s.policy, func(ctx context.Context) ([]models.Student, error) {
		return s.repos.Students.ListByTeacher(ctx, teacherID)
	})
	if err != nil {
		return nil, err
	}

	responses := make([]dto.StudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, dto.NewStudentResponse(student))
	}
	return responses, nil
}

// DeleteStudent removes a student with all of its assignments, exams and
// badges, and its account, in one transaction.
func (s *accountService) DeleteStudent(ctx context.Context, teacherID, studentID uint, password string) error {
	if err := reauthenticate(ctx, s.repos.Users, teacherID, password); err != nil {
		return err
	}

	student, err := s.repos.Students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}
	if student.TeacherID != teacherID {
		return ErrStudentNotFound
	}

	err = s.tx.WithinTransaction(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Assignments.DeleteByStudent(ctx, student.ID); err != nil {
			return fmt.Errorf("delete assignments: %w", err)
		}
		if _, err := repos.TrialExams.DeleteByStudents(ctx, []uint{student.ID}); err != nil {
			return fmt.Errorf("delete trial exams: %w", err)
		}
		if _, err := repos.Badges.DeleteByUsers(ctx, []uint{student.UserID}); err != nil {
			return fmt.Errorf("delete badges: %w", err)
		}
		if err := repos.Students.Delete(ctx, student.ID); err != nil {
			return fmt.Errorf("delete student: %w", err)
		}
		if err := repos.Users.Delete(ctx, student.UserID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("delete account: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Uint("student_id", student.ID).Msg("student deletion rolled back")
		return err
	}

	s.publishStudents(ctx, teacherID, "deleted", []uint{student.ID}, nil)
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    teacherID,
		ActorRole:  models.RoleTeacher,
		Action:     ActionStudentDeleted,
		EntityType: "student",
		EntityID:   uintPtr(student.ID),
		Metadata:   map[string]interface{}{"user_id": student.UserID},
	})

	return nil
}

// ClearAll deletes every assignment of the teacher together with the trial
// exams and badges of the teacher's students.
func (s *accountService) ClearAll(ctx context.Context, teacherID uint, password string) (dto.ClearAllResponse, error) {
	if err := reauthenticate(ctx, s.repos.Users, teacherID, password); err != nil {
		return dto.ClearAllResponse{}, err
	}

	students, err := s.repos.Students.ListByTeacher(ctx, teacherID)
	if err != nil {
		return dto.ClearAllResponse{}, err
	}
	studentIDs := make([]uint, 0, len(students))
	userIDs := make([]uint, 0, len(students))
	for _, student := range students {
		studentIDs = append(studentIDs, student.ID)
		userIDs = append(userIDs, student.UserID)
	}

	var result dto.ClearAllResponse
	err = s.tx.WithinTransaction(ctx, func(repos repository.Repositories) error {
		var err error
		if result.Assignments, err = repos.Assignments.DeleteByTeacher(ctx, teacherID); err != nil {
			return fmt.Errorf("delete assignments: %w", err)
		}
		if result.TrialExams, err = repos.TrialExams.DeleteByStudents(ctx, studentIDs); err != nil {
			return fmt.Errorf("delete trial exams: %w", err)
		}
		if result.Badges, err = repos.Badges.DeleteByTeacher(ctx, teacherID); err != nil {
			return fmt.Errorf("delete badges: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Uint("teacher_id", teacherID).Msg("clear all rolled back")
		return dto.ClearAllResponse{}, err
	}

	if s.feed != nil {
		for _, table := range []string{dto.ChangeTableAssignments, dto.ChangeTableTrialExams, dto.ChangeTableBadges} {
			s.feed.Publish(ctx, dto.ChangeEvent{Table: table, Action: "cleared", TeacherID: teacherID, StudentUserIDs: userIDs})
		}
	}
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    teacherID,
		ActorRole:  models.RoleTeacher,
		Action:     ActionDataCleared,
		EntityType: "teacher",
		EntityID:   uintPtr(teacherID),
		Metadata: map[string]interface{}{
			"assignments": result.Assignments,
			"trial_exams": result.TrialExams,
			"badges":      result.Badges,
		},
	})
	s.logger.Warn().Uint("teacher_id", teacherID).Int64("assignments", result.Assignments).Msg("teacher data cleared")

	return result, nil
}

func (s *accountService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.repos.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrEmailTaken
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return err
	}
}

func (s *accountService) generateTeacherCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < teacherCodeAttempts; attempt++ {
		code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
		_, err := s.repos.Users.GetByTeacherCode(ctx, code)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("could not allocate a unique teacher code")
}

func (s *accountService) issue(user models.User) (dto.AuthResponse, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.tokens.TTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(user.ID), 10),
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(s.tokens.Secret))
	if err != nil {
		return dto.AuthResponse{}, fmt.Errorf("sign token: %w", err)
	}

	return dto.AuthResponse{Token: signed, ExpiresAt: expiresAt, User: dto.NewUserResponse(user)}, nil
}

func (s *accountService) clean(value string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(value))
}

func (s *accountService) publishStudents(ctx context.Context, teacherID uint, action string, ids, userIDs []uint) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(ctx, dto.ChangeEvent{
		Table:          dto.ChangeTableStudents,
		Action:         action,
		EntityIDs:      ids,
		TeacherID:      teacherID,
		StudentUserIDs: userIDs,
	})
}

// reauthenticate confirms the caller's password before destructive operations.
func reauthenticate(ctx context.Context, users repository.UserRepository, userID uint, password string) error {
	if strings.TrimSpace(password) == "" {
		return ErrReauthenticationFailed
	}
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReauthenticationFailed
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return ErrReauthenticationFailed
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
