package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/syncmind/syncmind-api/internal/dto"
	"github.com/syncmind/syncmind-api/internal/lifecycle"
	"github.com/syncmind/syncmind-api/internal/models"
	"github.com/syncmind/syncmind-api/internal/repository"
)

const testSecret = "test-secret"

func (f *fixture) accounts() *accountService {
	svc := NewAccountService(f.repos, f.tx, f.feed, f.activity, f.validate, TokenConfig{Secret: testSecret, TTL: time.Hour}, f.policy, f.logger).(*accountService)
	svc.hashCost = bcrypt.MinCost
	return svc
}

type failingStudents struct {
	repository.StudentRepository
}

func (failingStudents) Create(context.Context, *models.Student) error {
	return errors.New("link failed")
}

func TestRegisterTeacherAndStudentThenLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.accounts()

	teacher, err := svc.RegisterTeacher(ctx, dto.TeacherRegisterRequest{
		Email:     "Teacher@Example.com",
		Password:  "long-enough-pass",
		FirstName: "Zeynep",
		LastName:  "Hoca",
	})
	require.NoError(t, err)
	require.Equal(t, "teacher@example.com", teacher.User.Email)
	require.NotNil(t, teacher.User.TeacherCode)
	require.Len(t, *teacher.User.TeacherCode, 8)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(teacher.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleTeacher, claims["role"])

	student, err := svc.RegisterStudent(ctx, dto.StudentRegisterRequest{
		Email:       "student@example.com",
		Password:    "long-enough-pass",
		FirstName:   "Mehmet",
		LastName:    "Öğrenci",
		TeacherCode: *teacher.User.TeacherCode,
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleStudent, student.User.Role)

	roster, err := svc.ListStudents(ctx, teacher.User.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	require.Equal(t, student.User.ID, roster[0].UserID)
	require.Equal(t, "Mehmet Öğrenci", roster[0].Name)

	_, err = svc.RegisterStudent(ctx, dto.StudentRegisterRequest{
		Email:       "student@example.com",
		Password:    "long-enough-pass",
		FirstName:   "Kopya",
		LastName:    "Hesap",
		TeacherCode: *teacher.User.TeacherCode,
	})
	require.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.RegisterStudent(ctx, dto.StudentRegisterRequest{
		Email:       "other@example.com",
		Password:    "long-enough-pass",
		FirstName:   "Yanlış",
		LastName:    "Kod",
		TeacherCode: "NOPE0000",
	})
	require.ErrorIs(t, err, ErrInvalidTeacherCode)

	login, err := svc.Login(ctx, dto.LoginRequest{Email: "student@example.com", Password: "long-enough-pass"})
	require.NoError(t, err)
	require.NotEmpty(t, login.Token)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "student@example.com", Password: "wrong-password"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterStudentRemovesAccountWhenLinkFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.seedTeacher(t, "teacher@example.com")

	svc := f.accounts()
	svc.repos.Students = failingStudents{StudentRepository: f.repos.Students}

	_, err := svc.RegisterStudent(ctx, dto.StudentRegisterRequest{
		Email:       "orphan@example.com",
		Password:    "long-enough-pass",
		FirstName:   "Yarım",
		LastName:    "Kayıt",
		TeacherCode: *teacher.TeacherCode,
	})
	require.Error(t, err)

	_, err = f.repos.Users.GetByEmail(ctx, "orphan@example.com")
	require.Error(t, err)
}

func TestDeleteStudentRequiresPasswordAndCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.seedTeacher(t, "teacher@example.com")
	studentUser, student := f.seedStudent(t, teacher.ID, "student@example.com")
	assignments := f.assignments(nil)

	created, err := assignments.Create(ctx, Actor{ID: teacher.ID, Role: models.RoleTeacher}, dto.AssignmentCreateRequest{
		StudentIDs: []uint{student.ID},
		Subject:    "Matematik",
		Subtopic:   "Olasılık",
		Kind:       string(lifecycle.KindTopicReview),
		DueAt:      time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = assignments.Submit(ctx, studentUser.ID, created[0].ID)
	require.NoError(t, err)
	_, err = assignments.Review(ctx, teacher.ID, created[0].ID, lifecycle.EventApprove, nil)
	require.NoError(t, err)

	svc := f.accounts()
	require.ErrorIs(t, svc.DeleteStudent(ctx, teacher.ID, student.ID, "wrong"), ErrReauthenticationFailed)
	require.NoError(t, svc.DeleteStudent(ctx, teacher.ID, student.ID, testPassword))

	var count int64
	require.NoError(t, f.db.Model(&models.Assignment{}).Where("student_id = ?", student.ID).Count(&count).Error)
	require.Zero(t, count)
	require.Zero(t, f.badgeCounts(t, studentUser.ID, teacher.ID).Total())
	_, err = f.repos.Users.GetByID(ctx, studentUser.ID)
	require.Error(t, err)
	require.ErrorIs(t, svc.DeleteStudent(ctx, teacher.ID, student.ID, testPassword), ErrStudentNotFound)
}

func TestClearAllRemovesTeacherData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.seedTeacher(t, "teacher@example.com")
	studentUser, student := f.seedStudent(t, teacher.ID, "student@example.com")
	assignments := f.assignments(nil)

	created, err := assignments.Create(ctx, Actor{ID: teacher.ID, Role: models.RoleTeacher}, dto.AssignmentCreateRequest{
		StudentIDs: []uint{student.ID},
		Subject:    "Fizik",
		Subtopic:   "Dalgalar",
		Kind:       string(lifecycle.KindTopicReview),
		DueAt:      time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = assignments.Submit(ctx, studentUser.ID, created[0].ID)
	require.NoError(t, err)
	_, err = assignments.Review(ctx, teacher.ID, created[0].ID, lifecycle.EventApprove, nil)
	require.NoError(t, err)

	exams := NewTrialExamService(f.repos, f.feed, f.activity, f.validate, f.policy, f.logger)
	_, err = exams.Record(ctx, teacher.ID, dto.TrialExamCreateRequest{
		StudentID: student.ID,
		ExamDate:  "2025-03-01",
		Scores:    []dto.TrialExamScore{{Subject: "Türkçe", Correct: 30, Incorrect: 6, Blank: 4}},
	})
	require.NoError(t, err)

	svc := f.accounts()
	_, err = svc.ClearAll(ctx, teacher.ID, "")
	require.ErrorIs(t, err, ErrReauthenticationFailed)

	cleared, err := svc.ClearAll(ctx, teacher.ID, testPassword)
	require.NoError(t, err)
	require.Equal(t, dto.ClearAllResponse{Assignments: 1, TrialExams: 1, Badges: 1}, cleared)

	roster, err := svc.ListStudents(ctx, teacher.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
}
