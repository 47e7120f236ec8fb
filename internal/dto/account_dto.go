package dto

import (
	"time"

	"github.com/syncmind/syncmind-api/internal/models"
)

// TeacherRegisterRequest creates a teacher account.
type TeacherRegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"required,max=128"`
	LastName  string `json:"last_name" validate:"required,max=128"`
}

// StudentRegisterRequest creates a student account linked to a teacher code.
type StudentRegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	FirstName   string `json:"first_name" validate:"required,max=128"`
	LastName    string `json:"last_name" validate:"required,max=128"`
	TeacherCode string `json:"teacher_code" validate:"required,max=16"`
}

// LoginRequest exchanges credentials for a token.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID                    uint       `json:"id"`
	Email                 string     `json:"email"`
	Role                  string     `json:"role"`
	FirstName             string     `json:"first_name"`
	LastName              string     `json:"last_name"`
	TeacherCode           *string    `json:"teacher_code,omitempty"`
	LastAssignmentCheckAt *time.Time `json:"last_assignment_check_at,omitempty"`
}

// NewUserResponse converts a user model.
func NewUserResponse(model models.User) UserResponse {
	return UserResponse{
		ID:                    model.ID,
		Email:                 model.Email,
		Role:                  model.Role,
		FirstName:             model.FirstName,
		LastName:              model.LastName,
		TeacherCode:           model.TeacherCode,
		LastAssignmentCheckAt: model.LastAssignmentCheckAt,
	}
}

// AuthResponse carries an issued access token.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// StudentResponse is a roster entry.
type StudentResponse struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	TeacherID uint      `json:"teacher_id"`
	Name      string    `json:"name"`
	Grade     *string   `json:"grade"`
	CreatedAt time.Time `json:"created_at"`
}

// NewStudentResponse converts a student model.
func NewStudentResponse(model models.Student) StudentResponse {
	return StudentResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		TeacherID: model.TeacherID,
		Name:      model.Name,
		Grade:     model.Grade,
		CreatedAt: model.CreatedAt,
	}
}

// ClearAllResponse reports how many rows a clear-all removed.
type ClearAllResponse struct {
	Assignments int64 `json:"assignments"`
	TrialExams  int64 `json:"trial_exams"`
	Badges      int64 `json:"badges"`
}
