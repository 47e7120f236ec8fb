package models

import (
	"strings"
	"time"
)

const (
	// RoleTeacher identifies accounts that assign and review work.
	RoleTeacher = "teacher"
	// RoleStudent identifies accounts that receive assignments.
	RoleStudent = "student"
)

// User is a credentialed account together with its profile fields.
type User struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	Email                 string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash          string     `gorm:"size:255;not null" json:"-"`
	Role                  string     `gorm:"size:16;not null" json:"role"`
	FirstName             string     `gorm:"size:128" json:"first_name"`
	LastName              string     `gorm:"size:128" json:"last_name"`
	TeacherCode           *string    `gorm:"size:16;uniqueIndex" json:"teacher_code,omitempty"`
	LastAssignmentCheckAt *time.Time `json:"last_assignment_check_at"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// FullName joins first and last name, skipping empty parts.
func (u User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}
