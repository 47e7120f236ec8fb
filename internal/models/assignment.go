package models

import (
	"time"

	"github.com/syncmind/syncmind-api/internal/lifecycle"
)

// Assignment is one unit of study work a teacher assigned to a single student.
type Assignment struct {
	ID              uint                      `gorm:"primaryKey" json:"id"`
	TeacherID       uint                      `gorm:"not null;index" json:"teacher_id"`
	StudentID       uint                      `gorm:"not null;index" json:"student_id"`
	Subject         string                    `gorm:"size:128;not null" json:"subject"`
	Subtopic        string                    `gorm:"size:255;not null" json:"subtopic"`
	Kind            lifecycle.Kind            `gorm:"size:32;not null" json:"kind"`
	QuestionCount   *int                      `json:"question_count"`
	PageCount       *int                      `json:"page_count"`
	DueAt           time.Time                 `gorm:"not null;index" json:"due_at"`
	Status          lifecycle.Status          `gorm:"size:32;not null;index" json:"status"`
	RejectionReason lifecycle.RejectionReason `gorm:"size:16;not null;default:''" json:"rejection_reason"`
	CorrectCount    *int                      `json:"correct_count"`
	IncorrectCount  *int                      `json:"incorrect_count"`
	BlankCount      *int                      `json:"blank_count"`
	TeacherNote     string                    `gorm:"type:text" json:"teacher_note"`
	ResourceLink    string                    `gorm:"size:1024" json:"resource_link"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}

// Snapshot exposes the fields the lifecycle engine reasons about.
func (a Assignment) Snapshot() lifecycle.Snapshot {
	return lifecycle.Snapshot{
		Kind:          a.Kind,
		QuestionCount: a.QuestionCount,
		DueAt:         a.DueAt,
		Status:        a.Status,
		Reason:        a.RejectionReason,
	}
}

// Results returns the stored result counts, or nil when none were recorded.
func (a Assignment) Results() *lifecycle.Results {
	if a.CorrectCount == nil || a.IncorrectCount == nil || a.BlankCount == nil {
		return nil
	}
	return &lifecycle.Results{
		Correct:   *a.CorrectCount,
		Incorrect: *a.IncorrectCount,
		Blank:     *a.BlankCount,
	}
}
