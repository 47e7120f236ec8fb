package dto

import (
	"time"

	"github.com/syncmind/syncmind-api/internal/badge"
)

// SubjectProgress counts assignment outcomes of one subject.
type SubjectProgress struct {
	Subject    string `json:"subject"`
	Approved   int    `json:"approved"`
	Rejected   int    `json:"rejected"`
	Incomplete int    `json:"incomplete"`
}

// QuestionAnalysis aggregates approved question practice of one subtopic.
type QuestionAnalysis struct {
	Subject     string  `json:"subject"`
	Subtopic    string  `json:"subtopic"`
	Correct     int     `json:"correct"`
	Incorrect   int     `json:"incorrect"`
	Blank       int     `json:"blank"`
	Total       int     `json:"total"`
	Net         float64 `json:"net"`
	SuccessRate float64 `json:"success_rate"`
	Band        string  `json:"band"`
}

// ProgressResponse is the analytics view of one student.
type ProgressResponse struct {
	StudentID   uint               `json:"student_id"`
	Subjects    []SubjectProgress  `json:"subjects"`
	Questions   []QuestionAnalysis `json:"questions"`
	PagesRead   int                `json:"pages_read"`
	Badges      badge.Counts       `json:"badges"`
	GeneratedAt time.Time          `json:"generated_at"`
}
