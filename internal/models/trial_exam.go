package models

import "time"

// TrialExam stores one subject row of a practice exam session.
type TrialExam struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	StudentID      uint      `gorm:"not null;index" json:"student_id"`
	TeacherID      uint      `gorm:"not null;index" json:"teacher_id"`
	ExamDate       time.Time `gorm:"not null;index" json:"exam_date"`
	Subject        string    `gorm:"size:128;not null" json:"subject"`
	CorrectCount   int       `gorm:"not null" json:"correct_count"`
	IncorrectCount int       `gorm:"not null" json:"incorrect_count"`
	BlankCount     int       `gorm:"not null" json:"blank_count"`
	NetScore       float64   `gorm:"not null" json:"net_score"`
	CreatedAt      time.Time `json:"created_at"`
}

// NetScore applies the penalty of one correct answer per three incorrect ones.
func NetScore(correct, incorrect int) float64 {
	return float64(correct) - float64(incorrect)/3
}
