package dto

import (
	"math"
	"time"

	"github.com/syncmind/syncmind-api/internal/models"
)

// ExamDateLayout is the calendar date format of a trial exam session.
const ExamDateLayout = "2006-01-02"

// TrialExamScore is one subject row of a session.
type TrialExamScore struct {
	Subject   string `json:"subject" validate:"required,max=128"`
	Correct   int    `json:"correct" validate:"gte=0,lte=1000"`
	Incorrect int    `json:"incorrect" validate:"gte=0,lte=1000"`
	Blank     int    `json:"blank" validate:"gte=0,lte=1000"`
}

// TrialExamCreateRequest records one session for a student.
type TrialExamCreateRequest struct {
	StudentID uint             `json:"student_id" validate:"required,gt=0"`
	ExamDate  string           `json:"exam_date" validate:"required,datetime=2006-01-02"`
	Scores    []TrialExamScore `json:"scores" validate:"required,min=1,dive"`
}

// TrialExamDeleteRequest removes a session after password confirmation.
type TrialExamDeleteRequest struct {
	StudentID uint   `json:"student_id" validate:"required,gt=0"`
	ExamDate  string `json:"exam_date" validate:"required,datetime=2006-01-02"`
	Password  string `json:"password" validate:"required"`
}

// TrialExamResponse is one stored row.
type TrialExamResponse struct {
	ID             uint    `json:"id"`
	Subject        string  `json:"subject"`
	CorrectCount   int     `json:"correct_count"`
	IncorrectCount int     `json:"incorrect_count"`
	BlankCount     int     `json:"blank_count"`
	NetScore       float64 `json:"net_score"`
}

// TrialExamSession groups the rows of one student on one date.
type TrialExamSession struct {
	StudentID uint                `json:"student_id"`
	ExamDate  string              `json:"exam_date"`
	Rows      []TrialExamResponse `json:"rows"`
	TotalNet  float64             `json:"total_net"`
}

// GroupTrialExams groups rows into sessions, keeping the input order of
// first appearance.
func GroupTrialExams(rows []models.TrialExam) []TrialExamSession {
	type key struct {
		student uint
		date    string
	}
	index := map[key]int{}
	sessions := make([]TrialExamSession, 0)

	for _, row := range rows {
		k := key{row.StudentID, row.ExamDate.UTC().Format(ExamDateLayout)}
		pos, ok := index[k]
		if !ok {
			pos = len(sessions)
			index[k] = pos
			sessions = append(sessions, TrialExamSession{StudentID: k.student, ExamDate: k.date})
		}
		sessions[pos].Rows = append(sessions[pos].Rows, TrialExamResponse{
			ID:             row.ID,
			Subject:        row.Subject,
			CorrectCount:   row.CorrectCount,
			IncorrectCount: row.IncorrectCount,
			BlankCount:     row.BlankCount,
			NetScore:       row.NetScore,
		})
		sessions[pos].TotalNet += row.NetScore
	}

	for i := range sessions {
		sessions[i].TotalNet = math.Round(sessions[i].TotalNet*100) / 100
	}
	return sessions
}

// ParseExamDate parses a session date as midnight UTC.
func ParseExamDate(value string) (time.Time, error) {
	return time.ParseInLocation(ExamDateLayout, value, time.UTC)
}
