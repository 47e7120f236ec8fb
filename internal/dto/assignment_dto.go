package dto

import (
	"time"

	"github.com/syncmind/syncmind-api/internal/lifecycle"
	"github.com/syncmind/syncmind-api/internal/models"
)

// AssignmentCreateRequest assigns the same task to one or more students.
type AssignmentCreateRequest struct {
	StudentIDs    []uint    `json:"student_ids" validate:"required,min=1,dive,gt=0"`
	Subject       string    `json:"subject" validate:"omitempty,max=128"`
	Subtopic      string    `json:"subtopic" validate:"omitempty,max=255"`
	Kind          string    `json:"kind" validate:"required,oneof=topic_review question_practice reading"`
	QuestionCount *int      `json:"question_count" validate:"omitempty,gt=0,lte=10000"`
	PageCount     *int      `json:"page_count" validate:"omitempty,gt=0,lte=100000"`
	DueAt         time.Time `json:"due_at" validate:"required"`
	TeacherNote   string    `json:"teacher_note" validate:"max=2000"`
	ResourceLink  string    `json:"resource_link" validate:"omitempty,url,max=1024"`
}

// ResultCounts are the answer counts a teacher records when approving question practice.
type ResultCounts struct {
	Correct   int `json:"correct" validate:"gte=0"`
	Incorrect int `json:"incorrect" validate:"gte=0"`
	Blank     int `json:"blank" validate:"gte=0"`
}

// AssignmentApproveRequest optionally carries result counts.
type AssignmentApproveRequest struct {
	Results *ResultCounts `json:"results" validate:"omitempty"`
}

// LifecycleResults converts the counts for the lifecycle engine.
func (r AssignmentApproveRequest) LifecycleResults() *lifecycle.Results {
	if r.Results == nil {
		return nil
	}
	return &lifecycle.Results{
		Correct:   r.Results.Correct,
		Incorrect: r.Results.Incorrect,
		Blank:     r.Results.Blank,
	}
}

// AssignmentResponse is an assignment as seen at a point in time. Status and
// RejectionReason follow the deadline read model; StoredStatus is the raw value.
type AssignmentResponse struct {
	ID              uint                      `json:"id"`
	TeacherID       uint                      `json:"teacher_id"`
	StudentID       uint                      `json:"student_id"`
	Subject         string                    `json:"subject"`
	Subtopic        string                    `json:"subtopic"`
	Kind            lifecycle.Kind            `json:"kind"`
	QuestionCount   *int                      `json:"question_count"`
	PageCount       *int                      `json:"page_count"`
	DueAt           time.Time                 `json:"due_at"`
	Status          lifecycle.Status          `json:"status"`
	RejectionReason lifecycle.RejectionReason `json:"rejection_reason"`
	StoredStatus    lifecycle.Status          `json:"stored_status"`
	Results         *lifecycle.Results        `json:"results"`
	TeacherNote     string                    `json:"teacher_note"`
	ResourceLink    string                    `json:"resource_link"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}

// NewAssignmentResponse converts a model into a DTO classified at now.
func NewAssignmentResponse(model models.Assignment, now time.Time) AssignmentResponse {
	state := lifecycle.Classify(model.Snapshot(), now)
	return AssignmentResponse{
		ID:              model.ID,
		TeacherID:       model.TeacherID,
		StudentID:       model.StudentID,
		Subject:         model.Subject,
		Subtopic:        model.Subtopic,
		Kind:            model.Kind,
		QuestionCount:   model.QuestionCount,
		PageCount:       model.PageCount,
		DueAt:           model.DueAt,
		Status:          state.Status,
		RejectionReason: state.Reason,
		StoredStatus:    model.Status,
		Results:         model.Results(),
		TeacherNote:     model.TeacherNote,
		ResourceLink:    model.ResourceLink,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

// AssignmentSummary counts assignments per read-model bucket.
type AssignmentSummary struct {
	Active          int `json:"active"`
	PendingApproval int `json:"pending_approval"`
	Approved        int `json:"approved"`
	Rejected        int `json:"rejected"`
	Expired         int `json:"expired"`
}

// Add counts one assignment response.
func (s *AssignmentSummary) Add(item AssignmentResponse) {
	switch {
	case item.Status == lifecycle.StatusActive:
		s.Active++
	case item.Status == lifecycle.StatusPendingApproval:
		s.PendingApproval++
	case item.RejectionReason == lifecycle.ReasonTeacher:
		s.Rejected++
	case item.RejectionReason == lifecycle.ReasonDeadline:
		s.Expired++
	default:
		s.Approved++
	}
}

// AssignmentListResponse wraps a classified listing.
type AssignmentListResponse struct {
	Items   []AssignmentResponse `json:"items"`
	Summary AssignmentSummary    `json:"summary"`
}

// NewAssignmentListResponse classifies every model at now.
func NewAssignmentListResponse(assignments []models.Assignment, now time.Time) AssignmentListResponse {
	response := AssignmentListResponse{Items: make([]AssignmentResponse, 0, len(assignments))}
	for _, assignment := range assignments {
		item := NewAssignmentResponse(assignment, now)
		response.Items = append(response.Items, item)
		response.Summary.Add(item)
	}
	return response
}

// SweepResponse lists the assignments a sweep completed by deadline.
type SweepResponse struct {
	UpdatedIDs []uint    `json:"updated_ids"`
	SweptAt    time.Time `json:"swept_at"`
}
