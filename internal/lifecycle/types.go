// Package lifecycle holds the assignment state machine and the deadline read model.
package lifecycle

import "time"

// Kind classifies the work an assignment asks for.
type Kind string

const (
	KindTopicReview      Kind = "topic_review"
	KindQuestionPractice Kind = "question_practice"
	KindReading          Kind = "reading"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindTopicReview, KindQuestionPractice, KindReading:
		return true
	default:
		return false
	}
}

// Status is the stored lifecycle status of an assignment.
type Status string

const (
	StatusActive          Status = "active"
	StatusPendingApproval Status = "pending_approval"
	StatusCompleted       Status = "completed"
)

// RejectionReason qualifies a completed assignment. The zero value means approved.
type RejectionReason string

const (
	ReasonNone     RejectionReason = ""
	ReasonTeacher  RejectionReason = "teacher"
	ReasonDeadline RejectionReason = "deadline"
)

// Event names a transition trigger.
type Event string

const (
	EventSubmit  Event = "submit"
	EventApprove Event = "approve"
	EventReject  Event = "reject"
	EventExpire  Event = "expire"
)

// Results are the answer counts recorded when a question practice is approved.
type Results struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Blank     int `json:"blank"`
}

// Total is the number of questions the counts account for.
func (r Results) Total() int {
	return r.Correct + r.Incorrect + r.Blank
}

// State is a status together with its rejection reason.
type State struct {
	Status Status          `json:"status"`
	Reason RejectionReason `json:"rejection_reason"`
}

// Terminal reports whether no further transition may leave the state.
func (s State) Terminal() bool {
	return s.Status == StatusCompleted
}

// Approved reports whether the state is completed without rejection.
func (s State) Approved() bool {
	return s.Status == StatusCompleted && s.Reason == ReasonNone
}

// Snapshot is the subset of an assignment the engine needs.
type Snapshot struct {
	Kind          Kind
	QuestionCount *int
	DueAt         time.Time
	Status        Status
	Reason        RejectionReason
}

// State returns the stored state of the snapshot.
func (s Snapshot) State() State {
	return State{Status: s.Status, Reason: s.Reason}
}

// Request asks the engine to fire one event at a point in time.
type Request struct {
	Event   Event
	Now     time.Time
	Results *Results
}

// Outcome describes an accepted transition.
type Outcome struct {
	From        State
	To          State
	Results     *Results
	AwardsBadge bool
}

// EarnsBadge reports whether approving work of kind k feeds the badge ledger.
func EarnsBadge(k Kind) bool {
	return k == KindQuestionPractice || k == KindTopicReview
}

// IsOverdue is the deadline rule shared by the read model and the sweep.
// An active assignment is overdue once now has reached its due time.
func IsOverdue(status Status, dueAt, now time.Time) bool {
	return status == StatusActive && !now.Before(dueAt)
}

// Classify returns the state an assignment must be shown in at now. Overdue
// active assignments read as completed by deadline before the sweep stores it.
func Classify(s Snapshot, now time.Time) State {
	if IsOverdue(s.Status, s.DueAt, now) {
		return State{Status: StatusCompleted, Reason: ReasonDeadline}
	}
	return s.State()
}
