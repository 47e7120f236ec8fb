package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
)

const (
	stateActive             = "active"
	statePendingApproval    = "pending_approval"
	stateApproved           = "completed"
	stateRejectedByTeacher  = "completed:teacher"
	stateRejectedByDeadline = "completed:deadline"
)

var transitions = fsm.Events{
	{Name: string(EventSubmit), Src: []string{stateActive}, Dst: statePendingApproval},
	{Name: string(EventApprove), Src: []string{statePendingApproval}, Dst: stateApproved},
	{Name: string(EventReject), Src: []string{statePendingApproval}, Dst: stateRejectedByTeacher},
	{Name: string(EventExpire), Src: []string{stateActive}, Dst: stateRejectedByDeadline},
}

// Apply validates req against the snapshot and returns the resulting state.
// It never touches storage; callers persist the outcome.
func Apply(ctx context.Context, snap Snapshot, req Request) (Outcome, error) {
	from := snap.State()
	current, err := machineState(from)
	if err != nil {
		return Outcome{}, err
	}

	machine := fsm.NewFSM(current, transitions, fsm.Callbacks{
		"before_" + string(EventSubmit): func(_ context.Context, e *fsm.Event) {
			if IsOverdue(StatusActive, snap.DueAt, req.Now) {
				e.Cancel(ErrDeadlinePassed)
			}
		},
		"before_" + string(EventExpire): func(_ context.Context, e *fsm.Event) {
			if !IsOverdue(StatusActive, snap.DueAt, req.Now) {
				e.Cancel(ErrNotYetDue)
			}
		},
		"before_" + string(EventApprove): func(_ context.Context, e *fsm.Event) {
			if err := ValidateResults(snap, req.Results); err != nil {
				e.Cancel(err)
			}
		},
	})

	if err := machine.Event(ctx, string(req.Event)); err != nil {
		return Outcome{}, translate(err, req.Event, from)
	}

	to := stateFromMachine(machine.Current())
	outcome := Outcome{From: from, To: to}
	if req.Event == EventApprove && snap.Kind == KindQuestionPractice && req.Results != nil {
		results := *req.Results
		outcome.Results = &results
	}
	outcome.AwardsBadge = to.Approved() && EarnsBadge(snap.Kind)

	return outcome, nil
}

// ValidateResults enforces the result-count guard of an approval.
func ValidateResults(snap Snapshot, results *Results) error {
	if snap.Kind != KindQuestionPractice {
		if results != nil {
			return ErrResultsNotAllowed
		}
		return nil
	}

	if results == nil {
		return ErrResultsRequired
	}
	if results.Correct < 0 || results.Incorrect < 0 || results.Blank < 0 {
		return fmt.Errorf("%w: counts must not be negative", ErrResultMismatch)
	}

	expected := 0
	if snap.QuestionCount != nil {
		expected = *snap.QuestionCount
	}
	if results.Total() != expected {
		return fmt.Errorf("%w: got %d, expected %d", ErrResultMismatch, results.Total(), expected)
	}

	return nil
}

func translate(err error, event Event, from State) error {
	var canceled fsm.CanceledError
	if errors.As(err, &canceled) && canceled.Err != nil {
		return canceled.Err
	}
	return fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, event, describe(from))
}

func machineState(s State) (string, error) {
	switch {
	case s.Status == StatusActive && s.Reason == ReasonNone:
		return stateActive, nil
	case s.Status == StatusPendingApproval && s.Reason == ReasonNone:
		return statePendingApproval, nil
	case s.Status == StatusCompleted && s.Reason == ReasonNone:
		return stateApproved, nil
	case s.Status == StatusCompleted && s.Reason == ReasonTeacher:
		return stateRejectedByTeacher, nil
	case s.Status == StatusCompleted && s.Reason == ReasonDeadline:
		return stateRejectedByDeadline, nil
	default:
		return "", fmt.Errorf("%w: status %q with reason %q", ErrInvalidState, s.Status, s.Reason)
	}
}

func stateFromMachine(name string) State {
	switch name {
	case stateActive:
		return State{Status: StatusActive}
	case statePendingApproval:
		return State{Status: StatusPendingApproval}
	case stateRejectedByTeacher:
		return State{Status: StatusCompleted, Reason: ReasonTeacher}
	case stateRejectedByDeadline:
		return State{Status: StatusCompleted, Reason: ReasonDeadline}
	default:
		return State{Status: StatusCompleted}
	}
}

func describe(s State) string {
	if s.Reason == ReasonNone {
		return string(s.Status)
	}
	return fmt.Sprintf("%s(%s)", s.Status, s.Reason)
}
