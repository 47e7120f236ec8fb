package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestApplyHappyPathQuestionPractice(t *testing.T) {
	due := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	snap := Snapshot{Kind: KindQuestionPractice, QuestionCount: intPtr(30), DueAt: due, Status: StatusActive}

	submitted, err := Apply(context.Background(), snap, Request{Event: EventSubmit, Now: due.Add(-time.Hour)})
	require.NoError(t, err)
	require.Equal(t, State{Status: StatusPendingApproval}, submitted.To)
	require.False(t, submitted.AwardsBadge)

	snap.Status = submitted.To.Status
	results := &Results{Correct: 20, Incorrect: 5, Blank: 5}
	approved, err := Apply(context.Background(), snap, Request{Event: EventApprove, Now: due.Add(time.Hour), Results: results})
	require.NoError(t, err)
	require.True(t, approved.To.Approved())
	require.True(t, approved.AwardsBadge)
	require.NotNil(t, approved.Results)
	require.Equal(t, 20, approved.Results.Correct)

	results.Correct = 0
	require.Equal(t, 20, approved.Results.Correct, "outcome keeps its own copy of the counts")
}

func TestApplySubmitDeadline(t *testing.T) {
	due := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	snap := Snapshot{Kind: KindReading, DueAt: due, Status: StatusActive}

	_, err := Apply(context.Background(), snap, Request{Event: EventSubmit, Now: due})
	require.ErrorIs(t, err, ErrDeadlinePassed)

	_, err = Apply(context.Background(), snap, Request{Event: EventSubmit, Now: due.Add(time.Minute)})
	require.ErrorIs(t, err, ErrDeadlinePassed)

	out, err := Apply(context.Background(), snap, Request{Event: EventSubmit, Now: due.Add(-time.Nanosecond)})
	require.NoError(t, err)
	require.Equal(t, StatusPendingApproval, out.To.Status)
}

func TestApplyExpire(t *testing.T) {
	due := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	snap := Snapshot{Kind: KindTopicReview, DueAt: due, Status: StatusActive}

	_, err := Apply(context.Background(), snap, Request{Event: EventExpire, Now: due.Add(-time.Second)})
	require.ErrorIs(t, err, ErrNotYetDue)

	out, err := Apply(context.Background(), snap, Request{Event: EventExpire, Now: due})
	require.NoError(t, err)
	require.Equal(t, State{Status: StatusCompleted, Reason: ReasonDeadline}, out.To)
	require.False(t, out.AwardsBadge)

	pending := snap
	pending.Status = StatusPendingApproval
	_, err = Apply(context.Background(), pending, Request{Event: EventExpire, Now: due.Add(time.Hour)})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApplyRejectKeepsNoBadge(t *testing.T) {
	snap := Snapshot{Kind: KindQuestionPractice, QuestionCount: intPtr(10), DueAt: time.Now(), Status: StatusPendingApproval}

	out, err := Apply(context.Background(), snap, Request{Event: EventReject, Now: time.Now()})
	require.NoError(t, err)
	require.Equal(t, State{Status: StatusCompleted, Reason: ReasonTeacher}, out.To)
	require.False(t, out.AwardsBadge)
	require.Nil(t, out.Results)
}

func TestApplyTerminalStatesRejectEveryEvent(t *testing.T) {
	terminal := []State{
		{Status: StatusCompleted},
		{Status: StatusCompleted, Reason: ReasonTeacher},
		{Status: StatusCompleted, Reason: ReasonDeadline},
	}
	events := []Event{EventSubmit, EventApprove, EventReject, EventExpire}
	due := time.Now().Add(time.Hour)

	for _, state := range terminal {
		for _, event := range events {
			snap := Snapshot{Kind: KindReading, DueAt: due, Status: state.Status, Reason: state.Reason}
			_, err := Apply(context.Background(), snap, Request{Event: event, Now: time.Now()})
			require.ErrorIs(t, err, ErrInvalidTransition, "%s from %+v", event, state)
		}
	}
}

func TestApplyApproveFromActiveIsInvalid(t *testing.T) {
	snap := Snapshot{Kind: KindReading, DueAt: time.Now().Add(time.Hour), Status: StatusActive}

	_, err := Apply(context.Background(), snap, Request{Event: EventApprove, Now: time.Now()})
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Apply(context.Background(), snap, Request{Event: EventReject, Now: time.Now()})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApplyRejectsInconsistentStoredState(t *testing.T) {
	snap := Snapshot{Kind: KindReading, DueAt: time.Now(), Status: StatusActive, Reason: ReasonTeacher}

	_, err := Apply(context.Background(), snap, Request{Event: EventSubmit, Now: time.Now()})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestApplyUnknownEvent(t *testing.T) {
	snap := Snapshot{Kind: KindReading, DueAt: time.Now().Add(time.Hour), Status: StatusActive}

	_, err := Apply(context.Background(), snap, Request{Event: Event("archive"), Now: time.Now()})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestValidateResults(t *testing.T) {
	question := Snapshot{Kind: KindQuestionPractice, QuestionCount: intPtr(30)}
	reading := Snapshot{Kind: KindReading}

	cases := []struct {
		name    string
		snap    Snapshot
		results *Results
		want    error
	}{
		{name: "matching counts", snap: question, results: &Results{Correct: 25, Incorrect: 3, Blank: 2}},
		{name: "missing counts", snap: question, want: ErrResultsRequired},
		{name: "sum too high", snap: question, results: &Results{Correct: 20, Incorrect: 5, Blank: 6}, want: ErrResultMismatch},
		{name: "negative count", snap: question, results: &Results{Correct: 31, Incorrect: -1}, want: ErrResultMismatch},
		{name: "reading without counts", snap: reading},
		{name: "reading with counts", snap: reading, results: &Results{}, want: ErrResultsNotAllowed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateResults(tc.snap, tc.results)
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.want)
			require.True(t, IsValidationError(err))
		})
	}
}

func TestApproveMismatchLeavesStateUntouched(t *testing.T) {
	snap := Snapshot{Kind: KindQuestionPractice, QuestionCount: intPtr(30), DueAt: time.Now(), Status: StatusPendingApproval}

	_, err := Apply(context.Background(), snap, Request{Event: EventApprove, Now: time.Now(), Results: &Results{Correct: 20, Incorrect: 5, Blank: 6}})
	require.ErrorIs(t, err, ErrResultMismatch)
	require.Equal(t, StatusPendingApproval, snap.Status)
}

func TestReadingApprovalEarnsNoBadge(t *testing.T) {
	snap := Snapshot{Kind: KindReading, DueAt: time.Now(), Status: StatusPendingApproval}

	out, err := Apply(context.Background(), snap, Request{Event: EventApprove, Now: time.Now()})
	require.NoError(t, err)
	require.True(t, out.To.Approved())
	require.False(t, out.AwardsBadge)
}

func TestClassify(t *testing.T) {
	due := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)

	active := Snapshot{Kind: KindTopicReview, DueAt: due, Status: StatusActive}
	require.Equal(t, State{Status: StatusActive}, Classify(active, due.Add(-time.Second)))
	require.Equal(t, State{Status: StatusCompleted, Reason: ReasonDeadline}, Classify(active, due))

	pending := Snapshot{Kind: KindTopicReview, DueAt: due, Status: StatusPendingApproval}
	require.Equal(t, State{Status: StatusPendingApproval}, Classify(pending, due.Add(48*time.Hour)))

	rejected := Snapshot{Kind: KindTopicReview, DueAt: due, Status: StatusCompleted, Reason: ReasonTeacher}
	require.Equal(t, State{Status: StatusCompleted, Reason: ReasonTeacher}, Classify(rejected, due.Add(time.Hour)))
}

func TestEarnsBadge(t *testing.T) {
	require.True(t, EarnsBadge(KindQuestionPractice))
	require.True(t, EarnsBadge(KindTopicReview))
	require.False(t, EarnsBadge(KindReading))
	require.False(t, Kind("essay").Valid())
}
