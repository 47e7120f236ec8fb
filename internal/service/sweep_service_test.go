package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/syncmind/syncmind-api/internal/dto"
	"github.com/syncmind/syncmind-api/internal/lifecycle"
	"github.com/syncmind/syncmind-api/internal/models"
	"github.com/syncmind/syncmind-api/internal/repository"
)

func TestSweepOnlyExpiresActiveOverdueAssignments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.seedTeacher(t, "teacher@example.com")
	studentUser, student := f.seedStudent(t, teacher.ID, "student@example.com")
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	seed := func(due time.Time, status lifecycle.Status) uint {
		row := models.Assignment{
			TeacherID: teacher.ID, StudentID: student.ID, Subject: "Matematik", Subtopic: "Kümeler",
			Kind: lifecycle.KindTopicReview, DueAt: due, Status: status,
		}
		require.NoError(t, f.db.Create(&row).Error)
		return row.ID
	}

	boundary := seed(now, lifecycle.StatusActive)
	overdue := seed(now.Add(-time.Hour), lifecycle.StatusActive)
	seed(now.Add(time.Second), lifecycle.StatusActive)
	pending := seed(now.Add(-time.Hour), lifecycle.StatusPendingApproval)

	events, closeEvents := f.feed.Subscribe(studentUser.ID)
	defer closeEvents()

	result, err := f.sweeper().SweepOverdue(ctx, now)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint{boundary, overdue}, result.UpdatedIDs)

	select {
	case event := <-events:
		require.Equal(t, "expired", event.Action)
		require.ElementsMatch(t, []uint{boundary, overdue}, event.EntityIDs)
	case <-time.After(time.Second):
		t.Fatal("expected expiry event")
	}

	stored, err := f.repos.Assignments.GetByID(ctx, pending)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusPendingApproval, stored.Status)

	listing, err := f.repos.Assignments.List(ctx, repositoryFilterForStudent(student.ID))
	require.NoError(t, err)
	for _, row := range listing {
		classified := dto.NewAssignmentResponse(row, now)
		require.Equal(t, classified.Status, row.Status, "read model and stored state agree after sweep")
		require.Equal(t, classified.RejectionReason, row.RejectionReason)
	}

	again, err := f.sweeper().SweepOverdue(ctx, now)
	require.NoError(t, err)
	require.Empty(t, again.UpdatedIDs)
}

// racingTransactor hands the sweep a candidate row another node already
// expired, so the conditional update touches fewer rows than were selected.
type racingTransactor struct {
	repository.Transactor
}

func (t racingTransactor) WithinTransaction(ctx context.Context, fn func(repos repository.Repositories) error) error {
	return t.Transactor.WithinTransaction(ctx, func(repos repository.Repositories) error {
		repos.Assignments = expiredElsewhere{repos.Assignments}
		return fn(repos)
	})
}

type expiredElsewhere struct {
	repository.AssignmentRepository
}

func (r expiredElsewhere) ListOverdue(ctx context.Context, now time.Time) ([]models.Assignment, error) {
	rows, err := r.AssignmentRepository.ListOverdue(ctx, now)
	if err != nil {
		return nil, err
	}
	return append(rows, models.Assignment{ID: 1 << 20}), nil
}

func TestSweepTreatsLostRaceAsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.seedTeacher(t, "teacher@example.com")
	_, student := f.seedStudent(t, teacher.ID, "student@example.com")
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	row := models.Assignment{
		TeacherID: teacher.ID, StudentID: student.ID, Subject: "Kimya", Subtopic: "Mol",
		Kind: lifecycle.KindTopicReview, DueAt: now.Add(-time.Minute), Status: lifecycle.StatusActive,
	}
	require.NoError(t, f.db.Create(&row).Error)

	contended := NewSweepService(f.repos, racingTransactor{f.tx}, f.feed, f.activity, f.logger)
	result, err := contended.SweepOverdue(ctx, now)
	require.NoError(t, err)
	require.Empty(t, result.UpdatedIDs)

	stored, err := f.repos.Assignments.GetByID(ctx, row.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusActive, stored.Status)

	result, err = f.sweeper().SweepOverdue(ctx, now)
	require.NoError(t, err)
	require.Equal(t, []uint{row.ID}, result.UpdatedIDs)
}
