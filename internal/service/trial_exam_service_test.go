package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syncmind/syncmind-api/internal/dto"
)

func TestTrialExamRecordSkipsZeroRowsAndScoresNet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.seedTeacher(t, "teacher@example.com")
	studentUser, student := f.seedStudent(t, teacher.ID, "student@example.com")
	svc := NewTrialExamService(f.repos, f.feed, f.activity, f.validate, f.policy, f.logger)

	session, err := svc.Record(ctx, teacher.ID, dto.TrialExamCreateRequest{
		StudentID: student.ID,
		ExamDate:  "2025-04-12",
		Scores: []dto.TrialExamScore{
			{Subject: "Türkçe", Correct: 32, Incorrect: 5, Blank: 3},
			{Subject: "Fen", Correct: 0, Incorrect: 0, Blank: 0},
			{Subject: "Matematik", Correct: 20, Incorrect: 10, Blank: 10},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "2025-04-12", session.ExamDate)
	require.Len(t, session.Rows, 2)
	require.Equal(t, 30.33, session.Rows[0].NetScore)
	require.Equal(t, 16.67, session.Rows[1].NetScore)
	require.Equal(t, 47.0, session.TotalNet)

	_, err = svc.Record(ctx, teacher.ID, dto.TrialExamCreateRequest{
		StudentID: student.ID,
		ExamDate:  "2025-04-13",
		Scores:    []dto.TrialExamScore{{Subject: "Fen"}},
	})
	require.ErrorIs(t, err, ErrEmptyExamSession)

	own, err := svc.ListForStudent(ctx, studentUser.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)

	all, err := svc.ListForTeacher(ctx, teacher.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestTrialExamDeleteSessionNeedsPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.seedTeacher(t, "teacher@example.com")
	other := f.seedTeacher(t, "other@example.com")
	_, student := f.seedStudent(t, teacher.ID, "student@example.com")
	svc := NewTrialExamService(f.repos, f.feed, f.activity, f.validate, f.policy, f.logger)

	_, err := svc.Record(ctx, teacher.ID, dto.TrialExamCreateRequest{
		StudentID: student.ID,
		ExamDate:  "2025-05-01",
		Scores:    []dto.TrialExamScore{{Subject: "Sosyal", Correct: 10, Incorrect: 3}, {Subject: "İngilizce", Correct: 8}},
	})
	require.NoError(t, err)

	request := dto.TrialExamDeleteRequest{StudentID: student.ID, ExamDate: "2025-05-01", Password: "nope"}
	_, err = svc.DeleteSession(ctx, teacher.ID, request)
	require.ErrorIs(t, err, ErrReauthenticationFailed)

	request.Password = testPassword
	_, err = svc.DeleteSession(ctx, other.ID, request)
	require.ErrorIs(t, err, ErrStudentNotFound)

	deleted, err := svc.DeleteSession(ctx, teacher.ID, request)
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	_, err = svc.DeleteSession(ctx, teacher.ID, request)
	require.ErrorIs(t, err, ErrExamSessionNotFound)
}

func TestExamDateParsing(t *testing.T) {
	parsed, err := examDateOf(" 2025-04-12 ")
	require.NoError(t, err)
	require.Equal(t, "2025-04-12", parsed.Format(dto.ExamDateLayout))

	for _, raw := range []string{"12.04.2025", "2025-13-01", ""} {
		_, err := examDateOf(raw)
		require.ErrorIs(t, err, ErrInvalidExamDate, raw)
		require.NotErrorIs(t, err, ErrEmptyExamSession, raw)
	}
}
