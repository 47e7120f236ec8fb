package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/syncmind/syncmind-api/internal/dto"
	"github.com/syncmind/syncmind-api/internal/lifecycle"
	"github.com/syncmind/syncmind-api/internal/models"
	"github.com/syncmind/syncmind-api/internal/observability"
	"github.com/syncmind/syncmind-api/internal/repository"
)

// SweepService completes overdue assignments by deadline.
type SweepService interface {
	SweepOverdue(ctx context.Context, now time.Time) (dto.SweepResponse, error)
}

type sweepService struct {
	repos    repository.Repositories
	tx       repository.Transactor
	feed     ChangeFeed
	activity ActivityRecorder
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewSweepService constructs the deadline sweep.
func NewSweepService(repos repository.Repositories, tx repository.Transactor, feed ChangeFeed, activity ActivityRecorder, logger zerolog.Logger) SweepService {
	return &sweepService{
		repos:    repos,
		tx:       tx,
		feed:     feed,
		activity: activity,
		logger:   logger.With().Str("component", "sweep_service").Logger(),
		tracer:   otel.Tracer("github.com/syncmind/syncmind-api/internal/service/sweep"),
	}
}

// SweepOverdue moves every active assignment with due_at <= now to
// completed(deadline) and returns the ids it changed. A second run with the
// same clock returns an empty set.
func (s *sweepService) SweepOverdue(ctx context.Context, now time.Time) (dto.SweepResponse, error) {
	now = now.UTC()
	ctx, span := s.tracer.Start(ctx, "assignments.sweep", trace.WithAttributes(attribute.String("sweep.now", now.Format(time.RFC3339))))
	defer span.End()

	var expired []models.Assignment
	err := s.tx.WithinTransaction(ctx, func(repos repository.Repositories) error {
		overdue, err := repos.Assignments.ListOverdue(ctx, now)
		if err != nil {
			return fmt.Errorf("list overdue: %w", err)
		}
		if len(overdue) == 0 {
			return nil
		}

		ids := make([]uint, 0, len(overdue))
		for _, row := range overdue {
			ids = append(ids, row.ID)
		}

		affected, err := repos.Assignments.ExpireByIDs(ctx, ids, now)
		if err != nil {
			return fmt.Errorf("expire assignments: %w", err)
		}
		if affected != int64(len(ids)) {
			return fmt.Errorf("%w: expected %d expirations, applied %d", repository.ErrStaleState, len(ids), affected)
		}

		expired = overdue
		return nil
	})
	if errors.Is(err, repository.ErrStaleState) {
		// Another node or a submission changed the candidate rows; the next
		// tick picks up whatever is still overdue.
		observability.SweepRuns().WithLabelValues("contended").Inc()
		span.SetAttributes(attribute.Bool("sweep.contended", true))
		s.logger.Info().Err(err).Msg("deadline sweep lost a race and was rolled back")
		return dto.SweepResponse{UpdatedIDs: []uint{}, SweptAt: now}, nil
	}
	if err != nil {
		observability.SweepRuns().WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error().Err(err).Msg("deadline sweep failed")
		return dto.SweepResponse{}, err
	}

	ids := make([]uint, 0, len(expired))
	for _, row := range expired {
		ids = append(ids, row.ID)
	}

	observability.SweepRuns().WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.Int("sweep.expired", len(ids)))
	if len(ids) == 0 {
		return dto.SweepResponse{UpdatedIDs: ids, SweptAt: now}, nil
	}

	observability.SweepExpired().Add(float64(len(ids)))
	observability.LifecycleTransitions().WithLabelValues(string(lifecycle.EventExpire), "all").Add(float64(len(ids)))
	s.announce(ctx, expired)
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorRole:  "system",
		Action:     ActionAssignmentsExpired,
		EntityType: "assignment",
		Metadata:   map[string]interface{}{"assignment_ids": ids},
	})

	s.logger.Info().Int("expired", len(ids)).Time("now", now).Msg("overdue assignments completed by deadline")

	return dto.SweepResponse{UpdatedIDs: ids, SweptAt: now}, nil
}

// announce publishes one change event per teacher.
func (s *sweepService) announce(ctx context.Context, expired []models.Assignment) {
	if s.feed == nil {
		return
	}

	studentIDs := make([]uint, 0, len(expired))
	for _, row := range expired {
		studentIDs = append(studentIDs, row.StudentID)
	}
	students, err := s.repos.Students.ListByIDs(ctx, uniqueIDs(studentIDs))
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to resolve students for sweep event")
	}
	userByStudent := make(map[uint]uint, len(students))
	for _, student := range students {
		userByStudent[student.ID] = student.UserID
	}

	type group struct {
		ids   []uint
		users []uint
	}
	groups := map[uint]*group{}
	order := make([]uint, 0)
	for _, row := range expired {
		g, ok := groups[row.TeacherID]
		if !ok {
			g = &group{}
			groups[row.TeacherID] = g
			order = append(order, row.TeacherID)
		}
		g.ids = append(g.ids, row.ID)
		if userID := userByStudent[row.StudentID]; userID != 0 {
			g.users = append(g.users, userID)
		}
	}

	for _, teacherID := range order {
		g := groups[teacherID]
		s.feed.Publish(ctx, dto.ChangeEvent{
			Table:          dto.ChangeTableAssignments,
			Action:         "expired",
			EntityIDs:      g.ids,
			TeacherID:      teacherID,
			StudentUserIDs: uniqueIDs(g.users),
		})
	}
}
