package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/syncmind/syncmind-api/internal/badge"
	"github.com/syncmind/syncmind-api/internal/dto"
	"github.com/syncmind/syncmind-api/internal/lifecycle"
	"github.com/syncmind/syncmind-api/internal/models"
	"github.com/syncmind/syncmind-api/internal/observability"
	"github.com/syncmind/syncmind-api/internal/repository"
	"github.com/syncmind/syncmind-api/internal/retry"
)

const (
	readingSubject  = "Okuma"
	readingSubtopic = "Kitap Okuma"
)

// AssignmentService manages the assignment lifecycle for teachers and students.
type AssignmentService interface {
	Create(ctx context.Context, actor Actor, req dto.AssignmentCreateRequest) ([]dto.AssignmentResponse, error)
	ListForTeacher(ctx context.Context, teacherID uint) (dto.AssignmentListResponse, error)
	ListForStudent(ctx context.Context, userID uint) (dto.AssignmentListResponse, error)
	Submit(ctx context.Context, userID, assignmentID uint) (dto.AssignmentResponse, error)
	Review(ctx context.Context, teacherID, assignmentID uint, event lifecycle.Event, results *lifecycle.Results) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, teacherID, assignmentID uint) error
	ListNew(ctx context.Context, userID uint) (dto.AssignmentListResponse, error)
	MarkSeen(ctx context.Context, userID uint) (time.Time, error)
}

type assignmentService struct {
	repos     repository.Repositories
	tx        repository.Transactor
	gate      *LedgerGate
	feed      ChangeFeed
	activity  ActivityRecorder
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	policy    retry.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewAssignmentService constructs the assignment service.
func NewAssignmentService(repos repository.Repositories, tx repository.Transactor, gate *LedgerGate, feed ChangeFeed, activity ActivityRecorder, validate *validator.Validate, policy retry.Policy, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		repos:     repos,
		tx:        tx,
		gate:      gate,
		feed:      feed,
		activity:  activity,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		policy:    policy,
		logger:    logger.With().Str("component", "assignment_service").Logger(),
		tracer:    otel.Tracer("github.com/syncmind/syncmind-api/internal/service/assignment"),
		now:       time.Now,
	}
}

func (s *assignmentService) Create(ctx context.Context, actor Actor, req dto.AssignmentCreateRequest) ([]dto.AssignmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	draft, err := s.normalizeDraft(req, now)
	if err != nil {
		return nil, err
	}

	studentIDs := uniqueIDs(req.StudentIDs)
	students, err := s.repos.Students.ListByIDs(ctx, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}
	if len(students) != len(studentIDs) {
		return nil, ErrStudentNotFound
	}

	rows := make([]models.Assignment, 0, len(students))
	userIDs := make([]uint, 0, len(students))
	for _, student := range students {
		if student.TeacherID != actor.ID {
			return nil, ErrStudentNotFound
		}
		row := draft
		row.TeacherID = actor.ID
		row.StudentID = student.ID
		rows = append(rows, row)
		userIDs = append(userIDs, student.UserID)
	}

	if err := s.repos.Assignments.CreateBatch(ctx, rows); err != nil {
		return nil, fmt.Errorf("create assignments: %w", err)
	}

	responses := make([]dto.AssignmentResponse, 0, len(rows))
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, dto.NewAssignmentResponse(row, now))
		ids = append(ids, row.ID)
	}

	s.publish(ctx, "created", actor.ID, ids, userIDs)
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     ActionAssignmentCreated,
		EntityType: "assignment",
		Metadata: map[string]interface{}{
			"assignment_ids": ids,
			"kind":           draft.Kind,
			"subject":        draft.Subject,
		},
	})

	s.logger.Info().Uint("teacher_id", actor.ID).Int("count", len(rows)).Str("kind", string(draft.Kind)).Msg("assignments created")

	return responses, nil
}

// normalizeDraft applies the kind-specific field rules and sanitises free text.
func (s *assignmentService) normalizeDraft(req dto.AssignmentCreateRequest, now time.Time) (models.Assignment, error) {
	kind := lifecycle.Kind(req.Kind)
	if !kind.Valid() {
		return models.Assignment{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidAssignment, req.Kind)
	}

	due := req.DueAt.UTC()
	if !due.After(now) {
		return models.Assignment{}, ErrInvalidDueDate
	}

	subject := s.clean(req.Subject)
	subtopic := s.clean(req.Subtopic)

	switch kind {
	case lifecycle.KindQuestionPractice:
		if req.QuestionCount == nil {
			return models.Assignment{}, fmt.Errorf("%w: question_count is required for question practice", ErrInvalidAssignment)
		}
		if req.PageCount != nil {
			return models.Assignment{}, fmt.Errorf("%w: page_count is only allowed for reading", ErrInvalidAssignment)
		}
	case lifecycle.KindReading:
		if req.PageCount == nil {
			return models.Assignment{}, fmt.Errorf("%w: page_count is required for reading", ErrInvalidAssignment)
		}
		if req.QuestionCount != nil {
			return models.Assignment{}, fmt.Errorf("%w: question_count is only allowed for question practice", ErrInvalidAssignment)
		}
		if subject == "" {
			subject = readingSubject
		}
		if subtopic == "" {
			subtopic = readingSubtopic
		}
	default:
		if req.QuestionCount != nil || req.PageCount != nil {
			return models.Assignment{}, fmt.Errorf("%w: topic review takes no question or page count", ErrInvalidAssignment)
		}
	}

	if subject == "" || subtopic == "" {
		return models.Assignment{}, fmt.Errorf("%w: subject and subtopic are required", ErrInvalidAssignment)
	}

	return models.Assignment{
		Subject:       subject,
		Subtopic:      subtopic,
		Kind:          kind,
		QuestionCount: req.QuestionCount,
		PageCount:     req.PageCount,
		DueAt:         due,
		Status:        lifecycle.StatusActive,
		TeacherNote:   s.clean(req.TeacherNote),
		ResourceLink:  strings.TrimSpace(req.ResourceLink),
	}, nil
}

func (s *assignmentService) clean(value string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(value))
}

func (s *assignmentService) ListForTeacher(ctx context.Context, teacherID uint) (dto.AssignmentListResponse, error) {
	rows, err := retry.Value(ctx, s.policy, func(ctx context.Context) ([]models.Assignment, error) {
		return s.repos.Assignments.List(ctx, repository.AssignmentFilter{TeacherID: &teacherID})
	})
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}

	return dto.NewAssignmentListResponse(rows, s.now().UTC()), nil
}

func (s *assignmentService) ListForStudent(ctx context.Context, userID uint) (dto.AssignmentListResponse, error) {
	student, err := s.studentByUser(ctx, userID)
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}

	rows, err := retry.Value(ctx, s.policy, func(ctx context.Context) ([]models.Assignment, error) {
		return s.repos.Assignments.List(ctx, repository.AssignmentFilter{StudentIDs: []uint{student.ID}})
	})
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}

	return dto.NewAssignmentListResponse(rows, s.now().UTC()), nil
}

func (s *assignmentService) Submit(ctx context.Context, userID, assignmentID uint) (dto.AssignmentResponse, error) {
	student, err := s.studentByUser(ctx, userID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.load(ctx, assignmentID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	if assignment.StudentID != student.ID {
		return dto.AssignmentResponse{}, ErrAssignmentNotFound
	}

	now := s.now().UTC()
	outcome, err := lifecycle.Apply(ctx, assignment.Snapshot(), lifecycle.Request{Event: lifecycle.EventSubmit, Now: now})
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if err := s.repos.Assignments.Transition(ctx, assignment.ID, outcome.From, outcome.To, nil); err != nil {
		return dto.AssignmentResponse{}, s.transitionError(err)
	}

	assignment.Status = outcome.To.Status
	assignment.RejectionReason = outcome.To.Reason
	assignment.UpdatedAt = now

	observability.LifecycleTransitions().WithLabelValues(string(lifecycle.EventSubmit), string(assignment.Kind)).Inc()
	s.publish(ctx, "updated", assignment.TeacherID, []uint{assignment.ID}, []uint{student.UserID})
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    userID,
		ActorRole:  models.RoleStudent,
		Action:     ActionAssignmentSubmitted,
		EntityType: "assignment",
		EntityID:   uintPtr(assignment.ID),
	})

	return dto.NewAssignmentResponse(assignment, now), nil
}

func (s *assignmentService) Review(ctx context.Context, teacherID, assignmentID uint, event lifecycle.Event, results *lifecycle.Results) (dto.AssignmentResponse, error) {
	if event != lifecycle.EventApprove && event != lifecycle.EventReject {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: %s is not a review decision", lifecycle.ErrInvalidTransition, event)
	}

	ctx, span := s.tracer.Start(ctx, "assignments.review", trace.WithAttributes(
		attribute.Int64("assignment.id", int64(assignmentID)),
		attribute.String("assignment.event", string(event)),
	))
	defer span.End()

	response, err := s.review(ctx, teacherID, assignmentID, event, results)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return dto.AssignmentResponse{}, err
	}

	return response, nil
}

func (s *assignmentService) review(ctx context.Context, teacherID, assignmentID uint, event lifecycle.Event, results *lifecycle.Results) (dto.AssignmentResponse, error) {
	assignment, err := s.load(ctx, assignmentID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	if assignment.TeacherID != teacherID {
		return dto.AssignmentResponse{}, ErrAssignmentNotFound
	}

	now := s.now().UTC()
	outcome, err := lifecycle.Apply(ctx, assignment.Snapshot(), lifecycle.Request{Event: event, Now: now, Results: results})
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	student, err := s.repos.Students.GetByID(ctx, assignment.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrStudentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	var plan badge.Plan
	commit := func() error {
		return s.tx.WithinTransaction(ctx, func(repos repository.Repositories) error {
			if err := repos.Assignments.Transition(ctx, assignment.ID, outcome.From, outcome.To, outcome.Results); err != nil {
				return err
			}
			if !outcome.AwardsBadge {
				return nil
			}
			var err error
			plan, err = s.gate.Apply(ctx, repos.Badges, student.UserID, teacherID, badge.DirectionAward)
			return err
		})
	}

	if outcome.AwardsBadge {
		err = s.gate.Guard(ctx, student.UserID, teacherID, commit)
	} else {
		err = commit()
	}
	if err != nil {
		return dto.AssignmentResponse{}, s.transitionError(err)
	}

	assignment.Status = outcome.To.Status
	assignment.RejectionReason = outcome.To.Reason
	assignment.UpdatedAt = now
	if outcome.Results != nil {
		assignment.CorrectCount = &outcome.Results.Correct
		assignment.IncorrectCount = &outcome.Results.Incorrect
		assignment.BlankCount = &outcome.Results.Blank
	}

	observability.LifecycleTransitions().WithLabelValues(string(event), string(assignment.Kind)).Inc()
	s.publish(ctx, "updated", teacherID, []uint{assignment.ID}, []uint{student.UserID})
	if outcome.AwardsBadge {
		s.publishBadges(ctx, teacherID, student.UserID)
	}

	action := ActionAssignmentApproved
	if event == lifecycle.EventReject {
		action = ActionAssignmentRejected
	}
	metadata := map[string]interface{}{"kind": assignment.Kind}
	if outcome.AwardsBadge {
		metadata["badges"] = plan.After
		if plan.Awarded != "" {
			metadata["awarded"] = plan.Awarded
		}
	}
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    teacherID,
		ActorRole:  models.RoleTeacher,
		Action:     action,
		EntityType: "assignment",
		EntityID:   uintPtr(assignment.ID),
		Metadata:   metadata,
	})

	return dto.NewAssignmentResponse(assignment, now), nil
}

// Delete removes an assignment. Deleting an approved assignment that earned
// a badge takes one super badge back in the same transaction.
func (s *assignmentService) Delete(ctx context.Context, teacherID, assignmentID uint) error {
	assignment, err := s.load(ctx, assignmentID)
	if err != nil {
		return err
	}
	if assignment.TeacherID != teacherID {
		return ErrAssignmentNotFound
	}

	student, err := s.repos.Students.GetByID(ctx, assignment.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}

	// The stored state is re-read inside the transaction; an approval that
	// committed after the load above still gets its badge reversed.
	var reverse bool
	commit := func() error {
		return s.tx.WithinTransaction(ctx, func(repos repository.Repositories) error {
			current, err := repos.Assignments.GetByID(ctx, assignment.ID)
			if err != nil {
				return err
			}
			state := current.Snapshot().State()
			reverse = state.Approved() && lifecycle.EarnsBadge(current.Kind)
			if reverse {
				if _, err := s.gate.Apply(ctx, repos.Badges, student.UserID, teacherID, badge.DirectionReverse); err != nil {
					return err
				}
			}
			return repos.Assignments.Delete(ctx, current.ID, state)
		})
	}

	if lifecycle.EarnsBadge(assignment.Kind) {
		err = s.gate.Guard(ctx, student.UserID, teacherID, commit)
	} else {
		err = commit()
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return s.transitionError(err)
	}

	s.publish(ctx, "deleted", teacherID, []uint{assignment.ID}, []uint{student.UserID})
	if reverse {
		s.publishBadges(ctx, teacherID, student.UserID)
	}
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    teacherID,
		ActorRole:  models.RoleTeacher,
		Action:     ActionAssignmentDeleted,
		EntityType: "assignment",
		EntityID:   uintPtr(assignment.ID),
		Metadata:   map[string]interface{}{"badge_reversed": reverse},
	})

	return nil
}

// ListNew returns assignments created since the student last checked that
// are still active under the deadline read model.
func (s *assignmentService) ListNew(ctx context.Context, userID uint) (dto.AssignmentListResponse, error) {
	user, err := retry.Value(ctx, s.policy, func(ctx context.Context) (models.User, error) {
		return s.repos.Users.GetByID(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentListResponse{}, ErrUserNotFound
		}
		return dto.AssignmentListResponse{}, err
	}

	student, err := s.studentByUser(ctx, userID)
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}

	filter := repository.AssignmentFilter{StudentIDs: []uint{student.ID}, CreatedAfter: user.LastAssignmentCheckAt}
	rows, err := retry.Value(ctx, s.policy, func(ctx context.Context) ([]models.Assignment, error) {
		return s.repos.Assignments.List(ctx, filter)
	})
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}

	now := s.now().UTC()
	fresh := make([]models.Assignment, 0, len(rows))
	for _, row := range rows {
		if lifecycle.Classify(row.Snapshot(), now).Status == lifecycle.StatusActive {
			fresh = append(fresh, row)
		}
	}

	return dto.NewAssignmentListResponse(fresh, now), nil
}

func (s *assignmentService) MarkSeen(ctx context.Context, userID uint) (time.Time, error) {
	now := s.now().UTC()
	if err := s.repos.Users.TouchAssignmentCheck(ctx, userID, now); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, ErrUserNotFound
		}
		return time.Time{}, err
	}
	return now, nil
}

func (s *assignmentService) load(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := s.repos.Assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	return assignment, nil
}

func (s *assignmentService) studentByUser(ctx context.Context, userID uint) (models.Student, error) {
	student, err := retry.Value(ctx, s.policy, func(ctx context.Context) (models.Student, error) {
		return s.repos.Students.GetByUserID(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, err
	}
	return student, nil
}

func (s *assignmentService) transitionError(err error) error {
	if errors.Is(err, repository.ErrStaleState) {
		return fmt.Errorf("%w: assignment was changed by another request", lifecycle.ErrInvalidTransition)
	}
	return err
}

func (s *assignmentService) publish(ctx context.Context, action string, teacherID uint, ids, studentUserIDs []uint) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(ctx, dto.ChangeEvent{
		Table:          dto.ChangeTableAssignments,
		Action:         action,
		EntityIDs:      ids,
		TeacherID:      teacherID,
		StudentUserIDs: studentUserIDs,
	})
}

func (s *assignmentService) publishBadges(ctx context.Context, teacherID, userID uint) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(ctx, dto.ChangeEvent{
		Table:          dto.ChangeTableBadges,
		Action:         "updated",
		TeacherID:      teacherID,
		StudentUserIDs: []uint{userID},
	})
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
