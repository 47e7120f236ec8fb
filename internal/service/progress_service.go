package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/syncmind/syncmind-api/internal/badge"
	"github.com/syncmind/syncmind-api/internal/dto"
	"github.com/syncmind/syncmind-api/internal/lifecycle"
	"github.com/syncmind/syncmind-api/internal/models"
	"github.com/syncmind/syncmind-api/internal/repository"
	"github.com/syncmind/syncmind-api/internal/retry"
)

// Success-rate bands of the question analysis.
const (
	BandUrgent    = "urgent"
	BandImprove   = "improve"
	BandGood      = "good"
	BandExcellent = "excellent"
)

// ProgressService builds per-student analytics.
type ProgressService interface {
	ForStudent(ctx context.Context, userID uint) (dto.ProgressResponse, error)
	ForTeacher(ctx context.Context, teacherID, studentID uint) (dto.ProgressResponse, error)
	Invalidate(ctx context.Context, event dto.ChangeEvent)
}

type progressService struct {
	repos    repository.Repositories
	cache    *redis.Client
	cacheTTL time.Duration
	policy   retry.Policy
	logger   zerolog.Logger
	now      func() time.Time
}

// NewProgressService constructs the analytics service. A nil cache disables caching.
func NewProgressService(repos repository.Repositories, cache *redis.Client, ttl time.Duration, policy retry.Policy, logger zerolog.Logger) ProgressService {
	return &progressService{
		repos:    repos,
		cache:    cache,
		cacheTTL: ttl,
		policy:   policy,
		logger:   logger.With().Str("component", "progress_service").Logger(),
		now:      time.Now,
	}
}

func (s *progressService) ForStudent(ctx context.Context, userID uint) (dto.ProgressResponse, error) {
	student, err := retry.Value(ctx, s.policy, func(ctx context.Context) (models.Student, error) {
		return s.repos.Students.GetByUserID(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProgressResponse{}, ErrStudentNotFound
		}
		return dto.ProgressResponse{}, err
	}
	return s.build(ctx, student)
}

func (s *progressService) ForTeacher(ctx context.Context, teacherID, studentID uint) (dto.ProgressResponse, error) {
	student, err := retry.Value(ctx, s.policy, func(ctx context.Context) (models.Student, error) {
		return s.repos.Students.GetByID(ctx, studentID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProgressResponse{}, ErrStudentNotFound
		}
		return dto.ProgressResponse{}, err
	}
	if student.TeacherID != teacherID {
		return dto.ProgressResponse{}, ErrStudentNotFound
	}
	return s.build(ctx, student)
}

// Invalidate drops cached analytics of every student an event touches.
func (s *progressService) Invalidate(ctx context.Context, event dto.ChangeEvent) {
	if s.cache == nil || len(event.StudentUserIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(event.StudentUserIDs))
	for _, userID := range event.StudentUserIDs {
		keys = append(keys, progressCacheKey(userID))
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate progress cache")
	}
}

// cachedProgress is the cache payload. ValidUntil never passes the earliest
// due time of an active assignment, so a cached view cannot outlive the
// deadline that would reclassify it.
type cachedProgress struct {
	Response   dto.ProgressResponse `json:"response"`
	ValidUntil time.Time            `json:"valid_until"`
}

func (s *progressService) build(ctx context.Context, student models.Student) (dto.ProgressResponse, error) {
	cacheKey := progressCacheKey(student.UserID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var entry cachedProgress
			if unmarshalErr := json.Unmarshal([]byte(cached), &entry); unmarshalErr == nil && s.now().Before(entry.ValidUntil) {
				s.logger.Debug().Uint("student_id", student.ID).Msg("progress cache hit")
				return entry.Response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read progress cache")
		}
	}

	assignments, err := retry.Value(ctx, s.policy, func(ctx context.Context) ([]models.Assignment, error) {
		return s.repos.Assignments.List(ctx, repository.AssignmentFilter{StudentIDs: []uint{student.ID}})
	})
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	records, err := retry.Value(ctx, s.policy, func(ctx context.Context) ([]badge.Record, error) {
		return s.repos.Badges.ListForPair(ctx, student.UserID, student.TeacherID)
	})
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	now := s.now().UTC()
	response := buildProgress(student, assignments, records, now)

	if validUntil := cacheDeadline(assignments, now, s.cacheTTL); s.cache != nil && validUntil.After(now) {
		payload, err := json.Marshal(cachedProgress{Response: response, ValidUntil: validUntil})
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, validUntil.Sub(now)).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store progress cache")
			}
		}
	}

	return response, nil
}

// cacheDeadline caps now+ttl at the next due time of a still active assignment.
func cacheDeadline(assignments []models.Assignment, now time.Time, ttl time.Duration) time.Time {
	deadline := now.Add(ttl)
	for _, assignment := range assignments {
		if assignment.Status != lifecycle.StatusActive || !assignment.DueAt.After(now) {
			continue
		}
		if assignment.DueAt.Before(deadline) {
			deadline = assignment.DueAt.UTC()
		}
	}
	return deadline
}

func buildProgress(student models.Student, assignments []models.Assignment, records []badge.Record, now time.Time) dto.ProgressResponse {
	subjects := map[string]*dto.SubjectProgress{}
	type topic struct{ subject, subtopic string }
	questions := map[topic]*dto.QuestionAnalysis{}
	pages := 0

	for _, assignment := range assignments {
		state := lifecycle.Classify(assignment.Snapshot(), now)

		entry, ok := subjects[assignment.Subject]
		if !ok {
			entry = &dto.SubjectProgress{Subject: assignment.Subject}
			subjects[assignment.Subject] = entry
		}
		switch {
		case state.Approved():
			entry.Approved++
		case state.Terminal():
			entry.Rejected++
		default:
			entry.Incomplete++
		}

		if !state.Approved() {
			continue
		}

		switch assignment.Kind {
		case lifecycle.KindReading:
			if assignment.PageCount != nil {
				pages += *assignment.PageCount
			}
		case lifecycle.KindQuestionPractice:
			results := assignment.Results()
			if results == nil {
				continue
			}
			key := topic{assignment.Subject, assignment.Subtopic}
			analysis, ok := questions[key]
			if !ok {
				analysis = &dto.QuestionAnalysis{Subject: key.subject, Subtopic: key.subtopic}
				questions[key] = analysis
			}
			analysis.Correct += results.Correct
			analysis.Incorrect += results.Incorrect
			analysis.Blank += results.Blank
		}
	}

	response := dto.ProgressResponse{
		StudentID:   student.ID,
		Subjects:    make([]dto.SubjectProgress, 0, len(subjects)),
		Questions:   make([]dto.QuestionAnalysis, 0, len(questions)),
		PagesRead:   pages,
		Badges:      badge.Tally(records),
		GeneratedAt: now,
	}

	for _, entry := range subjects {
		response.Subjects = append(response.Subjects, *entry)
	}
	sort.Slice(response.Subjects, func(i, j int) bool {
		return response.Subjects[i].Subject < response.Subjects[j].Subject
	})

	for _, analysis := range questions {
		analysis.Total = analysis.Correct + analysis.Incorrect + analysis.Blank
		analysis.Net = roundTwo(models.NetScore(analysis.Correct, analysis.Incorrect))
		if analysis.Total > 0 {
			analysis.SuccessRate = roundTwo(float64(analysis.Correct) / float64(analysis.Total) * 100)
		}
		analysis.Band = successBand(analysis.SuccessRate)
		response.Questions = append(response.Questions, *analysis)
	}
	sort.Slice(response.Questions, func(i, j int) bool {
		if response.Questions[i].Subject != response.Questions[j].Subject {
			return response.Questions[i].Subject < response.Questions[j].Subject
		}
		return response.Questions[i].Subtopic < response.Questions[j].Subtopic
	})

	return response
}

func successBand(rate float64) string {
	switch {
	case rate < 50:
		return BandUrgent
	case rate < 70:
		return BandImprove
	case rate < 90:
		return BandGood
	default:
		return BandExcellent
	}
}

func progressCacheKey(userID uint) string {
	return fmt.Sprintf("progress:user:%d", userID)
}
