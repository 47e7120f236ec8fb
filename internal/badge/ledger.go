package badge

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Store persists badge records for one pair. ListForPair returns records
// oldest first.
type Store interface {
	ListForPair(ctx context.Context, userID, teacherID uint) ([]Record, error)
	DeleteByIDs(ctx context.Context, ids []uint) error
	Insert(ctx context.Context, userID, teacherID uint, tiers []Tier) error
}

// Ledger applies award and reversal plans to a store.
type Ledger struct {
	logger zerolog.Logger
}

// NewLedger constructs a ledger.
func NewLedger(logger zerolog.Logger) *Ledger {
	return &Ledger{logger: logger.With().Str("component", "badge_ledger").Logger()}
}

// Apply reads the pair's records, plans the change for direction and writes
// it through store. Callers hold the pair lock and run it inside a
// transaction.
func (l *Ledger) Apply(ctx context.Context, store Store, userID, teacherID uint, direction Direction) (Plan, error) {
	ctx, span := otel.Tracer("github.com/syncmind/syncmind-api/internal/badge").Start(ctx, "badge.Ledger.Apply")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("badge.user_id", int64(userID)),
		attribute.Int64("badge.teacher_id", int64(teacherID)),
		attribute.String("badge.direction", string(direction)),
	)

	plan, err := l.apply(ctx, store, userID, teacherID, direction)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Plan{}, err
	}

	l.logger.Debug().
		Uint("user_id", userID).
		Uint("teacher_id", teacherID).
		Str("direction", string(direction)).
		Stringer("before", plan.Before).
		Stringer("after", plan.After).
		Msg("badge ledger updated")

	return plan, nil
}

func (l *Ledger) apply(ctx context.Context, store Store, userID, teacherID uint, direction Direction) (Plan, error) {
	records, err := store.ListForPair(ctx, userID, teacherID)
	if err != nil {
		return Plan{}, fmt.Errorf("list badges: %w", err)
	}

	counts := Tally(records)
	var plan Plan
	switch direction {
	case DirectionAward:
		plan = PlanAward(counts)
	case DirectionReverse:
		plan = PlanReversal(counts)
	default:
		return Plan{}, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}

	if ids := oldest(records, plan.Removals); len(ids) > 0 {
		if err := store.DeleteByIDs(ctx, ids); err != nil {
			return Plan{}, fmt.Errorf("delete badges: %w", err)
		}
	}

	if len(plan.Inserts) > 0 {
		if err := store.Insert(ctx, userID, teacherID, plan.Inserts); err != nil {
			return Plan{}, fmt.Errorf("insert badges: %w", err)
		}
	}

	return plan, nil
}
