package service

import (
	"context"

	"github.com/syncmind/syncmind-api/internal/badge"
	"github.com/syncmind/syncmind-api/internal/observability"
)

// LedgerGate pairs the badge ledger with the lock that serialises it.
type LedgerGate struct {
	ledger *badge.Ledger
	locker badge.Locker
}

// NewLedgerGate constructs a gate. A nil locker falls back to an in-process lock.
func NewLedgerGate(ledger *badge.Ledger, locker badge.Locker) *LedgerGate {
	if locker == nil {
		locker = badge.NewLocalLocker()
	}
	return &LedgerGate{ledger: ledger, locker: locker}
}

// Guard runs fn while holding the lock of the (student, teacher) pair.
func (g *LedgerGate) Guard(ctx context.Context, userID, teacherID uint, fn func() error) error {
	unlock, err := g.locker.Lock(ctx, badge.PairKey(userID, teacherID))
	if err != nil {
		return err
	}
	defer unlock()

	return fn()
}

// Apply runs one ledger step against store. Callers hold the pair lock.
func (g *LedgerGate) Apply(ctx context.Context, store badge.Store, userID, teacherID uint, direction badge.Direction) (badge.Plan, error) {
	plan, err := g.ledger.Apply(ctx, store, userID, teacherID, direction)
	if err != nil {
		return badge.Plan{}, err
	}

	if !plan.Empty() {
		tier := string(plan.Awarded)
		if tier == "" {
			tier = string(badge.TierSuper)
		}
		observability.BadgeChanges().WithLabelValues(string(direction), tier).Inc()
	}

	return plan, nil
}
