package badge

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	records map[uint]storedRecord
	nextID  uint
	failOn  string
}

type storedRecord struct {
	userID    uint
	teacherID uint
	tier      Tier
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[uint]storedRecord), nextID: 1}
}

func (m *memoryStore) ListForPair(ctx context.Context, userID, teacherID uint) ([]Record, error) {
	if m.failOn == "list" {
		return nil, errors.New("list failed")
	}
	result := make([]Record, 0)
	for id, record := range m.records {
		if record.userID == userID && record.teacherID == teacherID {
			result = append(result, Record{ID: id, Tier: record.tier})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *memoryStore) DeleteByIDs(ctx context.Context, ids []uint) error {
	if m.failOn == "delete" {
		return errors.New("delete failed")
	}
	for _, id := range ids {
		delete(m.records, id)
	}
	return nil
}

func (m *memoryStore) Insert(ctx context.Context, userID, teacherID uint, tiers []Tier) error {
	if m.failOn == "insert" {
		return errors.New("insert failed")
	}
	for _, tier := range tiers {
		m.records[m.nextID] = storedRecord{userID: userID, teacherID: teacherID, tier: tier}
		m.nextID++
	}
	return nil
}

func (m *memoryStore) counts(userID, teacherID uint) Counts {
	records, _ := m.ListForPair(context.Background(), userID, teacherID)
	return Tally(records)
}

func TestLedgerAwardsAndCarries(t *testing.T) {
	store := newMemoryStore()
	ledger := NewLedger(zerolog.Nop())

	for i := 0; i < 19; i++ {
		_, err := ledger.Apply(context.Background(), store, 7, 1, DirectionAward)
		require.NoError(t, err)
	}

	require.Equal(t, Counts{Super: 9, Mega: 1}, store.counts(7, 1))
	require.Len(t, store.records, 10)
}

func TestLedgerHundredAwardsLeaveOneExpert(t *testing.T) {
	store := newMemoryStore()
	ledger := NewLedger(zerolog.Nop())

	var plan Plan
	var err error
	for i := 0; i < 100; i++ {
		plan, err = ledger.Apply(context.Background(), store, 7, 1, DirectionAward)
		require.NoError(t, err)
	}

	require.Equal(t, TierExpert, plan.Awarded)
	require.Equal(t, Counts{Expert: 1}, store.counts(7, 1))
	require.Len(t, store.records, 1)
}

func TestLedgerPairsAreIndependent(t *testing.T) {
	store := newMemoryStore()
	ledger := NewLedger(zerolog.Nop())

	for i := 0; i < 3; i++ {
		_, err := ledger.Apply(context.Background(), store, 7, 1, DirectionAward)
		require.NoError(t, err)
	}
	_, err := ledger.Apply(context.Background(), store, 7, 2, DirectionAward)
	require.NoError(t, err)

	require.Equal(t, Counts{Super: 3}, store.counts(7, 1))
	require.Equal(t, Counts{Super: 1}, store.counts(7, 2))
}

func TestLedgerReversal(t *testing.T) {
	store := newMemoryStore()
	ledger := NewLedger(zerolog.Nop())

	for i := 0; i < 11; i++ {
		_, err := ledger.Apply(context.Background(), store, 7, 1, DirectionAward)
		require.NoError(t, err)
	}
	require.Equal(t, Counts{Super: 1, Mega: 1}, store.counts(7, 1))

	_, err := ledger.Apply(context.Background(), store, 7, 1, DirectionReverse)
	require.NoError(t, err)
	require.Equal(t, Counts{Mega: 1}, store.counts(7, 1))

	plan, err := ledger.Apply(context.Background(), store, 7, 1, DirectionReverse)
	require.NoError(t, err)
	require.True(t, plan.Empty())
	require.Equal(t, Counts{Mega: 1}, store.counts(7, 1))
}

func TestLedgerRejectsUnknownDirection(t *testing.T) {
	_, err := NewLedger(zerolog.Nop()).Apply(context.Background(), newMemoryStore(), 7, 1, Direction("double"))
	require.ErrorIs(t, err, ErrInvalidDirection)
}

func TestLedgerPropagatesStoreFailures(t *testing.T) {
	store := newMemoryStore()
	store.failOn = "insert"

	_, err := NewLedger(zerolog.Nop()).Apply(context.Background(), store, 7, 1, DirectionAward)
	require.Error(t, err)
	require.Contains(t, err.Error(), "insert badges")
	require.Empty(t, store.records)
}
