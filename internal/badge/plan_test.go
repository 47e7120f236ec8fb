package badge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func awardTimes(t *testing.T, n int) Counts {
	t.Helper()
	var counts Counts
	for i := 0; i < n; i++ {
		plan := PlanAward(counts)
		require.Equal(t, plan.Before, counts)
		counts = plan.After
	}
	return counts
}

func TestPlanAwardFirstBadge(t *testing.T) {
	plan := PlanAward(Counts{})

	require.Equal(t, Counts{Super: 1}, plan.After)
	require.Equal(t, []Tier{TierSuper}, plan.Inserts)
	require.Zero(t, plan.removed())
	require.Empty(t, plan.Awarded)
}

func TestPlanAwardTenthCarriesToMega(t *testing.T) {
	plan := PlanAward(Counts{Super: 9})

	require.Equal(t, Counts{Mega: 1}, plan.After)
	require.Equal(t, []Tier{TierMega}, plan.Inserts)
	require.Equal(t, 9, plan.Removals[TierSuper])
	require.Equal(t, TierMega, plan.Awarded)
}

func TestPlanAwardSequence(t *testing.T) {
	require.Equal(t, Counts{Super: 9}, awardTimes(t, 9))
	require.Equal(t, Counts{Mega: 1}, awardTimes(t, 10))
	require.Equal(t, Counts{Super: 9, Mega: 1}, awardTimes(t, 19))
	require.Equal(t, Counts{Mega: 2}, awardTimes(t, 20))
	require.Equal(t, Counts{Super: 9, Mega: 9}, awardTimes(t, 99))
	require.Equal(t, Counts{Expert: 1}, awardTimes(t, 100))
	require.Equal(t, Counts{Super: 5, Mega: 3, Expert: 2}, awardTimes(t, 235))
}

func TestPlanAwardHundredthCarriesTwice(t *testing.T) {
	plan := PlanAward(Counts{Super: 9, Mega: 9})

	require.Equal(t, Counts{Expert: 1}, plan.After)
	require.Equal(t, []Tier{TierExpert}, plan.Inserts)
	require.Equal(t, 9, plan.Removals[TierSuper])
	require.Equal(t, 9, plan.Removals[TierMega])
	require.Equal(t, TierExpert, plan.Awarded)
}

func TestPlanAwardExpertNeverCarries(t *testing.T) {
	plan := PlanAward(Counts{Super: 9, Mega: 9, Expert: 9})

	require.Equal(t, Counts{Expert: 10}, plan.After)
}

func TestPlanReversal(t *testing.T) {
	plan := PlanReversal(Counts{Super: 3, Mega: 1})
	require.Equal(t, Counts{Super: 2, Mega: 1}, plan.After)
	require.Equal(t, 1, plan.Removals[TierSuper])
	require.Empty(t, plan.Inserts)

	plan = PlanReversal(Counts{Mega: 2, Expert: 1})
	require.True(t, plan.Empty())
	require.Equal(t, Counts{Mega: 2, Expert: 1}, plan.After)
}

func TestOldestPicksLowestIDsPerTier(t *testing.T) {
	records := []Record{
		{ID: 1, Tier: TierMega},
		{ID: 2, Tier: TierSuper},
		{ID: 3, Tier: TierSuper},
		{ID: 4, Tier: TierSuper},
	}

	ids := oldest(records, map[Tier]int{TierSuper: 2})
	require.Equal(t, []uint{2, 3}, ids)
}
