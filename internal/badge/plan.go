package badge

// Plan describes the writes that move a ledger from Before to After.
type Plan struct {
	Before   Counts
	After    Counts
	Inserts  []Tier
	Removals map[Tier]int
	// Awarded is the highest tier reached by a carry, empty when nothing carried.
	Awarded Tier
}

// Empty reports whether the plan changes nothing.
func (p Plan) Empty() bool {
	return len(p.Inserts) == 0 && p.removed() == 0
}

func (p Plan) removed() int {
	total := 0
	for _, n := range p.Removals {
		total += n
	}
	return total
}

// PlanAward adds one super badge and carries every full group upward,
// lower tiers first.
func PlanAward(current Counts) Plan {
	plan := Plan{Before: current, After: current, Removals: map[Tier]int{}}
	pending := map[Tier]int{TierSuper: 1}
	plan.After.add(TierSuper, 1)

	for i, tier := range Tiers[:len(Tiers)-1] {
		next := Tiers[i+1]
		for plan.After.Get(tier) >= CarryThreshold {
			plan.After.add(tier, -CarryThreshold)

			// Records planned in this step are consumed before stored ones.
			consumed := min(pending[tier], CarryThreshold)
			pending[tier] -= consumed
			plan.Removals[tier] += CarryThreshold - consumed

			plan.After.add(next, 1)
			pending[next]++
			plan.Awarded = next
		}
	}

	for _, tier := range Tiers {
		for n := 0; n < pending[tier]; n++ {
			plan.Inserts = append(plan.Inserts, tier)
		}
	}

	return plan
}

// PlanReversal removes one super badge when one exists. Higher tiers are
// never broken back down.
func PlanReversal(current Counts) Plan {
	plan := Plan{Before: current, After: current, Removals: map[Tier]int{}}
	if current.Super > 0 {
		plan.Removals[TierSuper] = 1
		plan.After.add(TierSuper, -1)
	}
	return plan
}

// oldest picks the ids to delete for removals. Records must be ordered
// oldest first.
func oldest(records []Record, removals map[Tier]int) []uint {
	remaining := make(map[Tier]int, len(removals))
	for tier, n := range removals {
		remaining[tier] = n
	}

	ids := make([]uint, 0)
	for _, record := range records {
		if remaining[record.Tier] > 0 {
			ids = append(ids, record.ID)
			remaining[record.Tier]--
		}
	}
	return ids
}
