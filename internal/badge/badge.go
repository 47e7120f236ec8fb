// Package badge implements the per-student, per-teacher achievement ledger.
//
// Badges come in three tiers. Every approved eligible assignment adds one
// super badge; ten badges of a tier are traded for one of the next tier.
// Expert badges never carry.
package badge

import (
	"errors"
	"fmt"
)

// Tier is the rank of a single badge record.
type Tier string

const (
	TierSuper  Tier = "super"
	TierMega   Tier = "mega"
	TierExpert Tier = "expert"
)

// Tiers lists every tier from lowest to highest.
var Tiers = []Tier{TierSuper, TierMega, TierExpert}

// CarryThreshold is the number of badges of one tier traded for one badge of the next.
const CarryThreshold = 10

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == TierSuper || t == TierMega || t == TierExpert
}

// Direction selects between awarding and reversing a badge.
type Direction string

const (
	DirectionAward   Direction = "award"
	DirectionReverse Direction = "reverse"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionAward || d == DirectionReverse
}

var (
	// ErrInvalidDirection is returned for directions other than award and reverse.
	ErrInvalidDirection = errors.New("invalid badge direction")
	// ErrLockTimeout is returned when a pair lock could not be acquired in time.
	ErrLockTimeout = errors.New("badge ledger is busy")
)

// Counts is the number of records held per tier.
type Counts struct {
	Super  int `json:"super"`
	Mega   int `json:"mega"`
	Expert int `json:"expert"`
}

// Get returns the count for tier.
func (c Counts) Get(tier Tier) int {
	switch tier {
	case TierSuper:
		return c.Super
	case TierMega:
		return c.Mega
	case TierExpert:
		return c.Expert
	default:
		return 0
	}
}

func (c *Counts) add(tier Tier, delta int) {
	switch tier {
	case TierSuper:
		c.Super += delta
	case TierMega:
		c.Mega += delta
	case TierExpert:
		c.Expert += delta
	}
}

// Total is the number of records across all tiers.
func (c Counts) Total() int {
	return c.Super + c.Mega + c.Expert
}

func (c Counts) String() string {
	return fmt.Sprintf("super=%d mega=%d expert=%d", c.Super, c.Mega, c.Expert)
}

// Record is the part of a stored badge the ledger needs.
type Record struct {
	ID   uint
	Tier Tier
}

// Tally counts records per tier. Records with unknown tiers are ignored.
func Tally(records []Record) Counts {
	var counts Counts
	for _, record := range records {
		counts.add(record.Tier, 1)
	}
	return counts
}

// PairKey identifies the ledger of one student under one teacher.
func PairKey(userID, teacherID uint) string {
	return fmt.Sprintf("badge:%d:%d", userID, teacherID)
}
