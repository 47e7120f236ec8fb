package dto

import (
	"sort"

	"github.com/syncmind/syncmind-api/internal/badge"
	"github.com/syncmind/syncmind-api/internal/models"
)

// BadgeAdjustResponse reports a ledger change.
type BadgeAdjustResponse struct {
	UserID    uint            `json:"user_id"`
	TeacherID uint            `json:"teacher_id"`
	Direction badge.Direction `json:"direction"`
	Before    badge.Counts    `json:"before"`
	After     badge.Counts    `json:"after"`
	Awarded   badge.Tier      `json:"awarded,omitempty"`
}

// BadgeSummary is the ledger of one (student, teacher) pair.
type BadgeSummary struct {
	UserID    uint         `json:"user_id"`
	TeacherID uint         `json:"teacher_id"`
	Counts    badge.Counts `json:"counts"`
	Total     int          `json:"total"`
}

// SummariseBadges groups badge rows per pair, ordered by user then teacher.
func SummariseBadges(rows []models.Badge) []BadgeSummary {
	type pair struct{ user, teacher uint }
	records := map[pair][]badge.Record{}
	for _, row := range rows {
		key := pair{row.UserID, row.TeacherID}
		records[key] = append(records[key], badge.Record{ID: row.ID, Tier: row.Tier})
	}

	summaries := make([]BadgeSummary, 0, len(records))
	for key, list := range records {
		counts := badge.Tally(list)
		summaries = append(summaries, BadgeSummary{
			UserID:    key.user,
			TeacherID: key.teacher,
			Counts:    counts,
			Total:     counts.Total(),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].UserID != summaries[j].UserID {
			return summaries[i].UserID < summaries[j].UserID
		}
		return summaries[i].TeacherID < summaries[j].TeacherID
	})
	return summaries
}
