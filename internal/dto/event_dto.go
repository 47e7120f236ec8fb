package dto

import "time"

// Change tables announced on the change feed.
const (
	ChangeTableAssignments = "assignments"
	ChangeTableBadges      = "badges"
	ChangeTableTrialExams  = "trial_exams"
	ChangeTableStudents    = "students"
)

// ChangeEvent tells subscribers which data to re-read. It never carries the
// changed rows themselves.
type ChangeEvent struct {
	Table          string    `json:"table"`
	Action         string    `json:"action"`
	EntityIDs      []uint    `json:"entity_ids,omitempty"`
	TeacherID      uint      `json:"teacher_id"`
	StudentUserIDs []uint    `json:"student_user_ids,omitempty"`
	At             time.Time `json:"at"`
}

// Recipients lists the user ids that should receive the event.
func (e ChangeEvent) Recipients() []uint {
	seen := map[uint]struct{}{}
	recipients := make([]uint, 0, len(e.StudentUserIDs)+1)
	add := func(id uint) {
		if id == 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}

	add(e.TeacherID)
	for _, id := range e.StudentUserIDs {
		add(id)
	}
	return recipients
}
