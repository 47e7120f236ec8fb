package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories bundles every repository bound to one database handle.
type Repositories struct {
	Assignments AssignmentRepository
	Badges      BadgeRepository
	Students    StudentRepository
	Users       UserRepository
	TrialExams  TrialExamRepository
	Activity    ActivityLogRepository
}

// NewRepositories binds all repositories to db.
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Assignments: NewAssignmentRepository(db),
		Badges:      NewBadgeRepository(db),
		Students:    NewStudentRepository(db),
		Users:       NewUserRepository(db),
		TrialExams:  NewTrialExamRepository(db),
		Activity:    NewActivityLogRepository(db),
	}
}

// Transactor runs a unit of work against repositories sharing one transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(repos Repositories) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

// NewTransactor constructs a GORM-backed transactor.
func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

func (t *gormTransactor) WithinTransaction(ctx context.Context, fn func(repos Repositories) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
