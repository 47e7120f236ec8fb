package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/syncmind/syncmind-api/internal/badge"
	"github.com/syncmind/syncmind-api/internal/database"
	"github.com/syncmind/syncmind-api/internal/models"
	"github.com/syncmind/syncmind-api/internal/repository"
	"github.com/syncmind/syncmind-api/internal/retry"
)

const testPassword = "correct-horse-battery"

type fixture struct {
	db       *gorm.DB
	repos    repository.Repositories
	tx       repository.Transactor
	gate     *LedgerGate
	feed     ChangeFeed
	activity ActivityService
	validate *validator.Validate
	policy   retry.Policy
	logger   zerolog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	logger := zerolog.Nop()
	repos := repository.NewRepositories(db)
	validate := validator.New()

	return &fixture{
		db:       db,
		repos:    repos,
		tx:       repository.NewTransactor(db),
		gate:     NewLedgerGate(badge.NewLedger(logger), badge.NewLocalLocker()),
		feed:     NewChangeFeed(nil, "", nil, logger),
		activity: NewActivityService(repos.Activity, validate, logger),
		validate: validate,
		policy:   retry.Policy{Attempts: 1},
		logger:   logger,
	}
}

func (f *fixture) assignments(now func() time.Time) *assignmentService {
	svc := NewAssignmentService(f.repos, f.tx, f.gate, f.feed, f.activity, f.validate, f.policy, f.logger).(*assignmentService)
	if now != nil {
		svc.now = now
	}
	return svc
}

func (f *fixture) sweeper() SweepService {
	return NewSweepService(f.repos, f.tx, f.feed, f.activity, f.logger)
}

func (f *fixture) seedTeacher(t *testing.T, email string) models.User {
	t.Helper()
	code := fmt.Sprintf("T%07d", time.Now().UnixNano()%10000000)
	teacher := models.User{
		Email:        email,
		PasswordHash: hashPassword(t, testPassword),
		Role:         models.RoleTeacher,
		FirstName:    "Ayşe",
		LastName:     "Öğretmen",
		TeacherCode:  &code,
	}
	require.NoError(t, f.db.Create(&teacher).Error)
	return teacher
}

func (f *fixture) seedStudent(t *testing.T, teacherID uint, email string) (models.User, models.Student) {
	t.Helper()
	user := models.User{
		Email:        email,
		PasswordHash: hashPassword(t, testPassword),
		Role:         models.RoleStudent,
		FirstName:    "Ali",
		LastName:     "Öğrenci",
	}
	require.NoError(t, f.db.Create(&user).Error)

	student := models.Student{UserID: user.ID, TeacherID: teacherID, Name: user.FullName()}
	require.NoError(t, f.db.Create(&student).Error)
	return user, student
}

func (f *fixture) badgeCounts(t *testing.T, userID, teacherID uint) badge.Counts {
	t.Helper()
	var rows []models.Badge
	require.NoError(t, f.db.Where("user_id = ? AND teacher_id = ?", userID, teacherID).Find(&rows).Error)
	records := make([]badge.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, badge.Record{ID: row.ID, Tier: row.Tier})
	}
	return badge.Tally(records)
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func intPtr(v int) *int {
	return &v
}

func repositoryFilterForStudent(studentID uint) repository.AssignmentFilter {
	return repository.AssignmentFilter{StudentIDs: []uint{studentID}}
}
