package repository_test

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/RubachokBoss/edugrader/internal/database"
	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/RubachokBoss/edugrader/internal/repository"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Тесты против настоящего PostgreSQL запускаются только при заданном EDUGRADER_TEST_DSN.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("EDUGRADER_TEST_DSN")
	if dsn == "" {
		t.Skip("EDUGRADER_TEST_DSN is not set")
	}

	migrateDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	migrator, err := database.NewMigrator(migrateDB)
	require.NoError(t, err)
	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Close())

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, repo repository.UserRepository, role models.Role) *models.User {
	t.Helper()
	now := time.Now().UTC()
	id := uuid.NewString()
	user := &models.User{
		ID:           id,
		Email:        id + "@example.com",
		PasswordHash: "x",
		FullName:     "User " + id[:8],
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestPostgresConstraints(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	log := zerolog.Nop()

	users := repository.NewUserRepository(db, log)
	courses := repository.NewCourseRepository(db, log)
	enrollments := repository.NewEnrollmentRepository(db, log)
	assignments := repository.NewAssignmentRepository(db, log)
	submissions := repository.NewSubmissionRepository(db, log)
	grades := repository.NewGradeRepository(db, log)

	teacher := createUser(t, users, models.RoleTeacher)
	s1 := createUser(t, users, models.RoleStudent)
	s2 := createUser(t, users, models.RoleStudent)

	dup := *s1
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, users.Create(ctx, &dup), repository.ErrDuplicate)

	now := time.Now().UTC()
	course := &models.Course{
		ID:        uuid.NewString(),
		Code:      "IT-" + uuid.NewString()[:8],
		Title:     "Integration",
		TeacherID: teacher.ID,
		Capacity:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, courses.Create(ctx, course))

	enroll := func(studentID string) error {
		return enrollments.Enroll(ctx, &models.Enrollment{
			ID:         uuid.NewString(),
			CourseID:   course.ID,
			StudentID:  studentID,
			Status:     models.EnrollmentActive,
			EnrolledAt: now,
			UpdatedAt:  now,
		})
	}
	require.NoError(t, enroll(s1.ID))
	assert.ErrorIs(t, enroll(s1.ID), repository.ErrDuplicate)
	assert.ErrorIs(t, enroll(s2.ID), repository.ErrCapacityReached)

	shrunk := *course
	shrunk.Capacity = 0
	assert.ErrorIs(t, courses.Update(ctx, &shrunk), repository.ErrCapacityReached)

	long := *course
	long.Title = strings.Repeat("T", models.MaxTitleLength+1)
	assert.ErrorIs(t, courses.Update(ctx, &long), repository.ErrInvalidValue)

	// "_" в поиске не должен работать как шаблон
	found, total, err := courses.List(ctx, models.CourseFilter{Search: "Integr_tion", Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, found)

	listed, total, err := users.List(ctx, models.UserFilter{Role: models.RoleTeacher, Limit: 100})
	require.NoError(t, err)
	assert.Positive(t, total)
	for _, u := range listed {
		assert.Equal(t, models.RoleTeacher, u.Role)
	}

	assignment := &models.Assignment{
		ID:               uuid.NewString(),
		CourseID:         course.ID,
		Title:            "Lab 1",
		Type:             models.AssignmentLab,
		MaxScore:         100,
		Weight:           1,
		DueDate:          now.Add(-time.Hour),
		MaxResubmissions: 1,
		Rubric:           models.Rubric{{Name: "quality", MaxScore: 100}},
		CreatedBy:        teacher.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, assignments.Create(ctx, assignment))

	stored, err := assignments.GetByID(ctx, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, assignment.Rubric, stored.Rubric)
	assert.Nil(t, stored.PublishedAt)

	submission := &models.Submission{
		ID:           uuid.NewString(),
		AssignmentID: assignment.ID,
		StudentID:    s1.ID,
		FilePath:     "submissions/x",
		FileName:     "x.pdf",
		FileSize:     1,
		MimeType:     "application/pdf",
		Checksum:     "abc",
		Version:      1,
		IsLate:       true,
		Status:       models.SubmissionLate,
		SubmittedAt:  now,
		UpdatedAt:    now,
	}
	require.NoError(t, submissions.Create(ctx, submission))

	grade := &models.Grade{
		ID:             uuid.NewString(),
		SubmissionID:   submission.ID,
		Score:          80,
		MaxScore:       100,
		CriteriaScores: models.CriteriaScores{"quality": 80},
		GradedBy:       teacher.ID,
		GradedAt:       now,
		LastModified:   now,
	}
	require.NoError(t, grades.Create(ctx, grade))

	again := *grade
	again.ID = uuid.NewString()
	assert.ErrorIs(t, grades.Create(ctx, &again), repository.ErrDuplicate)

	got, err := submissions.GetByID(ctx, submission.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionGraded, got.Status)
	assert.True(t, got.IsLate)

	assert.ErrorIs(t, submissions.Delete(ctx, submission.ID), repository.ErrForeignKey)
	assert.ErrorIs(t, courses.Delete(ctx, course.ID), repository.ErrForeignKey)

	_, err = courses.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
