package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/RubachokBoss/edugrader/internal/auth"
	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/RubachokBoss/edugrader/internal/repository/repotest"
	"github.com/RubachokBoss/edugrader/internal/service"
	"github.com/RubachokBoss/edugrader/internal/storage"
	"github.com/RubachokBoss/edugrader/pkg/hash"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, event *models.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, *event)
}

func (n *recordingNotifier) Close() error { return nil }

func (n *recordingNotifier) types() []models.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.EventType, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store       *repotest.Store
	notifier    *recordingNotifier
	uploadDir   string
	auth        service.AuthService
	courses     service.CourseService
	assignments service.AssignmentService
	submissions service.SubmissionService
	grades      service.GradeService
	audit       service.AuditService
	users       service.UserService

	admin   models.Principal
	teacher models.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := zerolog.Nop()
	store := repotest.NewStore()
	notifier := &recordingNotifier{}
	uploadDir := t.TempDir()

	files, err := storage.NewLocalStorage(uploadDir, log)
	require.NoError(t, err)

	f := &fixture{
		store:     store,
		notifier:  notifier,
		uploadDir: uploadDir,
		auth: service.NewAuthService(
			store.Users(),
			auth.NewTokenManager("test-secret", "edugrader", 15*time.Minute, time.Hour),
			auth.NewPasswordHasher(bcrypt.MinCost),
			log,
		),
		courses: service.NewCourseService(store.Courses(), store.Enrollments(), store.Users(), store.Audit(), log),
		assignments: service.NewAssignmentService(
			store.Assignments(), store.Courses(), store.Enrollments(), store.Audit(), notifier, log,
		),
		submissions: service.NewSubmissionService(
			store.Submissions(), store.Assignments(), store.Enrollments(), store.Audit(),
			files, storage.NewValidator(1<<20, []string{".pdf", ".txt"}), hash.NewFileHasher(hash.SHA256),
			notifier, log,
		),
		grades: service.NewGradeService(
			store.Grades(), store.Submissions(), store.Assignments(), store.Courses(),
			store.Appeals(), store.Audit(), notifier, log,
		),
		audit: service.NewAuditService(store.Audit(), log),
		users: service.NewUserService(store.Users(), log),
	}

	// Первый пользователь становится администратором
	f.admin = f.register(t, "admin@uni.test", models.RoleStudent)
	require.Equal(t, models.RoleAdmin, f.admin.Role)
	f.teacher = f.register(t, "teacher@uni.test", models.RoleTeacher)
	return f
}

func (f *fixture) register(t *testing.T, email string, role models.Role) models.Principal {
	t.Helper()
	user, err := f.auth.Register(context.Background(), &models.RegisterRequest{
		Email:    email,
		Password: "password123",
		FullName: "User " + email,
		Role:     role,
	})
	require.NoError(t, err)
	return user.Principal()
}

func (f *fixture) course(t *testing.T, owner models.Principal, code string, capacity int) *models.CourseWithStats {
	t.Helper()
	course, err := f.courses.Create(context.Background(), owner, &models.CreateCourseRequest{
		Code:     code,
		Title:    "Course " + code,
		Capacity: capacity,
	})
	require.NoError(t, err)
	return course
}

func (f *fixture) enroll(t *testing.T, courseID string, student models.Principal) {
	t.Helper()
	_, err := f.courses.Enroll(context.Background(), f.teacher, courseID, student.UserID)
	require.NoError(t, err)
}

func (f *fixture) assignment(t *testing.T, courseID string, due time.Time, mutate func(*models.CreateAssignmentRequest)) *models.AssignmentWithStats {
	t.Helper()
	req := &models.CreateAssignmentRequest{
		CourseID: courseID,
		Title:    "Lab 1",
		Type:     models.AssignmentLab,
		MaxScore: 100,
		DueDate:  due,
		Publish:  true,
	}
	if mutate != nil {
		mutate(req)
	}
	a, err := f.assignments.Create(context.Background(), f.teacher, req)
	require.NoError(t, err)
	return a
}

func (f *fixture) submit(student models.Principal, assignmentID, fileName string) (*models.Submission, error) {
	return f.submissions.Submit(context.Background(), student, &models.SubmitRequest{
		AssignmentID: assignmentID,
		FileName:     fileName,
		Content:      []byte("%PDF-1.4 report body"),
	})
}

func score(v float64) *float64 { return &v }
