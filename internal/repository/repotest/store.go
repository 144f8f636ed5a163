// Package repotest provides in-memory repository implementations for tests.
// They enforce the same uniqueness, capacity and reference rules as the
// PostgreSQL schema so services see the same error values.
package repotest

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/RubachokBoss/edugrader/internal/repository"
)

type Store struct {
	mu          sync.Mutex
	users       map[string]models.User
	courses     map[string]models.Course
	enrollments map[string]models.Enrollment
	assignments map[string]models.Assignment
	submissions map[string]models.Submission
	grades      map[string]models.Grade
	appeals     map[string]models.Appeal
	audit       []models.AuditEntry
}

func NewStore() *Store {
	return &Store{
		users:       make(map[string]models.User),
		courses:     make(map[string]models.Course),
		enrollments: make(map[string]models.Enrollment),
		assignments: make(map[string]models.Assignment),
		submissions: make(map[string]models.Submission),
		grades:      make(map[string]models.Grade),
		appeals:     make(map[string]models.Appeal),
	}
}

func (s *Store) Users() repository.UserRepository             { return &userRepo{s} }
func (s *Store) Courses() repository.CourseRepository         { return &courseRepo{s} }
func (s *Store) Enrollments() repository.EnrollmentRepository { return &enrollmentRepo{s} }
func (s *Store) Assignments() repository.AssignmentRepository { return &assignmentRepo{s} }
func (s *Store) Submissions() repository.SubmissionRepository { return &submissionRepo{s} }
func (s *Store) Grades() repository.GradeRepository           { return &gradeRepo{s} }
func (s *Store) Appeals() repository.AppealRepository         { return &appealRepo{s} }
func (s *Store) Audit() repository.AuditRepository            { return &auditRepo{s} }

// AuditEntries returns a copy of everything written to the audit log.
func (s *Store) AuditEntries() []models.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditEntry(nil), s.audit...)
}

// SetUserActive toggles a user's active flag.
func (s *Store) SetUserActive(id string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.IsActive = active
		s.users[id] = u
	}
}

func (s *Store) activeCount(courseID string) int {
	n := 0
	for _, e := range s.enrollments {
		if e.CourseID == courseID && e.Status == models.EnrollmentActive {
			n++
		}
	}
	return n
}

func (s *Store) isActive(courseID, studentID string) bool {
	for _, e := range s.enrollments {
		if e.CourseID == courseID && e.StudentID == studentID && e.Status == models.EnrollmentActive {
			return true
		}
	}
	return false
}

type comparator[T any] func(a, b T) int

// sortItems mirrors the allow-listed ORDER BY of the SQL repositories.
func sortItems[T any](items []T, field, order string, columns map[string]comparator[T], fallback comparator[T]) error {
	cmpFn := fallback
	if field != "" {
		c, ok := columns[field]
		if !ok {
			return fmt.Errorf("%w: unknown sort field %q", repository.ErrInvalidSort, field)
		}
		switch strings.ToLower(order) {
		case "", "asc":
			cmpFn = c
		case "desc":
			cmpFn = func(a, b T) int { return -c(a, b) }
		default:
			return fmt.Errorf("%w: unknown sort order %q", repository.ErrInvalidSort, order)
		}
	}
	slices.SortStableFunc(items, cmpFn)
	return nil
}

func paginate[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return make([]T, 0)
	}
	end := len(items)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return items[skip:end]
}

func compareTime(a, b time.Time) int {
	return a.Compare(b)
}

func compareTimePtr(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return a.Compare(*b)
	}
}
