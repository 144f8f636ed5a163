package repotest

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/RubachokBoss/edugrader/internal/repository"
)

type enrollmentRepo struct{ s *Store }

func (r *enrollmentRepo) Enroll(ctx context.Context, enrollment *models.Enrollment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	course, ok := r.s.courses[enrollment.CourseID]
	if !ok {
		return repository.ErrNotFound
	}
	if course.IsArchived {
		return repository.ErrArchived
	}
	if _, ok := r.s.users[enrollment.StudentID]; !ok {
		return repository.ErrForeignKey
	}
	if r.s.isActive(enrollment.CourseID, enrollment.StudentID) {
		return repository.ErrDuplicate
	}
	if r.s.activeCount(enrollment.CourseID) >= course.Capacity {
		return repository.ErrCapacityReached
	}

	r.s.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (r *enrollmentRepo) IsActive(ctx context.Context, courseID, studentID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.isActive(courseID, studentID), nil
}

func (r *enrollmentRepo) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentWithStudent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	items := make([]models.EnrollmentWithStudent, 0)
	for _, e := range r.s.enrollments {
		if e.CourseID != courseID || e.Status != models.EnrollmentActive {
			continue
		}
		u := r.s.users[e.StudentID]
		items = append(items, models.EnrollmentWithStudent{
			Enrollment:   e,
			StudentName:  u.FullName,
			StudentEmail: u.Email,
			GroupName:    u.GroupName,
		})
	}

	slices.SortFunc(items, func(a, b models.EnrollmentWithStudent) int {
		if c := cmp.Compare(a.StudentName, b.StudentName); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return items, nil
}

func (r *enrollmentRepo) SetStatus(ctx context.Context, courseID, studentID string, status models.EnrollmentStatus, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, e := range r.s.enrollments {
		if e.CourseID == courseID && e.StudentID == studentID && e.Status == models.EnrollmentActive {
			e.Status = status
			e.UpdatedAt = at
			r.s.enrollments[id] = e
			return nil
		}
	}
	return repository.ErrNotFound
}
