package repotest

import (
	"cmp"
	"context"
	"time"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/RubachokBoss/edugrader/internal/repository"
)

type assignmentRepo struct{ s *Store }

var assignmentColumns = map[string]comparator[models.AssignmentWithStats]{
	"title":        func(a, b models.AssignmentWithStats) int { return cmp.Compare(a.Title, b.Title) },
	"due_date":     func(a, b models.AssignmentWithStats) int { return compareTime(a.DueDate, b.DueDate) },
	"max_score":    func(a, b models.AssignmentWithStats) int { return cmp.Compare(a.MaxScore, b.MaxScore) },
	"published_at": func(a, b models.AssignmentWithStats) int { return compareTimePtr(a.PublishedAt, b.PublishedAt) },
	"created_at":   func(a, b models.AssignmentWithStats) int { return compareTime(a.CreatedAt, b.CreatedAt) },
}

func (r *assignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.courses[assignment.CourseID]; !ok {
		return repository.ErrForeignKey
	}
	if _, ok := r.s.assignments[assignment.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.assignments[assignment.ID] = *assignment
	return nil
}

func (r *assignmentRepo) withStats(a models.Assignment) models.AssignmentWithStats {
	course := r.s.courses[a.CourseID]
	stats := models.AssignmentWithStats{
		Assignment:      a,
		CourseTeacherID: course.TeacherID,
		CourseArchived:  course.IsArchived,
	}
	for _, s := range r.s.submissions {
		if s.AssignmentID != a.ID {
			continue
		}
		stats.SubmissionsCount++
		if s.Status == models.SubmissionGraded || s.Status == models.SubmissionReturned {
			stats.GradedCount++
		}
	}
	return stats
}

func (r *assignmentRepo) GetByID(ctx context.Context, id string) (*models.AssignmentWithStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.assignments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	stats := r.withStats(a)
	return &stats, nil
}

func (r *assignmentRepo) List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentWithStats, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var items []models.AssignmentWithStats
	for _, a := range r.s.assignments {
		if filter.CourseID != "" && a.CourseID != filter.CourseID {
			continue
		}
		if filter.PublishedOnly && !a.IsPublished(filter.PublishedBefore) {
			continue
		}
		if filter.TeacherID != "" && r.s.courses[a.CourseID].TeacherID != filter.TeacherID {
			continue
		}
		if filter.EnrolledStudentID != "" && !r.s.isActive(a.CourseID, filter.EnrolledStudentID) {
			continue
		}
		items = append(items, r.withStats(a))
	}

	fallback := func(a, b models.AssignmentWithStats) int {
		if c := compareTime(a.DueDate, b.DueDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	}
	if err := sortItems(items, filter.SortBy, filter.SortOrder, assignmentColumns, fallback); err != nil {
		return nil, 0, err
	}

	return paginate(items, filter.Skip, filter.Limit), len(items), nil
}

func (r *assignmentRepo) Publish(ctx context.Context, id string, at time.Time) (time.Time, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.assignments[id]
	if !ok {
		return time.Time{}, repository.ErrNotFound
	}
	if a.PublishedAt == nil {
		published := at
		a.PublishedAt = &published
	}
	a.UpdatedAt = at
	r.s.assignments[id] = a
	return *a.PublishedAt, nil
}
