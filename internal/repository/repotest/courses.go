package repotest

import (
	"cmp"
	"context"
	"strings"
	"time"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/RubachokBoss/edugrader/internal/repository"
)

type courseRepo struct{ s *Store }

var courseColumns = map[string]comparator[models.CourseWithStats]{
	"code":       func(a, b models.CourseWithStats) int { return cmp.Compare(a.Code, b.Code) },
	"title":      func(a, b models.CourseWithStats) int { return cmp.Compare(a.Title, b.Title) },
	"capacity":   func(a, b models.CourseWithStats) int { return cmp.Compare(a.Capacity, b.Capacity) },
	"created_at": func(a, b models.CourseWithStats) int { return compareTime(a.CreatedAt, b.CreatedAt) },
}

func (r *courseRepo) Create(ctx context.Context, course *models.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range r.s.courses {
		if c.Code == course.Code {
			return repository.ErrDuplicate
		}
	}
	if _, ok := r.s.users[course.TeacherID]; !ok {
		return repository.ErrForeignKey
	}

	r.s.courses[course.ID] = *course
	return nil
}

func (r *courseRepo) withStats(c models.Course) models.CourseWithStats {
	assignments := 0
	for _, a := range r.s.assignments {
		if a.CourseID == c.ID {
			assignments++
		}
	}
	return models.CourseWithStats{
		Course:          c,
		TeacherName:     r.s.users[c.TeacherID].FullName,
		StudentCount:    r.s.activeCount(c.ID),
		AssignmentCount: assignments,
	}
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*models.CourseWithStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.courses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	stats := r.withStats(c)
	return &stats, nil
}

func (r *courseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseWithStats, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	search := strings.ToLower(filter.Search)
	var items []models.CourseWithStats
	for _, c := range r.s.courses {
		if c.IsArchived && !filter.IncludeArchived {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Code), search) && !strings.Contains(strings.ToLower(c.Title), search) {
			continue
		}
		if filter.Semester != "" && c.Semester != filter.Semester {
			continue
		}
		if filter.TeacherID != "" && c.TeacherID != filter.TeacherID {
			continue
		}
		if filter.StudentID != "" && !r.s.isActive(c.ID, filter.StudentID) {
			continue
		}
		items = append(items, r.withStats(c))
	}

	fallback := func(a, b models.CourseWithStats) int {
		if c := compareTime(b.CreatedAt, a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	}
	if err := sortItems(items, filter.SortBy, filter.SortOrder, courseColumns, fallback); err != nil {
		return nil, 0, err
	}

	return paginate(items, filter.Skip, filter.Limit), len(items), nil
}

func (r *courseRepo) Update(ctx context.Context, course *models.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.courses[course.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if course.Capacity < r.s.activeCount(course.ID) {
		return repository.ErrCapacityReached
	}
	existing.Title = course.Title
	existing.Description = course.Description
	existing.Semester = course.Semester
	existing.Credits = course.Credits
	existing.Capacity = course.Capacity
	existing.IsArchived = course.IsArchived
	existing.UpdatedAt = course.UpdatedAt
	r.s.courses[course.ID] = existing
	return nil
}

func (r *courseRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.courses[id]; !ok {
		return repository.ErrNotFound
	}
	for _, a := range r.s.assignments {
		if a.CourseID == id {
			return repository.ErrForeignKey
		}
	}
	for _, e := range r.s.enrollments {
		if e.CourseID == id {
			return repository.ErrForeignKey
		}
	}
	delete(r.s.courses, id)
	return nil
}

func (r *courseRepo) Archive(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.courses[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.IsArchived = true
	c.UpdatedAt = at
	r.s.courses[id] = c
	return nil
}
