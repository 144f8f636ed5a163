package repotest

import (
	"cmp"
	"context"
	"slices"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/RubachokBoss/edugrader/internal/repository"
)

type gradeRepo struct{ s *Store }

func (r *gradeRepo) Create(ctx context.Context, grade *models.Grade) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sub, ok := r.s.submissions[grade.SubmissionID]
	if !ok {
		return repository.ErrForeignKey
	}
	for _, g := range r.s.grades {
		if g.SubmissionID == grade.SubmissionID {
			return repository.ErrDuplicate
		}
	}
	if sub.Status != models.SubmissionSubmitted && sub.Status != models.SubmissionLate {
		return repository.ErrStateChanged
	}

	r.s.grades[grade.ID] = *grade
	sub.Status = models.SubmissionGraded
	sub.UpdatedAt = grade.GradedAt
	r.s.submissions[sub.ID] = sub
	return nil
}

func (r *gradeRepo) withContext(g models.Grade) models.GradeWithContext {
	sub := r.s.submissions[g.SubmissionID]
	a := r.s.assignments[sub.AssignmentID]
	return models.GradeWithContext{
		Grade:        g,
		StudentID:    sub.StudentID,
		AssignmentID: sub.AssignmentID,
		CourseID:     a.CourseID,
		TeacherID:    r.s.courses[a.CourseID].TeacherID,
	}
}

func (r *gradeRepo) GetByID(ctx context.Context, id string) (*models.GradeWithContext, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	g, ok := r.s.grades[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	gc := r.withContext(g)
	return &gc, nil
}

func (r *gradeRepo) Update(ctx context.Context, grade *models.Grade) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.grades[grade.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Score = grade.Score
	existing.CriteriaScores = grade.CriteriaScores
	existing.Comments = grade.Comments
	existing.LastModified = grade.LastModified
	r.s.grades[grade.ID] = existing
	return nil
}

func (r *gradeRepo) ListByStudentCourse(ctx context.Context, studentID, courseID string) ([]models.GradeWithContext, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	items := make([]models.GradeWithContext, 0)
	for _, g := range r.s.grades {
		gc := r.withContext(g)
		if gc.StudentID == studentID && gc.CourseID == courseID {
			items = append(items, gc)
		}
	}
	slices.SortFunc(items, func(a, b models.GradeWithContext) int {
		if c := compareTime(a.GradedAt, b.GradedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return items, nil
}
