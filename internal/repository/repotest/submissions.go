package repotest

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/RubachokBoss/edugrader/internal/repository"
)

type submissionRepo struct{ s *Store }

func (r *submissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.assignments[submission.AssignmentID]; !ok {
		return repository.ErrForeignKey
	}
	if _, ok := r.s.users[submission.StudentID]; !ok {
		return repository.ErrForeignKey
	}
	for _, s := range r.s.submissions {
		if s.AssignmentID == submission.AssignmentID && s.StudentID == submission.StudentID && s.Version == submission.Version {
			return repository.ErrDuplicate
		}
	}
	r.s.submissions[submission.ID] = *submission
	return nil
}

func (r *submissionRepo) details(s models.Submission) models.SubmissionWithDetails {
	a := r.s.assignments[s.AssignmentID]
	return models.SubmissionWithDetails{
		Submission:      s,
		StudentName:     r.s.users[s.StudentID].FullName,
		AssignmentTitle: a.Title,
		CourseID:        a.CourseID,
		TeacherID:       r.s.courses[a.CourseID].TeacherID,
	}
}

func (r *submissionRepo) GetByID(ctx context.Context, id string) (*models.SubmissionWithDetails, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	s, ok := r.s.submissions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	d := r.details(s)
	return &d, nil
}

func (r *submissionRepo) LatestVersion(ctx context.Context, assignmentID, studentID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	latest := 0
	for _, s := range r.s.submissions {
		if s.AssignmentID == assignmentID && s.StudentID == studentID && s.Version > latest {
			latest = s.Version
		}
	}
	return latest, nil
}

func (r *submissionRepo) ListByAssignment(ctx context.Context, filter models.SubmissionFilter) ([]models.SubmissionWithDetails, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var items []models.SubmissionWithDetails
	for _, s := range r.s.submissions {
		if s.AssignmentID != filter.AssignmentID {
			continue
		}
		if filter.StudentID != "" && s.StudentID != filter.StudentID {
			continue
		}
		items = append(items, r.details(s))
	}

	slices.SortFunc(items, func(a, b models.SubmissionWithDetails) int {
		if c := compareTime(b.SubmittedAt, a.SubmittedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return paginate(items, filter.Skip, filter.Limit), len(items), nil
}

func (r *submissionRepo) UpdateStatus(ctx context.Context, id string, from, to models.SubmissionStatus, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	s, ok := r.s.submissions[id]
	if !ok || s.Status != from {
		return repository.ErrStateChanged
	}
	s.Status = to
	s.UpdatedAt = at
	r.s.submissions[id] = s
	return nil
}

func (r *submissionRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.submissions[id]; !ok {
		return repository.ErrNotFound
	}
	for _, g := range r.s.grades {
		if g.SubmissionID == id {
			return repository.ErrForeignKey
		}
	}
	delete(r.s.submissions, id)
	return nil
}
