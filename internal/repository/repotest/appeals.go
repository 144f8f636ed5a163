package repotest

import (
	"cmp"
	"context"
	"slices"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/RubachokBoss/edugrader/internal/repository"
)

type appealRepo struct{ s *Store }

func (r *appealRepo) Create(ctx context.Context, appeal *models.Appeal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.grades[appeal.GradeID]; !ok {
		return repository.ErrForeignKey
	}
	for _, a := range r.s.appeals {
		if a.GradeID == appeal.GradeID && a.Status == models.AppealPending {
			return repository.ErrDuplicate
		}
	}
	r.s.appeals[appeal.ID] = *appeal
	return nil
}

func (r *appealRepo) GetByID(ctx context.Context, id string) (*models.Appeal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.appeals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *appealRepo) ListByGrade(ctx context.Context, gradeID string) ([]models.Appeal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	items := make([]models.Appeal, 0)
	for _, a := range r.s.appeals {
		if a.GradeID == gradeID {
			items = append(items, a)
		}
	}
	slices.SortFunc(items, func(a, b models.Appeal) int {
		if c := compareTime(a.CreatedAt, b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return items, nil
}

func (r *appealRepo) Resolve(ctx context.Context, appeal *models.Appeal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.appeals[appeal.ID]
	if !ok || existing.Status != models.AppealPending {
		return repository.ErrStateChanged
	}
	existing.Status = appeal.Status
	existing.Response = appeal.Response
	existing.ResolvedBy = appeal.ResolvedBy
	existing.ResolvedAt = appeal.ResolvedAt
	r.s.appeals[appeal.ID] = existing
	return nil
}
