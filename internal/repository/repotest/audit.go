package repotest

import (
	"context"

	"github.com/RubachokBoss/edugrader/internal/models"
)

type auditRepo struct{ s *Store }

func (r *auditRepo) Create(ctx context.Context, entry *models.AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entry.ID = int64(len(r.s.audit) + 1)
	r.s.audit = append(r.s.audit, *entry)
	return nil
}

func (r *auditRepo) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var items []models.AuditEntry
	for i := len(r.s.audit) - 1; i >= 0; i-- {
		e := r.s.audit[i]
		if filter.EntityType != "" && e.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			continue
		}
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		items = append(items, e)
	}
	return paginate(items, filter.Skip, filter.Limit), len(items), nil
}
