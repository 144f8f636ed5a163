package service

import (
	"context"
	"encoding/json"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/RubachokBoss/edugrader/internal/policy"
	"github.com/RubachokBoss/edugrader/internal/repository"
	"github.com/rs/zerolog"
)

type AuditService interface {
	List(ctx context.Context, p models.Principal, filter models.AuditFilter) (*models.AuditResponse, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
	logger    zerolog.Logger
}

func NewAuditService(auditRepo repository.AuditRepository, logger zerolog.Logger) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

func (s *auditService) List(ctx context.Context, p models.Principal, filter models.AuditFilter) (*models.AuditResponse, error) {
	if !policy.CanViewAudit(p) {
		return nil, forbidden("only administrators can view the audit log")
	}

	entries, total, err := s.auditRepo.List(ctx, filter)
	if err != nil {
		return nil, repoError(err, "audit log", "list")
	}
	if entries == nil {
		entries = make([]models.AuditEntry, 0)
	}

	return &models.AuditResponse{
		Entries: entries,
		Total:   total,
		Skip:    filter.Skip,
		Limit:   filter.Limit,
	}, nil
}

// auditor пишет журнал аудита. Ошибки только логируются: аудит не должен
// ломать основную операцию.
type auditor struct {
	repo   repository.AuditRepository
	logger zerolog.Logger
}

func newAuditor(repo repository.AuditRepository, logger zerolog.Logger) *auditor {
	return &auditor{repo: repo, logger: logger}
}

func (a *auditor) record(ctx context.Context, actorID, action, entityType, entityID string, oldValues, newValues interface{}) {
	info := clientInfoFrom(ctx)
	entry := &models.AuditEntry{
		UserID:     actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		OldValues:  a.marshal(oldValues),
		NewValues:  a.marshal(newValues),
		IPAddress:  info.IPAddress,
		UserAgent:  info.UserAgent,
		CreatedAt:  now(),
	}

	// Контекст запроса может быть уже отменён, запись делаем в своём
	if err := a.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		a.logger.Error().Err(err).
			Str("action", action).
			Str("entity_type", entityType).
			Str("entity_id", entityID).
			Msg("Failed to write audit log")
	}
}

func (a *auditor) marshal(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to marshal audit values")
		return nil
	}
	return data
}
