package repository

import (
	"context"
	"database/sql"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/rs/zerolog"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditEntry) error
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, int, error)
}

type auditRepository struct {
	*PostgresRepository
}

func NewAuditRepository(db *sql.DB, logger zerolog.Logger) AuditRepository {
	return &auditRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	query := `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, old_values, new_values, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		nullString(entry.UserID),
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		nullString(string(entry.OldValues)),
		nullString(string(entry.NewValues)),
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	).Scan(&entry.ID)

	return mapError(err)
}

func (r *auditRepository) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, int, error) {
	var where whereBuilder
	if filter.EntityType != "" {
		where.add("entity_type = %s", filter.EntityType)
	}
	if filter.EntityID != "" {
		where.add("entity_id = %s", filter.EntityID)
	}
	if filter.UserID != "" {
		where.add("user_id = %s", filter.UserID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs `+where.clause(), where.args...).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	limit, args := where.page(filter.Limit, filter.Skip)
	query := `
		SELECT id, user_id, action, entity_type, entity_id, old_values, new_values, ip_address, user_agent, created_at
		FROM audit_logs ` + where.clause() + ` ORDER BY id DESC ` + limit

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	entries := make([]models.AuditEntry, 0)
	for rows.Next() {
		var e models.AuditEntry
		var userID, oldValues, newValues sql.NullString
		err := rows.Scan(
			&e.ID,
			&userID,
			&e.Action,
			&e.EntityType,
			&e.EntityID,
			&oldValues,
			&newValues,
			&e.IPAddress,
			&e.UserAgent,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		e.UserID = userID.String
		if oldValues.Valid {
			e.OldValues = []byte(oldValues.String)
		}
		if newValues.Valid {
			e.NewValues = []byte(newValues.String)
		}
		entries = append(entries, e)
	}

	return entries, total, rows.Err()
}
