package repository

import (
	"context"
	"database/sql"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/rs/zerolog"
)

type AppealRepository interface {
	// Create возвращает ErrDuplicate, если по оценке уже есть открытая апелляция.
	Create(ctx context.Context, appeal *models.Appeal) error
	GetByID(ctx context.Context, id string) (*models.Appeal, error)
	ListByGrade(ctx context.Context, gradeID string) ([]models.Appeal, error)
	// Resolve закрывает только pending-апелляцию, иначе ErrStateChanged.
	Resolve(ctx context.Context, appeal *models.Appeal) error
}

type appealRepository struct {
	*PostgresRepository
}

func NewAppealRepository(db *sql.DB, logger zerolog.Logger) AppealRepository {
	return &appealRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const appealColumns = `id, grade_id, student_id, reason, status, response, resolved_by, resolved_at, created_at`

func (r *appealRepository) Create(ctx context.Context, appeal *models.Appeal) error {
	query := `
		INSERT INTO appeals (id, grade_id, student_id, reason, status, response, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		appeal.ID,
		appeal.GradeID,
		appeal.StudentID,
		appeal.Reason,
		appeal.Status,
		appeal.Response,
		appeal.CreatedAt,
	)

	return mapError(err)
}

func (r *appealRepository) GetByID(ctx context.Context, id string) (*models.Appeal, error) {
	return scanAppeal(r.db.QueryRowContext(ctx, `SELECT `+appealColumns+` FROM appeals WHERE id = $1`, id))
}

func (r *appealRepository) ListByGrade(ctx context.Context, gradeID string) ([]models.Appeal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+appealColumns+` FROM appeals WHERE grade_id = $1 ORDER BY created_at, id`,
		gradeID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	appeals := make([]models.Appeal, 0)
	for rows.Next() {
		appeal, err := scanAppeal(rows)
		if err != nil {
			return nil, err
		}
		appeals = append(appeals, *appeal)
	}

	return appeals, rows.Err()
}

func (r *appealRepository) Resolve(ctx context.Context, appeal *models.Appeal) error {
	query := `
		UPDATE appeals
		SET status = $1, response = $2, resolved_by = $3, resolved_at = $4
		WHERE id = $5 AND status = 'pending'
	`

	var resolvedBy sql.NullString
	if appeal.ResolvedBy != nil {
		resolvedBy = nullString(*appeal.ResolvedBy)
	}

	res, err := r.db.ExecContext(ctx, query,
		appeal.Status,
		appeal.Response,
		resolvedBy,
		nullTime(appeal.ResolvedAt),
		appeal.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return expectAffected(res, ErrStateChanged)
}

func scanAppeal(row rowScanner) (*models.Appeal, error) {
	a := &models.Appeal{}
	var resolvedBy sql.NullString
	var resolvedAt sql.NullTime
	err := row.Scan(
		&a.ID,
		&a.GradeID,
		&a.StudentID,
		&a.Reason,
		&a.Status,
		&a.Response,
		&resolvedBy,
		&resolvedAt,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	if resolvedBy.Valid {
		a.ResolvedBy = &resolvedBy.String
	}
	a.ResolvedAt = timePtr(resolvedAt)
	return a, nil
}
