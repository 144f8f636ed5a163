package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/rs/zerolog"
)

type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id string) (*models.AssignmentWithStats, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentWithStats, int, error)
	// Publish проставляет published_at один раз и возвращает итоговое значение.
	Publish(ctx context.Context, id string, at time.Time) (time.Time, error)
}

type assignmentRepository struct {
	*PostgresRepository
}

func NewAssignmentRepository(db *sql.DB, logger zerolog.Logger) AssignmentRepository {
	return &assignmentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

var assignmentSort = sortSpec{
	columns: map[string]string{
		"title":        "a.title",
		"due_date":     "a.due_date",
		"max_score":    "a.max_score",
		"published_at": "a.published_at",
		"created_at":   "a.created_at",
	},
	fallback: "a.due_date ASC",
	tiebreak: "a.id",
}

const assignmentSelect = `
	SELECT
		a.id, a.course_id, a.title, a.description, a.type, a.max_score, a.weight, a.due_date,
		a.published_at, a.allow_resubmission, a.max_resubmissions, a.rubric, a.created_by,
		a.created_at, a.updated_at,
		c.teacher_id, c.is_archived,
		(SELECT COUNT(*) FROM submissions s WHERE s.assignment_id = a.id) AS submissions_count,
		(SELECT COUNT(*) FROM submissions s WHERE s.assignment_id = a.id AND s.status IN ('graded', 'returned')) AS graded_count
	FROM assignments a
	JOIN courses c ON c.id = a.course_id
`

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	query := `
		INSERT INTO assignments (
			id, course_id, title, description, type, max_score, weight, due_date, published_at,
			allow_resubmission, max_resubmissions, rubric, created_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.ExecContext(ctx, query,
		assignment.ID,
		assignment.CourseID,
		assignment.Title,
		assignment.Description,
		assignment.Type,
		assignment.MaxScore,
		assignment.Weight,
		assignment.DueDate,
		nullTime(assignment.PublishedAt),
		assignment.AllowResubmission,
		assignment.MaxResubmissions,
		assignment.Rubric,
		assignment.CreatedBy,
		assignment.CreatedAt,
		assignment.UpdatedAt,
	)

	return mapError(err)
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (*models.AssignmentWithStats, error) {
	return scanAssignment(r.db.QueryRowContext(ctx, assignmentSelect+` WHERE a.id = $1`, id))
}

func (r *assignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentWithStats, int, error) {
	order, err := assignmentSort.orderBy(filter.SortBy, filter.SortOrder)
	if err != nil {
		return nil, 0, err
	}

	var where whereBuilder
	if filter.CourseID != "" {
		where.add("a.course_id = %s", filter.CourseID)
	}
	if filter.PublishedOnly {
		where.add("(a.published_at IS NOT NULL AND a.published_at <= %s)", filter.PublishedBefore)
	}
	if filter.TeacherID != "" {
		where.add("c.teacher_id = %s", filter.TeacherID)
	}
	if filter.EnrolledStudentID != "" {
		where.add("EXISTS (SELECT 1 FROM enrollments e WHERE e.course_id = a.course_id AND e.student_id = %s AND e.status = 'active')", filter.EnrolledStudentID)
	}

	// Получаем общее количество
	var total int
	countQuery := `SELECT COUNT(*) FROM assignments a JOIN courses c ON c.id = a.course_id ` + where.clause()
	if err := r.db.QueryRowContext(ctx, countQuery, where.args...).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	// Получаем задания со статистикой
	limit, args := where.page(filter.Limit, filter.Skip)
	rows, err := r.db.QueryContext(ctx, assignmentSelect+where.clause()+" "+order+" "+limit, args...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	assignments := make([]models.AssignmentWithStats, 0)
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, 0, err
		}
		assignments = append(assignments, *assignment)
	}

	return assignments, total, rows.Err()
}

func (r *assignmentRepository) Publish(ctx context.Context, id string, at time.Time) (time.Time, error) {
	query := `
		UPDATE assignments
		SET published_at = COALESCE(published_at, $2), updated_at = $2
		WHERE id = $1
		RETURNING published_at
	`

	var publishedAt time.Time
	if err := r.db.QueryRowContext(ctx, query, id, at).Scan(&publishedAt); err != nil {
		return time.Time{}, mapError(err)
	}
	return publishedAt, nil
}

func scanAssignment(row rowScanner) (*models.AssignmentWithStats, error) {
	a := &models.AssignmentWithStats{}
	var publishedAt sql.NullTime
	err := row.Scan(
		&a.ID,
		&a.CourseID,
		&a.Title,
		&a.Description,
		&a.Type,
		&a.MaxScore,
		&a.Weight,
		&a.DueDate,
		&publishedAt,
		&a.AllowResubmission,
		&a.MaxResubmissions,
		&a.Rubric,
		&a.CreatedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.CourseTeacherID,
		&a.CourseArchived,
		&a.SubmissionsCount,
		&a.GradedCount,
	)
	if err != nil {
		return nil, mapError(err)
	}
	a.PublishedAt = timePtr(publishedAt)
	return a, nil
}
