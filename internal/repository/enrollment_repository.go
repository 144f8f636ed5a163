package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/rs/zerolog"
)

type EnrollmentRepository interface {
	// Enroll вставляет активную запись под блокировкой строки курса.
	// Ошибки: ErrNotFound, ErrArchived, ErrDuplicate, ErrCapacityReached, ErrForeignKey.
	Enroll(ctx context.Context, enrollment *models.Enrollment) error
	IsActive(ctx context.Context, courseID, studentID string) (bool, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentWithStudent, error)
	// SetStatus переводит активную запись в completed или dropped.
	SetStatus(ctx context.Context, courseID, studentID string, status models.EnrollmentStatus, at time.Time) error
}

type enrollmentRepository struct {
	*PostgresRepository
}

func NewEnrollmentRepository(db *sql.DB, logger zerolog.Logger) EnrollmentRepository {
	return &enrollmentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *enrollmentRepository) Enroll(ctx context.Context, enrollment *models.Enrollment) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		// Блокируем курс, чтобы параллельные записи считали места последовательно
		var capacity int
		var archived bool
		err := tx.QueryRowContext(ctx,
			`SELECT capacity, is_archived FROM courses WHERE id = $1 FOR UPDATE`,
			enrollment.CourseID,
		).Scan(&capacity, &archived)
		if err != nil {
			return mapError(err)
		}
		if archived {
			return ErrArchived
		}

		// Дубликат определяет уникальный индекс, а не предварительная проверка
		_, err = tx.ExecContext(ctx, `
			INSERT INTO enrollments (id, course_id, student_id, status, enrolled_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			enrollment.ID,
			enrollment.CourseID,
			enrollment.StudentID,
			enrollment.Status,
			enrollment.EnrolledAt,
			enrollment.UpdatedAt,
		)
		if err != nil {
			return mapError(err)
		}

		var active int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = 'active'`,
			enrollment.CourseID,
		).Scan(&active)
		if err != nil {
			return err
		}
		if active > capacity {
			return ErrCapacityReached
		}

		return nil
	})
}

func (r *enrollmentRepository) IsActive(ctx context.Context, courseID, studentID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM enrollments
			WHERE course_id = $1 AND student_id = $2 AND status = 'active'
		)
	`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, courseID, studentID).Scan(&exists)
	return exists, mapError(err)
}

func (r *enrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentWithStudent, error) {
	query := `
		SELECT e.id, e.course_id, e.student_id, e.status, e.enrolled_at, e.updated_at,
			u.full_name, u.email, u.group_name
		FROM enrollments e
		JOIN users u ON u.id = e.student_id
		WHERE e.course_id = $1 AND e.status = 'active'
		ORDER BY u.full_name, e.id
	`

	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	enrollments := make([]models.EnrollmentWithStudent, 0)
	for rows.Next() {
		var e models.EnrollmentWithStudent
		err := rows.Scan(
			&e.ID,
			&e.CourseID,
			&e.StudentID,
			&e.Status,
			&e.EnrolledAt,
			&e.UpdatedAt,
			&e.StudentName,
			&e.StudentEmail,
			&e.GroupName,
		)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}

	return enrollments, rows.Err()
}

func (r *enrollmentRepository) SetStatus(ctx context.Context, courseID, studentID string, status models.EnrollmentStatus, at time.Time) error {
	query := `
		UPDATE enrollments SET status = $1, updated_at = $2
		WHERE course_id = $3 AND student_id = $4 AND status = 'active'
	`

	res, err := r.db.ExecContext(ctx, query, status, at, courseID, studentID)
	if err != nil {
		return mapError(err)
	}
	return expectAffected(res, ErrNotFound)
}
