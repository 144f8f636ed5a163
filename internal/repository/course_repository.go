package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/rs/zerolog"
)

type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id string) (*models.CourseWithStats, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseWithStats, int, error)
	// Update возвращает ErrCapacityReached, если новая вместимость меньше числа активных записей.
	Update(ctx context.Context, course *models.Course) error
	// Delete возвращает ErrForeignKey, если на курс ссылаются задания или записи.
	Delete(ctx context.Context, id string) error
	Archive(ctx context.Context, id string, at time.Time) error
}

type courseRepository struct {
	*PostgresRepository
}

func NewCourseRepository(db *sql.DB, logger zerolog.Logger) CourseRepository {
	return &courseRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

var courseSort = sortSpec{
	columns: map[string]string{
		"code":       "c.code",
		"title":      "c.title",
		"capacity":   "c.capacity",
		"created_at": "c.created_at",
	},
	fallback: "c.created_at DESC",
	tiebreak: "c.id",
}

const courseSelect = `
	SELECT
		c.id, c.code, c.title, c.description, c.semester, c.credits, c.teacher_id,
		c.capacity, c.is_archived, c.created_at, c.updated_at,
		u.full_name,
		(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id AND e.status = 'active') AS student_count,
		(SELECT COUNT(*) FROM assignments a WHERE a.course_id = c.id) AS assignment_count
	FROM courses c
	JOIN users u ON u.id = c.teacher_id
`

func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	query := `
		INSERT INTO courses (id, code, title, description, semester, credits, teacher_id, capacity, is_archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		course.ID,
		course.Code,
		course.Title,
		course.Description,
		course.Semester,
		course.Credits,
		course.TeacherID,
		course.Capacity,
		course.IsArchived,
		course.CreatedAt,
		course.UpdatedAt,
	)

	return mapError(err)
}

func (r *courseRepository) GetByID(ctx context.Context, id string) (*models.CourseWithStats, error) {
	query := courseSelect + ` WHERE c.id = $1`
	return scanCourse(r.db.QueryRowContext(ctx, query, id))
}

func (r *courseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseWithStats, int, error) {
	order, err := courseSort.orderBy(filter.SortBy, filter.SortOrder)
	if err != nil {
		return nil, 0, err
	}

	var where whereBuilder
	if !filter.IncludeArchived {
		where.addRaw("c.is_archived = FALSE")
	}
	if filter.Search != "" {
		where.add("(c.code ILIKE %[1]s OR c.title ILIKE %[1]s)", containsPattern(filter.Search))
	}
	if filter.Semester != "" {
		where.add("c.semester = %s", filter.Semester)
	}
	if filter.TeacherID != "" {
		where.add("c.teacher_id = %s", filter.TeacherID)
	}
	if filter.StudentID != "" {
		where.add("EXISTS (SELECT 1 FROM enrollments e WHERE e.course_id = c.id AND e.student_id = %s AND e.status = 'active')", filter.StudentID)
	}

	// Получаем общее количество
	var total int
	countQuery := `SELECT COUNT(*) FROM courses c ` + where.clause()
	if err := r.db.QueryRowContext(ctx, countQuery, where.args...).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	// Получаем курсы со статистикой
	limit, args := where.page(filter.Limit, filter.Skip)
	query := courseSelect + where.clause() + " " + order + " " + limit

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	courses := make([]models.CourseWithStats, 0)
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, 0, err
		}
		courses = append(courses, *course)
	}

	return courses, total, rows.Err()
}

func (r *courseRepository) Update(ctx context.Context, course *models.Course) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		// Та же блокировка строки курса, что и при записи студента
		var id string
		err := tx.QueryRowContext(ctx, `SELECT id FROM courses WHERE id = $1 FOR UPDATE`, course.ID).Scan(&id)
		if err != nil {
			return mapError(err)
		}

		var active int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = 'active'`,
			course.ID,
		).Scan(&active)
		if err != nil {
			return err
		}
		if course.Capacity < active {
			return ErrCapacityReached
		}

		query := `
			UPDATE courses
			SET title = $1, description = $2, semester = $3, credits = $4, capacity = $5, is_archived = $6, updated_at = $7
			WHERE id = $8
		`
		res, err := tx.ExecContext(ctx, query,
			course.Title,
			course.Description,
			course.Semester,
			course.Credits,
			course.Capacity,
			course.IsArchived,
			course.UpdatedAt,
			course.ID,
		)
		if err != nil {
			return mapError(err)
		}

		return expectAffected(res, ErrNotFound)
	})
}

func (r *courseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return expectAffected(res, ErrNotFound)
}

func (r *courseRepository) Archive(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE courses SET is_archived = TRUE, updated_at = $2 WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return mapError(err)
	}
	return expectAffected(res, ErrNotFound)
}

func scanCourse(row rowScanner) (*models.CourseWithStats, error) {
	course := &models.CourseWithStats{}
	err := row.Scan(
		&course.ID,
		&course.Code,
		&course.Title,
		&course.Description,
		&course.Semester,
		&course.Credits,
		&course.TeacherID,
		&course.Capacity,
		&course.IsArchived,
		&course.CreatedAt,
		&course.UpdatedAt,
		&course.TeacherName,
		&course.StudentCount,
		&course.AssignmentCount,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return course, nil
}
