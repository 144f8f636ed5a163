package repository

import (
	"context"
	"database/sql"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/rs/zerolog"
)

type GradeRepository interface {
	// Create вставляет оценку и переводит работу в graded одной транзакцией.
	// Повторная оценка той же работы даёт ErrDuplicate.
	Create(ctx context.Context, grade *models.Grade) error
	GetByID(ctx context.Context, id string) (*models.GradeWithContext, error)
	Update(ctx context.Context, grade *models.Grade) error
	ListByStudentCourse(ctx context.Context, studentID, courseID string) ([]models.GradeWithContext, error)
}

type gradeRepository struct {
	*PostgresRepository
}

func NewGradeRepository(db *sql.DB, logger zerolog.Logger) GradeRepository {
	return &gradeRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const gradeSelect = `
	SELECT
		g.id, g.submission_id, g.score, g.max_score, g.criteria_scores, g.comments,
		g.graded_by, g.graded_at, g.last_modified,
		s.student_id, s.assignment_id, a.course_id, c.teacher_id
	FROM grades g
	JOIN submissions s ON s.id = g.submission_id
	JOIN assignments a ON a.id = s.assignment_id
	JOIN courses c ON c.id = a.course_id
`

func (r *gradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO grades (id, submission_id, score, max_score, criteria_scores, comments, graded_by, graded_at, last_modified)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			grade.ID,
			grade.SubmissionID,
			grade.Score,
			grade.MaxScore,
			grade.CriteriaScores,
			grade.Comments,
			grade.GradedBy,
			grade.GradedAt,
			grade.LastModified,
		)
		if err != nil {
			return mapError(err)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE submissions SET status = 'graded', updated_at = $2
			WHERE id = $1 AND status IN ('submitted', 'late')
		`, grade.SubmissionID, grade.GradedAt)
		if err != nil {
			return mapError(err)
		}
		return expectAffected(res, ErrStateChanged)
	})
}

func (r *gradeRepository) GetByID(ctx context.Context, id string) (*models.GradeWithContext, error) {
	return scanGrade(r.db.QueryRowContext(ctx, gradeSelect+` WHERE g.id = $1`, id))
}

func (r *gradeRepository) Update(ctx context.Context, grade *models.Grade) error {
	query := `
		UPDATE grades
		SET score = $1, criteria_scores = $2, comments = $3, last_modified = $4
		WHERE id = $5
	`

	res, err := r.db.ExecContext(ctx, query,
		grade.Score,
		grade.CriteriaScores,
		grade.Comments,
		grade.LastModified,
		grade.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return expectAffected(res, ErrNotFound)
}

func (r *gradeRepository) ListByStudentCourse(ctx context.Context, studentID, courseID string) ([]models.GradeWithContext, error) {
	query := gradeSelect + ` WHERE s.student_id = $1 AND a.course_id = $2 ORDER BY g.graded_at, g.id`

	rows, err := r.db.QueryContext(ctx, query, studentID, courseID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	grades := make([]models.GradeWithContext, 0)
	for rows.Next() {
		grade, err := scanGrade(rows)
		if err != nil {
			return nil, err
		}
		grades = append(grades, *grade)
	}

	return grades, rows.Err()
}

func scanGrade(row rowScanner) (*models.GradeWithContext, error) {
	g := &models.GradeWithContext{}
	err := row.Scan(
		&g.ID,
		&g.SubmissionID,
		&g.Score,
		&g.MaxScore,
		&g.CriteriaScores,
		&g.Comments,
		&g.GradedBy,
		&g.GradedAt,
		&g.LastModified,
		&g.StudentID,
		&g.AssignmentID,
		&g.CourseID,
		&g.TeacherID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return g, nil
}
