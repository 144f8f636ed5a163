package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/rs/zerolog"
)

type SubmissionRepository interface {
	// Create возвращает ErrDuplicate, если версия уже занята параллельной сдачей.
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id string) (*models.SubmissionWithDetails, error)
	// LatestVersion возвращает 0, если студент ещё не сдавал задание.
	LatestVersion(ctx context.Context, assignmentID, studentID string) (int, error)
	ListByAssignment(ctx context.Context, filter models.SubmissionFilter) ([]models.SubmissionWithDetails, int, error)
	// UpdateStatus меняет статус только из ожидаемого, иначе ErrStateChanged.
	UpdateStatus(ctx context.Context, id string, from, to models.SubmissionStatus, at time.Time) error
	// Delete возвращает ErrForeignKey, если на работу ссылается оценка.
	Delete(ctx context.Context, id string) error
}

type submissionRepository struct {
	*PostgresRepository
}

func NewSubmissionRepository(db *sql.DB, logger zerolog.Logger) SubmissionRepository {
	return &submissionRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const submissionSelect = `
	SELECT
		s.id, s.assignment_id, s.student_id, s.file_path, s.file_name, s.file_size, s.mime_type,
		s.checksum, s.comment, s.version, s.is_late, s.status, s.submitted_at, s.updated_at,
		u.full_name, a.title, a.course_id, c.teacher_id
	FROM submissions s
	JOIN users u ON u.id = s.student_id
	JOIN assignments a ON a.id = s.assignment_id
	JOIN courses c ON c.id = a.course_id
`

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	query := `
		INSERT INTO submissions (
			id, assignment_id, student_id, file_path, file_name, file_size, mime_type,
			checksum, comment, version, is_late, status, submitted_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		submission.ID,
		submission.AssignmentID,
		submission.StudentID,
		submission.FilePath,
		submission.FileName,
		submission.FileSize,
		submission.MimeType,
		submission.Checksum,
		submission.Comment,
		submission.Version,
		submission.IsLate,
		submission.Status,
		submission.SubmittedAt,
		submission.UpdatedAt,
	)

	return mapError(err)
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (*models.SubmissionWithDetails, error) {
	return scanSubmission(r.db.QueryRowContext(ctx, submissionSelect+` WHERE s.id = $1`, id))
}

func (r *submissionRepository) LatestVersion(ctx context.Context, assignmentID, studentID string) (int, error) {
	query := `
		SELECT COALESCE(MAX(version), 0) FROM submissions
		WHERE assignment_id = $1 AND student_id = $2
	`
	var version int
	err := r.db.QueryRowContext(ctx, query, assignmentID, studentID).Scan(&version)
	return version, mapError(err)
}

func (r *submissionRepository) ListByAssignment(ctx context.Context, filter models.SubmissionFilter) ([]models.SubmissionWithDetails, int, error) {
	var where whereBuilder
	where.add("s.assignment_id = %s", filter.AssignmentID)
	if filter.StudentID != "" {
		where.add("s.student_id = %s", filter.StudentID)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM submissions s ` + where.clause()
	if err := r.db.QueryRowContext(ctx, countQuery, where.args...).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	limit, args := where.page(filter.Limit, filter.Skip)
	query := submissionSelect + where.clause() + " ORDER BY s.submitted_at DESC, s.id " + limit

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	submissions := make([]models.SubmissionWithDetails, 0)
	for rows.Next() {
		submission, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, err
		}
		submissions = append(submissions, *submission)
	}

	return submissions, total, rows.Err()
}

func (r *submissionRepository) UpdateStatus(ctx context.Context, id string, from, to models.SubmissionStatus, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE submissions SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, at, id, from,
	)
	if err != nil {
		return mapError(err)
	}
	return expectAffected(res, ErrStateChanged)
}

func (r *submissionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return expectAffected(res, ErrNotFound)
}

func scanSubmission(row rowScanner) (*models.SubmissionWithDetails, error) {
	s := &models.SubmissionWithDetails{}
	err := row.Scan(
		&s.ID,
		&s.AssignmentID,
		&s.StudentID,
		&s.FilePath,
		&s.FileName,
		&s.FileSize,
		&s.MimeType,
		&s.Checksum,
		&s.Comment,
		&s.Version,
		&s.IsLate,
		&s.Status,
		&s.SubmittedAt,
		&s.UpdatedAt,
		&s.StudentName,
		&s.AssignmentTitle,
		&s.CourseID,
		&s.TeacherID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return s, nil
}
