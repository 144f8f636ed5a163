package service

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/RubachokBoss/edugrader/internal/policy"
	"github.com/RubachokBoss/edugrader/internal/repository"
	"github.com/RubachokBoss/edugrader/internal/service/integration"
	"github.com/RubachokBoss/edugrader/internal/storage"
	"github.com/RubachokBoss/edugrader/pkg/hash"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const entitySubmission = "submission"

type SubmissionService interface {
	Submit(ctx context.Context, p models.Principal, req *models.SubmitRequest) (*models.Submission, error)
	Get(ctx context.Context, p models.Principal, id string) (*models.SubmissionWithDetails, error)
	ListByAssignment(ctx context.Context, p models.Principal, assignmentID string, skip, limit int) (*models.SubmissionsResponse, error)
	// Return переводит оценённую работу в returned.
	Return(ctx context.Context, p models.Principal, id string) (*models.SubmissionWithDetails, error)
	Delete(ctx context.Context, p models.Principal, id string) error
}

type submissionService struct {
	submissionRepo repository.SubmissionRepository
	assignmentRepo repository.AssignmentRepository
	enrollmentRepo repository.EnrollmentRepository
	storage        storage.Storage
	validator      *storage.Validator
	hasher         hash.Hasher
	notifier       integration.Notifier
	audit          *auditor
	logger         zerolog.Logger
}

func NewSubmissionService(
	submissionRepo repository.SubmissionRepository,
	assignmentRepo repository.AssignmentRepository,
	enrollmentRepo repository.EnrollmentRepository,
	auditRepo repository.AuditRepository,
	fileStorage storage.Storage,
	validator *storage.Validator,
	hasher hash.Hasher,
	notifier integration.Notifier,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		submissionRepo: submissionRepo,
		assignmentRepo: assignmentRepo,
		enrollmentRepo: enrollmentRepo,
		storage:        fileStorage,
		validator:      validator,
		hasher:         hasher,
		notifier:       notifier,
		audit:          newAuditor(auditRepo, logger),
		logger:         logger,
	}
}

func (s *submissionService) Submit(ctx context.Context, p models.Principal, req *models.SubmitRequest) (*models.Submission, error) {
	if p.Role != models.RoleStudent {
		return nil, forbidden("only students can submit work")
	}
	if req.AssignmentID == "" {
		return nil, validationError("assignment_id is required")
	}

	// Задание должно быть видно студенту
	assignment, err := s.assignmentRepo.GetByID(ctx, req.AssignmentID)
	if err != nil {
		return nil, repoError(err, entityAssignment, "get")
	}
	submittedAt := now()
	if !assignment.IsPublished(submittedAt) {
		return nil, notFound(entityAssignment)
	}

	// Проверяем запись на курс
	enrolled, err := s.enrollmentRepo.IsActive(ctx, assignment.CourseID, p.UserID)
	if err != nil {
		return nil, repoError(err, "enrollment", "check")
	}
	if !policy.CanSubmit(p, enrolled) {
		return nil, forbidden("you are not enrolled in this course")
	}
	if assignment.CourseArchived {
		return nil, conflict("course is archived")
	}

	// Проверяем файл
	fileName := filepath.Base(strings.TrimSpace(req.FileName))
	if err := checkLength("file name", fileName, models.MaxFileNameLength); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(fileName, int64(len(req.Content))); err != nil {
		return nil, validationError("%s", err.Error())
	}

	// Проверяем правило пересдачи
	latest, err := s.submissionRepo.LatestVersion(ctx, assignment.ID, p.UserID)
	if err != nil {
		return nil, repoError(err, entitySubmission, "get latest version of")
	}
	version, ok := assignment.NextVersion(latest)
	if !ok {
		if !assignment.AllowResubmission {
			return nil, conflict("resubmission is not allowed for this assignment")
		}
		return nil, conflict("maximum of %d submissions reached", assignment.MaxResubmissions)
	}

	checksum, err := s.hasher.Sum(req.Content)
	if err != nil {
		return nil, err
	}

	// Сохраняем файл
	key := storage.SubmissionKey(assignment.CourseID, assignment.ID, p.UserID, fileName, submittedAt)
	mimeType := storage.DetectMimeType(fileName, req.Content)
	if err := s.storage.Save(ctx, key, req.Content, mimeType); err != nil {
		return nil, err
	}

	isLate := assignment.IsLate(submittedAt)
	submission := &models.Submission{
		ID:           uuid.New().String(),
		AssignmentID: assignment.ID,
		StudentID:    p.UserID,
		FilePath:     key,
		FileName:     fileName,
		FileSize:     int64(len(req.Content)),
		MimeType:     mimeType,
		Checksum:     checksum,
		Comment:      strings.TrimSpace(req.Comment),
		Version:      version,
		IsLate:       isLate,
		Status:       models.InitialSubmissionStatus(isLate),
		SubmittedAt:  submittedAt,
		UpdatedAt:    submittedAt,
	}

	if err := s.submissionRepo.Create(ctx, submission); err != nil {
		// Запись не создана: удаляем файл, чтобы не оставлять сирот
		s.removeFile(ctx, key)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("version %d was submitted concurrently", version)
		}
		return nil, repoError(err, entitySubmission, "create")
	}

	s.notifier.Notify(ctx, &models.Event{
		Type:      models.EventSubmissionReceived,
		EntityID:  submission.ID,
		CourseID:  assignment.CourseID,
		ActorID:   p.UserID,
		Recipient: assignment.CourseTeacherID,
		Data: map[string]string{
			"assignment_id": assignment.ID,
			"version":       strconv.Itoa(version),
			"is_late":       strconv.FormatBool(isLate),
		},
		Timestamp: submittedAt.Unix(),
	})

	s.logger.Info().
		Str("submission_id", submission.ID).
		Str("assignment_id", assignment.ID).
		Str("student_id", p.UserID).
		Int("version", version).
		Bool("is_late", isLate).
		Str("storage", s.storage.Provider()).
		Msg("Submission received")

	return submission, nil
}

func (s *submissionService) Get(ctx context.Context, p models.Principal, id string) (*models.SubmissionWithDetails, error) {
	submission, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewSubmission(p, submission.StudentID, submission.TeacherID) {
		return nil, forbidden("you do not have access to this submission")
	}
	return submission, nil
}

func (s *submissionService) ListByAssignment(ctx context.Context, p models.Principal, assignmentID string, skip, limit int) (*models.SubmissionsResponse, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, repoError(err, entityAssignment, "get")
	}

	filter := models.SubmissionFilter{
		AssignmentID: assignmentID,
		Skip:         skip,
		Limit:        limit,
	}

	// Студент видит только свои работы
	switch p.Role {
	case models.RoleAdmin:
	case models.RoleTeacher:
		if !policy.CanManageAssignment(p, assignment.CourseTeacherID) {
			return nil, forbidden("you do not have access to this assignment")
		}
	case models.RoleStudent:
		if !assignment.IsPublished(now()) {
			return nil, notFound(entityAssignment)
		}
		filter.StudentID = p.UserID
	default:
		return nil, forbidden("unknown role")
	}

	submissions, total, err := s.submissionRepo.ListByAssignment(ctx, filter)
	if err != nil {
		return nil, repoError(err, entitySubmission, "list")
	}
	if submissions == nil {
		submissions = make([]models.SubmissionWithDetails, 0)
	}

	return &models.SubmissionsResponse{
		Submissions: submissions,
		Total:       total,
		Skip:        skip,
		Limit:       limit,
	}, nil
}

func (s *submissionService) Return(ctx context.Context, p models.Principal, id string) (*models.SubmissionWithDetails, error) {
	submission, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanGrade(p, submission.TeacherID) {
		return nil, forbidden("only the course teacher or an administrator can return work")
	}
	if !submission.Status.CanTransitionTo(models.SubmissionReturned) {
		return nil, conflict("submission in status %s cannot be returned", submission.Status)
	}

	if err := s.submissionRepo.UpdateStatus(ctx, id, submission.Status, models.SubmissionReturned, now()); err != nil {
		return nil, repoError(err, entitySubmission, "return")
	}

	s.audit.record(ctx, p.UserID, models.AuditReturn, entitySubmission, id,
		map[string]string{"status": submission.Status.String()},
		map[string]string{"status": models.SubmissionReturned.String()})

	s.logger.Info().
		Str("submission_id", id).
		Msg("Submission returned")

	return s.get(ctx, id)
}

func (s *submissionService) Delete(ctx context.Context, p models.Principal, id string) error {
	submission, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDeleteSubmission(p, submission.StudentID) {
		return forbidden("only the author or an administrator can delete a submission")
	}

	// Оценку и апелляции каскадно не удаляем
	if err := s.submissionRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			return conflict("graded submission cannot be deleted")
		}
		return repoError(err, entitySubmission, "delete")
	}

	s.removeFile(ctx, submission.FilePath)
	s.audit.record(ctx, p.UserID, models.AuditDelete, entitySubmission, id, submission.Submission, nil)

	s.logger.Info().
		Str("submission_id", id).
		Msg("Submission deleted")

	return nil
}

func (s *submissionService) removeFile(ctx context.Context, key string) {
	if err := s.storage.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Error().Err(err).
			Str("key", key).
			Msg("Failed to remove stored file")
	}
}

func (s *submissionService) get(ctx context.Context, id string) (*models.SubmissionWithDetails, error) {
	submission, err := s.submissionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, entitySubmission, "get")
	}
	return submission, nil
}
