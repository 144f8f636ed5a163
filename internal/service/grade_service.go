package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/RubachokBoss/edugrader/internal/policy"
	"github.com/RubachokBoss/edugrader/internal/repository"
	"github.com/RubachokBoss/edugrader/internal/service/integration"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	entityGrade  = "grade"
	entityAppeal = "appeal"
)

type GradeService interface {
	Create(ctx context.Context, p models.Principal, req *models.CreateGradeRequest) (*models.GradeWithContext, error)
	Get(ctx context.Context, p models.Principal, id string) (*models.GradeWithContext, error)
	Update(ctx context.Context, p models.Principal, id string, req *models.UpdateGradeRequest) (*models.GradeWithContext, error)
	ListForStudentCourse(ctx context.Context, p models.Principal, studentID, courseID string) ([]models.GradeWithContext, error)

	Appeal(ctx context.Context, p models.Principal, gradeID string, req *models.CreateAppealRequest) (*models.Appeal, error)
	ListAppeals(ctx context.Context, p models.Principal, gradeID string) ([]models.Appeal, error)
	ResolveAppeal(ctx context.Context, p models.Principal, appealID string, req *models.ResolveAppealRequest) (*models.Appeal, error)
}

type gradeService struct {
	gradeRepo      repository.GradeRepository
	submissionRepo repository.SubmissionRepository
	assignmentRepo repository.AssignmentRepository
	courseRepo     repository.CourseRepository
	appealRepo     repository.AppealRepository
	notifier       integration.Notifier
	audit          *auditor
	logger         zerolog.Logger
}

func NewGradeService(
	gradeRepo repository.GradeRepository,
	submissionRepo repository.SubmissionRepository,
	assignmentRepo repository.AssignmentRepository,
	courseRepo repository.CourseRepository,
	appealRepo repository.AppealRepository,
	auditRepo repository.AuditRepository,
	notifier integration.Notifier,
	logger zerolog.Logger,
) GradeService {
	return &gradeService{
		gradeRepo:      gradeRepo,
		submissionRepo: submissionRepo,
		assignmentRepo: assignmentRepo,
		courseRepo:     courseRepo,
		appealRepo:     appealRepo,
		notifier:       notifier,
		audit:          newAuditor(auditRepo, logger),
		logger:         logger,
	}
}

func (s *gradeService) Create(ctx context.Context, p models.Principal, req *models.CreateGradeRequest) (*models.GradeWithContext, error) {
	if req.SubmissionID == "" {
		return nil, validationError("submission_id is required")
	}

	submission, err := s.submissionRepo.GetByID(ctx, req.SubmissionID)
	if err != nil {
		return nil, repoError(err, entitySubmission, "get")
	}
	if !policy.CanGrade(p, submission.TeacherID) {
		return nil, forbidden("only the course teacher or an administrator can grade this submission")
	}
	if !submission.Status.CanTransitionTo(models.SubmissionGraded) {
		return nil, conflict("submission is already graded")
	}

	assignment, err := s.assignmentRepo.GetByID(ctx, submission.AssignmentID)
	if err != nil {
		return nil, repoError(err, entityAssignment, "get")
	}

	score, err := computeScore(&assignment.Assignment, req.Score, req.CriteriaScores)
	if err != nil {
		return nil, err
	}

	ts := now()
	grade := &models.Grade{
		ID:             uuid.New().String(),
		SubmissionID:   submission.ID,
		Score:          score,
		MaxScore:       assignment.MaxScore,
		CriteriaScores: req.CriteriaScores,
		Comments:       strings.TrimSpace(req.Comments),
		GradedBy:       p.UserID,
		GradedAt:       ts,
		LastModified:   ts,
	}

	// Уникальный индекс по submission_id решает гонку двух проверяющих
	if err := s.gradeRepo.Create(ctx, grade); err != nil {
		if errors.Is(err, repository.ErrDuplicate) || errors.Is(err, repository.ErrStateChanged) {
			return nil, conflict("submission is already graded")
		}
		return nil, repoError(err, entityGrade, "create")
	}

	s.audit.record(ctx, p.UserID, models.AuditCreate, entityGrade, grade.ID, nil, grade)
	s.notifyGrade(ctx, p, grade, submission.StudentID, submission.CourseID, false)

	s.logger.Info().
		Str("grade_id", grade.ID).
		Str("submission_id", submission.ID).
		Float64("score", grade.Score).
		Float64("max_score", grade.MaxScore).
		Msg("Submission graded")

	return s.get(ctx, grade.ID)
}

// computeScore: при заданных критериях итог равен их сумме, иначе берётся score.
func computeScore(a *models.Assignment, score *float64, criteria models.CriteriaScores) (float64, error) {
	var total float64
	switch {
	case len(criteria) > 0:
		sum, err := a.Rubric.Score(criteria)
		if err != nil {
			return 0, validationError("%s", err.Error())
		}
		if score != nil && math.Abs(*score-sum) > 1e-9 {
			return 0, validationError("score %.2f does not match the criteria total %.2f", *score, sum)
		}
		total = sum
	case score != nil:
		total = *score
	default:
		return 0, validationError("score or criteria_scores is required")
	}

	if math.IsNaN(total) || total < 0 || total > a.MaxScore {
		return 0, validationError("score must be within 0..%.2f", a.MaxScore)
	}
	return total, nil
}

func (s *gradeService) Get(ctx context.Context, p models.Principal, id string) (*models.GradeWithContext, error) {
	grade, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewGrade(p, grade.StudentID, grade.TeacherID) {
		return nil, forbidden("you do not have access to this grade")
	}
	return grade, nil
}

func (s *gradeService) Update(ctx context.Context, p models.Principal, id string, req *models.UpdateGradeRequest) (*models.GradeWithContext, error) {
	current, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanGrade(p, current.TeacherID) {
		return nil, forbidden("only the course teacher or an administrator can change this grade")
	}
	if req.Score == nil && len(req.CriteriaScores) == 0 && req.Comments == nil {
		return nil, validationError("nothing to update")
	}

	updated := current.Grade
	if req.Score != nil || len(req.CriteriaScores) > 0 {
		assignment, err := s.assignmentRepo.GetByID(ctx, current.AssignmentID)
		if err != nil {
			return nil, repoError(err, entityAssignment, "get")
		}
		score, err := computeScore(&assignment.Assignment, req.Score, req.CriteriaScores)
		if err != nil {
			return nil, err
		}
		updated.Score = score
		// Новый итог без разбивки делает старую разбивку недействительной
		updated.CriteriaScores = req.CriteriaScores
	}
	if req.Comments != nil {
		updated.Comments = strings.TrimSpace(*req.Comments)
	}
	updated.LastModified = now()

	if err := s.gradeRepo.Update(ctx, &updated); err != nil {
		return nil, repoError(err, entityGrade, "update")
	}

	s.audit.record(ctx, p.UserID, models.AuditUpdate, entityGrade, id, current.Grade, updated)
	s.notifyGrade(ctx, p, &updated, current.StudentID, current.CourseID, true)

	s.logger.Info().
		Str("grade_id", id).
		Float64("old_score", current.Score).
		Float64("new_score", updated.Score).
		Msg("Grade updated")

	return s.get(ctx, id)
}

func (s *gradeService) ListForStudentCourse(ctx context.Context, p models.Principal, studentID, courseID string) ([]models.GradeWithContext, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, repoError(err, entityCourse, "get")
	}
	if !policy.CanViewGrade(p, studentID, course.TeacherID) {
		return nil, forbidden("you do not have access to these grades")
	}

	grades, err := s.gradeRepo.ListByStudentCourse(ctx, studentID, courseID)
	if err != nil {
		return nil, repoError(err, entityGrade, "list")
	}
	if grades == nil {
		grades = make([]models.GradeWithContext, 0)
	}
	return grades, nil
}

func (s *gradeService) Appeal(ctx context.Context, p models.Principal, gradeID string, req *models.CreateAppealRequest) (*models.Appeal, error) {
	grade, err := s.get(ctx, gradeID)
	if err != nil {
		return nil, err
	}
	if !policy.CanAppeal(p, grade.StudentID) {
		return nil, forbidden("only the student who received the grade can appeal it")
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, validationError("reason is required")
	}

	appeal := &models.Appeal{
		ID:        uuid.New().String(),
		GradeID:   gradeID,
		StudentID: p.UserID,
		Reason:    reason,
		Status:    models.AppealPending,
		CreatedAt: now(),
	}

	if err := s.appealRepo.Create(ctx, appeal); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("grade already has a pending appeal")
		}
		return nil, repoError(err, entityAppeal, "create")
	}

	s.audit.record(ctx, p.UserID, models.AuditCreate, entityAppeal, appeal.ID, nil, appeal)
	s.notifier.Notify(ctx, &models.Event{
		Type:      models.EventAppealFiled,
		EntityID:  appeal.ID,
		CourseID:  grade.CourseID,
		ActorID:   p.UserID,
		Recipient: grade.TeacherID,
		Data:      map[string]string{"grade_id": gradeID},
		Timestamp: appeal.CreatedAt.Unix(),
	})

	s.logger.Info().
		Str("appeal_id", appeal.ID).
		Str("grade_id", gradeID).
		Msg("Appeal filed")

	return appeal, nil
}

func (s *gradeService) ListAppeals(ctx context.Context, p models.Principal, gradeID string) ([]models.Appeal, error) {
	grade, err := s.get(ctx, gradeID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewGrade(p, grade.StudentID, grade.TeacherID) {
		return nil, forbidden("you do not have access to this grade")
	}

	appeals, err := s.appealRepo.ListByGrade(ctx, gradeID)
	if err != nil {
		return nil, repoError(err, entityAppeal, "list")
	}
	if appeals == nil {
		appeals = make([]models.Appeal, 0)
	}
	return appeals, nil
}

func (s *gradeService) ResolveAppeal(ctx context.Context, p models.Principal, appealID string, req *models.ResolveAppealRequest) (*models.Appeal, error) {
	if !req.Status.IsResolution() {
		return nil, validationError("status must be approved or rejected")
	}

	appeal, err := s.appealRepo.GetByID(ctx, appealID)
	if err != nil {
		return nil, repoError(err, entityAppeal, "get")
	}
	grade, err := s.get(ctx, appeal.GradeID)
	if err != nil {
		return nil, err
	}
	if !policy.CanGrade(p, grade.TeacherID) {
		return nil, forbidden("only the course teacher or an administrator can resolve appeals")
	}
	if appeal.Status != models.AppealPending {
		return nil, conflict("appeal is already %s", appeal.Status)
	}

	before := *appeal
	resolvedAt := now()
	resolvedBy := p.UserID
	appeal.Status = req.Status
	appeal.Response = strings.TrimSpace(req.Response)
	appeal.ResolvedBy = &resolvedBy
	appeal.ResolvedAt = &resolvedAt

	if err := s.appealRepo.Resolve(ctx, appeal); err != nil {
		if errors.Is(err, repository.ErrStateChanged) {
			return nil, conflict("appeal was resolved concurrently")
		}
		return nil, repoError(err, entityAppeal, "resolve")
	}

	s.audit.record(ctx, p.UserID, models.AuditResolve, entityAppeal, appealID, before, appeal)
	s.notifier.Notify(ctx, &models.Event{
		Type:      models.EventAppealResolved,
		EntityID:  appealID,
		CourseID:  grade.CourseID,
		ActorID:   p.UserID,
		Recipient: appeal.StudentID,
		Data: map[string]string{
			"grade_id": grade.ID,
			"status":   string(appeal.Status),
		},
		Timestamp: resolvedAt.Unix(),
	})

	s.logger.Info().
		Str("appeal_id", appealID).
		Str("status", string(appeal.Status)).
		Msg("Appeal resolved")

	return appeal, nil
}

func (s *gradeService) notifyGrade(ctx context.Context, p models.Principal, g *models.Grade, studentID, courseID string, updated bool) {
	data := map[string]string{"submission_id": g.SubmissionID}
	if updated {
		data["updated"] = "true"
	}
	s.notifier.Notify(ctx, &models.Event{
		Type:      models.EventGradePosted,
		EntityID:  g.ID,
		CourseID:  courseID,
		ActorID:   p.UserID,
		Recipient: studentID,
		Data:      data,
		Timestamp: g.LastModified.Unix(),
	})
}

func (s *gradeService) get(ctx context.Context, id string) (*models.GradeWithContext, error) {
	grade, err := s.gradeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, entityGrade, "get")
	}
	return grade, nil
}
