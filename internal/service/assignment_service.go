package service

import (
	"context"
	"strings"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/RubachokBoss/edugrader/internal/policy"
	"github.com/RubachokBoss/edugrader/internal/repository"
	"github.com/RubachokBoss/edugrader/internal/service/integration"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const entityAssignment = "assignment"

type AssignmentService interface {
	Create(ctx context.Context, p models.Principal, req *models.CreateAssignmentRequest) (*models.AssignmentWithStats, error)
	Get(ctx context.Context, p models.Principal, id string) (*models.AssignmentWithStats, error)
	List(ctx context.Context, p models.Principal, filter models.AssignmentFilter) (*models.AssignmentsResponse, error)
	// Publish идемпотентен: повторная публикация сохраняет первую отметку времени.
	Publish(ctx context.Context, p models.Principal, id string) (*models.AssignmentWithStats, error)
}

type assignmentService struct {
	assignmentRepo repository.AssignmentRepository
	courseRepo     repository.CourseRepository
	enrollmentRepo repository.EnrollmentRepository
	notifier       integration.Notifier
	audit          *auditor
	logger         zerolog.Logger
}

func NewAssignmentService(
	assignmentRepo repository.AssignmentRepository,
	courseRepo repository.CourseRepository,
	enrollmentRepo repository.EnrollmentRepository,
	auditRepo repository.AuditRepository,
	notifier integration.Notifier,
	logger zerolog.Logger,
) AssignmentService {
	return &assignmentService{
		assignmentRepo: assignmentRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		notifier:       notifier,
		audit:          newAuditor(auditRepo, logger),
		logger:         logger,
	}
}

func (s *assignmentService) Create(ctx context.Context, p models.Principal, req *models.CreateAssignmentRequest) (*models.AssignmentWithStats, error) {
	assignment, err := buildAssignment(req)
	if err != nil {
		return nil, err
	}

	course, err := s.courseRepo.GetByID(ctx, req.CourseID)
	if err != nil {
		return nil, repoError(err, entityCourse, "get")
	}
	if !policy.CanManageAssignment(p, course.TeacherID) {
		return nil, forbidden("only the course teacher or an administrator can create assignments")
	}
	if course.IsArchived {
		return nil, conflict("course is archived")
	}

	ts := now()
	assignment.ID = uuid.New().String()
	assignment.CreatedBy = p.UserID
	assignment.CreatedAt = ts
	assignment.UpdatedAt = ts
	if req.Publish {
		assignment.PublishedAt = &ts
	}

	if err := s.assignmentRepo.Create(ctx, assignment); err != nil {
		return nil, repoError(err, entityAssignment, "create")
	}

	s.audit.record(ctx, p.UserID, models.AuditCreate, entityAssignment, assignment.ID, nil, assignment)
	if assignment.PublishedAt != nil {
		s.notifyPublished(ctx, p, assignment)
	}

	s.logger.Info().
		Str("assignment_id", assignment.ID).
		Str("course_id", assignment.CourseID).
		Bool("published", assignment.PublishedAt != nil).
		Msg("Assignment created")

	return s.get(ctx, assignment.ID)
}

func buildAssignment(req *models.CreateAssignmentRequest) (*models.Assignment, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, validationError("title is required")
	}
	if req.CourseID == "" {
		return nil, validationError("course_id is required")
	}
	if !req.Type.Valid() {
		return nil, validationError("type must be one of test, essay, project, lab")
	}
	if err := checkLength("title", title, models.MaxTitleLength); err != nil {
		return nil, err
	}
	if req.MaxScore <= 0 || req.MaxScore > models.MaxScore {
		return nil, validationError("max_score must be within 0..%.2f", models.MaxScore)
	}
	if req.DueDate.IsZero() {
		return nil, validationError("due_date is required")
	}

	weight := 1.0
	if req.Weight != nil {
		if *req.Weight <= 0 || *req.Weight > models.MaxWeight {
			return nil, validationError("weight must be within 0..%.3f", models.MaxWeight)
		}
		weight = *req.Weight
	}

	maxResubmissions := 1
	if req.MaxResubmissions != nil {
		if *req.MaxResubmissions < 1 {
			return nil, validationError("max_resubmissions must be at least 1")
		}
		maxResubmissions = *req.MaxResubmissions
	}

	// Имена критериев храним без пробелов по краям, по ним сверяются criteria_scores
	var rubric models.Rubric
	for _, c := range req.Rubric {
		rubric = append(rubric, models.Criterion{Name: strings.TrimSpace(c.Name), MaxScore: c.MaxScore})
	}
	if err := rubric.Validate(req.MaxScore); err != nil {
		return nil, validationError("invalid rubric: %s", err.Error())
	}

	return &models.Assignment{
		CourseID:          req.CourseID,
		Title:             title,
		Description:       req.Description,
		Type:              req.Type,
		MaxScore:          req.MaxScore,
		Weight:            weight,
		DueDate:           req.DueDate.UTC(),
		AllowResubmission: req.AllowResubmission,
		MaxResubmissions:  maxResubmissions,
		Rubric:            rubric,
	}, nil
}

func (s *assignmentService) Get(ctx context.Context, p models.Principal, id string) (*models.AssignmentWithStats, error) {
	assignment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkVisible(ctx, p, assignment); err != nil {
		return nil, err
	}
	if p.Role == models.RoleStudent {
		hideStats(assignment)
	}
	return assignment, nil
}

// checkVisible: неопубликованные задания и чужие курсы для студента
// выглядят как несуществующие.
func (s *assignmentService) checkVisible(ctx context.Context, p models.Principal, a *models.AssignmentWithStats) error {
	enrolled := false
	if p.Role == models.RoleStudent {
		var err error
		if enrolled, err = s.enrollmentRepo.IsActive(ctx, a.CourseID, p.UserID); err != nil {
			return repoError(err, "enrollment", "check")
		}
	}

	if policy.CanViewAssignment(p, a.CourseTeacherID, enrolled, a.IsPublished(now())) {
		return nil
	}
	if p.Role == models.RoleStudent {
		return notFound(entityAssignment)
	}
	return forbidden("you do not have access to this assignment")
}

func (s *assignmentService) List(ctx context.Context, p models.Principal, filter models.AssignmentFilter) (*models.AssignmentsResponse, error) {
	switch p.Role {
	case models.RoleAdmin:
	case models.RoleTeacher:
		filter.TeacherID = p.UserID
	case models.RoleStudent:
		filter.EnrolledStudentID = p.UserID
		filter.PublishedOnly = true
		filter.PublishedBefore = now()
	default:
		return nil, forbidden("unknown role")
	}

	assignments, total, err := s.assignmentRepo.List(ctx, filter)
	if err != nil {
		return nil, repoError(err, entityAssignment, "list")
	}
	if assignments == nil {
		assignments = make([]models.AssignmentWithStats, 0)
	}
	if p.Role == models.RoleStudent {
		for i := range assignments {
			hideStats(&assignments[i])
		}
	}

	return &models.AssignmentsResponse{
		Assignments: assignments,
		Total:       total,
		Skip:        filter.Skip,
		Limit:       filter.Limit,
	}, nil
}

func (s *assignmentService) Publish(ctx context.Context, p models.Principal, id string) (*models.AssignmentWithStats, error) {
	assignment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageAssignment(p, assignment.CourseTeacherID) {
		return nil, forbidden("only the course teacher or an administrator can publish assignments")
	}

	wasPublished := assignment.PublishedAt != nil
	publishedAt, err := s.assignmentRepo.Publish(ctx, id, now())
	if err != nil {
		return nil, repoError(err, entityAssignment, "publish")
	}

	if !wasPublished {
		assignment.PublishedAt = &publishedAt
		s.audit.record(ctx, p.UserID, models.AuditPublish, entityAssignment, id,
			nil, map[string]interface{}{"published_at": publishedAt})
		s.notifyPublished(ctx, p, &assignment.Assignment)

		s.logger.Info().
			Str("assignment_id", id).
			Time("published_at", publishedAt).
			Msg("Assignment published")
	}

	return s.get(ctx, id)
}

func (s *assignmentService) notifyPublished(ctx context.Context, p models.Principal, a *models.Assignment) {
	s.notifier.Notify(ctx, &models.Event{
		Type:      models.EventAssignmentPublished,
		EntityID:  a.ID,
		CourseID:  a.CourseID,
		ActorID:   p.UserID,
		Data:      map[string]string{"title": a.Title},
		Timestamp: now().Unix(),
	})
}

func (s *assignmentService) get(ctx context.Context, id string) (*models.AssignmentWithStats, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, entityAssignment, "get")
	}
	return assignment, nil
}

// Студенты не видят статистику сдачи по заданию
func hideStats(a *models.AssignmentWithStats) {
	a.SubmissionsCount = 0
	a.GradedCount = 0
}
