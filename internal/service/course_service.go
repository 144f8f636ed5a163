package service

import (
	"context"
	"errors"
	"strings"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/RubachokBoss/edugrader/internal/policy"
	"github.com/RubachokBoss/edugrader/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const entityCourse = "course"

type CourseService interface {
	Create(ctx context.Context, p models.Principal, req *models.CreateCourseRequest) (*models.CourseWithStats, error)
	Get(ctx context.Context, p models.Principal, id string) (*models.CourseWithStats, error)
	List(ctx context.Context, p models.Principal, filter models.CourseFilter) (*models.CoursesResponse, error)
	Update(ctx context.Context, p models.Principal, id string, req *models.UpdateCourseRequest) (*models.CourseWithStats, error)
	// Delete архивирует курс вместо удаления, если на него есть ссылки.
	Delete(ctx context.Context, p models.Principal, id string) (*models.DeleteCourseResponse, error)
	Enroll(ctx context.Context, p models.Principal, courseID, studentID string) (*models.Enrollment, error)
	// EnrollBatch записывает студентов по email и отчитывается по каждому адресу отдельно.
	EnrollBatch(ctx context.Context, p models.Principal, courseID string, emails []string) (*models.BatchEnrollResponse, error)
	Drop(ctx context.Context, p models.Principal, courseID, studentID string) error
	ListStudents(ctx context.Context, p models.Principal, courseID string) ([]models.EnrollmentWithStudent, error)
}

type courseService struct {
	courseRepo     repository.CourseRepository
	enrollmentRepo repository.EnrollmentRepository
	userRepo       repository.UserRepository
	audit          *auditor
	logger         zerolog.Logger
}

func NewCourseService(
	courseRepo repository.CourseRepository,
	enrollmentRepo repository.EnrollmentRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	logger zerolog.Logger,
) CourseService {
	return &courseService{
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		userRepo:       userRepo,
		audit:          newAuditor(auditRepo, logger),
		logger:         logger,
	}
}

func (s *courseService) Create(ctx context.Context, p models.Principal, req *models.CreateCourseRequest) (*models.CourseWithStats, error) {
	if !policy.CanCreateCourse(p) {
		return nil, forbidden("only teachers and administrators can create courses")
	}

	code := strings.TrimSpace(req.Code)
	title := strings.TrimSpace(req.Title)
	if code == "" {
		return nil, validationError("code is required")
	}
	if title == "" {
		return nil, validationError("title is required")
	}
	if req.Capacity <= 0 {
		return nil, validationError("capacity must be greater than 0")
	}
	semester := strings.TrimSpace(req.Semester)
	if err := checkCourseFields(code, title, semester, req.Credits); err != nil {
		return nil, err
	}

	// Определяем владельца курса
	teacherID, err := s.resolveTeacher(ctx, p, req.TeacherID)
	if err != nil {
		return nil, err
	}

	ts := now()
	course := &models.Course{
		ID:          uuid.New().String(),
		Code:        code,
		Title:       title,
		Description: req.Description,
		Semester:    semester,
		Credits:     req.Credits,
		TeacherID:   teacherID,
		Capacity:    req.Capacity,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}

	if err := s.courseRepo.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("course with code %s already exists", code)
		}
		return nil, repoError(err, entityCourse, "create")
	}

	s.audit.record(ctx, p.UserID, models.AuditCreate, entityCourse, course.ID, nil, course)

	s.logger.Info().
		Str("course_id", course.ID).
		Str("code", course.Code).
		Str("teacher_id", course.TeacherID).
		Msg("Course created")

	return s.get(ctx, course.ID)
}

func checkCourseFields(code, title, semester string, credits float64) error {
	if err := checkLength("code", code, models.MaxCourseCodeLength); err != nil {
		return err
	}
	if err := checkLength("title", title, models.MaxTitleLength); err != nil {
		return err
	}
	if err := checkLength("semester", semester, models.MaxSemesterLength); err != nil {
		return err
	}
	if credits < 0 || credits > models.MaxCredits {
		return validationError("credits must be within 0..%.1f", models.MaxCredits)
	}
	return nil
}

func (s *courseService) resolveTeacher(ctx context.Context, p models.Principal, requested string) (string, error) {
	if p.Role != models.RoleAdmin {
		if requested != "" && requested != p.UserID {
			return "", forbidden("teachers can only create their own courses")
		}
		return p.UserID, nil
	}
	if requested == "" {
		return p.UserID, nil
	}

	teacher, err := s.userRepo.GetByID(ctx, requested)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", validationError("teacher_id must reference an existing teacher")
		}
		return "", repoError(err, "user", "get")
	}
	if teacher.Role != models.RoleTeacher || !teacher.IsActive {
		return "", validationError("teacher_id must reference an existing teacher")
	}
	return teacher.ID, nil
}

func (s *courseService) Get(ctx context.Context, p models.Principal, id string) (*models.CourseWithStats, error) {
	course, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	enrolled := false
	if p.Role == models.RoleStudent {
		if enrolled, err = s.enrollmentRepo.IsActive(ctx, id, p.UserID); err != nil {
			return nil, repoError(err, "enrollment", "check")
		}
	}
	if !policy.CanViewCourse(p, course.TeacherID, enrolled) {
		return nil, forbidden("you do not have access to this course")
	}

	return course, nil
}

func (s *courseService) List(ctx context.Context, p models.Principal, filter models.CourseFilter) (*models.CoursesResponse, error) {
	// Видимость по роли
	switch p.Role {
	case models.RoleAdmin:
	case models.RoleTeacher:
		filter.TeacherID = p.UserID
	case models.RoleStudent:
		filter.StudentID = p.UserID
	default:
		return nil, forbidden("unknown role")
	}

	courses, total, err := s.courseRepo.List(ctx, filter)
	if err != nil {
		return nil, repoError(err, entityCourse, "list")
	}
	if courses == nil {
		courses = make([]models.CourseWithStats, 0)
	}

	return &models.CoursesResponse{
		Courses: courses,
		Total:   total,
		Skip:    filter.Skip,
		Limit:   filter.Limit,
	}, nil
}

func (s *courseService) Update(ctx context.Context, p models.Principal, id string, req *models.UpdateCourseRequest) (*models.CourseWithStats, error) {
	current, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageCourse(p, current.TeacherID) {
		return nil, forbidden("only the course teacher or an administrator can edit the course")
	}

	updated := current.Course
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, validationError("title must not be empty")
		}
		updated.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.Semester != nil {
		updated.Semester = strings.TrimSpace(*req.Semester)
	}
	if req.Credits != nil {
		updated.Credits = *req.Credits
	}
	if req.Capacity != nil {
		if *req.Capacity <= 0 {
			return nil, validationError("capacity must be greater than 0")
		}
		// Нельзя опустить вместимость ниже числа уже записанных студентов
		if *req.Capacity < current.StudentCount {
			return nil, conflict("capacity %d is below the %d enrolled students", *req.Capacity, current.StudentCount)
		}
		updated.Capacity = *req.Capacity
	}
	if req.IsArchived != nil {
		updated.IsArchived = *req.IsArchived
	}
	if err := checkCourseFields(updated.Code, updated.Title, updated.Semester, updated.Credits); err != nil {
		return nil, err
	}
	updated.UpdatedAt = now()

	// Вместимость сверяется с числом студентов внутри UPDATE, параллельная запись не проскочит
	if err := s.courseRepo.Update(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrCapacityReached) {
			return nil, conflict("capacity %d is below the number of enrolled students", updated.Capacity)
		}
		return nil, repoError(err, entityCourse, "update")
	}

	s.audit.record(ctx, p.UserID, models.AuditUpdate, entityCourse, id, current.Course, updated)

	s.logger.Info().
		Str("course_id", id).
		Msg("Course updated")

	return s.get(ctx, id)
}

func (s *courseService) Delete(ctx context.Context, p models.Principal, id string) (*models.DeleteCourseResponse, error) {
	course, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageCourse(p, course.TeacherID) {
		return nil, forbidden("only the course teacher or an administrator can delete the course")
	}

	err = s.courseRepo.Delete(ctx, id)
	switch {
	case err == nil:
		s.audit.record(ctx, p.UserID, models.AuditDelete, entityCourse, id, course.Course, nil)
		s.logger.Info().Str("course_id", id).Msg("Course deleted")
		return &models.DeleteCourseResponse{ID: id, Deleted: true}, nil

	case errors.Is(err, repository.ErrForeignKey):
		// На курс ссылаются задания или записи: архивируем
		if err := s.courseRepo.Archive(ctx, id, now()); err != nil {
			return nil, repoError(err, entityCourse, "archive")
		}
		s.audit.record(ctx, p.UserID, models.AuditArchive, entityCourse, id,
			map[string]bool{"is_archived": course.IsArchived},
			map[string]bool{"is_archived": true})
		s.logger.Info().Str("course_id", id).Msg("Course archived instead of deleted")
		return &models.DeleteCourseResponse{ID: id, Archived: true}, nil

	default:
		return nil, repoError(err, entityCourse, "delete")
	}
}

func (s *courseService) Enroll(ctx context.Context, p models.Principal, courseID, studentID string) (*models.Enrollment, error) {
	course, err := s.get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageCourse(p, course.TeacherID) {
		return nil, forbidden("only the course teacher or an administrator can enroll students")
	}

	student, err := s.userRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, repoError(err, "student", "get")
	}
	if student.Role != models.RoleStudent || !student.IsActive {
		return nil, notFound("student")
	}

	enrollment, err := s.enroll(ctx, p, courseID, studentID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, conflict("student is already enrolled in this course")
		case errors.Is(err, repository.ErrCapacityReached):
			return nil, conflict("course capacity of %d reached", course.Capacity)
		default:
			return nil, repoError(err, "enrollment", "create")
		}
	}

	return enrollment, nil
}

// enroll вставляет запись через репозиторий; места и дубликаты проверяются под блокировкой курса.
func (s *courseService) enroll(ctx context.Context, p models.Principal, courseID, studentID string) (*models.Enrollment, error) {
	ts := now()
	enrollment := &models.Enrollment{
		ID:         uuid.New().String(),
		CourseID:   courseID,
		StudentID:  studentID,
		Status:     models.EnrollmentActive,
		EnrolledAt: ts,
		UpdatedAt:  ts,
	}

	if err := s.enrollmentRepo.Enroll(ctx, enrollment); err != nil {
		return nil, err
	}

	s.audit.record(ctx, p.UserID, models.AuditEnroll, "enrollment", enrollment.ID, nil, enrollment)

	s.logger.Info().
		Str("course_id", courseID).
		Str("student_id", studentID).
		Msg("Student enrolled")

	return enrollment, nil
}

func (s *courseService) EnrollBatch(ctx context.Context, p models.Principal, courseID string, emails []string) (*models.BatchEnrollResponse, error) {
	if len(emails) == 0 {
		return nil, validationError("at least one email is required")
	}
	if len(emails) > models.MaxBatchEnrollSize {
		return nil, validationError("at most %d emails can be enrolled at once", models.MaxBatchEnrollSize)
	}

	course, err := s.get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageCourse(p, course.TeacherID) {
		return nil, forbidden("only the course teacher or an administrator can enroll students")
	}
	if course.IsArchived {
		return nil, conflict("course is archived")
	}

	result := &models.BatchEnrollResponse{
		Success: make([]string, 0, len(emails)),
		Failed:  make([]models.BatchEnrollFailure, 0),
	}
	fail := func(email, reason string) {
		result.Failed = append(result.Failed, models.BatchEnrollFailure{Email: email, Reason: reason})
	}

	for _, raw := range emails {
		email := strings.ToLower(strings.TrimSpace(raw))

		student, err := s.userRepo.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				fail(raw, "student not found")
				continue
			}
			return nil, repoError(err, "student", "get")
		}
		if student.Role != models.RoleStudent || !student.IsActive {
			fail(raw, "student not found")
			continue
		}

		if _, err := s.enroll(ctx, p, courseID, student.ID); err != nil {
			switch {
			case errors.Is(err, repository.ErrDuplicate):
				fail(raw, "already enrolled")
			case errors.Is(err, repository.ErrCapacityReached):
				fail(raw, "course capacity reached")
			case errors.Is(err, repository.ErrArchived):
				fail(raw, "course is archived")
			default:
				return nil, repoError(err, "enrollment", "create")
			}
			continue
		}
		result.Success = append(result.Success, raw)
	}

	s.logger.Info().
		Str("course_id", courseID).
		Int("enrolled", len(result.Success)).
		Int("failed", len(result.Failed)).
		Msg("Batch enrollment finished")

	return result, nil
}

func (s *courseService) Drop(ctx context.Context, p models.Principal, courseID, studentID string) error {
	course, err := s.get(ctx, courseID)
	if err != nil {
		return err
	}
	if !policy.CanManageCourse(p, course.TeacherID) {
		return forbidden("only the course teacher or an administrator can drop students")
	}

	if err := s.enrollmentRepo.SetStatus(ctx, courseID, studentID, models.EnrollmentDropped, now()); err != nil {
		return repoError(err, "enrollment", "drop")
	}

	s.audit.record(ctx, p.UserID, models.AuditDrop, entityCourse, courseID,
		map[string]string{"student_id": studentID, "status": string(models.EnrollmentActive)},
		map[string]string{"student_id": studentID, "status": string(models.EnrollmentDropped)})

	s.logger.Info().
		Str("course_id", courseID).
		Str("student_id", studentID).
		Msg("Student dropped")

	return nil
}

func (s *courseService) ListStudents(ctx context.Context, p models.Principal, courseID string) ([]models.EnrollmentWithStudent, error) {
	course, err := s.get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageCourse(p, course.TeacherID) {
		return nil, forbidden("only the course teacher or an administrator can list students")
	}

	students, err := s.enrollmentRepo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, repoError(err, "enrollment", "list")
	}
	if students == nil {
		students = make([]models.EnrollmentWithStudent, 0)
	}
	return students, nil
}

func (s *courseService) get(ctx context.Context, id string) (*models.CourseWithStats, error) {
	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, entityCourse, "get")
	}
	return course, nil
}
