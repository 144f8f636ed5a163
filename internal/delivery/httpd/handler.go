package httpd

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/RubachokBoss/edugrader/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Services struct {
	Auth        service.AuthService
	Courses     service.CourseService
	Assignments service.AssignmentService
	Submissions service.SubmissionService
	Grades      service.GradeService
	Audit       service.AuditService
	Users       service.UserService
}

type Options struct {
	DefaultLimit  int
	MaxLimit      int
	MaxUploadSize int64
}

type Handler struct {
	authService       service.AuthService
	courseService     service.CourseService
	assignmentService service.AssignmentService
	submissionService service.SubmissionService
	gradeService      service.GradeService
	auditService      service.AuditService
	userService       service.UserService
	db                Pinger
	options           Options
	logger            zerolog.Logger
}

func NewHandler(services Services, db Pinger, options Options, logger zerolog.Logger) *Handler {
	if options.DefaultLimit <= 0 {
		options.DefaultLimit = 20
	}
	if options.MaxLimit < options.DefaultLimit {
		options.MaxLimit = options.DefaultLimit
	}

	return &Handler{
		authService:       services.Auth,
		courseService:     services.Courses,
		assignmentService: services.Assignments,
		submissionService: services.Submissions,
		gradeService:      services.Grades,
		auditService:      services.Audit,
		userService:       services.Users,
		db:                db,
		options:           options,
		logger:            logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)

	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)
		})

		// Всё остальное требует bearer-токен
		api.Group(func(api chi.Router) {
			api.Use(h.Authenticate)

			api.Get("/users/me", h.Me)
			api.Get("/users", h.ListUsers)

			api.Route("/courses", func(r chi.Router) {
				r.Post("/", h.CreateCourse)
				r.Get("/", h.ListCourses)
				r.Get("/{id}", h.GetCourse)
				r.Put("/{id}", h.UpdateCourse)
				r.Delete("/{id}", h.DeleteCourse)
				r.Get("/{id}/students", h.ListCourseStudents)
				r.Post("/{id}/enroll/batch", h.BatchEnroll)
				r.Post("/{id}/enroll/{studentId}", h.EnrollStudent)
				r.Delete("/{id}/enroll/{studentId}", h.DropStudent)
			})

			api.Route("/assignments", func(r chi.Router) {
				r.Post("/", h.CreateAssignment)
				r.Get("/", h.ListAssignments)
				r.Get("/{id}", h.GetAssignment)
				r.Put("/{id}/publish", h.PublishAssignment)
			})

			api.Route("/submissions", func(r chi.Router) {
				r.Post("/", h.Submit)
				r.Get("/assignment/{id}", h.ListSubmissionsByAssignment)
				r.Get("/{id}", h.GetSubmission)
				r.Delete("/{id}", h.DeleteSubmission)
				r.Put("/{id}/return", h.ReturnSubmission)
			})

			api.Route("/grades", func(r chi.Router) {
				r.Post("/", h.CreateGrade)
				r.Get("/{id}", h.GetGrade)
				r.Put("/{id}", h.UpdateGrade)
				r.Post("/{id}/appeal", h.CreateAppeal)
				r.Get("/{id}/appeals", h.ListAppeals)
				r.Get("/student/{studentId}/course/{courseId}", h.ListStudentCourseGrades)
			})

			api.Put("/appeals/{id}/resolve", h.ResolveAppeal)
			api.Get("/audit-logs", h.ListAuditLogs)
		})
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	database := "up"

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn().Err(err).Msg("Health check: database unreachable")
			status, code, database = "unhealthy", http.StatusServiceUnavailable, "down"
		}
	}

	writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"service":   "edugrader",
		"database":  database,
		"timestamp": time.Now().UTC(),
	})
}

// pagination приводит skip/limit к допустимым границам.
func (h *Handler) pagination(r *http.Request) (skip, limit int) {
	skip = getIntQueryParam(r, "skip", 0)
	if skip < 0 {
		skip = 0
	}

	limit = getIntQueryParam(r, "limit", h.options.DefaultLimit)
	if limit < 1 {
		limit = h.options.DefaultLimit
	}
	if limit > h.options.MaxLimit {
		limit = h.options.MaxLimit
	}
	return skip, limit
}

func getIntQueryParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getBoolQueryParam(r *http.Request, key string) bool {
	value, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && value
}

// uuidParam достаёт параметр пути и проверяет, что это UUID.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value := chi.URLParam(r, name)
	if _, err := uuid.Parse(value); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+name+" format")
		return "", false
	}
	return value, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func writeCreated(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}
