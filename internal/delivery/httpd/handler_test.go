package httpd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RubachokBoss/edugrader/internal/auth"
	"github.com/RubachokBoss/edugrader/internal/repository/repotest"
	"github.com/RubachokBoss/edugrader/internal/service"
	"github.com/RubachokBoss/edugrader/internal/service/integration"
	"github.com/RubachokBoss/edugrader/internal/storage"
	"github.com/RubachokBoss/edugrader/pkg/hash"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

type testServer struct {
	t      *testing.T
	router chi.Router
}

func newTestServer(t *testing.T, db Pinger) *testServer {
	t.Helper()

	log := zerolog.Nop()
	store := repotest.NewStore()
	notifier := integration.NewLogNotifier(log)
	files, err := storage.NewLocalStorage(t.TempDir(), log)
	require.NoError(t, err)

	services := Services{
		Auth: service.NewAuthService(
			store.Users(),
			auth.NewTokenManager("handler-secret", "edugrader", time.Minute, time.Hour),
			auth.NewPasswordHasher(bcrypt.MinCost),
			log,
		),
		Courses:     service.NewCourseService(store.Courses(), store.Enrollments(), store.Users(), store.Audit(), log),
		Assignments: service.NewAssignmentService(store.Assignments(), store.Courses(), store.Enrollments(), store.Audit(), notifier, log),
		Submissions: service.NewSubmissionService(
			store.Submissions(), store.Assignments(), store.Enrollments(), store.Audit(),
			files, storage.NewValidator(1<<20, []string{".pdf", ".txt"}), hash.NewFileHasher(hash.SHA256),
			notifier, log,
		),
		Grades: service.NewGradeService(
			store.Grades(), store.Submissions(), store.Assignments(), store.Courses(),
			store.Appeals(), store.Audit(), notifier, log,
		),
		Audit: service.NewAuditService(store.Audit(), log),
		Users: service.NewUserService(store.Users(), log),
	}

	h := NewHandler(services, db, Options{DefaultLimit: 20, MaxLimit: 50, MaxUploadSize: 1 << 20}, log)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(RequestLogger(log))
	router.Use(Recovery(log))
	router.Use(ClientInfo)
	h.RegisterRoutes(router)

	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(req)
}

func (s *testServer) serve(req *http.Request) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

// signup регистрирует пользователя и возвращает его id и access-токен.
func (s *testServer) signup(email, role string) (string, string) {
	s.t.Helper()

	rec, env := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": email, "password": "password123", "full_name": email, "role": role,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var user struct {
		ID string `json:"id"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &user))

	rec, env = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": "password123",
	})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &tokens))
	return user.ID, tokens.AccessToken
}

func dataID(t *testing.T, env envelope) string {
	t.Helper()
	var v struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &v))
	require.NotEmpty(t, v.ID)
	return v.ID
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, pingFunc(func(ctx context.Context) error { return nil }))
	rec, _ := srv.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	srv = newTestServer(t, pingFunc(func(ctx context.Context) error { return errors.New("down") }))
	rec, _ = srv.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"down"`)
}

func TestAuthEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	adminID, adminToken := srv.signup("admin@uni.test", "")

	rec, env := srv.do(http.MethodGet, "/api/v1/users/me", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, adminID, dataID(t, env))
	assert.Contains(t, string(env.Data), `"role":"admin"`)
	assert.NotContains(t, string(env.Data), "password")

	rec, env = srv.do(http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", env.Error)

	rec, _ = srv.do(http.MethodGet, "/api/v1/users/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env = srv.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "ADMIN@uni.test", "password": "password123", "full_name": "Copy",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, env.Message, "already exists")

	rec, _ = srv.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "admin@uni.test", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = srv.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": adminToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "access token must not refresh")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString("{"))
	rec, env = srv.serve(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", env.Message)
}

func TestGradingOverHTTP(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.signup("admin@uni.test", "")
	_, teacher := srv.signup("teacher@uni.test", "teacher")
	s1ID, s1 := srv.signup("s1@uni.test", "student")
	s2ID, _ := srv.signup("s2@uni.test", "student")

	rec, env := srv.do(http.MethodPost, "/api/v1/courses", s1, map[string]interface{}{
		"code": "CS101", "title": "Intro", "capacity": 1,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = srv.do(http.MethodPost, "/api/v1/courses", teacher, map[string]interface{}{
		"code": "CS101", "title": "Intro", "capacity": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	courseID := dataID(t, env)

	rec, _ = srv.do(http.MethodPost, "/api/v1/courses/"+courseID+"/enroll/"+s1ID, teacher, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec, env = srv.do(http.MethodPost, "/api/v1/courses/"+courseID+"/enroll/"+s2ID, teacher, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, env.Message, "capacity")

	rec, env = srv.do(http.MethodPost, "/api/v1/assignments", teacher, map[string]interface{}{
		"course_id": courseID,
		"title":     "Essay",
		"type":      "essay",
		"max_score": 100,
		"due_date":  time.Now().Add(-time.Hour).Format(time.RFC3339),
		"publish":   true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assignmentID := dataID(t, env)

	// Сдача работы после срока
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("assignment_id", assignmentID))
	require.NoError(t, form.WriteField("comment", "sorry, late"))
	part, err := form.CreateFormFile("file", "essay.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 essay"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s1)
	rec, env = srv.serve(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	submissionID := dataID(t, env)
	assert.Contains(t, string(env.Data), `"is_late":true`)
	assert.Contains(t, string(env.Data), `"status":"late"`)

	rec, env = srv.do(http.MethodGet, "/api/v1/submissions/assignment/"+assignmentID, teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"total":1`)

	rec, _ = srv.do(http.MethodPost, "/api/v1/grades", s1, map[string]interface{}{
		"submission_id": submissionID, "score": 100,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = srv.do(http.MethodPost, "/api/v1/grades", teacher, map[string]interface{}{
		"submission_id": submissionID, "score": 80,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	gradeID := dataID(t, env)

	rec, env = srv.do(http.MethodGet, "/api/v1/submissions/"+submissionID, s1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"status":"graded"`)

	rec, _ = srv.do(http.MethodPost, "/api/v1/grades", teacher, map[string]interface{}{
		"submission_id": submissionID, "score": 90,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, env = srv.do(http.MethodPost, "/api/v1/grades/"+gradeID+"/appeal", s1, map[string]string{"reason": "Too harsh"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	appealID := dataID(t, env)

	rec, _ = srv.do(http.MethodPut, "/api/v1/appeals/"+appealID+"/resolve", teacher, map[string]string{
		"status": "rejected", "response": "Grade stands",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = srv.do(http.MethodGet, "/api/v1/grades/student/"+s1ID+"/course/"+courseID, s1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), gradeID)
}

func TestRequestValidation(t *testing.T) {
	srv := newTestServer(t, nil)
	_, admin := srv.signup("admin@uni.test", "")

	rec, env := srv.do(http.MethodGet, "/api/v1/courses/not-a-uuid", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid id format", env.Message)

	rec, _ = srv.do(http.MethodGet, "/api/v1/courses/7b0e1c2e-8a43-4b6f-9f57-2f0c6f1f2a10", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = srv.do(http.MethodGet, "/api/v1/courses?sort=password_hash", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = srv.do(http.MethodGet, "/api/v1/courses?limit=1000&skip=-5", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"limit":50`)
	assert.Contains(t, string(env.Data), `"skip":0`)

	rec, _ = srv.do(http.MethodGet, "/api/v1/audit-logs?user_id=abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = srv.do(http.MethodGet, "/api/v1/audit-logs", admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBatchEnrollOverHTTP(t *testing.T) {
	srv := newTestServer(t, nil)
	_, admin := srv.signup("admin@uni.test", "")
	_, teacher := srv.signup("teacher@uni.test", "teacher")
	_, student := srv.signup("s1@uni.test", "student")
	srv.signup("s2@uni.test", "student")
	srv.signup("s3@uni.test", "student")

	rec, env := srv.do(http.MethodPost, "/api/v1/courses", teacher, map[string]interface{}{
		"code": "CS201", "title": "Algorithms", "capacity": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	courseID := dataID(t, env)
	path := "/api/v1/courses/" + courseID + "/enroll/batch"

	rec, _ = srv.do(http.MethodPost, path, student, []string{"s1@uni.test"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = srv.do(http.MethodPost, path, teacher, []string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = srv.do(http.MethodPost, path, teacher, []string{
		" S1@uni.test", "s1@uni.test", "ghost@uni.test", "teacher@uni.test", "s2@uni.test", "s3@uni.test",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		Success []string `json:"success"`
		Failed  []struct {
			Email  string `json:"email"`
			Reason string `json:"reason"`
		} `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, []string{" S1@uni.test", "s2@uni.test"}, result.Success)

	reasons := make(map[string]string, len(result.Failed))
	for _, f := range result.Failed {
		reasons[f.Email] = f.Reason
	}
	assert.Equal(t, map[string]string{
		"s1@uni.test":      "already enrolled",
		"ghost@uni.test":   "student not found",
		"teacher@uni.test": "student not found",
		"s3@uni.test":      "course capacity reached",
	}, reasons)

	rec, env = srv.do(http.MethodGet, "/api/v1/courses/"+courseID+"/students", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var students []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &students))
	assert.Len(t, students, 2)
}

func TestListUsersOverHTTP(t *testing.T) {
	srv := newTestServer(t, nil)
	_, admin := srv.signup("admin@uni.test", "")
	_, teacher := srv.signup("teacher@uni.test", "teacher")
	srv.signup("s1@uni.test", "student")
	srv.signup("s2@uni.test", "student")

	rec, _ := srv.do(http.MethodGet, "/api/v1/users", teacher, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := srv.do(http.MethodGet, "/api/v1/users?role=student&limit=1", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var page struct {
		Users []struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"users"`
		Total int `json:"total"`
		Limit int `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Limit)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "student", page.Users[0].Role)
	assert.NotContains(t, string(env.Data), "password")

	rec, _ = srv.do(http.MethodGet, "/api/v1/users?role=superuser", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOversizeUpload(t *testing.T) {
	srv := newTestServer(t, nil)
	_, student := srv.signup("s1@uni.test", "student")

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "huge.pdf")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("a"), 3<<20))
	require.NoError(t, err)
	require.NoError(t, form.WriteField("assignment_id", "7b0e1c2e-8a43-4b6f-9f57-2f0c6f1f2a10"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+student)
	rec, env := srv.serve(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "File exceeds maximum upload size", env.Message)
}

func TestRecoveryMiddleware(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Recovery(zerolog.Nop()))
	router.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error","message":"Internal server error"}`, rec.Body.String())
}

func TestHandleServiceError(t *testing.T) {
	h := &Handler{logger: zerolog.Nop()}
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{&service.Error{Kind: service.ErrValidation, Message: "bad"}, http.StatusBadRequest, "bad"},
		{&service.Error{Kind: service.ErrUnauthenticated, Message: "who"}, http.StatusUnauthorized, "who"},
		{&service.Error{Kind: service.ErrForbidden, Message: "no"}, http.StatusForbidden, "no"},
		{&service.Error{Kind: service.ErrNotFound, Message: "gone"}, http.StatusNotFound, "gone"},
		{&service.Error{Kind: service.ErrConflict, Message: "dup"}, http.StatusConflict, "dup"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.handleServiceError(rec, req, tc.err)
		assert.Equal(t, tc.status, rec.Code)

		var env envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, tc.msg, env.Message)
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer   abc "))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken("abc"))
	assert.Empty(t, bearerToken(""))
}
