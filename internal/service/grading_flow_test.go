package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/RubachokBoss/edugrader/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Курс на одного студента: второй не записывается, поздняя сдача
// помечается, повторная оценка отклоняется.
func TestGradingFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s1 := f.register(t, "s1@uni.test", models.RoleStudent)
	s2 := f.register(t, "s2@uni.test", models.RoleStudent)

	course := f.course(t, f.teacher, "CS101", 1)

	_, err := f.courses.Enroll(ctx, f.teacher, course.ID, s1.UserID)
	require.NoError(t, err)
	_, err = f.courses.Enroll(ctx, f.teacher, course.ID, s2.UserID)
	require.ErrorIs(t, err, service.ErrConflict)

	assignment := f.assignment(t, course.ID, time.Now().Add(-time.Hour), nil)

	submission, err := f.submit(s1, assignment.ID, "report.pdf")
	require.NoError(t, err)
	assert.True(t, submission.IsLate)
	assert.Equal(t, models.SubmissionLate, submission.Status)
	assert.Equal(t, 1, submission.Version)
	assert.Len(t, submission.Checksum, 64)
	assert.FileExists(t, f.uploadDir+"/"+submission.FilePath)

	grade, err := f.grades.Create(ctx, f.teacher, &models.CreateGradeRequest{
		SubmissionID: submission.ID,
		Score:        score(80),
	})
	require.NoError(t, err)
	assert.Equal(t, 80.0, grade.Score)
	assert.Equal(t, 100.0, grade.MaxScore)
	assert.Equal(t, s1.UserID, grade.StudentID)

	stored, err := f.submissions.Get(ctx, s1, submission.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionGraded, stored.Status)

	_, err = f.grades.Create(ctx, f.teacher, &models.CreateGradeRequest{
		SubmissionID: submission.ID,
		Score:        score(90),
	})
	assert.ErrorIs(t, err, service.ErrConflict)

	assert.Equal(t, []models.EventType{
		models.EventAssignmentPublished,
		models.EventSubmissionReceived,
		models.EventGradePosted,
	}, f.notifier.types())
}

func TestSubmissionOnTime(t *testing.T) {
	f := newFixture(t)
	s := f.register(t, "s@uni.test", models.RoleStudent)
	course := f.course(t, f.teacher, "CS102", 10)
	f.enroll(t, course.ID, s)
	a := f.assignment(t, course.ID, time.Now().Add(24*time.Hour), nil)

	submission, err := f.submit(s, a.ID, "report.pdf")
	require.NoError(t, err)
	assert.False(t, submission.IsLate)
	assert.Equal(t, models.SubmissionSubmitted, submission.Status)
	assert.Equal(t, "application/pdf", submission.MimeType)
	assert.Equal(t, "report.pdf", submission.FileName)
}

func TestSubmitChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	enrolled := f.register(t, "in@uni.test", models.RoleStudent)
	outsider := f.register(t, "out@uni.test", models.RoleStudent)
	course := f.course(t, f.teacher, "CS103", 10)
	f.enroll(t, course.ID, enrolled)

	due := time.Now().Add(24 * time.Hour)
	published := f.assignment(t, course.ID, due, nil)
	draft := f.assignment(t, course.ID, due, func(r *models.CreateAssignmentRequest) { r.Publish = false })

	_, err := f.submit(enrolled, draft.ID, "report.pdf")
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.submit(outsider, published.ID, "report.pdf")
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.submit(f.teacher, published.ID, "report.pdf")
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.submit(enrolled, published.ID, "virus.exe")
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = f.submissions.Submit(ctx, enrolled, &models.SubmitRequest{AssignmentID: published.ID, FileName: "empty.txt"})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = f.submit(enrolled, published.ID, "report.pdf")
	require.NoError(t, err)

	// Пересдача запрещена настройками задания
	_, err = f.submit(enrolled, published.ID, "report-v2.pdf")
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestResubmissionLimit(t *testing.T) {
	f := newFixture(t)
	s := f.register(t, "s@uni.test", models.RoleStudent)
	course := f.course(t, f.teacher, "CS104", 10)
	f.enroll(t, course.ID, s)
	a := f.assignment(t, course.ID, time.Now().Add(time.Hour), func(r *models.CreateAssignmentRequest) {
		r.AllowResubmission = true
		r.MaxResubmissions = func(v int) *int { return &v }(2)
	})

	first, err := f.submit(s, a.ID, "a.pdf")
	require.NoError(t, err)
	second, err := f.submit(s, a.ID, "b.pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 2, second.Version)

	_, err = f.submit(s, a.ID, "c.pdf")
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestSubmissionVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner@uni.test", models.RoleStudent)
	other := f.register(t, "other@uni.test", models.RoleStudent)
	stranger := f.register(t, "stranger@uni.test", models.RoleTeacher)

	course := f.course(t, f.teacher, "CS105", 10)
	f.enroll(t, course.ID, owner)
	f.enroll(t, course.ID, other)
	a := f.assignment(t, course.ID, time.Now().Add(time.Hour), nil)
	submission, err := f.submit(owner, a.ID, "mine.pdf")
	require.NoError(t, err)

	_, err = f.submissions.Get(ctx, other, submission.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = f.submissions.Get(ctx, stranger, submission.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = f.submissions.Get(ctx, f.admin, submission.ID)
	assert.NoError(t, err)

	// Студент в списке видит только свои работы
	list, err := f.submissions.ListByAssignment(ctx, other, a.ID, 0, 20)
	require.NoError(t, err)
	assert.Empty(t, list.Submissions)

	list, err = f.submissions.ListByAssignment(ctx, f.teacher, a.ID, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)

	_, err = f.submissions.ListByAssignment(ctx, stranger, a.ID, 0, 20)
	assert.ErrorIs(t, err, service.ErrForbidden)

	// Чужой преподаватель не может оценивать
	_, err = f.grades.Create(ctx, stranger, &models.CreateGradeRequest{SubmissionID: submission.ID, Score: score(50)})
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = f.grades.Create(ctx, other, &models.CreateGradeRequest{SubmissionID: submission.ID, Score: score(50)})
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestSubmissionDeleteAndReturn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.register(t, "s@uni.test", models.RoleStudent)
	course := f.course(t, f.teacher, "CS106", 10)
	f.enroll(t, course.ID, s)
	a := f.assignment(t, course.ID, time.Now().Add(time.Hour), func(r *models.CreateAssignmentRequest) {
		r.AllowResubmission = true
		r.MaxResubmissions = func(v int) *int { return &v }(3)
	})

	draft, err := f.submit(s, a.ID, "draft.pdf")
	require.NoError(t, err)

	// Преподаватель не удаляет чужие работы
	assert.ErrorIs(t, f.submissions.Delete(ctx, f.teacher, draft.ID), service.ErrForbidden)
	require.NoError(t, f.submissions.Delete(ctx, s, draft.ID))
	assert.NoFileExists(t, f.uploadDir+"/"+draft.FilePath)

	final, err := f.submit(s, a.ID, "final.pdf")
	require.NoError(t, err)

	_, err = f.submissions.Return(ctx, f.teacher, final.ID)
	assert.ErrorIs(t, err, service.ErrConflict, "only graded work can be returned")

	_, err = f.grades.Create(ctx, f.teacher, &models.CreateGradeRequest{SubmissionID: final.ID, Score: score(70)})
	require.NoError(t, err)

	assert.ErrorIs(t, f.submissions.Delete(ctx, s, final.ID), service.ErrConflict)

	returned, err := f.submissions.Return(ctx, f.teacher, final.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionReturned, returned.Status)

	_, err = f.submissions.Return(ctx, f.teacher, final.ID)
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestGradeWithRubric(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.register(t, "s@uni.test", models.RoleStudent)
	course := f.course(t, f.teacher, "CS107", 10)
	f.enroll(t, course.ID, s)
	a := f.assignment(t, course.ID, time.Now().Add(time.Hour), func(r *models.CreateAssignmentRequest) {
		r.Rubric = models.Rubric{{Name: "code", MaxScore: 60}, {Name: "report", MaxScore: 40}}
	})
	submission, err := f.submit(s, a.ID, "lab.pdf")
	require.NoError(t, err)

	bad := []*models.CreateGradeRequest{
		{SubmissionID: submission.ID, CriteriaScores: models.CriteriaScores{"code": 50}},
		{SubmissionID: submission.ID, CriteriaScores: models.CriteriaScores{"code": 70, "report": 10}},
		{SubmissionID: submission.ID, CriteriaScores: models.CriteriaScores{"code": 50, "report": 10, "style": 5}},
		{SubmissionID: submission.ID, CriteriaScores: models.CriteriaScores{"code": 50, "report": 30}, Score: score(10)},
		{SubmissionID: submission.ID, Score: score(101)},
		{SubmissionID: submission.ID},
	}
	for _, req := range bad {
		_, err := f.grades.Create(ctx, f.teacher, req)
		assert.ErrorIs(t, err, service.ErrValidation)
	}

	grade, err := f.grades.Create(ctx, f.teacher, &models.CreateGradeRequest{
		SubmissionID:   submission.ID,
		CriteriaScores: models.CriteriaScores{"code": 55, "report": 30},
		Comments:       "solid",
	})
	require.NoError(t, err)
	assert.Equal(t, 85.0, grade.Score)

	comments := "revised"
	updated, err := f.grades.Update(ctx, f.teacher, grade.ID, &models.UpdateGradeRequest{
		Score:    score(90),
		Comments: &comments,
	})
	require.NoError(t, err)
	assert.Equal(t, 90.0, updated.Score)
	assert.Nil(t, updated.CriteriaScores)
	assert.Equal(t, "revised", updated.Comments)

	_, err = f.grades.Update(ctx, f.teacher, grade.ID, &models.UpdateGradeRequest{})
	assert.ErrorIs(t, err, service.ErrValidation)

	var audited bool
	for _, e := range f.store.AuditEntries() {
		if e.EntityType == "grade" && e.Action == models.AuditUpdate {
			audited = true
			assert.Contains(t, string(e.OldValues), `"score":85`)
			assert.Contains(t, string(e.NewValues), `"score":90`)
		}
	}
	assert.True(t, audited)

	// Просмотр оценок студента по курсу
	grades, err := f.grades.ListForStudentCourse(ctx, s, s.UserID, course.ID)
	require.NoError(t, err)
	assert.Len(t, grades, 1)

	other := f.register(t, "other@uni.test", models.RoleStudent)
	_, err = f.grades.ListForStudentCourse(ctx, other, s.UserID, course.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = f.grades.Get(ctx, other, grade.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestAppeals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.register(t, "s@uni.test", models.RoleStudent)
	course := f.course(t, f.teacher, "CS108", 10)
	f.enroll(t, course.ID, s)
	a := f.assignment(t, course.ID, time.Now().Add(time.Hour), nil)
	submission, err := f.submit(s, a.ID, "essay.txt")
	require.NoError(t, err)
	grade, err := f.grades.Create(ctx, f.teacher, &models.CreateGradeRequest{SubmissionID: submission.ID, Score: score(40)})
	require.NoError(t, err)

	_, err = f.grades.Appeal(ctx, f.teacher, grade.ID, &models.CreateAppealRequest{Reason: "x"})
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = f.grades.Appeal(ctx, s, grade.ID, &models.CreateAppealRequest{Reason: "  "})
	assert.ErrorIs(t, err, service.ErrValidation)

	appeal, err := f.grades.Appeal(ctx, s, grade.ID, &models.CreateAppealRequest{Reason: "Question 3 was graded wrong"})
	require.NoError(t, err)
	assert.Equal(t, models.AppealPending, appeal.Status)

	_, err = f.grades.Appeal(ctx, s, grade.ID, &models.CreateAppealRequest{Reason: "again"})
	assert.ErrorIs(t, err, service.ErrConflict)

	// Апелляция не меняет статус работы
	stored, err := f.submissions.Get(ctx, s, submission.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionGraded, stored.Status)

	_, err = f.grades.ResolveAppeal(ctx, s, appeal.ID, &models.ResolveAppealRequest{Status: models.AppealApproved})
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = f.grades.ResolveAppeal(ctx, f.teacher, appeal.ID, &models.ResolveAppealRequest{Status: models.AppealPending})
	assert.ErrorIs(t, err, service.ErrValidation)

	resolved, err := f.grades.ResolveAppeal(ctx, f.teacher, appeal.ID, &models.ResolveAppealRequest{
		Status:   models.AppealApproved,
		Response: "Fixed",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AppealApproved, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, f.teacher.UserID, *resolved.ResolvedBy)

	_, err = f.grades.ResolveAppeal(ctx, f.admin, appeal.ID, &models.ResolveAppealRequest{Status: models.AppealRejected})
	assert.ErrorIs(t, err, service.ErrConflict)

	// После решения можно подать новую
	_, err = f.grades.Appeal(ctx, s, grade.ID, &models.CreateAppealRequest{Reason: "one more"})
	require.NoError(t, err)

	appeals, err := f.grades.ListAppeals(ctx, s, grade.ID)
	require.NoError(t, err)
	assert.Len(t, appeals, 2)
}

func TestRubricNamesAreTrimmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.register(t, "s@uni.test", models.RoleStudent)
	course := f.course(t, f.teacher, "CS108", 10)
	f.enroll(t, course.ID, s)
	a := f.assignment(t, course.ID, time.Now().Add(time.Hour), func(r *models.CreateAssignmentRequest) {
		r.Rubric = models.Rubric{{Name: " Style ", MaxScore: 40}, {Name: "Logic\t", MaxScore: 60}}
	})
	assert.Equal(t, models.Rubric{{Name: "Style", MaxScore: 40}, {Name: "Logic", MaxScore: 60}}, a.Rubric)

	submission, err := f.submit(s, a.ID, "lab.pdf")
	require.NoError(t, err)

	grade, err := f.grades.Create(ctx, f.teacher, &models.CreateGradeRequest{
		SubmissionID:   submission.ID,
		CriteriaScores: models.CriteriaScores{"Style": 30, "Logic": 50},
	})
	require.NoError(t, err)
	assert.Equal(t, 80.0, grade.Score)

	_, err = f.assignments.Create(ctx, f.teacher, &models.CreateAssignmentRequest{
		CourseID: course.ID, Title: "Dup", Type: models.AssignmentLab, MaxScore: 100, DueDate: time.Now(),
		Rubric: models.Rubric{{Name: "Style", MaxScore: 50}, {Name: " Style", MaxScore: 50}},
	})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestAssignmentAndSubmissionLimits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.register(t, "s@uni.test", models.RoleStudent)
	course := f.course(t, f.teacher, "CS109", 10)
	f.enroll(t, course.ID, s)

	weight := 1000.0
	bad := []*models.CreateAssignmentRequest{
		{Title: strings.Repeat("T", models.MaxTitleLength+1), MaxScore: 100},
		{Title: "Huge", MaxScore: 1e9},
		{Title: "Heavy", MaxScore: 100, Weight: &weight},
	}
	for _, req := range bad {
		req.CourseID = course.ID
		req.Type = models.AssignmentLab
		req.DueDate = time.Now().Add(time.Hour)
		_, err := f.assignments.Create(ctx, f.teacher, req)
		assert.ErrorIs(t, err, service.ErrValidation, req.Title)
	}

	a := f.assignment(t, course.ID, time.Now().Add(time.Hour), nil)
	_, err := f.submit(s, a.ID, strings.Repeat("f", models.MaxFileNameLength)+".pdf")
	assert.ErrorIs(t, err, service.ErrValidation)
}
