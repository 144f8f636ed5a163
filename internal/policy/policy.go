// Package policy holds the role and ownership rules for every protected action.
// Each predicate switches over the closed set of roles; unknown roles are denied.
package policy

import "github.com/RubachokBoss/edugrader/internal/models"

func CanCreateCourse(p models.Principal) bool {
	switch p.Role {
	case models.RoleAdmin, models.RoleTeacher:
		return true
	case models.RoleStudent:
		return false
	default:
		return false
	}
}

// CanManageCourse covers editing, deleting and enrolling students into a course.
func CanManageCourse(p models.Principal, teacherID string) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher:
		return p.UserID == teacherID
	case models.RoleStudent:
		return false
	default:
		return false
	}
}

func CanViewCourse(p models.Principal, teacherID string, enrolled bool) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher:
		return p.UserID == teacherID
	case models.RoleStudent:
		return enrolled
	default:
		return false
	}
}

// CanManageAssignment covers creating and publishing assignments of a course.
func CanManageAssignment(p models.Principal, courseTeacherID string) bool {
	return CanManageCourse(p, courseTeacherID)
}

// CanViewAssignment: студент видит только опубликованные задания своих курсов.
func CanViewAssignment(p models.Principal, courseTeacherID string, enrolled, published bool) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher:
		return p.UserID == courseTeacherID
	case models.RoleStudent:
		return enrolled && published
	default:
		return false
	}
}

func CanSubmit(p models.Principal, enrolled bool) bool {
	switch p.Role {
	case models.RoleStudent:
		return enrolled
	case models.RoleAdmin, models.RoleTeacher:
		return false
	default:
		return false
	}
}

func CanViewSubmission(p models.Principal, studentID, courseTeacherID string) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher:
		return p.UserID == courseTeacherID
	case models.RoleStudent:
		return p.UserID == studentID
	default:
		return false
	}
}

// CanDeleteSubmission: удалить может администратор или сам автор работы.
func CanDeleteSubmission(p models.Principal, studentID string) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleStudent:
		return p.UserID == studentID
	case models.RoleTeacher:
		return false
	default:
		return false
	}
}

// CanGrade also covers updating grades, returning graded work and resolving appeals.
// A teacher may grade only courses they own.
func CanGrade(p models.Principal, courseTeacherID string) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher:
		return p.UserID == courseTeacherID
	case models.RoleStudent:
		return false
	default:
		return false
	}
}

func CanViewGrade(p models.Principal, studentID, courseTeacherID string) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher:
		return p.UserID == courseTeacherID
	case models.RoleStudent:
		return p.UserID == studentID
	default:
		return false
	}
}

func CanAppeal(p models.Principal, studentID string) bool {
	switch p.Role {
	case models.RoleStudent:
		return p.UserID == studentID
	case models.RoleAdmin, models.RoleTeacher:
		return false
	default:
		return false
	}
}

func CanViewAudit(p models.Principal) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher, models.RoleStudent:
		return false
	default:
		return false
	}
}

func CanListUsers(p models.Principal) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher, models.RoleStudent:
		return false
	default:
		return false
	}
}
