package service

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/RubachokBoss/edugrader/internal/repository"
)

// Виды ошибок сервисного слоя. Обработчики HTTP сопоставляют их со статусами.
var (
	ErrValidation      = errors.New("validation error")
	ErrUnauthenticated = errors.New("authentication error")
	ErrForbidden       = errors.New("authorization error")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
)

// Error carries a client-facing message together with its kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationError(format string, args ...interface{}) error {
	return newError(ErrValidation, format, args...)
}

// checkLength сравнивает длину в символах, как VARCHAR в PostgreSQL.
func checkLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return validationError("%s must be at most %d characters", field, max)
	}
	return nil
}

func unauthenticated(message string) error {
	return newError(ErrUnauthenticated, "%s", message)
}

func forbidden(message string) error {
	return newError(ErrForbidden, "%s", message)
}

func notFound(entity string) error {
	return newError(ErrNotFound, "%s not found", entity)
}

func conflict(format string, args ...interface{}) error {
	return newError(ErrConflict, format, args...)
}

// repoError переводит ошибку репозитория в ошибку сервиса. Неизвестные
// ошибки оборачиваются и уходят клиенту как 500.
func repoError(err error, entity, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound(entity)
	case errors.Is(err, repository.ErrDuplicate):
		return conflict("%s already exists", entity)
	case errors.Is(err, repository.ErrForeignKey):
		return newError(ErrNotFound, "referenced record for %s not found", entity)
	case errors.Is(err, repository.ErrCapacityReached):
		return conflict("course capacity reached")
	case errors.Is(err, repository.ErrArchived):
		return conflict("course is archived")
	case errors.Is(err, repository.ErrStateChanged):
		return conflict("%s was modified concurrently", entity)
	case errors.Is(err, repository.ErrInvalidSort):
		return validationError("%s", err.Error())
	case errors.Is(err, repository.ErrInvalidValue):
		return validationError("invalid %s: value out of range", entity)
	default:
		return fmt.Errorf("failed to %s %s: %w", op, entity, err)
	}
}
