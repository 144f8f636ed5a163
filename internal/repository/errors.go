package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicate       = errors.New("duplicate key")
	ErrForeignKey      = errors.New("foreign key violation")
	ErrCapacityReached = errors.New("course capacity reached")
	ErrArchived        = errors.New("course is archived")
	ErrStateChanged    = errors.New("record state changed concurrently")
	ErrInvalidSort     = errors.New("invalid sort parameter")
	ErrInvalidValue    = errors.New("value out of range for column")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqInvalidText         = "22P02"
	pqStringTooLong       = "22001"
	pqNumericOutOfRange   = "22003"
	pqCheckViolation      = "23514"
)

// mapError переводит ошибки драйвера в ошибки репозитория. Ограничения БД
// считаются авторитетным источником конфликтов.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
		case pqForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrForeignKey, pqErr.Constraint)
		case pqInvalidText:
			return ErrNotFound
		case pqStringTooLong, pqNumericOutOfRange, pqCheckViolation:
			return fmt.Errorf("%w: %s", ErrInvalidValue, pqErr.Message)
		}
	}

	return err
}
