package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(sql.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, mapError(fmt.Errorf("scan: %w", sql.ErrNoRows)), ErrNotFound)

	dup := mapError(&pq.Error{Code: "23505", Constraint: "grades_submission_id_key"})
	assert.ErrorIs(t, dup, ErrDuplicate)
	assert.Contains(t, dup.Error(), "grades_submission_id_key")

	assert.ErrorIs(t, mapError(&pq.Error{Code: "23503"}), ErrForeignKey)
	assert.ErrorIs(t, mapError(&pq.Error{Code: "22P02"}), ErrNotFound)

	for _, code := range []pq.ErrorCode{"22001", "22003", "23514"} {
		assert.ErrorIs(t, mapError(&pq.Error{Code: code, Message: "value too long"}), ErrInvalidValue, string(code))
	}

	other := errors.New("connection reset")
	assert.Equal(t, other, mapError(other))
}
