package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRubric() Rubric {
	return Rubric{
		{Name: "correctness", MaxScore: 60},
		{Name: "style", MaxScore: 40},
	}
}

func TestRubricValidate(t *testing.T) {
	require.NoError(t, testRubric().Validate(100))
	require.NoError(t, Rubric(nil).Validate(100))

	assert.Error(t, testRubric().Validate(90), "total above assignment max")
	assert.Error(t, Rubric{{Name: "", MaxScore: 1}}.Validate(10))
	assert.Error(t, Rubric{{Name: "a", MaxScore: 0}}.Validate(10))
	assert.Error(t, Rubric{{Name: "a", MaxScore: 1}, {Name: "a", MaxScore: 1}}.Validate(10))
}

func TestRubricScore(t *testing.T) {
	r := testRubric()

	total, err := r.Score(CriteriaScores{"correctness": 50, "style": 30})
	require.NoError(t, err)
	assert.InDelta(t, 80, total, 1e-9)

	_, err = r.Score(CriteriaScores{"correctness": 50})
	assert.ErrorContains(t, err, "style")

	_, err = r.Score(CriteriaScores{"correctness": 50, "style": 30, "bonus": 5})
	assert.ErrorContains(t, err, "bonus")

	_, err = r.Score(CriteriaScores{"correctness": 61, "style": 0})
	assert.Error(t, err)

	_, err = r.Score(CriteriaScores{"correctness": -1, "style": 0})
	assert.Error(t, err)

	_, err = Rubric(nil).Score(CriteriaScores{"x": 1})
	assert.Error(t, err)
}

func TestRubricSQLRoundTrip(t *testing.T) {
	value, err := testRubric().Value()
	require.NoError(t, err)

	var scanned Rubric
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, testRubric(), scanned)

	empty, err := Rubric(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)

	var fromNull CriteriaScores
	require.NoError(t, fromNull.Scan(nil))
	assert.Nil(t, fromNull)

	nullValue, err := CriteriaScores(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, nullValue)

	assert.Error(t, scanned.Scan(42))
}
