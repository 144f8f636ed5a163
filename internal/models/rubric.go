package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

const scoreEpsilon = 1e-9

// Criterion is one named line of an assignment rubric.
type Criterion struct {
	Name     string  `json:"name"`
	MaxScore float64 `json:"max_score"`
}

type Rubric []Criterion

func (r Rubric) Validate(assignmentMax float64) error {
	seen := make(map[string]struct{}, len(r))
	var total float64
	for _, c := range r {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return errors.New("rubric criterion name is required")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate rubric criterion %q", name)
		}
		seen[name] = struct{}{}
		if c.MaxScore <= 0 {
			return fmt.Errorf("rubric criterion %q must have a positive max_score", name)
		}
		total += c.MaxScore
	}
	if total > assignmentMax+scoreEpsilon {
		return fmt.Errorf("rubric total %.2f exceeds assignment max_score %.2f", total, assignmentMax)
	}
	return nil
}

// Score checks a per-criterion breakdown against the rubric and returns its total.
// The breakdown must name every criterion exactly once.
func (r Rubric) Score(scores CriteriaScores) (float64, error) {
	if len(r) == 0 {
		return 0, errors.New("assignment has no rubric; criteria_scores are not accepted")
	}

	var total float64
	for _, c := range r {
		v, ok := scores[c.Name]
		if !ok {
			return 0, fmt.Errorf("missing score for criterion %q", c.Name)
		}
		if math.IsNaN(v) || v < 0 || v > c.MaxScore+scoreEpsilon {
			return 0, fmt.Errorf("score for criterion %q must be within 0..%.2f", c.Name, c.MaxScore)
		}
		total += v
	}

	if len(scores) != len(r) {
		known := make(map[string]struct{}, len(r))
		for _, c := range r {
			known[c.Name] = struct{}{}
		}
		var unknown []string
		for name := range scores {
			if _, ok := known[name]; !ok {
				unknown = append(unknown, name)
			}
		}
		sort.Strings(unknown)
		return 0, fmt.Errorf("unknown criteria: %s", strings.Join(unknown, ", "))
	}

	return total, nil
}

// Value отдаёт JSON строкой: []byte драйвер передал бы как bytea.
func (r Rubric) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	return marshalJSON(r)
}

func (r *Rubric) Scan(src interface{}) error {
	return scanJSON(src, r)
}

// CriteriaScores maps rubric criterion names to awarded points.
type CriteriaScores map[string]float64

func (c CriteriaScores) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return marshalJSON(c)
}

func (c *CriteriaScores) Scan(src interface{}) error {
	return scanJSON(src, c)
}

func marshalJSON(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
}
