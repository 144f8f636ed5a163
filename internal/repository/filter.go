package repository

import (
	"fmt"
	"strings"
)

// whereBuilder накапливает условия с позиционными плейсхолдерами $n.
type whereBuilder struct {
	conds []string
	args  []interface{}
}

// add подставляет плейсхолдер значения вместо %[1]s в format.
func (b *whereBuilder) add(format string, value interface{}) {
	b.args = append(b.args, value)
	b.conds = append(b.conds, fmt.Sprintf(format, fmt.Sprintf("$%d", len(b.args))))
}

func (b *whereBuilder) addRaw(cond string) {
	b.conds = append(b.conds, cond)
}

func (b *whereBuilder) clause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.conds, " AND ")
}

// page добавляет LIMIT/OFFSET к копии аргументов.
func (b *whereBuilder) page(limit, offset int) (string, []interface{}) {
	args := append(append([]interface{}{}, b.args...), limit, offset)
	return fmt.Sprintf("LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern строит шаблон ILIKE для поиска подстроки; спецсимволы LIKE экранируются.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// sortSpec is an allow-list of sortable column expressions for one listing.
type sortSpec struct {
	columns  map[string]string
	fallback string
	// уникальная колонка для стабильного порядка страниц
	tiebreak string
}

// orderBy resolves a client-supplied sort field through the allow-list.
// Unknown fields or directions are rejected rather than interpolated.
func (s sortSpec) orderBy(field, direction string) (string, error) {
	if field == "" {
		return fmt.Sprintf("ORDER BY %s, %s", s.fallback, s.tiebreak), nil
	}

	column, ok := s.columns[field]
	if !ok {
		return "", fmt.Errorf("%w: unknown sort field %q", ErrInvalidSort, field)
	}

	dir := "ASC"
	switch strings.ToLower(direction) {
	case "", "asc":
	case "desc":
		dir = "DESC"
	default:
		return "", fmt.Errorf("%w: unknown sort order %q", ErrInvalidSort, direction)
	}

	return fmt.Sprintf("ORDER BY %s %s, %s", column, dir, s.tiebreak), nil
}
