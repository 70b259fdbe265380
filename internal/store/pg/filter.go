package pg

import (
	"fmt"
	"strings"
	"time"
)

// cond accumulates WHERE predicates from optional filter fields. Absent
// fields add nothing, so an empty filter selects everything.
type cond struct {
	clauses []string
	args    []any
}

func (c *cond) next() int { return len(c.args) + 1 }

// Eq adds "col = value" when value is non-empty.
func (c *cond) Eq(col, value string) {
	if value == "" {
		return
	}
	c.clauses = append(c.clauses, fmt.Sprintf("%s=$%d", col, c.next()))
	c.args = append(c.args, value)
}

// In adds "col = any(values)" when the list is non-empty.
func (c *cond) In(col string, values []string) {
	if len(values) == 0 {
		return
	}
	c.clauses = append(c.clauses, fmt.Sprintf("%s = any($%d)", col, c.next()))
	c.args = append(c.args, values)
}

// After adds "col >= t" when t is set.
func (c *cond) After(col string, t *time.Time) {
	if t == nil {
		return
	}
	c.clauses = append(c.clauses, fmt.Sprintf("%s >= $%d", col, c.next()))
	c.args = append(c.args, *t)
}

// Before adds "col <= t" when t is set.
func (c *cond) Before(col string, t *time.Time) {
	if t == nil {
		return
	}
	c.clauses = append(c.clauses, fmt.Sprintf("%s <= $%d", col, c.next()))
	c.args = append(c.args, *t)
}

// Bool adds "col = true" when on is set. Used for active-only style filters.
func (c *cond) Bool(col string, on bool) {
	if !on {
		return
	}
	c.clauses = append(c.clauses, col)
}

// Search adds a case-insensitive substring match across the given columns.
func (c *cond) Search(term string, cols ...string) {
	term = strings.TrimSpace(term)
	if term == "" || len(cols) == 0 {
		return
	}
	n := c.next()
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = fmt.Sprintf("%s ilike $%d", col, n)
	}
	c.clauses = append(c.clauses, "("+strings.Join(parts, " or ")+")")
	c.args = append(c.args, "%"+term+"%")
}

// Where renders the accumulated predicates, or "" when none apply.
func (c *cond) Where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " where " + strings.Join(c.clauses, " and ")
}

func (c *cond) Args() []any { return c.args }
