package database

import "strings"

// Conditions collects AND-ed WHERE clauses and their positional arguments.
// Clauses are fixed SQL fragments with ? placeholders; values only ever travel as args.
type Conditions struct {
	clauses []string
	args    []any
}

// Add appends a clause and its arguments.
func (c *Conditions) Add(clause string, args ...any) *Conditions {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, args...)
	return c
}

// AddIf appends the clause only when value is non-empty.
func (c *Conditions) AddIf(value string, clause string, arg any) *Conditions {
	if value == "" {
		return c
	}
	return c.Add(clause, arg)
}

// SQL renders the clauses joined with AND, or "1=1" when there are none.
func (c *Conditions) SQL() string {
	if len(c.clauses) == 0 {
		return "1=1"
	}
	return strings.Join(c.clauses, " AND ")
}

// Args returns the arguments in clause order.
func (c *Conditions) Args() []any {
	return c.args
}

// LikeEscape is the escape character used by EscapeLike. A backslash is avoided
// because MySQL treats it as a string-literal escape.
const LikeEscape = "!"

var likeReplacer = strings.NewReplacer(LikeEscape, LikeEscape+LikeEscape, "%", LikeEscape+"%", "_", LikeEscape+"_")

// EscapeLike escapes LIKE wildcards in s so it matches literally. Pair it with
// "LIKE ? ESCAPE '!'".
func EscapeLike(s string) string {
	return likeReplacer.Replace(s)
}
