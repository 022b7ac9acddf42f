package querybuilder

import "strings"

// conjunction joins a condition to the one before it
type conjunction string

const (
	conjAnd conjunction = "AND"
	conjOr  conjunction = "OR"
)

// condition is a single clause, or a parenthesized group when grouped is set
type condition struct {
	conj    conjunction
	clause  string
	args    []interface{}
	group   []condition
	grouped bool
}

// render joins conditions into one boolean expression. Empty groups vanish.
func render(conditions []condition) (string, []interface{}) {
	parts := make([]string, 0, len(conditions)*2)
	args := make([]interface{}, 0)

	for _, c := range conditions {
		clause, clauseArgs := c.clause, c.args
		if c.grouped {
			if len(c.group) == 0 {
				continue
			}
			inner, innerArgs := render(c.group)
			clause, clauseArgs = "("+inner+")", innerArgs
		}
		if len(parts) > 0 {
			parts = append(parts, string(c.conj))
		}
		parts = append(parts, clause)
		args = append(args, clauseArgs...)
	}

	return strings.Join(parts, " "), args
}
