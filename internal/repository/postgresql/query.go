package postgresql

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// whereBuilder composes AND-ed predicates written with ? placeholders into
// positional $n parameters.
type whereBuilder struct {
	conds []string
	args  []interface{}
}

// Add appends cond, numbering each ? in it with the next positional parameter
func (b *whereBuilder) Add(cond string, args ...interface{}) {
	var sb strings.Builder
	next := 0
	for _, r := range cond {
		if r == '?' && next < len(args) {
			b.args = append(b.args, args[next])
			sb.WriteString("$" + strconv.Itoa(len(b.args)))
			next++
			continue
		}
		sb.WriteRune(r)
	}
	b.conds = append(b.conds, sb.String())
}

// Arg registers a trailing argument such as LIMIT/OFFSET and returns its placeholder
func (b *whereBuilder) Arg(arg interface{}) string {
	b.args = append(b.args, arg)
	return "$" + strconv.Itoa(len(b.args))
}

// Where renders the clause, empty when nothing was added
func (b *whereBuilder) Where() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

func (b *whereBuilder) Args() []interface{} {
	return b.args
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
