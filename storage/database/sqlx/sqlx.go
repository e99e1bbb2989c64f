// Package sqlxrepos implements the repositories over database/sql with sqlx.
// Queries use ? placeholders, rebound to the driver's bindvar.
package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/tutorly/core"
)

func orderBy(ordering []core.DBOrdering, fallback string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + fallback
	}
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		clauses = append(clauses, ord.String())
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}

// checkAffected returns notFound when res touched no row.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}
