package dbx

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/useradmin/internal/common"
)

// RequireAffected turns an UPDATE or DELETE that touched no rows into
// common.ErrorNotFound.
func RequireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes the LIKE wildcards in s so it matches literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
