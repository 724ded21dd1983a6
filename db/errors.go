package db

import (
	"database/sql"
	"strings"

	"github.com/teranos/restock/errors"
)

// database/sql returns an unexported error with this text once DB.Close ran.
const closedMessage = "sql: database is closed"

// IsDatabaseClosed reports whether err comes from a closed *sql.DB or a
// connection that was already returned. Run history written while the
// watch command shuts down can hit either, wrapped or not.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) {
		return true
	}
	return strings.Contains(err.Error(), closedMessage)
}
