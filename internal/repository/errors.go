package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// invalidTextRepresentation is the Postgres code for input that does not parse as the column type,
// such as an id that is not a uuid.
const invalidTextRepresentation = "22P02"

// missingOnBadID reports a malformed id as an absent row.
func missingOnBadID(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresentation {
		return sql.ErrNoRows
	}
	return err
}
