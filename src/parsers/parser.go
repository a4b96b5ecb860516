package parsers

import (
	"io"

	"github.com/username/taxgains/src/models"
)

// StatementParser parses the extracted text of a monthly statement.
// Unrecognized lines are skipped; a missing section yields an empty slice,
// not an error.
type StatementParser interface {
	Parse(file io.Reader) (*models.Statement, error)
}
