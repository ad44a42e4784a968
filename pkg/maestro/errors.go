package maestro

import (
	"errors"
	"fmt"
)

// Precondition errors: the operation does not apply to the table's
// classification or configuration.
var (
	// ErrNotExternal is returned when an upload or load is requested
	// for a table that is not external.
	ErrNotExternal = errors.New("maestro: not an external table")

	// ErrNoExtract is returned when a fetch is requested for a table
	// without an export.
	ErrNoExtract = errors.New("maestro: extract not enabled for this table")

	// ErrNoUploadURL is returned when an external table has no signed
	// upload URL.
	ErrNoUploadURL = errors.New("maestro: table has no upload URL")
)

// RemoteError reports that the table's run itself failed on the
// server. It terminates a wait immediately and is never retried.
type RemoteError struct {
	Table   string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("maestro: table %s: %s", e.Table, e.Message)
}
