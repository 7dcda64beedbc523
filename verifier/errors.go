package verifier

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrTimeout is returned when the verifier does not answer before the
// request deadline.
var ErrTimeout = errors.New("verifier: request timed out")

// StatusError is returned when the verifier answers with a status other
// than the one the operation expects. Body is the verifier's JSON response
// and is meant to be relayed to the caller unchanged.
type StatusError struct {
	Op         string
	StatusCode int
	Body       json.RawMessage
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("verifier: %s: unexpected status %d", e.Op, e.StatusCode)
}
