package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every error returned by Engine is an *Error that unwraps to
// exactly one of these.
var (
	ErrMalformedSignatureHeaders  = errors.New("auth: malformed signature headers")
	ErrIdentityMismatch           = errors.New("auth: signer does not match requested identity")
	ErrExternalVerificationFailed = errors.New("auth: external verification failed")
	ErrMalformedDigest            = errors.New("auth: malformed digest")
	ErrDigestMismatch             = errors.New("auth: digest mismatch")
	ErrNotAuthorizedForDigest     = errors.New("auth: not authorized for digest")
	ErrInternal                   = errors.New("auth: internal error")
)

// Error is a classified authorization failure with the HTTP status it maps
// to. Body, when set, is the verifier's response and is relayed as is.
type Error struct {
	Kind    error
	Status  int
	Message string
	Body    json.RawMessage

	cause error
}

func newError(kind error, status int, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Status:  status,
		Message: message,
		cause:   cause,
	}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.cause}
}

// ResponseBody returns the JSON body sent to the client: the verifier body
// when there is one, {"msg": Message} otherwise.
func (e *Error) ResponseBody() json.RawMessage {
	if len(e.Body) > 0 {
		return e.Body
	}

	body, _ := json.Marshal(map[string]string{"msg": e.Message})

	return body
}

// AsError returns err as an *Error. Errors that are not classified become
// ErrInternal.
func AsError(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}

	return newError(ErrInternal, http.StatusInternalServerError, "internal error", err)
}
