package session

import "fmt"

// ErrorKind classifies a failed session action.
type ErrorKind string

const (
	// KindValidation means the input was rejected and the action did not run.
	KindValidation ErrorKind = "validation"
	// KindNetwork means a backend call failed and a local fallback was used.
	KindNetwork ErrorKind = "network"
	// KindServerLogic means the backend refused the action for a domain
	// reason (duplicate rating, missing photo).
	KindServerLogic ErrorKind = "server_logic"
)

// Error is a classified session failure. Only validation errors block the
// flow; network and server-logic failures degrade to local behavior.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}
