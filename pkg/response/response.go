package response

import (
	"errors"
)

type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

func NewError(code int, err string) error {
	return &Error{code, errors.New(err)}
}

// CodeOf unwraps the HTTP status carried by err, if any.
func CodeOf(err error) (int, bool) {
	var respErr *Error
	if errors.As(err, &respErr) {
		return respErr.Code, true
	}
	return 0, false
}
