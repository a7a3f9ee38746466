package am

import "errors"

// Code is the stable numeric error contract of the access-method layer.
type Code int

const (
	CodeOK                Code = 0
	CodePF                Code = -1
	CodeInvalidAttrType   Code = -2
	CodeInvalidAttrLength Code = -3
)

type Error struct {
	Code Code
	msg  string
	err  error // underlying pf error, if any
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidAttrType   = &Error{Code: CodeInvalidAttrType, msg: "am: invalid attribute type"}
	ErrInvalidAttrLength = &Error{Code: CodeInvalidAttrLength, msg: "am: invalid attribute length"}
)

// pfError wraps a paged-file failure. Everything the pf layer reports maps to
// CodePF at this boundary.
func pfError(err error) error {
	return &Error{Code: CodePF, msg: "am: paged-file error", err: err}
}

// CodeOf extracts the stable code from an error returned by this package.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodePF
}
