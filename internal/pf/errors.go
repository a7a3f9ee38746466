package pf

import "errors"

// Code is the stable numeric error contract of the paged-file layer.
// The values are part of the on-the-wire/ABI surface and must not change.
type Code int

const (
	CodeOK          Code = 0
	CodeEOF         Code = -2
	CodeNoMem       Code = -3
	CodeInvalidPage Code = -4
	CodePageFree    Code = -5
	CodePageFixed   Code = -6
)

// Error carries a stable code alongside a human-readable message.
type Error struct {
	Code Code
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Is makes errors.Is match any pf.Error with the same code, so callers can
// compare against the exported sentinels below regardless of wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	// ErrEOF terminates page-succession scans. It is a normal terminal
	// condition, not a failure.
	ErrEOF = &Error{Code: CodeEOF, msg: "pf: end of file"}

	// ErrNoMem means every buffer frame is pinned.
	ErrNoMem = &Error{Code: CodeNoMem, msg: "pf: no free buffer frames"}

	// ErrInvalidPage means the page number is out of range for the file.
	ErrInvalidPage = &Error{Code: CodeInvalidPage, msg: "pf: invalid page number"}

	// ErrPageFree means the page (or slot) is not in the expected pinned/live state.
	ErrPageFree = &Error{Code: CodePageFree, msg: "pf: page not pinned"}

	// ErrPageFixed is returned by a pin request on a page that is already
	// pinned. The buffer is still returned and the pin count still rises;
	// callers that tolerate a pre-existing pin treat this as success and
	// remain responsible for their own unpin.
	ErrPageFixed = &Error{Code: CodePageFixed, msg: "pf: page already pinned"}
)

// CodeOf extracts the stable code from an error returned by this package.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInvalidPage
}
