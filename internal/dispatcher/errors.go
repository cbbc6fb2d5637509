package dispatcher

import (
	"errors"

	"github.com/UnSetSoft/ToriDB/internal/resp"
)

// Error wraps a command-handling failure with the wire-level kind it maps
// to, so a caller several frames up can recover the right RESP error label
// with errors.As instead of re-deriving it from a message string.
type Error struct {
	Kind resp.ErrKind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// newError builds an *Error of kind wrapping err.
func newError(kind resp.ErrKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// toReply converts err to a wire Reply, recovering its Kind via errors.As
// when err is (or wraps) an *Error, and falling back to ErrInternal for any
// other error — including a recovered panic, which arrives already
// formatted as a plain error by the caller.
func toReply(err error) resp.Reply {
	var de *Error
	if errors.As(err, &de) {
		return resp.Err(de.Kind, de.Err.Error())
	}
	return resp.Err(resp.ErrInternal, err.Error())
}
