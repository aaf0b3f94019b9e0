package drive

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/dittodrive/pkg/store/metadata"
	"github.com/marmos91/dittodrive/pkg/store/object"
)

// Kind is the machine-readable class of a drive error.
type Kind string

const (
	KindObjectStore     Kind = "object_store"
	KindMetadata        Kind = "metadata"
	KindQuotaExceeded   Kind = "quota_exceeded"
	KindConflict        Kind = "conflict"
	KindNotFound        Kind = "not_found"
	KindTimeout         Kind = "timeout"
	KindInvalidArgument Kind = "invalid_argument"
)

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrObjectStore     = errors.New("object store error")
	ErrMetadata        = errors.New("metadata error")
	ErrQuotaExceeded   = errors.New("quota exceeded")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrTimeout         = errors.New("timeout")
	ErrInvalidArgument = errors.New("invalid argument")
)

var kindSentinels = map[Kind]error{
	KindObjectStore:     ErrObjectStore,
	KindMetadata:        ErrMetadata,
	KindQuotaExceeded:   ErrQuotaExceeded,
	KindConflict:        ErrConflict,
	KindNotFound:        ErrNotFound,
	KindTimeout:         ErrTimeout,
	KindInvalidArgument: ErrInvalidArgument,
}

// Error is returned by every Service operation.
//
// Op names the operation ("upload", "rename", ...), Step the step that failed
// ("put_object", "update_record", ...). Err is the underlying cause and may be
// nil for errors raised by the service itself (quota, conflict).
type Error struct {
	Op   string
	Step string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Step != "" {
		msg = fmt.Sprintf("%s: %s failed (%s)", e.Op, e.Step, e.Kind)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf returns the kind of err, or "" when err is not a drive error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func newError(op, step string, kind Kind, err error) *Error {
	return &Error{Op: op, Step: step, Kind: kind, Err: err}
}

// objectErr classifies an object store failure. A deadline becomes a
// timeout; everything else, not-found included, is an object store error.
func objectErr(op, step string, err error) *Error {
	if isTimeout(err) {
		return newError(op, step, KindTimeout, err)
	}
	return newError(op, step, KindObjectStore, err)
}

// metaErr classifies a metadata store failure.
func metaErr(op, step string, err error) *Error {
	if isTimeout(err) {
		return newError(op, step, KindTimeout, err)
	}
	return newError(op, step, KindMetadata, err)
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

func isObjectNotFound(err error) bool {
	return errors.Is(err, object.ErrObjectNotFound)
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, metadata.ErrRecordNotFound)
}
