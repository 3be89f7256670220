package model

import (
	"errors"
	"fmt"
)

// ErrBusy is returned while a previous capture still holds the recognizer.
var ErrBusy = errors.New("capture already in progress")

// ErrorKind tells callers how a recognition failure should be reported:
// bad files and frames are the client's fault, inference failures are ours.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindInvalidInput ErrorKind = "invalid_input"
	KindInference    ErrorKind = "inference"
	KindBusy         ErrorKind = "busy"
)

// OpError records which step of loading or recognition failed.
type OpError struct {
	Op   string // e.g. model.load_labels, recognizer.recognize
	Kind ErrorKind
	Path string // model, labels or config file, when one is involved
	Err  error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}

	msg := e.Op + " [" + string(e.Kind) + "]"
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind walks err's chain for an OpError and compares its kind.
func IsKind(err error, kind ErrorKind) bool {
	var oe *OpError
	return errors.As(err, &oe) && oe.Kind == kind
}
