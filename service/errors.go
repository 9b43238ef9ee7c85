package service

import (
	"context"
	"errors"
	"fmt"
	neturl "net/url"
	"syscall"

	"google.golang.org/api/googleapi"
)

type errTmpIf interface{ Temporary() bool }
type errTmp struct{ error }

func (t errTmp) Temporary() bool    { return true }
func (t *errTmp) Unwrap() error     { return t.error }
func MakeTemporary(err error) error { return &errTmp{err} }

// Temporary inspects the error trace and returns whether the error is transient
func Temporary(err error) bool {
	var uerr *neturl.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}

	//First override some default syscall temporary statuses
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EIO, syscall.EBUSY, syscall.ECANCELED, syscall.ECONNABORTED, syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ENOMEM, syscall.EPIPE:
			return true
		}
	}

	//first check explicitely marked error
	var tmp errTmpIf
	if errors.As(err, &tmp) {
		return tmp.Temporary()
	}
	var gapiError *googleapi.Error
	if errors.As(err, &gapiError) {
		return gapiError.Code == 429 || gapiError.Code == 500
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}

// MergeErrors, appending texts
// if priorityToErr is true, priority to the non-temporary error then to the temporary
// else, priority to no error, then to the temporary and finally to the fatal error.
func MergeErrors(priorityToError bool, err error, newErrs ...error) error {
	if len(newErrs) == 0 {
		return err
	}
	newErr := newErrs[0]

	if newErr == nil {
		if !priorityToError {
			return nil
		}
	} else if err == nil {
		err = newErr
	} else if priorityToError != Temporary(err) {
		err = fmt.Errorf("%w\n %v", err, newErr)
	} else {
		err = fmt.Errorf("%w\n %v", newErr, err)
	}
	return MergeErrors(priorityToError, err, newErrs[1:]...)
}

// InputInvalidError is returned when a caller-supplied value cannot be used
type InputInvalidError struct {
	Field, Reason string
}

func (e InputInvalidError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError is returned when a place, an aoi or a file does not exist
type NotFoundError struct {
	Type, ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Type, e.ID)
}

// UpstreamError is returned when a third-party service answers with a non-success status
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e UpstreamError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("%s answered %d: %s", e.Service, e.StatusCode, body)
}

// Temporary implements errTmpIf
func (e UpstreamError) Temporary() bool {
	switch e.StatusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// MalformedResponseError is returned when a third-party response lacks the expected structure
type MalformedResponseError struct {
	Service, Reason string
}

func (e MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %s", e.Service, e.Reason)
}

// AuthFailureError is returned when no token could be obtained within the retry budget
type AuthFailureError struct {
	Endpoint string
	Attempts int
	Err      error
}

func (e AuthFailureError) Error() string {
	return fmt.Sprintf("authentication failed on %s after %d attempt(s): %v", e.Endpoint, e.Attempts, e.Err)
}

func (e AuthFailureError) Unwrap() error { return e.Err }

// Temporary implements errTmpIf: the retry budget is already spent
func (e AuthFailureError) Temporary() bool { return false }

// UnknownSourceError is returned when a dataset source id is not registered
type UnknownSourceError struct {
	Source string
}

func (e UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown source: %s", e.Source)
}

// PartialFailureError is returned when some products of a batch failed
type PartialFailureError struct {
	Source        string
	Failed, Total int
	FirstFailure  error
}

func (e PartialFailureError) Error() string {
	return fmt.Sprintf("%s: %d/%d products failed (first: %v)", e.Source, e.Failed, e.Total, e.FirstFailure)
}

func (e PartialFailureError) Unwrap() error { return e.FirstFailure }
