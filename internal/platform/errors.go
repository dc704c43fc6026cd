package platform

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dukerupert/binbill/internal/domain"
)

// ErrUnrecognizedEnvelope is returned when a list response matches none of
// the known envelope shapes. It is never papered over with an empty list.
var ErrUnrecognizedEnvelope = errors.New("unrecognized response envelope")

// TransportError is a failure to get a usable answer from the platform:
// the request never completed, or it came back non-2xx without a readable
// error body.
type TransportError struct {
	Method     string
	Path       string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Method, e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// codeForStatus maps a platform rejection onto an application error code.
func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.EINVALID
	case http.StatusNotFound:
		return domain.ENOTFOUND
	case http.StatusConflict:
		return domain.ECONFLICT
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.EFORBIDDEN
	default:
		return domain.EUNAVAILABLE
	}
}
