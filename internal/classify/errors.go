package classify

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey means the secret store had no key at call time. Callers
// surface this immediately instead of falling back.
var ErrMissingAPIKey = errors.New("classifier api key not configured")

// ErrMalformedResponse means the remote answered but the payload did not
// contain a usable categorization.
var ErrMalformedResponse = errors.New("malformed classifier response")

// StatusError carries a non-2xx response. 401/403 are auth failures; the
// rest are rate-limit or server trouble the caller may recover from.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("classifier api error: status %d: %s", e.Code, e.Body)
}

// IsAuth reports whether the status indicates a rejected credential.
func (e *StatusError) IsAuth() bool {
	return e.Code == 401 || e.Code == 403
}

// TransportError wraps a failure to reach the service at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("classifier request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
