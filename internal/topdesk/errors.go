package topdesk

import (
	"errors"
	"fmt"
	"net/http"
)

// RemoteError reports a non-2xx response from the TopDesk API.
type RemoteError struct {
	Op     string
	Status int
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("topdesk: %s failed: status %d %s", e.Op, e.Status, http.StatusText(e.Status))
}

// AsRemoteError unwraps err into a RemoteError when possible.
func AsRemoteError(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
