package provider

import (
	"errors"
	"fmt"

	"github.com/trackarr/trackarr/pkg/media"
)

// Error is the normalized failure of an external metadata call. Message
// carries the provider's own human-readable explanation when one could be
// extracted from the response body.
type Error struct {
	Provider   media.Source
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s request failed with status %d", e.Provider.Label(), e.StatusCode)
	}
	return fmt.Sprintf("%s request failed with status %d: %s", e.Provider.Label(), e.StatusCode, e.Message)
}

// AsError unwraps err into a provider Error when it is one.
func AsError(err error) (*Error, bool) {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr, true
	}
	return nil, false
}
