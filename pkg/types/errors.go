package types

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrCredentialMissing is returned when no bearer credential has been captured yet.
	ErrCredentialMissing = errors.New("bearer not captured yet: open https://chatgpt.com, reload or open a chat so it makes backend-api requests, then try again")

	// ErrEnumerationUnavailable is returned when the live view cannot be read.
	ErrEnumerationUnavailable = errors.New("live view unavailable")

	// ErrBusy is returned when another run holds the run state.
	ErrBusy = errors.New("another operation is running")

	// ErrAlreadyLoading is returned when a group is already being loaded.
	ErrAlreadyLoading = errors.New("group is already loading")

	// ErrTerminal is returned for actions on a deleted conversation.
	ErrTerminal = errors.New("conversation was deleted")

	// ErrNotOffered is returned when an action is not available in the item's current state.
	ErrNotOffered = errors.New("action not available for this conversation")

	// ErrNotUndoable is returned when undo is requested for an item without an archive record.
	ErrNotUndoable = errors.New("only archived conversations can be restored")

	// ErrUnrecordable is returned when the ledger is asked to record an action other than archive or delete.
	ErrUnrecordable = errors.New("only archive and delete are recorded")
)

// maxErrorBody bounds the response body kept in a RemoteError.
const maxErrorBody = 500

// RemoteError is returned when the backend rejects a request.
type RemoteError struct {
	// Op names the request that failed, e.g. "archive" or "list group".
	Op string

	// StatusCode is the HTTP status code.
	StatusCode int

	// Body is the response body, truncated to 500 bytes.
	Body string
}

// NewRemoteError creates a RemoteError, truncating the body on a rune boundary.
func NewRemoteError(op string, status int, body string) *RemoteError {
	if len(body) > maxErrorBody {
		n := maxErrorBody
		for n > 0 && !utf8.RuneStart(body[n]) {
			n--
		}
		body = body[:n]
	}
	return &RemoteError{Op: op, StatusCode: status, Body: body}
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRemoteRejected reports whether err is or wraps a RemoteError.
func IsRemoteRejected(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
