package chat

import "errors"

var (
	// ErrUnknownSession is returned when an operation names a session id
	// that is not in the store.
	ErrUnknownSession = errors.New("unknown session")

	// ErrResponseComplete is returned when progress is fed to a response
	// that has already completed. This is a caller bug, not a condition
	// to retry.
	ErrResponseComplete = errors.New("response already complete")

	// ErrModelChanged reports that the configured model no longer
	// matches the model a session was bound to. The send attempt is
	// aborted before any response state is touched; the request stays
	// pending and may be resent once the model is restored, or the
	// conversation moved to a fresh session.
	ErrModelChanged = errors.New("model changed mid-session")
)
