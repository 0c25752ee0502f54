package messaging

import "errors"

var (
	// ErrSendInFlight is returned when a send is attempted while another is
	// still outstanding in the same conversation.
	ErrSendInFlight = errors.New("a message is already being sent in this conversation")
	// ErrNotMounted is returned for operations on a conversation that is not open.
	ErrNotMounted = errors.New("conversation is not open")
	// ErrNotFound is returned when a message id is not in the thread.
	ErrNotFound = errors.New("message not found")
	// ErrNotFailed is returned when retry is requested for a message that did not fail.
	ErrNotFailed = errors.New("message has not failed")
	// ErrEmptyMessage is returned for sends with no content.
	ErrEmptyMessage = errors.New("message is empty")
)
