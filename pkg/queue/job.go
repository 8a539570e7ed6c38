package queue

import "context"

// Job defines a queue job handler.
type Job interface {
	// Type returns the message type the job handles.
	Type() string

	// Handle processes one message payload.
	Handle(ctx context.Context, payload []byte) error
}
