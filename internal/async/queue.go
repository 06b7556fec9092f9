package async

import (
	"context"
	"errors"
	"time"
)

// Job asks for one archive to be processed.
type Job struct {
	Path        string
	PropertyID  string // derived from Path when empty
	SubmittedAt time.Time
	TraceID     string
}

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
