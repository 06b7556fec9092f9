package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/taxcerts/constants"
	"github.com/joseph-ayodele/taxcerts/internal/async"
	"github.com/joseph-ayodele/taxcerts/internal/common"
	"github.com/joseph-ayodele/taxcerts/internal/pipeline"
)

// inbox feeds watcher events to the queue and files each archive under
// done/ or failed/ once its run finishes. A path is queued at most once at a time.
type inbox struct {
	dir    string
	logger *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

func newInbox(dir string, logger *slog.Logger) *inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &inbox{dir: dir, logger: logger, inflight: map[string]struct{}{}}
}

func (b *inbox) outcomeDirs() []string {
	return []string{string(constants.RunStatusDone), string(constants.RunStatusFailed)}
}

func (b *inbox) claim(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.inflight[path]; ok {
		return false
	}
	b.inflight[path] = struct{}{}
	return true
}

func (b *inbox) release(path string) {
	b.mu.Lock()
	delete(b.inflight, path)
	b.mu.Unlock()
}

// feed runs until events closes or the queue stops accepting jobs.
func (b *inbox) feed(ctx context.Context, events <-chan string, errs <-chan error, q async.Queue) {
	for {
		select {
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			b.logger.Warn("inbox.watch.error", "error", err)
		case path, ok := <-events:
			if !ok {
				return
			}
			if !b.claim(path) {
				b.logger.Debug("inbox.skip.inflight", "path", path)
				continue
			}
			job := async.Job{Path: path, TraceID: uuid.NewString()}
			if err := q.Enqueue(ctx, job); err != nil {
				b.release(path)
				if errors.Is(err, async.ErrQueueClosed) || ctx.Err() != nil {
					return
				}
				b.logger.Error("inbox.enqueue.failed", "path", path, "error", err)
				continue
			}
			b.logger.Info("inbox.job", "path", path, "trace_id", job.TraceID, "status", constants.RunStatusQueued)
		}
	}
}

// settle is the queue's result hook.
func (b *inbox) settle(job async.Job, st pipeline.State, err error) {
	defer b.release(job.Path)

	status := constants.RunStatusDone
	if err != nil {
		status = constants.RunStatusFailed
		b.logger.Error("inbox.run.failed",
			"path", job.Path,
			"trace_id", job.TraceID,
			"code", common.StatusCode(err).String(),
			"error", err,
		)
	} else {
		b.logger.Info("inbox.run.done",
			"path", job.Path,
			"trace_id", job.TraceID,
			"property_id", st.PropertyID,
			"method", st.Method,
			"valid", st.Valid,
		)
	}

	dest, merr := b.move(job.Path, status)
	if merr != nil {
		b.logger.Warn("inbox.move.failed", "path", job.Path, "status", status, "error", merr)
		return
	}
	b.logger.Debug("inbox.moved", "from", job.Path, "to", dest)
}

// move files path under <inbox>/<status>/. An existing name gets a timestamp suffix.
func (b *inbox) move(path string, status constants.RunStatus) (string, error) {
	dir := filepath.Join(b.dir, string(status))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	base := filepath.Base(path)
	dest := filepath.Join(dir, base)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(base)
		dest = filepath.Join(dir, fmt.Sprintf("%s.%d%s", strings.TrimSuffix(base, ext), time.Now().UnixNano(), ext))
	}
	if err := os.Rename(path, dest); err != nil {
		return "", err
	}
	return dest, nil
}
