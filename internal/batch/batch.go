// Package batch processes many archives concurrently. Distinct properties run
// in parallel; archives that map to the same property run one after another.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/taxcerts/constants"
	"github.com/joseph-ayodele/taxcerts/internal/common"
	"github.com/joseph-ayodele/taxcerts/internal/entity"
	"github.com/joseph-ayodele/taxcerts/internal/pipeline"
)

const DefaultPattern = "**/*.zip"

// Discover returns the archives under root matching a doublestar pattern, sorted.
func Discover(root, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, common.NewAppError("INVALID_ARGUMENT", fmt.Sprintf("bad pattern %q", pattern), common.ErrInvalidInput)
	}
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		return nil, common.NewAppError("INVALID_ARGUMENT", fmt.Sprintf("input dir %s not found", root), common.ErrInvalidInput)
	}
	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", root, err)
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if !constants.IsArchiveExt(filepath.Ext(m)) {
			continue
		}
		out = append(out, filepath.Join(root, filepath.FromSlash(m)))
	}
	sort.Strings(out)
	return out, nil
}

// Outcome is the result for one archive.
type Outcome struct {
	Path       string
	PropertyID string
	Method     constants.Method
	Valid      bool
	Issues     int
	Err        error
	Elapsed    time.Duration
}

// Summary aggregates a batch.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Text      int
	Vision    int
	Outcomes  []Outcome
	Elapsed   time.Duration
}

// TextShare is the fraction of successful runs that used the text path.
func (s Summary) TextShare() float64 {
	if s.Text+s.Vision == 0 {
		return 0
	}
	return float64(s.Text) / float64(s.Text+s.Vision)
}

type Processor interface {
	Process(ctx context.Context, inputPath, propertyID string) (pipeline.State, error)
}

type Runner struct {
	proc       Processor
	workers    int
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewRunner(proc Processor, workers int, runTimeout time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 1
	}
	return &Runner{proc: proc, workers: workers, runTimeout: runTimeout, logger: logger}
}

// group buckets path indexes by property id, keeping input order inside each
// bucket and ordering buckets by first appearance. Unparseable names get a
// bucket of their own.
func group(paths []string) [][]int {
	var buckets [][]int
	byID := map[string]int{}
	for i, p := range paths {
		id, err := entity.ParsePropertyID(p)
		if err != nil {
			buckets = append(buckets, []int{i})
			continue
		}
		if b, ok := byID[id]; ok {
			buckets[b] = append(buckets[b], i)
			continue
		}
		byID[id] = len(buckets)
		buckets = append(buckets, []int{i})
	}
	return buckets
}

// Run processes every path. Each property's archives run in input order on one
// worker; distinct properties share the worker limit. A failing archive never
// stops the others; the returned error is only for cancellation of ctx.
func (r *Runner) Run(ctx context.Context, paths []string) (Summary, error) {
	start := time.Now()
	outcomes := make([]Outcome, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	var mu sync.Mutex
	for _, bucket := range group(paths) {
		g.Go(func() error {
			for _, i := range bucket {
				if err := gctx.Err(); err != nil {
					return err
				}
				o := r.one(gctx, paths[i])
				mu.Lock()
				outcomes[i] = o
				mu.Unlock()
			}
			return nil
		})
	}
	err := g.Wait()

	sum := Summary{Total: len(paths), Outcomes: outcomes, Elapsed: time.Since(start)}
	for _, o := range outcomes {
		switch {
		case o.Path == "":
			sum.Failed++
		case o.Err != nil:
			sum.Failed++
		default:
			sum.Succeeded++
			switch o.Method {
			case constants.MethodText:
				sum.Text++
			case constants.MethodVision:
				sum.Vision++
			}
		}
	}
	r.logger.Info("batch.done",
		"total", sum.Total,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"text", sum.Text,
		"vision", sum.Vision,
		"elapsed_ms", sum.Elapsed.Milliseconds(),
	)
	return sum, err
}

func (r *Runner) one(ctx context.Context, path string) Outcome {
	start := time.Now()
	o := Outcome{Path: path}
	id, err := entity.ParsePropertyID(path)
	if err != nil {
		o.Err = err
		return o
	}
	o.PropertyID = id

	if r.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.runTimeout)
		defer cancel()
	}
	st, err := r.proc.Process(ctx, path, id)
	o.Elapsed = time.Since(start)
	if err != nil {
		r.logger.Error("batch.archive.failed", "path", path, "property_id", id, "err", err)
		o.Err = err
		return o
	}
	o.Method = st.Method
	o.Valid = st.Valid
	o.Issues = len(st.Issues)
	return o
}
