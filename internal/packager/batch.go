package packager

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/ocpack/internal/errors"
)

// Policy decides what PackageMany does after a failure.
type Policy int

const (
	// BestEffort packages every component and reports every failure.
	BestEffort Policy = iota
	// FailFast stops scheduling work after the first failure.
	FailFast
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case FailFast:
		return "fail-fast"
	default:
		return "best-effort"
	}
}

// Outcome is the result of packaging one path. Exactly one of Component and
// Err is set.
type Outcome struct {
	Path      string             `json:"path"`
	Component *PackagedComponent `json:"component,omitempty"`
	Err       error              `json:"-"`
}

// OK reports whether the component was packaged.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// BatchResult holds one outcome per input path, in input order.
type BatchResult struct {
	Outcomes []Outcome     `json:"outcomes"`
	Duration time.Duration `json:"duration"`
}

// Succeeded returns the packaged components.
func (b *BatchResult) Succeeded() []*PackagedComponent {
	var out []*PackagedComponent
	for _, o := range b.Outcomes {
		if o.OK() {
			out = append(out, o.Component)
		}
	}
	return out
}

// Failed returns the failed outcomes.
func (b *BatchResult) Failed() []Outcome {
	var out []Outcome
	for _, o := range b.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Err joins every failure, or returns nil.
func (b *BatchResult) Err() error {
	var errs []error
	for _, o := range b.Failed() {
		errs = append(errs, o.Err)
	}
	return stderrors.Join(errs...)
}

// OK reports whether every component was packaged.
func (b *BatchResult) OK() bool {
	return len(b.Failed()) == 0
}

// PackageMany packages every path concurrently with at most the configured
// number of workers. Each path must be a distinct component directory.
func (p *Packager) PackageMany(ctx context.Context, paths []string) *BatchResult {
	start := time.Now()
	result := &BatchResult{Outcomes: make([]Outcome, len(paths))}

	g := new(errgroup.Group)
	runCtx := ctx
	if p.policy == FailFast {
		g, runCtx = errgroup.WithContext(ctx)
	}
	g.SetLimit(p.workers)

	seen := make(map[string]int, len(paths))
	for i, path := range paths {
		result.Outcomes[i].Path = path

		key := path
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
		if first, dup := seen[key]; dup {
			result.Outcomes[i].Err = errors.InvalidArgument("path", "listed more than once", path).
				WithPath(path).
				WithContext("first_index", first)
			continue
		}
		seen[key] = i

		g.Go(func() error {
			if err := runCtx.Err(); err != nil {
				result.Outcomes[i].Err = skipped(path, err)
				return err
			}
			pc, err := p.PackageOne(runCtx, path)
			if err != nil {
				result.Outcomes[i].Err = err
				return err
			}
			result.Outcomes[i].Component = pc
			return nil
		})
	}
	_ = g.Wait()

	result.Duration = time.Since(start)
	failed := len(result.Failed())
	p.logger.Info(ctx, "batch packaged",
		"total", len(paths),
		"succeeded", len(paths)-failed,
		"failed", failed,
		"policy", p.policy.String(),
		"duration", result.Duration.Round(time.Millisecond).String())
	return result
}

func skipped(path string, cause error) error {
	return errors.NewInternalError(errors.ErrCodeInternal, "skipped after an earlier failure", cause).
		WithComponent(filepath.Base(path)).
		WithPath(path)
}
