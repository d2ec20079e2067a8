// Package engine executes recipes: it renders and runs each step in order
// against a page and a requester, and shapes the visible variables into
// an extraction record with a per-step trace.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wenzapen/scout/recipe"
	"github.com/wenzapen/scout/vars"
)

type Runner struct {
	options
}

func NewRunner(opts ...Option) *Runner {
	options := DefaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Runner{options: options}
}

// Run validates, expands and executes rec. It always returns a Result;
// the error is non-nil when the run was rejected, stopped by a fatal step
// or cancelled. Step-level failures are reported in the trace only.
func (r *Runner) Run(ctx context.Context, rec *recipe.Recipe) (*Result, error) {
	res := &Result{
		RunID:  uuid.NewString(),
		Recipe: rec.Name,
		Mode:   rec.Mode,
		Status: RunOK,
	}
	logger := r.Logger.With(zap.String("run", res.RunID), zap.String("recipe", rec.Name))

	finish := func(status string, err error) (*Result, error) {
		res.Status = status
		r.Metrics.ObserveRun(string(rec.Mode), status)
		if err != nil {
			logger.Error("run stopped", zap.String("status", status), zap.Error(err))
		} else {
			logger.Info("run finished", zap.String("status", status), zap.Int("steps", len(res.Trace)))
		}
		return res, err
	}

	if err := rec.Validate(); err != nil {
		return finish(RunInvalid, err)
	}
	steps, err := rec.ExpandAll()
	if err != nil {
		return finish(RunInvalid, err)
	}

	store := vars.New()
	exec := newExecutor(store, r.options, rec.URL)
	status := RunOK

	for i, st := range steps {
		entry := TraceEntry{
			StepIndex:   i,
			SourceIndex: st.Source,
			Command:     st.Command,
			Locator:     st.Locator,
			Output:      st.Output.Name,
		}
		if st.Looped {
			idx := st.Index
			entry.LoopIndex = &idx
		}

		if err := ctx.Err(); err != nil {
			entry.Status = StatusCancelled
			entry.Error = err.Error()
			res.Trace = append(res.Trace, entry)
			return finish(RunCancelled, cancelled(err))
		}

		start := time.Now()
		out, err := exec.Execute(ctx, st.Step)
		elapsed := time.Since(start)
		var ce *ConfigurationError
		if errors.As(err, &ce) {
			ce.Step = st.Source
		}

		entry.DurationMs = elapsed.Milliseconds()
		if out.Locator != "" {
			entry.Locator = out.Locator
		}
		entry.MatchCount = out.MatchCount
		entry.SampleValues = out.Samples
		entry.Unresolved = out.Unresolved
		if st.Output.Show && st.Output.Name != "" {
			store.Expose(st.Output.Name)
		}

		switch {
		case err == nil && out.Found:
			entry.Status = StatusOK
		case err == nil:
			entry.Status = StatusNotFound
			entry.Error = out.Missing().Error()
		case errors.Is(err, ErrCancelled):
			entry.Status = StatusCancelled
		default:
			entry.Status = StatusFailed
		}
		if err != nil {
			entry.Error = err.Error()
		}
		res.Trace = append(res.Trace, entry)
		r.Metrics.ObserveStep(string(st.Command), entry.Status, elapsed)

		logger.Debug("step done",
			zap.Int("step", i),
			zap.String("command", string(st.Command)),
			zap.String("locator", entry.Locator),
			zap.Int("matches", entry.MatchCount),
			zap.String("status", entry.Status),
			zap.Duration("elapsed", elapsed))

		if err == nil {
			continue
		}
		switch {
		case errors.Is(err, ErrCancelled):
			return finish(RunCancelled, err)
		case fatal(err):
			return finish(RunFailed, err)
		}
		logger.Warn("step failed", zap.Int("step", i), zap.Error(err))
		status = RunPartial
	}

	switch rec.Mode {
	case recipe.ModeDetail:
		res.Output.Results = shapeDetail(store)
	default:
		res.Output.Results = shapeListing(store)
	}
	res.Leaks = scanLeaks(res.Output.Results)
	return finish(status, nil)
}
