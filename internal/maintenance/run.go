package maintenance

import (
	"log/slog"

	"github.com/patchwave/maintsim/internal/errs"
	"github.com/patchwave/maintsim/internal/metrics"
	"github.com/patchwave/maintsim/internal/resource"
	"github.com/patchwave/maintsim/internal/sched"
)

// Lookup resolves a --maintenance-strategy name (spec.md §6) to a Strategy,
// or errs.UnknownStrategy if name isn't one of the five.
func Lookup(name string) (Strategy, error) {
	ctor, ok := Named[name]
	if !ok {
		return nil, errs.UnknownStrategy(name)
	}
	return ctor(), nil
}

// Options configures Run's optional diagnostics.
type Options struct {
	noProgressAfter int
	realtimeFactor  float64
}

// Option mutates Options.
type Option func(*Options)

// WithNoProgressDetection surfaces errs.NoProgress once n consecutive
// maintenance steps complete with zero patches and zero migrations. It is
// off by default (n == 0 disables it): the reference implementation has no
// watchdog and scenario 3 (spec.md §8) depends on that deadlock being
// preservable, so detection is opt-in.
func WithNoProgressDetection(n int) Option {
	return func(o *Options) { o.noProgressAfter = n }
}

// WithRealtime paces the run against wall-clock time, proportional to
// factor, using sched.Env.RunRealtime instead of the default virtual-time
// Run. It changes only pacing, never event order or the resulting metrics.
func WithRealtime(factor float64) Option {
	return func(o *Options) { o.realtimeFactor = factor }
}

// Result is a completed run's full metrics history.
type Result struct {
	Steps   []metrics.StepMetrics
	Overall metrics.OverallMetrics
}

// Run drives the maintenance loop (spec.md §4.5, C5) to completion inside a
// single scheduler process: each iteration dispatches one phase via the
// shared rule in runPhase, snapshots metrics, and advances the step counter,
// terminating once every server is updated.
func Run(w *resource.World, env *sched.Env, strategy Strategy, opts ...Option) (Result, error) {
	var cfg Options
	for _, opt := range opts {
		opt(&cfg)
	}

	var steps []metrics.StepMetrics
	var runErr error
	zeroStreak := 0

	slog.Info("maintenance run starting", "strategy", strategy.Name(), "servers", w.Servers.Count(), "vms", w.VMs.Count())

	env.Spawn(func(p *sched.Process) {
		for len(w.NonupdatedServers()) > 0 {
			patching := len(w.ReadyToPatch()) > 0
			nonupdatedAtStart := len(w.NonupdatedServers())

			if err := runPhase(w, p, w.Step, strategy); err != nil {
				runErr = err
				return
			}

			snap := metrics.Snapshot(w, w.Step, env.Now(), nonupdatedAtStart)
			steps = append(steps, snap)
			slog.Debug("step complete", "step", w.Step, "now", env.Now(),
				"migrations", snap.MigrationCount, "nonupdated", nonupdatedAtStart)

			if !patching && snap.MigrationCount == 0 {
				zeroStreak++
			} else {
				zeroStreak = 0
			}
			if cfg.noProgressAfter > 0 && zeroStreak >= cfg.noProgressAfter {
				runErr = errs.NoProgress(w.Step, zeroStreak)
				slog.Error("maintenance run aborted", "reason", "no_progress", "step", w.Step, "consecutive_steps", zeroStreak)
				return
			}

			w.Step++
		}
	})

	if cfg.realtimeFactor > 0 {
		env.RunRealtime(cfg.realtimeFactor)
	} else {
		env.Run()
	}

	if runErr != nil {
		return Result{}, runErr
	}
	slog.Info("maintenance run complete", "strategy", strategy.Name(), "steps", len(steps), "maintenance_duration", env.Now())
	return Result{Steps: steps, Overall: metrics.Aggregate(steps)}, nil
}
