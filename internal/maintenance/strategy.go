// Package maintenance implements the maintenance loop and strategy
// framework (spec.md §4.5, §4.6; components C5 and C6): the outer
// state machine that drives a pluggable strategy to patch every server,
// and the five named strategies themselves.
package maintenance

import (
	"log/slog"

	"github.com/patchwave/maintsim/internal/resource"
	"github.com/patchwave/maintsim/internal/sched"
)

// Strategy is a suspendable migration-phase policy. The shared patch phase
// (identical across strategies) lives in runPhase, not here; Migrate is
// called only when ready_to_patch() is empty.
type Strategy interface {
	Name() string
	Migrate(w *resource.World, p *sched.Process, step int) error
}

// runPhase implements the dispatch rule shared by every strategy (spec.md
// §4.6): run a patch phase if any server is ready to patch, otherwise hand
// off to the strategy's migration phase.
func runPhase(w *resource.World, p *sched.Process, step int, s Strategy) error {
	if ready := w.ReadyToPatch(); len(ready) > 0 {
		patchPhase(w, p, step, ready)
		return nil
	}
	return s.Migrate(w, p, step)
}

// patchPhase updates every server ready to patch and yields a single
// timeout for the slowest one, modeling all patches proceeding in parallel
// simulated time (spec.md §4.6).
func patchPhase(w *resource.World, p *sched.Process, step int, ready []*resource.Server) {
	var maxDuration int64
	for _, s := range ready {
		d := s.Update(step, w.Constants)
		if d > maxDuration {
			maxDuration = d
		}
		slog.Debug("server patched", "step", step, "server_id", s.ID, "duration", d)
	}
	slog.Debug("patch phase complete", "step", step, "servers_patched", len(ready), "duration", maxDuration)
	p.Timeout(maxDuration)
}
