package maintenance

import (
	"log/slog"
	"math"
	"sort"

	"github.com/patchwave/maintsim/internal/feasibility"
	"github.com/patchwave/maintsim/internal/resource"
	"github.com/patchwave/maintsim/internal/sched"
)

// policy implements Strategy via a set of ordering functions, capturing the
// mechanics every named strategy shares (spec.md §4.6 "Common migration-
// phase mechanics") and varying only drain order, candidate order, and
// whether a drain must pass the feasibility gate first.
type policy struct {
	name string

	// drainOrder returns the servers to consider for draining this
	// migration phase, in the order they are to be considered.
	drainOrder func(w *resource.World) []*resource.Server

	// sortCandidates reorders candidates in place before each VM's
	// destination is chosen. A nil func leaves candidates in their
	// given (registry) order.
	sortCandidates func(candidates []*resource.Server)

	// gated strategies only attempt a drain when the feasibility oracle
	// confirms every hosted VM can be placed on the candidate set.
	gated bool
}

func (p *policy) Name() string { return p.name }

func (p *policy) Migrate(w *resource.World, proc *sched.Process, step int) error {
	emptied := make(map[int]bool)

	for _, s := range p.drainOrder(w) {
		if s.Updated || emptied[s.ID] {
			continue
		}

		candidates := otherNonEmptied(w, s, emptied)
		vms := vmsToMove(s, p.gated)

		if p.gated && !feasibility.CanHostVMs(candidates, vms) {
			slog.Debug("drain skipped", "strategy", p.name, "step", step, "server_id", s.ID, "reason", "infeasible")
			continue
		}

		for _, vm := range vms {
			if p.sortCandidates != nil {
				p.sortCandidates(candidates)
			}
			dest := firstWithCapacity(candidates, vm)
			if dest == nil {
				continue
			}
			duration, err := vm.Migrate(dest, step, w.Constants)
			if err != nil {
				return err
			}
			slog.Debug("vm migrated", "strategy", p.name, "step", step, "vm_id", vm.ID,
				"origin_id", s.ID, "dest_id", dest.ID, "duration", duration)
			proc.Timeout(duration)
		}

		if s.Empty() {
			emptied[s.ID] = true
		}
	}

	return nil
}

// otherNonEmptied returns every server except s and those already emptied
// this step, in registry order — the candidate-set construction shared by
// every strategy (spec.md §4.6).
func otherNonEmptied(w *resource.World, s *resource.Server, emptied map[int]bool) []*resource.Server {
	return w.Servers.Filter(func(c *resource.Server) bool {
		return c.ID != s.ID && !emptied[c.ID]
	})
}

// vmsToMove snapshots the VMs to migrate off s, since migrating mutates
// s.Hosted() as we go. Gated strategies pre-sort by overall demand
// descending; non-gated strategies keep the host's hosted-set order.
func vmsToMove(s *resource.Server, gated bool) []*resource.VirtualMachine {
	vms := append([]*resource.VirtualMachine(nil), s.Hosted()...)
	if gated {
		sort.SliceStable(vms, func(i, j int) bool {
			return vms[i].OverallDemand() > vms[j].OverallDemand()
		})
	}
	return vms
}

func firstWithCapacity(candidates []*resource.Server, vm *resource.VirtualMachine) *resource.Server {
	for _, c := range candidates {
		if c.HasCapacityToHost(vm) {
			return c
		}
	}
	return nil
}

func sortByOccupation(candidates []*resource.Server, descending bool) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if descending {
			return candidates[i].OccupationRate() > candidates[j].OccupationRate()
		}
		return candidates[i].OccupationRate() < candidates[j].OccupationRate()
	})
}

// sortUpdatedThenOccupation is the gated strategies' candidate order:
// already-updated servers first (absorbing VMs onto patched hosts doesn't
// cost a future drain), then occupation_rate descending.
func sortUpdatedThenOccupation(candidates []*resource.Server) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Updated != candidates[j].Updated {
			return candidates[i].Updated
		}
		return candidates[i].OccupationRate() > candidates[j].OccupationRate()
	})
}

// BestFit drains nonupdated servers in registry order, placing each VM on
// the candidate with the highest occupation rate that has room.
func BestFit() Strategy {
	return &policy{
		name:           "best_fit",
		drainOrder:     func(w *resource.World) []*resource.Server { return w.NonupdatedServers() },
		sortCandidates: func(c []*resource.Server) { sortByOccupation(c, true) },
	}
}

// FirstFit drains nonupdated servers in registry order, placing each VM on
// the first candidate in registry order that has room.
func FirstFit() Strategy {
	return &policy{
		name:       "first_fit",
		drainOrder: func(w *resource.World) []*resource.Server { return w.NonupdatedServers() },
	}
}

// WorstFit drains nonupdated servers in registry order, placing each VM on
// the candidate with the lowest occupation rate that has room.
func WorstFit() Strategy {
	return &policy{
		name:           "worst_fit",
		drainOrder:     func(w *resource.World) []*resource.Server { return w.NonupdatedServers() },
		sortCandidates: func(c []*resource.Server) { sortByOccupation(c, false) },
	}
}

// GreedyLeastBatch drains the least-occupied nonupdated servers first, and
// only when the feasibility oracle confirms the whole batch can be placed.
func GreedyLeastBatch() Strategy {
	return &policy{
		name: "greedy_least_batch",
		drainOrder: func(w *resource.World) []*resource.Server {
			nonupdated := append([]*resource.Server(nil), w.NonupdatedServers()...)
			sort.SliceStable(nonupdated, func(i, j int) bool {
				return nonupdated[i].OccupationRate() < nonupdated[j].OccupationRate()
			})
			return nonupdated
		},
		sortCandidates: sortUpdatedThenOccupation,
		gated:          true,
	}
}

// Salus drains servers in ascending order of update cost —
// sqrt(maintenance_duration * 1/(capacity_score+1)) — preferring servers
// with short maintenance and high capacity as drain targets, gated by the
// feasibility oracle.
func Salus() Strategy {
	return &policy{
		name: "salus",
		drainOrder: func(w *resource.World) []*resource.Server {
			nonupdated := append([]*resource.Server(nil), w.NonupdatedServers()...)
			sort.SliceStable(nonupdated, func(i, j int) bool {
				return updateCost(nonupdated[i], w) < updateCost(nonupdated[j], w)
			})
			return nonupdated
		},
		sortCandidates: sortUpdatedThenOccupation,
		gated:          true,
	}
}

func updateCost(s *resource.Server, w *resource.World) float64 {
	return math.Sqrt(float64(s.MaintenanceDuration(w.Constants)) * (1 / (s.CapacityScore() + 1)))
}

// Named maps every strategy's spec.md §6 CLI name to its constructor. Map
// iteration order is unspecified; Names gives the table order.
var Named = map[string]func() Strategy{
	"best_fit":           BestFit,
	"first_fit":          FirstFit,
	"worst_fit":          WorstFit,
	"greedy_least_batch": GreedyLeastBatch,
	"salus":              Salus,
}

// Names returns the valid --maintenance-strategy values, in table order.
func Names() []string {
	return []string{"best_fit", "first_fit", "worst_fit", "greedy_least_batch", "salus"}
}
