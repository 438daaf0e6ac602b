// Package feasibility implements the bin-packing feasibility oracle
// (spec.md §4.3, C3): an advisory "can these servers host these VMs?"
// check used by the gated maintenance strategies before committing a
// drain. It never mutates persisted state — demand is restored from each
// candidate's authoritative hosted set before returning, regardless of the
// outcome.
package feasibility

import (
	"sort"

	"github.com/patchwave/maintsim/internal/resource"
)

// CanHostVMs asks whether candidates, using only their own free capacity,
// can host every VM in vms. Every VM is placed afresh: a VM whose current
// host is itself a candidate is not counted as already placed, and that
// host's demand still includes it. Algorithm, per spec.md §4.3:
//  1. Snapshot is implicit: candidate demand is recomputed from the
//     authoritative hosted set before returning, regardless of outcome.
//  2. VMs are sorted by OverallDemand descending.
//  3. For each VM in order, candidates are (re-)sorted by OccupationRate
//     descending — a Best-Fit Decreasing bias — with ties broken by the
//     caller's original (registry) order, and the VM is provisionally
//     placed on the first candidate with capacity.
//  4. The result is true iff every VM was placed.
func CanHostVMs(candidates []*resource.Server, vms []*resource.VirtualMachine) bool {
	sortedVMs := append([]*resource.VirtualMachine(nil), vms...)
	sort.SliceStable(sortedVMs, func(i, j int) bool {
		return sortedVMs[i].OverallDemand() > sortedVMs[j].OverallDemand()
	})

	placed := 0
	for _, vm := range sortedVMs {
		byOccupation := append([]*resource.Server(nil), candidates...)
		sort.SliceStable(byOccupation, func(i, j int) bool {
			return byOccupation[i].OccupationRate() > byOccupation[j].OccupationRate()
		})

		for _, cand := range byOccupation {
			if cand.HasCapacityToHost(vm) {
				cand.AddProvisionalDemand(vm)
				placed++
				break
			}
		}
	}

	for _, cand := range candidates {
		cand.RecalculateDemand()
	}

	return placed == len(vms)
}
