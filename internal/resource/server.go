// Package resource implements the capacity/demand bookkeeping at the heart
// of the simulator (spec.md §3, §4.2): Server and VirtualMachine, plus the
// World value that replaces the teacher's class-level registries (per
// spec.md §9's design note) with an explicit, passed-by-reference
// collection of both entity registries and the simulation's constants.
package resource

import (
	"math"

	"github.com/patchwave/maintsim/internal/config"
)

// Server models a physical host: fixed capacities, mutable demands tracking
// the VMs it hosts, and the patch state spec.md §3 requires. Server values
// are owned exclusively by their Registry for the simulation's lifetime;
// hosted-set membership is a relation maintained jointly with
// VirtualMachine.Migrate, not ownership.
type Server struct {
	ID int

	CPUCapacity  int64
	MemCapacity  int64
	DiskCapacity int64

	CPUDemand  int64
	MemDemand  int64
	DiskDemand int64

	Updated    bool
	UpdateStep int // 0 means "not updated during the run"; maintenance steps start at 1.

	PatchDuration       int64
	SanityCheckDuration int64

	hosted []*VirtualMachine
}

// NewServer constructs an empty, nonupdated server.
func NewServer(id int, cpuCap, memCap, diskCap int64, patchDuration, sanityCheckDuration int64) *Server {
	return &Server{
		ID:                  id,
		CPUCapacity:         cpuCap,
		MemCapacity:         memCap,
		DiskCapacity:        diskCap,
		PatchDuration:       patchDuration,
		SanityCheckDuration: sanityCheckDuration,
	}
}

// EntityID satisfies entity.Identifiable.
func (s *Server) EntityID() int { return s.ID }

// Hosted returns the VMs currently hosted, in the order they were placed or
// migrated in. Membership is a set in spec terms (no duplicates, no
// meaningful order); the slice order is only used for non-gated strategies'
// "host's hosted-set iteration order" (spec.md §4.6).
func (s *Server) Hosted() []*VirtualMachine {
	return s.hosted
}

// Empty reports whether the server currently hosts no VMs.
func (s *Server) Empty() bool {
	return len(s.hosted) == 0
}

// RecalculateDemand recomputes demand from the authoritative hosted set.
// It is idempotent and is the only way demand is derived from scratch;
// Migrate instead adjusts demand incrementally, but anything that needs to
// re-establish the invariant demand == Σ hosted.demand after provisional
// bookkeeping (the feasibility oracle) calls this.
func (s *Server) RecalculateDemand() {
	var cpu, mem, disk int64
	for _, vm := range s.hosted {
		cpu += vm.CPUDemand
		mem += vm.MemDemand
		disk += vm.DiskDemand
	}
	s.CPUDemand, s.MemDemand, s.DiskDemand = cpu, mem, disk
}

// CapacityScore is the geometric mean of the server's three capacities,
// used as a factor in the salus strategy's update-cost drain order.
func (s *Server) CapacityScore() float64 {
	return geometricMean3(float64(s.CPUCapacity), float64(s.MemCapacity), float64(s.DiskCapacity))
}

// OverallDemand is the geometric mean of current demands. The reference
// convention propagates zero: if any demand is 0, the product (and hence
// the result) is 0.
func (s *Server) OverallDemand() float64 {
	return geometricMean3(float64(s.CPUDemand), float64(s.MemDemand), float64(s.DiskDemand))
}

// OccupationRate is the mean of the three per-resource usage percentages.
func (s *Server) OccupationRate() float64 {
	cpuPct := float64(s.CPUDemand) * 100 / float64(s.CPUCapacity)
	memPct := float64(s.MemDemand) * 100 / float64(s.MemCapacity)
	diskPct := float64(s.DiskDemand) * 100 / float64(s.DiskCapacity)
	return (cpuPct + memPct + diskPct) / 3
}

// HasCapacityToHost reports whether adding vm would keep every resource's
// demand within capacity. It reflects the server's current demand fields,
// so callers must keep demand in sync (RecalculateDemand is idempotent)
// before relying on this.
func (s *Server) HasCapacityToHost(vm *VirtualMachine) bool {
	return s.CPUDemand+vm.CPUDemand <= s.CPUCapacity &&
		s.MemDemand+vm.MemDemand <= s.MemCapacity &&
		s.DiskDemand+vm.DiskDemand <= s.DiskCapacity
}

// DrainDuration sums the migration time of every currently hosted VM.
func (s *Server) DrainDuration(c config.Constants) int64 {
	var total int64
	for _, vm := range s.hosted {
		total += vm.MigrationTime(c)
	}
	return total
}

// MaintenanceDuration is the drain duration plus the server's own patch and
// sanity-check durations.
func (s *Server) MaintenanceDuration(c config.Constants) int64 {
	return s.DrainDuration(c) + s.PatchDuration + s.SanityCheckDuration
}

// Update marks the server as patched at the given maintenance step and
// returns its maintenance duration. It does not drain the server itself —
// the caller must ensure the server is already empty if it wants the drain
// component to be zero. Updated is monotonic: calling Update twice leaves
// UpdateStep at its first value.
func (s *Server) Update(step int, c config.Constants) int64 {
	duration := s.MaintenanceDuration(c)
	if !s.Updated {
		s.Updated = true
		s.UpdateStep = step
	}
	return duration
}

// addVM and removeVM are the only mutators of the hosted set; they are used
// exclusively by VirtualMachine.Migrate and initial dataset placement so
// that demand bookkeeping and the hosted set never drift apart.
func (s *Server) addVM(vm *VirtualMachine) {
	s.hosted = append(s.hosted, vm)
	s.CPUDemand += vm.CPUDemand
	s.MemDemand += vm.MemDemand
	s.DiskDemand += vm.DiskDemand
}

func (s *Server) removeVM(vm *VirtualMachine) {
	for i, h := range s.hosted {
		if h == vm {
			s.hosted = append(s.hosted[:i], s.hosted[i+1:]...)
			break
		}
	}
	s.CPUDemand -= vm.CPUDemand
	s.MemDemand -= vm.MemDemand
	s.DiskDemand -= vm.DiskDemand
}

// AddProvisionalDemand increments demand as if vm were hosted here, without
// touching the hosted set. It exists solely for the feasibility oracle
// (internal/feasibility), which must simulate placement decisions without
// committing them; RecalculateDemand restores the authoritative state
// afterwards.
func (s *Server) AddProvisionalDemand(vm *VirtualMachine) {
	s.CPUDemand += vm.CPUDemand
	s.MemDemand += vm.MemDemand
	s.DiskDemand += vm.DiskDemand
}

// PlaceInitial hosts vm on s without going through the migration
// precondition or logging a migration-log entry: it exists solely for the
// dataset loader to establish the starting placement described by the
// input dataset, which is not itself a migration.
func (s *Server) PlaceInitial(vm *VirtualMachine) {
	s.addVM(vm)
	vm.Host = s
}

func geometricMean3(a, b, c float64) float64 {
	product := a * b * c
	if product <= 0 {
		return 0
	}
	return math.Cbrt(product)
}
