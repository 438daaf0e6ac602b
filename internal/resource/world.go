package resource

import (
	"github.com/samber/lo"

	"github.com/patchwave/maintsim/internal/config"
	"github.com/patchwave/maintsim/internal/entity"
)

// TopologyNode is one endpoint of a network_topology edge (spec.md §6): a
// reference to either a Server or a bare integer node, with opaque
// metadata. No algorithm in this module consults topology; it is carried
// only so it can be round-tripped or rendered.
type TopologyNode struct {
	Type string
	ID   int
	Data map[string]any
}

// TopologyEdge is one network_topology entry (spec.md §6).
type TopologyEdge struct {
	Nodes     []TopologyNode
	Bandwidth int64
}

// World is the explicit value every simulator component reads and mutates,
// replacing the teacher's class-level "instances" lists per spec.md §9's
// design note. It owns both entity registries, the maintenance step
// counter, and the immutable simulation constants.
type World struct {
	Servers   *entity.Registry[*Server]
	VMs       *entity.Registry[*VirtualMachine]
	Constants config.Constants
	Topology  []TopologyEdge

	// Step is the current maintenance step counter (spec.md §3): a
	// positive integer starting at 1, incremented by the maintenance loop
	// after each outer iteration.
	Step int
}

// NewWorld creates an empty World ready for dataset loading.
func NewWorld(c config.Constants) *World {
	return &World{
		Servers:   entity.New[*Server](),
		VMs:       entity.New[*VirtualMachine](),
		Constants: c,
		Step:      1,
	}
}

// UpdatedServers returns every server already patched, in registry order.
func (w *World) UpdatedServers() []*Server {
	return w.Servers.Filter(func(s *Server) bool { return s.Updated })
}

// NonupdatedServers returns every server not yet patched, in registry order.
func (w *World) NonupdatedServers() []*Server {
	return w.Servers.Filter(func(s *Server) bool { return !s.Updated })
}

// UsedServers returns every server currently hosting at least one VM.
func (w *World) UsedServers() []*Server {
	return w.Servers.Filter(func(s *Server) bool { return !s.Empty() })
}

// ReadyToPatch returns every nonupdated, empty server — the set the
// maintenance loop's patch phase operates on (spec.md §4.1, §4.6).
func (w *World) ReadyToPatch() []*Server {
	return w.Servers.Filter(func(s *Server) bool { return !s.Updated && s.Empty() })
}

// ConsolidationRate is 100 minus the percentage of servers currently in
// use, spec.md §4.2.
func (w *World) ConsolidationRate() float64 {
	total := w.Servers.Count()
	if total == 0 {
		return 0
	}
	used := len(w.UsedServers())
	return 100 - float64(used)*100/float64(total)
}

// OtherServers returns every registered server except those in exclude,
// preserving registry order. The migration-phase policies build their
// candidate sets with their own helper, which also drops servers emptied
// earlier in the step, and do not call this.
func (w *World) OtherServers(exclude ...*Server) []*Server {
	excluded := lo.SliceToMap(exclude, func(s *Server) (int, struct{}) { return s.ID, struct{}{} })
	return w.Servers.Filter(func(s *Server) bool {
		_, skip := excluded[s.ID]
		return !skip
	})
}
