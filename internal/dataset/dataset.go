// Package dataset loads and validates the JSON input format spec.md §6
// defines: servers, virtual machines, and an opaque network topology. It is
// the sole source of errs.MalformedDataset — the core itself assumes a
// loaded World already satisfies every invariant in spec.md §3.
package dataset

import (
	"encoding/json"
	"os"

	"github.com/patchwave/maintsim/internal/config"
	"github.com/patchwave/maintsim/internal/errs"
	"github.com/patchwave/maintsim/internal/resource"
)

type serverDoc struct {
	ID                  int   `json:"id"`
	CPUCapacity         int64 `json:"cpu_capacity"`
	MemCapacity         int64 `json:"memory_capacity"`
	DiskCapacity        int64 `json:"disk_capacity"`
	Updated             bool  `json:"updated"`
	PatchDuration       int64 `json:"patch_duration"`
	SanityCheckDuration int64 `json:"sanity_check_duration"`
	VirtualMachines     []int `json:"virtual_machines"`
}

type vmDoc struct {
	ID         int   `json:"id"`
	CPUDemand  int64 `json:"cpu_demand"`
	MemDemand  int64 `json:"memory_demand"`
	DiskDemand int64 `json:"disk_demand"`
	Server     int   `json:"server"`
}

type topologyNodeDoc struct {
	Type string         `json:"type"`
	ID   int            `json:"id"`
	Data map[string]any `json:"data"`
}

type topologyEdgeDoc struct {
	Nodes     []topologyNodeDoc `json:"nodes"`
	Bandwidth int64             `json:"bandwidth"`
}

type document struct {
	Servers          []serverDoc       `json:"servers"`
	VirtualMachines  []vmDoc           `json:"virtual_machines"`
	NetworkTopology  []topologyEdgeDoc `json:"network_topology"`
}

// LoadFile reads and validates a dataset from path, per spec.md §6, and
// returns a fully populated World using c for its process-wide constants.
func LoadFile(path string, c config.Constants) (*resource.World, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.MalformedDataset(map[string]any{"path": path}, "reading dataset: %v", err)
	}
	return Load(raw, c)
}

// Load parses and validates dataset JSON already in memory.
func Load(raw []byte, c config.Constants) (*resource.World, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, errs.MalformedDataset(nil, "invalid JSON: %v", err)
	}
	for _, key := range []string{"servers", "virtual_machines", "network_topology"} {
		if _, ok := top[key]; !ok {
			return nil, errs.MalformedDataset(map[string]any{"key": key}, "missing required key %q", key)
		}
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errs.MalformedDataset(nil, "invalid dataset shape: %v", err)
	}

	if err := validate(doc); err != nil {
		return nil, err
	}

	w := resource.NewWorld(c)

	vmByID := make(map[int]vmDoc, len(doc.VirtualMachines))
	for _, vm := range doc.VirtualMachines {
		vmByID[vm.ID] = vm
	}

	for _, s := range doc.Servers {
		server := resource.NewServer(s.ID, s.CPUCapacity, s.MemCapacity, s.DiskCapacity, s.PatchDuration, s.SanityCheckDuration)
		server.Updated = s.Updated
		w.Servers.Add(server)
	}
	for _, vmd := range doc.VirtualMachines {
		w.VMs.Add(resource.NewVirtualMachine(vmd.ID, vmd.CPUDemand, vmd.MemDemand, vmd.DiskDemand))
	}

	for _, sd := range doc.Servers {
		server, _ := w.Servers.Find(sd.ID)
		for _, vmID := range sd.VirtualMachines {
			vm, _ := w.VMs.Find(vmID)
			if !server.HasCapacityToHost(vm) {
				return nil, errs.MalformedDataset(map[string]any{
					"server_id": sd.ID, "vm_id": vmID,
				}, "server %d has insufficient capacity for its declared VMs", sd.ID)
			}
			server.PlaceInitial(vm)
		}
	}

	for _, edge := range doc.NetworkTopology {
		nodes := make([]resource.TopologyNode, 0, len(edge.Nodes))
		for _, n := range edge.Nodes {
			nodes = append(nodes, resource.TopologyNode{Type: n.Type, ID: n.ID, Data: n.Data})
		}
		w.Topology = append(w.Topology, resource.TopologyEdge{Nodes: nodes, Bandwidth: edge.Bandwidth})
	}

	return w, nil
}

// validate checks the cross-reference invariants spec.md §7 assigns to the
// loader, before any entity is constructed: dangling VM->server references,
// a VM claimed by more than one server, and duplicate ids.
func validate(doc document) error {
	serverIDs := make(map[int]bool, len(doc.Servers))
	for _, s := range doc.Servers {
		if serverIDs[s.ID] {
			return errs.MalformedDataset(map[string]any{"server_id": s.ID}, "duplicate server id %d", s.ID)
		}
		serverIDs[s.ID] = true
	}

	vmIDs := make(map[int]bool, len(doc.VirtualMachines))
	for _, vm := range doc.VirtualMachines {
		if vmIDs[vm.ID] {
			return errs.MalformedDataset(map[string]any{"vm_id": vm.ID}, "duplicate virtual machine id %d", vm.ID)
		}
		vmIDs[vm.ID] = true
		if !serverIDs[vm.Server] {
			return errs.MalformedDataset(map[string]any{
				"vm_id": vm.ID, "server_id": vm.Server,
			}, "virtual machine %d references nonexistent server %d", vm.ID, vm.Server)
		}
	}

	hostedBy := make(map[int]int, len(doc.VirtualMachines))
	for _, s := range doc.Servers {
		for _, vmID := range s.VirtualMachines {
			if !vmIDs[vmID] {
				return errs.MalformedDataset(map[string]any{
					"server_id": s.ID, "vm_id": vmID,
				}, "server %d references nonexistent virtual machine %d", s.ID, vmID)
			}
			if owner, ok := hostedBy[vmID]; ok {
				return errs.MalformedDataset(map[string]any{
					"vm_id": vmID, "server_id": s.ID, "other_server_id": owner,
				}, "virtual machine %d is hosted by both server %d and server %d", vmID, owner, s.ID)
			}
			hostedBy[vmID] = s.ID
		}
	}

	for _, vm := range doc.VirtualMachines {
		owner, hosted := hostedBy[vm.ID]
		if !hosted {
			return errs.MalformedDataset(map[string]any{"vm_id": vm.ID}, "virtual machine %d is not hosted by any server", vm.ID)
		}
		if owner != vm.Server {
			return errs.MalformedDataset(map[string]any{
				"vm_id": vm.ID, "declared_server": vm.Server, "hosting_server": hostedBy[vm.ID],
			}, "virtual machine %d declares server %d but is hosted by server %d", vm.ID, vm.Server, hostedBy[vm.ID])
		}
	}

	return nil
}
