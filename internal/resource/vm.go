package resource

import (
	"github.com/patchwave/maintsim/internal/config"
	"github.com/patchwave/maintsim/internal/errs"
)

// MigrationRecord is one append-only entry in a VM's migration log,
// spec.md §3.
type MigrationRecord struct {
	MaintenanceStep int
	Duration        int64
	OriginID        int
	DestinationID   int
}

// VirtualMachine models a VM: fixed demands, its current host, and an
// append-only migration log owned exclusively by the VM.
type VirtualMachine struct {
	ID int

	CPUDemand  int64
	MemDemand  int64
	DiskDemand int64

	Host *Server

	MigrationLog []MigrationRecord
}

// NewVirtualMachine constructs an unplaced VM; callers place it on a host
// via Server.PlaceInitial during dataset load.
func NewVirtualMachine(id int, cpu, mem, disk int64) *VirtualMachine {
	return &VirtualMachine{ID: id, CPUDemand: cpu, MemDemand: mem, DiskDemand: disk}
}

// EntityID satisfies entity.Identifiable.
func (vm *VirtualMachine) EntityID() int { return vm.ID }

// OverallDemand is the geometric mean of the VM's three demands, used to
// order VMs for the feasibility oracle and the gated strategies (spec.md
// §4.3, §4.6).
func (vm *VirtualMachine) OverallDemand() float64 {
	return geometricMean3(float64(vm.CPUDemand), float64(vm.MemDemand), float64(vm.DiskDemand))
}

// MigrationTime is the deterministic migration duration, spec.md §4.2:
// SAVE_TIME + floor((memory_GiB*1024 + disk_GiB*1024) / NETWORK_BW) + RESTORE_TIME.
func (vm *VirtualMachine) MigrationTime(c config.Constants) int64 {
	transferMB := vm.MemDemand*1024 + vm.DiskDemand*1024
	return c.SaveTime + transferMB/c.NetworkBW + c.RestoreTime
}

// Migrate moves the VM from its current host to destination, updating both
// sides' demand and hosted sets atomically, rebinding Host, and appending a
// migration-log entry tagged with the given maintenance step. It returns
// the migration's duration. Migrate requires destination.HasCapacityToHost
// to already hold; violating that is a programming error, reported as
// errs.InvariantViolated rather than silently overcommitting a server.
func (vm *VirtualMachine) Migrate(destination *Server, step int, c config.Constants) (int64, error) {
	if !destination.HasCapacityToHost(vm) {
		return 0, errs.InvariantViolated(map[string]any{
			"vm_id": vm.ID, "destination_id": destination.ID,
		}, "server %d lacks capacity to host vm %d", destination.ID, vm.ID)
	}

	origin := vm.Host
	if origin != nil {
		origin.removeVM(vm)
	}
	destination.addVM(vm)
	vm.Host = destination

	duration := vm.MigrationTime(c)

	originID := 0
	if origin != nil {
		originID = origin.ID
	}
	vm.MigrationLog = append(vm.MigrationLog, MigrationRecord{
		MaintenanceStep: step,
		Duration:        duration,
		OriginID:        originID,
		DestinationID:   destination.ID,
	})

	return duration, nil
}
