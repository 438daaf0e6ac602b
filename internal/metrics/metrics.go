// Package metrics implements the per-step snapshot and overall aggregation
// (spec.md §4.7, C7): every number the maintenance loop reports is derived
// here from the resource model and the VMs' migration logs, never stored
// redundantly elsewhere.
package metrics

import (
	"github.com/google/uuid"

	"github.com/patchwave/maintsim/internal/resource"
)

// ServerSnapshot is the per-server state captured at one maintenance step.
type ServerSnapshot struct {
	ID             int
	CPUCapacity    int64
	MemCapacity    int64
	DiskCapacity   int64
	CPUDemand      int64
	MemDemand      int64
	DiskDemand     int64
	OccupationRate float64
	HostedVMIDs    []int
	Updated        bool
	UpdateStep     int
}

// VMSnapshot is the per-VM state captured at one maintenance step.
type VMSnapshot struct {
	ID           int
	CPUDemand    int64
	MemDemand    int64
	DiskDemand   int64
	HostID       int
	HostUpdated  bool
	MigrationLog []resource.MigrationRecord
}

// StepMetrics is everything captured and derived for one maintenance step
// (spec.md §4.7).
type StepMetrics struct {
	Step int
	Now  int64

	Servers []ServerSnapshot
	VMs     []VMSnapshot

	// VulnerabilitySurface is now * |servers nonupdated at the step's
	// start|, a time-weighted measure of exposure.
	VulnerabilitySurface int64

	// ConsolidationRate is 100 - (used_servers*100/count), §4.2.
	ConsolidationRate float64

	// OccupationRate is the mean of occupation_rate() over all servers,
	// not only used ones — see Snapshot's doc comment on this choice.
	OccupationRate float64

	MigrationCount        int
	MigrationDurationSum  int64
	MigrationDurationMin  int64
	MigrationDurationMax  int64
	MigrationDurationMean float64
}

// Snapshot captures StepMetrics for the current state of w, tagging
// migration statistics to the given step.
//
// nonupdatedAtStart is the count of nonupdated servers as of the
// beginning of this step, before its phase ran — a server patched during
// this very step was still exposed for the duration the step took, so
// vulnerability_surface counts it (spec.md §4.7's worked trivial scenario:
// the lone server's patch step still reports vulnerability_surface =
// now·1, not now·0).
//
// OccupationRate is averaged over every registered server, not just the
// ones currently hosting a VM. The reference implementation disagrees with
// itself on this point: maintenance/misc.py's collect-metrics helper
// divides by used-server count (dividing by zero whenever the fleet is
// fully drained), while the code path that actually produces the shipped
// result tables (simulator.py's show_results) divides by the total server
// count. This snapshot follows the latter, exercised path.
func Snapshot(w *resource.World, step int, now int64, nonupdatedAtStart int) StepMetrics {
	servers := w.Servers.All()

	m := StepMetrics{
		Step:              step,
		Now:               now,
		ConsolidationRate: w.ConsolidationRate(),
	}

	var occupationSum float64
	for _, s := range servers {
		occupationSum += s.OccupationRate()

		hostedIDs := make([]int, 0, len(s.Hosted()))
		for _, vm := range s.Hosted() {
			hostedIDs = append(hostedIDs, vm.ID)
		}

		m.Servers = append(m.Servers, ServerSnapshot{
			ID:             s.ID,
			CPUCapacity:    s.CPUCapacity,
			MemCapacity:    s.MemCapacity,
			DiskCapacity:   s.DiskCapacity,
			CPUDemand:      s.CPUDemand,
			MemDemand:      s.MemDemand,
			DiskDemand:     s.DiskDemand,
			OccupationRate: s.OccupationRate(),
			HostedVMIDs:    hostedIDs,
			Updated:        s.Updated,
			UpdateStep:     s.UpdateStep,
		})
	}
	if len(servers) > 0 {
		m.OccupationRate = occupationSum / float64(len(servers))
	}

	var min, max, sum int64
	count := 0
	for _, vm := range w.VMs.All() {
		m.VMs = append(m.VMs, VMSnapshot{
			ID:           vm.ID,
			CPUDemand:    vm.CPUDemand,
			MemDemand:    vm.MemDemand,
			DiskDemand:   vm.DiskDemand,
			HostID:       vm.Host.ID,
			HostUpdated:  vm.Host.Updated,
			MigrationLog: append([]resource.MigrationRecord(nil), vm.MigrationLog...),
		})

		for _, rec := range vm.MigrationLog {
			if rec.MaintenanceStep != step {
				continue
			}
			count++
			sum += rec.Duration
			if count == 1 || rec.Duration < min {
				min = rec.Duration
			}
			if rec.Duration > max {
				max = rec.Duration
			}
		}
	}

	m.MigrationCount = count
	m.MigrationDurationSum = sum
	m.MigrationDurationMin = min
	m.MigrationDurationMax = max
	if count > 0 {
		m.MigrationDurationMean = float64(sum) / float64(count)
	}

	m.VulnerabilitySurface = now * int64(nonupdatedAtStart)

	return m
}

// OverallMetrics summarizes a full run, spec.md §4.7.
type OverallMetrics struct {
	RunID uuid.UUID

	TotalVulnerabilitySurface int64
	TotalMigrations           int
	TotalMigrationDuration    int64
	MeanOfStepMeanDurations   float64
	MaxOfStepMaxDurations     int64

	// MaintenanceDuration is the virtual clock's final value: the total
	// simulated time the run took.
	MaintenanceDuration int64
}

// Aggregate derives OverallMetrics from the full sequence of per-step
// snapshots, in step order.
func Aggregate(steps []StepMetrics) OverallMetrics {
	o := OverallMetrics{RunID: uuid.New()}

	var meanSum float64
	meanCount := 0

	for _, s := range steps {
		o.TotalVulnerabilitySurface += s.VulnerabilitySurface
		o.TotalMigrations += s.MigrationCount
		o.TotalMigrationDuration += s.MigrationDurationSum

		if s.MigrationCount > 0 {
			meanSum += s.MigrationDurationMean
			meanCount++
		}
		if s.MigrationDurationMax > o.MaxOfStepMaxDurations {
			o.MaxOfStepMaxDurations = s.MigrationDurationMax
		}
		if s.Now > o.MaintenanceDuration {
			o.MaintenanceDuration = s.Now
		}
	}

	if meanCount > 0 {
		o.MeanOfStepMeanDurations = meanSum / float64(meanCount)
	}

	return o
}
