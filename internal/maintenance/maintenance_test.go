package maintenance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchwave/maintsim/internal/config"
	"github.com/patchwave/maintsim/internal/errs"
	"github.com/patchwave/maintsim/internal/maintenance"
	"github.com/patchwave/maintsim/internal/resource"
	"github.com/patchwave/maintsim/internal/sched"
)

// spec.md §8 scenario 1 ("trivial"): a single empty, nonupdated server patches
// in one step; vulnerability_surface counts it as nonupdated since it was
// nonupdated for the whole step that patched it.
func TestTrivialSingleServerNoVMs(t *testing.T) {
	c := config.Default()
	w := resource.NewWorld(c)
	w.Servers.Add(resource.NewServer(1, 4, 4, 32, 300, 600))

	strategy, err := maintenance.Lookup("first_fit")
	require.NoError(t, err)

	result, err := maintenance.Run(w, sched.NewEnv(), strategy)
	require.NoError(t, err)

	require.Len(t, result.Steps, 1)
	assert.Equal(t, int64(900), result.Steps[0].Now)
	assert.Equal(t, 0, result.Steps[0].MigrationCount)
	assert.Equal(t, int64(900), result.Steps[0].VulnerabilitySurface)
	assert.Equal(t, int64(900), result.Overall.MaintenanceDuration)
	assert.Equal(t, 0, result.Overall.TotalMigrations)
}

// spec.md §8 scenario 2 describes a migrate-then-patch cycle for "S1 hosting a
// VM, S2 empty", but under the literal ready_to_patch() = nonupdated ∧ empty
// rule (§4.1, and the original source's Server.ready_to_patch) an initially
// empty S2 is itself ready to patch before any migration happens — the
// scenario's own setup makes its first phase a patch phase, not a migrate
// phase as narrated. This test exercises the same setup against the actual,
// consistently-applied dispatch rule; see DESIGN.md for the resolution.
func TestBestFitMigrateAndPatchCycle(t *testing.T) {
	c := config.Default()
	w := resource.NewWorld(c)
	s1 := resource.NewServer(1, 4, 4, 32, 300, 600)
	s2 := resource.NewServer(2, 4, 4, 32, 300, 600)
	w.Servers.Add(s1)
	w.Servers.Add(s2)

	vm := resource.NewVirtualMachine(1, 1, 1, 8)
	w.VMs.Add(vm)
	s1.PlaceInitial(vm)

	strategy, err := maintenance.Lookup("best_fit")
	require.NoError(t, err)

	result, err := maintenance.Run(w, sched.NewEnv(), strategy)
	require.NoError(t, err)

	require.Len(t, result.Steps, 3)

	// Step 1: S2 is ready to patch immediately (nonupdated, empty).
	assert.Equal(t, int64(900), result.Steps[0].Now)
	assert.Equal(t, 0, result.Steps[0].MigrationCount)

	// Step 2: S1 is the only nonupdated server left and it still hosts the
	// VM, so this is a migrate phase: S1 drains to the now-updated S2.
	migrationTime := vm.MigrationTime(c)
	assert.Equal(t, result.Steps[0].Now+migrationTime, result.Steps[1].Now)
	assert.Equal(t, 1, result.Steps[1].MigrationCount)

	// Step 3: S1 is now empty and nonupdated, so it patches.
	assert.Equal(t, result.Steps[1].Now+900, result.Steps[2].Now)
	assert.Equal(t, 0, result.Steps[2].MigrationCount)

	assert.Equal(t, 1, result.Overall.TotalMigrations)
	assert.True(t, s1.Updated)
	assert.True(t, s2.Updated)
	assert.Same(t, s2, vm.Host)
}

// spec.md §8 scenario 3: a gated strategy facing two full servers, neither
// able to take the other's VM, makes zero progress every step. With no-progress
// detection enabled this surfaces as errs.NoProgress rather than looping
// forever.
func TestGreedyLeastBatchInfeasibleDrainMakesNoProgress(t *testing.T) {
	c := config.Default()
	w := resource.NewWorld(c)
	s1 := resource.NewServer(1, 4, 4, 32, 300, 600)
	s2 := resource.NewServer(2, 4, 4, 32, 300, 600)
	w.Servers.Add(s1)
	w.Servers.Add(s2)

	vm1 := resource.NewVirtualMachine(1, 4, 4, 32)
	vm2 := resource.NewVirtualMachine(2, 4, 4, 32)
	w.VMs.Add(vm1)
	w.VMs.Add(vm2)
	s1.PlaceInitial(vm1)
	s2.PlaceInitial(vm2)

	strategy, err := maintenance.Lookup("greedy_least_batch")
	require.NoError(t, err)

	_, err = maintenance.Run(w, sched.NewEnv(), strategy, maintenance.WithNoProgressDetection(3))
	require.Error(t, err)

	var simErr *errs.Error
	require.ErrorAs(t, err, &simErr)
	assert.Equal(t, errs.KindNoProgress, simErr.Kind)

	assert.False(t, s1.Updated)
	assert.False(t, s2.Updated)
	assert.Empty(t, vm1.MigrationLog)
	assert.Empty(t, vm2.MigrationLog)
}

// spec.md §8 scenario 4: running the same dataset and strategy twice produces
// an identical migration history.
func TestDeterminismAcrossRuns(t *testing.T) {
	buildWorld := func() *resource.World {
		c := config.Default()
		w := resource.NewWorld(c)
		s1 := resource.NewServer(1, 4, 4, 32, 300, 600)
		s2 := resource.NewServer(2, 4, 4, 32, 300, 600)
		s3 := resource.NewServer(3, 4, 4, 32, 300, 600)
		w.Servers.Add(s1)
		w.Servers.Add(s2)
		w.Servers.Add(s3)

		vm1 := resource.NewVirtualMachine(1, 1, 1, 1)
		vm2 := resource.NewVirtualMachine(2, 2, 2, 2)
		w.VMs.Add(vm1)
		w.VMs.Add(vm2)
		s1.PlaceInitial(vm1)
		s1.PlaceInitial(vm2)
		return w
	}

	type tuple struct {
		step, vmID, originID, destID int
		duration                     int64
	}
	collect := func(w *resource.World) []tuple {
		var out []tuple
		for _, vm := range w.VMs.All() {
			for _, rec := range vm.MigrationLog {
				out = append(out, tuple{rec.MaintenanceStep, vm.ID, rec.OriginID, rec.DestinationID, rec.Duration})
			}
		}
		return out
	}

	w1 := buildWorld()
	strategy1, err := maintenance.Lookup("best_fit")
	require.NoError(t, err)
	_, err = maintenance.Run(w1, sched.NewEnv(), strategy1)
	require.NoError(t, err)

	w2 := buildWorld()
	strategy2, err := maintenance.Lookup("best_fit")
	require.NoError(t, err)
	_, err = maintenance.Run(w2, sched.NewEnv(), strategy2)
	require.NoError(t, err)

	assert.Equal(t, collect(w1), collect(w2))
}

// spec.md §8 scenario 5: three empty, nonupdated servers with differing
// maintenance durations patch in a single phase; the step advances by the
// slowest, not the sum.
func TestPatchPhaseAdvancesBySlowestDuration(t *testing.T) {
	c := config.Default()
	w := resource.NewWorld(c)
	w.Servers.Add(resource.NewServer(1, 4, 4, 32, 100, 300)) // 400
	w.Servers.Add(resource.NewServer(2, 4, 4, 32, 200, 300)) // 500
	w.Servers.Add(resource.NewServer(3, 4, 4, 32, 400, 500)) // 900

	strategy, err := maintenance.Lookup("first_fit")
	require.NoError(t, err)

	result, err := maintenance.Run(w, sched.NewEnv(), strategy)
	require.NoError(t, err)

	require.Len(t, result.Steps, 1)
	assert.Equal(t, int64(900), result.Steps[0].Now)
}

func TestLookupUnknownStrategy(t *testing.T) {
	_, err := maintenance.Lookup("nonexistent")
	require.Error(t, err)

	var simErr *errs.Error
	require.ErrorAs(t, err, &simErr)
	assert.Equal(t, errs.KindUnknownStrategy, simErr.Kind)
}

func TestNamesMatchesNamed(t *testing.T) {
	for _, name := range maintenance.Names() {
		_, ok := maintenance.Named[name]
		assert.True(t, ok, "Names() entry %q must have a constructor in Named", name)
	}
}
