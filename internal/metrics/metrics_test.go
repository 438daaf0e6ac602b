package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchwave/maintsim/internal/config"
	"github.com/patchwave/maintsim/internal/metrics"
	"github.com/patchwave/maintsim/internal/resource"
)

func TestSnapshotVulnerabilitySurfaceAndOccupation(t *testing.T) {
	c := config.Default()
	w := resource.NewWorld(c)
	s1 := resource.NewServer(1, 10, 10, 10, 0, 0)
	s2 := resource.NewServer(2, 10, 10, 10, 0, 0)
	w.Servers.Add(s1)
	w.Servers.Add(s2)
	s2.Update(0, c)

	vm := resource.NewVirtualMachine(1, 5, 5, 5)
	w.VMs.Add(vm)
	s1.PlaceInitial(vm)

	snap := metrics.Snapshot(w, 0, 100, 1)

	assert.Equal(t, int64(100), snap.VulnerabilitySurface, "one nonupdated server counted as of step start")
	assert.InDelta(t, (50.0+0.0)/2, snap.OccupationRate, 1e-9, "averaged over all servers, not just used ones")
	assert.Equal(t, 0, snap.MigrationCount)
}

func TestSnapshotMigrationStatsFilteredToStep(t *testing.T) {
	c := config.Default()
	w := resource.NewWorld(c)
	origin := resource.NewServer(1, 10, 10, 10, 0, 0)
	dest := resource.NewServer(2, 10, 10, 10, 0, 0)
	w.Servers.Add(origin)
	w.Servers.Add(dest)

	vm := resource.NewVirtualMachine(1, 1, 1, 1)
	w.VMs.Add(vm)
	origin.PlaceInitial(vm)

	_, err := vm.Migrate(dest, 3, c)
	require.NoError(t, err)

	snapOtherStep := metrics.Snapshot(w, 2, 50, 2)
	assert.Equal(t, 0, snapOtherStep.MigrationCount, "migration tagged to step 3 must not count under step 2")

	snapSameStep := metrics.Snapshot(w, 3, 50, 2)
	assert.Equal(t, 1, snapSameStep.MigrationCount)
	duration := vm.MigrationTime(c)
	assert.Equal(t, duration, snapSameStep.MigrationDurationSum)
	assert.Equal(t, duration, snapSameStep.MigrationDurationMin)
	assert.Equal(t, duration, snapSameStep.MigrationDurationMax)
	assert.InDelta(t, float64(duration), snapSameStep.MigrationDurationMean, 1e-9)
}

func TestAggregateSumsAndMeansAcrossSteps(t *testing.T) {
	steps := []metrics.StepMetrics{
		{Step: 0, Now: 10, VulnerabilitySurface: 10, MigrationCount: 1, MigrationDurationSum: 20, MigrationDurationMax: 20, MigrationDurationMean: 20},
		{Step: 1, Now: 25, VulnerabilitySurface: 25, MigrationCount: 0},
		{Step: 2, Now: 40, VulnerabilitySurface: 20, MigrationCount: 2, MigrationDurationSum: 30, MigrationDurationMax: 18, MigrationDurationMean: 15},
	}

	overall := metrics.Aggregate(steps)

	assert.Equal(t, int64(55), overall.TotalVulnerabilitySurface)
	assert.Equal(t, 3, overall.TotalMigrations)
	assert.Equal(t, int64(50), overall.TotalMigrationDuration)
	assert.InDelta(t, (20.0+15.0)/2, overall.MeanOfStepMeanDurations, 1e-9, "mean-of-means ignores zero-migration steps")
	assert.Equal(t, int64(20), overall.MaxOfStepMaxDurations)
	assert.Equal(t, int64(40), overall.MaintenanceDuration, "final clock value is the max Now across steps")
	assert.NotEqual(t, overall.RunID.String(), "")
}

func TestAggregateEmptyStepsIsZeroValue(t *testing.T) {
	overall := metrics.Aggregate(nil)
	assert.Equal(t, int64(0), overall.MaintenanceDuration)
	assert.Equal(t, 0.0, overall.MeanOfStepMeanDurations)
}
