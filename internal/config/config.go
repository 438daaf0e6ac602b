// Package config loads the simulator's process-wide constants, following
// the teacher repo's pattern (internal/shared/config) of a single struct
// populated by github.com/caarlos0/env from the environment, with reference
// defaults baked in so the simulator runs out of the box.
package config

import "github.com/caarlos0/env/v11"

// Constants holds the process-wide values from spec.md §6. They are loaded
// once and passed by value to every component that needs them — no
// component reads the environment directly.
type Constants struct {
	// SaveTime is the time to checkpoint a VM during migration, in ticks.
	SaveTime int64 `env:"MAINTSIM_SAVE_TIME" envDefault:"10"`

	// RestoreTime is the time to restore a VM on its destination, in ticks.
	RestoreTime int64 `env:"MAINTSIM_RESTORE_TIME" envDefault:"10"`

	// NetworkBW is the migration bandwidth in MB per tick.
	NetworkBW int64 `env:"MAINTSIM_NETWORK_BW" envDefault:"125"`

	// PatchingTime is the legacy flat patch duration, in ticks. No
	// component reads it: patch timing always comes from each server's own
	// PatchDuration and SanityCheckDuration.
	PatchingTime int64 `env:"MAINTSIM_PATCHING_TIME" envDefault:"360"`
}

// Default returns the reference constants from spec.md §6, unaffected by
// the environment.
func Default() Constants {
	return Constants{SaveTime: 10, RestoreTime: 10, NetworkBW: 125, PatchingTime: 360}
}

// Load reads Constants from the environment, falling back to Default's
// values for anything unset.
func Load() (Constants, error) {
	c := Default()
	if err := env.Parse(&c); err != nil {
		return Constants{}, err
	}
	return c, nil
}
