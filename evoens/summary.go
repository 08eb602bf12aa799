package main

// RunSummary is storing evoens run summary information.
type RunSummary struct {
	// Version stores evoens version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Seed is the seed used for random number generation initialization.
	Seed int64 `json:"seed"`
	// Command is the subcommand which was run.
	Command string `json:"command"`
	// Time is the computations time in seconds.
	Time float64 `json:"time"`

	// RunID is the archive identifier of the run, if archiving.
	RunID string `json:"runId,omitempty"`
	// Genotypes is the number of distinct genotypes seen.
	Genotypes int `json:"genotypes,omitempty"`
	// Branches is the number of simulated branches.
	Branches int `json:"branches,omitempty"`
	// Calibration is the result of a calibrate run.
	Calibration *CalibrationSummary `json:"calibration,omitempty"`
}

// CalibrationSummary is storing calibrate run summary information.
type CalibrationSummary struct {
	// MaxLnL is the maximum log likelihood.
	MaxLnL float64 `json:"maxLnL"`
	// DG0 is the fitted free energy per species.
	DG0 map[string]float64 `json:"dG0"`
}
