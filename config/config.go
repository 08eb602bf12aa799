// config reads and validates simulation configuration files.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Fitness configures how observables map to fitness.
type Fitness struct {
	// Observable is fx_obs or dG_obs.
	Observable string `yaml:"observable" validate:"omitempty,oneof=fx_obs dG_obs"`
	// Functions holds one fitness function name per condition, or a
	// single name broadcast to all conditions.
	Functions []string `yaml:"functions" validate:"required,min=1,dive,oneof=on off neutral"`
	// Combine is product or min.
	Combine         string  `yaml:"combine" validate:"omitempty,oneof=product min"`
	SelectOnFolded  bool    `yaml:"select_on_folded"`
	FoldedThreshold float64 `yaml:"folded_threshold" validate:"gte=0,lte=1"`
}

// Simulation configures the Wright-Fisher engine.
type Simulation struct {
	PopulationSize    int     `yaml:"population_size" validate:"required,gte=1"`
	MutationRate      float64 `yaml:"mutation_rate" validate:"gte=0"`
	NumGenerations    int     `yaml:"num_generations" validate:"required,gte=1"`
	BurnInGenerations int     `yaml:"burn_in_generations" validate:"omitempty,gte=1"`
}

// Config is a full simulation configuration.
type Config struct {
	// Ensemble is the path of the ensemble JSON file.
	Ensemble string `yaml:"ensemble" validate:"required"`
	// DDG is the path of the mutational energies file, CSV or JSON.
	DDG string `yaml:"ddg" validate:"required"`
	// Tree is the path of a newick tree, required for tree runs.
	Tree string `yaml:"tree"`
	// Archive is the path of the bolt database to record runs to.
	Archive string `yaml:"archive"`
	// Seed seeds the random number generator; 0 means time-based.
	Seed int64 `yaml:"seed"`

	// Conditions maps ligand names to chemical potential arrays.
	Conditions map[string][]float64 `yaml:"conditions" validate:"required,min=1"`
	// Temperature holds one temperature per condition, or a single
	// value broadcast to all conditions. Empty means the default.
	Temperature []float64 `yaml:"temperature" validate:"omitempty,dive,gt=0"`

	Fitness    Fitness    `yaml:"fitness"`
	Simulation Simulation `yaml:"simulation"`
}

const (
	defaultBurnIn = 10
)

// validate is the global validator instance.
var validate = validator.New()

// Load reads a configuration from a YAML file, applies defaults and
// validates it. JSON files load too, as YAML is a superset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse reads a configuration from YAML data, applies defaults and
// validates it.
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("cannot parse configuration: %v", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Fitness.Observable == "" {
		c.Fitness.Observable = "fx_obs"
	}
	if c.Fitness.Combine == "" {
		c.Fitness.Combine = "product"
	}
	if c.Simulation.BurnInGenerations == 0 {
		c.Simulation.BurnInGenerations = defaultBurnIn
	}
}

// Validate checks the configuration, returning all violations in one
// error.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			msg := "invalid configuration:"
			for _, e := range errs {
				msg += fmt.Sprintf(" %s fails %s;", e.Namespace(), e.Tag())
			}
			return fmt.Errorf("%s", msg)
		}
		return err
	}

	nCond := 0
	for lig, mus := range c.Conditions {
		if len(mus) == 0 {
			return fmt.Errorf("ligand %s has no potential values", lig)
		}
		if len(mus) > nCond {
			nCond = len(mus)
		}
	}
	for lig, mus := range c.Conditions {
		if len(mus) != 1 && len(mus) != nCond {
			return fmt.Errorf("ligand %s has %d potential values, want 1 or %d",
				lig, len(mus), nCond)
		}
	}
	if len(c.Temperature) > 1 && len(c.Temperature) != nCond {
		return fmt.Errorf("%d temperatures for %d conditions",
			len(c.Temperature), nCond)
	}
	if len(c.Fitness.Functions) > 1 && len(c.Fitness.Functions) != nCond {
		return fmt.Errorf("%d fitness functions for %d conditions",
			len(c.Fitness.Functions), nCond)
	}
	return nil
}
