package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodYAML = `
ensemble: ens.json
ddg: ddg.csv
tree: tree.nwk
seed: 42
conditions:
  X: [0, 5, 10]
  Y: [1]
temperature: [298.15]
fitness:
  functions: ["on", "off", "on"]
simulation:
  population_size: 1000
  mutation_rate: 0.1
  num_generations: 500
`

func TestParse(tst *testing.T) {
	c, err := Parse([]byte(goodYAML))
	require.NoError(tst, err)

	assert.Equal(tst, "ens.json", c.Ensemble)
	assert.Equal(tst, int64(42), c.Seed)
	assert.Equal(tst, []float64{0, 5, 10}, c.Conditions["X"])
	assert.Equal(tst, []string{"on", "off", "on"}, c.Fitness.Functions)

	// Defaults.
	assert.Equal(tst, "fx_obs", c.Fitness.Observable)
	assert.Equal(tst, "product", c.Fitness.Combine)
	assert.Equal(tst, defaultBurnIn, c.Simulation.BurnInGenerations)
}

func TestLoad(tst *testing.T) {
	path := filepath.Join(tst.TempDir(), "run.yaml")
	require.NoError(tst, os.WriteFile(path, []byte(goodYAML), 0644))

	c, err := Load(path)
	require.NoError(tst, err)
	assert.Equal(tst, 1000, c.Simulation.PopulationSize)

	_, err = Load(filepath.Join(tst.TempDir(), "missing.yaml"))
	assert.Error(tst, err)
}

func TestParseErrors(tst *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing ensemble", `
ddg: ddg.csv
conditions: {X: [0]}
fitness: {functions: ["on"]}
simulation: {population_size: 10, num_generations: 10}
`},
		{"unknown fitness function", `
ensemble: e.json
ddg: d.csv
conditions: {X: [0]}
fitness: {functions: ["sometimes"]}
simulation: {population_size: 10, num_generations: 10}
`},
		{"negative mutation rate", `
ensemble: e.json
ddg: d.csv
conditions: {X: [0]}
fitness: {functions: ["on"]}
simulation: {population_size: 10, num_generations: 10, mutation_rate: -0.5}
`},
		{"ragged conditions", `
ensemble: e.json
ddg: d.csv
conditions: {X: [0, 1, 2], Y: [0, 1]}
fitness: {functions: ["on"]}
simulation: {population_size: 10, num_generations: 10}
`},
		{"function count mismatch", `
ensemble: e.json
ddg: d.csv
conditions: {X: [0, 1, 2]}
fitness: {functions: ["on", "off"]}
simulation: {population_size: 10, num_generations: 10}
`},
		{"bad temperature", `
ensemble: e.json
ddg: d.csv
conditions: {X: [0]}
temperature: [-5]
fitness: {functions: ["on"]}
simulation: {population_size: 10, num_generations: 10}
`},
	}

	for _, c := range cases {
		_, err := Parse([]byte(c.yaml))
		assert.Error(tst, err, c.name)
	}
}
