package main

import (
	"fmt"
	"os"
	"path/filepath"

	"evoens/config"
	"evoens/ddg"
	"evoens/ensemble"
	"evoens/fitness"
	"evoens/genotype"
)

// simulation bundles everything a simulation command needs.
type simulation struct {
	cfg       *config.Config
	ens       *ensemble.Ensemble
	table     *ddg.Table
	prep      *ensemble.Prepared
	ev        *fitness.Evaluator
	container *genotype.Container
}

// loadSimulation reads the configuration and builds the ensemble, the
// mutational energy table, the fitness evaluator and the genotype
// container.
func loadSimulation(path string) (*simulation, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	ensFile, err := os.Open(cfg.Ensemble)
	if err != nil {
		return nil, err
	}
	defer ensFile.Close()
	ens, err := ensemble.ParseJSON(ensFile)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", cfg.Ensemble, err)
	}
	log.Infof("Read ensemble of %d species, %d ligands", ens.NSpecies(), len(ens.Ligands()))

	ddgFile, err := os.Open(cfg.DDG)
	if err != nil {
		return nil, err
	}
	defer ddgFile.Close()
	var table *ddg.Table
	if filepath.Ext(cfg.DDG) == ".json" {
		table, err = ddg.ParseJSON(ens, ddgFile)
	} else {
		table, err = ddg.ParseCSV(ens, ddgFile)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %v", cfg.DDG, err)
	}
	log.Infof("Read mutational energies for %d sites", table.NSites())

	prep, err := ens.Prepare(ensemble.Conditions(cfg.Conditions))
	if err != nil {
		return nil, err
	}

	fns := make([]fitness.Func, len(cfg.Fitness.Functions))
	for i, name := range cfg.Fitness.Functions {
		if fns[i], err = fitness.ByName(name); err != nil {
			return nil, err
		}
	}
	ev, err := fitness.NewEvaluator(prep, cfg.Fitness.Observable, fns, cfg.Temperature)
	if err != nil {
		return nil, err
	}
	if cfg.Fitness.Combine == "min" {
		ev.SetCombine(fitness.Min)
	}
	if cfg.Fitness.SelectOnFolded {
		ev.SetSelectOnFolded(cfg.Fitness.FoldedThreshold)
	}

	container, err := genotype.NewContainer(ev, table)
	if err != nil {
		return nil, err
	}

	return &simulation{
		cfg:       cfg,
		ens:       ens,
		table:     table,
		prep:      prep,
		ev:        ev,
		container: container,
	}, nil
}

// mutEnergyMap turns mutation names into a species energy map by
// looking the mutations up in the table. A second mutation at the
// same site is an error.
func (s *simulation) mutEnergyMap(names []string) (map[string]float64, error) {
	species := s.ens.SpeciesNames()
	total := make(map[string]float64, len(species))
	seen := make(map[int]string)
	for _, name := range names {
		found := false
		for i := 0; i < s.table.NSites() && !found; i++ {
			m, ok := s.table.Mutation(i, name)
			if !ok {
				continue
			}
			if prev, dup := seen[i]; dup {
				return nil, fmt.Errorf("mutations %s and %s hit the same site", prev, name)
			}
			seen[i] = name
			for j, sp := range species {
				total[sp] += m.Offsets[j]
			}
			found = true
		}
		if !found {
			return nil, fmt.Errorf("unknown mutation %s", name)
		}
	}
	return total, nil
}

// openOut returns a file or stdout for an optional output path.
func openOut(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
