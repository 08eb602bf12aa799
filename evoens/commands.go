package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	bolt "go.etcd.io/bbolt"

	"evoens/archive"
	"evoens/calibrate"
	"evoens/config"
	"evoens/ensemble"
	"evoens/evolve"
	"evoens/optimize"
	"evoens/tree"

	"gopkg.in/yaml.v3"
)

// runObs computes species populations and observables over all
// conditions and writes them as a CSV table.
func runObs(summary *RunSummary) error {
	sim, err := loadSimulation(*obsConfigF)
	if err != nil {
		return err
	}

	mutEnergy, err := sim.mutEnergyMap(*obsMut)
	if err != nil {
		return err
	}

	table, err := sim.ens.PopsAndObs(mutEnergy,
		ensemble.Conditions(sim.cfg.Conditions), sim.cfg.Temperature)
	if err != nil {
		return err
	}

	out, done, err := openOut(*obsOutF)
	if err != nil {
		return err
	}
	defer done()
	return table.WriteCSV(out)
}

// openArchive creates an archive for a run when the configuration
// names one. A nil archive with a nil error means archiving is off.
func openArchive(cfg *config.Config) (*bolt.DB, *archive.Archive, error) {
	if cfg.Archive == "" {
		return nil, nil, nil
	}
	db, err := archive.OpenDB(cfg.Archive)
	if err != nil {
		return nil, nil, err
	}
	a, err := archive.NewArchive(db, archive.RunInfo{
		Seed:              *seed,
		PopulationSize:    cfg.Simulation.PopulationSize,
		MutationRate:      cfg.Simulation.MutationRate,
		NumGenerations:    cfg.Simulation.NumGenerations,
		BurnInGenerations: cfg.Simulation.BurnInGenerations,
	})
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, a, nil
}

// runWF runs a plain Wright-Fisher simulation from an all-wildtype
// population.
func runWF(summary *RunSummary, rng *rand.Rand) error {
	sim, err := loadSimulation(*wfConfigF)
	if err != nil {
		return err
	}
	cfg := sim.cfg

	log.Noticef("Wright-Fisher: population %d, rate %v, %d generations",
		cfg.Simulation.PopulationSize, cfg.Simulation.MutationRate,
		cfg.Simulation.NumGenerations)

	generations, err := evolve.WrightFisher(sim.container,
		evolve.PopulationOfSize(cfg.Simulation.PopulationSize),
		cfg.Simulation.MutationRate, cfg.Simulation.NumGenerations, rng)
	if err != nil {
		return err
	}

	db, a, err := openArchive(cfg)
	if err != nil {
		return err
	}
	if a != nil {
		defer db.Close()
		if err := a.SaveBranch("wf", generations); err != nil {
			return err
		}
		if err := a.SaveGenotypes(sim.container); err != nil {
			return err
		}
		summary.RunID = a.ID()
	}

	if *wfOutF != "" {
		out, done, err := openOut(*wfOutF)
		if err != nil {
			return err
		}
		defer done()
		enc := json.NewEncoder(out)
		if err := enc.Encode(generations); err != nil {
			return err
		}
	}
	if err := writeGenotypes(sim, *wfGenoF); err != nil {
		return err
	}

	summary.Genotypes = sim.container.Len()
	log.Noticef("Saw %d distinct genotypes", sim.container.Len())
	return nil
}

// runTree simulates evolution along the configured phylogenetic tree.
func runTree(summary *RunSummary, rng *rand.Rand) error {
	sim, err := loadSimulation(*treeConfigF)
	if err != nil {
		return err
	}
	cfg := sim.cfg
	if cfg.Tree == "" {
		return fmt.Errorf("the tree command needs a tree in the configuration")
	}

	treeFile, err := os.Open(cfg.Tree)
	if err != nil {
		return err
	}
	t, err := tree.ParseNewick(treeFile)
	treeFile.Close()
	if err != nil {
		return err
	}
	log.Infof("intree=%s", t)

	db, a, err := openArchive(cfg)
	if err != nil {
		return err
	}
	var rec evolve.Recorder
	if a != nil {
		defer db.Close()
		rec = a
		summary.RunID = a.ID()
	} else {
		rec = discardRecorder{}
	}

	counter := countingRecorder{Recorder: rec, branches: new(int)}
	err = evolve.FollowTree(sim.container, t,
		evolve.PopulationOfSize(cfg.Simulation.PopulationSize),
		cfg.Simulation.MutationRate, cfg.Simulation.NumGenerations,
		cfg.Simulation.BurnInGenerations, counter, rng)
	if err != nil {
		return err
	}
	log.Infof("outtree=%s", t)

	if a != nil {
		if err := a.SaveTree(t); err != nil {
			return err
		}
		if err := a.SaveGenotypes(sim.container); err != nil {
			return err
		}
	}
	if *treeOutF != "" {
		out, done, err := openOut(*treeOutF)
		if err != nil {
			return err
		}
		defer done()
		fmt.Fprintln(out, t.String())
	}
	if err := writeGenotypes(sim, *treeGenoF); err != nil {
		return err
	}

	summary.Genotypes = sim.container.Len()
	summary.Branches = *counter.branches
	log.Noticef("Simulated %d branches, saw %d distinct genotypes",
		*counter.branches, sim.container.Len())
	return nil
}

// runCalibrate fits species free energies to titration observations.
func runCalibrate(summary *RunSummary) error {
	ensFile, err := os.Open(*calEnsF)
	if err != nil {
		return err
	}
	defer ensFile.Close()
	ens, err := ensemble.ParseJSON(ensFile)
	if err != nil {
		return fmt.Errorf("%s: %v", *calEnsF, err)
	}

	obsData, err := os.ReadFile(*calObsF)
	if err != nil {
		return err
	}
	var obs []calibrate.Observation
	if err := yaml.Unmarshal(obsData, &obs); err != nil {
		return fmt.Errorf("%s: %v", *calObsF, err)
	}
	log.Infof("Read %d titration observations", len(obs))

	fit, err := calibrate.NewTitrationFit(ens, *calSpecies, obs)
	if err != nil {
		return err
	}

	var opt optimize.Optimizer
	switch *calMethod {
	case "lbfgsb":
		opt = optimize.NewLBFGSB()
	case "simplex":
		opt = optimize.NewDS()
	case "none":
		opt = optimize.NewNone()
	default:
		return fmt.Errorf("unknown optimization method: %s", *calMethod)
	}
	log.Infof("Using %s optimization.", *calMethod)

	opt.SetOptimizable(fit)
	opt.Run(*calIter)

	result := make(map[string]float64, len(*calSpecies))
	pars := opt.GetMaxLParameters()
	for i, name := range *calSpecies {
		result[name] = pars[i]
		log.Noticef("dG0_%s=%v", name, pars[i])
	}
	summary.Calibration = &CalibrationSummary{
		MaxLnL: opt.GetMaxL(),
		DG0:    result,
	}
	return nil
}

// writeGenotypes writes the genotype table as CSV when a path is
// given.
func writeGenotypes(sim *simulation, path string) error {
	if path == "" {
		return nil
	}
	out, done, err := openOut(path)
	if err != nil {
		return err
	}
	defer done()
	return sim.container.WriteCSV(out)
}

// discardRecorder drops branch histories when no archive is
// configured.
type discardRecorder struct{}

func (discardRecorder) SaveBranch(string, []evolve.Generation) error { return nil }

// countingRecorder counts saved branches on top of another recorder.
type countingRecorder struct {
	evolve.Recorder
	branches *int
}

func (r countingRecorder) SaveBranch(name string, generations []evolve.Generation) error {
	*r.branches++
	return r.Recorder.SaveBranch(name, generations)
}
