/*

Evoens simulates evolution on thermodynamic ensembles. A protein is
modelled as an ensemble of conformational species; mutations shift the
species energies and through them the observable the organism is
selected on.

The basic usage looks like this:

	evoens tree run.yaml

, this will simulate evolution along the phylogenetic tree given in
the configuration file.

Other commands:

	evoens obs run.yaml
	evoens wf run.yaml
	evoens calibrate ensemble.json titration.yaml MX

To see all the options run:

	evoens help

*/
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/op/go-logging"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("evoens")
var formatter = logging.MustStringFormatter(`%{message}`)

// command-line options
var (
	// application
	app = kingpin.New("evoens", "evolution on thermodynamic ensembles").Version(version)

	// technical
	seed     = app.Flag("seed", "random generator seed, default time based").Default("-1").Int64()
	outLogF  = app.Flag("log", "write log to a file").String()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
	jsonF = app.Flag("json", "write run summary in json format to a file").String()

	// obs command
	cmdObs     = app.Command("obs", "compute populations and observables over conditions")
	obsConfigF = cmdObs.Arg("config", "simulation configuration file").Required().ExistingFile()
	obsOutF    = cmdObs.Flag("out", "write the observable table to a file instead of stdout").String()
	obsMut     = cmdObs.Flag("mut", "mutation to apply, repeat for multiple mutations").Strings()

	// wf command
	cmdWF     = app.Command("wf", "run a Wright-Fisher simulation")
	wfConfigF = cmdWF.Arg("config", "simulation configuration file").Required().ExistingFile()
	wfOutF    = cmdWF.Flag("out", "write generation history in json format to a file").String()
	wfGenoF   = cmdWF.Flag("genotypes", "write genotypes in csv format to a file").String()

	// tree command
	cmdTree     = app.Command("tree", "simulate evolution along a phylogenetic tree")
	treeConfigF = cmdTree.Arg("config", "simulation configuration file").Required().ExistingFile()
	treeOutF    = cmdTree.Flag("tree", "write the named tree to a file").String()
	treeGenoF   = cmdTree.Flag("genotypes", "write genotypes in csv format to a file").String()

	// calibrate command
	cmdCal     = app.Command("calibrate", "fit species energies to titration data")
	calEnsF    = cmdCal.Arg("ensemble", "ensemble json file").Required().ExistingFile()
	calObsF    = cmdCal.Arg("titration", "titration observations file").Required().ExistingFile()
	calSpecies = cmdCal.Arg("species", "species to fit").Required().Strings()
	calIter    = cmdCal.Flag("iter", "number of iterations").Default("10000").Int()
	calMethod  = cmdCal.Flag("method", "optimization method to use "+
		"(lbfgsb: limited-memory Broyden-Fletcher-Goldfarb-Shanno with bounding constraints, "+
		"simplex: downhill simplex, "+
		"none: just compute likelihood, no optimization"+
		")").Default("simplex").String()
)

func main() {
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	// logging
	logging.SetFormatter(formatter)

	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		defer f.Close()
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	for _, pkg := range []string{"evoens", "evolve", "archive", "optimize", "calibrate"} {
		logging.SetLevel(level, pkg)
	}

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	if *seed == -1 {
		*seed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	}
	log.Infof("Random seed=%v", *seed)
	rng := rand.New(rand.NewSource(*seed))

	startTime := time.Now()
	summary := &RunSummary{
		Version:     version,
		CommandLine: os.Args,
		Seed:        *seed,
		Command:     cmd,
	}

	switch cmd {
	case cmdObs.FullCommand():
		err = runObs(summary)
	case cmdWF.FullCommand():
		err = runWF(summary, rng)
	case cmdTree.FullCommand():
		err = runTree(summary, rng)
	case cmdCal.FullCommand():
		err = runCalibrate(summary)
	}
	if err != nil {
		log.Fatal(err)
	}

	deltaT := time.Since(startTime)
	log.Noticef("Running time: %v", deltaT)
	summary.Time = deltaT.Seconds()

	// output summary in json format
	if *jsonF != "" {
		j, err := json.Marshal(summary)
		if err != nil {
			log.Error(err)
		} else {
			log.Debug(string(j))
			f, err := os.Create(*jsonF)
			if err != nil {
				log.Error("Error creating json output file:", err)
			} else {
				f.Write(j)
				f.Close()
			}
		}
	}
}
