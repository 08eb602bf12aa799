// archive stores simulation runs in a bolt database.
package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/op/go-logging"

	bolt "go.etcd.io/bbolt"

	"evoens/evolve"
	"evoens/genotype"
	"evoens/tree"
)

// log is the global logging variable.
var log = logging.MustGetLogger("archive")

// RUNS is the bucket name for run metadata.
var RUNS = []byte("runs")

// HISTORY is the bucket name holding one nested bucket per run.
var HISTORY = []byte("history")

// orderKey stores the branch names in save order for a run.
var orderKey = []byte("_order")

// treeKey stores the final newick tree for a run.
var treeKey = []byte("_tree")

// genotypesKey stores the genotype table for a run in CSV form.
var genotypesKey = []byte("_genotypes")

// RunInfo stores run metadata.
type RunInfo struct {
	ID                string
	Created           time.Time
	Seed              int64
	PopulationSize    int
	MutationRate      float64
	NumGenerations    int
	BurnInGenerations int
}

// Archive saves the branch histories of a single run. It implements
// evolve.Recorder.
type Archive struct {
	db   *bolt.DB
	id   []byte
	info RunInfo
}

// OpenDB opens a bolt database for archiving.
func OpenDB(path string) (*bolt.DB, error) {
	return bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
}

// NewArchive registers a new run in the database and returns an
// archive writing into it. An empty ID in info is replaced with a
// fresh UUID; Created is set to the current time if zero.
func NewArchive(db *bolt.DB, info RunInfo) (a *Archive, err error) {
	if db == nil {
		return nil, fmt.Errorf("no database")
	}
	if info.ID == "" {
		info.ID = uuid.New().String()
	}
	if info.Created.IsZero() {
		info.Created = time.Now()
	}

	infoB, err := json.Marshal(&info)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		runs, err := tx.CreateBucketIfNotExists(RUNS)
		if err != nil {
			return err
		}
		if runs.Get([]byte(info.ID)) != nil {
			return fmt.Errorf("run %s already archived", info.ID)
		}
		if err := runs.Put([]byte(info.ID), infoB); err != nil {
			return err
		}
		history, err := tx.CreateBucketIfNotExists(HISTORY)
		if err != nil {
			return err
		}
		_, err = history.CreateBucket([]byte(info.ID))
		return err
	})
	if err != nil {
		log.Error("Error registering run", err)
		return nil, err
	}

	log.Noticef("Archiving run %s", info.ID)
	a = &Archive{
		db:   db,
		id:   []byte(info.ID),
		info: info,
	}
	return a, nil
}

// ID returns the run identifier.
func (a *Archive) ID() string {
	return string(a.id)
}

// SaveBranch stores the generation history of one branch and appends
// the branch name to the run's save order.
func (a *Archive) SaveBranch(name string, generations []evolve.Generation) error {
	dataB, err := json.Marshal(generations)
	if err != nil {
		log.Error("Error serializing branch history", err)
		return err
	}
	err = a.db.Update(func(tx *bolt.Tx) error {
		run, err := a.run(tx)
		if err != nil {
			return err
		}
		if run.Get([]byte(name)) != nil {
			return fmt.Errorf("branch %s already saved for run %s", name, a.id)
		}
		if err := run.Put([]byte(name), dataB); err != nil {
			return err
		}

		var order []string
		if v := run.Get(orderKey); v != nil {
			if err := json.Unmarshal(v, &order); err != nil {
				return err
			}
		}
		order = append(order, name)
		orderB, err := json.Marshal(order)
		if err != nil {
			return err
		}
		return run.Put(orderKey, orderB)
	})
	if err != nil {
		log.Error("Error saving branch history", err)
	}
	return err
}

// SaveTree stores the final tree in newick format.
func (a *Archive) SaveTree(t *tree.Tree) error {
	return a.db.Update(func(tx *bolt.Tx) error {
		run, err := a.run(tx)
		if err != nil {
			return err
		}
		return run.Put(treeKey, []byte(t.String()))
	})
}

// SaveGenotypes stores the full genotype table in CSV form.
func (a *Archive) SaveGenotypes(c *genotype.Container) error {
	var buf bytes.Buffer
	if err := c.WriteCSV(&buf); err != nil {
		return err
	}
	return a.db.Update(func(tx *bolt.Tx) error {
		run, err := a.run(tx)
		if err != nil {
			return err
		}
		return run.Put(genotypesKey, buf.Bytes())
	})
}

// run returns the run's nested history bucket inside a transaction.
func (a *Archive) run(tx *bolt.Tx) (*bolt.Bucket, error) {
	history := tx.Bucket(HISTORY)
	if history == nil {
		return nil, fmt.Errorf("no history bucket")
	}
	run := history.Bucket(a.id)
	if run == nil {
		return nil, fmt.Errorf("run %s is not registered", a.id)
	}
	return run, nil
}

// Runs returns the metadata of every archived run.
func Runs(db *bolt.DB) ([]RunInfo, error) {
	var infos []RunInfo
	err := db.View(func(tx *bolt.Tx) error {
		runs := tx.Bucket(RUNS)
		if runs == nil {
			return nil
		}
		return runs.ForEach(func(k, v []byte) error {
			var info RunInfo
			if err := json.Unmarshal(v, &info); err != nil {
				return err
			}
			infos = append(infos, info)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// Branches returns the branch names of a run in save order.
func Branches(db *bolt.DB, runID string) ([]string, error) {
	var order []string
	err := db.View(func(tx *bolt.Tx) error {
		run, err := runBucket(tx, runID)
		if err != nil {
			return err
		}
		v := run.Get(orderKey)
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Branch loads the generation history of one branch of a run.
func Branch(db *bolt.DB, runID, name string) ([]evolve.Generation, error) {
	var generations []evolve.Generation
	err := db.View(func(tx *bolt.Tx) error {
		run, err := runBucket(tx, runID)
		if err != nil {
			return err
		}
		v := run.Get([]byte(name))
		if v == nil {
			return fmt.Errorf("no branch %s in run %s", name, runID)
		}
		return json.Unmarshal(v, &generations)
	})
	if err != nil {
		return nil, err
	}
	return generations, nil
}

// Newick loads the final tree of a run in newick format.
func Newick(db *bolt.DB, runID string) (string, error) {
	var newick string
	err := db.View(func(tx *bolt.Tx) error {
		run, err := runBucket(tx, runID)
		if err != nil {
			return err
		}
		v := run.Get(treeKey)
		if v == nil {
			return fmt.Errorf("no tree saved for run %s", runID)
		}
		newick = string(v)
		return nil
	})
	if err != nil {
		return "", err
	}
	return newick, nil
}

// Genotypes loads the genotype table of a run in CSV form.
func Genotypes(db *bolt.DB, runID string) (string, error) {
	var csv string
	err := db.View(func(tx *bolt.Tx) error {
		run, err := runBucket(tx, runID)
		if err != nil {
			return err
		}
		v := run.Get(genotypesKey)
		if v == nil {
			return fmt.Errorf("no genotypes saved for run %s", runID)
		}
		csv = string(v)
		return nil
	})
	if err != nil {
		return "", err
	}
	return csv, nil
}

func runBucket(tx *bolt.Tx, runID string) (*bolt.Bucket, error) {
	history := tx.Bucket(HISTORY)
	if history == nil {
		return nil, fmt.Errorf("no history bucket")
	}
	run := history.Bucket([]byte(runID))
	if run == nil {
		return nil, fmt.Errorf("no run %s", runID)
	}
	return run, nil
}
