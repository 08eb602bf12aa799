package evolve

import (
	"fmt"
	"math"
	"math/rand"

	"evoens/genotype"
	"evoens/tree"
)

// Recorder receives the full generation history of every simulated
// branch for archival. Implementations must treat saved histories as
// append-only.
type Recorder interface {
	SaveBranch(name string, generations []Generation) error
}

// FollowTree replays the Wright-Fisher engine along a phylogenetic
// tree. A burn-in simulation from an all-wildtype population produces
// the ancestral population assigned to the root; every branch is then
// simulated in level order, accumulating round(branchLength *
// sequenceLength) mutations on top of whatever the most frequent
// starting genotype already carries (at least one mutation per
// branch), capped at numGenerations generations. The final snapshot of
// each branch becomes the child's population and the full history goes
// to the recorder under "<parent>-<child>". Internal nodes get stable
// anc-style names first, so recorder keys are reproducible for a given
// topology.
//
// The container and the tree are updated in place.
func FollowTree(c *genotype.Container, t *tree.Tree, pop Population, mutationRate float64, numGenerations, burnInGenerations int, rec Recorder, rng *rand.Rand) error {
	if rec == nil {
		return fmt.Errorf("a recorder is required")
	}
	if burnInGenerations < 1 {
		return fmt.Errorf("number of burn-in generations should be >= 1, got %d", burnInGenerations)
	}
	size := pop.Size()
	if size < 1 {
		return fmt.Errorf("population size should be >= 1, got %d", size)
	}

	t.NameAncestors()

	log.Infof("burn-in: %d generations, population %d", burnInGenerations, size)
	generations, err := wrightFisher(c, PopulationOfSize(size), mutationRate, burnInGenerations, 0, rng)
	if err != nil {
		return err
	}
	root := t.Node
	root.Population = generations[len(generations)-1]
	if err := rec.SaveBranch("burn-in-"+root.Name, generations); err != nil {
		return err
	}

	for _, node := range t.LevelOrder() {
		if node.IsLeaf() {
			continue
		}
		left, right, err := node.TwoChildren()
		if err != nil {
			return err
		}
		if err := simulateBranch(c, node, left, mutationRate, numGenerations, rec, rng); err != nil {
			return err
		}
		if err := simulateBranch(c, node, right, mutationRate, numGenerations, rec, rng); err != nil {
			return err
		}
	}
	return nil
}

// simulateBranch runs one branch from the parent's population to the
// child, stores the final generation on the child and archives the
// whole branch history.
func simulateBranch(c *genotype.Container, parent, child *tree.Node, mutationRate float64, numGenerations int, rec Recorder, rng *rand.Rand) error {
	if parent.Population == nil {
		return fmt.Errorf("node %s has no population to start from", parent.Name)
	}

	branchLength, err := child.Distance(parent)
	if err != nil {
		return err
	}

	// Branch length scales the mutation target, not the generation
	// count. The target counts total accumulated mutations, so the
	// starting genotype's own count is added in.
	target := int(math.Round(branchLength * float64(c.SequenceLength())))
	target += accumulatedMutations(c, parent.Population)
	if target == 0 {
		target = 1
	}

	log.Debugf("branch %s-%s: %d accumulated mutations wanted", parent.Name, child.Name, target)

	generations, err := wrightFisher(c, PopulationFromCounts(parent.Population), mutationRate, numGenerations, target, rng)
	if err != nil {
		return err
	}

	child.Population = generations[len(generations)-1]
	return rec.SaveBranch(parent.Name+"-"+child.Name, generations)
}
