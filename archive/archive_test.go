package archive

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bolt "go.etcd.io/bbolt"

	"evoens/evolve"
	"evoens/tree"
)

func testDB(tst *testing.T) *bolt.DB {
	db, err := OpenDB(filepath.Join(tst.TempDir(), "runs.db"))
	require.NoError(tst, err)
	tst.Cleanup(func() { db.Close() })
	return db
}

func TestArchiveRoundTrip(tst *testing.T) {
	db := testDB(tst)

	a, err := NewArchive(db, RunInfo{Seed: 42, PopulationSize: 100, MutationRate: 0.1})
	require.NoError(tst, err)
	require.NotEmpty(tst, a.ID(), "a UUID is assigned when no ID is given")

	first := []evolve.Generation{{0: 100}, {0: 98, 1: 2}}
	second := []evolve.Generation{{0: 98, 1: 2}, {1: 100}}
	require.NoError(tst, a.SaveBranch("burn-in-anc00", first))
	require.NoError(tst, a.SaveBranch("anc00-a", second))

	order, err := Branches(db, a.ID())
	require.NoError(tst, err)
	assert.Equal(tst, []string{"burn-in-anc00", "anc00-a"}, order)

	got, err := Branch(db, a.ID(), "burn-in-anc00")
	require.NoError(tst, err)
	assert.Equal(tst, first, got)

	got, err = Branch(db, a.ID(), "anc00-a")
	require.NoError(tst, err)
	assert.Equal(tst, second, got)

	infos, err := Runs(db)
	require.NoError(tst, err)
	require.Len(tst, infos, 1)
	assert.Equal(tst, a.ID(), infos[0].ID)
	assert.Equal(tst, int64(42), infos[0].Seed)
	assert.Equal(tst, 100, infos[0].PopulationSize)
	assert.False(tst, infos[0].Created.IsZero())
}

func TestArchiveTreeAndGenotypes(tst *testing.T) {
	db := testDB(tst)

	a, err := NewArchive(db, RunInfo{ID: "fixed-id"})
	require.NoError(tst, err)
	assert.Equal(tst, "fixed-id", a.ID())

	t, err := tree.ParseNewick(strings.NewReader("(a:0.1,b:0.2);"))
	require.NoError(tst, err)
	require.NoError(tst, a.SaveTree(t))

	newick, err := Newick(db, "fixed-id")
	require.NoError(tst, err)
	assert.Equal(tst, t.String(), newick)
}

func TestArchiveErrors(tst *testing.T) {
	db := testDB(tst)

	_, err := NewArchive(nil, RunInfo{})
	assert.Error(tst, err, "nil database")

	a, err := NewArchive(db, RunInfo{ID: "dup"})
	require.NoError(tst, err)
	_, err = NewArchive(db, RunInfo{ID: "dup"})
	assert.Error(tst, err, "duplicate run ID")

	require.NoError(tst, a.SaveBranch("b", nil))
	assert.Error(tst, a.SaveBranch("b", nil), "duplicate branch name")

	_, err = Branch(db, "dup", "missing")
	assert.Error(tst, err, "unknown branch")

	_, err = Branches(db, "no-such-run")
	assert.Error(tst, err, "unknown run")

	_, err = Newick(db, "dup")
	assert.Error(tst, err, "no tree saved")

	_, err = Genotypes(db, "dup")
	assert.Error(tst, err, "no genotypes saved")
}

func TestMultipleRuns(tst *testing.T) {
	db := testDB(tst)

	a1, err := NewArchive(db, RunInfo{})
	require.NoError(tst, err)
	a2, err := NewArchive(db, RunInfo{})
	require.NoError(tst, err)
	require.NotEqual(tst, a1.ID(), a2.ID())

	require.NoError(tst, a1.SaveBranch("x", []evolve.Generation{{0: 1}}))
	require.NoError(tst, a2.SaveBranch("y", []evolve.Generation{{0: 2}}))

	infos, err := Runs(db)
	require.NoError(tst, err)
	assert.Len(tst, infos, 2)

	order, err := Branches(db, a1.ID())
	require.NoError(tst, err)
	assert.Equal(tst, []string{"x"}, order)
}
