// Package tree implements the rooted phylogenetic trees that the
// tree-following simulation driver replays: newick parsing and
// serialization, level-order traversal, branch distances and a
// population annotation on every node.
package tree

import (
	"errors"
	"fmt"
	"strings"
)

// Node is a single tree node. Population holds the generation snapshot
// (genotype index to count) observed at the node once a simulation has
// reached it.
type Node struct {
	Name         string
	BranchLength float64
	Parent       *Node

	childNodes []*Node

	Population map[int]int
}

// Tree is a rooted tree addressed through its root node.
type Tree struct {
	*Node
}

// NewNode creates a node attached to parent (nil for the root).
func NewNode(parent *Node) *Node {
	node := &Node{Parent: parent}
	if parent != nil {
		parent.childNodes = append(parent.childNodes, node)
	}
	return node
}

// AddChild attaches subNode under node.
func (node *Node) AddChild(subNode *Node) {
	subNode.Parent = node
	node.childNodes = append(node.childNodes, subNode)
}

// ChildNodes returns the direct children of the node.
func (node *Node) ChildNodes() []*Node {
	return node.childNodes
}

// IsLeaf returns true for terminal nodes.
func (node *Node) IsLeaf() bool {
	return len(node.childNodes) == 0
}

// IsRoot returns true for the root node.
func (node *Node) IsRoot() bool {
	return node.Parent == nil
}

// TwoChildren returns the two children of an internal node, failing
// for leaves and for non-bifurcating nodes.
func (node *Node) TwoChildren() (left, right *Node, err error) {
	if len(node.childNodes) != 2 {
		return nil, nil, fmt.Errorf("node %s has %d children, expected 2", node.Name, len(node.childNodes))
	}
	return node.childNodes[0], node.childNodes[1], nil
}

// Distance returns the sum of branch lengths from the node up to
// ancestor. The receiver must be a descendant of ancestor.
func (node *Node) Distance(ancestor *Node) (float64, error) {
	d := 0.0
	for n := node; n != ancestor; n = n.Parent {
		if n == nil {
			return 0, fmt.Errorf("node %s is not a descendant of %s", node.Name, ancestor.Name)
		}
		d += n.BranchLength
	}
	return d, nil
}

// LevelOrder returns every node in level (breadth-first) order
// starting from the root.
func (tree *Tree) LevelOrder() []*Node {
	queue := []*Node{tree.Node}
	for i := 0; i < len(queue); i++ {
		queue = append(queue, queue[i].childNodes...)
	}
	return queue
}

// Leaves returns the terminal nodes in level order.
func (tree *Tree) Leaves() []*Node {
	var leaves []*Node
	for _, node := range tree.LevelOrder() {
		if node.IsLeaf() {
			leaves = append(leaves, node)
		}
	}
	return leaves
}

// NInternal returns the number of internal nodes.
func (tree *Tree) NInternal() (n int) {
	for _, node := range tree.LevelOrder() {
		if !node.IsLeaf() {
			n++
		}
	}
	return
}

// NameAncestors assigns a stable name to every unnamed internal node
// in level order: anc000, anc001, ... with the width derived from the
// internal node count. The naming is deterministic for a given
// topology, so archival keys are reproducible across runs.
func (tree *Tree) NameAncestors() {
	width := len(fmt.Sprintf("%d", tree.NInternal())) + 1
	counter := 0
	for _, node := range tree.LevelOrder() {
		if node.IsLeaf() {
			continue
		}
		if node.Name == "" {
			node.Name = fmt.Sprintf("anc%0*d", width, counter)
		}
		counter++
	}
}

// Copy creates an independent copy of the tree. Population maps are
// copied as well.
func (tree *Tree) Copy() *Tree {
	return &Tree{Node: tree.Node.copyRec(nil)}
}

func (node *Node) copyRec(parent *Node) *Node {
	nn := &Node{
		Name:         node.Name,
		BranchLength: node.BranchLength,
		Parent:       parent,
	}
	if node.Population != nil {
		nn.Population = make(map[int]int, len(node.Population))
		for k, v := range node.Population {
			nn.Population[k] = v
		}
	}
	for _, child := range node.childNodes {
		nn.childNodes = append(nn.childNodes, child.copyRec(nn))
	}
	return nn
}

// String serializes the tree in newick format.
func (tree *Tree) String() string {
	var sb strings.Builder
	tree.Node.write(&sb)
	sb.WriteByte(';')
	return sb.String()
}

func (node *Node) write(sb *strings.Builder) {
	if !node.IsLeaf() {
		sb.WriteByte('(')
		for i, child := range node.childNodes {
			if i != 0 {
				sb.WriteByte(',')
			}
			child.write(sb)
		}
		sb.WriteByte(')')
	}
	sb.WriteString(node.Name)
	if !node.IsRoot() {
		fmt.Fprintf(sb, ":%0.6f", node.BranchLength)
	}
}

// ErrNoTree is returned when the input holds no newick tree.
var ErrNoTree = errors.New("no tree found in input")
