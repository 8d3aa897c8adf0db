// Package bvh implements a dynamic bounding-volume tree used as the broad phase.
//
// Leaves store a "fat" AABB: the tight box of the shape grown by a margin, so
// that small motion does not require restructuring the tree. Internal nodes
// enclose the union of their children. The tree is kept balanced with
// AVL-style rotations on every insertion and removal.
//
// Nodes live in a fixed-size arena and are referenced by NodeID rather than by
// pointer. Freed ids are recycled through a free list. The arena is sized once
// at construction and never grows: running out of nodes is reported as
// ErrCapacity.
//
// References:
//   - Catto: "Dynamic AABB Trees" (GDC 2019), Box2D b2DynamicTree
//   - Presson: btDbvt (Bullet)
package bvh

import (
	"errors"
	"fmt"

	"github.com/akmonengine/impact/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// NodeID identifies a node of the tree. Leaf ids are stable until removal.
type NodeID int32

// NullNode is the sentinel for "no node"
const NullNode NodeID = -1

var ErrCapacity = errors.New("bvh: node capacity exhausted")

type node struct {
	// Enlarged AABB for leaves, union of the children for internal nodes
	aabb actor.AABB

	parent NodeID
	left   NodeID
	right  NodeID
	next   NodeID // free list link

	// leaf = 0, free node = -1
	height int

	// owner is the back-reference to the shape stored in a leaf
	owner uint32
}

func (n *node) isLeaf() bool {
	return n.left == NullNode
}

// Tree is a dynamic AABB tree. It is not safe for concurrent mutation.
type Tree struct {
	root      NodeID
	nodes     []node
	nodeCount int
	leafCount int
	freeList  NodeID

	margin     float64
	multiplier float64
}

// New creates a tree able to hold leafCapacity leaves.
// margin fattens every leaf box, multiplier scales the predicted displacement
// applied when a leaf is re-inserted.
func New(leafCapacity int, margin, multiplier float64) *Tree {
	nodeCapacity := max(1, 2*leafCapacity-1)

	tree := &Tree{
		root:       NullNode,
		nodes:      make([]node, nodeCapacity),
		margin:     margin,
		multiplier: multiplier,
	}

	// Build a linked list for the free list.
	for i := 0; i < nodeCapacity-1; i++ {
		tree.nodes[i].next = NodeID(i + 1)
		tree.nodes[i].height = -1
	}
	tree.nodes[nodeCapacity-1].next = NullNode
	tree.nodes[nodeCapacity-1].height = -1
	tree.freeList = 0

	return tree
}

// Len returns the number of leaves
func (t *Tree) Len() int {
	return t.leafCount
}

// Capacity returns the total number of nodes of the arena
func (t *Tree) Capacity() int {
	return len(t.nodes)
}

// Height returns the height of the tree, 0 when empty or when it only holds one leaf
func (t *Tree) Height() int {
	if t.root == NullNode {
		return 0
	}
	return t.nodes[t.root].height
}

// Insert creates a leaf for a shape whose tight box is given and returns its id.
func (t *Tree) Insert(tight actor.AABB, owner uint32) (NodeID, error) {
	needed := 2
	if t.root == NullNode {
		needed = 1
	}
	if t.nodeCount+needed > len(t.nodes) {
		return NullNode, fmt.Errorf("%w: %d nodes in use", ErrCapacity, t.nodeCount)
	}

	leaf := t.allocateNode()
	t.nodes[leaf].aabb = tight.Fatten(t.margin)
	t.nodes[leaf].owner = owner
	t.nodes[leaf].height = 0

	t.insertLeaf(leaf)
	t.leafCount++

	return leaf, nil
}

// Remove deletes a leaf. Invalid or already removed ids are ignored.
func (t *Tree) Remove(id NodeID) {
	if !t.isValidLeaf(id) {
		return
	}

	t.removeLeaf(id)
	t.freeNode(id)
	t.leafCount--
}

// Update refreshes a leaf from the current tight box of its shape.
// The leaf is re-inserted only when the tight box escaped its fat box; the
// new fat box is grown by the margin and stretched along the displacement.
// Returns true when the leaf was re-inserted.
func (t *Tree) Update(id NodeID, tight actor.AABB, displacement mgl64.Vec3) bool {
	if !t.isValidLeaf(id) {
		return false
	}

	if t.nodes[id].aabb.Contains(tight) {
		return false
	}

	t.removeLeaf(id)
	t.nodes[id].aabb = tight.Fatten(t.margin).Extend(displacement.Mul(t.multiplier))
	t.insertLeaf(id)

	return true
}

// QueryOverlap calls visitor for every leaf whose fat box intersects box.
// The query stops as soon as visitor returns false.
func (t *Tree) QueryOverlap(box actor.AABB, visitor func(id NodeID) bool) {
	if t.root == NullNode {
		return
	}

	stack := make([]NodeID, 0, 64)
	stack = append(stack, t.root)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[id]
		if !n.aabb.Overlaps(box) {
			continue
		}

		if n.isLeaf() {
			if !visitor(id) {
				return
			}
			continue
		}

		stack = append(stack, n.left, n.right)
	}
}

// GetFatBounds returns the fat box of a leaf
func (t *Tree) GetFatBounds(id NodeID) (actor.AABB, bool) {
	if !t.isValidLeaf(id) {
		return actor.AABB{}, false
	}
	return t.nodes[id].aabb, true
}

// Owner returns the shape back-reference stored in a leaf
func (t *Tree) Owner(id NodeID) (uint32, bool) {
	if !t.isValidLeaf(id) {
		return 0, false
	}
	return t.nodes[id].owner, true
}

func (t *Tree) isValidLeaf(id NodeID) bool {
	if id < 0 || int(id) >= len(t.nodes) {
		return false
	}
	n := &t.nodes[id]
	return n.height == 0 && n.isLeaf()
}

// allocateNode peels a node off the free list. Callers check capacity first.
func (t *Tree) allocateNode() NodeID {
	id := t.freeList
	n := &t.nodes[id]
	t.freeList = n.next

	n.parent = NullNode
	n.left = NullNode
	n.right = NullNode
	n.next = NullNode
	n.height = 0
	n.owner = 0
	t.nodeCount++

	return id
}

// freeNode returns a node to the pool
func (t *Tree) freeNode(id NodeID) {
	n := &t.nodes[id]
	n.next = t.freeList
	n.parent = NullNode
	n.left = NullNode
	n.right = NullNode
	n.height = -1
	t.freeList = id
	t.nodeCount--
}

func (t *Tree) insertLeaf(leaf NodeID) {
	if t.root == NullNode {
		t.root = leaf
		t.nodes[leaf].parent = NullNode
		return
	}

	sibling := t.findBestSibling(t.nodes[leaf].aabb)

	// Create a new parent.
	oldParent := t.nodes[sibling].parent
	newParent := t.allocateNode()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].aabb = t.nodes[leaf].aabb.Union(t.nodes[sibling].aabb)
	t.nodes[newParent].height = t.nodes[sibling].height + 1
	t.nodes[newParent].left = sibling
	t.nodes[newParent].right = leaf
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	if oldParent != NullNode {
		if t.nodes[oldParent].left == sibling {
			t.nodes[oldParent].left = newParent
		} else {
			t.nodes[oldParent].right = newParent
		}
	} else {
		t.root = newParent
	}

	// Walk back up the tree fixing heights and AABBs
	t.refit(t.nodes[leaf].parent)
}

// findBestSibling descends from the root choosing, at each level, the cheapest
// of "become the sibling of this node" and "descend into a child", where the
// cost is the surface area added to the tree.
func (t *Tree) findBestSibling(leafAABB actor.AABB) NodeID {
	index := t.root
	for !t.nodes[index].isLeaf() {
		left := t.nodes[index].left
		right := t.nodes[index].right

		area := t.nodes[index].aabb.SurfaceArea()
		combinedArea := t.nodes[index].aabb.Union(leafAABB).SurfaceArea()

		// Cost of creating a new parent for this node and the new leaf
		cost := 2.0 * combinedArea

		// Minimum cost of pushing the leaf further down the tree
		inheritanceCost := 2.0 * (combinedArea - area)

		costLeft := t.descendCost(left, leafAABB) + inheritanceCost
		costRight := t.descendCost(right, leafAABB) + inheritanceCost

		if cost < costLeft && cost < costRight {
			break
		}

		if costLeft < costRight {
			index = left
		} else {
			index = right
		}
	}

	return index
}

func (t *Tree) descendCost(child NodeID, leafAABB actor.AABB) float64 {
	combined := leafAABB.Union(t.nodes[child].aabb).SurfaceArea()
	if t.nodes[child].isLeaf() {
		return combined
	}
	return combined - t.nodes[child].aabb.SurfaceArea()
}

func (t *Tree) removeLeaf(leaf NodeID) {
	if leaf == t.root {
		t.root = NullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	sibling := t.nodes[parent].left
	if sibling == leaf {
		sibling = t.nodes[parent].right
	}

	if grandParent != NullNode {
		// Destroy parent and connect sibling to grandParent.
		if t.nodes[grandParent].left == parent {
			t.nodes[grandParent].left = sibling
		} else {
			t.nodes[grandParent].right = sibling
		}
		t.nodes[sibling].parent = grandParent
		t.freeNode(parent)

		t.refit(grandParent)
	} else {
		t.root = sibling
		t.nodes[sibling].parent = NullNode
		t.freeNode(parent)
	}

	t.nodes[leaf].parent = NullNode
}

// refit balances and recomputes boxes and heights from index up to the root
func (t *Tree) refit(index NodeID) {
	for index != NullNode {
		index = t.balance(index)

		left := t.nodes[index].left
		right := t.nodes[index].right

		t.nodes[index].height = 1 + max(t.nodes[left].height, t.nodes[right].height)
		t.nodes[index].aabb = t.nodes[left].aabb.Union(t.nodes[right].aabb)

		index = t.nodes[index].parent
	}
}

// balance performs a left or right rotation if node iA is imbalanced.
// Returns the new root index of the subtree.
func (t *Tree) balance(iA NodeID) NodeID {
	A := &t.nodes[iA]
	if A.isLeaf() || A.height < 2 {
		return iA
	}

	iB := A.left
	iC := A.right
	B := &t.nodes[iB]
	C := &t.nodes[iC]

	balance := C.height - B.height

	// Rotate C up
	if balance > 1 {
		t.rotateUp(iA, iC, iB, false)
		return iC
	}

	// Rotate B up
	if balance < -1 {
		t.rotateUp(iA, iB, iC, true)
		return iB
	}

	return iA
}

// rotateUp lifts child iUp of iA in place of iA. iOther is the remaining child
// of iA. fromLeft tells on which side of iA the lifted child was.
func (t *Tree) rotateUp(iA, iUp, iOther NodeID, fromLeft bool) {
	A := &t.nodes[iA]
	Up := &t.nodes[iUp]
	Other := &t.nodes[iOther]

	iF := Up.left
	iG := Up.right
	F := &t.nodes[iF]
	G := &t.nodes[iG]

	// Swap A and Up
	Up.left = iA
	Up.parent = A.parent
	A.parent = iUp

	// A's old parent should point to Up
	if Up.parent != NullNode {
		if t.nodes[Up.parent].left == iA {
			t.nodes[Up.parent].left = iUp
		} else {
			t.nodes[Up.parent].right = iUp
		}
	} else {
		t.root = iUp
	}

	// The taller grandchild stays under Up, the shorter one moves under A
	iKeep, iMove := iF, iG
	if F.height <= G.height {
		iKeep, iMove = iG, iF
	}
	Keep := &t.nodes[iKeep]
	Move := &t.nodes[iMove]

	Up.right = iKeep
	if fromLeft {
		A.left = iMove
	} else {
		A.right = iMove
	}
	Move.parent = iA

	A.aabb = Other.aabb.Union(Move.aabb)
	Up.aabb = A.aabb.Union(Keep.aabb)

	A.height = 1 + max(Other.height, Move.height)
	Up.height = 1 + max(A.height, Keep.height)
}

// Validate checks the structural invariants of the tree: parent links,
// heights, containment of children boxes and node accounting.
func (t *Tree) Validate() error {
	if t.root == NullNode {
		if t.leafCount != 0 || t.nodeCount != 0 {
			return fmt.Errorf("empty tree reports %d leaves and %d nodes", t.leafCount, t.nodeCount)
		}
		return nil
	}
	if t.nodes[t.root].parent != NullNode {
		return fmt.Errorf("root %d has parent %d", t.root, t.nodes[t.root].parent)
	}

	leaves, nodes, err := t.validateNode(t.root)
	if err != nil {
		return err
	}
	if leaves != t.leafCount {
		return fmt.Errorf("reachable leaves %d, expected %d", leaves, t.leafCount)
	}
	if nodes != t.nodeCount {
		return fmt.Errorf("reachable nodes %d, expected %d", nodes, t.nodeCount)
	}

	free := 0
	for id := t.freeList; id != NullNode; id = t.nodes[id].next {
		free++
	}
	if free+t.nodeCount != len(t.nodes) {
		return fmt.Errorf("free list holds %d nodes, expected %d", free, len(t.nodes)-t.nodeCount)
	}

	return nil
}

func (t *Tree) validateNode(id NodeID) (int, int, error) {
	n := &t.nodes[id]
	if n.isLeaf() {
		if n.right != NullNode || n.height != 0 {
			return 0, 0, fmt.Errorf("leaf %d is malformed", id)
		}
		return 1, 1, nil
	}

	for _, child := range [2]NodeID{n.left, n.right} {
		if t.nodes[child].parent != id {
			return 0, 0, fmt.Errorf("node %d: child %d points to parent %d", id, child, t.nodes[child].parent)
		}
		if !n.aabb.Contains(t.nodes[child].aabb) {
			return 0, 0, fmt.Errorf("node %d does not contain child %d", id, child)
		}
	}

	left, right := &t.nodes[n.left], &t.nodes[n.right]
	if n.height != 1+max(left.height, right.height) {
		return 0, 0, fmt.Errorf("node %d has height %d, expected %d", id, n.height, 1+max(left.height, right.height))
	}

	leavesL, nodesL, err := t.validateNode(n.left)
	if err != nil {
		return 0, 0, err
	}
	leavesR, nodesR, err := t.validateNode(n.right)
	if err != nil {
		return 0, 0, err
	}

	return leavesL + leavesR, nodesL + nodesR + 1, nil
}
