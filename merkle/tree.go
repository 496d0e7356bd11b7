// Package merkle implements the append-only authenticated commitment set
// mirrored from the on-chain contract.
//
// Missing nodes are the literal zero field element, not recursively hashed
// zero subtrees. The contract initializes its spine to zero and only mixes in
// hashes as inserts accumulate; a tree built with textbook precomputed zero
// hashes diverges from it after the first insert.
package merkle

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/SunsetLabs-Game/zylith-asp/crypto"
)

// TreeDepth is fixed by the deployed contract.
const TreeDepth = 25

// IndexConflictError reports an insert whose leaf disagrees with an already
// populated index. It indicates contract/observer disagreement and should
// trigger reconciliation.
type IndexConflictError struct {
	Index uint32
}

func (e *IndexConflictError) Error() string {
	return fmt.Sprintf("index conflict at leaf %d", e.Index)
}

// zero is the literal zero substituted for any absent node. Never mutated.
var zero = big.NewInt(0)

type nodeKey struct {
	level int
	index uint32
}

// Tree is a sparse fixed-depth Merkle accumulator. Level 0 holds leaves,
// level depth holds the root. All exported methods are safe for concurrent
// use; the internal lock is never held across I/O.
type Tree struct {
	mu        sync.Mutex
	depth     int
	nextIndex uint32
	nodes     map[nodeKey]*big.Int
	root      *big.Int
}

// New creates an empty tree of the given depth. The empty root is the
// literal zero.
func New(depth int) *Tree {
	return &Tree{
		depth: depth,
		nodes: make(map[nodeKey]*big.Int),
		root:  big.NewInt(0),
	}
}

// Insert appends leaf at the next free index and returns the index and the
// new root.
func (t *Tree) Insert(leaf *big.Int) (uint32, *big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	index := t.nextIndex
	root, err := t.insertAt(index, leaf)
	if err != nil {
		return 0, nil, err
	}
	return index, root, nil
}

// InsertAt places leaf at an explicit index, as dictated by on-chain events.
// Re-inserting the same value at a populated index is a no-op returning the
// current root; a different value fails with IndexConflictError, unless the
// slot holds a zero gap-fill leaf, which the new value replaces. Indices
// beyond nextIndex fill the gap with zero leaves first.
func (t *Tree) InsertAt(index uint32, leaf *big.Int) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insertAt(index, leaf)
}

func (t *Tree) insertAt(index uint32, leaf *big.Int) (*big.Int, error) {
	if uint64(index) >= uint64(1)<<uint(t.depth) {
		return nil, fmt.Errorf("leaf index %d exceeds tree capacity 2^%d", index, t.depth)
	}

	if index < t.nextIndex {
		// Gap filling stores explicit zeros, so every index below
		// nextIndex is present.
		existing := t.nodes[nodeKey{0, index}]
		if existing.Cmp(leaf) == 0 {
			return new(big.Int).Set(t.root), nil
		}
		if existing.Sign() != 0 {
			return nil, &IndexConflictError{Index: index}
		}
		// A zero leaf is a gap-fill placeholder; the late event that owns
		// the slot replaces it.
		if err := t.place(index, leaf); err != nil {
			return nil, err
		}
		return new(big.Int).Set(t.root), nil
	}

	for i := t.nextIndex; i < index; i++ {
		if err := t.place(i, zero); err != nil {
			return nil, err
		}
	}
	if err := t.place(index, leaf); err != nil {
		return nil, err
	}
	return new(big.Int).Set(t.root), nil
}

// place stores leaf at (0, index) and rehashes the spine up to the root.
func (t *Tree) place(index uint32, leaf *big.Int) error {
	t.nodes[nodeKey{0, index}] = new(big.Int).Set(leaf)
	if index+1 > t.nextIndex {
		t.nextIndex = index + 1
	}

	current := new(big.Int).Set(leaf)
	idx := index
	for level := 0; level < t.depth; level++ {
		var left, right *big.Int
		if idx%2 == 0 {
			left, right = current, t.node(level, idx+1)
		} else {
			left, right = t.node(level, idx-1), current
		}

		parent, err := crypto.MaskedHash(left, right)
		if err != nil {
			return err
		}

		idx /= 2
		t.nodes[nodeKey{level + 1, idx}] = parent
		current = parent
	}

	t.root = current
	return nil
}

// node returns the stored value at (level, index), or the literal zero.
func (t *Tree) node(level int, index uint32) *big.Int {
	if v, ok := t.nodes[nodeKey{level, index}]; ok {
		return v
	}
	return zero
}

// Root returns the current root, or zero for the empty tree.
func (t *Tree) Root() *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.root)
}

// LeafCount returns the number of occupied leaf slots, gap fills included.
func (t *Tree) LeafCount() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextIndex
}

// Depth returns the fixed tree depth.
func (t *Tree) Depth() int {
	return t.depth
}

// Leaf returns the leaf stored at index, if any.
func (t *Tree) Leaf(index uint32) (*big.Int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.nodes[nodeKey{0, index}]
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(v), true
}

// FindIndex scans level 0 for the given commitment and returns the least
// index holding it. O(n) over occupied leaves.
func (t *Tree) FindIndex(commitment *big.Int) (uint32, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := uint32(0); i < t.nextIndex; i++ {
		if t.nodes[nodeKey{0, i}].Cmp(commitment) == 0 {
			return i, true
		}
	}
	return 0, false
}

// Reset discards all state, restoring the empty tree. Used when a root
// divergence forces a rebuild from genesis.
func (t *Tree) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes = make(map[nodeKey]*big.Int)
	t.nextIndex = 0
	t.root = big.NewInt(0)
}
