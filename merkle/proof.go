package merkle

import (
	"fmt"

	"github.com/SunsetLabs-Game/zylith-asp/crypto"
	"github.com/SunsetLabs-Game/zylith-asp/types"
)

// Proof is the transport form of an inclusion proof. PathIndices[k] gives the
// position of the proof target at level k: 0 when it is the left child, 1
// when it is the right child. Path[k] is the corresponding sibling.
type Proof struct {
	Leaf        string   `json:"leaf"`
	Path        []string `json:"path"`
	PathIndices []int    `json:"path_indices"`
	Root        string   `json:"root"`
}

// Proof extracts the inclusion proof for the leaf at index. Returns false if
// the slot has never been populated.
func (t *Tree) Proof(index uint32) (*Proof, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	leaf, ok := t.nodes[nodeKey{0, index}]
	if !ok {
		return nil, false
	}

	path := make([]string, t.depth)
	indices := make([]int, t.depth)
	idx := index
	for level := 0; level < t.depth; level++ {
		var sibling uint32
		if idx%2 == 0 {
			sibling = idx + 1
			indices[level] = 0
		} else {
			sibling = idx - 1
			indices[level] = 1
		}
		path[level] = types.HexFelt(t.node(level, sibling))
		idx /= 2
	}

	return &Proof{
		Leaf:        types.HexFelt(leaf),
		Path:        path,
		PathIndices: indices,
		Root:        types.HexFelt(t.root),
	}, true
}

// VerifyProof folds the proof bottom-up and reports whether it commits to its
// root. Intended for tests and external verifiers.
func VerifyProof(p *Proof) (bool, error) {
	if len(p.Path) != len(p.PathIndices) {
		return false, fmt.Errorf("path length %d does not match indices length %d",
			len(p.Path), len(p.PathIndices))
	}

	current, err := types.ParseFelt(p.Leaf)
	if err != nil {
		return false, fmt.Errorf("leaf: %w", err)
	}
	for k, hex := range p.Path {
		sibling, err := types.ParseFelt(hex)
		if err != nil {
			return false, fmt.Errorf("sibling %d: %w", k, err)
		}

		if p.PathIndices[k] == 0 {
			current, err = crypto.MaskedHash(current, sibling)
		} else {
			current, err = crypto.MaskedHash(sibling, current)
		}
		if err != nil {
			return false, err
		}
	}

	root, err := types.ParseFelt(p.Root)
	if err != nil {
		return false, fmt.Errorf("root: %w", err)
	}
	return current.Cmp(root) == 0, nil
}
