// Package merkle builds keccak256 Merkle trees whose sibling pairs are
// sorted before hashing, the layout OpenZeppelin's MerkleProof verifies.
package merkle

import (
	"bytes"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrLeafNotFound = errors.New("leaf is not part of the tree")

// Leaf hashes raw item data into a leaf.
func Leaf(data []byte) common.Hash {
	return crypto.Keccak256Hash(data)
}

func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a[:], b[:])
}

// Tree keeps every level, leaves first.
type Tree struct {
	levels [][]common.Hash
}

// New builds the tree over leaves in the given order. A node without a
// sibling is promoted to the next level unchanged.
func New(leaves []common.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, errors.New("a merkle tree needs at least one leaf")
	}
	level := append([]common.Hash(nil), leaves...)
	t := &Tree{levels: [][]common.Hash{level}}
	for len(level) > 1 {
		next := make([]common.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, hashPair(level[i], level[i+1]))
		}
		t.levels = append(t.levels, next)
		level = next
	}
	return t, nil
}

// FromItems hashes every item with Leaf and builds the tree.
func FromItems(items [][]byte) (*Tree, error) {
	leaves := make([]common.Hash, 0, len(items))
	for _, item := range items {
		leaves = append(leaves, Leaf(item))
	}
	return New(leaves)
}

func (t *Tree) Root() common.Hash {
	return t.levels[len(t.levels)-1][0]
}

func (t *Tree) Leaves() []common.Hash {
	return append([]common.Hash(nil), t.levels[0]...)
}

// Proof returns the sibling hashes from leaf up to the root.
func (t *Tree) Proof(leaf common.Hash) ([]common.Hash, error) {
	idx := -1
	for i, l := range t.levels[0] {
		if l == leaf {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrLeafNotFound
	}
	proof := []common.Hash{}
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := idx ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		idx /= 2
	}
	return proof, nil
}

// Verify recomputes the root from leaf and proof.
func Verify(root, leaf common.Hash, proof []common.Hash) bool {
	h := leaf
	for _, p := range proof {
		h = hashPair(h, p)
	}
	return h == root
}
