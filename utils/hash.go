package utils

import (
	"github.com/benbjohnson/immutable"
	"github.com/cespare/xxhash/v2"
)

type (
	// Hashable is implemented by all hashable types.
	Hashable interface {
		Hash() uint32
	}
	// HashableEq is implemented by all hashable types that can be compared for equality.
	HashableEq[T any] interface {
		Hashable
		Equal(T) bool
	}

	// hashableHasher is a hasher for hashable and equality comparable entities.
	hashableHasher[T HashableEq[T]] struct{}
)

// Equal checks that two hashable entities a and b are equal.
func (hashableHasher[T]) Equal(a, b T) bool { return a.Equal(b) }

// Hash computes the uint32 hash of hashable entity a.
func (hashableHasher[T]) Hash(a T) uint32 { return a.Hash() }

// HashableHasher is a generic hasher factory of hashable and equality comparable entities.
func HashableHasher[T HashableEq[T]]() immutable.Hasher[T] { return hashableHasher[T]{} }

// NewImmMapBuilder creates a builder for an immutable map with hashable keys.
func NewImmMapBuilder[K HashableEq[K], V any]() *immutable.MapBuilder[K, V] {
	return immutable.NewMapBuilder[K, V](HashableHasher[K]())
}

// HashString folds the 64-bit xxhash digest of s into 32 bits.
func HashString(s string) uint32 {
	h := xxhash.Sum64String(s)
	return uint32(h ^ (h >> 32))
}

// HashCombine uses the C++ boost algorithm for combining multiple hash values.
func HashCombine(hs ...uint32) (seed uint32) {
	for _, v := range hs {
		seed = v + 0x9e3779b9 + (seed << 6) + (seed >> 2)
	}

	return
}
