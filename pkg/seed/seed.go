// Package seed turns strings and integers into stable 32-bit seeds and provides the
// seeded random source used by the generator.
//
// Every function here is pure. Outputs are part of the persisted data (variant seeds)
// and of the determinism tests, so the arithmetic must stay bit-for-bit stable.
package seed

import (
	"fmt"
	"unicode/utf16"
)

const (
	fnvOffset = 2166136261
	fnvPrime  = 16777619

	// deriveStep is odd and large so consecutive offsets do not share low-order bits.
	deriveStep = 1013904223
)

// NormalizeSeed takes the absolute value of v and keeps its low 32 bits.
func NormalizeSeed(v int64) uint32 {
	if v < 0 {
		v = -v
	}
	return uint32(v)
}

// HashToSeed folds text into a seed with FNV-1a over its UTF-16 code units.
//
// The running hash is a signed 32-bit value after every multiply and the result is
// normalized from that signed value, so negative intermediates map to their magnitude.
// The empty string hashes to the FNV offset basis.
func HashToSeed(text string) uint32 {
	var hash int64 = fnvOffset
	for _, unit := range utf16.Encode([]rune(text)) {
		h := uint32(hash) ^ uint32(unit)
		hash = int64(int32(h * fnvPrime))
	}
	return NormalizeSeed(hash)
}

// DeriveSeed returns the child seed at offset from base.
func DeriveSeed(base uint32, offset int) uint32 {
	return NormalizeSeed(int64(base) + int64(offset)*deriveStep)
}

// RootSeed returns the seed a batch is derived from.
// An explicit base is used verbatim; otherwise the batch identity is hashed.
func RootSeed(runID, sceneID, techniqueID string, count int, base *uint32) uint32 {
	if base != nil {
		return *base
	}
	return HashToSeed(fmt.Sprintf("%s:%s:%s:%d", runID, sceneID, techniqueID, count))
}
