package common

import "math"

// FNV-1a constants for 64-bit incremental hashing. Content identity for
// cached GPU resources is built by folding each identity-affecting property
// into a running hash with the HashCombine* helpers; equal content always
// yields an equal key and any property change changes the key.
const (
	fnvOffset uint64 = 14695981039346656037
	fnvPrime  uint64 = 1099511628211
)

// HashSeed returns the initial seed for an incremental FNV-1a hash chain.
func HashSeed() uint64 { return fnvOffset }

// HashCombineBytes folds raw bytes into the running hash.
func HashCombineBytes(seed uint64, data []byte) uint64 {
	h := seed
	for _, b := range data {
		h ^= uint64(b)
		h *= fnvPrime
	}
	return h
}

// HashCombineString folds a string into the running hash.
func HashCombineString(seed uint64, s string) uint64 {
	h := seed
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime
	}
	return h
}

// HashCombineUint64 folds a 64-bit value into the running hash one byte at a time.
func HashCombineUint64(seed, v uint64) uint64 {
	h := seed
	for i := 0; i < 8; i++ {
		h ^= v & 0xff
		h *= fnvPrime
		v >>= 8
	}
	return h
}

// HashCombineFloat32 folds the IEEE-754 bit pattern of v into the running hash.
func HashCombineFloat32(seed uint64, v float32) uint64 {
	return HashCombineUint64(seed, uint64(math.Float32bits(v)))
}

// HashCombineBool folds a boolean into the running hash.
func HashCombineBool(seed uint64, v bool) uint64 {
	if v {
		return HashCombineUint64(seed, 1)
	}
	return HashCombineUint64(seed, 0)
}

// HashCombineInt folds an int into the running hash. Used for enum values.
func HashCombineInt(seed uint64, v int) uint64 {
	return HashCombineUint64(seed, uint64(int64(v)))
}

// HashCombineColor folds all four color channels into the running hash.
func HashCombineColor(seed uint64, c Color4f) uint64 {
	seed = HashCombineFloat32(seed, c.R)
	seed = HashCombineFloat32(seed, c.G)
	seed = HashCombineFloat32(seed, c.B)
	return HashCombineFloat32(seed, c.A)
}

// HashCombineRect folds a rectangle into the running hash.
func HashCombineRect(seed uint64, r FRect) uint64 {
	seed = HashCombineFloat32(seed, r.X)
	seed = HashCombineFloat32(seed, r.Y)
	seed = HashCombineFloat32(seed, r.W)
	return HashCombineFloat32(seed, r.H)
}

// HashString computes the FNV-1a hash of a string from scratch.
func HashString(s string) uint64 {
	return HashCombineString(fnvOffset, s)
}
