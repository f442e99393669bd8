// Package vault implements the EpisodicVault (V): durable, crash-safe
// storage of content-addressed Episodes with bounded total footprint.
package vault

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// Episode is the domain model's Episode entity (spec §3): an immutable,
// content-addressed snapshot of concept activations at one point in time.
type Episode struct {
	ID               string
	CreatedAt        int64 // monotonic nanoseconds
	ConceptIDs       []uint64
	ActivationVector []float32
	Meta             map[string]string
	Size             int // serialized byte size, for quota accounting
}

// computeID deterministically derives an episode's content-addressed id from
// (created_at, activation_vector, meta), per the data model invariant
// `id = hash(created_at, activation_vector, meta)`.
func computeID(createdAt int64, activationVector []float32, meta map[string]string) string {
	h, _ := blake2b.New256(nil)

	var createdAtBuf [8]byte
	binary.BigEndian.PutUint64(createdAtBuf[:], uint64(createdAt))
	h.Write(createdAtBuf[:])

	var floatBuf [4]byte
	for _, v := range activationVector {
		binary.BigEndian.PutUint32(floatBuf[:], math.Float32bits(v))
		h.Write(floatBuf[:])
	}

	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(meta[k]))
		h.Write([]byte{0})
	}

	// Truncated to 128 bits to match the opaque id width in the data model;
	// blake2b-256's full digest is computed above for its mixing, not its length.
	return hex.EncodeToString(h.Sum(nil)[:16])
}
