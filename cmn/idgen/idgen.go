// Package idgen derives deterministic, globally-unique identifiers for
// devices, signals, and instances.
//
// Adapted from the teacher's cmn/cos/uuid.go: same xxhash-based
// best-effort-ID construction (GenBEID) and 3-char random tie-breaker
// (GenTie), repurposed for §3's `device.id = hash(name) << 32` and for
// minting GIDs in the ID-map table (§4.D) instead of bucket/daemon IDs.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package idgen

import (
	"crypto/rand"
	"math/big"
	ratomic "sync/atomic"

	"github.com/OneOfOne/xxhash"
)

const mlcg32 = 1103515245

// DeviceID computes the globally-unique device identifier from its
// locked name ("prefix.ordinal"), per spec.md §3: id = hash(name)<<32.
func DeviceID(name string) uint64 {
	return xxhash.Checksum64S([]byte(name), mlcg32) << 32
}

// SignalID folds the owning device's id into a signal's locally-chosen
// slot so the result is globally unique once the device is registered,
// per spec.md §3 ("Signal id incorporates owning device id").
func SignalID(deviceID uint64, localSlot uint32) uint64 {
	return deviceID | uint64(localSlot)
}

var tie ratomic.Uint32

// GenTie returns a small pseudo-random tie-breaker used by the name
// allocator (§4.G) to decide collision precedence between two probes
// for the same ordinal.
func GenTie() uint32 {
	return tie.Add(1)*2654435761 ^ uint32(cryptoRand())
}

func cryptoRand() uint64 {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return uint64(tie.Add(1))
	}
	return n.Uint64()
}

// GID mints a process-wide-unique global instance ID, used by the
// ID-map table's add() operation (§4.D) when a record isn't paired to
// an already-minted remote GID.
func GID(deviceID uint64) uint64 {
	return deviceID ^ (uint64(GenTie()) << 16) ^ uint64(cryptoRand())
}
