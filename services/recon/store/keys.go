// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"encoding/binary"
	"math"

	"github.com/AleutianAI/archrecon/services/recon/graph"
)

// Key layout:
//
//	e/<id>             entity, msgpack
//	r/<kind>/<src><dst> relation weight, float64 bits
//	d/<src><dst>       dependency counts, msgpack
//	m/maxid            highest allocated entity id
//	m/candidates       candidate components, msgpack
//
// Ids are 8-byte big-endian so prefix scans return ascending order.
var (
	prefixEntity     = []byte("e/")
	prefixDependency = []byte("d/")
	keyMaxID         = []byte("m/maxid")
	keyCandidates    = []byte("m/candidates")
)

func entityKey(id graph.EntityID) []byte {
	return binary.BigEndian.AppendUint64(append([]byte{}, prefixEntity...), uint64(id))
}

func relationPrefix(kind graph.Kind) []byte {
	return []byte{'r', '/', kindByte(kind), '/'}
}

func relationSourcePrefix(kind graph.Kind, src graph.EntityID) []byte {
	return binary.BigEndian.AppendUint64(relationPrefix(kind), uint64(src))
}

func relationKey(kind graph.Kind, src, dst graph.EntityID) []byte {
	return binary.BigEndian.AppendUint64(relationSourcePrefix(kind, src), uint64(dst))
}

func dependencyKey(src, dst graph.EntityID) []byte {
	k := binary.BigEndian.AppendUint64(append([]byte{}, prefixDependency...), uint64(src))
	return binary.BigEndian.AppendUint64(k, uint64(dst))
}

// splitPair decodes the trailing <src><dst> of a relation or dependency key.
func splitPair(key []byte) (graph.EntityID, graph.EntityID) {
	n := len(key)
	src := binary.BigEndian.Uint64(key[n-16 : n-8])
	dst := binary.BigEndian.Uint64(key[n-8:])
	return graph.EntityID(src), graph.EntityID(dst)
}

func kindByte(kind graph.Kind) byte {
	if kind == graph.KindSimilarity {
		return 's'
	}
	return 'c'
}

func encodeWeight(w float64) []byte {
	return binary.BigEndian.AppendUint64(nil, math.Float64bits(w))
}

func decodeWeight(b []byte) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

func encodeID(id graph.EntityID) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(id))
}

func decodeID(b []byte) graph.EntityID {
	return graph.EntityID(binary.BigEndian.Uint64(b))
}
