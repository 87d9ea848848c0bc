// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package quality

import (
	"maps"
	"slices"

	"github.com/AleutianAI/archrecon/services/recon/graph"
	"github.com/AleutianAI/archrecon/services/recon/partition"
)

// Report collects every comparison of a produced decomposition.
type Report struct {
	MoJo         int     `json:"mojo"`
	MoJoFM       float64 `json:"mojofm"`
	MoJoPlus     int     `json:"mojoplus"`
	MQCoupling   float64 `json:"mq_coupling"`
	MQSimilarity float64 `json:"mq_similarity"`
}

// Graphs holds the relation graphs MQ is computed over. Either may be nil.
type Graphs struct {
	Coupling   *graph.RelationGraph
	Similarity *graph.RelationGraph
}

// Compare scores produced against reference. MQ variants whose graph is
// missing stay zero.
func Compare(produced, reference Decomposition, gs Graphs) Report {
	groups := produced.groups()
	return Report{
		MoJo:         MoJo(produced, reference),
		MoJoFM:       MoJoFM(produced, reference),
		MoJoPlus:     MoJoPlus(produced, reference),
		MQCoupling:   CouplingMQ(gs.Coupling, groups),
		MQSimilarity: SimilarityMQ(gs.Similarity, groups),
	}
}

// FromPartition names each partition group by its label index.
func FromPartition(p partition.Partition) Decomposition {
	return FromGroups(p.Groups())
}

func (d Decomposition) groups() [][]graph.EntityID {
	out := make([][]graph.EntityID, 0, len(d))
	for _, name := range slices.Sorted(maps.Keys(d)) {
		out = append(out, d[name])
	}
	return out
}
