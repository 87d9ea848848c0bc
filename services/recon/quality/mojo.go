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
	"slices"

	"github.com/AleutianAI/archrecon/services/recon/graph"
)

// tagTable counts, for every source cluster, how many of its entities lie
// in each target cluster.
type tagTable struct {
	sizes []int
	tags  [][]int
	total int
}

func newTagTable(source, target Decomposition) tagTable {
	keep := shared(source, target)
	src := source.clusters(keep)
	dst := target.clusters(keep)

	where := make(map[graph.EntityID]int, len(keep))
	for j, members := range dst {
		for _, id := range members {
			where[id] = j
		}
	}

	t := tagTable{sizes: make([]int, len(src)), tags: make([][]int, len(src)), total: len(keep)}
	for i, members := range src {
		t.sizes[i] = len(members)
		t.tags[i] = make([]int, len(dst))
		for _, id := range members {
			t.tags[i][where[id]]++
		}
	}
	return t
}

// cost is the number of moves plus joins for a matching of source
// clusters to target clusters. Unmatched source clusters keep their
// largest tag and are joined into that group.
func (t tagTable) cost(match []int) int {
	moves, matched := 0, 0
	for i, size := range t.sizes {
		if match[i] >= 0 {
			moves += size - t.tags[i][match[i]]
			matched++
			continue
		}
		moves += size - slices.Max(append([]int{0}, t.tags[i]...))
	}
	return moves + len(t.sizes) - matched
}

// mojo is the one-directional MoJo distance from source to target.
func mojo(source, target Decomposition) int {
	t := newTagTable(source, target)
	edges := make([][]int, len(t.sizes))
	for i, row := range t.tags {
		top := slices.Max(append([]int{0}, row...))
		for j, v := range row {
			if v == top && v > 0 {
				edges[i] = append(edges[i], j)
			}
		}
	}
	var width int
	if len(t.tags) > 0 {
		width = len(t.tags[0])
	}
	return t.cost(maxMatching(edges, width))
}

// MoJo returns the smaller of the two one-directional MoJo distances.
func MoJo(a, b Decomposition) int {
	return min(mojo(a, b), mojo(b, a))
}

// maxMoJo is the largest possible MoJo distance of any decomposition to
// reference.
func maxMoJo(reference Decomposition, keep map[graph.EntityID]struct{}) int {
	clusters := reference.clusters(keep)
	sizes := make([]int, len(clusters))
	for i, c := range clusters {
		sizes[i] = len(c)
	}
	slices.Sort(sizes)
	g := 0
	for _, s := range sizes {
		if g < s {
			g++
		}
	}
	return len(keep) - g
}

// MoJoFM scores produced against reference on a 0-100 scale, 100 meaning
// identical.
func MoJoFM(produced, reference Decomposition) float64 {
	keep := shared(produced, reference)
	top := maxMoJo(reference, keep)
	if top == 0 {
		return 100
	}
	return max(0, (1-float64(mojo(produced, reference))/float64(top))*100)
}

// mojoPlus is the one-directional cost under a maximum-weight matching of
// source to target clusters.
func mojoPlus(source, target Decomposition) int {
	t := newTagTable(source, target)
	return t.cost(maxWeightMatching(t.tags))
}

// MoJoPlus returns the smaller of the two one-directional MoJoPlus costs.
func MoJoPlus(a, b Decomposition) int {
	return min(mojoPlus(a, b), mojoPlus(b, a))
}

// maxMatching returns a maximum bipartite matching of left vertices to
// right vertices by augmenting paths. Unmatched left vertices map to -1.
func maxMatching(edges [][]int, right int) []int {
	matchL := make([]int, len(edges))
	matchR := make([]int, right)
	for i := range matchL {
		matchL[i] = -1
	}
	for j := range matchR {
		matchR[j] = -1
	}

	var augment func(u int, seen []bool) bool
	augment = func(u int, seen []bool) bool {
		for _, v := range edges[u] {
			if seen[v] {
				continue
			}
			seen[v] = true
			if matchR[v] < 0 || augment(matchR[v], seen) {
				matchL[u], matchR[v] = v, u
				return true
			}
		}
		return false
	}
	for u := range edges {
		augment(u, make([]bool, right))
	}
	return matchL
}

// maxWeightMatching assigns rows to columns maximizing the total weight
// with the Hungarian method. Rows left without a column, or assigned a
// zero-weight column, map to -1.
func maxWeightMatching(w [][]int) []int {
	rows := len(w)
	if rows == 0 {
		return nil
	}
	cols := len(w[0])
	n := max(rows, cols)

	top := 0
	for _, row := range w {
		top = max(top, slices.Max(append([]int{0}, row...)))
	}
	cost := func(i, j int) int {
		if i < rows && j < cols {
			return top - w[i][j]
		}
		return top
	}

	// Potentials and assignment over a square matrix, 1-based.
	const inf = int(^uint(0) >> 1)
	u := make([]int, n+1)
	v := make([]int, n+1)
	p := make([]int, n+1)
	way := make([]int, n+1)
	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]int, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = inf
		}
		for {
			used[j0] = true
			i0, delta, j1 := p[j0], inf, 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j], way[j] = cur, j0
				}
				if minv[j] < delta {
					delta, j1 = minv[j], j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	match := make([]int, rows)
	for i := range match {
		match[i] = -1
	}
	for j := 1; j <= n; j++ {
		i, col := p[j]-1, j-1
		if i < rows && col < cols && w[i][col] > 0 {
			match[i] = col
		}
	}
	return match
}
