// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package partition

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/AleutianAI/archrecon/services/recon/graph"
	"github.com/AleutianAI/archrecon/services/recon/store"
)

// SeedMode selects how the first level's initial partitioning is built.
type SeedMode string

const (
	// SeedPackage groups types by package.
	SeedPackage SeedMode = "package"

	// SeedCandidates groups types by rule-based candidate components.
	SeedCandidates SeedMode = "candidates"

	// SeedGroups starts from one singleton group per entity.
	SeedGroups SeedMode = "groups"
)

// Seeder builds an initial partitioning for a level.
type Seeder interface {
	Seed(ctx context.Context, r store.Reader, ids []graph.EntityID) (Partition, error)
}

// NewSeeder resolves mode into a Seeder. Candidates are only used by
// SeedCandidates.
func NewSeeder(mode SeedMode, candidates []store.Candidate) (Seeder, error) {
	switch SeedMode(strings.ToLower(string(mode))) {
	case SeedPackage, "":
		return PackageSeeder{}, nil
	case SeedCandidates:
		return CandidateSeeder{Candidates: candidates}, nil
	case SeedGroups:
		return GroupSeeder{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSeedMode, mode)
	}
}

// PackageSeeder groups entities by package name. Labels follow sorted
// package order.
type PackageSeeder struct{}

// Seed implements Seeder.
func (PackageSeeder) Seed(ctx context.Context, r store.Reader, ids []graph.EntityID) (Partition, error) {
	byPkg := make(map[string][]graph.EntityID)
	for _, id := range ids {
		e, err := r.Entity(ctx, id)
		if err != nil {
			return nil, err
		}
		byPkg[e.Package] = append(byPkg[e.Package], id)
	}
	pkgs := make([]string, 0, len(byPkg))
	for p := range byPkg {
		pkgs = append(pkgs, p)
	}
	slices.Sort(pkgs)

	groups := make([][]graph.EntityID, len(pkgs))
	for i, p := range pkgs {
		groups[i] = byPkg[p]
	}
	return FromGroups(groups), nil
}

// CandidateSeeder groups entities by the first candidate component that
// contains them, directly or through nested candidates. Entities outside
// every candidate get a group of their own.
type CandidateSeeder struct {
	Candidates []store.Candidate
}

// Seed implements Seeder.
func (s CandidateSeeder) Seed(ctx context.Context, r store.Reader, ids []graph.EntityID) (Partition, error) {
	byName := make(map[string]store.Candidate, len(s.Candidates))
	for _, c := range s.Candidates {
		byName[c.Name] = c
	}

	owner := make(map[graph.EntityID]int)
	for idx, c := range s.Candidates {
		for _, id := range candidateTypes(c, byName) {
			if _, taken := owner[id]; !taken {
				owner[id] = idx
			}
		}
	}

	p := make(Partition, len(ids))
	next := len(s.Candidates)
	for _, id := range ids {
		if label, ok := owner[id]; ok {
			p[id] = label
			continue
		}
		p[id] = next
		next++
	}
	return compact(p, ids), nil
}

// candidateTypes returns every type in c and its nested candidates.
func candidateTypes(c store.Candidate, byName map[string]store.Candidate) []graph.EntityID {
	seen := map[string]struct{}{}
	var out []graph.EntityID
	stack := []store.Candidate{c}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[cur.Name]; ok {
			continue
		}
		seen[cur.Name] = struct{}{}
		out = append(out, cur.Types...)
		for _, n := range cur.Candidates {
			if nested, ok := byName[n]; ok {
				stack = append(stack, nested)
			}
		}
	}
	return out
}

// GroupSeeder puts every entity in its own group.
type GroupSeeder struct{}

// Seed implements Seeder.
func (GroupSeeder) Seed(_ context.Context, _ store.Reader, ids []graph.EntityID) (Partition, error) {
	return Singletons(ids), nil
}

// compact renumbers labels by first appearance along ids.
func compact(p Partition, ids []graph.EntityID) Partition {
	out := make(Partition, len(p))
	for i, label := range p.Chromosome(ids) {
		out[ids[i]] = label
	}
	return out
}
