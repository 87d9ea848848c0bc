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
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/archrecon/services/recon/graph"
)

// Facts is the input produced by an external fact extractor.
//
// Example:
//
//	types:
//	  - id: 1
//	    name: com.acme.order.OrderService
//	    methods: 4
//	dependencies:
//	  - source: 1
//	    target: 2
//	    invokes: 3
//	relations:
//	  - kind: similarity
//	    source: 1
//	    target: 2
//	    weight: 0.4
//	candidates:
//	  - name: Ordering
//	    types: [1, 2]
type Facts struct {
	Types        []TypeFact     `yaml:"types" json:"types"`
	Dependencies []Dependency   `yaml:"dependencies" json:"dependencies"`
	Relations    []RelationFact `yaml:"relations" json:"relations"`
	Candidates   []Candidate    `yaml:"candidates" json:"candidates"`
}

// TypeFact describes one type. A dotted name is split into package and
// simple name unless Package is given.
type TypeFact struct {
	ID       graph.EntityID `yaml:"id" json:"id"`
	Name     string         `yaml:"name" json:"name"`
	Package  string         `yaml:"package" json:"package"`
	External bool           `yaml:"external" json:"external"`
	Methods  int            `yaml:"methods" json:"methods"`
}

// RelationFact is a precomputed relation between two types.
type RelationFact struct {
	Kind   string         `yaml:"kind" json:"kind"`
	Source graph.EntityID `yaml:"source" json:"source"`
	Target graph.EntityID `yaml:"target" json:"target"`
	Weight float64        `yaml:"weight" json:"weight"`
}

// Candidate is a component proposed by a rule-based classifier. Nested
// candidates are referenced by name.
type Candidate struct {
	Name       string           `yaml:"name" json:"name" msgpack:"name"`
	Types      []graph.EntityID `yaml:"types" json:"types" msgpack:"types"`
	Candidates []string         `yaml:"candidates" json:"candidates" msgpack:"candidates,omitempty"`
}

// ReadFacts parses a YAML or JSON fact file.
func ReadFacts(path string) (*Facts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read facts %s: %w", path, err)
	}
	return ParseFacts(data)
}

// ParseFacts parses YAML or JSON fact data and validates it.
func ParseFacts(data []byte) (*Facts, error) {
	var f Facts
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFacts, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks ids and references.
func (f *Facts) Validate() error {
	known := make(map[graph.EntityID]struct{}, len(f.Types))
	for _, t := range f.Types {
		if t.ID == 0 {
			return fmt.Errorf("%w: type %q has id 0", ErrInvalidFacts, t.Name)
		}
		if _, dup := known[t.ID]; dup {
			return fmt.Errorf("%w: duplicate type id %d", ErrInvalidFacts, t.ID)
		}
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("%w: type %d has no name", ErrInvalidFacts, t.ID)
		}
		known[t.ID] = struct{}{}
	}

	check := func(what string, ids ...graph.EntityID) error {
		for _, id := range ids {
			if _, ok := known[id]; !ok {
				return fmt.Errorf("%w: %s references unknown type %d", ErrInvalidFacts, what, id)
			}
		}
		return nil
	}
	for _, d := range f.Dependencies {
		if err := check("dependency", d.Source, d.Target); err != nil {
			return err
		}
	}
	for _, r := range f.Relations {
		if err := check("relation", r.Source, r.Target); err != nil {
			return err
		}
		kind, err := graph.ParseKind(r.Kind)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidFacts, err)
		}
		if !graph.ValidWeight(kind, r.Weight) {
			return fmt.Errorf("%w: %s relation %d->%d has weight %v", ErrInvalidFacts, kind, r.Source, r.Target, r.Weight)
		}
	}

	names := make(map[string]struct{}, len(f.Candidates))
	for _, c := range f.Candidates {
		if c.Name == "" {
			return fmt.Errorf("%w: candidate without name", ErrInvalidFacts)
		}
		names[c.Name] = struct{}{}
		if err := check("candidate "+c.Name, c.Types...); err != nil {
			return err
		}
	}
	for _, c := range f.Candidates {
		for _, nested := range c.Candidates {
			if _, ok := names[nested]; !ok {
				return fmt.Errorf("%w: candidate %s references unknown candidate %s", ErrInvalidFacts, c.Name, nested)
			}
		}
	}
	return nil
}

// LoadReport counts what LoadFacts wrote.
type LoadReport struct {
	Types        int `json:"types"`
	Dependencies int `json:"dependencies"`
	Relations    int `json:"relations"`
	Enriched     int `json:"enriched"`
	Candidates   int `json:"candidates"`
}

// LoadFacts writes f into s in one write phase.
//
// Description:
//
//	Types, dependencies, precomputed relations and candidates are stored
//	first; candidates replace those of any earlier load. When
//	dependencies are present, coupling relations are then derived from
//	them with weights. Precomputed coupling relations for the same pair
//	are overwritten by derived ones.
//
// Outputs:
//
//	LoadReport - Counts of written records.
//	error - ErrInvalidFacts or a store error; nothing is committed then.
func LoadFacts(ctx context.Context, s Store, f *Facts, weights graph.RelationWeights) (LoadReport, error) {
	var report LoadReport
	if err := f.Validate(); err != nil {
		return report, err
	}

	err := s.Write(ctx, func(w Writer) error {
		report = LoadReport{}
		for _, t := range f.Types {
			pkg, name := splitQualified(t.Name)
			if t.Package != "" {
				pkg = t.Package
			}
			_, err := w.PutEntity(ctx, Entity{
				ID:       t.ID,
				Kind:     KindType,
				Name:     name,
				Package:  pkg,
				Internal: !t.External,
				Methods:  t.Methods,
			})
			if err != nil {
				return err
			}
			report.Types++
		}
		for _, d := range f.Dependencies {
			if err := w.PutDependency(ctx, d); err != nil {
				return err
			}
			report.Dependencies++
		}
		for _, r := range f.Relations {
			kind, _ := graph.ParseKind(r.Kind)
			t := graph.Triple{Source: r.Source, Target: r.Target, Weight: r.Weight}
			if r.Source == r.Target {
				continue
			}
			if err := w.PutRelation(ctx, kind, t); err != nil {
				return err
			}
			report.Relations++
		}
		if err := w.PutCandidates(ctx, f.Candidates); err != nil {
			return err
		}
		report.Candidates = len(f.Candidates)
		if len(f.Dependencies) == 0 {
			return nil
		}
		n, err := Enrich(ctx, w, weights)
		report.Enriched = n
		return err
	})
	return report, err
}

// splitQualified splits "a.b.C" into ("a.b", "C").
func splitQualified(name string) (pkg, simple string) {
	name = strings.TrimSpace(name)
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+1:]
}
