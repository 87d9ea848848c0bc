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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/archrecon/services/recon/evolution"
	"github.com/AleutianAI/archrecon/services/recon/graph"
	"github.com/AleutianAI/archrecon/services/recon/store"
)

// cliqueFacts builds two dense groups of four types with an optional weak
// link. Packages misplace type 5.
func cliqueFacts(link float64) string {
	var b strings.Builder
	b.WriteString("types:\n")
	names := []string{"OrderService", "OrderRepository", "OrderController", "OrderMapper",
		"PaymentService", "PaymentGateway", "PaymentClient", "PaymentLedger"}
	for i, n := range names {
		pkg := "shop.order"
		if i >= 5 {
			pkg = "shop.payment"
		}
		fmt.Fprintf(&b, "  - {id: %d, name: %s.%s}\n", i+1, pkg, n)
	}
	b.WriteString("relations:\n")
	for _, group := range [][]int{{1, 2, 3, 4}, {5, 6, 7, 8}} {
		for _, a := range group {
			for _, c := range group {
				if a != c {
					fmt.Fprintf(&b, "  - {kind: coupling, source: %d, target: %d, weight: 0.9}\n", a, c)
				}
			}
		}
	}
	if link > 0 {
		fmt.Fprintf(&b, "  - {kind: coupling, source: 4, target: 5, weight: %v}\n", link)
		fmt.Fprintf(&b, "  - {kind: coupling, source: 5, target: 4, weight: %v}\n", link)
	}
	return b.String()
}

func testOptions(hierarchical bool) Options {
	evo := evolution.DefaultOptions()
	evo.PopulationSize = 40
	evo.Generations = 150
	evo.Seed = 42
	evo.Workers = 2
	return Options{
		Kind:         graph.KindCoupling,
		Hierarchical: hierarchical,
		Evolution:    evo,
	}
}

var allTypes = []graph.EntityID{1, 2, 3, 4, 5, 6, 7, 8}

// TestPartitioner_Flat verifies a flat run materializes the two groups.
func TestPartitioner_Flat(t *testing.T) {
	s := seedStore(t, cliqueFacts(0))
	p, err := New(s, testOptions(false))
	require.NoError(t, err)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Components, 2)
	require.Len(t, res.Levels, 1)
	assert.Nil(t, res.Root)
	assert.Equal(t, "COH0L0#0", res.Components[0].Name)
	assert.Equal(t, "COH0L0#1", res.Components[1].Name)
	assert.Equal(t, []graph.EntityID{1, 2, 3, 4}, res.Components[0].Types)
	assert.Equal(t, []graph.EntityID{5, 6, 7, 8}, res.Components[1].Types)
	assert.Equal(t, "Order", res.Components[0].TopWords[0])
	assert.Equal(t, "Payment", res.Components[1].TopWords[0])
	assert.Equal(t, store.ShapeComponent, res.Components[0].Shape)
	assert.Equal(t, []graph.EntityID{res.Components[0].ID, res.Components[1].ID}, res.TopLevel)
}

// TestPartitioner_Hierarchical verifies strict reduction down to one root
// whose leaves are every type.
func TestPartitioner_Hierarchical(t *testing.T) {
	for _, link := range []float64{0, 0.1} {
		t.Run(fmt.Sprintf("link=%v", link), func(t *testing.T) {
			s := seedStore(t, cliqueFacts(link))
			p, err := New(s, testOptions(true))
			require.NoError(t, err)

			ctx := context.Background()
			res, err := p.Run(ctx)
			require.NoError(t, err)
			require.NotNil(t, res.Root)
			assert.Equal(t, []graph.EntityID{res.Root.ID}, res.TopLevel)

			require.GreaterOrEqual(t, len(res.Levels), 2)
			assert.Equal(t, 8, res.Levels[0].Entities)
			for i := 1; i < len(res.Levels); i++ {
				assert.Less(t, res.Levels[i].Entities, res.Levels[i-1].Entities)
			}

			require.NoError(t, s.Read(ctx, func(r store.Reader) error {
				leaves, err := store.LeafTypes(ctx, r, res.Root.ID)
				require.NoError(t, err)
				assert.Equal(t, allTypes, leaves)

				// Everything returned was committed as returned.
				for _, c := range res.Components {
					stored, err := r.Entity(ctx, c.ID)
					require.NoError(t, err)
					assert.Equal(t, c, stored)
				}
				return nil
			}))
		})
	}
}

// TestPartitioner_DisconnectedWrapsRoot verifies a level without relations
// still terminates in one root.
func TestPartitioner_DisconnectedWrapsRoot(t *testing.T) {
	s := seedStore(t, "types: [{id: 1, name: A}, {id: 2, name: B}, {id: 3, name: C}]")
	p, err := New(s, testOptions(true))
	require.NoError(t, err)

	res, err := p.Decompose(context.Background(), []graph.EntityID{1, 2, 3}, nil)
	require.NoError(t, err)
	require.Len(t, res.Levels, 1)
	require.NotNil(t, res.Root)
	assert.False(t, res.Levels[0].Objectives.Invalid)
	assert.Equal(t, []graph.EntityID{1, 2, 3}, res.Root.Types)
}

// TestPartitioner_SingleType verifies a lone type is wrapped into a root.
func TestPartitioner_SingleType(t *testing.T) {
	s := seedStore(t, "types: [{id: 7, name: Lonely}]")
	p, err := New(s, testOptions(true))
	require.NoError(t, err)

	res, err := p.Decompose(context.Background(), []graph.EntityID{7}, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Root)
	assert.Equal(t, []graph.EntityID{7}, res.Root.Types)
	assert.Equal(t, []string{"Lonely"}, res.Root.TopWords)
}

// TestPartitioner_Errors verifies input validation and cancellation.
func TestPartitioner_Errors(t *testing.T) {
	s := seedStore(t, cliqueFacts(0))
	p, err := New(s, testOptions(true))
	require.NoError(t, err)

	_, err = p.Decompose(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrEmptyIDSet)

	_, err = p.Decompose(context.Background(), allTypes, Partition{1: 0})
	assert.ErrorIs(t, err, ErrIncompletePartition)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Decompose(ctx, allTypes, nil)
	var levelErr *LevelError
	require.ErrorAs(t, err, &levelErr)
	assert.Equal(t, 0, levelErr.Level)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = New(nil, testOptions(true))
	assert.Error(t, err)
}

// TestPartitioner_Badger verifies a run against the badger store.
func TestPartitioner_Badger(t *testing.T) {
	f, err := store.ParseFacts([]byte(cliqueFacts(0.1)))
	require.NoError(t, err)
	s, err := store.OpenBadger(store.InMemoryBadgerConfig())
	require.NoError(t, err)
	defer s.Close()
	_, err = store.LoadFacts(context.Background(), s, f, graph.DefaultRelationWeights())
	require.NoError(t, err)

	p, err := New(s, testOptions(true))
	require.NoError(t, err)
	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Root)
}

// TestState_String verifies state names.
func TestState_String(t *testing.T) {
	assert.Equal(t, "BUILD_GRAPH", StateBuildGraph.String())
	assert.Equal(t, "DONE", StateDone.String())
}
