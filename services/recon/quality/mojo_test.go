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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/archrecon/services/recon/graph"
	"github.com/AleutianAI/archrecon/services/recon/partition"
)

func TestMoJo_Identical(t *testing.T) {
	d := Decomposition{"a": {1, 2, 3}, "b": {4, 5}}
	other := Decomposition{"x": {4, 5}, "y": {1, 2, 3}}

	assert.Equal(t, 0, MoJo(d, other))
	assert.Equal(t, 100.0, MoJoFM(d, other))
	assert.Equal(t, 0, MoJoPlus(d, other))
}

func TestMoJo_SingleMove(t *testing.T) {
	a := Decomposition{"x": {1, 2, 3, 4}, "y": {5, 6}}
	b := Decomposition{"p": {1, 2, 3}, "q": {4, 5, 6}}

	assert.Equal(t, 1, MoJo(a, b))
	assert.Equal(t, 1, MoJo(b, a))
	assert.InDelta(t, 75.0, MoJoFM(a, b), 1e-9)
	assert.Equal(t, 1, MoJoPlus(a, b))
}

func TestMoJo_Joins(t *testing.T) {
	a := Decomposition{"a": {1}, "b": {2}, "c": {3, 4}}
	b := Decomposition{"p": {1, 2, 3, 4}}

	assert.Equal(t, 2, mojo(a, b))
	assert.Equal(t, 2, mojo(b, a))
	assert.Equal(t, 2, MoJo(a, b))
	assert.InDelta(t, 100.0/3, MoJoFM(a, b), 1e-9)
	assert.Equal(t, 2, MoJoPlus(a, b))
}

func TestMoJo_ConflictingTags(t *testing.T) {
	a := Decomposition{"x": {1, 2, 3}, "y": {4, 5, 6}}
	b := Decomposition{"p": {1, 2, 4, 5}, "q": {3, 6}}

	assert.Equal(t, 3, mojo(a, b))
	assert.Equal(t, 3, MoJo(a, b))
	assert.Equal(t, 3, MoJoPlus(a, b))
}

func TestMoJo_OnlySharedEntities(t *testing.T) {
	a := Decomposition{"x": {1, 2, 9}, "empty": {}}
	b := Decomposition{"p": {1, 2}, "q": {10}}

	assert.Equal(t, 0, MoJo(a, b))
	assert.Equal(t, 100.0, MoJoFM(a, b))
}

func TestMoJoFM_Bounds(t *testing.T) {
	// A one-entity reference admits no distance at all.
	assert.Equal(t, 100.0, MoJoFM(Decomposition{"x": {1}}, Decomposition{"p": {1}}))

	// Merging two reference singletons is as far as one can get.
	assert.Equal(t, 0.0, MoJoFM(Decomposition{"x": {1, 2}}, Decomposition{"p": {1}, "q": {2}}))
}

func TestMaxMatching(t *testing.T) {
	assert.Equal(t, []int{0, 1}, maxMatching([][]int{{0}, {0, 1}}, 2))
	assert.Equal(t, []int{0, -1}, maxMatching([][]int{{0}, {0}}, 1))
	assert.Empty(t, maxMatching(nil, 0))
}

func TestMaxWeightMatching(t *testing.T) {
	assert.Equal(t, []int{0, 1}, maxWeightMatching([][]int{{3, 1}, {2, 2}}))
	assert.Equal(t, []int{-1, 0}, maxWeightMatching([][]int{{0, 0}, {5, 0}}))
	assert.Equal(t, []int{-1, -1, 0}, maxWeightMatching([][]int{{1}, {2}, {3}}))
	assert.Equal(t, []int{1, 0}, maxWeightMatching([][]int{{1, 4}, {3, 1}}))
	assert.Nil(t, maxWeightMatching(nil))
}

func TestDecomposition_Validate(t *testing.T) {
	assert.NoError(t, Decomposition{"a": {1}, "b": {2}}.Validate())

	err := Decomposition{"a": {1}, "b": {1}}.Validate()
	assert.ErrorIs(t, err, ErrInvalidDecomposition)
}

func TestReadDecomposition(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "reference.yaml")
	require.NoError(t, os.WriteFile(path, []byte("orders: [1, 2, 3]\npayments: [4, 5]\n"), 0o644))
	d, err := ReadDecomposition(path)
	require.NoError(t, err)
	assert.Equal(t, Decomposition{"orders": {1, 2, 3}, "payments": {4, 5}}, d)
	assert.Equal(t, []graph.EntityID{1, 2, 3, 4, 5}, d.Entities())

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("a: [1]\nb: [1]\n"), 0o644))
	_, err = ReadDecomposition(bad)
	assert.ErrorIs(t, err, ErrInvalidDecomposition)

	_, err = ReadDecomposition(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestFromPartition(t *testing.T) {
	p := partition.FromGroups([][]graph.EntityID{{3, 4}, {1, 2}})
	d := FromPartition(p)
	assert.Equal(t, Decomposition{"0": {3, 4}, "1": {1, 2}}, d)
}
