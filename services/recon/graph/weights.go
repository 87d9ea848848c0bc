// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import "math"

// RelationWeights weighs each dependency kind when deriving coupling.
//
// Description:
//
//	A value type; pass it explicitly to whatever derives coupling. The
//	zero value weighs nothing, so start from DefaultRelationWeights.
type RelationWeights struct {
	Invokes       float64 `yaml:"invokes" json:"invokes" validate:"gte=0"`
	InvokesStatic float64 `yaml:"invokes_static" json:"invokes_static" validate:"gte=0"`
	Extends       float64 `yaml:"extends" json:"extends" validate:"gte=0"`
	Implements    float64 `yaml:"implements" json:"implements" validate:"gte=0"`
	Returns       float64 `yaml:"returns" json:"returns" validate:"gte=0"`
	Parameter     float64 `yaml:"parameter" json:"parameter" validate:"gte=0"`
	Reads         float64 `yaml:"reads" json:"reads" validate:"gte=0"`
	ReadsStatic   float64 `yaml:"reads_static" json:"reads_static" validate:"gte=0"`
	Writes        float64 `yaml:"writes" json:"writes" validate:"gte=0"`
	WritesStatic  float64 `yaml:"writes_static" json:"writes_static" validate:"gte=0"`
	Composes      float64 `yaml:"composes" json:"composes" validate:"gte=0"`
	InnerClasses  float64 `yaml:"inner_classes" json:"inner_classes" validate:"gte=0"`
}

// DefaultRelationWeights weighs every dependency kind equally.
func DefaultRelationWeights() RelationWeights {
	return RelationWeights{
		Invokes:       1,
		InvokesStatic: 1,
		Extends:       1,
		Implements:    1,
		Returns:       1,
		Parameter:     1,
		Reads:         1,
		ReadsStatic:   1,
		Writes:        1,
		WritesStatic:  1,
		Composes:      1,
		InnerClasses:  1,
	}
}

// Total returns the sum of all weights.
func (w RelationWeights) Total() float64 {
	return w.Invokes + w.InvokesStatic + w.Extends + w.Implements +
		w.Returns + w.Parameter + w.Reads + w.ReadsStatic +
		w.Writes + w.WritesStatic + w.Composes + w.InnerClasses
}

// DependencyCounts are the dependency facts from one type to another.
type DependencyCounts struct {
	Invokes       int  `yaml:"invokes" json:"invokes" msgpack:"iv"`
	InvokesStatic int  `yaml:"invokes_static" json:"invokes_static" msgpack:"is"`
	Returns       int  `yaml:"returns" json:"returns" msgpack:"rt"`
	Parameters    int  `yaml:"parameters" json:"parameters" msgpack:"pa"`
	Reads         int  `yaml:"reads" json:"reads" msgpack:"rd"`
	ReadsStatic   int  `yaml:"reads_static" json:"reads_static" msgpack:"rs"`
	Writes        int  `yaml:"writes" json:"writes" msgpack:"wr"`
	WritesStatic  int  `yaml:"writes_static" json:"writes_static" msgpack:"ws"`
	Extends       bool `yaml:"extends" json:"extends" msgpack:"ex"`
	Implements    bool `yaml:"implements" json:"implements" msgpack:"im"`
	Composes      bool `yaml:"composes" json:"composes" msgpack:"co"`
	DeclaresInner bool `yaml:"declares_inner" json:"declares_inner" msgpack:"di"`
}

// TypeTotals are per-type aggregates that normalize DependencyCounts.
// External means towards or from any other type.
type TypeTotals struct {
	Methods                 int
	InvokesExternal         int
	InvokesExternalStatic   int
	ReadsExternal           int
	ReadByExternal          int
	ReadsExternalStatic     int
	ReadByExternalStatic    int
	WritesExternal          int
	WrittenByExternal       int
	WritesExternalStatic    int
	WrittenByExternalStatic int
}

// Accumulate adds an outgoing dependency to from and the matching incoming
// side to to.
func Accumulate(from, to *TypeTotals, c DependencyCounts) {
	from.InvokesExternal += c.Invokes
	from.InvokesExternalStatic += c.InvokesStatic
	from.ReadsExternal += c.Reads
	from.ReadsExternalStatic += c.ReadsStatic
	from.WritesExternal += c.Writes
	from.WritesExternalStatic += c.WritesStatic
	to.ReadByExternal += c.Reads
	to.ReadByExternalStatic += c.ReadsStatic
	to.WrittenByExternal += c.Writes
	to.WrittenByExternalStatic += c.WritesStatic
}

// CouplingScore derives the coupling between types a and b.
//
// Description:
//
//	Each dependency kind contributes a normalized score in roughly [0, 2]
//	combining both directions; the weighted mean over all kinds is the
//	coupling. Every ratio with a zero denominator contributes 0.
//
// Inputs:
//
//	ab, ba - Dependency facts from a to b and from b to a.
//	ta, tb - Totals for a and b.
//	w - Relation weights.
//
// Outputs:
//
//	float64 - Coupling, 0 when nothing connects a and b.
func CouplingScore(ab, ba DependencyCounts, ta, tb TypeTotals, w RelationWeights) float64 {
	weighted := w.Invokes*(half(ab.Invokes, ta.InvokesExternal)+half(ba.Invokes, tb.InvokesExternal)) +
		w.InvokesStatic*(half(ab.InvokesStatic, ta.InvokesExternalStatic)+half(ba.InvokesStatic, tb.InvokesExternalStatic)) +
		w.Extends*(flag(ab.Extends, 1)+flag(ba.Extends, 1)) +
		w.Implements*(flag(ab.Implements, 1)+flag(ba.Implements, 1)) +
		w.Returns*(half(ab.Returns, ta.Methods)+half(ba.Returns, tb.Methods)) +
		w.Parameter*(half(ab.Parameters, ta.Methods)+half(ba.Parameters, tb.Methods)) +
		w.Reads*(squared(ab.Reads, ta.ReadsExternal, tb.ReadByExternal)+squared(ba.Reads, tb.ReadsExternal, ta.ReadByExternal)) +
		w.ReadsStatic*(squared(ab.ReadsStatic, ta.ReadsExternalStatic, tb.ReadByExternalStatic)+squared(ba.ReadsStatic, tb.ReadsExternalStatic, ta.ReadByExternalStatic)) +
		w.Writes*(squared(ab.Writes, ta.WritesExternal, tb.WrittenByExternal)+squared(ba.Writes, tb.WritesExternal, ta.WrittenByExternal)) +
		w.WritesStatic*(squared(ab.WritesStatic, ta.WritesExternalStatic, tb.WrittenByExternalStatic)+squared(ba.WritesStatic, tb.WritesExternalStatic, ta.WrittenByExternalStatic)) +
		w.Composes*(flag(ab.Composes, 0.5)+flag(ba.Composes, 0.5)) +
		w.InnerClasses*flag(ab.DeclaresInner || ba.DeclaresInner, 1)

	return SafeDiv(weighted, w.Total())
}

// SafeDiv divides num by den, returning 0 for a zero denominator or a
// non-finite result.
func SafeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	r := num / den
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

func half(n, total int) float64 {
	return SafeDiv(float64(n), 2*float64(total))
}

func squared(n, out, in int) float64 {
	return SafeDiv(float64(n)*float64(n), 2*float64(out)*float64(in))
}

func flag(b bool, v float64) float64 {
	if b {
		return v
	}
	return 0
}
