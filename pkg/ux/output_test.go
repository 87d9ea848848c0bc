// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeStyled, "Plain": ModePlain, " machine ": ModeMachine} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("loud")
	assert.Error(t, err)
}

func TestNewPrinter_DowngradesNonTerminal(t *testing.T) {
	p := NewPrinter(&bytes.Buffer{}, ModeStyled)
	assert.Equal(t, ModePlain, p.Mode())

	p = NewPrinter(&bytes.Buffer{}, ModeMachine)
	assert.Equal(t, ModeMachine, p.Mode())
}

func TestPrinter_Plain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, ModePlain)

	p.Title("Decomposition")
	p.Success("done")
	p.Warning("slow")
	p.Error("failed")
	p.Fields([]Field{{"MoJo", "1"}, {"MoJoFM", "75"}})
	p.Muted("hint")

	assert.Equal(t, "Decomposition\n"+
		"✓ done\n"+
		"⚠ slow\n"+
		"✗ failed\n"+
		"  MoJo    1\n"+
		"  MoJoFM  75\n"+
		"hint\n", buf.String())
}

func TestPrinter_Machine(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, ModeMachine)

	p.Title("ignored")
	p.Muted("ignored")
	p.Success("done")
	p.Error("failed")
	p.Fields([]Field{{"mojo", "1"}})
	p.Box("quality", "a\nb")

	assert.Equal(t, "OK: done\nERROR: failed\nmojo\t1\nquality: a b\n", buf.String())
}

func TestPrinter_Tree(t *testing.T) {
	root := &Node{
		Label:  "COH0L1#0",
		Detail: "(order payment)",
		Children: []*Node{
			{Label: "COH0L0#0", Children: []*Node{{Label: "OrderService"}, {Label: "OrderMapper"}}},
			{Label: "PaymentLedger", Detail: "shop.payment"},
		},
	}
	assert.Equal(t, 5, root.Len())

	var buf bytes.Buffer
	NewPrinter(&buf, ModePlain).Tree(root)
	assert.Equal(t, "COH0L1#0 (order payment)\n"+
		"├── COH0L0#0\n"+
		"│   ├── OrderService\n"+
		"│   └── OrderMapper\n"+
		"└── PaymentLedger shop.payment\n", buf.String())

	buf.Reset()
	NewPrinter(&buf, ModeMachine).Tree(root)
	assert.Equal(t, "0\tCOH0L1#0\t(order payment)\n"+
		"1\tCOH0L0#0\t\n"+
		"2\tOrderService\t\n"+
		"2\tOrderMapper\t\n"+
		"1\tPaymentLedger\tshop.payment\n", buf.String())

	buf.Reset()
	NewPrinter(&buf, ModePlain).Tree(nil)
	assert.Empty(t, buf.String())
}
