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
	"fmt"
	"strings"
)

// Node is one entry of a printed tree.
type Node struct {
	Label    string
	Detail   string
	Children []*Node
}

// Len returns the number of nodes in the subtree rooted at n.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += c.Len()
	}
	return total
}

// Tree prints root and its descendants with box-drawing connectors.
// Machine mode writes one "depth<TAB>label<TAB>detail" line per node.
func (p *Printer) Tree(root *Node) {
	if root == nil {
		return
	}
	if p.mode == ModeMachine {
		p.machineTree(root, 0)
		return
	}
	fmt.Fprintln(p.w, p.nodeLine(root, true))
	p.branches(root.Children, "")
}

func (p *Printer) branches(children []*Node, prefix string) {
	for i, c := range children {
		last := i == len(children)-1
		connector, indent := "├── ", "│   "
		if last {
			connector, indent = "└── ", "    "
		}
		fmt.Fprintln(p.w, p.render(p.styles.Muted, prefix+connector)+p.nodeLine(c, len(c.Children) > 0))
		p.branches(c.Children, prefix+indent)
	}
}

func (p *Printer) nodeLine(n *Node, inner bool) string {
	label := n.Label
	if inner {
		label = p.render(p.styles.Title, label)
	}
	if n.Detail == "" {
		return label
	}
	return label + " " + p.render(p.styles.Muted, n.Detail)
}

func (p *Printer) machineTree(n *Node, depth int) {
	fmt.Fprintf(p.w, "%d\t%s\t%s\n", depth, n.Label, strings.TrimSpace(n.Detail))
	for _, c := range n.Children {
		p.machineTree(c, depth+1)
	}
}
