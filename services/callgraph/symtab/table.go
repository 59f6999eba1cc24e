// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package symtab indexes the nodes of one analysis run for call resolution.
package symtab

import (
	"github.com/AleutianAI/callgraph/services/callgraph/graph"
)

// Table is the global symbol table of a run.
//
// Description:
//
//	The id index is authoritative: the first node stored under an id is
//	kept and later nodes with the same id are counted as duplicates. The
//	short-name index is a best-effort hint that keeps every candidate.
//	Neither index shrinks during a run.
//
// Thread Safety:
//
//	Not safe for concurrent use. The table is written during pass 1 and
//	only read during pass 2.
type Table struct {
	byID       map[string]*graph.Node
	ordered    []*graph.Node
	short      *ShortNameIndex
	duplicates int
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		byID:    make(map[string]*graph.Node),
		ordered: make([]*graph.Node, 0, 64),
		short:   NewShortNameIndex(),
	}
}

// Add inserts a node.
//
// Outputs:
//
//	bool - False if a node with the same id was already present. The node
//	       is still recorded in insertion order and in the short-name index.
func (t *Table) Add(n *graph.Node) bool {
	if n == nil {
		return false
	}
	t.ordered = append(t.ordered, n)
	t.short.add(n)

	if _, exists := t.byID[n.ID]; exists {
		t.duplicates++
		return false
	}
	t.byID[n.ID] = n
	return true
}

// ByID returns the node stored under id.
func (t *Table) ByID(id string) (*graph.Node, bool) {
	n, ok := t.byID[id]
	return n, ok
}

// Has reports whether id is present.
func (t *Table) Has(id string) bool {
	_, ok := t.byID[id]
	return ok
}

// ShortNames returns the short-name index.
func (t *Table) ShortNames() *ShortNameIndex {
	return t.short
}

// Nodes returns every inserted node in insertion order.
// The returned slice must not be modified.
func (t *Table) Nodes() []*graph.Node {
	return t.ordered
}

// FirstMethodNamed returns the first inserted node of kind method whose bare
// name is name.
func (t *Table) FirstMethodNamed(name string) (*graph.Node, bool) {
	for _, n := range t.ordered {
		if n.Kind == graph.KindMethod && n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// Len returns the number of distinct ids.
func (t *Table) Len() int {
	return len(t.byID)
}

// Duplicates returns how many inserts collided with an existing id.
func (t *Table) Duplicates() int {
	return t.duplicates
}
