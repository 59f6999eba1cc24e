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

// Assembler collects the output of both analysis passes into a Graph.
//
// Description:
//
//	Nodes are appended during pass 1 and edges during pass 2. Build returns
//	them in the order they were added; no sorting is applied, so output
//	order is a function of input file order alone.
//
// Thread Safety:
//
//	Not safe for concurrent use. An Assembler belongs to a single run.
type Assembler struct {
	nodes []*Node
	edges []*Edge
	built bool
}

// NewAssembler creates an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{
		nodes: make([]*Node, 0, 64),
		edges: make([]*Edge, 0, 128),
	}
}

// AddNodes appends the nodes of one file.
func (a *Assembler) AddNodes(nodes ...*Node) {
	if a.built {
		return
	}
	a.nodes = append(a.nodes, nodes...)
}

// AddEdges appends the edges of one file.
func (a *Assembler) AddEdges(edges ...*Edge) {
	if a.built {
		return
	}
	a.edges = append(a.edges, edges...)
}

// Build returns the assembled graph. Further Add calls are ignored.
func (a *Assembler) Build() *Graph {
	a.built = true
	g := &Graph{Nodes: a.nodes, Edges: a.edges}
	g.normalize()
	return g
}
