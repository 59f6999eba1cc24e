// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph holds the call-graph data model produced by an analysis run:
// definition nodes, resolved call edges, and the assembled graph together
// with its persistence helpers.
package graph

// LanguagePython is the language tag carried by every node.
const LanguagePython = "python"

// Liveness defaults. The analyzer never changes these; a downstream pass does.
const (
	DefaultStatus = "dead"
	DefaultColor  = "red"
)

// RootPackage is the packageOrModule value for files at the project root.
const RootPackage = "."

// NodeKind classifies a function-like definition.
type NodeKind string

const (
	KindFunction    NodeKind = "function"
	KindMethod      NodeKind = "method"
	KindConstructor NodeKind = "constructor"
)

// Visibility is derived from the definition name's prefix convention.
type Visibility string

const (
	VisibilityExported Visibility = "exported"
	VisibilityModule   Visibility = "module"
	VisibilityPrivate  Visibility = "private"
)

// EdgeKind describes how a call was resolved.
type EdgeKind string

const (
	EdgeDirect      EdgeKind = "direct"
	EdgeMethod      EdgeKind = "method"
	EdgeConstructor EdgeKind = "constructor"
)

// Parameter is one formal parameter of a definition.
type Parameter struct {
	// Name is the parameter name without any star prefix.
	Name string `json:"name"`

	// Type is the annotation source text. Empty when the parameter has none.
	Type string `json:"type,omitempty"`

	// IsUsed reports whether the body reads the parameter.
	IsUsed bool `json:"isUsed"`

	// Position is the 0-based index across all formal parameters.
	Position int `json:"position"`
}

// Node describes one function, method, or constructor definition.
//
// Description:
//
//	Nodes are created once by the definition extractor and never mutated
//	afterwards. ID is "<filePath>:<qualifiedName>" and is unique per file.
type Node struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	QualifiedName    string      `json:"qualifiedName"`
	FilePath         string      `json:"filePath"`
	StartLine        int         `json:"startLine"`
	EndLine          int         `json:"endLine"`
	Language         string      `json:"language"`
	Kind             NodeKind    `json:"kind"`
	Visibility       Visibility  `json:"visibility"`
	IsEntryPoint     bool        `json:"isEntryPoint"`
	Parameters       []Parameter `json:"parameters"`
	UnusedParameters []string    `json:"unusedParameters"`
	PackageOrModule  string      `json:"packageOrModule"`
	LinesOfCode      int         `json:"linesOfCode"`
	Status           string      `json:"status"`
	Color            string      `json:"color"`
	Decorators       []string    `json:"decorators"`
}

// CallSite locates a call expression. Line and Column are 1-based.
type CallSite struct {
	FilePath string `json:"filePath"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// Edge is a resolved call from Source to Target.
type Edge struct {
	Source     string   `json:"source"`
	Target     string   `json:"target"`
	CallSite   CallSite `json:"callSite"`
	Kind       EdgeKind `json:"kind"`
	IsResolved bool     `json:"isResolved"`
}

// Graph is the response of one analysis run.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.Edges)
}

// normalize replaces nil slices so that they encode as [] rather than null.
func (g *Graph) normalize() {
	if g.Nodes == nil {
		g.Nodes = make([]*Node, 0)
	}
	if g.Edges == nil {
		g.Edges = make([]*Edge, 0)
	}
	for _, n := range g.Nodes {
		if n.Parameters == nil {
			n.Parameters = make([]Parameter, 0)
		}
		if n.UnusedParameters == nil {
			n.UnusedParameters = make([]string, 0)
		}
		if n.Decorators == nil {
			n.Decorators = make([]string, 0)
		}
	}
}
