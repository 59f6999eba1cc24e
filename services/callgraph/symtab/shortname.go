// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package symtab

import (
	"github.com/AleutianAI/callgraph/services/callgraph/graph"
)

// ShortNameIndex maps a bare definition name to every node declaring it,
// oldest first.
//
// Description:
//
//	Names are not path qualified, so unrelated definitions collide here.
//	Callers pick among candidates with Latest or Prefer; the index itself
//	never discards one.
type ShortNameIndex struct {
	candidates map[string][]*graph.Node
}

// NewShortNameIndex creates an empty index.
func NewShortNameIndex() *ShortNameIndex {
	return &ShortNameIndex{candidates: make(map[string][]*graph.Node)}
}

func (s *ShortNameIndex) add(n *graph.Node) {
	s.candidates[n.Name] = append(s.candidates[n.Name], n)
}

// Candidates returns all nodes named name in insertion order.
// The returned slice must not be modified.
func (s *ShortNameIndex) Candidates(name string) []*graph.Node {
	return s.candidates[name]
}

// Latest returns the most recently inserted node named name.
func (s *ShortNameIndex) Latest(name string) (*graph.Node, bool) {
	c := s.candidates[name]
	if len(c) == 0 {
		return nil, false
	}
	return c[len(c)-1], true
}

// Prefer returns the most recent candidate declared in pkg, falling back to
// the most recent candidate overall.
func (s *ShortNameIndex) Prefer(name, pkg string) (*graph.Node, bool) {
	c := s.candidates[name]
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].PackageOrModule == pkg {
			return c[i], true
		}
	}
	return s.Latest(name)
}

// Ambiguous reports whether more than one node shares name.
func (s *ShortNameIndex) Ambiguous(name string) bool {
	return len(s.Candidates(name)) > 1
}
