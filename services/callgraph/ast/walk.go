// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Walk visits root and its descendants in pre-order, left to right.
//
// Description:
//
//	Uses an explicit stack, so deeply nested sources cannot overflow the
//	goroutine stack. visit returns false to skip a node's children.
func Walk(root *sitter.Node, visit func(n *sitter.Node) bool) {
	if root == nil {
		return
	}
	stack := make([]*sitter.Node, 0, 64)
	stack = append(stack, root)

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !visit(n) {
			continue
		}
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			if child := n.Child(i); child != nil {
				stack = append(stack, child)
			}
		}
	}
}

// Unparen strips any number of enclosing parenthesized_expression nodes.
func Unparen(n *sitter.Node) *sitter.Node {
	for n != nil && n.Type() == "parenthesized_expression" {
		inner := n.NamedChild(0)
		if inner == nil {
			return n
		}
		n = inner
	}
	return n
}

// Line returns the 1-based line of a point.
func Line(p sitter.Point) int {
	return int(p.Row) + 1
}

// Column returns the 1-based byte column of a point.
func Column(p sitter.Point) int {
	return int(p.Column) + 1
}

// EndLine returns the 1-based inclusive last line of code spanned by n.
//
// Comments trailing the last statement are not counted; tree-sitter nests
// them inside the enclosing block. Tree-sitter also places the end point
// after a trailing newline on the next row at column 0; that row holds no
// part of n.
func EndLine(n *sitter.Node) int {
	end := codeEnd(n)
	if end.Column == 0 && end.Row > n.StartPoint().Row {
		return int(end.Row)
	}
	return int(end.Row) + 1
}

// codeEnd returns the end point of the last token under n that is not a
// comment.
func codeEnd(n *sitter.Node) sitter.Point {
	for {
		var last *sitter.Node
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			if c := n.Child(i); c != nil && c.Type() != "comment" {
				last = c
				break
			}
		}
		if last == nil {
			return n.EndPoint()
		}
		n = last
	}
}
