// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolve

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/callgraph/services/callgraph/ast"
)

// CalleeName names the target of a call node.
//
// Description:
//
//	Python call node structure:
//	  call { function: <expr>, arguments: argument_list }
//
//	  name(...)          -> "name"
//	  recv.method(...)   -> "recv.method"
//	  f().method(...)    -> "method"   (receiver of a chained call is dropped)
//	  a.b.method(...)    -> "method"
//	  anything else      -> not named (subscripts, lambdas, nested calls)
//
// Outputs:
//
//	string - The callee name.
//	bool - False when the callee cannot be named; the call is ignored.
func CalleeName(f *ast.ParsedFile, call *sitter.Node) (string, bool) {
	if call == nil || call.Type() != "call" {
		return "", false
	}
	fn := ast.Unparen(call.ChildByFieldName("function"))
	if fn == nil {
		return "", false
	}

	switch fn.Type() {
	case "identifier":
		return f.Text(fn), true

	case "attribute":
		attr := f.Text(fn.ChildByFieldName("attribute"))
		if attr == "" {
			return "", false
		}
		obj := ast.Unparen(fn.ChildByFieldName("object"))
		if obj != nil && obj.Type() == "identifier" {
			return f.Text(obj) + "." + attr, true
		}
		return attr, true
	}
	return "", false
}
