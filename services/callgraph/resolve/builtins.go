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

// DefaultBuiltins are callee names never turned into edges. Matching is on
// the full callee name, so "self.print" is not skipped.
var DefaultBuiltins = []string{
	"print", "len", "range", "str", "int", "float", "bool", "list", "dict",
	"set", "tuple", "type", "isinstance", "issubclass", "hasattr", "getattr",
	"setattr", "delattr", "id", "hash", "repr", "sorted", "reversed",
	"enumerate", "zip", "map", "filter", "any", "all", "min", "max", "sum",
	"abs", "round", "input", "open", "super", "property", "staticmethod",
	"classmethod",
	"ValueError", "TypeError", "KeyError", "IndexError", "RuntimeError",
	"Exception", "NotImplementedError", "AttributeError", "OSError", "IOError",
	"StopIteration",
	"next", "iter", "callable", "vars", "dir", "globals", "locals", "exec",
	"eval", "compile", "format", "chr", "ord", "hex", "oct", "bin", "pow",
	"divmod", "complex", "bytes", "bytearray", "memoryview", "frozenset",
	"object", "breakpoint",
}

// Denylist is a set of callee names to skip.
type Denylist map[string]struct{}

// NewDenylist builds a denylist from any number of name lists.
func NewDenylist(lists ...[]string) Denylist {
	d := make(Denylist)
	for _, list := range lists {
		for _, name := range list {
			if name != "" {
				d[name] = struct{}{}
			}
		}
	}
	return d
}

// Contains reports whether callee is denied.
func (d Denylist) Contains(callee string) bool {
	_, ok := d[callee]
	return ok
}
