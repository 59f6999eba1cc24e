// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extract

import (
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/callgraph/services/callgraph/ast"
	"github.com/AleutianAI/callgraph/services/callgraph/graph"
)

// DefaultReceiverNames are the conventional names of a method's first parameter.
var DefaultReceiverNames = []string{"self", "cls"}

// formal is one declared parameter before usage analysis.
type formal struct {
	name string
	typ  string
}

// signature groups formals by kind, in declaration order within each group.
type signature struct {
	positionalOnly []formal
	regular        []formal
	keywordOnly    []formal
	vararg         *formal
	kwarg          *formal
}

// ordered returns every formal in position order: positional-only, regular,
// keyword-only, *args, **kwargs.
func (s *signature) ordered() []formal {
	out := make([]formal, 0, len(s.positionalOnly)+len(s.regular)+len(s.keywordOnly)+2)
	out = append(out, s.positionalOnly...)
	out = append(out, s.regular...)
	out = append(out, s.keywordOnly...)
	if s.vararg != nil {
		out = append(out, *s.vararg)
	}
	if s.kwarg != nil {
		out = append(out, *s.kwarg)
	}
	return out
}

// readSignature collects the formals of a parameters or lambda_parameters node.
func readSignature(f *ast.ParsedFile, params *sitter.Node) *signature {
	sig := &signature{}
	if params == nil {
		return sig
	}

	afterStar := false
	add := func(p formal) {
		if afterStar {
			sig.keywordOnly = append(sig.keywordOnly, p)
		} else {
			sig.regular = append(sig.regular, p)
		}
	}

	for i := 0; i < int(params.NamedChildCount()); i++ {
		child := params.NamedChild(i)
		switch child.Type() {
		case "identifier":
			add(formal{name: f.Text(child)})

		case "default_parameter":
			if name := child.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
				add(formal{name: f.Text(name)})
			}

		case "typed_default_parameter":
			add(formal{
				name: f.Text(child.ChildByFieldName("name")),
				typ:  annotation(f, child.ChildByFieldName("type")),
			})

		case "typed_parameter":
			typ := annotation(f, child.ChildByFieldName("type"))
			inner := child.NamedChild(0)
			if inner == nil {
				continue
			}
			switch inner.Type() {
			case "identifier":
				add(formal{name: f.Text(inner), typ: typ})
			case "list_splat_pattern":
				sig.vararg = &formal{name: splatName(f, inner), typ: typ}
				afterStar = true
			case "dictionary_splat_pattern":
				sig.kwarg = &formal{name: splatName(f, inner), typ: typ}
			}

		case "list_splat_pattern":
			// A bare "*" is a keyword-only marker in some grammar versions.
			if name := splatName(f, child); name != "" {
				sig.vararg = &formal{name: name}
			}
			afterStar = true

		case "dictionary_splat_pattern":
			sig.kwarg = &formal{name: splatName(f, child)}

		case "keyword_separator":
			afterStar = true

		case "positional_separator":
			sig.positionalOnly = append(sig.positionalOnly, sig.regular...)
			sig.regular = nil
		}
	}
	return sig
}

// splatName returns the identifier inside *name or **name.
func splatName(f *ast.ParsedFile, splat *sitter.Node) string {
	for i := 0; i < int(splat.NamedChildCount()); i++ {
		if c := splat.NamedChild(i); c.Type() == "identifier" {
			return f.Text(c)
		}
	}
	return ""
}

// annotation renders a type annotation with whitespace runs collapsed.
func annotation(f *ast.ParsedFile, typ *sitter.Node) string {
	if typ == nil {
		return ""
	}
	return strings.Join(strings.Fields(f.Text(typ)), " ")
}

// AnalyzeParameters returns a definition's parameters and the names of the
// ones its body never reads.
//
// Description:
//
//	A parameter is used when its name starts with "_", when it is the first
//	parameter of a method and is a receiver name, or when its name appears
//	as a read reference anywhere in the body. Variadic parameters follow
//	the same rules.
//
// Inputs:
//   - f: The file that owns def.
//   - def: A function_definition node.
//   - isMethod: Whether def is a class member (methods and constructors).
//   - receivers: Names treated as the conventional first method parameter.
//
// Outputs:
//   - []graph.Parameter: All parameters with positions. Never nil.
//   - []string: Unused parameter names in position order. Never nil.
func AnalyzeParameters(f *ast.ParsedFile, def *sitter.Node, isMethod bool, receivers []string) ([]graph.Parameter, []string) {
	formals := readSignature(f, def.ChildByFieldName("parameters")).ordered()

	params := make([]graph.Parameter, 0, len(formals))
	unused := make([]string, 0)
	if len(formals) == 0 {
		return params, unused
	}

	reads := readNames(f, def.ChildByFieldName("body"))

	for i, p := range formals {
		used := false
		switch {
		case i == 0 && isMethod && slices.Contains(receivers, p.name):
			used = true
		case strings.HasPrefix(p.name, "_"):
			used = true
		default:
			_, used = reads[p.name]
		}

		params = append(params, graph.Parameter{
			Name:     p.name,
			Type:     p.typ,
			IsUsed:   used,
			Position: i,
		})
		if !used {
			unused = append(unused, p.name)
		}
	}
	return params, unused
}
