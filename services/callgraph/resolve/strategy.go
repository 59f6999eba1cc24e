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
	"strings"

	"github.com/AleutianAI/callgraph/services/callgraph/extract"
	"github.com/AleutianAI/callgraph/services/callgraph/graph"
	"github.com/AleutianAI/callgraph/services/callgraph/symtab"
)

// Query is one call to resolve.
type Query struct {
	// Callee is the name computed by CalleeName.
	Callee string

	// CallerID is the id of the enclosing definition.
	CallerID string

	// CallerFile is the file path of the call site.
	CallerFile string

	// CallerPackage is the packageOrModule of the caller.
	CallerPackage string
}

// Resolution is a strategy's answer for a Query.
type Resolution struct {
	Target   string
	Kind     graph.EdgeKind
	Strategy string
}

// Strategy is a pure resolution step. Strategies are tried in order and the
// first one that answers wins.
type Strategy struct {
	Name    string
	Resolve func(q Query, t *symtab.Table) (Resolution, bool)
}

// Strategy names, also used as metric labels.
const (
	StrategyMethodName  = "method_name"
	StrategySameFile    = "same_file"
	StrategyShortName   = "short_name"
	StrategyConstructor = "constructor"
)

// Strategies returns the resolution order.
//
// Description:
//
//	1. method_name: a dotted callee resolves to the first inserted method
//	   with the trailing name, whatever its class.
//	2. same_file: "<file>:<callee>" is a known id.
//	3. short_name: a definition anywhere with the callee's bare name. With
//	   preferSamePackage the most recent candidate in the caller's package
//	   wins, otherwise the most recent candidate overall.
//	4. constructor: "<file>:<callee>.__init__" is a known id.
func Strategies(preferSamePackage bool) []Strategy {
	short := Strategy{Name: StrategyShortName, Resolve: shortNameLatest}
	if preferSamePackage {
		short.Resolve = shortNamePreferPackage
	}
	return []Strategy{
		{Name: StrategyMethodName, Resolve: methodName},
		{Name: StrategySameFile, Resolve: sameFile},
		short,
		{Name: StrategyConstructor, Resolve: implicitConstructor},
	}
}

func methodName(q Query, t *symtab.Table) (Resolution, bool) {
	i := strings.LastIndex(q.Callee, ".")
	if i < 0 {
		return Resolution{}, false
	}
	n, ok := t.FirstMethodNamed(q.Callee[i+1:])
	if !ok {
		return Resolution{}, false
	}
	return Resolution{Target: n.ID, Kind: graph.EdgeMethod, Strategy: StrategyMethodName}, true
}

func sameFile(q Query, t *symtab.Table) (Resolution, bool) {
	id := q.CallerFile + ":" + q.Callee
	if !t.Has(id) {
		return Resolution{}, false
	}
	return Resolution{Target: id, Kind: graph.EdgeDirect, Strategy: StrategySameFile}, true
}

func shortNameLatest(q Query, t *symtab.Table) (Resolution, bool) {
	n, ok := t.ShortNames().Latest(q.Callee)
	if !ok {
		return Resolution{}, false
	}
	return Resolution{Target: n.ID, Kind: graph.EdgeDirect, Strategy: StrategyShortName}, true
}

func shortNamePreferPackage(q Query, t *symtab.Table) (Resolution, bool) {
	n, ok := t.ShortNames().Prefer(q.Callee, q.CallerPackage)
	if !ok {
		return Resolution{}, false
	}
	return Resolution{Target: n.ID, Kind: graph.EdgeDirect, Strategy: StrategyShortName}, true
}

func implicitConstructor(q Query, t *symtab.Table) (Resolution, bool) {
	id := q.CallerFile + ":" + q.Callee + "." + extract.ConstructorName
	if !t.Has(id) {
		return Resolution{}, false
	}
	return Resolution{Target: id, Kind: graph.EdgeConstructor, Strategy: StrategyConstructor}, true
}
