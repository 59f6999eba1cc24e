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
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/callgraph/services/callgraph/ast"
	"github.com/AleutianAI/callgraph/services/callgraph/graph"
)

func parseSource(t *testing.T, path, src string) *ast.ParsedFile {
	t.Helper()
	f, err := ast.NewPythonParser().Parse(context.Background(), []byte(src), path)
	require.NoError(t, err)
	t.Cleanup(f.Close)
	return f
}

func nodesByID(nodes []*graph.Node) map[string]*graph.Node {
	m := make(map[string]*graph.Node, len(nodes))
	for _, n := range nodes {
		m[n.ID] = n
	}
	return m
}

const shapesSource = `def top():
    pass

class Shape:
    def __init__(self, sides):
        self.sides = sides

    @staticmethod
    def unit():
        return Shape(1)

    async def area(self):
        def helper():
            return 0
        return helper()

    class Meta:
        def describe(cls):
            return "meta"

def __init__():
    pass
`

func TestExtract_KindsAndQualifiedNames(t *testing.T) {
	f := parseSource(t, "geo/shapes.py", shapesSource)
	nodes := NewExtractor().Extract(context.Background(), f)

	var ids []string
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{
		"geo/shapes.py:top",
		"geo/shapes.py:Shape.__init__",
		"geo/shapes.py:Shape.unit",
		"geo/shapes.py:Shape.area",
		"geo/shapes.py:helper",
		"geo/shapes.py:Meta.describe",
		"geo/shapes.py:__init__",
	}, ids)

	byID := nodesByID(nodes)
	tests := []struct {
		id        string
		kind      graph.NodeKind
		qualified string
	}{
		{"geo/shapes.py:top", graph.KindFunction, "top"},
		{"geo/shapes.py:Shape.__init__", graph.KindConstructor, "Shape.__init__"},
		{"geo/shapes.py:Shape.unit", graph.KindMethod, "Shape.unit"},
		{"geo/shapes.py:Shape.area", graph.KindMethod, "Shape.area"},
		{"geo/shapes.py:helper", graph.KindFunction, "helper"},
		{"geo/shapes.py:Meta.describe", graph.KindMethod, "Meta.describe"},
		{"geo/shapes.py:__init__", graph.KindFunction, "__init__"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			n := byID[tt.id]
			require.NotNil(t, n)
			assert.Equal(t, tt.kind, n.Kind)
			assert.Equal(t, tt.qualified, n.QualifiedName)
			assert.Equal(t, "geo", n.PackageOrModule)
			assert.Equal(t, graph.LanguagePython, n.Language)
			assert.Equal(t, graph.DefaultStatus, n.Status)
			assert.Equal(t, graph.DefaultColor, n.Color)
		})
	}
}

func TestExtract_Lines(t *testing.T) {
	src := "import os\n\n@decorate\ndef f(a):\n    x = a\n    return x\n\ndef g(): pass\n"
	nodes := NewExtractor().Extract(context.Background(), parseSource(t, "m.py", src))
	require.Len(t, nodes, 2)

	assert.Equal(t, 4, nodes[0].StartLine)
	assert.Equal(t, 6, nodes[0].EndLine)
	assert.Equal(t, 3, nodes[0].LinesOfCode)

	assert.Equal(t, 8, nodes[1].StartLine)
	assert.Equal(t, 8, nodes[1].EndLine)
	assert.Equal(t, 1, nodes[1].LinesOfCode)
}

func TestExtract_Lines_TrailingComments(t *testing.T) {
	src := "def c(a):\n    return a\n    # trailing\n\n\ndef d():\n    call(\n        1,\n    )  # closes\n    # after\n"
	nodes := NewExtractor().Extract(context.Background(), parseSource(t, "comment.py", src))
	require.Len(t, nodes, 2)

	assert.Equal(t, 1, nodes[0].StartLine)
	assert.Equal(t, 2, nodes[0].EndLine)
	assert.Equal(t, 2, nodes[0].LinesOfCode)

	assert.Equal(t, 6, nodes[1].StartLine)
	assert.Equal(t, 9, nodes[1].EndLine, "closing paren counts, comments do not")
	assert.Equal(t, 4, nodes[1].LinesOfCode)
}

func TestExtract_Decorators(t *testing.T) {
	src := `@app.route("/users")
def list_users():
    pass

@a.b.cached
@property
def value():
    pass

@celery.task(bind=True)
def send(self):
    pass

@registry[0]
@(lambda fn: fn)
def weird():
    pass

@get_config
def configured():
    pass

def plain():
    pass
`
	byID := nodesByID(NewExtractor().Extract(context.Background(), parseSource(t, "api.py", src)))

	tests := []struct {
		id         string
		decorators []string
		entry      bool
	}{
		{"api.py:list_users", []string{"app.route"}, true},
		{"api.py:value", []string{"cached", "property"}, false},
		{"api.py:send", []string{"celery.task"}, true},
		{"api.py:weird", []string{}, false},
		{"api.py:configured", []string{"get_config"}, true},
		{"api.py:plain", []string{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			n := byID[tt.id]
			require.NotNil(t, n)
			assert.Equal(t, tt.decorators, n.Decorators)
			assert.Equal(t, tt.entry, n.IsEntryPoint)
		})
	}
}

func TestExtract_CustomEntryKeywords(t *testing.T) {
	src := "@app.route('/')\ndef a():\n    pass\n\n@job\ndef b():\n    pass\n"
	e := NewExtractor(WithEntryKeywords([]string{"job"}))
	byID := nodesByID(e.Extract(context.Background(), parseSource(t, "w.py", src)))

	assert.False(t, byID["w.py:a"].IsEntryPoint)
	assert.True(t, byID["w.py:b"].IsEntryPoint)
}

func TestVisibilityOf(t *testing.T) {
	tests := []struct {
		name string
		want graph.Visibility
	}{
		{"handle", graph.VisibilityExported},
		{"Handle", graph.VisibilityExported},
		{"_helper", graph.VisibilityModule},
		{"__init__", graph.VisibilityModule},
		{"__secret", graph.VisibilityPrivate},
		{"__almost_", graph.VisibilityPrivate},
		{"_", graph.VisibilityModule},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VisibilityOf(tt.name), tt.name)
	}
}

func TestPackageOf(t *testing.T) {
	assert.Equal(t, ".", packageOf("main.py"))
	assert.Equal(t, "src", packageOf("src/handler.py"))
	assert.Equal(t, "a/b", packageOf("a/b/c.py"))
	assert.Equal(t, "a/b", packageOf(`a\b\c.py`))
}

func TestDefinitions_BodiesMatchNodes(t *testing.T) {
	f := parseSource(t, "m.py", "def f():\n    g()\n\ndef g():\n    return 1\n")
	defs := NewExtractor().Definitions(context.Background(), f)
	require.Len(t, defs, 2)

	for _, d := range defs {
		require.NotNil(t, d.Body)
		assert.Equal(t, "block", d.Body.Type())
	}
	assert.Equal(t, "g()", strings.TrimSpace(f.Text(defs[0].Body)))
}

func TestExtract_NoDefinitions(t *testing.T) {
	nodes := NewExtractor().Extract(context.Background(), parseSource(t, "c.py", "X = 1\nprint(X)\n"))
	assert.NotNil(t, nodes)
	assert.Empty(t, nodes)
}
