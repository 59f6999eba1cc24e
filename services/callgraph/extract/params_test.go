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

	"github.com/AleutianAI/callgraph/services/callgraph/graph"
)

// firstNode extracts src and returns its first node.
func firstNode(t *testing.T, src string) *graph.Node {
	t.Helper()
	nodes := NewExtractor().Extract(context.Background(), parseSource(t, "p.py", src))
	require.NotEmpty(t, nodes)
	return nodes[0]
}

func paramNames(n *graph.Node) []string {
	names := make([]string, len(n.Parameters))
	for i, p := range n.Parameters {
		names[i] = p.Name
	}
	return names
}

func TestAnalyzeParameters_Order(t *testing.T) {
	n := firstNode(t, "def f(a, /, b, *args, c, d=1, **kw):\n    return a, b, c, d, args, kw\n")

	assert.Equal(t, []string{"a", "b", "c", "d", "args", "kw"}, paramNames(n))
	for i, p := range n.Parameters {
		assert.Equal(t, i, p.Position)
		assert.True(t, p.IsUsed, p.Name)
	}
	assert.Empty(t, n.UnusedParameters)
}

func TestAnalyzeParameters_BareStarAndTypes(t *testing.T) {
	src := "def f(x: Dict[str,  int], *, y: int = 3, z=None, **opts: Any):\n    pass\n"
	n := firstNode(t, src)

	require.Len(t, n.Parameters, 4)
	assert.Equal(t, graph.Parameter{Name: "x", Type: "Dict[str, int]", Position: 0}, n.Parameters[0])
	assert.Equal(t, graph.Parameter{Name: "y", Type: "int", Position: 1}, n.Parameters[1])
	assert.Equal(t, graph.Parameter{Name: "z", Position: 2}, n.Parameters[2])
	assert.Equal(t, graph.Parameter{Name: "opts", Type: "Any", Position: 3}, n.Parameters[3])
	assert.Equal(t, []string{"x", "y", "z", "opts"}, n.UnusedParameters)
}

func TestAnalyzeParameters_TypedVarargs(t *testing.T) {
	n := firstNode(t, "def f(*items: str, key):\n    return key\n")

	assert.Equal(t, []string{"key", "items"}, paramNames(n))
	assert.Equal(t, "str", n.Parameters[1].Type)
	assert.Equal(t, []string{"items"}, n.UnusedParameters)
}

func TestAnalyzeParameters_AutoUsed(t *testing.T) {
	src := `class Repo:
    def find(self, key):
        pass

    @classmethod
    def build(cls, _conn):
        pass

    @staticmethod
    def helper(self, value):
        pass

    def other(me, self):
        pass

def free(self, _ignored):
    pass
`
	byID := nodesByID(NewExtractor().Extract(context.Background(), parseSource(t, "r.py", src)))

	tests := []struct {
		id     string
		unused []string
	}{
		{"r.py:Repo.find", []string{"key"}},
		{"r.py:Repo.build", []string{}},
		{"r.py:Repo.helper", []string{"value"}},
		{"r.py:Repo.other", []string{"me", "self"}},
		{"r.py:free", []string{"self"}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			n := byID[tt.id]
			require.NotNil(t, n)
			assert.Equal(t, tt.unused, n.UnusedParameters)
			for _, p := range n.Parameters {
				if strings.HasPrefix(p.Name, "_") {
					assert.True(t, p.IsUsed, p.Name)
				}
			}
		})
	}
}

func TestAnalyzeParameters_NestedFunctionReceiverNotAuto(t *testing.T) {
	src := `class A:
    def outer(self):
        def inner(self):
            pass
        return inner
`
	byID := nodesByID(NewExtractor().Extract(context.Background(), parseSource(t, "a.py", src)))
	assert.Empty(t, byID["a.py:A.outer"].UnusedParameters)
	assert.Equal(t, []string{"self"}, byID["a.py:inner"].UnusedParameters)
}

func TestAnalyzeParameters_ReadReferences(t *testing.T) {
	tests := []struct {
		name string
		body string
		used bool
	}{
		{"plain read", "return a", true},
		{"assigned only", "a = 1", false},
		{"augmented only", "a += 1", false},
		{"annotated assignment", "a: int = 1", false},
		{"tuple target", "a, b = 1, 2", false},
		{"starred target", "x, *a = items", false},
		{"assigned from itself", "a = a + 1", true},
		{"attribute name only", "return obj.a", false},
		{"attribute object", "return a.value", true},
		{"attribute store keeps object read", "a.value = 1", true},
		{"subscript store keeps object read", "a[0] = 1", true},
		{"keyword argument name", "g(a=1)", false},
		{"keyword argument value", "g(x=a)", true},
		{"splat argument", "g(*a)", true},
		{"fstring", `return f"value={a}"`, true},
		{"walrus target", "if (a := 3):\n        pass", false},
		{"walrus value", "if (b := a):\n        pass", true},
		{"for target", "for a in range(3):\n        pass", false},
		{"for iterable", "for x in a:\n        pass", true},
		{"comprehension target only", "return [1 for a in xs]", false},
		{"comprehension element", "return [a for a in xs]", true},
		{"with alias", "with open(p) as a:\n        pass", false},
		{"except alias", "try:\n        pass\n    except Exception as a:\n        pass", false},
		{"del target", "del a", false},
		{"global", "global a", false},
		{"import alias", "import os as a", false},
		{"nested def parameter", "def inner(a):\n        pass", false},
		{"nested def read", "def inner():\n        return a\n    return inner", true},
		{"nested def default", "def inner(x=a):\n        return x", true},
		{"lambda parameter", "return lambda a: 1", false},
		{"lambda body", "return lambda x: a", true},
		{"nested class base", "class C(a):\n        pass", true},
		{"nested class name", "class a:\n        pass", false},
		{"string literal", `return "a"`, false},
		{"comment", "# a\n    pass", false},
		{"match subject", "match a:\n        case _:\n            pass", true},
		{"capture pattern", "match x:\n        case a:\n            pass", false},
		{"keyword pattern name", "match x:\n        case Point(a=1):\n            pass", false},
		{"class pattern class", "match x:\n        case a():\n            pass", true},
		{"value pattern", "match x:\n        case a.RED:\n            pass", true},
		{"case guard", "match x:\n        case 1 if a:\n            pass", true},
		{"case body", "match x:\n        case 1:\n            return a", true},
		{"as pattern alias", "match x:\n        case [1] as a:\n            pass", false},
		{"star capture", "match x:\n        case [1, *a]:\n            pass", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "def f(a):\n    " + tt.body + "\n"
			n := firstNode(t, src)
			require.Equal(t, "a", n.Parameters[0].Name)
			assert.Equal(t, tt.used, n.Parameters[0].IsUsed)
			if tt.used {
				assert.Empty(t, n.UnusedParameters)
			} else {
				assert.Equal(t, []string{"a"}, n.UnusedParameters)
			}
		})
	}
}

func TestAnalyzeParameters_NoParameters(t *testing.T) {
	n := firstNode(t, "def f():\n    pass\n")
	assert.NotNil(t, n.Parameters)
	assert.Empty(t, n.Parameters)
	assert.NotNil(t, n.UnusedParameters)
}

func TestAnalyzeParameters_CustomReceivers(t *testing.T) {
	src := "class A:\n    def m(this, x):\n        return x\n"
	e := NewExtractor(WithReceiverNames([]string{"this"}))
	nodes := e.Extract(context.Background(), parseSource(t, "a.py", src))
	require.Len(t, nodes, 1)
	assert.Empty(t, nodes[0].UnusedParameters)
}
