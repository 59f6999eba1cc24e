// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"main.py":          "def main():\n    pass\n",
		"a.gen.py":         "",
		"notes.txt":        "",
		".gitignore":       "build/\n*.gen.py\n",
		"build/out.py":     "",
		"pkg/util.py":      "",
		"pkg/secret.py":    "",
		"pkg/.gitignore":   "secret.py\n",
		"sub/deep/mod.py":  "",
		".venv/lib/x.py":   "",
		"other/secret.py":  "",
		"pkg/inner/gen.py": "",
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func TestDiscover(t *testing.T) {
	root := makeTree(t)
	ctx := context.Background()

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "gitignore and excludes",
			opts: Options{
				Include:          []string{"**/*.py"},
				Exclude:          []string{"**/.venv/**"},
				RespectGitignore: true,
			},
			want: []string{"main.py", "other/secret.py", "pkg/inner/gen.py", "pkg/util.py", "sub/deep/mod.py"},
		},
		{
			name: "gitignore off",
			opts: Options{
				Include: []string{"**/*.py"},
				Exclude: []string{"**/.venv/**"},
			},
			want: []string{
				"a.gen.py", "build/out.py", "main.py", "other/secret.py",
				"pkg/inner/gen.py", "pkg/secret.py", "pkg/util.py", "sub/deep/mod.py",
			},
		},
		{
			name: "root only",
			opts: Options{Include: []string{"*.py"}, RespectGitignore: true},
			want: []string{"main.py"},
		},
		{
			name: "exclude prunes a package",
			opts: Options{Include: []string{"**/*.py"}, Exclude: []string{"**/.venv/**", "pkg/**"}, RespectGitignore: true},
			want: []string{"main.py", "other/secret.py", "sub/deep/mod.py"},
		},
		{
			name: "no include selects nothing",
			opts: Options{},
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Discover(ctx, root, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiscover_DefaultOptions(t *testing.T) {
	root := makeTree(t)
	got, err := Discover(context.Background(), root, DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, got, "main.py")
	assert.Contains(t, got, ".venv/lib/x.py", "only .git is excluded by default")
	assert.NotContains(t, got, "pkg/secret.py")
}

func TestDiscover_Errors(t *testing.T) {
	ctx := context.Background()
	root := makeTree(t)

	_, err := Discover(ctx, "", DefaultOptions())
	assert.ErrorIs(t, err, ErrRootPathEmpty)

	_, err = Discover(ctx, filepath.Join(root, "main.py"), DefaultOptions())
	assert.ErrorIs(t, err, ErrRootNotDir)

	_, err = Discover(ctx, filepath.Join(root, "absent"), DefaultOptions())
	assert.ErrorIs(t, err, ErrRootNotDir)

	_, err = Discover(ctx, root, Options{Include: []string{"["}})
	assert.ErrorIs(t, err, ErrInvalidPattern)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Discover(canceled, root, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}
