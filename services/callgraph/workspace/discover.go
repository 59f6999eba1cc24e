// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workspace finds the Python files of a project on disk.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"
)

var (
	// ErrRootPathEmpty indicates the root path was not specified.
	ErrRootPathEmpty = errors.New("root path cannot be empty")

	// ErrRootNotDir indicates the root path is missing or not a directory.
	ErrRootNotDir = errors.New("root path is not a directory")

	// ErrInvalidPattern indicates a glob pattern could not be compiled.
	ErrInvalidPattern = errors.New("invalid glob pattern")
)

// Options controls discovery.
type Options struct {
	// Include patterns select files. A leading "**/" also matches files
	// directly under the root.
	Include []string

	// Exclude patterns reject files and prune directories.
	Exclude []string

	// RespectGitignore applies every .gitignore found under the root to
	// its own directory and below.
	RespectGitignore bool
}

// DefaultOptions selects every .py file and honours .gitignore.
func DefaultOptions() Options {
	return Options{
		Include:          []string{"**/*.py"},
		Exclude:          []string{"**/.git/**"},
		RespectGitignore: true,
	}
}

type matcher []glob.Glob

func compile(patterns []string) (matcher, error) {
	m := make(matcher, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, errors.Join(ErrInvalidPattern, fmt.Errorf("%q: %w", p, err))
		}
		m = append(m, g)
		if rest, ok := strings.CutPrefix(p, "**/"); ok && rest != "" {
			g, err := glob.Compile(rest, '/')
			if err != nil {
				return nil, errors.Join(ErrInvalidPattern, fmt.Errorf("%q: %w", p, err))
			}
			m = append(m, g)
		}
	}
	return m, nil
}

func (m matcher) match(rel string) bool {
	for _, g := range m {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// gitignore is one .gitignore file and the directory it governs.
type gitignore struct {
	base  string
	rules *ignore.GitIgnore
}

func (g gitignore) ignores(rel string, isDir bool) bool {
	sub := rel
	if g.base != "" {
		var ok bool
		if sub, ok = strings.CutPrefix(rel, g.base+"/"); !ok {
			return false
		}
	}
	if isDir {
		return g.rules.MatchesPath(sub) || g.rules.MatchesPath(sub+"/")
	}
	return g.rules.MatchesPath(sub)
}

// Discover returns the files under root selected by opts.
//
// Description:
//
//	Walks root without following symlinks. Paths are relative to root,
//	slash separated and sorted, so the result can be used directly as the
//	files of an analysis request with a stable processing order.
//
// Inputs:
//   - ctx: Checked once per directory entry.
//   - root: The project root directory.
//   - opts: Selection rules. An empty Include selects nothing.
//
// Outputs:
//   - []string: Matching files. Never nil.
//   - error: ErrRootPathEmpty, ErrRootNotDir, ErrInvalidPattern, a
//     context error or a walk error.
func Discover(ctx context.Context, root string, opts Options) ([]string, error) {
	if root == "" {
		return nil, ErrRootPathEmpty
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotDir, root)
	}

	include, err := compile(opts.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := compile(opts.Exclude)
	if err != nil {
		return nil, err
	}

	var ignores []gitignore
	files := make([]string, 0, 64)

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if os.IsPermission(walkErr) {
				return nil
			}
			return walkErr
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				rel = ""
			} else if exclude.match(rel+"/") || isIgnored(ignores, rel, true) {
				return fs.SkipDir
			}
			if opts.RespectGitignore {
				if rules, err := ignore.CompileIgnoreFile(filepath.Join(p, ".gitignore")); err == nil {
					ignores = append(ignores, gitignore{base: rel, rules: rules})
				}
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if !include.match(rel) || exclude.match(rel) || isIgnored(ignores, rel, false) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func isIgnored(ignores []gitignore, rel string, isDir bool) bool {
	for _, g := range ignores {
		if g.ignores(rel, isDir) {
			return true
		}
	}
	return false
}
