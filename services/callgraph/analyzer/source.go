// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzer

import (
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/AleutianAI/callgraph/services/callgraph/ast"
	"github.com/AleutianAI/callgraph/services/callgraph/extract"
)

// sourcePath joins a requested file onto the project root. An absolute
// file path is used as is.
func sourcePath(projectRoot, file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(projectRoot, file)
}

// readSource returns the contents of a requested file.
func readSource(projectRoot, file string) ([]byte, error) {
	return os.ReadFile(sourcePath(projectRoot, file))
}

// parsedSource is a file that made it through pass 1.
type parsedSource struct {
	file *ast.ParsedFile
	defs []extract.Definition
}

// parseCache holds parsed files between the two passes.
//
// Evicted entries have their tree closed; pass 2 re-reads and re-parses
// them on a miss.
type parseCache struct {
	entries   *lru.Cache[string, *parsedSource]
	evictions int
}

func newParseCache(size int) (*parseCache, error) {
	c := &parseCache{}
	entries, err := lru.NewWithEvict[string, *parsedSource](size, c.handleEviction)
	if err != nil {
		return nil, err
	}
	c.entries = entries
	return c, nil
}

func (c *parseCache) handleEviction(_ string, src *parsedSource) {
	c.evictions++
	src.file.Close()
}

func (c *parseCache) get(path string) (*parsedSource, bool) {
	return c.entries.Get(path)
}

func (c *parseCache) add(path string, src *parsedSource) {
	c.entries.Add(path, src)
}

// purge closes every remaining tree.
func (c *parseCache) purge() {
	c.entries.Purge()
}
