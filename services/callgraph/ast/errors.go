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

import "errors"

// Sentinel errors returned by PythonParser.Parse. Any of them means the file
// is skipped by the analyzer.
var (
	// ErrFileTooLarge indicates the content exceeds the parser's size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size")

	// ErrInvalidContent indicates the content cannot be decoded as UTF-8.
	ErrInvalidContent = errors.New("invalid content")

	// ErrSyntax indicates the tree contains ERROR or MISSING nodes.
	ErrSyntax = errors.New("syntax error")
)

const (
	// DefaultMaxFileSize is the default parse limit (10 MiB).
	DefaultMaxFileSize int64 = 10 * 1024 * 1024

	// WarnFileSize triggers a warning log before parsing (1 MiB).
	WarnFileSize = 1024 * 1024
)
