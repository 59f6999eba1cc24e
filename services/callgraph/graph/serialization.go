// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
)

// SchemaVersion is the version of the persisted graph format.
// Increment when the node or edge JSON shape changes in a breaking way.
const SchemaVersion = "1.0"

// Encode writes the graph as a single JSON document.
//
// Inputs:
//
//	w - Destination writer.
//	g - Graph to encode. Must not be nil.
//	pretty - Indent the output with two spaces.
//
// Outputs:
//
//	error - Non-nil if encoding or writing fails.
func Encode(w io.Writer, g *Graph, pretty bool) error {
	if g == nil {
		return fmt.Errorf("graph must not be nil")
	}
	g.normalize()

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}
	return nil
}

// Decode reads one JSON graph document.
func Decode(r io.Reader) (*Graph, error) {
	var g Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("decoding graph: %w", err)
	}
	g.normalize()
	return &g, nil
}

// Hash returns the hex SHA-256 of the graph's canonical JSON encoding.
//
// Description:
//
//	The canonical encoding is compact JSON with nodes and edges in their
//	stored order. Two runs over the same inputs produce the same hash.
func (g *Graph) Hash() (string, error) {
	g.normalize()
	data, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("marshaling graph for hash: %w", err)
	}
	return hashBytes(data), nil
}

// hashString returns the hex-encoded SHA256 hash of a string.
func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// hashBytes returns the hex-encoded SHA256 hash of a byte slice.
func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
