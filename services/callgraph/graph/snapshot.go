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
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrSnapshotNotFound is returned when a snapshot id or latest pointer is unknown.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Key layout for call-graph snapshots.
const (
	keyPrefixSnap      = "callgraph:snap:"
	keyPrefixSnapIndex = "callgraph:snap:index:"
	keySuffixData      = ":data"
	keySuffixMeta      = ":meta"
	keySuffixLatest    = ":latest"

	defaultListLimit = 100
)

// SnapshotMetadata describes one stored call graph.
type SnapshotMetadata struct {
	// SnapshotID is SHA256(ProjectRoot:CreatedAtNano)[:16].
	SnapshotID string `json:"snapshot_id"`

	ProjectRoot string `json:"project_root"`

	// ProjectHash is SHA256(ProjectRoot)[:16] and groups snapshots per project.
	ProjectHash string `json:"project_hash"`

	// GraphHash is Graph.Hash() at save time.
	GraphHash string `json:"graph_hash"`

	Label          string `json:"label,omitempty"`
	CreatedAtMilli int64  `json:"created_at_milli"`
	NodeCount      int    `json:"node_count"`
	EdgeCount      int    `json:"edge_count"`
	SchemaVersion  string `json:"schema_version"`

	// CompressedSize and ContentHash describe the gzip payload.
	CompressedSize int64  `json:"compressed_size"`
	ContentHash    string `json:"content_hash"`
}

// SnapshotManager stores call graphs in BadgerDB as gzip-compressed JSON.
//
// Description:
//
//	Each run's graph can be saved under its project root. A "latest"
//	pointer per project allows the most recent run to be loaded without
//	knowing its id.
//
// Thread Safety:
//
//	Safe for concurrent use. BadgerDB handles its own concurrency control.
type SnapshotManager struct {
	db     *badger.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSnapshotManager creates a manager over an opened BadgerDB.
//
// Inputs:
//
//	db - An opened BadgerDB instance, owned and closed by the caller.
//	logger - Logger for diagnostic output. nil means slog.Default().
//
// Outputs:
//
//	*SnapshotManager - The configured manager.
//	error - Non-nil if db is nil.
func NewSnapshotManager(db *badger.DB, logger *slog.Logger) (*SnapshotManager, error) {
	if db == nil {
		return nil, fmt.Errorf("badger db must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotManager{db: db, logger: logger, now: time.Now}, nil
}

// OpenSnapshotDB opens (or creates) a BadgerDB directory for snapshots.
func OpenSnapshotDB(dir string) (*badger.DB, error) {
	if dir == "" {
		return nil, fmt.Errorf("snapshot directory must not be empty")
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db %s: %w", dir, err)
	}
	return db, nil
}

// Save persists a graph for projectRoot and moves the project's latest pointer.
//
// Key Schema:
//
//	callgraph:snap:{projectHash}:{snapshotID}:data → gzip(JSON(Graph))
//	callgraph:snap:{projectHash}:{snapshotID}:meta → JSON(SnapshotMetadata)
//	callgraph:snap:{projectHash}:latest            → snapshotID
//	callgraph:snap:index:{snapshotID}              → projectHash
func (m *SnapshotManager) Save(ctx context.Context, projectRoot string, g *Graph, label string) (*SnapshotMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("save canceled: %w", err)
	}
	if g == nil {
		return nil, fmt.Errorf("graph must not be nil")
	}
	if projectRoot == "" {
		// Files of such a request resolve against the working directory.
		projectRoot = "."
	}

	graphHash, err := g.Hash()
	if err != nil {
		return nil, err
	}
	jsonData, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("marshaling graph: %w", err)
	}

	compressed, err := gzipBytes(jsonData)
	if err != nil {
		return nil, err
	}

	created := m.now()
	projectHash := ProjectHash(projectRoot)
	snapshotID := hashString(fmt.Sprintf("%s:%d", projectRoot, created.UnixNano()))[:16]

	meta := &SnapshotMetadata{
		SnapshotID:     snapshotID,
		ProjectRoot:    projectRoot,
		ProjectHash:    projectHash,
		GraphHash:      graphHash,
		Label:          label,
		CreatedAtMilli: created.UnixMilli(),
		NodeCount:      g.NodeCount(),
		EdgeCount:      g.EdgeCount(),
		SchemaVersion:  SchemaVersion,
		CompressedSize: int64(len(compressed)),
		ContentHash:    hashBytes(compressed),
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		writes := []struct {
			key string
			val []byte
		}{
			{dataKey(projectHash, snapshotID), compressed},
			{metaKey(projectHash, snapshotID), metaJSON},
			{latestKey(projectHash), []byte(snapshotID)},
			{keyPrefixSnapIndex + snapshotID, []byte(projectHash)},
		}
		for _, w := range writes {
			if err := txn.Set([]byte(w.key), w.val); err != nil {
				return fmt.Errorf("storing %s: %w", w.key, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("writing snapshot to badger: %w", err)
	}

	m.logger.Info("callgraph snapshot saved",
		slog.String("snapshot_id", snapshotID),
		slog.String("project_root", projectRoot),
		slog.Int("node_count", meta.NodeCount),
		slog.Int("edge_count", meta.EdgeCount),
		slog.Int64("compressed_size", meta.CompressedSize),
	)
	return meta, nil
}

// Load retrieves a snapshot by id.
//
// Outputs:
//
//	*Graph - The stored graph.
//	*SnapshotMetadata - Its metadata.
//	error - Wraps ErrSnapshotNotFound for unknown ids, or reports a
//	        failed integrity check.
func (m *SnapshotManager) Load(ctx context.Context, snapshotID string) (*Graph, *SnapshotMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("load canceled: %w", err)
	}
	if snapshotID == "" {
		return nil, nil, fmt.Errorf("snapshot ID must not be empty")
	}

	projectHash, err := m.readString(keyPrefixSnapIndex + snapshotID)
	if err != nil {
		return nil, nil, fmt.Errorf("looking up snapshot %s: %w", snapshotID, err)
	}
	return m.loadByKeys(projectHash, snapshotID)
}

// LoadLatest loads the most recent snapshot saved for projectHash.
func (m *SnapshotManager) LoadLatest(ctx context.Context, projectHash string) (*Graph, *SnapshotMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("load canceled: %w", err)
	}
	if projectHash == "" {
		return nil, nil, fmt.Errorf("project hash must not be empty")
	}

	snapshotID, err := m.readString(latestKey(projectHash))
	if err != nil {
		return nil, nil, fmt.Errorf("reading latest pointer for %s: %w", projectHash, err)
	}
	return m.loadByKeys(projectHash, snapshotID)
}

// List returns snapshot metadata, newest first.
//
// Inputs:
//
//	projectHash - Optional filter. Empty lists every project.
//	limit - Maximum number of results. Values <= 0 mean 100.
func (m *SnapshotManager) List(ctx context.Context, projectHash string, limit int) ([]*SnapshotMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list canceled: %w", err)
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	prefix := keyPrefixSnap
	if projectHash != "" {
		prefix = keyPrefixSnap + projectHash + ":"
	}

	results := make([]*SnapshotMetadata, 0)
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if !strings.HasSuffix(key, keySuffixMeta) {
				continue
			}

			var meta SnapshotMetadata
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				m.logger.Warn("skipping corrupt snapshot metadata",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
				continue
			}
			results = append(results, &meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAtMilli > results[j].CreatedAtMilli
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes a snapshot and, if it was the latest, the latest pointer.
func (m *SnapshotManager) Delete(ctx context.Context, snapshotID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete canceled: %w", err)
	}
	if snapshotID == "" {
		return fmt.Errorf("snapshot ID must not be empty")
	}

	projectHash, err := m.readString(keyPrefixSnapIndex + snapshotID)
	if err != nil {
		return fmt.Errorf("looking up snapshot %s: %w", snapshotID, err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		for _, key := range []string{
			dataKey(projectHash, snapshotID),
			metaKey(projectHash, snapshotID),
			keyPrefixSnapIndex + snapshotID,
		} {
			if err := txn.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("deleting %s: %w", key, err)
			}
		}

		item, err := txn.Get([]byte(latestKey(projectHash)))
		if err != nil {
			return nil
		}
		current, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("reading latest pointer: %w", err)
		}
		if string(current) == snapshotID {
			return txn.Delete([]byte(latestKey(projectHash)))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", snapshotID, err)
	}

	m.logger.Info("callgraph snapshot deleted", slog.String("snapshot_id", snapshotID))
	return nil
}

func (m *SnapshotManager) loadByKeys(projectHash, snapshotID string) (*Graph, *SnapshotMetadata, error) {
	var compressed, metaJSON []byte
	err := m.db.View(func(txn *badger.Txn) error {
		dataItem, err := txn.Get([]byte(dataKey(projectHash, snapshotID)))
		if err != nil {
			return notFound(err)
		}
		if compressed, err = dataItem.ValueCopy(nil); err != nil {
			return err
		}
		metaItem, err := txn.Get([]byte(metaKey(projectHash, snapshotID)))
		if err != nil {
			return notFound(err)
		}
		metaJSON, err = metaItem.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("reading snapshot %s: %w", snapshotID, err)
	}

	var meta SnapshotMetadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling metadata for %s: %w", snapshotID, err)
	}
	if actual := hashBytes(compressed); meta.ContentHash != "" && meta.ContentHash != actual {
		return nil, nil, fmt.Errorf("integrity check failed for %s: expected hash %s, got %s",
			snapshotID, meta.ContentHash, actual)
	}

	gr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, nil, fmt.Errorf("decompressing snapshot %s: %w", snapshotID, err)
	}
	defer gr.Close()

	g, err := Decode(gr)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot %s: %w", snapshotID, err)
	}
	return g, &meta, nil
}

func (m *SnapshotManager) readString(key string) (string, error) {
	var out string
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return notFound(err)
		}
		return item.Value(func(val []byte) error {
			out = string(val)
			return nil
		})
	})
	return out, err
}

// ProjectHash returns SHA256(projectRoot)[:16], the key prefix for a project.
func ProjectHash(projectRoot string) string {
	return hashString(projectRoot)[:16]
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := io.Copy(gw, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("compressing graph: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

func notFound(err error) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrSnapshotNotFound
	}
	return err
}

func dataKey(projectHash, snapshotID string) string {
	return keyPrefixSnap + projectHash + ":" + snapshotID + keySuffixData
}

func metaKey(projectHash, snapshotID string) string {
	return keyPrefixSnap + projectHash + ":" + snapshotID + keySuffixMeta
}

func latestKey(projectHash string) string {
	return keyPrefixSnap + projectHash + keySuffixLatest
}
