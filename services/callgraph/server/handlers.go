// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server exposes the analyzer over HTTP.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/callgraph/services/callgraph/analyzer"
	"github.com/AleutianAI/callgraph/services/callgraph/graph"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeMalformedRequest  = "MALFORMED_REQUEST"
	CodeAnalysisFailed    = "ANALYSIS_FAILED"
	CodeSnapshotsDisabled = "SNAPSHOTS_NOT_AVAILABLE"
	CodeSnapshotNotFound  = "SNAPSHOT_NOT_FOUND"
	CodeSnapshotFailed    = "SNAPSHOT_FAILED"
)

// RequestIDHeader carries the caller's request id, echoed on the response.
const RequestIDHeader = "X-Request-ID"

// SnapshotIDHeader is set on analyze responses when the graph was saved.
const SnapshotIDHeader = "X-Snapshot-ID"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// HandlerOption configures Handlers.
type HandlerOption func(*Handlers)

// WithSnapshots saves every analyzed graph and enables the snapshot routes.
func WithSnapshots(mgr *graph.SnapshotManager) HandlerOption {
	return func(h *Handlers) {
		h.snapshots = mgr
	}
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(v string) HandlerOption {
	return func(h *Handlers) {
		h.version = v
	}
}

// Handlers serves the call-graph API.
//
// Thread Safety: Safe for concurrent use.
type Handlers struct {
	analyzer  *analyzer.Analyzer
	snapshots *graph.SnapshotManager
	version   string
}

// NewHandlers creates Handlers around an analyzer.
func NewHandlers(a *analyzer.Analyzer, opts ...HandlerOption) *Handlers {
	h := &Handlers{analyzer: a, version: "dev"}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleAnalyze handles POST /v1/callgraph/analyze.
//
// Request Body:
//
//	analyzer.Request
//
// Response:
//
//	200 OK: graph.Graph
//	400 Bad Request: Malformed request
//	500 Internal Server Error: The run was aborted
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAnalyze")

	req, err := analyzer.DecodeRequest(c.Request.Body)
	if err != nil {
		logger.Info("rejected request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeMalformedRequest})
		return
	}

	res, err := h.analyzer.Run(c.Request.Context(), req)
	if err != nil {
		status, code := http.StatusInternalServerError, CodeAnalysisFailed
		if errors.Is(err, analyzer.ErrMalformedRequest) {
			status, code = http.StatusBadRequest, CodeMalformedRequest
		}
		logger.Warn("analysis failed", slog.String("error", err.Error()))
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
		return
	}

	if h.snapshots != nil {
		meta, err := h.snapshots.Save(c.Request.Context(), req.ProjectRoot, res.Graph, c.Query("label"))
		if err != nil {
			logger.Warn("snapshot save failed", slog.String("error", err.Error()))
		} else {
			c.Header(SnapshotIDHeader, meta.SnapshotID)
		}
	}

	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Status(http.StatusOK)
	if err := graph.Encode(c.Writer, res.Graph, false); err != nil {
		logger.Error("writing response failed", slog.String("error", err.Error()))
	}
}

// HandleHealth handles GET /v1/callgraph/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Version: h.version})
}

// HandleListSnapshots handles GET /v1/callgraph/snapshots.
//
// Query Parameters:
//
//	project_root: Project whose snapshots to list (required)
//	limit: Maximum results, default 20 (optional)
func (h *Handlers) HandleListSnapshots(c *gin.Context) {
	if !h.requireSnapshots(c) {
		return
	}
	root := c.Query("project_root")
	if root == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "project_root parameter is required", Code: CodeMalformedRequest})
		return
	}
	limit := 20
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	metas, err := h.snapshots.List(c.Request.Context(), graph.ProjectHash(root), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: CodeSnapshotFailed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": metas, "count": len(metas)})
}

// HandleGetSnapshot handles GET /v1/callgraph/snapshots/:id.
func (h *Handlers) HandleGetSnapshot(c *gin.Context) {
	if !h.requireSnapshots(c) {
		return
	}
	g, _, err := h.snapshots.Load(c.Request.Context(), c.Param("id"))
	if errors.Is(err, graph.ErrSnapshotNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "snapshot not found", Code: CodeSnapshotNotFound})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: CodeSnapshotFailed})
		return
	}
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Status(http.StatusOK)
	_ = graph.Encode(c.Writer, g, false)
}

func (h *Handlers) requireSnapshots(c *gin.Context) bool {
	if h.snapshots == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "snapshot persistence not configured",
			Code:  CodeSnapshotsDisabled,
		})
		return false
	}
	return true
}

func getOrCreateRequestID(c *gin.Context) string {
	id := c.GetHeader(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Header(RequestIDHeader, id)
	return id
}
