// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/callgraph/services/callgraph/analyzer"
	"github.com/AleutianAI/callgraph/services/callgraph/graph"
)

const fixtureRequest = `{"files":["src/handler.py","src/utils.py","src/main.py"],"projectRoot":"../../../test/fixtures/python-basic"}`

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, opts ...HandlerOption) *gin.Engine {
	t.Helper()
	return NewRouter(NewHandlers(analyzer.NewAnalyzer(), opts...), false)
}

func newSnapshotManager(t *testing.T) *graph.SnapshotManager {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mgr, err := graph.NewSnapshotManager(db, nil)
	require.NoError(t, err)
	return mgr
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleAnalyze_Success(t *testing.T) {
	r := newTestRouter(t)
	w := do(r, http.MethodPost, "/v1/callgraph/analyze", fixtureRequest)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Empty(t, w.Header().Get(SnapshotIDHeader))

	g, err := graph.Decode(w.Body)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 6)
	assert.Len(t, g.Edges, 3)
}

func TestHandleAnalyze_Malformed(t *testing.T) {
	r := newTestRouter(t)
	bodies := []string{
		``,
		`{`,
		`[]`,
		`{"files":["a.py"]}`,
		`{"projectRoot":"/p"}`,
		`{"files":null,"projectRoot":"/p"}`,
	}
	for _, body := range bodies {
		w := do(r, http.MethodPost, "/v1/callgraph/analyze", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), body)
		assert.Equal(t, CodeMalformedRequest, resp.Code, body)
		assert.NotEmpty(t, resp.Error, body)
	}
}

func TestHandleAnalyze_EmptyFiles(t *testing.T) {
	r := newTestRouter(t)
	w := do(r, http.MethodPost, "/v1/callgraph/analyze", `{"files":[],"projectRoot":"."}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"nodes":[],"edges":[]}`, w.Body.String())
}

func TestHandleAnalyze_EchoesRequestID(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/callgraph/analyze", strings.NewReader(fixtureRequest))
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}

func TestHandleHealth(t *testing.T) {
	r := newTestRouter(t, WithVersion("1.2.3"))
	w := do(r, http.MethodGet, "/v1/callgraph/health", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, HealthResponse{Status: "healthy", Version: "1.2.3"}, resp)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)
	do(r, http.MethodGet, "/v1/callgraph/health", "")
	do(r, http.MethodPost, "/v1/callgraph/analyze", fixtureRequest)

	w := do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "callgraph_http_requests_total")
	assert.Contains(t, body, "callgraph_analyze_duration_seconds")
	assert.Contains(t, body, "callgraph_parse_total")
	assert.Contains(t, body, "callgraph_resolve_calls_total")
}

func TestSnapshots_Disabled(t *testing.T) {
	r := newTestRouter(t)
	for _, target := range []string{"/v1/callgraph/snapshots?project_root=/p", "/v1/callgraph/snapshots/abc"} {
		w := do(r, http.MethodGet, target, "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, target)
	}
}

func TestSnapshots_SaveListGet(t *testing.T) {
	r := newTestRouter(t, WithSnapshots(newSnapshotManager(t)))

	w := do(r, http.MethodPost, "/v1/callgraph/analyze?label=first", fixtureRequest)
	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(SnapshotIDHeader)
	require.NotEmpty(t, id)

	w = do(r, http.MethodGet, "/v1/callgraph/snapshots?project_root="+
		url.QueryEscape("../../../test/fixtures/python-basic"), "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Snapshots []graph.SnapshotMetadata `json:"snapshots"`
		Count     int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, id, list.Snapshots[0].SnapshotID)
	assert.Equal(t, "first", list.Snapshots[0].Label)
	assert.Equal(t, 6, list.Snapshots[0].NodeCount)

	w = do(r, http.MethodGet, "/v1/callgraph/snapshots/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	g, err := graph.Decode(w.Body)
	require.NoError(t, err)
	assert.Len(t, g.Edges, 3)

	w = do(r, http.MethodGet, "/v1/callgraph/snapshots/doesnotexist", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/v1/callgraph/snapshots", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
