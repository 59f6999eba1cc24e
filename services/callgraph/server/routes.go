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
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// ServiceName names the otelgin server spans.
const ServiceName = "callgraph"

// RegisterRoutes registers the /v1/callgraph/* endpoints.
//
// Endpoints:
//
//	POST /v1/callgraph/analyze - Build a call graph
//	GET  /v1/callgraph/health - Health check
//	GET  /v1/callgraph/snapshots - List saved graphs of a project
//	GET  /v1/callgraph/snapshots/:id - Load a saved graph
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	cg := rg.Group("/callgraph")
	cg.Use(countRequests())
	cg.POST("/analyze", h.HandleAnalyze)
	cg.GET("/health", h.HandleHealth)
	cg.GET("/snapshots", h.HandleListSnapshots)
	cg.GET("/snapshots/:id", h.HandleGetSnapshot)
}

// NewRouter builds the engine with recovery, tracing and /metrics.
func NewRouter(h *Handlers, debug bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(ServiceName))
	if debug {
		router.Use(gin.Logger())
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	RegisterRoutes(router.Group("/v1"), h)
	return router
}
