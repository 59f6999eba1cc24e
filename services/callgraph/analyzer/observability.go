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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("callgraph.analyzer")

// File outcome labels.
const (
	fileParsed     = "parsed"
	fileUnreadable = "unreadable"
	fileParseError = "parse_error"
)

var (
	analyzeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "callgraph",
			Name:      "analyze_duration_seconds",
			Help:      "Duration of complete analysis runs in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)

	// filesTotal counts requested files by what happened to them in pass 1.
	//
	// Labels:
	//   - outcome: "parsed", "unreadable", "parse_error"
	filesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "callgraph",
			Name:      "files_total",
			Help:      "Total requested files, by pass 1 outcome.",
		},
		[]string{"outcome"},
	)

	graphSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "callgraph",
			Name:      "graph_size",
			Help:      "Nodes and edges per analysis run.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		},
		[]string{"kind"},
	)

	reparseTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "callgraph",
			Name:      "reparse_total",
			Help:      "Files parsed a second time because they left the parse cache before pass 2.",
		},
	)
)

func recordRun(s *Stats) {
	analyzeDuration.Observe(s.Duration.Seconds())
	filesTotal.WithLabelValues(fileParsed).Add(float64(s.FilesParsed))
	filesTotal.WithLabelValues(fileUnreadable).Add(float64(s.FilesUnreadable))
	filesTotal.WithLabelValues(fileParseError).Add(float64(s.FilesFailed))
	graphSize.WithLabelValues("nodes").Observe(float64(s.Nodes))
	graphSize.WithLabelValues("edges").Observe(float64(s.Edges))
	reparseTotal.Add(float64(s.Reparsed))
}
