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

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("callgraph.ast")

// Parse outcome labels.
const (
	outcomeOK        = "ok"
	outcomeTooLarge  = "too_large"
	outcomeInvalid   = "invalid_content"
	outcomeSyntax    = "syntax"
	outcomeCanceled  = "canceled"
	outcomeTreeError = "tree_error"
)

var (
	// parseTotal counts Parse calls.
	//
	// Labels:
	//   - outcome: "ok", "too_large", "invalid_content", "syntax", "canceled", "tree_error"
	parseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "callgraph",
			Subsystem: "parse",
			Name:      "total",
			Help:      "Total number of Python files parsed, by outcome.",
		},
		[]string{"outcome"},
	)

	parseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "callgraph",
			Subsystem: "parse",
			Name:      "duration_seconds",
			Help:      "Duration of Python file parses in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	parseBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "callgraph",
			Subsystem: "parse",
			Name:      "bytes_total",
			Help:      "Total bytes of Python source handed to the parser.",
		},
	)
)

func startParseSpan(ctx context.Context, filePath string, size int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "PythonParser.Parse",
		trace.WithAttributes(
			attribute.String("file", filePath),
			attribute.Int("size_bytes", size),
		),
	)
}

// finishParse records metrics and span status for one Parse call.
func finishParse(span trace.Span, start time.Time, size int, err error) {
	parseDuration.Observe(time.Since(start).Seconds())
	parseBytes.Add(float64(size))

	outcome := classifyParseError(err)
	parseTotal.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
}

func classifyParseError(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrFileTooLarge):
		return outcomeTooLarge
	case errors.Is(err, ErrInvalidContent):
		return outcomeInvalid
	case errors.Is(err, ErrSyntax):
		return outcomeSyntax
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return outcomeCanceled
	default:
		return outcomeTreeError
	}
}
