// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolve

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("callgraph.resolve")

// Call outcome labels.
const (
	outcomeResolved   = "resolved"
	outcomeBuiltin    = "builtin"
	outcomeUnresolved = "unresolved"
	outcomeSelf       = "self"
)

// callsTotal counts call expressions seen during resolution.
//
// Labels:
//   - outcome: "resolved", "builtin", "unresolved", "self"
//   - strategy: winning strategy name, empty unless resolved or self
var callsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "callgraph",
		Subsystem: "resolve",
		Name:      "calls_total",
		Help:      "Total call expressions examined, by outcome and strategy.",
	},
	[]string{"outcome", "strategy"},
)

// recordStats publishes one file's resolution counters.
func recordStats(s Stats) {
	if s.Builtin > 0 {
		callsTotal.WithLabelValues(outcomeBuiltin, "").Add(float64(s.Builtin))
	}
	if s.Unresolved > 0 {
		callsTotal.WithLabelValues(outcomeUnresolved, "").Add(float64(s.Unresolved))
	}
	for strategy, n := range s.SelfLoops {
		callsTotal.WithLabelValues(outcomeSelf, strategy).Add(float64(n))
	}
	for strategy, n := range s.ByStrategy {
		callsTotal.WithLabelValues(outcomeResolved, strategy).Add(float64(n))
	}
}
