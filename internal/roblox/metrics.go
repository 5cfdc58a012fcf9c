// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package roblox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/oops"
)

var fetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "roblox_fetch_errors_total",
	Help: "Total number of failed Roblox API fetches by error code",
}, []string{"code"})

func observeFetchError(err error) {
	code := CodeAPIError
	if oopsErr, ok := oops.AsOops(err); ok {
		if c, isStr := oopsErr.Code().(string); isStr && c != "" {
			code = c
		}
	}
	fetchErrors.WithLabelValues(code).Inc()
}
