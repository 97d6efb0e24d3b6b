// Copyright (c) 2026 Anvil Works
// SPDX-License-Identifier: GPL-3.0-or-later

package sqlstore

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics
var (
	recordsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "joblog_records_written_total",
			Help: "Total number of log records appended, by severity",
		},
		[]string{"severity"},
	)
	writeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "joblog_record_write_failures_total",
			Help: "Total number of failed log record appends",
		},
	)
)

func init() {
	prometheus.MustRegister(recordsWritten)
	prometheus.MustRegister(writeFailures)
}
