package models

import "time"

// MetricPoint is one observation of a named metric on a host. Points arrive in
// finite batches and are immutable.
type MetricPoint struct {
	Host      string    `json:"host"`
	Name      string    `json:"metric_name"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}
