// Package metrics defines the sinks used to record run observability data.
//
// A MetricsSink records solve results. Sinks may additionally implement the
// optional recorder interfaces (ModelSizeRecorder, FaultRecorder); callers
// discover them with a type assertion. Sinks are created from configuration
// through the registry in factory.go; infra/metrics registers the built-in
// "nop", "prometheus" and "influx" sinks.
package metrics
