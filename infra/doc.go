// Package infra groups the adapters behind the core interfaces: instance
// files, zerolog logging, Prometheus and InfluxDB sinks, the run log, Sentry
// and MQTT plan publication.
package infra
