/*
Package metrics provides counters, gauges and histograms for the consulkv
clients.

New reports through the Tarmac host metrics capability using protobuf
payloads over waPC. NewPrometheus registers the same handles with a
Prometheus registry for native programs. Noop discards updates. Metric names
must match [a-zA-Z0-9_:]+ or ErrInvalidMetricName is returned.
*/
package metrics
