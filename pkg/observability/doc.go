/*
Package observability provides the Prometheus instruments shared by the store
engine and the HTTP adapter.

Metrics are registered on an injected prometheus.Registerer, never on the global
default registry, so several engines can coexist in one process (and in tests).
*/
package observability
