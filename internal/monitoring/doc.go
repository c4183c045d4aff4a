/*
Package monitoring provides Prometheus metrics for the loader.

Metrics cover resource fetches, cache effectiveness, and script execution
outcomes. All recording methods are nil-safe, so code can carry an optional
*Metrics without guarding every call site.
*/
package monitoring
