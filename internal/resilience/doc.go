// Package resilience implements a circuit breaker protecting external fetches.
package resilience
