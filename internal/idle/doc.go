// Package idle schedules deferred work, such as eager fetches for async
// scripts, outside the caller's call stack.
package idle
