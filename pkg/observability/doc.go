/*
Package observability provides tools for monitoring the wayfarer planner.

It turns engine lifecycle hooks into Prometheus metrics and structured log
lines. Both are plain domain.LifecycleHooks values and can be combined with
domain.MergeHooks.
*/
package observability
