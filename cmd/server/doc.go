// Package main is the entry point for the lumen display server.
//
// The server owns every per-client session, the shared buffer broker,
// and the global desktop state. Clients connect over a WebSocket and
// speak the display protocol; a small HTTP surface exposes health,
// statistics, and Prometheus metrics.
//
// Architecture:
//
//	Client (shell, apps) → WebSocket (/session) → control loop
//	Operators            → HTTP (/health, /stats, /metrics)
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
