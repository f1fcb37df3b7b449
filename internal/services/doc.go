// Package services defines shared utilities consumed by the synchronizer and
// the remote-service clients.
//
// Key responsibilities:
//   - Context helpers that stamp query names, record identifiers, and run
//     correlation IDs for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures by
//     propagation scope (item vs query vs run).
//
// Use these helpers when wiring new sync logic so operational behaviour (error
// handling, observability, retries) stays uniform across components.
package services
