// Package api contains the core data types shared by the raven client, its
// background worker, and the transports that deliver events.
//
// Most users interact with the higher-level raven package, which re-exports
// selected types and helpers from this package. The api package is intended
// for custom transports, observers, and integrations.
//
// # Events
//
// Event is the wire model sent to a Sentry-compatible store endpoint. An
// event carries a message, a severity Level, the logger that produced it, an
// optional culprit and stack trace, the identifying settings of the
// reporting process (server name, release, environment, device) and a
// fingerprint used by the server to group related events.
//
// # Credentials
//
// A Credential is parsed from a DSN of the form
//
//	https://{public key}:{private key}@{host}/{project id}
//
// The last path segment is the project id; any preceding path segments are
// ignored.
//
// # Transports
//
// A Transport delivers one fully formed event. Transports report failures
// through their return value; raven never retries a failed send.
//
// # Observability
//
// The Observer interface receives worker lifecycle and delivery callbacks.
// Ready-made implementations cover structured logging via log/slog and
// in-memory counters, and NewCompositeObserver combines several of them.
package api
