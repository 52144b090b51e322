// Package chat implements the session and streaming-response engine:
// Response accumulation from progress events, Request/Session
// aggregates, and a Manager that bounds live sessions in an LRU store,
// enforces single-flight sends with cancellation, and persists session
// snapshots on a debounced schedule.
package chat
