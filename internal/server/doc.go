// Package server provides the HTTP API over the chat engine: session
// CRUD, blocking message sends, cancellation, runtime configuration, and
// a Server-Sent Events stream of engine events.
package server
