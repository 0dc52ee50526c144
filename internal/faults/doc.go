// Package faults owns the console's blocking server-fault modal.
//
// # Overview
//
// A single Controller receives every failed request in the app. Server
// faults (HTTP 5xx) open one blocking modal and queue the failing call's
// retry func; concurrent faults join the same queue instead of stacking
// dialogs. Every other failure falls through to the toast sink, unless the
// modal is already open and owns the error surface.
//
// Retry runs all queued callbacks concurrently and closes the modal only
// if every one of them succeeds. A per-dialog attempt counter caps retries
// at three; after that, Retry refuses with ErrRetriesExhausted and the UI
// is expected to offer navigation home instead.
//
// The controller is constructed once and injected wherever failures are
// reported; there is no package-level state.
package faults
