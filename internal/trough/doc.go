// Package trough implements the remote client for the Langmuir-trough
// tensiometer controller.
//
// Ownership boundary:
//   - TCP connection lifetime (dial, prologue, close)
//   - wire framing for call/get/set/ctrl and OK-prefixed responses
//   - field coercion into tagged values and per-operation result shaping
//   - the 22-field measurement schema and its enumerations
//
// The client serializes all operations over the single connection; one
// request is in flight at any instant. Background draining lives in
// internal/poll and consumes this package only through Call.
package trough
