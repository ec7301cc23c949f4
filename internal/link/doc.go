// Package link owns the instrument control endpoint.
//
// Ownership boundary:
// - accept loop and per-connection sessions
// - request/reply cycle over undelimited JSON documents
// - capture hand-off for every pulled request
// - probe client used by tooling and tests
//
// Reads block without a deadline unless ServiceConfig.ReadTimeout is set,
// so a silent peer holds its session open until it disconnects.
package link
