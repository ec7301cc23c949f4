// Package protocol owns the instrument link wire contract.
//
// Ownership boundary:
// - request model extracted from one decoded document
// - task name enumeration
// - task-1 reply envelope and its compact encoding
//
// Stream framing lives in the frame subpackage.
package protocol
