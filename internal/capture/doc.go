// Package capture owns the raw-byte audit trail of control connections.
//
// Every request pulled from a connection, including fragments that failed
// to parse, is appended verbatim to a per-host file so that concatenating
// the file reproduces what the peer sent.
package capture
