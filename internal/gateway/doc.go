// Package gateway owns the out-of-band update interface.
//
// It exposes exactly two calls against the shared wavelength cell:
// GET /get peeks the value, PUT /set/<number> overwrites it. Every other
// path or method answers 404.
package gateway
