// Package convert provides some helpers for fast binary conversion of common go types.
//
// Conversions are essentially unsafe and avoid copying: the resulting value shares
// its memory with the input and must not be mutated.
package convert
