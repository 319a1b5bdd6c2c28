// Package codec serializes messages and envelopes to their wire forms.
//
// Both formats are deterministic, big-endian, and self-describing: a version
// byte, then a variant tag, then length-prefixed fields. Decode is a total
// inverse of Encode on well-formed input and fails with domain.ErrMalformed
// on anything else: wrong tag, truncation, trailing bytes, or invalid
// UTF-8 in a text payload.
package codec
