// Package message is the Message Manager: the boundary object between the
// presentation layer and the crypto core.
//
// Outgoing messages move Queued -> Encrypting -> Sent -> Acknowledged or
// Failed under a bounded-concurrency semaphore; inbound frames move
// Received -> Decrypting -> Classified -> Delivered or Dropped. Callers
// observe terminal states through the event stream; no crypto, codec, or
// session error ever propagates past this package on the inbound path.
package message
