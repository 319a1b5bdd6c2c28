// Package domain holds the shared types, interfaces, and error taxonomy of
// the secure message exchange core: device identities, pairwise sessions,
// the message union, stored conversation entries, and the wire envelope.
//
// Components depend on the interfaces declared here rather than on each
// other, so the session, codec, seal, store, and manager layers stay
// independently testable.
package domain
