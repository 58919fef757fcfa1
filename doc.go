// Package cloudqueue is a transactional queue provider layered over a
// primitive queue service and a blob store.
//
// The primitives it builds on are deliberately small: a queue service that
// offers short, size-limited messages governed by a visibility timeout, and
// a blob service that stores unbounded immutable objects under a
// container/name pair. Provider adds four capabilities neither primitive
// offers on its own: transparent overflow of oversize payloads into blob
// storage, poison-message detection and quarantine, in-flight tracking that
// lets callers operate on decoded payloads instead of raw receipts, and a
// retry policy that tells transient faults apart from terminal ones.
//
// Generic operations (Get, Put, Delete, Abandon, Persist and their *Range
// variants) are free functions rather than methods, because Go methods
// cannot carry their own type parameters independent of the receiver.
package cloudqueue
