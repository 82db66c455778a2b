// Package resync fetches authoritative widget state after a write.
//
// HTTP refetches one device's state from the fragment service. Callers
// waiting on the same device share a request that had not been sent yet
// when they called, never one already on the wire. Feed
// subscribes to the service's websocket and hands every pushed state to a
// callback, so widgets follow server truth without polling.
package resync
