// Package devserver is a reference implementation of the fragment service
// the console talks to. It keeps devices and persons in memory, renders
// modal fragments, accepts partial updates and pushes every state change
// over a websocket feed.
//
// It exists for local development (homectl serve) and integration tests.
package devserver
