// Package protocol defines the closed set of request, response, and
// notification types exchanged between clients and the window server.
//
// Requests form a tagged variant: every request kind has exactly one
// concrete struct, and the session dispatches over the set with an
// exhaustive type switch. One-way requests produce no response but may
// still emit notifications. Window-manager-class requests carry the
// target client's id and resolve against the session directory rather
// than the requester's own registries.
package protocol
